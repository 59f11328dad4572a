/*
 * Copyright (c) "Neo4j"
 * Neo4j Sweden AB [https://neo4j.com]
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reql

import (
	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
)

// Error is the only error type returned by the driver. Branch on Kind:
//
//	if reql.KindOf(err) == reql.ErrorKindTimeout {
//		...
//	}
type Error = errorutil.Error

// ErrorKind tags an Error.
type ErrorKind = errorutil.Kind

const (
	ErrorKindDriver  = errorutil.KindDriver
	ErrorKindTimeout = errorutil.KindTimeout
	ErrorKindCompile = errorutil.KindCompile
	ErrorKindRuntime = errorutil.KindRuntime
	ErrorKindAuth    = errorutil.KindAuth
)

// ErrCursorExhausted is returned by Cursor.Next once every row was consumed.
var ErrCursorExhausted = &Error{Kind: ErrorKindDriver, Message: errorutil.CursorExhaustedMessage}

const (
	notOpenMessage     = "First argument to `run` must be an open connection."
	badCallbackMessage = "If provided, the callback must be a function. Please use `run(connection[, options][, callback])"
)

// KindOf returns the kind of err, zero when err is nil or did not come from
// the driver.
func KindOf(err error) ErrorKind {
	return errorutil.KindOf(err)
}

func IsDriverError(err error) bool {
	return KindOf(err) == ErrorKindDriver
}

func IsTimeoutError(err error) bool {
	return KindOf(err) == ErrorKindTimeout
}

func IsCompileError(err error) bool {
	return KindOf(err) == ErrorKindCompile
}

func IsRuntimeError(err error) bool {
	return KindOf(err) == ErrorKindRuntime
}

func IsAuthError(err error) bool {
	return KindOf(err) == ErrorKindAuth
}

// IsRetryable reports whether reconnecting before retrying err makes sense.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
