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

// Package errorutil holds the error taxonomy of the driver and the
// conversion of internal failures into it.
package errorutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/multierr"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

// Kind tags every error surfaced by the driver. Callers branch on the tag,
// never on type names or message text.
type Kind int

const (
	// KindDriver covers client side misuse and transport failures.
	KindDriver Kind = iota + 1
	// KindTimeout is used when a bounded operation ran out of time.
	KindTimeout
	// KindCompile is used when the query or its options are malformed.
	KindCompile
	// KindRuntime is used for server side execution faults.
	KindRuntime
	// KindAuth is used when the credential handshake fails.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindDriver:
		return "DriverError"
	case KindTimeout:
		return "TimeoutError"
	case KindCompile:
		return "CompileError"
	case KindRuntime:
		return "RuntimeError"
	case KindAuth:
		return "AuthError"
	}
	return "UnknownError"
}

// Retryable reports whether reconnecting and retrying is a sensible reaction
// to an error of this kind.
func (k Kind) Retryable() bool {
	return k == KindDriver || k == KindTimeout
}

// Error is the single error type returned by the public API.
type Error struct {
	Kind    Kind
	Message string
	// Backtrace is the server provided position of the failing term, if any.
	Backtrace []any
	// ErrorType refines runtime errors, zero otherwise.
	ErrorType proto.ErrorType
	Cause     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err, or 0 when err is nil or not a driver error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

const (
	ClosedConnectionMessage = "Connection is closed."
	CursorExhaustedMessage  = "No more rows in the cursor."
)

// WrapError converts internal failures into tagged errors. Errors that are
// already tagged pass through untouched.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	var serverErr *db.ServerError
	if errors.As(err, &serverErr) {
		return fromServerError(serverErr)
	}
	var authErr *db.AuthError
	if errors.As(err, &authErr) {
		return &Error{Kind: KindAuth, Message: authErr.Message, Cause: err}
	}
	var protocolErr *db.ProtocolError
	if errors.As(err, &protocolErr) {
		return &Error{Kind: KindDriver, Message: protocolErr.Error(), Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "Operation timed out.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindDriver, Message: "Operation canceled.", Cause: err}
	}
	var netErr net.Error
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.As(err, &netErr) {
		return &Error{Kind: KindDriver, Message: ClosedConnectionMessage, Cause: err}
	}
	return &Error{Kind: KindDriver, Message: err.Error(), Cause: err}
}

func fromServerError(e *db.ServerError) *Error {
	kind := KindDriver
	switch e.Type {
	case proto.CompileError:
		kind = KindCompile
	case proto.RuntimeError:
		kind = KindRuntime
	}
	return &Error{
		Kind:      kind,
		Message:   e.Message,
		Backtrace: e.Backtrace,
		ErrorType: e.ErrorType,
		Cause:     e,
	}
}

func CombineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
