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

package db

import (
	"fmt"

	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

// ServerError is created when the server answered with one of the error
// response types.
type ServerError struct {
	Type      proto.ResponseType
	ErrorType proto.ErrorType
	Message   string
	Backtrace []any
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AuthError is created when the server rejected the credentials during the
// handshake or when the server signature did not verify.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ProtocolError signals a violation of the wire protocol by either side.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Message)
}
