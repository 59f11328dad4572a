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

// Package proto contains the constants and message shapes of the ReQL JSON
// wire protocol. It is shared by the driver and by the fake server used in
// tests.
package proto

import (
	"encoding/binary"
	"encoding/json"
)

// V1_0 is the magic number opening a version 1.0 handshake, sent little endian.
const V1_0 uint32 = 0x34c2bdc3

// ProtocolVersion is the sub protocol version negotiated inside V1_0.
const ProtocolVersion = 0

// AuthMethod is the only authentication method supported by V1_0.
const AuthMethod = "SCRAM-SHA-256"

// DefaultUser is used when no user is configured.
const DefaultUser = "admin"

// DefaultPort is the client driver port of the server.
const DefaultPort = 28015

// HeaderSize is the size of a query/response frame header: 8 bytes token
// followed by 4 bytes payload length, both little endian.
const HeaderSize = 12

// MaxResponseSize protects the driver from allocating arbitrarily large
// buffers on corrupt length prefixes.
const MaxResponseSize = 64 * 1024 * 1024

type QueryType int

const (
	QueryStart       QueryType = 1
	QueryContinue    QueryType = 2
	QueryStop        QueryType = 3
	QueryNoreplyWait QueryType = 4
	QueryServerInfo  QueryType = 5
)

func (t QueryType) String() string {
	switch t {
	case QueryStart:
		return "START"
	case QueryContinue:
		return "CONTINUE"
	case QueryStop:
		return "STOP"
	case QueryNoreplyWait:
		return "NOREPLY_WAIT"
	case QueryServerInfo:
		return "SERVER_INFO"
	}
	return "UNKNOWN"
}

type ResponseType int

const (
	SuccessAtom     ResponseType = 1
	SuccessSequence ResponseType = 2
	SuccessPartial  ResponseType = 3
	WaitComplete    ResponseType = 4
	ServerInfo      ResponseType = 5
	ClientError     ResponseType = 16
	CompileError    ResponseType = 17
	RuntimeError    ResponseType = 18
)

func (t ResponseType) String() string {
	switch t {
	case SuccessAtom:
		return "SUCCESS_ATOM"
	case SuccessSequence:
		return "SUCCESS_SEQUENCE"
	case SuccessPartial:
		return "SUCCESS_PARTIAL"
	case WaitComplete:
		return "WAIT_COMPLETE"
	case ServerInfo:
		return "SERVER_INFO"
	case ClientError:
		return "CLIENT_ERROR"
	case CompileError:
		return "COMPILE_ERROR"
	case RuntimeError:
		return "RUNTIME_ERROR"
	}
	return "UNKNOWN"
}

// IsError is true for the three failure response types.
func (t ResponseType) IsError() bool {
	return t == ClientError || t == CompileError || t == RuntimeError
}

// ErrorType refines RuntimeError responses.
type ErrorType int

const (
	ErrorInternal        ErrorType = 1000000
	ErrorResourceLimit   ErrorType = 2000000
	ErrorQueryLogic      ErrorType = 3000000
	ErrorNonExistence    ErrorType = 3100000
	ErrorOpFailed        ErrorType = 4100000
	ErrorOpIndeterminate ErrorType = 4200000
	ErrorUser            ErrorType = 5000000
	ErrorPermission      ErrorType = 6000000
)

// ResponseNote flags special streams such as change feeds.
type ResponseNote int

const (
	NoteSequenceFeed     ResponseNote = 1
	NoteAtomFeed         ResponseNote = 2
	NoteOrderByLimitFeed ResponseNote = 3
	NoteUnionedFeed      ResponseNote = 4
	NoteIncludesStates   ResponseNote = 5
)

// TermType values used by the raw term constructors and understood by the
// fake server.
type TermType int

const (
	TermDatum      TermType = 1
	TermMakeArray  TermType = 2
	TermMakeObj    TermType = 3
	TermJavascript TermType = 11
	TermError      TermType = 12
	TermDB         TermType = 14
	TermTable      TermType = 15
	TermDBList     TermType = 59
	TermRange      TermType = 173
)

// Response is the JSON body of every server response frame.
type Response struct {
	Type      ResponseType      `json:"t"`
	ErrorType ErrorType         `json:"e,omitempty"`
	Notes     []ResponseNote    `json:"n,omitempty"`
	Results   []json.RawMessage `json:"r"`
	Backtrace []any             `json:"b,omitempty"`
	Profile   any               `json:"p,omitempty"`
}

// ServerHello is the first message sent by the server after the magic number.
type ServerHello struct {
	Success            bool   `json:"success"`
	MinProtocolVersion int    `json:"min_protocol_version"`
	MaxProtocolVersion int    `json:"max_protocol_version"`
	ServerVersion      string `json:"server_version"`
	Error              string `json:"error,omitempty"`
	ErrorCode          int    `json:"error_code,omitempty"`
}

// AuthFirst carries the SCRAM client-first message.
type AuthFirst struct {
	ProtocolVersion      int    `json:"protocol_version"`
	AuthenticationMethod string `json:"authentication_method"`
	Authentication       string `json:"authentication"`
}

// AuthFinal carries the SCRAM client-final message.
type AuthFinal struct {
	Authentication string `json:"authentication"`
}

// AuthReply is the server answer to AuthFirst and AuthFinal.
type AuthReply struct {
	Success        bool   `json:"success"`
	Authentication string `json:"authentication,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      int    `json:"error_code,omitempty"`
}

// IsAuthErrorCode reports whether a handshake error code denotes a
// credential problem rather than a protocol problem.
func IsAuthErrorCode(code int) bool {
	return code >= 10 && code <= 20
}

func PutHeader(buf []byte, token uint64, length int) {
	binary.LittleEndian.PutUint64(buf[0:8], token)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(length))
}

func ParseHeader(buf []byte) (uint64, int) {
	return binary.LittleEndian.Uint64(buf[0:8]), int(binary.LittleEndian.Uint32(buf[8:12]))
}
