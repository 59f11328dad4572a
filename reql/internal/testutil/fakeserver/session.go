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

package fakeserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

type session struct {
	server  *Server
	r       *bufio.Reader
	w       net.Conn
	log     *zap.Logger
	streams map[uint64]*stream
	noreply sync.WaitGroup
}

type stream struct {
	seq   sequence
	batch int
}

type response struct {
	Type      proto.ResponseType `json:"t"`
	ErrorType proto.ErrorType    `json:"e,omitempty"`
	Results   []any              `json:"r"`
	Backtrace []any              `json:"b,omitempty"`
}

type queryError struct {
	typ       proto.ResponseType
	errorType proto.ErrorType
	msg       string
}

func compileError(format string, args ...any) *queryError {
	return &queryError{typ: proto.CompileError, msg: fmt.Sprintf(format, args...)}
}

func runtimeError(errorType proto.ErrorType, format string, args ...any) *queryError {
	return &queryError{typ: proto.RuntimeError, errorType: errorType, msg: fmt.Sprintf(format, args...)}
}

func (e *queryError) response() *response {
	return &response{Type: e.typ, ErrorType: e.errorType, Results: []any{e.msg}, Backtrace: []any{}}
}

func newSession(server *Server, r *bufio.Reader, w net.Conn, log *zap.Logger) *session {
	return &session{server: server, r: r, w: w, log: log, streams: map[uint64]*stream{}}
}

func (s *session) run() error {
	header := make([]byte, proto.HeaderSize)
	for {
		if _, err := io.ReadFull(s.r, header); err != nil {
			return err
		}
		token, length := proto.ParseHeader(header)
		payload := make([]byte, length)
		if _, err := io.ReadFull(s.r, payload); err != nil {
			return err
		}
		res := s.dispatch(token, payload)
		if res == nil {
			continue
		}
		if err := s.write(token+s.server.TokenOffset, res); err != nil {
			return err
		}
	}
}

func (s *session) write(token uint64, res *response) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	frame := make([]byte, proto.HeaderSize+len(payload))
	proto.PutHeader(frame, token, len(payload))
	copy(frame[proto.HeaderSize:], payload)
	_, err = s.w.Write(frame)
	return err
}

func (s *session) dispatch(token uint64, payload []byte) *response {
	var query []json.RawMessage
	if err := json.Unmarshal(payload, &query); err != nil || len(query) == 0 {
		return &response{Type: proto.ClientError, Results: []any{"Client is buggy (failed to deserialize query)."}}
	}
	var qtype proto.QueryType
	if err := json.Unmarshal(query[0], &qtype); err != nil {
		return &response{Type: proto.ClientError, Results: []any{"Expected a query type."}}
	}
	s.log.Debug("query", zap.Uint64("token", token), zap.Stringer("type", qtype))

	switch qtype {
	case proto.QueryStart:
		var term any
		opts := map[string]any{}
		if len(query) > 1 {
			_ = json.Unmarshal(query[1], &term)
		}
		if len(query) > 2 {
			_ = json.Unmarshal(query[2], &opts)
		}
		if noreply, _ := opts["noreply"].(bool); noreply {
			s.noreply.Add(1)
			go func() {
				defer s.noreply.Done()
				s.evaluate(term, opts)
			}()
			return nil
		}
		return s.start(token, term, opts)
	case proto.QueryContinue:
		st, ok := s.streams[token]
		if !ok {
			return &response{Type: proto.ClientError, Results: []any{fmt.Sprintf("Token %d not in stream cache.", token)}}
		}
		return s.nextBatch(token, st)
	case proto.QueryStop:
		delete(s.streams, token)
		return &response{Type: proto.SuccessSequence, Results: []any{}}
	case proto.QueryNoreplyWait:
		s.noreply.Wait()
		return &response{Type: proto.WaitComplete, Results: []any{}}
	case proto.QueryServerInfo:
		return &response{Type: proto.ServerInfo, Results: []any{s.server.info}}
	}
	return &response{Type: proto.ClientError, Results: []any{fmt.Sprintf("Query type %d is not supported.", qtype)}}
}

func (s *session) start(token uint64, term any, opts map[string]any) *response {
	value, seq, qerr := s.evaluate(term, opts)
	if qerr != nil {
		return qerr.response()
	}
	if seq == nil {
		return &response{Type: proto.SuccessAtom, Results: []any{value}}
	}
	batch := s.server.BatchRows
	if n, ok := opts["max_batch_rows"].(float64); ok && n >= 1 {
		batch = int(n)
	}
	return s.nextBatch(token, &stream{seq: seq, batch: batch})
}

func (s *session) nextBatch(token uint64, st *stream) *response {
	rows, more := st.seq.next(st.batch)
	if rows == nil {
		rows = []any{}
	}
	if !more {
		delete(s.streams, token)
		return &response{Type: proto.SuccessSequence, Results: rows}
	}
	s.streams[token] = st
	return &response{Type: proto.SuccessPartial, Results: rows}
}

func (s *session) evaluate(term any, opts map[string]any) (any, sequence, *queryError) {
	if dbTerm, ok := opts["db"]; ok {
		v, _, qerr := s.eval(dbTerm)
		if qerr != nil {
			return nil, nil, qerr
		}
		obj, _ := v.(map[string]any)
		name, _ := obj["name"].(string)
		if !s.server.hasDB(name) {
			return nil, nil, runtimeError(proto.ErrorOpFailed, "Database `%s` does not exist.", name)
		}
	}
	return s.eval(term)
}

func (s *Server) hasDB(name string) bool {
	for _, db := range s.dbs {
		if db == name {
			return true
		}
	}
	return false
}

func (s *session) eval(term any) (any, sequence, *queryError) {
	switch t := term.(type) {
	case map[string]any:
		obj := make(map[string]any, len(t))
		for k, v := range t {
			datum, qerr := s.datum(v)
			if qerr != nil {
				return nil, nil, qerr
			}
			obj[k] = datum
		}
		return obj, nil, nil
	case []any:
		return s.evalTerm(t)
	}
	return term, nil, nil
}

func (s *session) datum(term any) (any, *queryError) {
	v, seq, qerr := s.eval(term)
	if qerr != nil {
		return nil, qerr
	}
	if seq != nil {
		return nil, runtimeError(proto.ErrorQueryLogic, "Expected type DATUM but found SEQUENCE.")
	}
	return v, nil
}

func (s *session) evalTerm(t []any) (any, sequence, *queryError) {
	if len(t) == 0 {
		return nil, nil, compileError("Expected a non-empty array.")
	}
	typ, ok := t[0].(float64)
	if !ok {
		return nil, nil, compileError("Expected a TermType as first element.")
	}
	var args []any
	if len(t) > 1 {
		args, _ = t[1].([]any)
	}
	var optargs map[string]any
	if len(t) > 2 {
		optargs, _ = t[2].(map[string]any)
	}

	switch proto.TermType(typ) {
	case proto.TermDatum:
		if len(args) != 1 {
			return nil, nil, compileError("Expected 1 argument but found %d.", len(args))
		}
		return args[0], nil, nil
	case proto.TermMakeArray:
		arr := make([]any, len(args))
		for i, a := range args {
			v, qerr := s.datum(a)
			if qerr != nil {
				return nil, nil, qerr
			}
			arr[i] = v
		}
		return arr, nil, nil
	case proto.TermRange:
		return s.evalRange(args)
	case proto.TermJavascript:
		return s.evalJS(args, optargs)
	case proto.TermError:
		msg := "Error."
		if len(args) == 1 {
			v, qerr := s.datum(args[0])
			if qerr != nil {
				return nil, nil, qerr
			}
			msg = fmt.Sprint(v)
		}
		return nil, nil, runtimeError(proto.ErrorUser, "%s", msg)
	case proto.TermDB:
		if len(args) != 1 {
			return nil, nil, compileError("Expected 1 argument but found %d.", len(args))
		}
		name, _ := args[0].(string)
		return map[string]any{"$reql_type$": "DB", "name": name}, nil, nil
	case proto.TermDBList:
		dbs := make([]any, len(s.server.dbs))
		for i, db := range s.server.dbs {
			dbs[i] = db
		}
		return dbs, nil, nil
	case proto.TermTable:
		if len(args) == 0 {
			return nil, nil, compileError("Expected 1 argument but found 0.")
		}
		name, _ := args[len(args)-1].(string)
		docs, ok := s.server.table(name)
		if !ok {
			return nil, nil, runtimeError(proto.ErrorOpFailed, "Table `test.%s` does not exist.", name)
		}
		return nil, &sliceSequence{rows: docs}, nil
	}
	return nil, nil, compileError("Unrecognized TermType: %d.", int(typ))
}

func (s *session) evalRange(args []any) (any, sequence, *queryError) {
	bounds := make([]int64, len(args))
	for i, a := range args {
		v, qerr := s.datum(a)
		if qerr != nil {
			return nil, nil, qerr
		}
		f, ok := v.(float64)
		if !ok {
			return nil, nil, runtimeError(proto.ErrorQueryLogic, "Expected type NUMBER but found %T.", v)
		}
		bounds[i] = int64(f)
	}
	switch len(bounds) {
	case 0:
		return nil, &rangeSequence{endless: true}, nil
	case 1:
		return nil, &rangeSequence{end: bounds[0]}, nil
	case 2:
		return nil, &rangeSequence{cur: bounds[0], end: bounds[1]}, nil
	}
	return nil, nil, compileError("Expected between 0 and 2 arguments but found %d.", len(bounds))
}

// evalJS knows no javascript: sources that are JSON literals evaluate to
// themselves, anything else runs until the timeout fires.
func (s *session) evalJS(args []any, optargs map[string]any) (any, sequence, *queryError) {
	if len(args) != 1 {
		return nil, nil, compileError("Expected 1 argument but found %d.", len(args))
	}
	src, _ := args[0].(string)
	var literal any
	if err := json.Unmarshal([]byte(src), &literal); err == nil {
		return literal, nil, nil
	}
	timeout := s.server.JSTimeout
	if secs, ok := optargs["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	select {
	case <-time.After(timeout):
	case <-s.server.done:
	}
	return nil, nil, runtimeError(proto.ErrorResourceLimit,
		"JavaScript query `%s` timed out after %.3f seconds.", src, timeout.Seconds())
}
