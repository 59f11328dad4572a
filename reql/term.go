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
	"context"
	"encoding/json"
	"reflect"

	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

// Term is a serialized query. The constructors in this file cover what the
// driver itself needs; they do not form a query builder.
type Term struct {
	wire any
}

// Build returns the JSON wire representation of the term.
func (t Term) Build() any {
	return t.wire
}

func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.wire)
}

func (t Term) String() string {
	b, err := json.Marshal(t.wire)
	if err != nil {
		return "<unserializable term>"
	}
	return string(b)
}

// Expr converts a Go value into a term. Slices become MAKE_ARRAY terms, maps
// become objects, everything else is sent as a datum.
func Expr(v any) Term {
	return Term{wire: expr(v)}
}

func expr(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Term:
		return x.wire
	case json.RawMessage:
		return x
	case []byte:
		return map[string]any{"$reql_type$": "BINARY", "data": x}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		args := make([]any, rv.Len())
		for i := range args {
			args[i] = expr(rv.Index(i).Interface())
		}
		return []any{proto.TermMakeArray, args}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = expr(iter.Value().Interface())
		}
		return obj
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return expr(rv.Elem().Interface())
	}
	return v
}

// Range yields the integers in [0, n), [start, end) or, without arguments,
// an endless stream.
func Range(bounds ...int64) Term {
	args := make([]any, len(bounds))
	for i, b := range bounds {
		args[i] = b
	}
	return Term{wire: []any{proto.TermRange, args}}
}

// JS evaluates src on the server. A positive timeout (seconds) bounds the
// evaluation.
func JS(src string, timeout float64) Term {
	term := []any{proto.TermJavascript, []any{src}}
	if timeout > 0 {
		term = append(term, map[string]any{"timeout": timeout})
	}
	return Term{wire: term}
}

// ErrorTerm fails the query with msg as a runtime error.
func ErrorTerm(msg string) Term {
	return Term{wire: []any{proto.TermError, []any{msg}}}
}

func DB(name string) Term {
	return Term{wire: []any{proto.TermDB, []any{name}}}
}

func DBList() Term {
	return Term{wire: []any{proto.TermDBList, []any{}}}
}

// Raw wraps an already serialized term.
func Raw(b json.RawMessage) Term {
	return Term{wire: b}
}

// Run dispatches the term on conn. With noreply set the result is (nil, nil).
func (t Term) Run(ctx context.Context, conn *Connection, opts RunOpts) (*Cursor, error) {
	return conn.run(ctx, t, opts)
}

// RunWithCallback dispatches the term from a new goroutine and hands the
// outcome to cb. Only argument errors are returned directly.
func (t Term) RunWithCallback(ctx context.Context, conn *Connection, opts RunOpts, cb func(*Cursor, error)) error {
	if cb == nil {
		return errorutil.New(errorutil.KindDriver, badCallbackMessage)
	}
	if !conn.IsOpen() {
		return errorutil.New(errorutil.KindDriver, notOpenMessage)
	}
	go func() {
		cursor, err := t.Run(ctx, conn, opts)
		cb(cursor, err)
	}()
	return nil
}

// Exec runs the term without waiting for a response.
func (t Term) Exec(ctx context.Context, conn *Connection, opts RunOpts) error {
	merged := make(RunOpts, len(opts)+1)
	for k, v := range opts {
		merged[k] = v
	}
	merged["noreply"] = true
	_, err := t.Run(ctx, conn, merged)
	return err
}
