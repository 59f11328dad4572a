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

package wire

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

type pending struct {
	token   uint64
	handler responseHandler
}

// messageQueue pairs every query expecting an answer with the handler of
// its response. Responses must come back in the order queries were sent.
type messageQueue struct {
	in               *incoming
	out              *outgoing
	handlers         list.List // List[pending]
	targetConnection net.Conn
	err              error

	onIoErr func(context.Context, error)
}

func newMessageQueue(
	target net.Conn,
	in *incoming, out *outgoing,
	onIoErr func(context.Context, error),
) messageQueue {
	return messageQueue{
		in:               in,
		out:              out,
		handlers:         list.List{},
		targetConnection: target,
		onIoErr:          onIoErr,
	}
}

func (q *messageQueue) appendStart(token uint64, term any, opts map[string]any, handler *responseHandler) {
	query := []any{proto.QueryStart, term}
	if len(opts) > 0 {
		query = append(query, opts)
	}
	q.out.appendQuery(token, query)
	if handler != nil {
		q.enqueueCallback(token, *handler)
	}
}

func (q *messageQueue) appendContinue(token uint64, handler responseHandler) {
	q.out.appendQuery(token, []any{proto.QueryContinue})
	q.enqueueCallback(token, handler)
}

func (q *messageQueue) appendStop(token uint64, handler responseHandler) {
	q.out.appendQuery(token, []any{proto.QueryStop})
	q.enqueueCallback(token, handler)
}

func (q *messageQueue) appendNoreplyWait(token uint64, handler responseHandler) {
	q.out.appendQuery(token, []any{proto.QueryNoreplyWait})
	q.enqueueCallback(token, handler)
}

func (q *messageQueue) appendServerInfo(token uint64, handler responseHandler) {
	q.out.appendQuery(token, []any{proto.QueryServerInfo})
	q.enqueueCallback(token, handler)
}

func (q *messageQueue) send(ctx context.Context) {
	q.out.send(ctx, q.targetConnection)
}

func (q *messageQueue) receive(ctx context.Context) error {
	token, res := q.receiveMsg(ctx)
	if q.err != nil {
		return q.err
	}

	if q.handlers.Len() == 0 {
		return q.violation(ctx, fmt.Sprintf("unexpected response for token %d", token))
	}
	next := q.pop()
	if next.token != token {
		return q.violation(ctx, fmt.Sprintf("expected response for token %d but got %d", next.token, token))
	}
	if res.Type.IsError() {
		failure := serverError(res)
		next.handler.onFailure(ctx, failure)
		return failure
	}
	if next.handler.onSuccess == nil {
		return q.violation(ctx, fmt.Sprintf("the server sent an unexpected %s response", res.Type))
	}
	next.handler.onSuccess(res)
	return nil
}

// violation is fatal, the stream of frames can no longer be trusted.
func (q *messageQueue) violation(ctx context.Context, msg string) error {
	q.err = &db.ProtocolError{Message: msg}
	q.onIoErr(ctx, q.err)
	return q.err
}

func (q *messageQueue) pop() pending {
	return q.handlers.Remove(q.handlers.Front()).(pending)
}

func (q *messageQueue) receiveMsg(ctx context.Context) (uint64, *proto.Response) {
	// Potentially dangerous to receive when an error has occurred, could hang.
	if q.err != nil {
		return 0, nil
	}

	token, res, err := q.in.next(ctx, q.targetConnection)
	if err != nil {
		q.err = err
		q.onIoErr(ctx, err)
		return 0, nil
	}
	return token, res
}

func (q *messageQueue) enqueueCallback(token uint64, handler responseHandler) {
	q.handlers.PushBack(pending{token: token, handler: handler})
}

func (q *messageQueue) setWireLogger(logger log.WireLogger) {
	q.in.wireLogger = logger
	q.out.wireLogger = logger
}

func serverError(res *proto.Response) *db.ServerError {
	msg := "Unknown error"
	if len(res.Results) > 0 {
		var s string
		if err := json.Unmarshal(res.Results[0], &s); err == nil {
			msg = s
		}
	}
	return &db.ServerError{
		Type:      res.Type,
		ErrorType: res.ErrorType,
		Message:   msg,
		Backtrace: res.Backtrace,
	}
}
