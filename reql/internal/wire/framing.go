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
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/internal/racing"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

// outgoing buffers query frames until they are sent.
type outgoing struct {
	buf        []byte
	onPackErr  func(error)
	onIoErr    func(context.Context, error)
	wireLogger log.WireLogger
	logId      string
}

func (o *outgoing) appendQuery(token uint64, query []any) {
	payload, err := json.Marshal(query)
	if err != nil {
		o.onPackErr(err)
		return
	}
	if o.wireLogger != nil {
		o.wireLogger.LogClientMessage(o.logId, "%d %s", token, payload)
	}
	start := len(o.buf)
	o.buf = append(o.buf, make([]byte, proto.HeaderSize)...)
	proto.PutHeader(o.buf[start:], token, len(payload))
	o.buf = append(o.buf, payload...)
}

func (o *outgoing) send(ctx context.Context, wr net.Conn) {
	if len(o.buf) == 0 {
		return
	}
	_, err := racing.NewWriter(wr).Write(ctx, o.buf)
	o.buf = o.buf[:0]
	if err != nil {
		o.onIoErr(ctx, err)
	}
}

func (o *outgoing) reset() {
	o.buf = o.buf[:0]
}

// incoming reads one response frame at a time.
type incoming struct {
	header     [proto.HeaderSize]byte
	buf        []byte
	wireLogger log.WireLogger
	logId      string
}

func (i *incoming) next(ctx context.Context, rd net.Conn) (uint64, *proto.Response, error) {
	reader := racing.NewReader(rd)
	if _, err := reader.ReadFull(ctx, i.header[:]); err != nil {
		return 0, nil, err
	}
	token, size := proto.ParseHeader(i.header[:])
	if size > proto.MaxResponseSize {
		return 0, nil, &db.ProtocolError{Message: fmt.Sprintf("response of %d bytes exceeds limit", size)}
	}
	if cap(i.buf) < size {
		i.buf = make([]byte, size)
	}
	body := i.buf[:size]
	if _, err := reader.ReadFull(ctx, body); err != nil {
		return 0, nil, err
	}
	if i.wireLogger != nil {
		i.wireLogger.LogServerMessage(i.logId, "%d %s", token, body)
	}
	res := &proto.Response{}
	if err := json.Unmarshal(body, res); err != nil {
		return 0, nil, &db.ProtocolError{Message: fmt.Sprintf("malformed response: %s", err)}
	}
	return token, res, nil
}

func decodeRows(raw []json.RawMessage) ([]any, error) {
	rows := make([]any, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &rows[i]); err != nil {
			return nil, &db.ProtocolError{Message: fmt.Sprintf("malformed row: %s", err)}
		}
	}
	return rows, nil
}
