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

// Package wire implements the ReQL JSON wire protocol: handshake, query
// framing and response correlation for a single socket.
package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

const (
	connUnauthorized = iota // Initial state, handshake not completed
	connReady               // Ready for use
	connDead                // Non recoverable protocol or connection error, or closed
)

// Conn is a single authenticated socket to the server.
type Conn struct {
	state         int
	conn          net.Conn
	serverName    string
	serverVersion string
	connId        string
	logId         string
	queue         messageQueue
	birthDate     time.Time
	log           log.Logger
	err           error // Last fatal error
	lastToken     uint64
}

func newConn(serverName string, conn net.Conn, logger log.Logger, wireLogger log.WireLogger) *Conn {
	c := &Conn{
		state:      connUnauthorized,
		conn:       conn,
		serverName: serverName,
		connId:     uuid.NewString(),
		birthDate:  time.Now(),
		log:        logger,
	}
	c.logId = fmt.Sprintf("%s@%s", c.connId, serverName)
	c.queue = newMessageQueue(
		conn,
		&incoming{wireLogger: wireLogger, logId: c.logId},
		&outgoing{
			onPackErr:  func(err error) { c.setError(err, true) },
			onIoErr:    c.onIoError,
			wireLogger: wireLogger,
			logId:      c.logId,
		},
		c.onIoError,
	)
	return c
}

func (c *Conn) ServerName() string {
	return c.serverName
}

func (c *Conn) ServerVersion() string {
	return c.serverVersion
}

func (c *Conn) IsAlive() bool {
	return c.state != connDead
}

func (c *Conn) Birthdate() time.Time {
	return c.birthDate
}

func (c *Conn) SetWireLogger(wireLogger log.WireLogger) {
	c.queue.setWireLogger(wireLogger)
}

// Sets c.err and moves to dead state when fatal is true.
func (c *Conn) setError(err error, fatal bool) {
	if err == nil {
		return
	}
	if c.err == nil {
		c.err = err
	}
	if fatal {
		c.state = connDead
		c.log.Error(log.Wire, c.logId, err)
		return
	}
	c.log.Debugf(log.Wire, c.logId, "%s", err)
}

func (c *Conn) assertState(allowed ...int) error {
	for _, a := range allowed {
		if c.state == a {
			return nil
		}
	}
	// The fatal error was reported to the call that hit it.
	if c.state == connDead {
		return net.ErrClosed
	}
	if c.err != nil {
		return c.err
	}
	return &db.ProtocolError{Message: fmt.Sprintf("invalid state %d, expected: %+v", c.state, allowed)}
}

func (c *Conn) nextToken() uint64 {
	c.lastToken++
	return c.lastToken
}

func (c *Conn) Start(ctx context.Context, cmd db.Command) (db.StreamHandle, *db.Batch, error) {
	if err := c.assertState(connReady); err != nil {
		return nil, nil, err
	}

	token := c.nextToken()
	if cmd.NoReply {
		opts := make(map[string]any, len(cmd.GlobalOpts)+1)
		for k, v := range cmd.GlobalOpts {
			opts[k] = v
		}
		opts["noreply"] = true
		c.queue.appendStart(token, cmd.Term, opts, nil)
		if c.queue.send(ctx); c.err != nil {
			return nil, nil, c.err
		}
		return nil, nil, nil
	}

	s := &stream{conn: c, token: token, open: true}
	var batch *db.Batch
	handler := c.batchResponseHandler(s, &batch)
	c.queue.appendStart(token, cmd.Term, cmd.GlobalOpts, &handler)
	if c.queue.send(ctx); c.err != nil {
		return nil, nil, c.err
	}
	if err := c.queue.receive(ctx); err != nil {
		return nil, nil, err
	}
	if c.err != nil {
		return nil, nil, c.err
	}
	return s, batch, nil
}

func (c *Conn) Continue(ctx context.Context, handle db.StreamHandle) (*db.Batch, error) {
	s, err := c.ownStream(handle)
	if err != nil {
		return nil, err
	}
	if !s.open {
		return &db.Batch{}, nil
	}

	var batch *db.Batch
	c.queue.appendContinue(s.token, c.batchResponseHandler(s, &batch))
	if c.queue.send(ctx); c.err != nil {
		return nil, c.err
	}
	if err := c.queue.receive(ctx); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return batch, nil
}

func (c *Conn) Stop(ctx context.Context, handle db.StreamHandle) error {
	s, err := c.ownStream(handle)
	if err != nil {
		return err
	}
	if !s.open {
		return nil
	}

	c.queue.appendStop(s.token, responseHandler{
		onSuccess: func(*proto.Response) {
			s.open = false
		},
		onFailure: func(context.Context, *db.ServerError) {
			s.open = false
		},
	})
	if c.queue.send(ctx); c.err != nil {
		return c.err
	}
	if err := c.queue.receive(ctx); err != nil {
		return err
	}
	return c.err
}

func (c *Conn) NoreplyWait(ctx context.Context) error {
	if err := c.assertState(connReady); err != nil {
		return err
	}

	c.queue.appendNoreplyWait(c.nextToken(), c.expectResponse(proto.WaitComplete, func(*proto.Response) {}))
	if c.queue.send(ctx); c.err != nil {
		return c.err
	}
	if err := c.queue.receive(ctx); err != nil {
		return err
	}
	return c.err
}

func (c *Conn) ServerInfo(ctx context.Context) (db.ServerInfo, error) {
	if err := c.assertState(connReady); err != nil {
		return db.ServerInfo{}, err
	}

	var info db.ServerInfo
	c.queue.appendServerInfo(c.nextToken(), c.expectResponse(proto.ServerInfo, func(res *proto.Response) {
		if len(res.Results) != 1 {
			c.setError(&db.ProtocolError{Message: "server info response without result"}, true)
			return
		}
		if err := json.Unmarshal(res.Results[0], &info); err != nil {
			c.setError(&db.ProtocolError{Message: fmt.Sprintf("malformed server info: %s", err)}, true)
		}
	}))
	if c.queue.send(ctx); c.err != nil {
		return db.ServerInfo{}, c.err
	}
	if err := c.queue.receive(ctx); err != nil {
		return db.ServerInfo{}, err
	}
	if c.err != nil {
		return db.ServerInfo{}, c.err
	}
	return info, nil
}

// Close closes the underlying connection.
func (c *Conn) Close(ctx context.Context) {
	c.log.Infof(log.Wire, c.logId, "Close")
	c.state = connDead
	c.queue.out.reset()
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Warnf(log.Wire, c.logId, "could not close underlying socket: %s", err)
	}
}

func (c *Conn) ownStream(handle db.StreamHandle) (*stream, error) {
	s, ok := handle.(*stream)
	if !ok || s == nil {
		return nil, &db.ProtocolError{Message: fmt.Sprintf("invalid stream handle %v", handle)}
	}
	if s.conn != c {
		return nil, &db.ProtocolError{Message: "stream belongs to another connection"}
	}
	if err := c.assertState(connReady); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Conn) batchResponseHandler(s *stream, out **db.Batch) responseHandler {
	return responseHandler{
		onSuccess: func(res *proto.Response) {
			rows, err := decodeRows(res.Results)
			if err != nil {
				c.setError(err, true)
				return
			}
			batch := &db.Batch{Rows: rows, Notes: res.Notes, Profile: res.Profile}
			switch res.Type {
			case proto.SuccessAtom:
				batch.Atom = true
				s.open = false
			case proto.SuccessSequence:
				s.open = false
			case proto.SuccessPartial:
				batch.More = true
			default:
				c.setError(&db.ProtocolError{Message: fmt.Sprintf("unexpected %s response to a query", res.Type)}, true)
				return
			}
			*out = batch
		},
		onFailure: func(ctx context.Context, failure *db.ServerError) {
			// Server errors end the query but leave the connection usable.
			s.open = false
			c.log.Debugf(log.Wire, c.logId, "%s", failure)
		},
	}
}

func (c *Conn) expectResponse(expected proto.ResponseType, onSuccess func(*proto.Response)) responseHandler {
	return responseHandler{
		onSuccess: func(res *proto.Response) {
			if res.Type != expected {
				c.setError(&db.ProtocolError{Message: fmt.Sprintf("expected %s but got %s", expected, res.Type)}, true)
				return
			}
			onSuccess(res)
		},
		onFailure: onFailureNoOp,
	}
}

func (c *Conn) onIoError(ctx context.Context, err error) {
	c.setError(err, true)
}
