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
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/reqlgo/reql-go-driver/reql/config"
	"github.com/reqlgo/reql-go-driver/reql/internal/connector"
	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
	"github.com/reqlgo/reql-go-driver/reql/internal/racing"
	"github.com/reqlgo/reql-go-driver/reql/internal/wire"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

// ServerInfo identifies the server a connection talks to.
type ServerInfo = db.ServerInfo

type connectFunc func(ctx context.Context, address string) (db.Connection, error)

// Connection is a session with one server over one socket. It is safe for
// concurrent use, requests are serialized on the socket.
type Connection struct {
	id      string
	host    string
	port    int
	address string
	config  *config.Config
	connect connectFunc
	log     log.Logger

	mut  racing.Mutex
	conn db.Connection
	// open is false before the first connect and after Close.
	open atomic.Bool
	// generation is bumped by every successful (re)connect. Cursors remember
	// the generation they were created in.
	generation atomic.Uint64
	noreplies  atomic.Int64
}

// Connect opens a connection to host:port. An empty host means localhost and
// a zero port the default driver port. Config.Timeout bounds the whole
// connection establishment.
func Connect(ctx context.Context, host string, port int, configurers ...func(*config.Config)) (*Connection, error) {
	conf := defaultConfig()
	for _, configurer := range configurers {
		configurer(conf)
	}
	if err := validateAndNormaliseConfig(conf); err != nil {
		return nil, err
	}

	c := newConnection(host, port, conf, nil)
	c.connect = connector.Connector{
		SocketKeepAlive: conf.KeepAlive,
		TLSConfig:       conf.TLSConfig,
		Auth:            wire.Auth{User: conf.User, Password: conf.AuthKey},
		Log:             conf.Log,
		WireLogger:      conf.WireLogger,
	}.Connect
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newConnection(host string, port int, conf *config.Config, connect connectFunc) *Connection {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return &Connection{
		id:      uuid.NewString(),
		host:    host,
		port:    port,
		address: net.JoinHostPort(host, strconv.Itoa(port)),
		config:  conf,
		connect: connect,
		log:     conf.Log,
		mut:     racing.NewMutex(),
	}
}

// dial must be called with the lock held or before the connection is shared.
func (c *Connection) dial(ctx context.Context) error {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	conn, err := c.connect(ctx, c.address)
	if err != nil {
		c.log.Warnf(log.Connection, c.id, "Could not connect to %s: %s", c.address, err)
		return errorutil.ConnectError(c.address, err)
	}
	c.conn = conn
	generation := c.generation.Add(1)
	c.noreplies.Store(0)
	c.open.Store(true)
	c.log.Infof(log.Connection, c.id, "Connected to %s (server %s, generation %d)", c.address, conn.ServerVersion(), generation)
	return nil
}

func (c *Connection) lock(ctx context.Context) error {
	if c.mut.TryLock(ctx) {
		return nil
	}
	err := ctx.Err()
	if err == nil {
		err = context.DeadlineExceeded
	}
	return errorutil.WrapError(err)
}

// IsOpen is false once Close was called. A connection whose socket broke
// stays open until closed or reconnected, its queries fail with
// "Connection is closed." meanwhile.
func (c *Connection) IsOpen() bool {
	return c != nil && c.open.Load()
}

// Address is host:port of the server.
func (c *Connection) Address() string {
	return c.address
}

// OutstandingNoreply is the number of noreply queries sent since the last
// NOREPLY_WAIT.
func (c *Connection) OutstandingNoreply() int {
	return int(c.noreplies.Load())
}

// Close closes the connection, by default after waiting for outstanding
// noreply queries. Closing a closed connection is a no-op.
func (c *Connection) Close(ctx context.Context, opts ...CloseOption) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.mut.Unlock()
	return c.closeLocked(ctx, newCloseConfig(opts))
}

func (c *Connection) closeLocked(ctx context.Context, conf closeConfig) error {
	if !c.open.Load() {
		return nil
	}
	var err error
	// A broken socket has nothing left to wait for.
	if conf.noreplyWait && c.conn.IsAlive() {
		if err = c.conn.NoreplyWait(ctx); err == nil {
			c.noreplies.Store(0)
		}
	}
	c.open.Store(false)
	c.conn.Close(ctx)
	c.log.Infof(log.Connection, c.id, "Closed connection to %s after %s", c.address, time.Since(c.conn.Birthdate()).Round(time.Millisecond))
	return errorutil.WrapError(err)
}

// Reconnect closes the current socket, ignoring close errors, and dials the
// same address with the same configuration. Cursors of the previous socket
// are invalidated.
func (c *Connection) Reconnect(ctx context.Context, opts ...CloseOption) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.mut.Unlock()

	if err := c.closeLocked(ctx, newCloseConfig(opts)); err != nil {
		c.log.Warnf(log.Connection, c.id, "Ignoring error while closing before reconnect: %s", err)
	}
	return c.dial(ctx)
}

// NoreplyWait blocks until the server acknowledged every noreply query sent
// on this connection.
func (c *Connection) NoreplyWait(ctx context.Context) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.mut.Unlock()

	if !c.open.Load() {
		return errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
	}
	if err := c.conn.NoreplyWait(ctx); err != nil {
		return errorutil.WrapError(err)
	}
	c.noreplies.Store(0)
	return nil
}

// Server asks the server to identify itself.
func (c *Connection) Server(ctx context.Context) (ServerInfo, error) {
	if err := c.lock(ctx); err != nil {
		return ServerInfo{}, err
	}
	defer c.mut.Unlock()

	if !c.open.Load() {
		return ServerInfo{}, errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
	}
	info, err := c.conn.ServerInfo(ctx)
	return info, errorutil.WrapError(err)
}

func (c *Connection) run(ctx context.Context, term Term, opts RunOpts) (*Cursor, error) {
	if !c.IsOpen() {
		return nil, errorutil.New(errorutil.KindDriver, notOpenMessage)
	}
	globalOpts, noreply, err := opts.compile(c.config.DefaultDB)
	if err != nil {
		return nil, err
	}

	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mut.Unlock()
	if !c.open.Load() {
		return nil, errorutil.New(errorutil.KindDriver, notOpenMessage)
	}
	if !c.conn.IsAlive() {
		return nil, errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
	}

	handle, batch, err := c.conn.Start(ctx, db.Command{Term: term.Build(), GlobalOpts: globalOpts, NoReply: noreply})
	if err != nil {
		return nil, errorutil.WrapError(err)
	}
	if noreply {
		c.noreplies.Add(1)
		return nil, nil
	}
	c.log.Debugf(log.Connection, c.id, "Started query %s", term)
	return newCursor(c, c.generation.Load(), handle, batch), nil
}

// current reports whether a cursor created in generation can still talk to
// the server. Must be called with the lock held.
func (c *Connection) current(generation uint64) error {
	if !c.open.Load() || c.generation.Load() != generation {
		return errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
	}
	return nil
}

func (c *Connection) fetch(ctx context.Context, generation uint64, handle db.StreamHandle) (*db.Batch, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mut.Unlock()
	if err := c.current(generation); err != nil {
		return nil, err
	}
	batch, err := c.conn.Continue(ctx, handle)
	return batch, errorutil.WrapError(err)
}

func (c *Connection) stop(ctx context.Context, generation uint64, handle db.StreamHandle) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.mut.Unlock()
	if err := c.current(generation); err != nil {
		return err
	}
	return errorutil.WrapError(c.conn.Stop(ctx, handle))
}
