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

// Package connector is responsible for connecting to a database server.
package connector

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/wire"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

type Connector struct {
	SocketKeepAlive bool
	TLSConfig       *tls.Config
	Auth            wire.Auth
	Log             log.Logger
	WireLogger      log.WireLogger
	Network         string
}

// Connect dials address and performs the handshake. The context bounds both.
func (c Connector) Connect(ctx context.Context, address string) (db.Connection, error) {
	dialer := net.Dialer{}
	if !c.SocketKeepAlive {
		dialer.KeepAlive = -1 * time.Second // Turns keep-alive off
	}
	network := c.Network
	if network == "" {
		network = "tcp"
	}

	c.Log.Debugf(log.Connector, address, "Dialing")
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	if c.TLSConfig == nil {
		return c.handshake(ctx, address, conn)
	}

	config := c.TLSConfig.Clone()
	if config.ServerName == "" {
		serverName, _, err := net.SplitHostPort(address)
		if err != nil {
			conn.Close()
			return nil, err
		}
		config.ServerName = serverName
	}
	tlsconn := tls.Client(conn, config)
	if err := tlsconn.HandshakeContext(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			// Give a bit nicer error message
			err = errors.New("remote end closed the connection, check that TLS is enabled on the server")
		}
		conn.Close()
		return nil, &TlsError{inner: err}
	}
	return c.handshake(ctx, address, tlsconn)
}

func (c Connector) handshake(ctx context.Context, address string, conn net.Conn) (db.Connection, error) {
	wireConn, err := wire.Connect(ctx, address, conn, c.Auth, c.Log, c.WireLogger)
	if err != nil {
		return nil, err
	}
	return wireConn, nil
}

// TlsError encapsulates all errors related to TLS connection creation
// This is needed since the tls package does not provide a common error type
// à la net.Error.
type TlsError struct {
	inner error
}

func (e *TlsError) Error() string {
	return e.inner.Error()
}

func (e *TlsError) Unwrap() error {
	return e.inner
}
