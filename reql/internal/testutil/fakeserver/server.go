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

// Package fakeserver is an in-process server speaking the V1_0 handshake and
// the JSON query protocol. It evaluates the handful of terms the driver tests
// need.
package fakeserver

import (
	"bufio"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xdg-go/scram"
	"go.uber.org/zap"

	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

const scramIterations = 4096

// Server listens on a random loopback port until closed.
type Server struct {
	// Version is reported in the server hello.
	Version string
	// BatchRows is the batch size used when a query sets no max_batch_rows.
	BatchRows int
	// Silent servers accept connections but never say anything.
	Silent bool
	// TokenOffset is added to the token of every response. Non zero values
	// make the server violate the protocol.
	TokenOffset uint64
	// JSTimeout bounds javascript terms without an explicit timeout.
	JSTimeout time.Duration
	Log       *zap.Logger

	info     serverInfo
	listener net.Listener

	mut    sync.Mutex
	users  map[string]scram.StoredCredentials
	tables map[string][]any
	dbs    []string
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
}

type serverInfo struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Proxy bool   `json:"proxy"`
}

// Start listens on 127.0.0.1 with a random port. The admin user starts
// without a password.
func Start(configurers ...func(*Server)) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		Version:   "2.4.4",
		BatchRows: 100,
		JSTimeout: 5 * time.Second,
		Log:       zap.NewNop(),
		info: serverInfo{
			Id:   gofakeit.UUID(),
			Name: gofakeit.Username(),
		},
		listener: listener,
		users:    map[string]scram.StoredCredentials{},
		tables:   map[string][]any{},
		dbs:      []string{"rethinkdb", "test"},
		conns:    map[net.Conn]struct{}{},
		done:     make(chan struct{}),
	}
	for _, configurer := range configurers {
		configurer(s)
	}
	if err := s.SetPassword(proto.DefaultUser, ""); err != nil {
		listener.Close()
		return nil, err
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Host and Port of the listening socket.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// SetPassword creates or updates a user. Existing connections stay
// authenticated.
func (s *Server) SetPassword(user, password string) error {
	client, err := scram.SHA256.NewClient(user, password, "")
	if err != nil {
		return err
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	creds := client.GetStoredCredentials(scram.KeyFactors{Salt: string(salt), Iters: scramIterations})
	s.mut.Lock()
	s.users[user] = creds
	s.mut.Unlock()
	return nil
}

// AddTable registers a table of n generated person documents and returns
// them in table order.
func (s *Server) AddTable(name string, n int) []any {
	docs := make([]any, n)
	for i := range docs {
		docs[i] = map[string]any{
			"id":    gofakeit.UUID(),
			"name":  gofakeit.Name(),
			"email": gofakeit.Email(),
			"age":   float64(gofakeit.Number(18, 99)),
			"index": float64(i),
		}
	}
	s.mut.Lock()
	s.tables[name] = docs
	s.mut.Unlock()
	return docs
}

func (s *Server) table(name string) ([]any, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	docs, ok := s.tables[name]
	return docs, ok
}

// Connections is the number of currently open client sockets.
func (s *Server) Connections() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.conns)
}

// DropConnections closes every client socket, as a crashing server would.
func (s *Server) DropConnections() {
	s.mut.Lock()
	defer s.mut.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close stops listening, drops all clients and waits for their handlers.
func (s *Server) Close() error {
	s.mut.Lock()
	if s.closed {
		s.mut.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mut.Unlock()

	err := s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.Log.Warn("accept failed", zap.Error(err))
			}
			return
		}
		s.mut.Lock()
		if s.closed {
			s.mut.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mut.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			s.handle(conn)
		}()
	}
}

func (s *Server) forget(conn net.Conn) {
	s.mut.Lock()
	delete(s.conns, conn)
	s.mut.Unlock()
	conn.Close()
}

func (s *Server) handle(conn net.Conn) {
	log := s.Log.With(zap.String("remote", conn.RemoteAddr().String()))
	if s.Silent {
		// Hold the socket until the client or the server gives up. Unread
		// bytes at close would reset the connection instead of timing out.
		_, _ = io.Copy(io.Discard, conn)
		return
	}
	reader := bufio.NewReader(conn)
	if err := s.handshake(reader, conn); err != nil {
		log.Debug("handshake failed", zap.Error(err))
		return
	}
	log.Debug("client authenticated")
	sess := newSession(s, reader, conn, log)
	if err := sess.run(); err != nil {
		log.Debug("session ended", zap.Error(err))
	}
}
