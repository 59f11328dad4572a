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
	"context"
	"time"

	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

// StreamHandle identifies a started query on one connection.
type StreamHandle any

// Command is one START query.
type Command struct {
	// Term is the JSON serializable query term.
	Term any
	// GlobalOpts are already validated and canonicalized global optargs.
	GlobalOpts map[string]any
	NoReply    bool
}

// Batch is the payload of one successful response.
type Batch struct {
	Rows []any
	// Atom is true when the response was a single datum (SUCCESS_ATOM).
	Atom bool
	// More is true when the server holds more rows (SUCCESS_PARTIAL).
	More    bool
	Notes   []proto.ResponseNote
	Profile any
}

type ServerInfo struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	// Proxy is true when the connected server is a proxy node.
	Proxy bool `json:"proxy"`
}

// Connection is an abstract single socket session to the server.
// Implementations are not safe for concurrent use, callers serialize access.
type Connection interface {
	// Start sends a START query. With NoReply set no response is awaited and
	// both the handle and the batch are nil.
	Start(ctx context.Context, cmd Command) (StreamHandle, *Batch, error)
	// Continue requests the next batch of a partial stream.
	Continue(ctx context.Context, stream StreamHandle) (*Batch, error)
	// Stop ends a partial stream on the server.
	Stop(ctx context.Context, stream StreamHandle) error
	// NoreplyWait blocks until the server acknowledged every noreply query
	// previously sent on this connection.
	NoreplyWait(ctx context.Context) error
	ServerInfo(ctx context.Context) (ServerInfo, error)
	// ServerName is the address this connection was dialed to.
	ServerName() string
	// ServerVersion as reported by the server during handshake.
	ServerVersion() string
	// IsAlive is passive, it never talks to the server.
	IsAlive() bool
	Birthdate() time.Time
	// Close releases the socket. The instance should not be used after being closed.
	Close(ctx context.Context)
}
