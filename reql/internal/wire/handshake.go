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
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"

	"github.com/xdg-go/scram"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/internal/racing"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

// Handshake messages are small JSON documents, anything larger is garbage.
const maxHandshakeMessage = 16 * 1024

type Auth struct {
	User     string
	Password string
}

// Connect performs the V1_0 handshake and SCRAM-SHA-256 authentication on
// an already dialed socket.
// Returns the connection ready to serve queries.
func Connect(ctx context.Context,
	serverName string,
	conn net.Conn,
	auth Auth,
	logger log.Logger,
	wireLogger log.WireLogger,
) (*Conn, error) {
	c := newConn(serverName, conn, logger, wireLogger)
	if err := c.handshake(ctx, auth, wireLogger); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.state = connReady
	c.log.Infof(log.Wire, c.logId, "Connected to %s", c.serverVersion)
	return c, nil
}

func (c *Conn) handshake(ctx context.Context, auth Auth, wireLogger log.WireLogger) error {
	user := auth.User
	if user == "" {
		user = proto.DefaultUser
	}
	client, err := scram.SHA256.NewClient(user, auth.Password, "")
	if err != nil {
		return &db.AuthError{Message: err.Error()}
	}
	conversation := client.NewConversation()
	clientFirst, err := conversation.Step("")
	if err != nil {
		return &db.AuthError{Message: err.Error()}
	}

	magic := make([]byte, 4)
	binary.LittleEndian.PutUint32(magic, proto.V1_0)
	if wireLogger != nil {
		wireLogger.LogClientMessage(c.logId, "<MAGIC> %#010X", magic)
	}
	writer := racing.NewWriter(c.conn)
	if _, err := writer.Write(ctx, magic); err != nil {
		return err
	}

	var hello proto.ServerHello
	if err := c.readHandshakeMessage(ctx, &hello, wireLogger); err != nil {
		return err
	}
	if !hello.Success {
		return handshakeFailure(hello.ErrorCode, hello.Error)
	}
	if hello.MinProtocolVersion > proto.ProtocolVersion || hello.MaxProtocolVersion < proto.ProtocolVersion {
		return &db.ProtocolError{Message: fmt.Sprintf(
			"unsupported protocol version %d, expected between %d and %d",
			proto.ProtocolVersion, hello.MinProtocolVersion, hello.MaxProtocolVersion)}
	}
	c.serverVersion = hello.ServerVersion

	first := proto.AuthFirst{
		ProtocolVersion:      proto.ProtocolVersion,
		AuthenticationMethod: proto.AuthMethod,
		Authentication:       clientFirst,
	}
	if err := c.writeHandshakeMessage(ctx, writer, first, wireLogger); err != nil {
		return err
	}
	var serverFirst proto.AuthReply
	if err := c.readHandshakeMessage(ctx, &serverFirst, wireLogger); err != nil {
		return err
	}
	if !serverFirst.Success {
		return handshakeFailure(serverFirst.ErrorCode, serverFirst.Error)
	}

	clientFinal, err := conversation.Step(serverFirst.Authentication)
	if err != nil {
		return &db.AuthError{Message: err.Error()}
	}
	if err := c.writeHandshakeMessage(ctx, writer, proto.AuthFinal{Authentication: clientFinal}, wireLogger); err != nil {
		return err
	}
	var serverFinal proto.AuthReply
	if err := c.readHandshakeMessage(ctx, &serverFinal, wireLogger); err != nil {
		return err
	}
	if !serverFinal.Success {
		return handshakeFailure(serverFinal.ErrorCode, serverFinal.Error)
	}
	if _, err := conversation.Step(serverFinal.Authentication); err != nil || !conversation.Valid() {
		return &db.AuthError{Message: "Invalid server signature"}
	}
	return nil
}

func handshakeFailure(code int, msg string) error {
	if proto.IsAuthErrorCode(code) {
		return &db.AuthError{Code: code, Message: msg}
	}
	return &db.ProtocolError{Message: fmt.Sprintf("handshake failed (%d): %s", code, msg)}
}

func (c *Conn) writeHandshakeMessage(ctx context.Context, writer racing.Writer, msg any, wireLogger log.WireLogger) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if wireLogger != nil {
		wireLogger.LogClientMessage(c.logId, "<HANDSHAKE> %s", payload)
	}
	_, err = writer.Write(ctx, append(payload, 0))
	return err
}

// Handshake messages are null terminated. They are read one byte at a time
// so that nothing past the terminator is consumed from the socket.
func (c *Conn) readHandshakeMessage(ctx context.Context, out any, wireLogger log.WireLogger) error {
	reader := racing.NewReader(c.conn)
	var msg bytes.Buffer
	b := make([]byte, 1)
	for {
		if _, err := reader.ReadFull(ctx, b); err != nil {
			return err
		}
		if b[0] == 0 {
			break
		}
		if msg.Len() >= maxHandshakeMessage {
			return &db.ProtocolError{Message: "handshake message too large"}
		}
		msg.WriteByte(b[0])
	}
	if wireLogger != nil {
		wireLogger.LogServerMessage(c.logId, "<HANDSHAKE> %s", msg.Bytes())
	}
	if err := json.Unmarshal(msg.Bytes(), out); err != nil {
		// Older servers answer with a plain text error instead of JSON.
		return &db.ProtocolError{Message: fmt.Sprintf("unexpected handshake response %q", msg.String())}
	}
	return nil
}
