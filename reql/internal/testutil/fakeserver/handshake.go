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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xdg-go/scram"

	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
)

const (
	errorCodeWrongPassword = 12
	errorCodeUnknownUser   = 17
	errorCodeProtocol      = 1
)

func (s *Server) handshake(r *bufio.Reader, w io.Writer) error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(magic) != proto.V1_0 {
		_, _ = w.Write([]byte("ERROR: Received an unsupported protocol version.\x00"))
		return fmt.Errorf("unsupported magic %#x", magic)
	}
	hello := proto.ServerHello{
		Success:            true,
		MinProtocolVersion: proto.ProtocolVersion,
		MaxProtocolVersion: proto.ProtocolVersion,
		ServerVersion:      s.Version,
	}
	if err := writeMessage(w, hello); err != nil {
		return err
	}

	var first proto.AuthFirst
	if err := readMessage(r, &first); err != nil {
		return err
	}
	if first.ProtocolVersion != proto.ProtocolVersion || first.AuthenticationMethod != proto.AuthMethod {
		return reject(w, errorCodeProtocol, "Unsupported protocol version or authentication method")
	}

	unknownUser := false
	server, err := scram.SHA256.NewServer(func(user string) (scram.StoredCredentials, error) {
		s.mut.Lock()
		defer s.mut.Unlock()
		creds, ok := s.users[user]
		if !ok {
			unknownUser = true
			return scram.StoredCredentials{}, fmt.Errorf("unknown user %q", user)
		}
		return creds, nil
	})
	if err != nil {
		return err
	}
	conversation := server.NewConversation()
	serverFirst, err := conversation.Step(first.Authentication)
	if err != nil {
		if unknownUser {
			return reject(w, errorCodeUnknownUser, "Unknown user")
		}
		return reject(w, errorCodeProtocol, err.Error())
	}
	if err := writeMessage(w, proto.AuthReply{Success: true, Authentication: serverFirst}); err != nil {
		return err
	}

	var final proto.AuthFinal
	if err := readMessage(r, &final); err != nil {
		return err
	}
	serverFinal, err := conversation.Step(final.Authentication)
	if err != nil || !conversation.Valid() {
		return reject(w, errorCodeWrongPassword, "Wrong password")
	}
	return writeMessage(w, proto.AuthReply{Success: true, Authentication: serverFinal})
}

func reject(w io.Writer, code int, msg string) error {
	if err := writeMessage(w, proto.AuthReply{Error: msg, ErrorCode: code}); err != nil {
		return err
	}
	return fmt.Errorf("rejected (%d): %s", code, msg)
}

func writeMessage(w io.Writer, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, 0))
	return err
}

func readMessage(r *bufio.Reader, out any) error {
	msg, err := r.ReadBytes(0)
	if err != nil {
		return err
	}
	return json.Unmarshal(msg[:len(msg)-1], out)
}
