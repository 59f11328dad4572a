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

package testutil

import (
	"context"
	"time"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
)

// Start is a scripted answer to one Start call.
type Start struct {
	Handle db.StreamHandle
	Batch  *db.Batch
	Err    error
}

// ConnFake is a db.Connection answering from scripted responses and
// recording what it was asked.
type ConnFake struct {
	Name    string
	Version string
	Alive   bool
	Birth   time.Time
	Info    db.ServerInfo
	Err     error

	Starts    []Start
	Continues []*db.Batch
	// ContinueErr is returned once Continues is exhausted.
	ContinueErr    error
	StopErr        error
	NoreplyWaitErr error

	Commands        []db.Command
	ContinueCalls   int
	StopCalls       int
	NoreplyWaitCall int
	Closed          bool
}

func (c *ConnFake) Start(ctx context.Context, cmd db.Command) (db.StreamHandle, *db.Batch, error) {
	c.Commands = append(c.Commands, cmd)
	if c.Err != nil {
		return nil, nil, c.Err
	}
	if cmd.NoReply {
		return nil, nil, nil
	}
	if len(c.Starts) == 0 {
		return c, &db.Batch{}, nil
	}
	next := c.Starts[0]
	c.Starts = c.Starts[1:]
	return next.Handle, next.Batch, next.Err
}

func (c *ConnFake) Continue(ctx context.Context, handle db.StreamHandle) (*db.Batch, error) {
	c.ContinueCalls++
	if len(c.Continues) == 0 {
		if c.ContinueErr != nil {
			return nil, c.ContinueErr
		}
		return &db.Batch{}, nil
	}
	next := c.Continues[0]
	c.Continues = c.Continues[1:]
	return next, nil
}

func (c *ConnFake) Stop(ctx context.Context, handle db.StreamHandle) error {
	c.StopCalls++
	return c.StopErr
}

func (c *ConnFake) NoreplyWait(ctx context.Context) error {
	c.NoreplyWaitCall++
	return c.NoreplyWaitErr
}

func (c *ConnFake) ServerInfo(ctx context.Context) (db.ServerInfo, error) {
	return c.Info, c.Err
}

func (c *ConnFake) ServerName() string {
	return c.Name
}

func (c *ConnFake) ServerVersion() string {
	if c.Version == "" {
		return "serverVersion"
	}
	return c.Version
}

func (c *ConnFake) IsAlive() bool {
	return c.Alive
}

func (c *ConnFake) Birthdate() time.Time {
	return c.Birth
}

func (c *ConnFake) Close(ctx context.Context) {
	c.Closed = true
	c.Alive = false
}
