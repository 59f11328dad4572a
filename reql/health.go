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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
	"github.com/reqlgo/reql-go-driver/reql/internal/racing"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

type HealthState int

const (
	Healthy HealthState = iota
	Probing
	Reconnecting
	// Dead means the last recovery ran out of attempts. The next Check starts
	// over.
	Dead
)

func (s HealthState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Probing:
		return "probing"
	case Reconnecting:
		return "reconnecting"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("HealthState(%d)", int(s))
}

// ProbeFunc checks that conn answers queries.
type ProbeFunc func(ctx context.Context, conn *Connection) error

// PingProbe runs a trivial query and reads its result.
func PingProbe(ctx context.Context, conn *Connection) error {
	cursor, err := Expr(1).Run(ctx, conn, nil)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	_, err = cursor.Next(ctx)
	return err
}

// HealthChecker keeps a connection usable: it probes the connection and
// reconnects with throttled attempts when the probe fails for a connection
// related reason.
type HealthChecker struct {
	// Probe defaults to PingProbe.
	Probe ProbeFunc
	// MaxAttempts bounds reconnect attempts per Check, default 3.
	MaxAttempts int
	// InitialDelay is the base of the backoff between attempts, default 100ms.
	InitialDelay time.Duration
	// Sleep waits between attempts, default racing.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   log.Logger

	conn  *Connection
	mut   sync.Mutex
	state HealthState
}

func NewHealthChecker(conn *Connection, configurers ...func(*HealthChecker)) *HealthChecker {
	h := &HealthChecker{
		Probe:        PingProbe,
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Sleep:        racing.Sleep,
		Log:          conn.log,
		conn:         conn,
	}
	for _, configurer := range configurers {
		configurer(h)
	}
	return h
}

func (h *HealthChecker) State() HealthState {
	h.mut.Lock()
	defer h.mut.Unlock()
	return h.state
}

func (h *HealthChecker) setState(s HealthState) {
	if h.state != s {
		h.Log.Debugf(log.Health, h.conn.id, "%s -> %s", h.state, s)
	}
	h.state = s
}

// Check probes the connection and reconnects when needed. Errors that show
// the server did answer, such as runtime errors, leave the connection healthy
// and are returned as is.
func (h *HealthChecker) Check(ctx context.Context) error {
	h.mut.Lock()
	defer h.mut.Unlock()

	h.setState(Probing)
	err := h.probe(ctx)
	if err == nil || !errorutil.KindOf(err).Retryable() {
		h.setState(Healthy)
		return err
	}
	if ctx.Err() != nil {
		h.setState(Dead)
		return errorutil.WrapError(ctx.Err())
	}
	h.Log.Warnf(log.Health, h.conn.id, "Probe failed, reconnecting: %s", err)

	h.setState(Reconnecting)
	throttle := throttler(h.InitialDelay)
	for attempt := 1; attempt <= h.MaxAttempts; attempt++ {
		err = h.conn.Reconnect(ctx, WithoutNoreplyWait())
		if err == nil {
			err = h.probe(ctx)
		}
		if err == nil {
			h.Log.Infof(log.Health, h.conn.id, "Recovered after %d attempt(s)", attempt)
			h.setState(Healthy)
			return nil
		}
		if errorutil.KindOf(err) == errorutil.KindAuth || ctx.Err() != nil {
			break
		}
		if attempt < h.MaxAttempts {
			h.Log.Debugf(log.Health, h.conn.id, "Attempt %d failed: %s [retry after %s]", attempt, err, throttle.delay())
			if err := h.Sleep(ctx, throttle.delay()); err != nil {
				break
			}
			throttle = throttle.next()
		}
	}
	h.setState(Dead)
	h.Log.Errorf(log.Health, h.conn.id, "Giving up on %s: %s", h.conn.address, err)
	return err
}

func (h *HealthChecker) probe(ctx context.Context) error {
	if !h.conn.IsOpen() {
		return errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
	}
	return errorutil.WrapError(h.Probe(ctx, h.conn))
}

// Do makes sure the connection is healthy and runs fn with it.
func (h *HealthChecker) Do(ctx context.Context, fn func(*Connection) error) error {
	if err := h.Check(ctx); err != nil {
		var tagged *Error
		if !errors.As(err, &tagged) || tagged.Kind.Retryable() || tagged.Kind == ErrorKindAuth {
			return err
		}
	}
	return fn(h.conn)
}
