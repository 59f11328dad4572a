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
	"sync"

	"github.com/reqlgo/reql-go-driver/reql/internal/db"
	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

// CursorKind tells how the server answered the query.
type CursorKind int

const (
	// CursorAtom holds a single value.
	CursorAtom CursorKind = iota
	// CursorArray holds an array value returned as one atom.
	CursorArray
	// CursorStream is a sequence, possibly fetched in batches.
	CursorStream
)

func (k CursorKind) String() string {
	switch k {
	case CursorAtom:
		return "atom"
	case CursorArray:
		return "array"
	case CursorStream:
		return "stream"
	}
	return "unknown"
}

// Cursor iterates over the result of a query. Next, Each and ToArray consume
// from the same position. A cursor dies with the socket it was started on:
// once its connection is closed or reconnected every read fails.
type Cursor struct {
	conn       *Connection
	generation uint64
	handle     db.StreamHandle
	kind       CursorKind
	notes      []proto.ResponseNote
	profile    any

	mut  sync.Mutex
	rows []any
	pos  int
	more bool
	// local is true when the whole result arrived with the first response.
	local bool
	// materialized is what ToArray returned for a local result.
	materialized []any
	err          error
}

func newCursor(conn *Connection, generation uint64, handle db.StreamHandle, batch *db.Batch) *Cursor {
	if batch == nil {
		batch = &db.Batch{}
	}
	c := &Cursor{
		conn:       conn,
		generation: generation,
		handle:     handle,
		notes:      batch.Notes,
		profile:    batch.Profile,
		kind:       CursorStream,
		rows:       batch.Rows,
		more:       batch.More,
		local:      !batch.More,
	}
	if batch.Atom {
		c.kind = CursorAtom
		if len(batch.Rows) == 1 {
			if arr, ok := batch.Rows[0].([]any); ok {
				c.kind = CursorArray
				c.rows = arr
			}
		}
	}
	return c
}

func (c *Cursor) Kind() CursorKind {
	return c.kind
}

// IsFeed is true for change feeds, they never exhaust on their own.
func (c *Cursor) IsFeed() bool {
	for _, n := range c.notes {
		switch n {
		case proto.NoteSequenceFeed, proto.NoteAtomFeed, proto.NoteOrderByLimitFeed, proto.NoteUnionedFeed:
			return true
		}
	}
	return false
}

// Profile is the query profile, nil unless requested with the profile option.
func (c *Cursor) Profile() any {
	return c.profile
}

// Next returns the next row or ErrCursorExhausted after the last one.
func (c *Cursor) Next(ctx context.Context) (any, error) {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.next(ctx)
}

func (c *Cursor) next(ctx context.Context) (any, error) {
	// A cursor is bound to the socket it was started on.
	if err := c.checkConnection(); err != nil {
		return nil, err
	}
	for {
		if c.pos < len(c.rows) {
			row := c.rows[c.pos]
			if !c.local {
				c.rows[c.pos] = nil
			}
			c.pos++
			return row, nil
		}
		if c.err != nil {
			return nil, c.err
		}
		if !c.more {
			return nil, ErrCursorExhausted
		}
		if err := c.fetch(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Cursor) checkConnection() error {
	if c.conn.IsOpen() && c.conn.generation.Load() == c.generation {
		return nil
	}
	return errorutil.New(errorutil.KindDriver, errorutil.ClosedConnectionMessage)
}

func (c *Cursor) fetch(ctx context.Context) error {
	batch, err := c.conn.fetch(ctx, c.generation, c.handle)
	if err != nil {
		if errorutil.KindOf(err) != errorutil.KindTimeout {
			// The stream is gone, make the failure sticky.
			c.err = err
			c.more = false
		}
		return err
	}
	c.rows = batch.Rows
	c.pos = 0
	c.more = batch.More
	c.conn.log.Debugf(log.Cursor, c.conn.id, "Fetched %d rows, more: %t", len(batch.Rows), batch.More)
	return nil
}

// Each calls onRow for every remaining row in arrival order. It returns nil
// once the cursor is exhausted. If onRow fails, iteration stops, the server
// stream is stopped and the error returned.
func (c *Cursor) Each(ctx context.Context, onRow func(row any) error) error {
	c.mut.Lock()
	defer c.mut.Unlock()
	for {
		row, err := c.next(ctx)
		if errors.Is(err, ErrCursorExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := onRow(row); err != nil {
			return errorutil.CombineErrors(err, c.close(ctx))
		}
	}
}

// ToArray returns all remaining rows. For a result that arrived in one
// response, the returned slice is the cursor's own buffer and repeated calls
// return the same slice.
func (c *Cursor) ToArray(ctx context.Context) ([]any, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if err := c.checkConnection(); err != nil {
		return nil, err
	}
	if c.local {
		if c.materialized == nil {
			c.materialized = c.rows[c.pos:]
			c.pos = len(c.rows)
		}
		return c.materialized, nil
	}

	all := make([]any, 0, len(c.rows)-c.pos)
	for {
		row, err := c.next(ctx)
		if errors.Is(err, ErrCursorExhausted) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		all = append(all, row)
	}
}

// Close releases the cursor and stops the server stream if it is still
// producing rows.
func (c *Cursor) Close(ctx context.Context) error {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.close(ctx)
}

func (c *Cursor) close(ctx context.Context) error {
	more := c.more
	c.rows = nil
	c.pos = 0
	c.more = false
	c.local = true
	if !more {
		return nil
	}
	if err := c.conn.stop(ctx, c.generation, c.handle); err != nil {
		c.conn.log.Debugf(log.Cursor, c.conn.id, "Stop after close failed: %s", err)
		return err
	}
	return nil
}
