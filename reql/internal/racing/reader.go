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

// Package racing races blocking socket operations against a context.
package racing

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

type Reader interface {
	Read(ctx context.Context, bytes []byte) (int, error)
	ReadFull(ctx context.Context, bytes []byte) (int, error)
}

// deadliner is implemented by net.Conn. When available the context is mapped
// onto a socket deadline instead of a detached goroutine, so that no read is
// left pending on the socket after the context is done.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

func NewReader(reader io.Reader) Reader {
	r := &racingReader{reader: reader}
	if d, ok := reader.(deadliner); ok {
		r.deadliner = d
	}
	return r
}

type racingReader struct {
	reader    io.Reader
	deadliner deadliner
}

type ioResult struct {
	n   int
	err error
}

func (r *racingReader) Read(ctx context.Context, bytes []byte) (int, error) {
	return r.race(ctx, bytes, read)
}

func (r *racingReader) ReadFull(ctx context.Context, bytes []byte) (int, error) {
	return r.race(ctx, bytes, readFull)
}

func (r *racingReader) race(ctx context.Context, bytes []byte, readFn func(io.Reader, []byte) (int, error)) (int, error) {
	deadline, hasDeadline := ctx.Deadline()
	err := ctx.Err()
	switch {
	case !hasDeadline && err == nil && ctx.Done() == nil:
		return readFn(r.reader, bytes)
	case err != nil:
		return 0, err
	case hasDeadline && deadline.Before(time.Now()):
		return 0, context.DeadlineExceeded
	}
	if r.deadliner != nil {
		return r.raceDeadline(ctx, bytes, readFn)
	}
	// One channel per read, a lost race must not leak its result into the next one.
	in := make(chan *ioResult, 1)
	go func() {
		n, err := readFn(r.reader, bytes)
		in <- &ioResult{n: n, err: err}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case result := <-in:
		return result.n, result.err
	}
}

func (r *racingReader) raceDeadline(ctx context.Context, bytes []byte, readFn func(io.Reader, []byte) (int, error)) (int, error) {
	deadline, _ := ctx.Deadline()
	_ = r.deadliner.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = r.deadliner.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		_ = r.deadliner.SetReadDeadline(time.Time{})
	}()
	n, err := readFn(r.reader, bytes)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, ctxErr
		}
		return n, context.DeadlineExceeded
	}
	return n, err
}

func read(reader io.Reader, bytes []byte) (int, error) {
	return reader.Read(bytes)
}

func readFull(reader io.Reader, bytes []byte) (int, error) {
	return io.ReadFull(reader, bytes)
}
