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

package racing

import (
	"context"
	"io"
)

type Writer interface {
	Write(ctx context.Context, bytes []byte) (int, error)
}

func NewWriter(writer io.Writer) Writer {
	return &racingWriter{writer: writer}
}

type racingWriter struct {
	writer io.Writer
}

func (w *racingWriter) Write(ctx context.Context, bytes []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ctx.Done() == nil {
		return w.writer.Write(bytes)
	}
	resultChan := make(chan *ioResult, 1)
	go func() {
		n, err := w.writer.Write(bytes)
		// Buffered, the send never blocks even when the race is lost.
		resultChan <- &ioResult{n: n, err: err}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case result := <-resultChan:
		return result.n, result.err
	}
}
