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

type sequence interface {
	// next returns up to n rows and whether more remain.
	next(n int) ([]any, bool)
}

type rangeSequence struct {
	cur, end int64
	endless  bool
}

func (r *rangeSequence) next(n int) ([]any, bool) {
	rows := make([]any, 0, n)
	for len(rows) < n && (r.endless || r.cur < r.end) {
		rows = append(rows, r.cur)
		r.cur++
	}
	return rows, r.endless || r.cur < r.end
}

type sliceSequence struct {
	rows []any
	pos  int
}

func (s *sliceSequence) next(n int) ([]any, bool) {
	end := min(s.pos+n, len(s.rows))
	rows := s.rows[s.pos:end]
	s.pos = end
	return rows, s.pos < len(s.rows)
}
