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

package test_integration

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/reqlgo/reql-go-driver/reql"
)

var _ = Describe("Cursor", func() {
	var conn *reql.Connection

	BeforeEach(func() {
		conn = connect()
	})

	AfterEach(func() {
		Expect(conn.Close(context.Background())).To(Succeed())
	})

	It("iterates a range with Next", func() {
		ctx := newContext()
		cursor, err := reql.Range(100).Run(ctx, conn, reql.RunOpts{"max_batch_rows": 7})
		Expect(err).NotTo(HaveOccurred())
		Expect(cursor.Kind()).To(Equal(reql.CursorStream))

		rows, exhausted := drain(ctx, cursor)

		Expect(rows).To(Equal(ints(100)))
		Expect(exhausted).To(Equal(1))
	})

	It("iterates a range with Each", func() {
		ctx := newContext()
		cursor, err := reql.Range(100).Run(ctx, conn, reql.RunOpts{"maxBatchRows": 9})
		Expect(err).NotTo(HaveOccurred())
		var rows []any
		done := 0

		err = cursor.Each(ctx, func(row any) error {
			Expect(done).To(BeZero())
			rows = append(rows, row)
			return nil
		})
		done++

		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(Equal(1))
		Expect(rows).To(Equal(ints(100)))
		_, err = cursor.Next(ctx)
		Expect(err).To(MatchError(reql.ErrCursorExhausted))
	})

	It("shares consumption between Next, Each and ToArray", func() {
		ctx := newContext()
		cursor, err := reql.Range(30).Run(ctx, conn, reql.RunOpts{"max_batch_rows": 4})
		Expect(err).NotTo(HaveOccurred())

		Expect(cursor.Next(ctx)).To(BeEquivalentTo(0))
		var fromEach []any
		stop := errors.New("stop")
		err = cursor.Each(ctx, func(row any) error {
			fromEach = append(fromEach, row)
			if len(fromEach) == 2 {
				return stop
			}
			return nil
		})
		Expect(err).To(MatchError(stop))
		Expect(fromEach).To(Equal([]any{1.0, 2.0}))

		// Each stopped the stream, the rest of the cursor is gone.
		rest, err := cursor.ToArray(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(BeEmpty())
	})

	It("returns the same buffer from ToArray on a buffered result", func() {
		ctx := newContext()
		cursor, err := reql.Expr([]int{1, 2, 3}).Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cursor.Kind()).To(Equal(reql.CursorArray))

		first, err := cursor.ToArray(ctx)
		Expect(err).NotTo(HaveOccurred())
		second, err := cursor.ToArray(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal([]any{1.0, 2.0, 3.0}))
		Expect(&second[0]).To(BeIdenticalTo(&first[0]))
	})

	It("collects a streamed result with ToArray", func() {
		ctx := newContext()
		cursor, err := reql.Range(5, 95).Run(ctx, conn, reql.RunOpts{"max_batch_rows": 10})
		Expect(err).NotTo(HaveOccurred())

		rows, err := cursor.ToArray(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(90))
		Expect(rows[0]).To(BeEquivalentTo(5))
		Expect(rows[89]).To(BeEquivalentTo(94))
	})

	It("streams table documents in order", func() {
		requireFakeServer()
		ctx := newContext()
		cursor, err := reql.Raw([]byte(`[15,["people"]]`)).Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())

		rows, err := cursor.ToArray(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal(people))
	})

	It("stops an endless stream on close", func() {
		ctx := newContext()
		cursor, err := reql.Range().Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cursor.Next(ctx)).To(BeEquivalentTo(0))

		Expect(cursor.Close(ctx)).To(Succeed())

		_, err = cursor.Next(ctx)
		Expect(err).To(MatchError(reql.ErrCursorExhausted))
		// The connection is still usable.
		cursor, err = reql.Expr("ok").Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cursor.Next(ctx)).To(Equal("ok"))
	})

	It("returns single values as atoms", func() {
		ctx := newContext()
		cursor, err := reql.Expr(map[string]any{"a": 1}).Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(cursor.Kind()).To(Equal(reql.CursorAtom))
		Expect(cursor.Next(ctx)).To(Equal(map[string]any{"a": 1.0}))
		_, err = cursor.Next(ctx)
		Expect(err).To(MatchError(reql.ErrCursorExhausted))
	})

	It("lists databases", func() {
		ctx := newContext()
		cursor, err := reql.DBList().Run(ctx, conn, nil)
		Expect(err).NotTo(HaveOccurred())

		dbs, err := cursor.ToArray(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(dbs).To(ContainElement("rethinkdb"))
	})
})
