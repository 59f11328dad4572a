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
	"fmt"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"

	"github.com/reqlgo/reql-go-driver/reql"
)

var _ = Describe("Concurrent use", func() {
	var conn *reql.Connection

	BeforeEach(func() {
		conn = connect()
	})

	AfterEach(func() {
		Expect(conn.Close(context.Background())).To(Succeed())
	})

	It("interleaves cursors on one connection", func() {
		const workers = 8
		ctx := newContext()
		results := make([][]any, workers)
		group, gctx := errgroup.WithContext(ctx)

		for i := 0; i < workers; i++ {
			i := i
			group.Go(func() error {
				cursor, err := reql.Range(int64(50+i)).Run(gctx, conn, reql.RunOpts{"max_batch_rows": 5})
				if err != nil {
					return fmt.Errorf("worker %d: %w", i, err)
				}
				rows, err := cursor.ToArray(gctx)
				if err != nil {
					return fmt.Errorf("worker %d: %w", i, err)
				}
				results[i] = rows
				return nil
			})
		}

		Expect(group.Wait()).To(Succeed())
		for i, rows := range results {
			Expect(rows).To(Equal(ints(50 + i)))
		}
	})

	It("mixes noreply and regular queries", func() {
		ctx := newContext()
		group, gctx := errgroup.WithContext(ctx)

		for i := 0; i < 10; i++ {
			i := i
			group.Go(func() error {
				if i%2 == 0 {
					return reql.Expr(i).Exec(gctx, conn, nil)
				}
				cursor, err := reql.Expr(i).Run(gctx, conn, nil)
				if err != nil {
					return err
				}
				_, err = cursor.Next(gctx)
				return err
			})
		}

		Expect(group.Wait()).To(Succeed())
		Expect(conn.NoreplyWait(ctx)).To(Succeed())
		Expect(conn.OutstandingNoreply()).To(BeZero())
	})
})
