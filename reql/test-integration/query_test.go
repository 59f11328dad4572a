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
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/reqlgo/reql-go-driver/reql"
)

var _ = Describe("Queries", func() {
	var conn *reql.Connection

	BeforeEach(func() {
		conn = connect()
	})

	AfterEach(func() {
		Expect(conn.Close(context.Background(), reql.WithoutNoreplyWait())).To(Succeed())
	})

	Context("options", func() {
		It("rejects unrecognized options by name", func() {
			_, err := reql.Expr(1).Run(newContext(), conn, reql.RunOpts{"nonValidOption": true})

			Expect(err).To(BeReqlError(reql.ErrorKindCompile, "Unrecognized global optional argument `non_valid_option`"))
		})

		It("sends the database option", func() {
			_, err := reql.Expr(1).Run(newContext(), conn, reql.RunOpts{"db": "does_not_exist"})

			Expect(err).To(BeReqlError(reql.ErrorKindRuntime, "Database `does_not_exist` does not exist."))
		})

		It("reports a callback that is not a function", func() {
			err := reql.Expr(1).RunWithCallback(newContext(), conn, nil, nil)

			Expect(err).To(BeReqlError(reql.ErrorKindDriver,
				"If provided, the callback must be a function. Please use `run(connection[, options][, callback])"))
		})

		It("delivers results to a callback", func() {
			results := make(chan any, 1)

			err := reql.Expr("async").RunWithCallback(newContext(), conn, nil, func(cursor *reql.Cursor, err error) {
				defer GinkgoRecover()
				Expect(err).NotTo(HaveOccurred())
				row, err := cursor.Next(context.Background())
				Expect(err).NotTo(HaveOccurred())
				results <- row
			})

			Expect(err).NotTo(HaveOccurred())
			Eventually(results).Should(Receive(Equal("async")))
		})
	})

	Context("errors", func() {
		It("tags runtime errors", func() {
			_, err := reql.ErrorTerm("custom failure").Run(newContext(), conn, nil)

			Expect(err).To(BeReqlError(reql.ErrorKindRuntime, "custom failure"))
			Expect(reql.IsRetryable(err)).To(BeFalse())
		})

		It("tags compile errors", func() {
			_, err := reql.Raw([]byte(`[99999,[]]`)).Run(newContext(), conn, nil)

			Expect(err).To(BeReqlError(reql.ErrorKindCompile, ""))
		})

		It("reports javascript timeouts as runtime errors", func() {
			start := time.Now()
			_, err := reql.JS("while(true){}", 0.2).Run(newContext(), conn, nil)

			Expect(err).To(BeReqlError(reql.ErrorKindRuntime, ""))
			Expect(time.Since(start)).To(BeNumerically(">=", 200*time.Millisecond))
		})

		It("times out queries with the context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			_, err := reql.JS("while(true){}", 5).Run(ctx, conn, nil)

			Expect(err).To(BeReqlError(reql.ErrorKindTimeout, ""))
			// The socket is gone, later calls say so.
			_, err = reql.Expr(1).Run(context.Background(), conn, nil)
			Expect(err).To(BeReqlError(reql.ErrorKindDriver, "Connection is closed."))
			Expect(conn.Close(newContext())).To(Succeed())
		})
	})

	Context("noreply", func() {
		It("close waits for outstanding noreply queries", func() {
			Expect(reql.JS("while(true){}", 0.5).Exec(newContext(), conn, nil)).To(Succeed())
			Expect(conn.OutstandingNoreply()).To(Equal(1))

			start := time.Now()
			Expect(conn.Close(newContext())).To(Succeed())

			Expect(time.Since(start)).To(BeNumerically(">=", 500*time.Millisecond))
			Expect(conn.OutstandingNoreply()).To(Equal(0))
		})

		It("close without noreply wait returns right away", func() {
			Expect(reql.JS("while(true){}", 2).Exec(newContext(), conn, nil)).To(Succeed())

			start := time.Now()
			Expect(conn.Close(newContext(), reql.WithoutNoreplyWait())).To(Succeed())

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		It("noreply wait keeps the connection open", func() {
			Expect(reql.Expr(1).Exec(newContext(), conn, nil)).To(Succeed())
			Expect(reql.Expr(2).Exec(newContext(), conn, reql.RunOpts{"durability": "soft"})).To(Succeed())
			Expect(conn.OutstandingNoreply()).To(Equal(2))

			Expect(conn.NoreplyWait(newContext())).To(Succeed())

			Expect(conn.OutstandingNoreply()).To(Equal(0))
			Expect(conn.IsOpen()).To(BeTrue())
		})
	})
})
