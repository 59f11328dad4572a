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

var _ = Describe("Health checker", func() {
	var conn *reql.Connection

	BeforeEach(func() {
		conn = connect()
	})

	AfterEach(func() {
		Expect(conn.Close(context.Background(), reql.WithoutNoreplyWait())).To(Succeed())
	})

	It("keeps a working connection healthy", func() {
		checker := reql.NewHealthChecker(conn)

		Expect(checker.Check(newContext())).To(Succeed())

		Expect(checker.State()).To(Equal(reql.Healthy))
	})

	It("reconnects after the server dropped the socket", func() {
		requireFakeServer()
		checker := reql.NewHealthChecker(conn, func(h *reql.HealthChecker) {
			h.InitialDelay = 10 * time.Millisecond
		})
		server.DropConnections()

		Expect(checker.Check(newContext())).To(Succeed())

		Expect(checker.State()).To(Equal(reql.Healthy))
		Expect(conn.IsOpen()).To(BeTrue())
	})

	It("runs work on a recovered connection", func() {
		requireFakeServer()
		checker := reql.NewHealthChecker(conn)
		server.DropConnections()
		var answer any

		err := checker.Do(newContext(), func(conn *reql.Connection) error {
			cursor, err := reql.Expr(42).Run(newContext(), conn, nil)
			if err != nil {
				return err
			}
			answer, err = cursor.Next(newContext())
			return err
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(BeEquivalentTo(42))
	})

	It("reopens a closed connection", func() {
		checker := reql.NewHealthChecker(conn)
		Expect(conn.Close(newContext())).To(Succeed())

		Expect(checker.Check(newContext())).To(Succeed())

		Expect(conn.IsOpen()).To(BeTrue())
	})

	It("reports query errors without reconnecting", func() {
		checker := reql.NewHealthChecker(conn, func(h *reql.HealthChecker) {
			h.Probe = func(ctx context.Context, conn *reql.Connection) error {
				_, err := reql.ErrorTerm("probe failure").Run(ctx, conn, nil)
				return err
			}
		})

		err := checker.Check(newContext())

		Expect(err).To(BeReqlError(reql.ErrorKindRuntime, "probe failure"))
		Expect(checker.State()).To(Equal(reql.Healthy))
	})
})
