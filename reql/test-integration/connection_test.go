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
	"net"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/reqlgo/reql-go-driver/reql"
	"github.com/reqlgo/reql-go-driver/reql/config"
	"github.com/reqlgo/reql-go-driver/reql/internal/testutil/fakeserver"
)

var _ = Describe("Connection", func() {

	Context("connect", func() {
		It("returns an open connection", func() {
			conn := connect()
			defer conn.Close(context.Background())

			Expect(conn.Address()).To(Equal(net.JoinHostPort(host, strconv.Itoa(port))))
			cursor, err := reql.Expr(1).Run(newContext(), conn, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cursor.Next(newContext())).To(BeEquivalentTo(1))
		})

		It("times out on a server that never answers", func() {
			silent, err := fakeserver.Start(func(s *fakeserver.Server) { s.Silent = true })
			Expect(err).NotTo(HaveOccurred())
			defer silent.Close()

			start := time.Now()
			_, err = reql.Connect(context.Background(), silent.Host(), silent.Port(), func(conf *config.Config) {
				conf.Timeout = config.Seconds(1)
			})

			Expect(err).To(BeReqlError(reql.ErrorKindTimeout, "Could not connect to "+
				net.JoinHostPort(silent.Host(), strconv.Itoa(silent.Port()))+", operation timed out."))
			Expect(time.Since(start)).To(BeNumerically(">=", 900*time.Millisecond))
			Expect(time.Since(start)).To(BeNumerically("<", 3*time.Second))
		})

		It("fails right away on a closed port", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			closedPort := listener.Addr().(*net.TCPAddr).Port
			Expect(listener.Close()).To(Succeed())

			start := time.Now()
			_, err = reql.Connect(context.Background(), "127.0.0.1", closedPort)

			Expect(err).To(BeReqlError(reql.ErrorKindDriver, ""))
			Expect(strings.HasPrefix(err.Error(), "Could not connect to 127.0.0.1:"+strconv.Itoa(closedPort)+".\n")).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		It("rejects a wrong password", func() {
			_, err := reql.Connect(context.Background(), host, port, func(conf *config.Config) {
				conf.User = "admin"
				conf.AuthKey = "definitely not the password"
			})

			Expect(err).To(BeReqlError(reql.ErrorKindAuth, "Wrong password"))
		})

		It("keeps open connections across password rotation", func() {
			requireFakeServer()
			Expect(server.SetPassword("rotating", "first")).To(Succeed())
			conn := connect(func(conf *config.Config) {
				conf.User = "rotating"
				conf.AuthKey = "first"
			})
			defer conn.Close(context.Background())

			Expect(server.SetPassword("rotating", "second")).To(Succeed())

			cursor, err := reql.Expr("still here").Run(newContext(), conn, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cursor.Next(newContext())).To(Equal("still here"))
			_, err = reql.Connect(context.Background(), host, port, func(conf *config.Config) {
				conf.User = "rotating"
				conf.AuthKey = "first"
			})
			Expect(err).To(BeReqlError(reql.ErrorKindAuth, "Wrong password"))
		})
	})

	Context("close", func() {
		It("refuses queries afterwards", func() {
			conn := connect()
			Expect(conn.Close(newContext())).To(Succeed())

			Expect(conn.IsOpen()).To(BeFalse())
			_, err := reql.Expr(1).Run(newContext(), conn, nil)
			Expect(err).To(BeReqlError(reql.ErrorKindDriver, "First argument to `run` must be an open connection."))
		})

		It("destroys cursors of the closed connection", func() {
			conn := connect()
			cursor, err := reql.Expr([]int{1, 2, 3}).Run(newContext(), conn, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(conn.Close(newContext())).To(Succeed())

			_, err = cursor.Next(newContext())
			Expect(err).To(BeReqlError(reql.ErrorKindDriver, "Connection is closed."))
			_, err = cursor.ToArray(newContext())
			Expect(err).To(BeReqlError(reql.ErrorKindDriver, "Connection is closed."))
		})

		It("is safe to call twice and reconnect restores the connection", func() {
			conn := connect()
			defer conn.Close(context.Background())

			Expect(conn.Close(newContext())).To(Succeed())
			Expect(conn.Close(newContext())).To(Succeed())
			Expect(conn.Reconnect(newContext())).To(Succeed())

			Expect(conn.IsOpen()).To(BeTrue())
			cursor, err := reql.Expr(2).Run(newContext(), conn, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cursor.Next(newContext())).To(BeEquivalentTo(2))
		})
	})

	Context("reconnect", func() {
		It("works on an open connection and invalidates its streams", func() {
			conn := connect()
			defer conn.Close(context.Background())
			cursor, err := reql.Range().Run(newContext(), conn, reql.RunOpts{"maxBatchRows": 5})
			Expect(err).NotTo(HaveOccurred())
			_, err = cursor.Next(newContext())
			Expect(err).NotTo(HaveOccurred())

			Expect(conn.Reconnect(newContext(), reql.WithoutNoreplyWait())).To(Succeed())

			_, err = cursor.Next(newContext())
			Expect(err).To(BeReqlError(reql.ErrorKindDriver, "Connection is closed."))
			cursor, err = reql.Expr(3).Run(newContext(), conn, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cursor.Next(newContext())).To(BeEquivalentTo(3))
		})
	})

	Context("server", func() {
		It("identifies the server", func() {
			conn := connect()
			defer conn.Close(context.Background())

			info, err := conn.Server(newContext())

			Expect(err).NotTo(HaveOccurred())
			Expect(info.Id).NotTo(BeEmpty())
			Expect(info.Name).NotTo(BeEmpty())
		})
	})
})
