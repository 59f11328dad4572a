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
	"os"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"

	"github.com/reqlgo/reql-go-driver/reql"
	"github.com/reqlgo/reql-go-driver/reql/config"
	"github.com/reqlgo/reql-go-driver/reql/internal/testutil/fakeserver"
)

var (
	host string
	port int
	// server is nil when the suite runs against a real server.
	server *fakeserver.Server
	// people are the fixture documents of the fake server's people table.
	people []any
)

var _ = BeforeSuite(func() {
	if os.Getenv(config.EnvHost) != "" {
		var err error
		host, port, err = config.Address(reql.DefaultHost, reql.DefaultPort)
		Expect(err).NotTo(HaveOccurred())
		return
	}
	var err error
	server, err = fakeserver.Start(func(s *fakeserver.Server) {
		s.BatchRows = 40
	})
	Expect(err).NotTo(HaveOccurred())
	people = server.AddTable("people", 250)
	host, port = server.Host(), server.Port()
})

var _ = AfterSuite(func() {
	if server != nil {
		Expect(server.Close()).To(Succeed())
	}
})

func requireFakeServer() {
	if server == nil {
		Skip("requires the in-process server")
	}
}

var cancels []context.CancelFunc

var _ = AfterEach(func() {
	for _, cancel := range cancels {
		cancel()
	}
	cancels = nil
})

func newContext() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cancels = append(cancels, cancel)
	return ctx
}

func connect(configurers ...func(*config.Config)) *reql.Connection {
	fromEnv, err := config.FromEnv()
	Expect(err).NotTo(HaveOccurred())
	conn, err := reql.Connect(context.Background(), host, port, append([]func(*config.Config){fromEnv}, configurers...)...)
	Expect(err).NotTo(HaveOccurred())
	Expect(conn.IsOpen()).To(BeTrue())
	return conn
}

// BeReqlError matches a driver error of the given kind, and message when not
// empty.
func BeReqlError(kind reql.ErrorKind, message string) types.GomegaMatcher {
	matchers := []types.GomegaMatcher{
		HaveOccurred(),
		WithTransform(reql.KindOf, Equal(kind)),
	}
	if message != "" {
		matchers = append(matchers, WithTransform(func(err error) string { return err.Error() }, Equal(message)))
	}
	return SatisfyAll(matchers...)
}

func drain(ctx context.Context, cursor *reql.Cursor) ([]any, int) {
	var rows []any
	exhausted := 0
	for {
		row, err := cursor.Next(ctx)
		if err != nil {
			Expect(err).To(MatchError(reql.ErrCursorExhausted))
			exhausted++
			// A second call must report exhaustion again without fetching.
			_, err = cursor.Next(ctx)
			Expect(err).To(MatchError(reql.ErrCursorExhausted))
			return rows, exhausted
		}
		rows = append(rows, row)
	}
}

func ints(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
