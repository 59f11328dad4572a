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

// Tool used for verifying a server and the driver under concurrent load.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reqlgo/reql-go-driver/reql"
	"github.com/reqlgo/reql-go-driver/reql/config"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

const envLogLevel = "REQL_LOG_LEVEL"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not load .env: %s\n", err)
		os.Exit(2)
	}

	defaultHost, defaultPort, err := config.Address(reql.DefaultHost, reql.DefaultPort)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	host := flag.String("host", defaultHost, "server host, overrides "+config.EnvHost)
	port := flag.Int("port", defaultPort, "server port, overrides "+config.EnvPort)
	connections := flag.Int("connections", 4, "number of concurrent connections")
	rows := flag.Int64("rows", 1000, "rows streamed per connection")
	duration := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	fromEnv, err := config.FromEnv()
	if err != nil {
		logger.Fatal("invalid environment", zap.Error(err))
	}

	runId := uuid.NewString()
	logger = logger.With(zap.String("run", runId))
	logger.Info("starting check",
		zap.String("host", *host), zap.Int("port", *port),
		zap.Int("connections", *connections), zap.Int64("rows", *rows))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *connections; i++ {
		i := i
		group.Go(func() error {
			return check(ctx, logger.With(zap.Int("worker", i)), *host, *port, *rows,
				fromEnv, func(conf *config.Config) {
					conf.Log = log.ToZap(logger)
				})
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("check failed", zap.Error(err), zap.String("kind", reql.KindOf(err).String()))
		os.Exit(1)
	}
	logger.Info("check succeeded", zap.Duration("elapsed", time.Since(start)))
}

func newLogger() (*zap.Logger, error) {
	logConf := log.DefaultZapConfig()
	if raw := os.Getenv(envLogLevel); raw != "" {
		level, err := log.ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envLogLevel, err)
		}
		logConf.Level = zap.NewAtomicLevelAt(level)
	}
	return logConf.Build()
}

func check(ctx context.Context, logger *zap.Logger, host string, port int, rows int64, configurers ...func(*config.Config)) (err error) {
	conn, err := reql.Connect(ctx, host, port, configurers...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	info, err := conn.Server(ctx)
	if err != nil {
		return err
	}
	logger.Debug("connected", zap.String("server", info.Name), zap.String("address", conn.Address()))

	if err := reql.PingProbe(ctx, conn); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	cursor, err := reql.Range(rows).Run(ctx, conn, reql.RunOpts{"max_batch_rows": 100})
	if err != nil {
		return err
	}
	var count int64
	err = cursor.Each(ctx, func(row any) error {
		n, ok := row.(float64)
		if !ok || int64(n) != count {
			return fmt.Errorf("row %d: unexpected value %v", count, row)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count != rows {
		return fmt.Errorf("streamed %d rows, expected %d", count, rows)
	}

	if err := reql.Expr(map[string]any{"worker": info.Id}).Exec(ctx, conn, nil); err != nil {
		return err
	}
	logger.Info("worker done", zap.Int64("rows", count), zap.Int("noreply", conn.OutstandingNoreply()))
	return nil
}
