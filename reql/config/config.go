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

// Package config contains the configuration of a connection.
package config

import (
	"crypto/tls"
	"math"
	"time"

	"github.com/reqlgo/reql-go-driver/reql/log"
)

// A Config contains options that can be used to customize a connection.
//
// Config is filled in by configuration functions passed to reql.Connect:
//
//	conn, err := reql.Connect(ctx, "localhost", 28015, func(conf *config.Config) {
//		conf.Timeout = config.Seconds(1.5)
//		conf.AuthKey = "secret"
//	})
type Config struct {
	// Timeout bounds the establishment of a connection: TCP connect, protocol
	// handshake and authentication together. Fractional seconds are allowed,
	// see Seconds.
	//
	// default: 20 * time.Second
	Timeout time.Duration
	// User authenticated during the handshake.
	//
	// default: "admin"
	User string
	// AuthKey is the password of User. Leave empty for password-less users.
	AuthKey string
	// DefaultDB is sent as the db global optional argument of queries that do
	// not set one themselves.
	DefaultDB string
	// TLSConfig enables TLS when not nil.
	TLSConfig *tls.Config
	// KeepAlive toggles TCP keep-alive on the socket.
	//
	// default: true
	KeepAlive bool
	// Log receives the driver log messages.
	//
	// default: log.ToVoid()
	Log log.Logger
	// WireLogger traces every frame when set.
	WireLogger log.WireLogger
}

// Seconds converts a possibly fractional amount of seconds into a duration.
func Seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	if s >= math.MaxInt64/float64(time.Second) {
		return math.MaxInt64
	}
	return time.Duration(s * float64(time.Second))
}
