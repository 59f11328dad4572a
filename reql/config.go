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

package reql

import (
	"time"

	"github.com/reqlgo/reql-go-driver/reql/config"
	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
	"github.com/reqlgo/reql-go-driver/reql/internal/proto"
	"github.com/reqlgo/reql-go-driver/reql/log"
)

const (
	DefaultHost    = "localhost"
	DefaultPort    = proto.DefaultPort
	DefaultTimeout = 20 * time.Second
)

func defaultConfig() *config.Config {
	return &config.Config{
		Timeout:   DefaultTimeout,
		User:      proto.DefaultUser,
		KeepAlive: true,
		Log:       log.ToVoid(),
	}
}

func validateAndNormaliseConfig(conf *config.Config) error {
	if conf.Timeout < 0 {
		return errorutil.New(errorutil.KindDriver, "Connect timeout cannot be negative")
	}
	if conf.User == "" {
		conf.User = proto.DefaultUser
	}
	if conf.Log == nil {
		conf.Log = log.ToVoid()
	}
	return nil
}

type closeConfig struct {
	noreplyWait bool
}

// CloseOption customizes Close and Reconnect.
type CloseOption func(*closeConfig)

// WithNoreplyWait selects whether pending noreply queries are awaited before
// the socket is closed. Waiting is the default.
func WithNoreplyWait(wait bool) CloseOption {
	return func(c *closeConfig) {
		c.noreplyWait = wait
	}
}

// WithoutNoreplyWait closes the socket right away.
func WithoutNoreplyWait() CloseOption {
	return WithNoreplyWait(false)
}

func newCloseConfig(opts []CloseOption) closeConfig {
	conf := closeConfig{noreplyWait: true}
	for _, opt := range opts {
		opt(&conf)
	}
	return conf
}
