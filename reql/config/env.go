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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables understood by FromEnv and Address.
const (
	EnvHost    = "REQL_HOST"
	EnvPort    = "REQL_PORT"
	EnvTimeout = "REQL_TIMEOUT"
	EnvUser    = "REQL_USER"
	EnvAuthKey = "REQL_AUTH_KEY"
	EnvDB      = "REQL_DB"
)

// Address returns host and port from the environment, or the given
// fallbacks.
func Address(fallbackHost string, fallbackPort int) (string, int, error) {
	host := getEnv(EnvHost, fallbackHost)
	raw, ok := os.LookupEnv(EnvPort)
	if !ok || strings.TrimSpace(raw) == "" {
		return host, fallbackPort, nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid %s %q", EnvPort, raw)
	}
	return host, port, nil
}

// FromEnv returns a configuration function applying the REQL_* variables
// present in the environment. Invalid values are reported when the function
// is built, not when it is applied.
func FromEnv() (func(*Config), error) {
	var timeoutSet bool
	var timeout float64
	if raw, ok := os.LookupEnv(EnvTimeout); ok && strings.TrimSpace(raw) != "" {
		t, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || t < 0 {
			return nil, fmt.Errorf("invalid %s %q, expected seconds", EnvTimeout, raw)
		}
		timeout, timeoutSet = t, true
	}
	user, userSet := os.LookupEnv(EnvUser)
	authKey, authKeySet := os.LookupEnv(EnvAuthKey)
	db, dbSet := os.LookupEnv(EnvDB)

	return func(conf *Config) {
		if timeoutSet {
			conf.Timeout = Seconds(timeout)
		}
		if userSet {
			conf.User = user
		}
		if authKeySet {
			conf.AuthKey = authKey
		}
		if dbSet {
			conf.DefaultDB = db
		}
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
