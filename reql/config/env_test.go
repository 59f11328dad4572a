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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	t.Run("falls back when unset", func(t *testing.T) {
		t.Setenv(EnvHost, "")
		t.Setenv(EnvPort, "")

		host, port, err := Address("localhost", 28015)

		require.NoError(t, err)
		assert.Equal(t, "localhost", host)
		assert.Equal(t, 28015, port)
	})

	t.Run("reads host and port", func(t *testing.T) {
		t.Setenv(EnvHost, "db.internal")
		t.Setenv(EnvPort, " 29015 ")

		host, port, err := Address("localhost", 28015)

		require.NoError(t, err)
		assert.Equal(t, "db.internal", host)
		assert.Equal(t, 29015, port)
	})

	t.Run("rejects invalid ports", func(t *testing.T) {
		for _, raw := range []string{"abc", "0", "70000", "-1"} {
			t.Setenv(EnvPort, raw)
			_, _, err := Address("localhost", 28015)
			assert.Error(t, err, raw)
		}
	})
}

func TestFromEnv(t *testing.T) {
	t.Run("applies the variables that are set", func(t *testing.T) {
		t.Setenv(EnvTimeout, "0.5")
		t.Setenv(EnvUser, "bob")
		t.Setenv(EnvAuthKey, "secret")
		t.Setenv(EnvDB, "blog")

		configurer, err := FromEnv()
		require.NoError(t, err)
		conf := Config{Timeout: time.Minute, User: "admin"}
		configurer(&conf)

		assert.Equal(t, 500*time.Millisecond, conf.Timeout)
		assert.Equal(t, "bob", conf.User)
		assert.Equal(t, "secret", conf.AuthKey)
		assert.Equal(t, "blog", conf.DefaultDB)
	})

	t.Run("keeps defaults for blank timeout", func(t *testing.T) {
		t.Setenv(EnvTimeout, " ")

		configurer, err := FromEnv()
		require.NoError(t, err)
		conf := Config{Timeout: time.Minute}
		configurer(&conf)

		assert.Equal(t, time.Minute, conf.Timeout)
	})

	t.Run("rejects invalid timeout", func(t *testing.T) {
		t.Setenv(EnvTimeout, "soon")

		_, err := FromEnv()
		assert.ErrorContains(t, err, EnvTimeout)
	})
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Seconds(1.5))
	assert.Equal(t, time.Duration(0), Seconds(-3))
	assert.Equal(t, time.Duration(1<<63-1), Seconds(1e12))
}
