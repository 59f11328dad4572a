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

package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := ToZap(zap.New(core))

	logger.Infof(Connection, "abc@localhost:28015", "Connected to %s", "2.4.4")
	logger.Error(Wire, "abc", errors.New("broken pipe"))
	logger.Debugf(Cursor, "abc", "fetched %d rows", 3)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "Connected to 2.4.4", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, Connection, fields["component"])
	assert.Equal(t, "abc@localhost:28015", fields["id"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "broken pipe", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "fetched 3 rows", entries[2].Message)
}

func TestToZapRespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := ToZap(zap.New(core))

	logger.Debugf(Health, "h", "probe")
	logger.Infof(Health, "h", "recovered")
	logger.Warnf(Health, "h", "probe failed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "probe failed", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"-1":      zapcore.DebugLevel,
		"2":       zapcore.ErrorLevel,
	}
	for in, expected := range cases {
		level, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, level, in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestDefaultZapConfig(t *testing.T) {
	conf := DefaultZapConfig()

	assert.Nil(t, conf.Sampling)
	assert.Equal(t, "severity", conf.EncoderConfig.LevelKey)
	_, err := conf.Build()
	require.NoError(t, err)
}
