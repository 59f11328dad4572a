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
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ToZap adapts a zap logger. The component name and instance id are emitted
// as structured fields.
func ToZap(logger *zap.Logger) Logger {
	return &zapLogger{sugar: logger.Sugar()}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Error(name, id string, err error) {
	l.sugar.Errorw(err.Error(), "component", name, "id", id, zap.Error(err))
}

func (l *zapLogger) Errorf(name, id string, msg string, args ...any) {
	l.sugar.Errorw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l *zapLogger) Warnf(name, id string, msg string, args ...any) {
	l.sugar.Warnw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l *zapLogger) Infof(name, id string, msg string, args ...any) {
	l.sugar.Infow(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l *zapLogger) Debugf(name, id string, msg string, args ...any) {
	l.sugar.Debugw(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

// DefaultZapConfig is a production config with ISO8601 timestamps and no
// sampling.
func DefaultZapConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return logConf
}

func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("unknown log level %q", l)
		}
		return zapcore.Level(level), nil
	}
}
