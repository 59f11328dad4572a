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
	"io"
	"os"
	"time"
)

// ToConsole returns a logger writing to stdout, errors go to stderr.
func ToConsole(level Level) *Console {
	return &Console{
		Errors: level >= ERROR,
		Warns:  level >= WARNING,
		Infos:  level >= INFO,
		Debugs: level >= DEBUG,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// 2020-05-03 12:39:45.001  ERROR  [connector localhost:28015] Failed to connect
// 2020-05-03 12:39:45.001   INFO  [connection 3f2a...@localhost:28015] Connected
// 2020-05-03 12:39:45.001   WARN  [cursor 7] Custom message
type Console struct {
	Errors bool
	Infos  bool
	Warns  bool
	Debugs bool
	out    io.Writer
	errOut io.Writer
}

const timeFormat = "2006-01-02 15:04:05.000"

func (l *Console) Error(name, id string, err error) {
	if !l.Errors {
		return
	}
	l.write(l.errOut, " ERROR", name, id, err.Error())
}

func (l *Console) Errorf(name, id string, msg string, args ...any) {
	if !l.Errors {
		return
	}
	l.write(l.errOut, " ERROR", name, id, fmt.Sprintf(msg, args...))
}

func (l *Console) Warnf(name, id string, msg string, args ...any) {
	if !l.Warns {
		return
	}
	l.write(l.out, "  WARN", name, id, fmt.Sprintf(msg, args...))
}

func (l *Console) Infof(name, id string, msg string, args ...any) {
	if !l.Infos {
		return
	}
	l.write(l.out, "  INFO", name, id, fmt.Sprintf(msg, args...))
}

func (l *Console) Debugf(name, id string, msg string, args ...any) {
	if !l.Debugs {
		return
	}
	l.write(l.out, " DEBUG", name, id, fmt.Sprintf(msg, args...))
}

func (l *Console) write(w io.Writer, level, name, id, msg string) {
	if w == nil {
		w = os.Stdout
	}
	_, _ = fmt.Fprintf(w, "%s %s  [%s %s] %s\n", time.Now().Format(timeFormat), level, name, id, msg)
}

// ToVoid returns a logger that discards everything.
func ToVoid() Logger {
	return void{}
}

type void struct{}

func (void) Error(string, string, error)           {}
func (void) Errorf(string, string, string, ...any) {}
func (void) Warnf(string, string, string, ...any)  {}
func (void) Infof(string, string, string, ...any)  {}
func (void) Debugf(string, string, string, ...any) {}
