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

// Package log defines the logging interface used throughout the driver and
// the implementations shipped with it.
package log

// Logger is used throughout the driver for logging purposes.
// Driver client can implement this interface and provide an implementation
// upon connection creation.
//
// All logging functions takes a name and id that corresponds to the name of
// the logging component and it's identity, for example "connection" and
// "b7c3...@localhost:28015" to indicate who is logging and what instance.
type Logger interface {
	Error(name string, id string, err error)
	Errorf(name string, id string, msg string, args ...any)
	Warnf(name string, id string, msg string, args ...any)
	Infof(name string, id string, msg string, args ...any)
	Debugf(name string, id string, msg string, args ...any)
}

// Component names
const (
	Connection = "connection"
	Connector  = "connector"
	Cursor     = "cursor"
	Health     = "health"
	Wire       = "wire"
)

// Level is the verbosity of the shipped logger implementations.
type Level int

const (
	OFF Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)
