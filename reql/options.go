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
	"sort"
	"strings"
	"unicode"

	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
)

// RunOpts are the global optional arguments of a query. Keys may be given in
// camelCase or snake_case, they are sent in snake_case.
type RunOpts map[string]any

var globalOptArgs = map[string]struct{}{
	"db":                           {},
	"read_mode":                    {},
	"durability":                   {},
	"profile":                      {},
	"noreply":                      {},
	"time_format":                  {},
	"group_format":                 {},
	"binary_format":                {},
	"array_limit":                  {},
	"min_batch_rows":               {},
	"max_batch_rows":               {},
	"max_batch_bytes":              {},
	"max_batch_seconds":            {},
	"first_batch_scaledown_factor": {},
}

// canonicalKey turns nonValidOption and non-valid-option into non_valid_option.
func canonicalKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	prevUnderscore := true
	for _, r := range key {
		switch {
		case r == '-' || r == '_':
			if !prevUnderscore {
				b.WriteByte('_')
			}
			prevUnderscore = true
		case unicode.IsUpper(r):
			if !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}
	return b.String()
}

// compile validates the options and converts them into the wire
// representation. Returns whether noreply was requested.
func (o RunOpts) compile(defaultDB string) (map[string]any, bool, error) {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var noreply bool
	wireOpts := make(map[string]any, len(o)+1)
	for _, k := range keys {
		key := canonicalKey(k)
		if _, ok := globalOptArgs[key]; !ok {
			return nil, false, errorutil.New(errorutil.KindCompile, "Unrecognized global optional argument `%s`", key)
		}
		v := o[k]
		switch key {
		case "noreply":
			b, ok := v.(bool)
			if !ok {
				return nil, false, errorutil.New(errorutil.KindCompile, "Expected type BOOL but found %T for `noreply`", v)
			}
			noreply = b
			continue
		case "db":
			switch name := v.(type) {
			case string:
				wireOpts[key] = DB(name).Build()
			case Term:
				wireOpts[key] = name.Build()
			default:
				return nil, false, errorutil.New(errorutil.KindCompile, "Expected type STRING but found %T for `db`", v)
			}
			continue
		}
		wireOpts[key] = Expr(v).Build()
	}
	if _, hasDB := wireOpts["db"]; !hasDB && defaultDB != "" {
		wireOpts["db"] = DB(defaultDB).Build()
	}
	return wireOpts, noreply, nil
}
