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

// Package testutil contains shared test functionality
package testutil

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/reqlgo/reql-go-driver/reql/internal/errorutil"
)

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error but was %T: %s", err, err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected an error but it wasn't")
	}
}

// AssertErrorKind fails unless err is a tagged driver error of the given kind.
func AssertErrorKind(t *testing.T, err error, kind errorutil.Kind) {
	t.Helper()
	AssertError(t, err)
	var tagged *errorutil.Error
	if !errors.As(err, &tagged) {
		t.Fatalf("Expected %s but was %T: %s", kind, err, err)
	}
	if tagged.Kind != kind {
		t.Errorf("Expected %s but was %s: %s", kind, tagged.Kind, tagged.Message)
	}
}

// AssertErrorMessage fails unless err is a tagged error of the given kind
// carrying exactly msg.
func AssertErrorMessage(t *testing.T, err error, kind errorutil.Kind, msg string) {
	t.Helper()
	AssertErrorKind(t, err, kind)
	if err.Error() != msg {
		t.Errorf("Expected message '%s' but was '%s'", msg, err.Error())
	}
}

func AssertNil(t *testing.T, x any) {
	t.Helper()
	if x != nil && !reflect.ValueOf(x).IsNil() {
		t.Errorf("Expected nil but was %T: %v", x, x)
	}
}

func AssertNotNil(t *testing.T, x any) {
	t.Helper()
	if x == nil || reflect.ValueOf(x).IsNil() {
		t.Fatal("Expected not nil")
	}
}

func AssertTrue(t *testing.T, b bool) {
	t.Helper()
	if !b {
		t.Error("Expected true but was false")
	}
}

func AssertFalse(t *testing.T, b bool) {
	t.Helper()
	if b {
		t.Error("Expected false but was true")
	}
}

func AssertLen(t *testing.T, x any, el int) {
	t.Helper()
	al := reflect.ValueOf(x).Len()
	if al != el {
		t.Errorf("Expected length %d but was %d", el, al)
	}
}

func AssertIntEqual(t *testing.T, ai, ei int) {
	t.Helper()
	if ai != ei {
		t.Errorf("Expected %d but was %d", ei, ai)
	}
}

func AssertStringEqual(t *testing.T, as, es string) {
	t.Helper()
	if as != es {
		t.Errorf("'%s' != '%s'", as, es)
	}
}

func AssertStringNotEmpty(t *testing.T, s string) {
	t.Helper()
	if s == "" {
		t.Errorf("Expected non empty string")
	}
}

func AssertStringContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Errorf("Expected %s to contain %s", s, sub)
	}
}

func AssertDeepEquals(t *testing.T, values ...any) {
	t.Helper()
	for i, v := range values[1:] {
		if !reflect.DeepEqual(values[0], v) {
			t.Errorf("Value at index %d (%#v) differs from 0 (%#v)", i+1, v, values[0])
		}
	}
}

// AssertSameSlice fails unless both slices share the same backing array,
// starting at the same element.
func AssertSameSlice(t *testing.T, x, y []any) {
	t.Helper()
	if len(x) != len(y) {
		t.Fatalf("Lengths of slices differ %d vs %d", len(x), len(y))
	}
	if len(x) > 0 && &x[0] != &y[0] {
		t.Error("Expected the same backing array")
	}
}

// AssertWriteSucceeds writes data and fails on short or failed writes.
func AssertWriteSucceeds(t *testing.T, w interface{ Write([]byte) (int, error) }, data []byte) {
	t.Helper()
	n, err := w.Write(data)
	AssertNoError(t, err)
	AssertIntEqual(t, n, len(data))
}
