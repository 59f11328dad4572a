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

package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConnectError converts a failure while dialing or handshaking with address
// into the messages callers rely on.
func ConnectError(address string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		if tagged.Kind == KindAuth || tagged.Kind == KindTimeout {
			return tagged
		}
	}
	if isTimeout(err) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("Could not connect to %s, operation timed out.", address),
			Cause:   err,
		}
	}
	wrapped := WrapError(err)
	if errors.As(wrapped, &tagged) && tagged.Kind == KindAuth {
		return tagged
	}
	return &Error{
		Kind:    KindDriver,
		Message: fmt.Sprintf("Could not connect to %s.\n%s", address, err.Error()),
		Cause:   err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
