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
	"math/rand"
	"time"
)

const maxThrottle = 30 * time.Second

// throttler is the delay before the next reconnect attempt. Every step doubles
// it and adds up to 20% jitter either way.
type throttler time.Duration

func (t throttler) next() throttler {
	delay := time.Duration(t)
	const jitter = 0.2
	doubled := float64(delay) * 2
	varied := doubled + doubled*jitter*(2*rand.Float64()-1)
	if varied > float64(maxThrottle) {
		varied = float64(maxThrottle) * (1 - jitter*rand.Float64())
	}
	return throttler(time.Duration(varied))
}

func (t throttler) delay() time.Duration {
	return time.Duration(t)
}
