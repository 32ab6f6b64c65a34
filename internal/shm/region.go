/*
 *
 * Copyright 2025 the osrm-backend authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shm

import "time"

// RegionID identifies one of the two alternating data regions. RegionNone
// means no region has ever been published; publishing alternates between
// Region1 and Region2, starting at Region1.
//
// The numeric values are part of the handshake contract with readers and
// must not be reordered.
type RegionID uint32

const (
	RegionNone RegionID = iota
	Region1
	Region2
)

// String returns the diagnostic name of the region.
func (id RegionID) String() string {
	switch id {
	case Region1:
		return "REGION_1"
	case Region2:
		return "REGION_2"
	case RegionNone:
		return "REGION_NONE"
	default:
		return "INVALID_REGION"
	}
}

// detachPollInterval bounds how often WaitForDetach samples the attach
// counter. Polling keeps the wait off-CPU between samples.
const detachPollInterval = 50 * time.Millisecond

// DefaultKeyspace is the well-known IPC key range shared between the
// datastore and all reader processes on a host.
var DefaultKeyspace = Keyspace{Base: 0x4F530000}

// Keyspace derives the System V IPC keys for the data regions. All processes
// that want to exchange a region must agree on the same base key. Tests use
// private bases so suites can run concurrently.
type Keyspace struct {
	Base int
}

func (k Keyspace) key(id RegionID) int {
	return k.Base + int(id)
}
