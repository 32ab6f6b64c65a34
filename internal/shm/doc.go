/*
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
 */

// Package shm provides the interprocess primitives the datastore publishes
// through: named System V shared memory regions for the routing data itself,
// a small memory-mapped monitor carrying the current region tag and publish
// timestamp, a futex-based mutex and condition variable operating on that
// mapping, and an advisory file lock that serializes writers.
//
// Regions follow the System V last-detach rule: Remove only marks a segment
// for destruction, and the kernel reclaims it once the final attached process
// detaches. WaitForDetach exposes that hand-off to the publisher so a retired
// region is never destroyed under a live reader.
package shm
