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

import "errors"

// ErrFutexTimeout is returned by futexWaitTimeout when the wait times out.
var ErrFutexTimeout = errors.New("futex timeout")

// ErrUnsupported is returned on platforms without futex and SysV shared
// memory support.
var ErrUnsupported = errors.New("shared memory operations not supported on this platform")

// ErrRegionExists is returned by Create when a region with the same key is
// already present.
var ErrRegionExists = errors.New("shared memory region already exists")

// ErrRegionNotFound is returned by Open and Remove when no region with the
// given key is present.
var ErrRegionNotFound = errors.New("shared memory region does not exist")
