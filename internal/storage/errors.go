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

package storage

import (
	"errors"
	"fmt"
)

// ErrLayoutOverflow is returned when an artifact declares more metrics than
// the region layout reserves slots for.
var ErrLayoutOverflow = errors.New("only 8 metrics are supported at the same time")

// ErrConfigInvalid is returned when the dataset configuration references
// missing required artifacts.
var ErrConfigInvalid = errors.New("invalid storage configuration")

// CanaryError reports a corrupted canary marker around a block.
type CanaryError struct {
	Block BlockID
	End   bool
}

func (e *CanaryError) Error() string {
	side := "start"
	if e.End {
		side = "end"
	}
	return fmt.Sprintf("%s %s canary of block corrupted", e.Block, side)
}

// ChecksumMismatchError reports a graph artifact whose connectivity
// checksum disagrees with the edges artifact it was built from.
type ChecksumMismatchError struct {
	GraphPath     string
	GraphChecksum uint32
	EdgesPath     string
	EdgesChecksum uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("connectivity checksum %d in %s does not equal to checksum %d in %s",
		e.GraphChecksum, e.GraphPath, e.EdgesChecksum, e.EdgesPath)
}
