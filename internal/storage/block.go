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

import "unsafe"

// Block describes one named array inside the published region: the byte size
// of an element, its required alignment (a power of two), and how many
// elements the block holds.
type Block struct {
	EntrySize  uint64
	EntryAlign uint64
	NumEntries uint64
}

// ByteSize returns the total payload size of the block body.
func (b Block) ByteSize() uint64 {
	return b.EntrySize * b.NumEntries
}

// Valid reports whether the descriptor carries a usable alignment.
func (b Block) Valid() bool {
	return b.EntryAlign > 0
}

// BlockFor builds the descriptor for n elements of type T, deriving size and
// alignment from the in-memory layout of T.
func BlockFor[T any](n uint64) Block {
	var zero T
	return Block{
		EntrySize:  uint64(unsafe.Sizeof(zero)),
		EntryAlign: uint64(unsafe.Alignof(zero)),
		NumEntries: n,
	}
}
