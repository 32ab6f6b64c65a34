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

package io

import (
	"encoding/binary"
	"fmt"
	"os"
)

// FileWriter produces artifact files in the container format FileReader
// consumes. The toolchain that generates routing artifacts uses it, as do
// the test fixtures.
type FileWriter struct {
	file *os.File
	path string
}

// CreateWriter creates (truncating) an artifact file and writes the
// fingerprint prefix.
func CreateWriter(path string) (*FileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	fp := NewFingerprint()
	if _, err := file.Write(fp[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return &FileWriter{file: file, path: path}, nil
}

// Write appends raw payload bytes.
func (w *FileWriter) Write(buf []byte) error {
	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

// WriteUint32 appends one little-endian uint32.
func (w *FileWriter) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.Write(buf[:])
}

// WriteElementCount64 appends one little-endian uint64 element count.
func (w *FileWriter) WriteElementCount64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return w.Write(buf[:])
}

// WriteVector appends a vector: the element count followed by the payload.
// payload must hold count*elemSize bytes.
func (w *FileWriter) WriteVector(count uint64, payload []byte) error {
	if err := w.WriteElementCount64(count); err != nil {
		return err
	}
	return w.Write(payload)
}

// Close flushes and releases the underlying file.
func (w *FileWriter) Close() error {
	return w.file.Close()
}
