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

// Package io reads and writes the on-disk routing artifacts the datastore
// stages. Every artifact starts with an 8-byte fingerprint; the payload is a
// sequence of little-endian counters and raw element arrays. A "vector" is a
// uint64 element count followed by the elements themselves.
package io

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"
)

// ErrArtifactMissing wraps the open failure for a required artifact path.
var ErrArtifactMissing = errors.New("artifact file missing")

// ErrArtifactCorrupt flags fingerprint or structural failures in an
// artifact. The wrapping error names the offending path.
var ErrArtifactCorrupt = errors.New("artifact file corrupt")

// Fingerprint handling mode for OpenReader.
const (
	VerifyFingerprint = true
	SkipFingerprint   = false
)

// FileReader is a positional reader over a single artifact file.
type FileReader struct {
	file *os.File
	path string
}

// OpenReader opens an artifact. With VerifyFingerprint the 8-byte prefix is
// read and checked; the reader is then positioned at the start of the
// payload.
func OpenReader(path string, verify bool) (*FileReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrArtifactMissing)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &FileReader{file: file, path: path}
	if verify {
		var fp Fingerprint
		if _, err := io.ReadFull(file, fp[:]); err != nil {
			file.Close()
			return nil, fmt.Errorf("%s: fingerprint: %v: %w", path, err, ErrArtifactCorrupt)
		}
		if err := fp.Verify(); err != nil {
			file.Close()
			return nil, fmt.Errorf("%s: fingerprint: %v: %w", path, err, ErrArtifactCorrupt)
		}
	}
	return r, nil
}

// Path returns the path this reader was opened on.
func (r *FileReader) Path() string {
	return r.path
}

// Size returns the number of payload bytes remaining from the current
// position to the end of the file.
func (r *FileReader) Size() (uint64, error) {
	pos, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", r.path, err)
	}
	info, err := r.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", r.path, err)
	}
	return uint64(info.Size() - pos), nil
}

// ReadInto fills buf from the current position.
func (r *FileReader) ReadInto(buf []byte) error {
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return fmt.Errorf("%s: short read: %v: %w", r.path, err, ErrArtifactCorrupt)
	}
	return nil
}

// ReadUint32 reads one little-endian uint32.
func (r *FileReader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := r.ReadInto(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadElementCount64 reads one little-endian uint64 element count.
func (r *FileReader) ReadElementCount64() (uint64, error) {
	var buf [8]byte
	if err := r.ReadInto(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Skip advances the reader past n bytes.
func (r *FileReader) Skip(n uint64) error {
	if _, err := r.file.Seek(int64(n), io.SeekCurrent); err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}
	return nil
}

// Close releases the underlying file.
func (r *FileReader) Close() error {
	return r.file.Close()
}

// ReadVectorSize reads the element count of a vector of T and skips its
// payload, leaving the reader positioned after the vector.
func ReadVectorSize[T any](r *FileReader) (uint64, error) {
	count, err := r.ReadElementCount64()
	if err != nil {
		return 0, err
	}
	var zero T
	if err := r.Skip(count * uint64(unsafe.Sizeof(zero))); err != nil {
		return 0, err
	}
	return count, nil
}

// ReadVectorInto reads a vector whose element count must equal
// len(buf)/elemSize and streams the payload into buf.
func ReadVectorInto(r *FileReader, elemSize uint64, buf []byte) error {
	count, err := r.ReadElementCount64()
	if err != nil {
		return err
	}
	if count*elemSize != uint64(len(buf)) {
		return fmt.Errorf("%s: vector holds %d bytes, expected %d: %w",
			r.path, count*elemSize, len(buf), ErrArtifactCorrupt)
	}
	return r.ReadInto(buf)
}
