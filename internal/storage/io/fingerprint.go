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

import "fmt"

// Artifact format version. Readers accept files whose major and minor match;
// the patch level may differ.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
)

// FingerprintSize is the fixed byte length of the fingerprint prefix every
// routing artifact starts with.
const FingerprintSize = 8

// Fingerprint identifies a file as a routing artifact of a compatible
// version: four magic bytes, three version bytes, one reserved byte.
type Fingerprint [FingerprintSize]byte

// NewFingerprint returns the fingerprint written by the current toolchain.
func NewFingerprint() Fingerprint {
	return Fingerprint{'O', 'S', 'R', 'N', VersionMajor, VersionMinor, VersionPatch, 0}
}

// Verify checks the magic bytes and the major/minor version.
func (fp Fingerprint) Verify() error {
	if fp[0] != 'O' || fp[1] != 'S' || fp[2] != 'R' || fp[3] != 'N' {
		return fmt.Errorf("bad magic %q", fp[:4])
	}
	if fp[4] != VersionMajor || fp[5] != VersionMinor {
		return fmt.Errorf("incompatible version %d.%d.%d, expected %d.%d.x",
			fp[4], fp[5], fp[6], VersionMajor, VersionMinor)
	}
	return nil
}
