//go:build !linux

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

// Region is not supported on this platform.
type Region struct {
	id RegionID
}

func (k Keyspace) Create(id RegionID, size uint64) (*Region, error) { return nil, ErrUnsupported }

func (k Keyspace) Open(id RegionID) (*Region, error) { return nil, ErrUnsupported }

func (k Keyspace) Exists(id RegionID) bool { return false }

func (k Keyspace) Remove(id RegionID) error { return ErrUnsupported }

func (r *Region) ID() RegionID { return r.id }

func (r *Region) Data() []byte { return nil }

func (r *Region) Size() uint64 { return 0 }

func (r *Region) AttachCount() (uint64, error) { return 0, ErrUnsupported }

func (r *Region) WaitForDetach() error { return ErrUnsupported }

func (r *Region) Detach() error { return ErrUnsupported }
