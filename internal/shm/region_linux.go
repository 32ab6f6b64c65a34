//go:build linux

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

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Region is an attached System V shared memory segment.
type Region struct {
	id  RegionID
	shm int    // kernel segment identifier
	mem []byte // attached mapping, stable for the lifetime of the handle
}

// Create allocates a fresh region of exactly size bytes under the key derived
// from id and attaches it. It fails with ErrRegionExists if a segment with
// that key is already present.
func (k Keyspace) Create(id RegionID, size uint64) (*Region, error) {
	shmid, err := unix.SysvShmGet(k.key(id), int(size), unix.IPC_CREAT|unix.IPC_EXCL|0600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, fmt.Errorf("create %s: %w", id, ErrRegionExists)
		}
		return nil, fmt.Errorf("create %s (%d bytes): %w", id, size, err)
	}

	mem, err := unix.SysvShmAttach(shmid, 0, 0)
	if err != nil {
		unix.SysvShmCtl(shmid, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("attach %s: %w", id, err)
	}

	return &Region{id: id, shm: shmid, mem: mem}, nil
}

// Open attaches to an existing region. It fails with ErrRegionNotFound if no
// segment is present under the key derived from id.
func (k Keyspace) Open(id RegionID) (*Region, error) {
	shmid, err := unix.SysvShmGet(k.key(id), 0, 0)
	if err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("open %s: %w", id, ErrRegionNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	mem, err := unix.SysvShmAttach(shmid, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", id, err)
	}

	return &Region{id: id, shm: shmid, mem: mem}, nil
}

// Exists reports whether a segment is present under the key derived from id.
// A segment that has been marked for destruction but still has attached
// processes reports true until the kernel reclaims it.
func (k Keyspace) Exists(id RegionID) bool {
	_, err := unix.SysvShmGet(k.key(id), 0, 0)
	return err == nil
}

// Remove marks the region for destruction. Per shmctl(2) the segment is
// actually destroyed only after the last attached process detaches; the
// marker is sticky.
func (k Keyspace) Remove(id RegionID) error {
	shmid, err := unix.SysvShmGet(k.key(id), 0, 0)
	if err != nil {
		if err == unix.ENOENT {
			return fmt.Errorf("remove %s: %w", id, ErrRegionNotFound)
		}
		return fmt.Errorf("remove %s: %w", id, err)
	}
	if _, err := unix.SysvShmCtl(shmid, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// ID returns the region tag this handle is attached to.
func (r *Region) ID() RegionID {
	return r.id
}

// Data returns the attached byte range. The base address is stable for the
// lifetime of the handle.
func (r *Region) Data() []byte {
	return r.mem
}

// Size returns the segment size in bytes as reported by the kernel.
func (r *Region) Size() uint64 {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(r.shm, unix.IPC_STAT, &desc); err != nil {
		return uint64(len(r.mem))
	}
	return uint64(desc.Segsz)
}

// AttachCount returns the number of processes currently attached to the
// segment, including the caller.
func (r *Region) AttachCount() (uint64, error) {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(r.shm, unix.IPC_STAT, &desc); err != nil {
		return 0, fmt.Errorf("stat %s: %w", r.id, err)
	}
	return uint64(desc.Nattch), nil
}

// WaitForDetach blocks until the attach count drops to one, i.e. until every
// process other than the caller has detached. The attach counter is sampled
// at a bounded interval; there is deliberately no timeout.
func (r *Region) WaitForDetach() error {
	for {
		n, err := r.AttachCount()
		if err != nil {
			return err
		}
		if n <= 1 {
			return nil
		}
		time.Sleep(detachPollInterval)
	}
}

// Detach drops the caller's mapping. If the segment is marked for
// destruction and this was the last attachment, the kernel reclaims it.
func (r *Region) Detach() error {
	if r.mem == nil {
		return nil
	}
	if err := unix.SysvShmDetach(r.mem); err != nil {
		return fmt.Errorf("detach %s: %w", r.id, err)
	}
	r.mem = nil
	return nil
}
