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
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultMonitorName is the well-known name of the monitor mapping shared
// between the datastore and all reader processes on a host.
const DefaultMonitorName = "osrm-region"

// monitorSize is one page; the payload occupies the first 16 bytes.
const monitorSize = 4096

// Monitor word offsets within the mapping.
const (
	monMutexOff     = 0  // futex mutex word
	monCondOff      = 4  // condition variable sequence word
	monRegionOff    = 8  // RegionID of the current published region
	monTimestampOff = 12 // publish timestamp
)

// Monitor is the tiny named shared object readers and the writer handshake
// through. It carries the {region, timestamp} payload plus the interprocess
// mutex and condition variable guarding it, all in a file-backed mapping
// under a fixed well-known name.
//
// The monitor outlives both data regions: it is created on first use,
// initialized to {RegionNone, 0}, and only removed through Remove.
type Monitor struct {
	file *os.File
	mem  []byte
	path string
}

// monitorPath resolves the backing file for a monitor name, preferring
// /dev/shm when available.
func monitorPath(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", name)
	}
	return filepath.Join(os.TempDir(), name)
}

// OpenMonitor attaches to the monitor under the given name, creating and
// zero-initializing it if absent. A zeroed mapping is exactly the
// {RegionNone, 0} bootstrap state with the mutex unlocked.
func OpenMonitor(name string) (*Monitor, error) {
	path := monitorPath(name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open monitor file %s: %w", path, err)
	}
	if err := file.Truncate(monitorSize); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to resize monitor file %s: %w", path, err)
	}

	mem, err := unix.Mmap(int(file.Fd()), 0, monitorSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap monitor %s: %w", path, err)
	}

	return &Monitor{file: file, mem: mem, path: path}, nil
}

// RemoveMonitor destroys the monitor's backing file unconditionally. Readers
// still mapped keep their mapping but will never observe another update.
func RemoveMonitor(name string) error {
	err := os.Remove(monitorPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *Monitor) word(off uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(&m.mem[0])) + off))
}

// Mutex returns the shared mutex guarding the payload.
func (m *Monitor) Mutex() *Mutex {
	return NewMutex(m.word(monMutexOff))
}

// Cond returns the shared condition variable readers park on.
func (m *Monitor) Cond() *Cond {
	return NewCond(m.word(monCondOff))
}

// Data returns the current {region, timestamp} payload. The read is relaxed:
// it is sufficient for change detection, but correctness-sensitive
// transitions must resynchronize through the mutex and condition variable.
func (m *Monitor) Data() (RegionID, uint32) {
	region := RegionID(atomic.LoadUint32(m.word(monRegionOff)))
	timestamp := atomic.LoadUint32(m.word(monTimestampOff))
	return region, timestamp
}

// SetData stores a new {region, timestamp} payload. Callers must hold the
// monitor mutex.
func (m *Monitor) SetData(region RegionID, timestamp uint32) {
	atomic.StoreUint32(m.word(monRegionOff), uint32(region))
	atomic.StoreUint32(m.word(monTimestampOff), timestamp)
}

// NotifyAll wakes every reader waiting on the condition variable.
func (m *Monitor) NotifyAll() error {
	return m.Cond().Broadcast()
}

// WaitForUpdate blocks until the payload's timestamp differs from last and
// returns the new payload. It is the reader half of the publish handshake.
func (m *Monitor) WaitForUpdate(last uint32) (RegionID, uint32, error) {
	mu := m.Mutex()
	if err := mu.Lock(); err != nil {
		return RegionNone, 0, err
	}
	defer mu.Unlock()

	cond := m.Cond()
	for {
		region, timestamp := m.Data()
		if timestamp != last {
			return region, timestamp, nil
		}
		if err := cond.Wait(mu); err != nil {
			return RegionNone, 0, err
		}
	}
}

// Path returns the monitor's backing file path.
func (m *Monitor) Path() string {
	return m.path
}

// Close drops this process's mapping. The backing file, and therefore the
// monitor itself, stays alive for other processes.
func (m *Monitor) Close() error {
	var firstErr error
	if m.mem != nil {
		if err := unix.Munmap(m.mem); err != nil && firstErr == nil {
			firstErr = err
		}
		m.mem = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.file = nil
	}
	return firstErr
}
