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

// Package storage loads a processed routing dataset into a shared memory
// region and publishes it to running engine processes through a small
// monitor segment. Loading is a two pass process: PopulateLayout scans
// every artifact to size the block catalog, PopulateData streams the
// artifact payloads into the freshly created region. The swap is atomic
// from a reader's point of view: the monitor flips to the new region and
// its timestamp in one update under the monitor mutex.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wearebase/osrm-backend/internal/shm"
)

// LockFileName is the writer exclusion lock, created in the system temp
// directory. Only one datastore process may load at a time.
const LockFileName = "osrm-datastore.lock"

// NumMetrics is the number of exclude-class metric slots reserved in the
// layout for CH edge filters and MLD cell metrics.
const NumMetrics = 8

// Storage orchestrates one load-and-publish cycle.
type Storage struct {
	config      *StorageConfig
	keys        shm.Keyspace
	monitorName string
	lockDir     string
}

// New returns a Storage bound to the default region keyspace and monitor.
func New(config *StorageConfig) *Storage {
	return &Storage{
		config:      config,
		keys:        shm.DefaultKeyspace,
		monitorName: shm.DefaultMonitorName,
		lockDir:     os.TempDir(),
	}
}

// nextRegion returns the region to load into while current stays live.
func nextRegion(current shm.RegionID) shm.RegionID {
	if current == shm.Region1 {
		return shm.Region2
	}
	return shm.Region1
}

// Run executes one full publish cycle: populate the inactive region,
// announce it through the monitor, then retire the previous region once
// every client has detached. maxWait bounds the wait for the monitor mutex
// in seconds; a negative value waits forever.
func (s *Storage) Run(maxWait int) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	lock, err := shm.OpenFileLock(filepath.Join(s.lockDir, LockFileName))
	if err != nil {
		return fmt.Errorf("open datastore lock: %w", err)
	}
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire datastore lock: %w", err)
	}
	if !locked {
		slog.Warn("Data update in progress, waiting until it finishes")
		if err := lock.Lock(); err != nil {
			return fmt.Errorf("acquire datastore lock: %w", err)
		}
	}
	defer lock.Unlock()

	// Pinning fails without CAP_IPC_LOCK; loading still works, the pages
	// are just evictable.
	if err := shm.LockProcessMemory(); err != nil {
		slog.Warn("Process memory could not be locked to RAM", "error", err)
	}

	mon, err := shm.OpenMonitor(s.monitorName)
	if err != nil {
		return fmt.Errorf("open monitor: %w", err)
	}
	// mon is rebound if the monitor has to be recreated below.
	defer func() { mon.Close() }()

	current, timestamp := mon.Data()
	next := nextRegion(current)
	nextTimestamp := timestamp + 1

	// A stale region at the target slot means a previous writer died
	// before retiring it. No client can reference it, the monitor never
	// pointed there.
	if s.keys.Exists(next) {
		slog.Warn("Old shared memory region blocks new region, removing it", "region", next)
		if err := s.keys.Remove(next); err != nil {
			return fmt.Errorf("remove stale region %s: %w", next, err)
		}
	}

	layout := NewDataLayout()
	if err := s.PopulateLayout(layout); err != nil {
		return err
	}

	size := uint64(EncodedLayoutSize) + layout.TotalSize()
	slog.Info("Allocating shared memory", "bytes", size, "region", next)
	region, err := s.keys.Create(next, size)
	if err != nil {
		return fmt.Errorf("create region %s: %w", next, err)
	}
	defer region.Detach()

	mem := region.Data()
	layout.Encode(mem[:EncodedLayoutSize])
	if err := s.PopulateData(layout, mem[EncodedLayoutSize:]); err != nil {
		return err
	}

	mu := mon.Mutex()
	if maxWait >= 0 {
		slog.Info("Waiting for shared memory region lock", "max_wait_seconds", maxWait)
		locked, err := mu.TryLockFor(time.Duration(maxWait) * time.Second)
		if err != nil {
			return fmt.Errorf("lock monitor: %w", err)
		}
		if !locked {
			slog.Warn("Could not acquire region lock, removing monitor",
				"max_wait_seconds", maxWait,
				"note", "connected processes will not receive notifications and must be restarted")
			if err := mon.Close(); err != nil {
				return err
			}
			if err := shm.RemoveMonitor(s.monitorName); err != nil {
				return fmt.Errorf("remove monitor: %w", err)
			}
			mon, err = shm.OpenMonitor(s.monitorName)
			if err != nil {
				return fmt.Errorf("recreate monitor: %w", err)
			}
			// Clients of the removed monitor are orphaned, nobody is
			// left to detach from the region it pointed at.
			current = shm.RegionNone
			mu = mon.Mutex()
			if err := mu.Lock(); err != nil {
				return fmt.Errorf("lock monitor: %w", err)
			}
		}
	} else {
		if err := mu.Lock(); err != nil {
			return fmt.Errorf("lock monitor: %w", err)
		}
	}
	mon.SetData(next, nextTimestamp)
	if err := mu.Unlock(); err != nil {
		return fmt.Errorf("unlock monitor: %w", err)
	}
	if err := mon.NotifyAll(); err != nil {
		return fmt.Errorf("notify clients: %w", err)
	}
	slog.Info("All data loaded, notifying client processes", "region", next, "timestamp", nextTimestamp)

	if current != shm.RegionNone && s.keys.Exists(current) {
		old, err := s.keys.Open(current)
		if err != nil {
			return fmt.Errorf("open old region %s: %w", current, err)
		}
		// Mark for destruction first; the kernel reclaims the segment
		// once the last client detaches.
		if err := s.keys.Remove(current); err != nil {
			return fmt.Errorf("remove old region %s: %w", current, err)
		}
		slog.Info("Marked old region for removal, waiting for all clients to detach", "region", current)
		if err := old.WaitForDetach(); err != nil {
			return fmt.Errorf("wait for detach of %s: %w", current, err)
		}
		if err := old.Detach(); err != nil {
			return fmt.Errorf("detach old region %s: %w", current, err)
		}
		slog.Info("All clients switched")
	}

	return nil
}
