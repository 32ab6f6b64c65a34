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

//go:build linux

package shm

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileLockExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "writer.lock")

	first, err := OpenFileLock(path)
	if err != nil {
		t.Fatalf("OpenFileLock failed: %v", err)
	}
	locked, err := first.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !locked {
		t.Fatal("TryLock failed on a fresh lock file")
	}

	second, err := OpenFileLock(path)
	if err != nil {
		t.Fatalf("second OpenFileLock failed: %v", err)
	}
	locked, err = second.TryLock()
	if err != nil {
		t.Fatalf("second TryLock failed: %v", err)
	}
	if locked {
		t.Fatal("second TryLock succeeded while the lock was held")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	locked, err = second.TryLock()
	if err != nil {
		t.Fatalf("TryLock after release failed: %v", err)
	}
	if !locked {
		t.Fatal("TryLock failed after the first holder released")
	}
	second.Unlock()
}

func TestFileLockBlockingLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "writer.lock")

	first, err := OpenFileLock(path)
	if err != nil {
		t.Fatalf("OpenFileLock failed: %v", err)
	}
	if locked, err := first.TryLock(); err != nil || !locked {
		t.Fatalf("TryLock failed: locked=%v err=%v", locked, err)
	}

	second, err := OpenFileLock(path)
	if err != nil {
		t.Fatalf("second OpenFileLock failed: %v", err)
	}
	acquired := make(chan error, 1)
	go func() {
		acquired <- second.Lock()
	}()

	select {
	case err := <-acquired:
		t.Fatalf("blocking Lock returned %v while the lock was held", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("blocking Lock failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocking Lock did not acquire after release")
	}
	second.Unlock()
}
