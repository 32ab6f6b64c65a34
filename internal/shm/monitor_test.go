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
	"fmt"
	"os"
	"testing"
	"time"
)

func testMonitorName(t *testing.T) string {
	t.Helper()
	name := fmt.Sprintf("osrm-region-test-%d", time.Now().UnixNano())
	t.Cleanup(func() { RemoveMonitor(name) })
	return name
}

func TestMonitorBootstrapsEmpty(t *testing.T) {
	name := testMonitorName(t)

	mon, err := OpenMonitor(name)
	if err != nil {
		t.Fatalf("OpenMonitor failed: %v", err)
	}
	defer mon.Close()

	region, timestamp := mon.Data()
	if region != RegionNone || timestamp != 0 {
		t.Fatalf("fresh monitor holds {%s, %d}, want {REGION_NONE, 0}", region, timestamp)
	}
}

func TestMonitorDataSurvivesReopen(t *testing.T) {
	name := testMonitorName(t)

	mon, err := OpenMonitor(name)
	if err != nil {
		t.Fatalf("OpenMonitor failed: %v", err)
	}
	mu := mon.Mutex()
	if err := mu.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	mon.SetData(Region2, 7)
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := mon.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mon, err = OpenMonitor(name)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer mon.Close()
	region, timestamp := mon.Data()
	if region != Region2 || timestamp != 7 {
		t.Fatalf("reopened monitor holds {%s, %d}, want {REGION_2, 7}", region, timestamp)
	}
}

func TestMonitorNotifyWakesWaiter(t *testing.T) {
	name := testMonitorName(t)

	writer, err := OpenMonitor(name)
	if err != nil {
		t.Fatalf("OpenMonitor failed: %v", err)
	}
	defer writer.Close()

	reader, err := OpenMonitor(name)
	if err != nil {
		t.Fatalf("OpenMonitor for reader failed: %v", err)
	}
	defer reader.Close()

	type update struct {
		region    RegionID
		timestamp uint32
		err       error
	}
	got := make(chan update, 1)
	go func() {
		region, timestamp, err := reader.WaitForUpdate(0)
		got <- update{region, timestamp, err}
	}()

	select {
	case u := <-got:
		t.Fatalf("WaitForUpdate returned {%s, %d, %v} before any publish", u.region, u.timestamp, u.err)
	case <-time.After(100 * time.Millisecond):
	}

	mu := writer.Mutex()
	if err := mu.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	writer.SetData(Region1, 1)
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := writer.NotifyAll(); err != nil {
		t.Fatalf("NotifyAll failed: %v", err)
	}

	select {
	case u := <-got:
		if u.err != nil {
			t.Fatalf("WaitForUpdate failed: %v", u.err)
		}
		if u.region != Region1 || u.timestamp != 1 {
			t.Fatalf("got {%s, %d}, want {REGION_1, 1}", u.region, u.timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForUpdate did not wake after NotifyAll")
	}
}

func TestRemoveMonitor(t *testing.T) {
	name := testMonitorName(t)

	mon, err := OpenMonitor(name)
	if err != nil {
		t.Fatalf("OpenMonitor failed: %v", err)
	}
	path := mon.Path()
	if err := mon.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := RemoveMonitor(name); err != nil {
		t.Fatalf("RemoveMonitor failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("monitor file still present after removal: %v", err)
	}
	// Removing an absent monitor is not an error.
	if err := RemoveMonitor(name); err != nil {
		t.Fatalf("RemoveMonitor of absent monitor failed: %v", err)
	}
}
