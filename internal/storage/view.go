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

import (
	"fmt"

	"github.com/wearebase/osrm-backend/internal/shm"
)

// RegionView is a read-only attachment to a published region: the decoded
// block catalog plus canary-checked access to the block bodies. A view
// holds the region attached; Close detaches and, when the writer has
// already marked the region for removal, allows the kernel to reclaim it.
type RegionView struct {
	region *shm.Region
	layout *DataLayout
	base   []byte
}

// AttachView attaches to the region published under id and decodes its
// catalog.
func AttachView(keys shm.Keyspace, id shm.RegionID) (*RegionView, error) {
	region, err := keys.Open(id)
	if err != nil {
		return nil, err
	}
	mem := region.Data()
	if len(mem) < EncodedLayoutSize {
		region.Detach()
		return nil, fmt.Errorf("region %s too small for layout header: %d bytes", id, len(mem))
	}
	layout, err := DecodeLayout(mem[:EncodedLayoutSize])
	if err != nil {
		region.Detach()
		return nil, fmt.Errorf("region %s: %w", id, err)
	}
	return &RegionView{region: region, layout: layout, base: mem[EncodedLayoutSize:]}, nil
}

// AttachCurrent reads the monitor and attaches to whichever region it
// names. It returns the published timestamp alongside the view.
func AttachCurrent(keys shm.Keyspace, monitorName string) (*RegionView, uint32, error) {
	mon, err := shm.OpenMonitor(monitorName)
	if err != nil {
		return nil, 0, fmt.Errorf("open monitor: %w", err)
	}
	defer mon.Close()

	region, timestamp := mon.Data()
	if region == shm.RegionNone {
		return nil, timestamp, fmt.Errorf("no dataset published")
	}
	view, err := AttachView(keys, region)
	if err != nil {
		return nil, timestamp, err
	}
	return view, timestamp, nil
}

// Region returns the attached region's identifier.
func (v *RegionView) Region() shm.RegionID {
	return v.region.ID()
}

// Layout returns the decoded block catalog.
func (v *RegionView) Layout() *DataLayout {
	return v.layout
}

// Block returns the body of one block after verifying its canaries.
func (v *RegionView) Block(bid BlockID) ([]byte, error) {
	return v.layout.BlockReader(v.base, bid)
}

// Close detaches from the region. The view must not be used afterwards.
func (v *RegionView) Close() error {
	return v.region.Detach()
}
