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
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/wearebase/osrm-backend/internal/storage/io"
)

// asBytes views a slice of fixed-layout elements as raw bytes, the same
// way block payloads live in the region.
func asBytes[T any](v []T) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(unsafe.Sizeof(v[0])))
}

func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}

const (
	fixtureChecksum   = uint32(0x1A2B3C4D)
	fixtureCHChecksum = uint32(0x00C0FFEE)
	fixtureNames      = "Main StreetSecond Avenue"
	fixtureTimestamp  = "2026-08-26T00:00:00Z"
)

// fixtureOpts controls which optional artifacts a test dataset carries and
// lets individual tests inject inconsistencies.
type fixtureOpts struct {
	ch  bool
	mld bool

	// connectivity checksums written to the graph artifacts; zero means
	// "match the edges artifact"
	chConnectivity  uint32
	mldConnectivity uint32

	chMetrics       uint64
	cellMetricCount uint64

	names string
}

func writeArtifact(t *testing.T, path string, fn func(w *io.FileWriter)) {
	t.Helper()
	w, err := io.CreateWriter(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	fn(w)
	if err := w.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

// writeDataset builds a tiny but complete dataset under dir and returns
// its base path.
func writeDataset(t *testing.T, dir string, o fixtureOpts) string {
	t.Helper()
	base := filepath.Join(dir, "fixture.osrm")

	if o.names == "" {
		o.names = fixtureNames
	}
	if o.chConnectivity == 0 {
		o.chConnectivity = fixtureChecksum
	}
	if o.mldConnectivity == 0 {
		o.mldConnectivity = fixtureChecksum
	}
	if o.chMetrics == 0 {
		o.chMetrics = 1
	}
	if o.cellMetricCount == 0 {
		o.cellMetricCount = 1
	}

	writeArtifact(t, base+".names", func(w *io.FileWriter) {
		w.Write([]byte(o.names))
	})

	writeArtifact(t, base+".tls", func(w *io.FileWriter) {
		offsets := []uint32{0, 5}
		masks := []uint16{1, 2}
		w.WriteVector(2, asBytes(offsets))
		w.WriteVector(2, asBytes(masks))
	})

	writeArtifact(t, base+".tld", func(w *io.FileWriter) {
		tuples := []TurnLaneData{
			{Lanes: 1, FirstLane: 0, DescriptionID: 0},
			{Lanes: 2, FirstLane: 1, DescriptionID: 1},
		}
		w.WriteVector(2, asBytes(tuples))
	})

	writeArtifact(t, base+".edges", func(w *io.FileWriter) {
		instructions := []TurnInstruction{{Type: 1}, {Type: 2, Direction: 1}, {Type: 3, Direction: 2}}
		laneIDs := []LaneDataID{0, 1, 0}
		entryIDs := []EntryClassID{0, 0, 1}
		w.WriteVector(3, asBytes(instructions))
		w.WriteVector(3, asBytes(laneIDs))
		w.WriteVector(3, asBytes(entryIDs))
		w.WriteVector(3, []byte{10, 20, 30})
		w.WriteVector(3, []byte{15, 25, 35})
		w.WriteUint32(fixtureChecksum)
	})

	writeArtifact(t, base+".ebg_nodes", func(w *io.FileWriter) {
		nodes := []EdgeBasedNode{
			{GeometryID: 1, ComponentID: 0, AnnotationID: 0, Flags: 0},
			{GeometryID: 2, ComponentID: 0, AnnotationID: 0, Flags: 1},
		}
		annotations := []NodeAnnotation{{NameID: 0, ClassData: 1, TravelMode: 1}}
		w.WriteElementCount64(2)
		w.WriteElementCount64(1)
		w.Write(asBytes(nodes))
		w.Write(asBytes(annotations))
	})

	writeArtifact(t, base+".ramIndex", func(w *io.FileWriter) {
		tree := []RTreeNode{{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1, ChildCount: 0}}
		levels := []uint64{1}
		w.WriteVector(1, asBytes(tree))
		w.WriteVector(1, asBytes(levels))
	})

	// opaque on-disk leaf index, only its path is published
	if err := os.WriteFile(base+".fileIndex", []byte("leaf nodes"), 0o644); err != nil {
		t.Fatalf("write file index: %v", err)
	}

	writeArtifact(t, base+".timestamp", func(w *io.FileWriter) {
		w.Write([]byte(fixtureTimestamp))
	})

	writeArtifact(t, base+".properties", func(w *io.FileWriter) {
		p := ProfileProperties{
			TrafficSignalPenalty:   20,
			UTurnPenalty:           20,
			MaxSpeedForMapMatching: 180,
			UseTurnRestrictions:    1,
		}
		copy(p.WeightName[:], "duration")
		w.Write(structBytes(&p))
	})

	writeArtifact(t, base+".nbg_nodes", func(w *io.FileWriter) {
		coords := []Coordinate{
			{Lon: 13400000, Lat: 52500000},
			{Lon: 13400100, Lat: 52500100},
			{Lon: 13400200, Lat: 52500200},
		}
		idBlocks := []uint64{0x0000123456789ABC}
		w.WriteElementCount64(3)
		w.Write(asBytes(coords))
		w.WriteElementCount64(3) // packed OSM ID element count
		w.WriteVector(1, asBytes(idBlocks))
	})

	writeArtifact(t, base+".geometry", func(w *io.FileWriter) {
		index := []uint32{0, 2}
		nodes := []uint32{1, 2, 3, 4}
		w.WriteVector(2, asBytes(index))
		w.WriteVector(4, asBytes(nodes))
		for i := 0; i < 4; i++ {
			packed := []uint64{uint64(0xAA00) + uint64(i)}
			w.WriteElementCount64(4)
			w.WriteVector(1, asBytes(packed))
		}
		w.WriteVector(4, []byte{0, 0, 1, 1})
		w.WriteVector(4, []byte{1, 1, 0, 0})
	})

	writeArtifact(t, base+".datasource_names", func(w *io.FileWriter) {
		var d Datasources
		d.Count = 1
		d.Lengths[0] = 7
		copy(d.Names[0][:], "lua:car")
		w.Write(structBytes(&d))
	})

	writeArtifact(t, base+".icd", func(w *io.FileWriter) {
		bearings := []DiscreteBearing{0, 90, 180, 270}
		classIDs := []BearingClassID{0, 1}
		offsets := []uint32{0, 2}
		blocks := []RangeTableBlock{{}}
		entryClasses := []EntryClass{3, 7}
		w.WriteVector(4, asBytes(bearings))
		w.WriteVector(2, asBytes(classIDs))
		w.WriteUint32(4)
		w.WriteVector(2, asBytes(offsets))
		w.WriteVector(1, asBytes(blocks))
		w.WriteVector(2, asBytes(entryClasses))
	})

	writeArtifact(t, base+".turn_weight_penalties", func(w *io.FileWriter) {
		penalties := []TurnPenalty{1, 2, 3}
		w.WriteVector(3, asBytes(penalties))
	})

	writeArtifact(t, base+".turn_duration_penalties", func(w *io.FileWriter) {
		penalties := []TurnPenalty{2, 4, 6}
		w.WriteVector(3, asBytes(penalties))
	})

	writeArtifact(t, base+".maneuver_overrides", func(w *io.FileWriter) {
		overrides := []ManeuverOverride{{
			NodeSequenceOffsetBegin: 0,
			NodeSequenceOffsetEnd:   2,
			StartNode:               5,
			InstructionNode:         6,
			OverrideType:            1,
			Direction:               2,
		}}
		sequence := []uint32{5, 6}
		w.WriteVector(1, asBytes(overrides))
		w.WriteVector(2, asBytes(sequence))
	})

	if o.ch {
		writeArtifact(t, base+".hsgr", func(w *io.FileWriter) {
			w.WriteUint32(fixtureCHChecksum)
			nodes := []GraphNodeEntry{{FirstEdge: 0}, {FirstEdge: 1}}
			edges := []GraphEdgeEntry{{Target: 1, Weight: 10}, {Target: 0, Weight: 12, Flags: 1}}
			w.WriteVector(2, asBytes(nodes))
			w.WriteVector(2, asBytes(edges))
			w.WriteElementCount64(o.chMetrics)
			if o.chMetrics > NumMetrics {
				return
			}
			for i := uint64(0); i < o.chMetrics; i++ {
				filter := []uint32{^uint32(0), ^uint32(0)}
				w.WriteVector(2, asBytes(filter))
			}
			w.WriteUint32(o.chConnectivity)
		})
	}

	if o.mld {
		writeArtifact(t, base+".partition", func(w *io.FileWriter) {
			ld := LevelData{NumLevels: 2}
			ld.Offsets[1] = 8
			w.Write(structBytes(&ld))
			partition := []uint32{0, 1}
			children := []uint32{0, 0}
			w.WriteVector(2, asBytes(partition))
			w.WriteVector(2, asBytes(children))
		})

		writeArtifact(t, base+".cells", func(w *io.FileWriter) {
			source := []uint32{0}
			destination := []uint32{1}
			cells := []CellData{{ValueOffset: 0, NumSourceNodes: 1, NumDestinationNodes: 1}}
			offsets := []uint64{0, 1}
			w.WriteVector(1, asBytes(source))
			w.WriteVector(1, asBytes(destination))
			w.WriteVector(1, asBytes(cells))
			w.WriteVector(2, asBytes(offsets))
		})

		writeArtifact(t, base+".cell_metrics", func(w *io.FileWriter) {
			w.WriteElementCount64(o.cellMetricCount)
			if o.cellMetricCount > NumMetrics {
				return
			}
			for i := uint64(0); i < o.cellMetricCount; i++ {
				weights := []EdgeWeight{10, 20}
				durations := []EdgeDuration{11, 21}
				w.WriteVector(2, asBytes(weights))
				w.WriteVector(2, asBytes(durations))
			}
		})

		writeArtifact(t, base+".mldgr", func(w *io.FileWriter) {
			nodes := []GraphNodeEntry{{FirstEdge: 0}, {FirstEdge: 1}}
			edges := []MLDGraphEdgeEntry{{Target: 1, Weight: 5, Duration: 7}, {Target: 0, Weight: 6, Duration: 8}}
			offsets := []uint32{0, 1}
			w.WriteVector(2, asBytes(nodes))
			w.WriteVector(2, asBytes(edges))
			w.WriteVector(2, asBytes(offsets))
			w.WriteUint32(o.mldConnectivity)
		})
	}

	return base
}
