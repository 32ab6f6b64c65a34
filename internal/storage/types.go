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

// Element types of the published blocks. Their in-memory layout is the wire
// format: blocks are populated by copying file payloads byte-for-byte, so
// every struct here must match the serialized artifact layout exactly,
// including padding.

// NodeID identifies a node in either graph representation.
type NodeID = uint32

// EdgeWeight is a routing weight in profile-defined units.
type EdgeWeight = int32

// EdgeDuration is a travel time in deciseconds.
type EdgeDuration = int32

// DatasourceID indexes into the datasource name registry.
type DatasourceID = uint8

// Coordinate is a fixed-point WGS84 position, degrees times 1e6.
type Coordinate struct {
	Lon int32
	Lat int32
}

// RTreeNode is one node of the packed leaf-storing R-tree over the edge
// based graph geometry.
type RTreeNode struct {
	MinLon, MinLat int32
	MaxLon, MaxLat int32
	Children       [11]uint32
	ChildCount     uint32
}

// GraphNodeEntry is a node of a static adjacency-array graph; edges of the
// node occupy [FirstEdge, next.FirstEdge).
type GraphNodeEntry struct {
	FirstEdge uint32
}

// GraphEdgeEntry is an edge of the contracted (CH) search graph.
type GraphEdgeEntry struct {
	Target uint32
	Weight int32
	Flags  uint32
}

// MLDGraphEdgeEntry is an edge of the multi-level partition search graph.
type MLDGraphEdgeEntry struct {
	Target   uint32
	Weight   int32
	Duration int32
}

// TurnInstruction encodes the guidance maneuver of an edge based edge.
type TurnInstruction struct {
	Type      uint8
	Direction uint8
}

// TurnBearing is a compressed bearing, two-degree resolution.
type TurnBearing = uint8

// LaneDataID indexes the turn lane data block.
type LaneDataID = uint16

// EntryClassID indexes the entry class block.
type EntryClassID = uint16

// TurnPenalty is a signed penalty applied at a turn.
type TurnPenalty = int16

// DiscreteBearing is a bearing value of an intersection bearing class.
type DiscreteBearing = uint16

// BearingClassID indexes the bearing class offset table.
type BearingClassID = uint32

// EntryClass is a bitset of allowed entries at an intersection.
type EntryClass = uint32

// RangeTableBlock is one block of the bearing range table.
type RangeTableBlock [16]uint8

// TurnLaneData describes the lanes participating in one turn.
type TurnLaneData struct {
	Lanes         uint8
	FirstLane     uint8
	DescriptionID uint16
}

// EdgeBasedNode carries the per-node references of the edge based graph.
type EdgeBasedNode struct {
	GeometryID   uint32
	ComponentID  uint32
	AnnotationID uint32
	Flags        uint32
}

// NodeAnnotation is the shared annotation record of edge based nodes.
type NodeAnnotation struct {
	NameID     uint32
	ClassData  uint8
	TravelMode uint8
	_          [2]byte
}

// ManeuverOverride replaces the guidance of a matched node sequence.
type ManeuverOverride struct {
	NodeSequenceOffsetBegin uint32
	NodeSequenceOffsetEnd   uint32
	StartNode               uint32
	InstructionNode         uint32
	OverrideType            uint8
	Direction               uint8
	_                       [2]byte
}

// LevelData describes the multi-level partition hierarchy: the level count
// and the bit offset of each level's cell identifier within a partition ID.
type LevelData struct {
	NumLevels uint32
	_         uint32
	Offsets   [8]uint64
}

// CellData locates one partition cell's boundary node and value ranges.
type CellData struct {
	ValueOffset               uint32
	SourceBoundaryOffset      uint32
	DestinationBoundaryOffset uint32
	NumSourceNodes            uint16
	NumDestinationNodes       uint16
}

// ProfileProperties carries the profile switches the routing engine needs
// at query time.
type ProfileProperties struct {
	TrafficSignalPenalty       int32
	UTurnPenalty               int32
	MaxSpeedForMapMatching     float32
	ContinueStraightAtWaypoint uint8
	UseTurnRestrictions        uint8
	LeftHandDriving            uint8
	FallbackToDuration         uint8
	CallTaglessNodeSegment     uint8
	ForceSplitEdges            uint8
	_                          [2]byte
	WeightName                 [256]byte
}

// Datasources is the fixed-capacity registry of datasource names for
// segment speed attribution.
type Datasources struct {
	Count   uint32
	Lengths [255]uint32
	Names   [255][32]byte
}
