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
	"encoding/binary"
	"fmt"
	"unsafe"
)

// Canary bracketing every block body. A mismatch on read means the region
// was corrupted and is fatal for the consumer of that block.
var canary = [4]byte{'O', 'S', 'R', 'M'}

// CanarySize is the byte length of one canary marker.
const CanarySize = 4

// BlockID names one slot in the published region. The enumeration is a
// versioned wire contract shared with every reader: identifiers may be
// appended, never reordered or removed.
type BlockID int

const (
	BlockNameCharData BlockID = iota
	BlockEdgeBasedNodeData
	BlockAnnotationData
	BlockCHGraphNodeList
	BlockCHGraphEdgeList
	BlockCHEdgeFilter0
	BlockCHEdgeFilter1
	BlockCHEdgeFilter2
	BlockCHEdgeFilter3
	BlockCHEdgeFilter4
	BlockCHEdgeFilter5
	BlockCHEdgeFilter6
	BlockCHEdgeFilter7
	BlockCoordinateList
	BlockOSMNodeIDList
	BlockTurnInstruction
	BlockEntryClassID
	BlockRSearchTree
	BlockRSearchTreeLevels
	BlockGeometriesIndex
	BlockGeometriesNodeList
	BlockGeometriesFwdWeightList
	BlockGeometriesRevWeightList
	BlockGeometriesFwdDurationList
	BlockGeometriesRevDurationList
	BlockGeometriesFwdDatasourcesList
	BlockGeometriesRevDatasourcesList
	BlockHSGRChecksum
	BlockTimestamp
	BlockFileIndexPath
	BlockDatasourcesNames
	BlockProperties
	BlockBearingClassID
	BlockBearingOffsets
	BlockBearingBlocks
	BlockBearingValues
	BlockEntryClass
	BlockLaneDataID
	BlockPreTurnBearing
	BlockPostTurnBearing
	BlockTurnLaneData
	BlockLaneDescriptionOffsets
	BlockLaneDescriptionMasks
	BlockTurnWeightPenalties
	BlockTurnDurationPenalties
	BlockMLDLevelData
	BlockMLDPartition
	BlockMLDCellToChildren
	BlockMLDCellWeights0
	BlockMLDCellWeights1
	BlockMLDCellWeights2
	BlockMLDCellWeights3
	BlockMLDCellWeights4
	BlockMLDCellWeights5
	BlockMLDCellWeights6
	BlockMLDCellWeights7
	BlockMLDCellDurations0
	BlockMLDCellDurations1
	BlockMLDCellDurations2
	BlockMLDCellDurations3
	BlockMLDCellDurations4
	BlockMLDCellDurations5
	BlockMLDCellDurations6
	BlockMLDCellDurations7
	BlockMLDCellSourceBoundary
	BlockMLDCellDestinationBoundary
	BlockMLDCells
	BlockMLDCellLevelOffsets
	BlockMLDGraphNodeList
	BlockMLDGraphEdgeList
	BlockMLDGraphNodeToOffset
	BlockManeuverOverrides
	BlockManeuverOverrideNodeSequences

	numBlocks
)

// NumBlocks is the cardinality of the block enumeration.
const NumBlocks = int(numBlocks)

// blockNames maps each identifier to its stable diagnostic name.
var blockNames = [...]string{
	"NAME_CHAR_DATA",
	"EDGE_BASED_NODE_DATA_LIST",
	"ANNOTATION_DATA_LIST",
	"CH_GRAPH_NODE_LIST",
	"CH_GRAPH_EDGE_LIST",
	"CH_EDGE_FILTER_0",
	"CH_EDGE_FILTER_1",
	"CH_EDGE_FILTER_2",
	"CH_EDGE_FILTER_3",
	"CH_EDGE_FILTER_4",
	"CH_EDGE_FILTER_5",
	"CH_EDGE_FILTER_6",
	"CH_EDGE_FILTER_7",
	"COORDINATE_LIST",
	"OSM_NODE_ID_LIST",
	"TURN_INSTRUCTION",
	"ENTRY_CLASSID",
	"R_SEARCH_TREE",
	"R_SEARCH_TREE_LEVELS",
	"GEOMETRIES_INDEX",
	"GEOMETRIES_NODE_LIST",
	"GEOMETRIES_FWD_WEIGHT_LIST",
	"GEOMETRIES_REV_WEIGHT_LIST",
	"GEOMETRIES_FWD_DURATION_LIST",
	"GEOMETRIES_REV_DURATION_LIST",
	"GEOMETRIES_FWD_DATASOURCES_LIST",
	"GEOMETRIES_REV_DATASOURCES_LIST",
	"HSGR_CHECKSUM",
	"TIMESTAMP",
	"FILE_INDEX_PATH",
	"DATASOURCES_NAMES",
	"PROPERTIES",
	"BEARING_CLASSID",
	"BEARING_OFFSETS",
	"BEARING_BLOCKS",
	"BEARING_VALUES",
	"ENTRY_CLASS",
	"LANE_DATA_ID",
	"PRE_TURN_BEARING",
	"POST_TURN_BEARING",
	"TURN_LANE_DATA",
	"LANE_DESCRIPTION_OFFSETS",
	"LANE_DESCRIPTION_MASKS",
	"TURN_WEIGHT_PENALTIES",
	"TURN_DURATION_PENALTIES",
	"MLD_LEVEL_DATA",
	"MLD_PARTITION",
	"MLD_CELL_TO_CHILDREN",
	"MLD_CELL_WEIGHTS_0",
	"MLD_CELL_WEIGHTS_1",
	"MLD_CELL_WEIGHTS_2",
	"MLD_CELL_WEIGHTS_3",
	"MLD_CELL_WEIGHTS_4",
	"MLD_CELL_WEIGHTS_5",
	"MLD_CELL_WEIGHTS_6",
	"MLD_CELL_WEIGHTS_7",
	"MLD_CELL_DURATIONS_0",
	"MLD_CELL_DURATIONS_1",
	"MLD_CELL_DURATIONS_2",
	"MLD_CELL_DURATIONS_3",
	"MLD_CELL_DURATIONS_4",
	"MLD_CELL_DURATIONS_5",
	"MLD_CELL_DURATIONS_6",
	"MLD_CELL_DURATIONS_7",
	"MLD_CELL_SOURCE_BOUNDARY",
	"MLD_CELL_DESTINATION_BOUNDARY",
	"MLD_CELLS",
	"MLD_CELL_LEVEL_OFFSETS",
	"MLD_GRAPH_NODE_LIST",
	"MLD_GRAPH_EDGE_LIST",
	"MLD_GRAPH_NODE_TO_OFFSET",
	"MANEUVER_OVERRIDES",
	"MANEUVER_OVERRIDE_NODE_SEQUENCES",
}

func init() {
	// Name table and block enumeration must stay in one-to-one
	// correspondence.
	if len(blockNames) != NumBlocks {
		panic(fmt.Sprintf("storage: %d block names for %d blocks", len(blockNames), NumBlocks))
	}
}

// String returns the block's stable diagnostic name.
func (bid BlockID) String() string {
	if bid < 0 || int(bid) >= NumBlocks {
		return fmt.Sprintf("INVALID_BLOCK(%d)", int(bid))
	}
	return blockNames[bid]
}

// Encoded size of one block descriptor and of the whole catalog header that
// prefixes every published region.
const (
	encodedBlockSize  = 24
	EncodedLayoutSize = NumBlocks * encodedBlockSize
)

// DataLayout is the catalog of every block in a published region, indexed by
// BlockID. It is filled by the layout pass, serialized into the region
// prefix, and re-decoded by readers, which must agree byte-for-byte on
// every derived offset.
type DataLayout struct {
	blocks [NumBlocks]Block
}

// NewDataLayout returns a catalog with every slot default-initialized to an
// empty block of alignment 1.
func NewDataLayout() *DataLayout {
	l := &DataLayout{}
	for i := range l.blocks {
		l.blocks[i] = Block{EntryAlign: 1}
	}
	return l
}

// SetBlock stores the descriptor at the slot for bid. Calls are idempotent
// and may happen in any order.
func (l *DataLayout) SetBlock(bid BlockID, block Block) {
	l.blocks[bid] = block
}

// Entries returns the element count of the block.
func (l *DataLayout) Entries(bid BlockID) uint64 {
	return l.blocks[bid].NumEntries
}

// ByteSize returns the payload byte size of the block.
func (l *DataLayout) ByteSize(bid BlockID) uint64 {
	return l.blocks[bid].ByteSize()
}

// TotalSize returns a conservative upper bound on the bytes the region body
// must hold: per block, two canaries plus a full alignment worth of padding
// plus the payload. The bound over-reserves by at most align-1 bytes per
// block; readers reproduce the identical walk, so the slack is never
// tightened.
func (l *DataLayout) TotalSize() uint64 {
	var result uint64
	for i := range l.blocks {
		if !l.blocks[i].Valid() {
			panic(fmt.Sprintf("storage: block %s has no alignment", BlockID(i)))
		}
		result += 2*CanarySize + l.blocks[i].EntryAlign + l.blocks[i].ByteSize()
	}
	return result
}

// alignUp rounds addr up to the next multiple of align, which must be a
// power of two.
func alignUp(addr uintptr, align uint64) uintptr {
	return (addr + uintptr(align) - 1) &^ (uintptr(align) - 1)
}

// AlignedBlockOffset returns the offset of the block body within base,
// derived by walking every prior block in enumeration order: canary,
// alignment padding, payload, canary. The alignment is applied to the
// absolute address, as readers do; attach addresses are page-aligned, so
// both sides agree for any alignment up to the page size.
func (l *DataLayout) AlignedBlockOffset(base []byte, bid BlockID) uint64 {
	start := uintptr(unsafe.Pointer(&base[0]))
	ptr := start
	for i := 0; i < int(bid); i++ {
		ptr += CanarySize
		ptr = alignUp(ptr, l.blocks[i].EntryAlign)
		ptr += uintptr(l.blocks[i].ByteSize())
		ptr += CanarySize
	}
	ptr += CanarySize
	ptr = alignUp(ptr, l.blocks[bid].EntryAlign)
	return uint64(ptr - start)
}

// BlockWriter returns the block body, writing the leading and trailing
// canaries. Every block declared by the layout must be claimed through
// BlockWriter during population, even when no payload follows, so readers
// always find a consistent canary frame.
func (l *DataLayout) BlockWriter(base []byte, bid BlockID) []byte {
	off := l.AlignedBlockOffset(base, bid)
	size := l.ByteSize(bid)
	copy(base[off-CanarySize:off], canary[:])
	copy(base[off+size:off+size+CanarySize], canary[:])
	return base[off : off+size : off+size]
}

// BlockReader returns the block body after verifying both canaries. A
// mismatch yields a CanaryError naming the block.
func (l *DataLayout) BlockReader(base []byte, bid BlockID) ([]byte, error) {
	off := l.AlignedBlockOffset(base, bid)
	size := l.ByteSize(bid)
	if [4]byte(base[off-CanarySize:off]) != canary {
		return nil, &CanaryError{Block: bid, End: false}
	}
	if [4]byte(base[off+size:off+size+CanarySize]) != canary {
		return nil, &CanaryError{Block: bid, End: true}
	}
	return base[off : off+size : off+size], nil
}

// BlockEnd returns the offset one past the last payload byte of the block.
func (l *DataLayout) BlockEnd(base []byte, bid BlockID) uint64 {
	return l.AlignedBlockOffset(base, bid) + l.ByteSize(bid)
}

// Encode serializes the catalog into buf, which must hold at least
// EncodedLayoutSize bytes.
func (l *DataLayout) Encode(buf []byte) {
	for i := range l.blocks {
		off := i * encodedBlockSize
		binary.LittleEndian.PutUint64(buf[off:], l.blocks[i].EntrySize)
		binary.LittleEndian.PutUint64(buf[off+8:], l.blocks[i].EntryAlign)
		binary.LittleEndian.PutUint64(buf[off+16:], l.blocks[i].NumEntries)
	}
}

// DecodeLayout reconstructs a catalog from a region prefix.
func DecodeLayout(buf []byte) (*DataLayout, error) {
	if len(buf) < EncodedLayoutSize {
		return nil, fmt.Errorf("layout header truncated: %d of %d bytes", len(buf), EncodedLayoutSize)
	}
	l := &DataLayout{}
	for i := range l.blocks {
		off := i * encodedBlockSize
		b := Block{
			EntrySize:  binary.LittleEndian.Uint64(buf[off:]),
			EntryAlign: binary.LittleEndian.Uint64(buf[off+8:]),
			NumEntries: binary.LittleEndian.Uint64(buf[off+16:]),
		}
		if b.EntryAlign == 0 || b.EntryAlign&(b.EntryAlign-1) != 0 {
			return nil, fmt.Errorf("block %s: bad alignment %d", BlockID(i), b.EntryAlign)
		}
		l.blocks[i] = b
	}
	return l, nil
}
