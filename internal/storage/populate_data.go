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
	"path/filepath"
	"unsafe"

	"github.com/wearebase/osrm-backend/internal/storage/io"
)

// readVectorBlock streams one counted vector from r into the block body,
// claiming the block's canaries. The vector's byte length must match the
// block exactly.
func readVectorBlock(r *io.FileReader, layout *DataLayout, mem []byte, bid BlockID, elemSize uint64) error {
	buf := layout.BlockWriter(mem, bid)
	if err := io.ReadVectorInto(r, elemSize, buf); err != nil {
		return fmt.Errorf("block %s: %w", bid, err)
	}
	return nil
}

// PopulateData streams every artifact payload into the region body laid
// out by PopulateLayout. Every block the layout declares is claimed, even
// zero sized ones, so readers always find intact canaries. Graph artifacts
// carry the connectivity checksum of the edges artifact they were built
// from; a mismatch aborts the load.
func (s *Storage) PopulateData(layout *DataLayout, mem []byte) error {
	// absolute path of the on-disk leaf index, zero terminated
	{
		absIndexPath, err := filepath.Abs(s.config.FileIndex)
		if err != nil {
			return fmt.Errorf("resolve file index path: %w", err)
		}
		buf := layout.BlockWriter(mem, BlockFileIndexPath)
		for i := range buf {
			buf[i] = 0
		}
		copy(buf, absIndexPath)
	}

	if err := withReader(s.config.Names, func(r *io.FileReader) error {
		return r.ReadInto(layout.BlockWriter(mem, BlockNameCharData))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnLaneData, func(r *io.FileReader) error {
		return readVectorBlock(r, layout, mem, BlockTurnLaneData, uint64(unsafe.Sizeof(TurnLaneData{})))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnLaneDescriptions, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockLaneDescriptionOffsets, 4); err != nil {
			return err
		}
		return readVectorBlock(r, layout, mem, BlockLaneDescriptionMasks, 2)
	}); err != nil {
		return err
	}

	if err := withReader(s.config.EBGNodes, func(r *io.FileReader) error {
		// node and annotation counts, already sized by the layout pass
		if err := r.Skip(16); err != nil {
			return err
		}
		if err := r.ReadInto(layout.BlockWriter(mem, BlockEdgeBasedNodeData)); err != nil {
			return err
		}
		return r.ReadInto(layout.BlockWriter(mem, BlockAnnotationData))
	}); err != nil {
		return err
	}

	var turnsChecksum uint32
	if err := withReader(s.config.Edges, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockTurnInstruction, uint64(unsafe.Sizeof(TurnInstruction{}))); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockLaneDataID, 2); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockEntryClassID, 2); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockPreTurnBearing, 1); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockPostTurnBearing, 1); err != nil {
			return err
		}
		var err error
		turnsChecksum, err = r.ReadUint32()
		return err
	}); err != nil {
		return err
	}

	if err := withReader(s.config.Geometry, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockGeometriesIndex, 4); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockGeometriesNodeList, 4); err != nil {
			return err
		}
		for _, bid := range []BlockID{
			BlockGeometriesFwdWeightList,
			BlockGeometriesRevWeightList,
			BlockGeometriesFwdDurationList,
			BlockGeometriesRevDurationList,
		} {
			// packed vector element count
			if _, err := r.ReadElementCount64(); err != nil {
				return err
			}
			if err := readVectorBlock(r, layout, mem, bid, 8); err != nil {
				return err
			}
		}
		if err := readVectorBlock(r, layout, mem, BlockGeometriesFwdDatasourcesList, 1); err != nil {
			return err
		}
		return readVectorBlock(r, layout, mem, BlockGeometriesRevDatasourcesList, 1)
	}); err != nil {
		return err
	}

	if err := withReader(s.config.DatasourceNames, func(r *io.FileReader) error {
		return r.ReadInto(layout.BlockWriter(mem, BlockDatasourcesNames))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnWeightPenalties, func(r *io.FileReader) error {
		return readVectorBlock(r, layout, mem, BlockTurnWeightPenalties, 2)
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnDurationPenalties, func(r *io.FileReader) error {
		return readVectorBlock(r, layout, mem, BlockTurnDurationPenalties, 2)
	}); err != nil {
		return err
	}

	if err := withReader(s.config.Timestamp, func(r *io.FileReader) error {
		return r.ReadInto(layout.BlockWriter(mem, BlockTimestamp))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.RAMIndex, func(r *io.FileReader) error {
		if err := r.Skip(8); err != nil {
			return err
		}
		if err := r.ReadInto(layout.BlockWriter(mem, BlockRSearchTree)); err != nil {
			return err
		}
		if err := r.Skip(8); err != nil {
			return err
		}
		return r.ReadInto(layout.BlockWriter(mem, BlockRSearchTreeLevels))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.Properties, func(r *io.FileReader) error {
		return r.ReadInto(layout.BlockWriter(mem, BlockProperties))
	}); err != nil {
		return err
	}

	if err := withReader(s.config.IntersectionClassData, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockBearingValues, 2); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockBearingClassID, 4); err != nil {
			return err
		}
		// sum of range lengths, reconstructed by readers
		if _, err := r.ReadUint32(); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockBearingOffsets, 4); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockBearingBlocks, uint64(unsafe.Sizeof(RangeTableBlock{}))); err != nil {
			return err
		}
		return readVectorBlock(r, layout, mem, BlockEntryClass, 4)
	}); err != nil {
		return err
	}

	if err := withReader(s.config.NBGNodes, func(r *io.FileReader) error {
		if err := r.Skip(8); err != nil {
			return err
		}
		if err := r.ReadInto(layout.BlockWriter(mem, BlockCoordinateList)); err != nil {
			return err
		}
		// packed OSM ID element count
		if err := r.Skip(8); err != nil {
			return err
		}
		return readVectorBlock(r, layout, mem, BlockOSMNodeIDList, 8)
	}); err != nil {
		return err
	}

	if err := s.dataCH(layout, mem, turnsChecksum); err != nil {
		return err
	}
	if err := s.dataMLD(layout, mem, turnsChecksum); err != nil {
		return err
	}

	return withReader(s.config.ManeuverOverrides, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockManeuverOverrides, uint64(unsafe.Sizeof(ManeuverOverride{}))); err != nil {
			return err
		}
		return readVectorBlock(r, layout, mem, BlockManeuverOverrideNodeSequences, 4)
	})
}

// dataCH loads the contracted hierarchy blocks and cross-checks the
// connectivity checksum against the edges artifact.
func (s *Storage) dataCH(layout *DataLayout, mem []byte, turnsChecksum uint32) error {
	if !s.config.HasCH() {
		layout.BlockWriter(mem, BlockHSGRChecksum)
		layout.BlockWriter(mem, BlockCHGraphNodeList)
		layout.BlockWriter(mem, BlockCHGraphEdgeList)
		for i := 0; i < NumMetrics; i++ {
			layout.BlockWriter(mem, BlockCHEdgeFilter0+BlockID(i))
		}
		return nil
	}
	return withReader(s.config.HSGR, func(r *io.FileReader) error {
		checksumBuf := layout.BlockWriter(mem, BlockHSGRChecksum)
		if err := r.ReadInto(checksumBuf); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockCHGraphNodeList, uint64(unsafe.Sizeof(GraphNodeEntry{}))); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockCHGraphEdgeList, uint64(unsafe.Sizeof(GraphEdgeEntry{}))); err != nil {
			return err
		}
		numMetrics, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		if numMetrics > NumMetrics {
			return ErrLayoutOverflow
		}
		for i := uint64(0); i < numMetrics; i++ {
			if err := readVectorBlock(r, layout, mem, BlockCHEdgeFilter0+BlockID(i), 4); err != nil {
				return err
			}
		}
		for i := numMetrics; i < NumMetrics; i++ {
			layout.BlockWriter(mem, BlockCHEdgeFilter0+BlockID(i))
		}
		graphChecksum, err := r.ReadUint32()
		if err != nil {
			return err
		}
		if graphChecksum != turnsChecksum {
			return &ChecksumMismatchError{
				GraphPath:     s.config.HSGR,
				GraphChecksum: graphChecksum,
				EdgesPath:     s.config.Edges,
				EdgesChecksum: turnsChecksum,
			}
		}
		return nil
	})
}

// dataMLD loads the multi-level partition blocks.
func (s *Storage) dataMLD(layout *DataLayout, mem []byte, turnsChecksum uint32) error {
	if s.config.Partition != "" {
		if err := withReader(s.config.Partition, func(r *io.FileReader) error {
			if err := r.ReadInto(layout.BlockWriter(mem, BlockMLDLevelData)); err != nil {
				return err
			}
			if err := readVectorBlock(r, layout, mem, BlockMLDPartition, 4); err != nil {
				return err
			}
			return readVectorBlock(r, layout, mem, BlockMLDCellToChildren, 4)
		}); err != nil {
			return err
		}
	} else {
		layout.BlockWriter(mem, BlockMLDLevelData)
		layout.BlockWriter(mem, BlockMLDPartition)
		layout.BlockWriter(mem, BlockMLDCellToChildren)
	}

	if s.config.Cells != "" {
		if err := withReader(s.config.Cells, func(r *io.FileReader) error {
			if err := readVectorBlock(r, layout, mem, BlockMLDCellSourceBoundary, 4); err != nil {
				return err
			}
			if err := readVectorBlock(r, layout, mem, BlockMLDCellDestinationBoundary, 4); err != nil {
				return err
			}
			if err := readVectorBlock(r, layout, mem, BlockMLDCells, uint64(unsafe.Sizeof(CellData{}))); err != nil {
				return err
			}
			return readVectorBlock(r, layout, mem, BlockMLDCellLevelOffsets, 8)
		}); err != nil {
			return err
		}
	} else {
		layout.BlockWriter(mem, BlockMLDCellSourceBoundary)
		layout.BlockWriter(mem, BlockMLDCellDestinationBoundary)
		layout.BlockWriter(mem, BlockMLDCells)
		layout.BlockWriter(mem, BlockMLDCellLevelOffsets)
	}

	if s.config.CellMetrics != "" {
		if err := withReader(s.config.CellMetrics, func(r *io.FileReader) error {
			numMetrics, err := r.ReadElementCount64()
			if err != nil {
				return err
			}
			if numMetrics > NumMetrics {
				return ErrLayoutOverflow
			}
			for i := uint64(0); i < numMetrics; i++ {
				if err := readVectorBlock(r, layout, mem, BlockMLDCellWeights0+BlockID(i), 4); err != nil {
					return err
				}
				if err := readVectorBlock(r, layout, mem, BlockMLDCellDurations0+BlockID(i), 4); err != nil {
					return err
				}
			}
			for i := numMetrics; i < NumMetrics; i++ {
				layout.BlockWriter(mem, BlockMLDCellWeights0+BlockID(i))
				layout.BlockWriter(mem, BlockMLDCellDurations0+BlockID(i))
			}
			return nil
		}); err != nil {
			return err
		}
	} else {
		for i := 0; i < NumMetrics; i++ {
			layout.BlockWriter(mem, BlockMLDCellWeights0+BlockID(i))
			layout.BlockWriter(mem, BlockMLDCellDurations0+BlockID(i))
		}
	}

	if s.config.MLDGraph == "" {
		layout.BlockWriter(mem, BlockMLDGraphNodeList)
		layout.BlockWriter(mem, BlockMLDGraphEdgeList)
		layout.BlockWriter(mem, BlockMLDGraphNodeToOffset)
		return nil
	}
	return withReader(s.config.MLDGraph, func(r *io.FileReader) error {
		if err := readVectorBlock(r, layout, mem, BlockMLDGraphNodeList, uint64(unsafe.Sizeof(GraphNodeEntry{}))); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockMLDGraphEdgeList, uint64(unsafe.Sizeof(MLDGraphEdgeEntry{}))); err != nil {
			return err
		}
		if err := readVectorBlock(r, layout, mem, BlockMLDGraphNodeToOffset, 4); err != nil {
			return err
		}
		graphChecksum, err := r.ReadUint32()
		if err != nil {
			return err
		}
		if graphChecksum != turnsChecksum {
			return &ChecksumMismatchError{
				GraphPath:     s.config.MLDGraph,
				GraphChecksum: graphChecksum,
				EdgesPath:     s.config.Edges,
				EdgesChecksum: turnsChecksum,
			}
		}
		return nil
	})
}
