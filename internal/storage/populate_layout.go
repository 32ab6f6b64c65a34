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
	"log/slog"
	"path/filepath"
	"unsafe"

	"github.com/wearebase/osrm-backend/internal/storage/io"
)

// withReader opens an artifact with fingerprint verification, runs fn on
// it and closes it.
func withReader(path string, fn func(r *io.FileReader) error) error {
	r, err := io.OpenReader(path, io.VerifyFingerprint)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := fn(r); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// PopulateLayout scans every artifact of the dataset and sizes the block
// catalog. No payload is read; each artifact is opened once and its counts
// extracted. The same files are streamed again by PopulateData, which
// relies on the counts recorded here.
func (s *Storage) PopulateLayout(layout *DataLayout) error {
	absIndexPath, err := filepath.Abs(s.config.FileIndex)
	if err != nil {
		return fmt.Errorf("resolve file index path: %w", err)
	}
	layout.SetBlock(BlockFileIndexPath, BlockFor[byte](uint64(len(absIndexPath))+1))

	slog.Info("Loading names", "path", s.config.Names)
	if err := withReader(s.config.Names, func(r *io.FileReader) error {
		size, err := r.Size()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockNameCharData, BlockFor[byte](size))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnLaneDescriptions, func(r *io.FileReader) error {
		numOffsets, err := io.ReadVectorSize[uint32](r)
		if err != nil {
			return err
		}
		numMasks, err := io.ReadVectorSize[uint16](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockLaneDescriptionOffsets, BlockFor[uint32](numOffsets))
		layout.SetBlock(BlockLaneDescriptionMasks, BlockFor[uint16](numMasks))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.Edges, func(r *io.FileReader) error {
		// All five per-edge arrays come from the same records, so the
		// first vector's length sizes them all.
		numEdges, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockPreTurnBearing, BlockFor[TurnBearing](numEdges))
		layout.SetBlock(BlockPostTurnBearing, BlockFor[TurnBearing](numEdges))
		layout.SetBlock(BlockTurnInstruction, BlockFor[TurnInstruction](numEdges))
		layout.SetBlock(BlockLaneDataID, BlockFor[LaneDataID](numEdges))
		layout.SetBlock(BlockEntryClassID, BlockFor[EntryClassID](numEdges))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.EBGNodes, func(r *io.FileReader) error {
		numNodes, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		numAnnotations, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockEdgeBasedNodeData, BlockFor[EdgeBasedNode](numNodes))
		layout.SetBlock(BlockAnnotationData, BlockFor[NodeAnnotation](numAnnotations))
		return nil
	}); err != nil {
		return err
	}

	if err := s.layoutCH(layout); err != nil {
		return err
	}

	if err := withReader(s.config.RAMIndex, func(r *io.FileReader) error {
		numTreeNodes, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockRSearchTree, BlockFor[RTreeNode](numTreeNodes))
		if err := r.Skip(numTreeNodes * uint64(unsafe.Sizeof(RTreeNode{}))); err != nil {
			return err
		}
		numLevels, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockRSearchTreeLevels, BlockFor[uint64](numLevels))
		return nil
	}); err != nil {
		return err
	}

	layout.SetBlock(BlockProperties, BlockFor[ProfileProperties](1))

	if err := withReader(s.config.Timestamp, func(r *io.FileReader) error {
		size, err := r.Size()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockTimestamp, BlockFor[byte](size))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnWeightPenalties, func(r *io.FileReader) error {
		numPenalties, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockTurnWeightPenalties, BlockFor[TurnPenalty](numPenalties))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnDurationPenalties, func(r *io.FileReader) error {
		numPenalties, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockTurnDurationPenalties, BlockFor[TurnPenalty](numPenalties))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.NBGNodes, func(r *io.FileReader) error {
		numCoordinates, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockCoordinateList, BlockFor[Coordinate](numCoordinates))
		if err := r.Skip(numCoordinates * uint64(unsafe.Sizeof(Coordinate{}))); err != nil {
			return err
		}
		// skip the packed OSM ID element count, the node ID list is
		// sized by its block count
		if err := r.Skip(8); err != nil {
			return err
		}
		numIDBlocks, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockOSMNodeIDList, BlockFor[uint64](numIDBlocks))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.Geometry, func(r *io.FileReader) error {
		numIndices, err := io.ReadVectorSize[uint32](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockGeometriesIndex, BlockFor[uint32](numIndices))

		numGeometryNodes, err := io.ReadVectorSize[NodeID](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockGeometriesNodeList, BlockFor[NodeID](numGeometryNodes))

		// Weight and duration lists are bit-packed; each carries its
		// element count ahead of the block vector. Forward and reverse
		// lists of a kind always have the same block count.
		if _, err := r.ReadElementCount64(); err != nil {
			return err
		}
		numWeightBlocks, err := io.ReadVectorSize[uint64](r)
		if err != nil {
			return err
		}
		if _, err := r.ReadElementCount64(); err != nil {
			return err
		}
		if _, err := io.ReadVectorSize[uint64](r); err != nil {
			return err
		}
		if _, err := r.ReadElementCount64(); err != nil {
			return err
		}
		numDurationBlocks, err := io.ReadVectorSize[uint64](r)
		if err != nil {
			return err
		}

		layout.SetBlock(BlockGeometriesFwdWeightList, BlockFor[uint64](numWeightBlocks))
		layout.SetBlock(BlockGeometriesRevWeightList, BlockFor[uint64](numWeightBlocks))
		layout.SetBlock(BlockGeometriesFwdDurationList, BlockFor[uint64](numDurationBlocks))
		layout.SetBlock(BlockGeometriesRevDurationList, BlockFor[uint64](numDurationBlocks))
		layout.SetBlock(BlockGeometriesFwdDatasourcesList, BlockFor[DatasourceID](numGeometryNodes))
		layout.SetBlock(BlockGeometriesRevDatasourcesList, BlockFor[DatasourceID](numGeometryNodes))
		return nil
	}); err != nil {
		return err
	}

	layout.SetBlock(BlockDatasourcesNames, BlockFor[Datasources](1))

	if err := withReader(s.config.IntersectionClassData, func(r *io.FileReader) error {
		numBearingValues, err := io.ReadVectorSize[DiscreteBearing](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockBearingValues, BlockFor[DiscreteBearing](numBearingValues))

		numBearingClasses, err := io.ReadVectorSize[BearingClassID](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockBearingClassID, BlockFor[BearingClassID](numBearingClasses))

		// sum of range lengths, only needed at query time
		if err := r.Skip(4); err != nil {
			return err
		}
		numOffsets, err := io.ReadVectorSize[uint32](r)
		if err != nil {
			return err
		}
		numRangeBlocks, err := io.ReadVectorSize[RangeTableBlock](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockBearingOffsets, BlockFor[uint32](numOffsets))
		layout.SetBlock(BlockBearingBlocks, BlockFor[RangeTableBlock](numRangeBlocks))

		numEntryClasses, err := io.ReadVectorSize[EntryClass](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockEntryClass, BlockFor[EntryClass](numEntryClasses))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.TurnLaneData, func(r *io.FileReader) error {
		numLaneTuples, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		layout.SetBlock(BlockTurnLaneData, BlockFor[TurnLaneData](numLaneTuples))
		return nil
	}); err != nil {
		return err
	}

	if err := withReader(s.config.ManeuverOverrides, func(r *io.FileReader) error {
		numOverrides, err := io.ReadVectorSize[ManeuverOverride](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockManeuverOverrides, BlockFor[ManeuverOverride](numOverrides))
		numSequenceNodes, err := io.ReadVectorSize[NodeID](r)
		if err != nil {
			return err
		}
		layout.SetBlock(BlockManeuverOverrideNodeSequences, BlockFor[NodeID](numSequenceNodes))
		return nil
	}); err != nil {
		return err
	}

	return s.layoutMLD(layout)
}

// layoutCH sizes the contracted hierarchy blocks, or zero blocks when no
// hsgr artifact is present.
func (s *Storage) layoutCH(layout *DataLayout) error {
	if !s.config.HasCH() {
		layout.SetBlock(BlockHSGRChecksum, BlockFor[uint32](0))
		layout.SetBlock(BlockCHGraphNodeList, BlockFor[GraphNodeEntry](0))
		layout.SetBlock(BlockCHGraphEdgeList, BlockFor[GraphEdgeEntry](0))
		for i := 0; i < NumMetrics; i++ {
			layout.SetBlock(BlockCHEdgeFilter0+BlockID(i), BlockFor[uint32](0))
		}
		return nil
	}
	return withReader(s.config.HSGR, func(r *io.FileReader) error {
		// dataset checksum
		if err := r.Skip(4); err != nil {
			return err
		}
		numNodes, err := io.ReadVectorSize[GraphNodeEntry](r)
		if err != nil {
			return err
		}
		numEdges, err := io.ReadVectorSize[GraphEdgeEntry](r)
		if err != nil {
			return err
		}
		numMetrics, err := r.ReadElementCount64()
		if err != nil {
			return err
		}
		if numMetrics > NumMetrics {
			return ErrLayoutOverflow
		}
		layout.SetBlock(BlockHSGRChecksum, BlockFor[uint32](1))
		layout.SetBlock(BlockCHGraphNodeList, BlockFor[GraphNodeEntry](numNodes))
		layout.SetBlock(BlockCHGraphEdgeList, BlockFor[GraphEdgeEntry](numEdges))
		for i := uint64(0); i < numMetrics; i++ {
			layout.SetBlock(BlockCHEdgeFilter0+BlockID(i), BlockFor[uint32](numEdges))
		}
		for i := numMetrics; i < NumMetrics; i++ {
			layout.SetBlock(BlockCHEdgeFilter0+BlockID(i), BlockFor[uint32](0))
		}
		return nil
	})
}

// layoutMLD sizes the multi-level partition blocks. Each of the four
// artifacts is optional on its own; absent ones leave zero blocks.
func (s *Storage) layoutMLD(layout *DataLayout) error {
	if s.config.Partition != "" {
		if err := withReader(s.config.Partition, func(r *io.FileReader) error {
			if err := r.Skip(uint64(unsafe.Sizeof(LevelData{}))); err != nil {
				return err
			}
			layout.SetBlock(BlockMLDLevelData, BlockFor[LevelData](1))
			numPartitionIDs, err := io.ReadVectorSize[uint32](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDPartition, BlockFor[uint32](numPartitionIDs))
			numChildren, err := io.ReadVectorSize[uint32](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDCellToChildren, BlockFor[uint32](numChildren))
			return nil
		}); err != nil {
			return err
		}
	} else {
		layout.SetBlock(BlockMLDLevelData, BlockFor[LevelData](0))
		layout.SetBlock(BlockMLDPartition, BlockFor[uint32](0))
		layout.SetBlock(BlockMLDCellToChildren, BlockFor[uint32](0))
	}

	if s.config.Cells != "" {
		if err := withReader(s.config.Cells, func(r *io.FileReader) error {
			numSource, err := io.ReadVectorSize[NodeID](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDCellSourceBoundary, BlockFor[NodeID](numSource))
			numDestination, err := io.ReadVectorSize[NodeID](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDCellDestinationBoundary, BlockFor[NodeID](numDestination))
			numCells, err := io.ReadVectorSize[CellData](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDCells, BlockFor[CellData](numCells))
			numLevelOffsets, err := io.ReadVectorSize[uint64](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDCellLevelOffsets, BlockFor[uint64](numLevelOffsets))
			return nil
		}); err != nil {
			return err
		}
	} else {
		layout.SetBlock(BlockMLDCellSourceBoundary, BlockFor[NodeID](0))
		layout.SetBlock(BlockMLDCellDestinationBoundary, BlockFor[NodeID](0))
		layout.SetBlock(BlockMLDCells, BlockFor[CellData](0))
		layout.SetBlock(BlockMLDCellLevelOffsets, BlockFor[uint64](0))
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
				numWeights, err := io.ReadVectorSize[EdgeWeight](r)
				if err != nil {
					return err
				}
				layout.SetBlock(BlockMLDCellWeights0+BlockID(i), BlockFor[EdgeWeight](numWeights))
				numDurations, err := io.ReadVectorSize[EdgeDuration](r)
				if err != nil {
					return err
				}
				layout.SetBlock(BlockMLDCellDurations0+BlockID(i), BlockFor[EdgeDuration](numDurations))
			}
			for i := numMetrics; i < NumMetrics; i++ {
				layout.SetBlock(BlockMLDCellWeights0+BlockID(i), BlockFor[EdgeWeight](0))
				layout.SetBlock(BlockMLDCellDurations0+BlockID(i), BlockFor[EdgeDuration](0))
			}
			return nil
		}); err != nil {
			return err
		}
	} else {
		for i := 0; i < NumMetrics; i++ {
			layout.SetBlock(BlockMLDCellWeights0+BlockID(i), BlockFor[EdgeWeight](0))
			layout.SetBlock(BlockMLDCellDurations0+BlockID(i), BlockFor[EdgeDuration](0))
		}
	}

	if s.config.MLDGraph != "" {
		return withReader(s.config.MLDGraph, func(r *io.FileReader) error {
			numNodes, err := io.ReadVectorSize[GraphNodeEntry](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDGraphNodeList, BlockFor[GraphNodeEntry](numNodes))
			numEdges, err := io.ReadVectorSize[MLDGraphEdgeEntry](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDGraphEdgeList, BlockFor[MLDGraphEdgeEntry](numEdges))
			numNodeOffsets, err := io.ReadVectorSize[uint32](r)
			if err != nil {
				return err
			}
			layout.SetBlock(BlockMLDGraphNodeToOffset, BlockFor[uint32](numNodeOffsets))
			return nil
		})
	}
	layout.SetBlock(BlockMLDGraphNodeList, BlockFor[GraphNodeEntry](0))
	layout.SetBlock(BlockMLDGraphEdgeList, BlockFor[MLDGraphEdgeEntry](0))
	layout.SetBlock(BlockMLDGraphNodeToOffset, BlockFor[uint32](0))
	return nil
}
