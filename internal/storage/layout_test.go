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
	"bytes"
	"errors"
	"testing"
	"unsafe"
)

func TestBlockFor(t *testing.T) {
	b := BlockFor[uint32](5)
	if b.EntrySize != 4 || b.EntryAlign != 4 || b.NumEntries != 5 {
		t.Fatalf("BlockFor[uint32](5) = %+v", b)
	}
	if b.ByteSize() != 20 {
		t.Fatalf("ByteSize() = %d, want 20", b.ByteSize())
	}

	b = BlockFor[LevelData](1)
	if b.EntrySize != uint64(unsafe.Sizeof(LevelData{})) || b.EntryAlign != 8 {
		t.Fatalf("BlockFor[LevelData](1) = %+v", b)
	}
}

func TestBlockNames(t *testing.T) {
	if got := BlockNameCharData.String(); got != "NAME_CHAR_DATA" {
		t.Fatalf("first block name %q", got)
	}
	if got := BlockManeuverOverrideNodeSequences.String(); got != "MANEUVER_OVERRIDE_NODE_SEQUENCES" {
		t.Fatalf("last block name %q", got)
	}
	if got := BlockID(NumBlocks).String(); got != "INVALID_BLOCK(73)" {
		t.Fatalf("out of range name %q", got)
	}
}

// fills a layout with a few representative blocks; everything else keeps
// the default empty descriptor.
func testLayout() *DataLayout {
	l := NewDataLayout()
	l.SetBlock(BlockNameCharData, BlockFor[byte](13))
	l.SetBlock(BlockCoordinateList, BlockFor[Coordinate](3))
	l.SetBlock(BlockRSearchTreeLevels, BlockFor[uint64](2))
	l.SetBlock(BlockTurnWeightPenalties, BlockFor[TurnPenalty](5))
	return l
}

func TestLayoutWriteReadRoundTrip(t *testing.T) {
	l := testLayout()
	base := make([]byte, l.TotalSize())

	payload := []byte("hello, blocks")
	copy(l.BlockWriter(base, BlockNameCharData), payload)
	coords := l.BlockWriter(base, BlockCoordinateList)
	coords[0] = 0xAB

	got, err := l.BlockReader(base, BlockNameCharData)
	if err != nil {
		t.Fatalf("BlockReader failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}
	got, err = l.BlockReader(base, BlockCoordinateList)
	if err != nil {
		t.Fatalf("BlockReader failed: %v", err)
	}
	if len(got) != 24 || got[0] != 0xAB {
		t.Fatalf("coordinate block: len=%d first=%#x", len(got), got[0])
	}
}

func TestLayoutOffsetsAligned(t *testing.T) {
	l := testLayout()
	base := make([]byte, l.TotalSize())

	var prevEnd uint64
	for bid := BlockID(0); int(bid) < NumBlocks; bid++ {
		off := l.AlignedBlockOffset(base, bid)
		if off < prevEnd+CanarySize {
			t.Fatalf("block %s at offset %d overlaps previous end %d", bid, off, prevEnd)
		}
		addr := uintptr(unsafe.Pointer(&base[0])) + uintptr(off)
		if align := uintptr(l.blocks[bid].EntryAlign); addr%align != 0 {
			t.Fatalf("block %s body address %#x not %d-aligned", bid, addr, align)
		}
		end := l.BlockEnd(base, bid)
		if end+CanarySize > uint64(len(base)) {
			t.Fatalf("block %s ends at %d beyond the region of %d bytes", bid, end, len(base))
		}
		prevEnd = end
	}
}

func TestLayoutUnclaimedBlockFailsCanaryCheck(t *testing.T) {
	l := testLayout()
	base := make([]byte, l.TotalSize())

	var canaryErr *CanaryError
	if _, err := l.BlockReader(base, BlockNameCharData); !errors.As(err, &canaryErr) {
		t.Fatalf("got %v, want CanaryError", err)
	}
	if canaryErr.Block != BlockNameCharData || canaryErr.End {
		t.Fatalf("canary error %+v, want start canary of NAME_CHAR_DATA", canaryErr)
	}
}

func TestLayoutCorruptedEndCanary(t *testing.T) {
	l := testLayout()
	base := make([]byte, l.TotalSize())
	l.BlockWriter(base, BlockNameCharData)

	end := l.BlockEnd(base, BlockNameCharData)
	base[end] ^= 0xFF

	var canaryErr *CanaryError
	if _, err := l.BlockReader(base, BlockNameCharData); !errors.As(err, &canaryErr) {
		t.Fatalf("got %v, want CanaryError", err)
	}
	if canaryErr.Block != BlockNameCharData || !canaryErr.End {
		t.Fatalf("canary error %+v, want end canary of NAME_CHAR_DATA", canaryErr)
	}
}

func TestLayoutEncodeDecodeRoundTrip(t *testing.T) {
	l := testLayout()
	buf := make([]byte, EncodedLayoutSize)
	l.Encode(buf)

	decoded, err := DecodeLayout(buf)
	if err != nil {
		t.Fatalf("DecodeLayout failed: %v", err)
	}
	for bid := BlockID(0); int(bid) < NumBlocks; bid++ {
		if decoded.Entries(bid) != l.Entries(bid) || decoded.ByteSize(bid) != l.ByteSize(bid) {
			t.Fatalf("block %s decoded as %d entries %d bytes, want %d entries %d bytes",
				bid, decoded.Entries(bid), decoded.ByteSize(bid), l.Entries(bid), l.ByteSize(bid))
		}
	}
	if decoded.TotalSize() != l.TotalSize() {
		t.Fatalf("decoded total %d, want %d", decoded.TotalSize(), l.TotalSize())
	}
}

func TestDecodeLayoutRejectsBadAlignment(t *testing.T) {
	l := testLayout()
	buf := make([]byte, EncodedLayoutSize)
	l.Encode(buf)
	buf[8] = 3 // alignment of the first block

	if _, err := DecodeLayout(buf); err == nil {
		t.Fatal("DecodeLayout accepted a non power-of-two alignment")
	}
	if _, err := DecodeLayout(buf[:10]); err == nil {
		t.Fatal("DecodeLayout accepted a truncated header")
	}
}
