// Copyright 2026 The genomepath-htsget Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"fmt"
	"io"

	"github.com/genomepath/htsget/internal/bgzf"
	"github.com/genomepath/htsget/internal/binary"
)

const (
	baiMagic = "BAI\x01"

	// baiMinShift and baiDepth fix BAM's binning scheme: a 6-level
	// (depth=5) hierarchy with a minimum bin width of 2^14 bases, per SAM
	// specification section 5.1.3.
	baiMinShift = 14
	baiDepth    = 5

	// baiMetadataBinID is reserved for per-reference chunk/record
	// metadata rather than a real bin of alignments.
	baiMetadataBinID = 37450

	// linearWindowSize is the width, in reference bases, of each tile in
	// the BAI/TBI linear index, per the SAM specification section 5.1.3.
	linearWindowSize = 1 << 14
)

// ParseBAI parses a BAI index read in full from r.
func ParseBAI(r io.Reader) (*Index, error) {
	return parse(r, baiMagic, &baiHeaderReader{})
}

type baiHeaderReader struct{}

func (*baiHeaderReader) readSchemeHeader(r io.Reader) (minShift, depth, referenceCount int32, err error) {
	if err := binary.Read(r, &referenceCount); err != nil {
		return 0, 0, 0, fmt.Errorf("reading reference count: %v", err)
	}
	return baiMinShift, baiDepth, referenceCount, nil
}

func (*baiHeaderReader) readBin(r io.Reader) (id uint32, offset bgzf.Address, chunkCount int32, err error) {
	var bin struct {
		ID     uint32
		Chunks int32
	}
	if err := binary.Read(r, &bin); err != nil {
		return 0, 0, 0, fmt.Errorf("reading bin header: %v", err)
	}
	return bin.ID, 0, bin.Chunks, nil
}

func (*baiHeaderReader) isVirtualBin(id uint32) bool {
	return id == baiMetadataBinID
}

func (*baiHeaderReader) readLinearIndex(r io.Reader) ([]bgzf.Address, error) {
	return readLinearIndex(r)
}

func (*baiHeaderReader) referenceNames() []string {
	return nil
}

// readLinearIndex reads the BAI/TBI linear index shared layout: an int32
// interval count followed by that many little-endian virtual offsets.
func readLinearIndex(r io.Reader) ([]bgzf.Address, error) {
	var count int32
	if err := binary.Read(r, &count); err != nil {
		return nil, fmt.Errorf("reading interval count: %v", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("invalid interval count (%d)", count)
	}
	if count == 0 {
		return nil, nil
	}
	offsets := make([]uint64, count)
	if err := binary.Read(r, &offsets); err != nil {
		return nil, fmt.Errorf("reading linear index offsets: %v", err)
	}
	addresses := make([]bgzf.Address, count)
	for i, o := range offsets {
		addresses[i] = bgzf.Address(o)
	}
	return addresses, nil
}
