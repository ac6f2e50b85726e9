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

// Package index parses BAI, TBI and CSI index files into an in-memory
// representation that can be queried for the BGZF chunks overlapping a
// region as many times as needed without re-reading the underlying file.
// All three formats share the same hierarchical UCSC-style binning scheme,
// parametrized by (minShift, depth): BAI and TBI fix it at (14, 5); CSI
// records its own values in its header.
package index

import (
	"fmt"
	"io"

	"github.com/genomepath/htsget/internal/bgzf"
	"github.com/genomepath/htsget/internal/binary"
)

// Region is a binary-index-level query: a reference ID (as recorded in the
// indexed container's own reference dictionary, not its name) and a
// half-open, zero-based [Start, End) base-pair interval. A negative
// ReferenceID matches every reference; a zero Start and End together match
// the whole reference (or whole file), mirroring the "class=header" and
// "no coordinates given" request shapes.
type Region struct {
	ReferenceID int32
	Start, End  uint32
}

// AllMappedReads is the region that matches every mapped read in the file,
// regardless of reference.
var AllMappedReads = Region{ReferenceID: -1}

// Bin is a single bin's recorded chunks, as read from the index.
type Bin struct {
	ID uint32
	// Offset is the bin's own virtual-offset lower bound (CSI's loffset).
	// It is zero, and has no filtering effect, for BAI/TBI, which instead
	// rely on the separate linear index recorded in RefIndex.Intervals.
	Offset bgzf.Address
	Chunks []bgzf.Chunk
}

// RefIndex holds everything indexed for a single reference sequence.
type RefIndex struct {
	Bins []Bin
	// Intervals is the BAI/TBI linear index: one virtual offset per
	// linearWindowSize-base tile, used to skip chunks that cannot
	// contain a record overlapping the query region. It is empty for
	// CSI, which folds the same information into each Bin's Offset.
	Intervals []bgzf.Address
}

// Index is a fully parsed BAI, TBI or CSI index.
type Index struct {
	MinShift, Depth int32
	References      []RefIndex
	// Names holds reference names in reference-ID order, for formats
	// (TBI) that embed their own reference dictionary. It is nil for BAI
	// and CSI, whose containers carry the dictionary instead.
	Names []string
	// HeaderEnd is the virtual offset of the first record in the indexed
	// container, i.e. the exclusive end of its header block.
	HeaderEnd bgzf.Address
}

// Chunks returns the BGZF chunks that can contain a record overlapping
// region, in no particular order and without merging. The caller is
// expected to sort and merge the result (the planner merges it with
// bgzf.Merge before handing it to the BGZF range calculator).
func (idx *Index) Chunks(region Region) []*bgzf.Chunk {
	chunks := []*bgzf.Chunk{{End: idx.HeaderEnd}}

	bins := binsForRange(region.Start, region.End, idx.MinShift, idx.Depth)
	wantBin := func(id uint32) bool {
		if region.Start == 0 && region.End == 0 {
			return true
		}
		for _, b := range bins {
			if uint32(b) == id {
				return true
			}
		}
		return false
	}

	for refID, ref := range idx.References {
		if region.ReferenceID >= 0 && int32(refID) != region.ReferenceID {
			continue
		}

		var candidates []*bgzf.Chunk
		for _, bin := range ref.Bins {
			if !wantBin(bin.ID) {
				continue
			}
			for i := range bin.Chunks {
				chunk := bin.Chunks[i]
				if chunk.End >= bin.Offset {
					candidates = append(candidates, &chunk)
				}
			}
		}

		var firstReadOffset bgzf.Address
		if len(ref.Intervals) > 0 {
			if i := int(region.Start / linearWindowSize); i < len(ref.Intervals) {
				firstReadOffset = ref.Intervals[i]
			}
			filtered := candidates[:0]
			for _, c := range candidates {
				if c.End >= firstReadOffset {
					filtered = append(filtered, c)
				}
			}
			candidates = filtered
		}

		chunks = append(chunks, candidates...)
	}
	return chunks
}

// headerReader reads the parts of an index format that vary between BAI,
// TBI and CSI: the binning scheme size and the per-reference bin and
// linear-index layout. parse drives a headerReader to build an Index.
type headerReader interface {
	// readSchemeHeader reads everything between the magic number and the
	// first reference's bin count (inclusive of the reference count
	// field, whose position relative to the rest of the header differs
	// between formats) and returns the binning scheme's parameters and
	// the number of references indexed.
	readSchemeHeader(io.Reader) (minShift, depth, referenceCount int32, err error)
	// readBin reads one bin's header (ID, offset, chunk count) but not
	// its chunks.
	readBin(io.Reader) (id uint32, offset bgzf.Address, chunkCount int32, err error)
	// isVirtualBin reports whether id is a pseudo-bin used for metadata.
	isVirtualBin(id uint32) bool
	// readLinearIndex is called once per reference immediately after its
	// bins have been consumed, and returns that reference's linear index
	// (nil for CSI, which has none).
	readLinearIndex(io.Reader) ([]bgzf.Address, error)
	// referenceNames returns the reference dictionary embedded in the
	// index's own header, once readSchemeHeader has run (nil for formats,
	// like BAI, whose container carries the dictionary instead).
	referenceNames() []string
}

func parse(r io.Reader, magic string, hr headerReader) (*Index, error) {
	if err := binary.ExpectBytes(r, []byte(magic)); err != nil {
		return nil, fmt.Errorf("reading magic: %v", err)
	}

	minShift, depth, referenceCount, err := hr.readSchemeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("reading index header: %v", err)
	}

	idx := &Index{MinShift: minShift, Depth: depth, HeaderEnd: bgzf.LastAddress}
	for i := int32(0); i < referenceCount; i++ {
		var binCount int32
		if err := binary.Read(r, &binCount); err != nil {
			return nil, fmt.Errorf("reading bin count: %v", err)
		}

		ref := RefIndex{}
		for j := int32(0); j < binCount; j++ {
			id, offset, chunkCount, err := hr.readBin(r)
			if err != nil {
				return nil, fmt.Errorf("reading bin: %v", err)
			}
			chunks := make([]bgzf.Chunk, chunkCount)
			if err := binary.Read(r, &chunks); err != nil {
				return nil, fmt.Errorf("reading chunks: %v", err)
			}
			if hr.isVirtualBin(id) {
				continue
			}
			for _, c := range chunks {
				if idx.HeaderEnd > c.Start {
					idx.HeaderEnd = c.Start
				}
			}
			ref.Bins = append(ref.Bins, Bin{ID: id, Offset: offset, Chunks: chunks})
		}

		intervals, err := hr.readLinearIndex(r)
		if err != nil {
			return nil, fmt.Errorf("reading linear index for reference %d: %v", i, err)
		}
		ref.Intervals = intervals
		idx.References = append(idx.References, ref)
	}
	idx.Names = hr.referenceNames()
	return idx, nil
}

// binsForRange returns the IDs of every bin in the hierarchical scheme
// (parametrized by minShift and depth) that can overlap [start, end). The
// derivation follows the reference algorithm given in the CSI index
// specification (and used, specialized to minShift=14/depth=5, by BAI/TBI).
func binsForRange(start, end uint32, minShift, depth int32) []uint16 {
	maxWidth := maximumBinWidth(minShift, depth)
	if end == 0 || end > maxWidth {
		end = maxWidth
	}
	if end <= start {
		return nil
	}
	if start > maxWidth {
		return nil
	}

	end--
	var bins []uint16
	for l, t, s := uint(0), uint(0), uint(minShift+depth*3); l <= uint(depth); l++ {
		b := t + (uint(start) >> s)
		e := t + (uint(end) >> s)
		for i := b; i <= e; i++ {
			bins = append(bins, uint16(i))
		}
		s -= 3
		t += 1 << (l * 3)
	}
	return bins
}

func maximumBinWidth(minShift, depth int32) uint32 {
	return uint32(1 << uint32(minShift+depth*3))
}
