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

// Package brc (the BGZF range calculator) turns BGZF virtual-offset chunks
// from the index reader into physical byte ranges over the compressed data
// file, decorated with the file's header and BGZF EOF marker.
//
// Ranges are rounded up to whole-block boundaries rather than reconstructed
// byte-for-byte: a range always starts at a block's coffset and is allowed
// to run past a chunk's true end into whichever following block boundary is
// cheapest to compute, since every BGZF block is independently valid and
// concatenating a few extra blocks never corrupts the result, only widens
// it. This is what lets ticket planning stay pure byte-range arithmetic,
// with no need to fetch and recompress partial blocks.
package brc

import (
	"sort"

	"github.com/genomepath/htsget/internal/bgzf"
)

// Range is an inclusive byte range over a data file.
type Range struct {
	Begin, End uint64
}

// Options bounds the file being planned against.
type Options struct {
	// FileLength is the total size of the compressed data file in bytes.
	FileLength uint64
	// HeaderLength is the size, in bytes, of the format's fixed header
	// prologue (the first BGZF block(s), by convention block-aligned).
	HeaderLength uint64
	// IncludeHeader, when true, prepends [0, HeaderLength-1].
	IncludeHeader bool
	// IncludeEOF, when true, appends the trailing BGZF EOF marker range.
	IncludeEOF bool
}

// Calculate converts chunks (in any order; Calculate sorts its own copy)
// into physical byte ranges, coalesces any that touch or overlap once
// rounded to block boundaries, and decorates the result with the header and
// EOF ranges per opts. The header and EOF ranges are merged into the body
// only where they overlap it; a body range that merely ends where one of
// them begins stays a separate range.
func Calculate(chunks []*bgzf.Chunk, opts Options) []Range {
	var bodyLimit uint64
	if opts.IncludeEOF && opts.FileLength >= bgzf.EOFMarkerLength {
		bodyLimit = opts.FileLength - bgzf.EOFMarkerLength - 1
	} else if opts.FileLength > 0 {
		bodyLimit = opts.FileLength - 1
	}

	sorted := make([]*bgzf.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var body []Range
	for i, c := range sorted {
		begin := c.Start.BlockOffset()
		blockStart := c.End.BlockOffset()

		var end uint64
		if c.End.DataOffset() == 0 && blockStart > 0 {
			// None of the block at blockStart is needed; since BGZF
			// blocks are laid out back to back, the needed data ends
			// exactly at the previous byte.
			end = blockStart - 1
		} else {
			// Some prefix of the block at blockStart is needed, but its
			// true compressed length is unknown without reading it.
			// Over-approximate up to the next chunk's block (or the end
			// of the body) rather than re-parsing to find it exactly.
			limit := bodyLimit
			if i+1 < len(sorted) {
				if next := sorted[i+1].Start.BlockOffset(); next > 0 && next-1 < limit {
					limit = next - 1
				}
			}
			end = limit
		}
		if end < begin {
			end = begin
		}
		body = append(body, Range{begin, end})
	}

	body = coalesce(body, true)

	var result []Range
	if opts.IncludeHeader && opts.HeaderLength > 0 {
		result = append(result, Range{0, opts.HeaderLength - 1})
	}
	result = append(result, body...)
	if opts.IncludeEOF && opts.FileLength >= bgzf.EOFMarkerLength {
		result = append(result, Range{opts.FileLength - bgzf.EOFMarkerLength, opts.FileLength - 1})
	}
	return coalesce(result, false)
}

// WholeFile returns the single range covering an entire, non-BGZF-decorated
// file (used for FASTA/FASTQ and whole-file requests without a region).
func WholeFile(fileLength uint64) []Range {
	if fileLength == 0 {
		return nil
	}
	return []Range{{0, fileLength - 1}}
}

// coalesce merges ranges whose begins are not strictly greater than the
// previous range's end (plus one when joinAdjacent is set), after sorting
// by begin.
func coalesce(ranges []Range, joinAdjacent bool) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Begin < ranges[j].Begin
	})

	merged := []Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		limit := last.End
		if joinAdjacent {
			limit++
		}
		if r.Begin <= limit {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
