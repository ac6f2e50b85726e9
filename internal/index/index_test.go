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
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/genomepath/htsget/internal/bgzf"
	"github.com/genomepath/htsget/internal/binary"
)

func TestBinsForRange(t *testing.T) {
	metadataID := 37450
	allBins := make([]uint16, metadataID-1)
	for i := range allBins {
		allBins[i] = uint16(i)
	}

	testCases := []struct {
		name            string
		start, end      uint32
		minShift, depth int32
		bins            []uint16
	}{
		{"end clamping", 0, math.MaxUint32, 14, 5, allBins},
		{"end past maximum", 0, maximumBinWidth(14, 5) + 1, 14, 5, allBins},
		{"start past maximum", maximumBinWidth(14, 5) + 1, maximumBinWidth(14, 5) + 2, 14, 5, nil},
		{"narrow region", 0, 1, 14, 5, []uint16{0, 1, 9, 73, 585, 4681}},
		{"narrow depth", 0, 1, 14, 4, []uint16{0, 1, 9, 73, 585}},
		{"invalid range (start > end)", math.MaxUint32, 0, 14, 5, nil},
		{"swapped endpoints", 2, 1, 14, 5, nil},
		{"zero-width region", 1, 1, 14, 5, nil},
		{"zero end", 1, 0, 14, 5, allBins},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got, want := binsForRange(tc.start, tc.end, tc.minShift, tc.depth), tc.bins; !reflect.DeepEqual(got, want) {
				t.Fatalf("binsForRange(%v, %v) = %+v, want %+v", tc.start, tc.end, got, want)
			}
		})
	}
}

// buildBAI constructs a minimal single-reference BAI index byte stream with
// one real bin (containing one chunk) and a trailing linear index.
func buildBAI(t *testing.T, binID uint32, chunk bgzf.Chunk, intervals []uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("building test BAI: %v", err)
		}
	}
	buf.WriteString(baiMagic)
	must(binary.Write(&buf, int32(1))) // n_ref
	must(binary.Write(&buf, int32(1))) // n_bin
	must(binary.Write(&buf, binID))
	must(binary.Write(&buf, int32(1))) // n_chunk
	must(binary.Write(&buf, chunk))
	must(binary.Write(&buf, int32(len(intervals))))
	if len(intervals) > 0 {
		must(binary.Write(&buf, intervals))
	}
	return buf.Bytes()
}

func TestParseBAIAndQuery(t *testing.T) {
	chunk := bgzf.Chunk{Start: bgzf.NewAddress(100, 0), End: bgzf.NewAddress(200, 0)}
	data := buildBAI(t, 0, chunk, []uint64{uint64(bgzf.NewAddress(100, 0))})

	idx, err := ParseBAI(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseBAI: %v", err)
	}
	if len(idx.References) != 1 {
		t.Fatalf("got %d references, want 1", len(idx.References))
	}

	chunks := idx.Chunks(Region{ReferenceID: 0, Start: 0, End: 1})
	if len(chunks) != 2 { // header chunk + the one real chunk
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}

	// A region on a different reference should yield only the header chunk.
	chunks = idx.Chunks(Region{ReferenceID: 1, Start: 0, End: 1})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks for unindexed reference, want 1", len(chunks))
	}
}

func TestParseBAIMetadataBinSkipped(t *testing.T) {
	chunk := bgzf.Chunk{Start: bgzf.NewAddress(1, 0), End: bgzf.NewAddress(2, 0)}
	data := buildBAI(t, baiMetadataBinID, chunk, nil)

	idx, err := ParseBAI(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseBAI: %v", err)
	}
	if len(idx.References[0].Bins) != 0 {
		t.Fatalf("metadata bin should not be recorded as a real bin, got %d bins", len(idx.References[0].Bins))
	}
}

func buildCSI(t *testing.T, minShift, depth int32, binID uint32, offset uint64, chunk bgzf.Chunk) []byte {
	t.Helper()
	var buf bytes.Buffer
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("building test CSI: %v", err)
		}
	}
	buf.WriteString(csiMagic)
	must(binary.Write(&buf, minShift))
	must(binary.Write(&buf, depth))
	must(binary.Write(&buf, int32(0))) // l_aux
	must(binary.Write(&buf, int32(1))) // n_ref
	must(binary.Write(&buf, int32(1))) // n_bin
	must(binary.Write(&buf, binID))
	must(binary.Write(&buf, offset))
	must(binary.Write(&buf, int32(1))) // n_chunk
	must(binary.Write(&buf, chunk))
	return buf.Bytes()
}

func TestParseCSIAndQuery(t *testing.T) {
	chunk := bgzf.Chunk{Start: bgzf.NewAddress(100, 0), End: bgzf.NewAddress(200, 0)}
	data := buildCSI(t, 14, 5, 0, uint64(bgzf.NewAddress(50, 0)), chunk)

	idx, err := ParseCSI(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSI: %v", err)
	}
	chunks := idx.Chunks(Region{ReferenceID: 0, Start: 0, End: 1})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}
}

func TestParseTBIReferenceNames(t *testing.T) {
	var buf bytes.Buffer
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("building test TBI: %v", err)
		}
	}
	buf.WriteString(tbiMagic)
	must(binary.Write(&buf, int32(1))) // n_ref
	must(binary.Write(&buf, int32(0))) // format
	must(binary.Write(&buf, int32(1))) // col_seq
	must(binary.Write(&buf, int32(2))) // col_beg
	must(binary.Write(&buf, int32(3))) // col_end
	must(binary.Write(&buf, int32('#')))
	must(binary.Write(&buf, int32(0))) // skip
	names := "chr1\x00"
	must(binary.Write(&buf, int32(len(names))))
	buf.WriteString(names)
	must(binary.Write(&buf, int32(0))) // n_bin
	must(binary.Write(&buf, int32(0))) // n_intv

	idx, err := ParseTBI(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseTBI: %v", err)
	}
	if got, want := idx.Names, []string{"chr1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got names %v, want %v", got, want)
	}
}
