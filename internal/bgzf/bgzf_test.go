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

package bgzf

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestAddress(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		block uint64
		data  uint16
	}{
		{"maximum value", "ffffffffffffffff", 0x0000ffffffffffff, 0xffff},
		{"zero data offset", "ffff0000", 0xffff, 0x0000},
		{"zero", "0", 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			address, err := ParseAddress(tc.input)
			if err != nil {
				t.Fatalf("got error parsing %q: %v", tc.input, err)
			}
			if got, want := address.BlockOffset(), tc.block; got != want {
				t.Errorf("wrong block offset: got 0x%016x, want 0x%016x", got, want)
			}
			if got, want := address.DataOffset(), tc.data; got != want {
				t.Errorf("wrong data offset: got 0x%04x, want 0x%04x", got, want)
			}
			if got, want := address.String(), tc.input; got != want {
				t.Errorf("wrong string result: got %q, want %q", got, want)
			}
		})
	}
}

func TestParseAddressInvalidInputs(t *testing.T) {
	testCases := []string{"-0", "ffffffffffffffffffff", "g"}
	for _, input := range testCases {
		if got, err := ParseAddress(input); err == nil {
			t.Errorf("ParseAddress(%q): unexpected success, got %v", input, got)
		}
	}
}

func TestChunkString(t *testing.T) {
	testCases := []struct {
		start, end Address
		want       string
	}{
		{0, 0, "[0-0]"},
		{0, 0xffff, "[0-ffff]"},
		{0, 0xaffff, "[0-affff]"},
		{0, LastAddress, "[0-ffffffffffffffff]"},
	}
	for _, tc := range testCases {
		chunk := Chunk{tc.start, tc.end}
		if got := chunk.String(); got != tc.want {
			t.Errorf("String(): got %q, want %q", got, tc.want)
		}
	}
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		name   string
		limit  uint64
		input  string
		merged string
	}{
		{"three chunks, same block, all overlapping", 1024, "0-10,10-40,40-80", "0-80"},
		{"three chunks, same block, one not overlapping", 1024, "0-10,20-40,40-80", "0-10,20-80"},
		{"unsorted but mergeable chunks", 1024, "40-80,10-40,0-10", "0-80"},
		{"two chunks, same block, too large", 32768, "0-8000,9000-a000", "0-8000,9000-a000"},
		{"two chunks, same block, exactly small enough", 32768, "0-7000,7000-8000", "0-8000"},
		{"two chunks, different blocks, ok to merge", 64*1024 + 4096, "00000000-00008000,00008000-10000000", "00000000-10000000"},
		{"two chunks, different blocks, too big", 64*1024 + 4096 - 1, "00000000-00008000,00008000-10000000", "00000000-00008000,00008000-10000000"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input, err := parseChunkString(tc.input)
			if err != nil {
				t.Fatalf("bad chunk string: %v", err)
			}
			want, err := parseChunkString(tc.merged)
			if err != nil {
				t.Fatalf("bad chunk string: %v", err)
			}
			if got := Merge(input, tc.limit); !reflect.DeepEqual(got, want) {
				t.Errorf("Merge: got %s, want %s", got, want)
			}
		})
	}
}

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	testCases := [][]byte{
		nil,
		[]byte{0x42},
		bytes.Repeat([]byte("htsget"), 1000),
		make([]byte, MaximumBlockSize),
	}
	for i, data := range testCases {
		encoded, err := EncodeBlock(data)
		if err != nil {
			t.Fatalf("case %d: EncodeBlock: %v", i, err)
		}
		decoded, bsize, err := DecodeBlock(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("case %d: DecodeBlock: %v", i, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("case %d: round trip mismatch: got %d bytes, want %d bytes", i, len(decoded), len(data))
		}
		if int(bsize) != len(encoded) {
			t.Errorf("case %d: reported block size %d does not match actual encoded length %d", i, bsize, len(encoded))
		}
	}
}

func TestEncodeBlockTooLarge(t *testing.T) {
	if _, err := EncodeBlock(make([]byte, MaximumBlockSize+1)); err == nil {
		t.Fatal("EncodeBlock() should fail with block over size limit but didn't")
	}
}

func TestIsEOFMarker(t *testing.T) {
	encoded, err := EncodeBlock(nil)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if !IsEOFMarker(EOFMarker) {
		t.Error("IsEOFMarker(EOFMarker) = false, want true")
	}
	if IsEOFMarker(encoded) {
		// klauspost/compress is not guaranteed to produce byte-identical
		// output to the reference htslib encoder used to derive EOFMarker,
		// so this is only checked for awareness, not asserted strictly.
		t.Logf("locally encoded empty block happens to match the canonical EOF marker")
	}
}

func parseChunkString(input string) ([]*Chunk, error) {
	var chunks []*Chunk
	for _, s := range strings.Split(input, ",") {
		v := strings.Split(s, "-")
		start, err := ParseAddress(v[0])
		if err != nil {
			return nil, fmt.Errorf("parsing chunk start: %v", err)
		}
		end, err := ParseAddress(v[1])
		if err != nil {
			return nil, fmt.Errorf("parsing chunk end: %v", err)
		}
		chunks = append(chunks, &Chunk{start, end})
	}
	return chunks, nil
}
