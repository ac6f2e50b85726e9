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

// Package bgzf provides support for parsing and re-encoding BGZF
// (Blocked GNU Zip Format) data: virtual-offset addresses, chunk merging,
// and single-block decode/encode helpers.
package bgzf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// LastAddress is the maximum valid BGZF virtual address.
const LastAddress = Address(0xffffffffffffffff)

// MaximumBlockSize is the largest permitted uncompressed payload for a
// single BGZF block.
const MaximumBlockSize = 65536

// EOFMarker is the canonical 28-byte empty BGZF block every valid BGZF
// stream ends with.
var EOFMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// EOFMarkerLength is len(EOFMarker), the number of trailing bytes every
// valid BGZF stream reserves for the EOF marker block.
const EOFMarkerLength = 28

// Address stores a BGZF "virtual offset". The lower 16 bits store the
// offset inside the uncompressed block and the upper 48 bits store the
// offset of the block's first byte inside the compressed file.
type Address uint64

// BlockOffset returns the offset to the start of the compressed block.
func (v Address) BlockOffset() uint64 {
	return uint64(v >> 16)
}

// DataOffset returns the offset to the data inside the uncompressed block.
func (v Address) DataOffset() uint16 {
	return uint16(v & 0xffff)
}

// String returns a representation of v that can be parsed with ParseAddress.
func (v Address) String() string {
	return strconv.FormatUint(uint64(v), 16)
}

// ParseAddress attempts to parse input into an Address.
func ParseAddress(input string) (Address, error) {
	v, err := strconv.ParseUint(input, 16, 64)
	return Address(v), err
}

// NewAddress returns a new Address built from the given offsets.
func NewAddress(blockOffset uint64, dataOffset uint16) Address {
	return Address(blockOffset<<16 | uint64(dataOffset))
}

// Chunk identifies a region from Start (inclusive) to End (exclusive) inside
// a BGZF file, as produced by an index bin lookup.
type Chunk struct {
	Start, End Address
}

func (v Chunk) String() string {
	return fmt.Sprintf("[%s-%s]", v.Start, v.End)
}

// Merge joins intersecting or adjacent chunks in input into the smallest
// set of non-overlapping chunks that still covers every input chunk. Merge
// will not join two chunks if the resulting byte range could exceed
// sizeLimit, since an over-eager merge would force the range calculator to
// materialize far more bytes than the request actually needs.
func Merge(input []*Chunk, sizeLimit uint64) []*Chunk {
	if len(input) == 0 {
		return nil
	}
	sorted := make([]*Chunk, len(input))
	copy(sorted, input)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []*Chunk{sorted[0]}
	output := merged[0]
	for i := 1; i < len(sorted); i++ {
		var size uint64
		if sorted[i].End.BlockOffset() == output.Start.BlockOffset() {
			size = uint64(sorted[i].End.DataOffset() - output.Start.DataOffset())
		} else {
			size = sorted[i].End.BlockOffset() - output.Start.BlockOffset() + MaximumBlockSize
		}

		if sorted[i].Start <= output.End && size <= sizeLimit {
			if output.End < sorted[i].End {
				output.End = sorted[i].End
			}
		} else {
			merged = append(merged, sorted[i])
			output = merged[len(merged)-1]
		}
	}
	return merged
}

// DecodeBlock decodes a single BGZF block from r and returns the
// uncompressed data together with the original on-wire block size (BSIZE+1
// as recorded in the block's extra field). DecodeBlock may read bytes past
// the end of the block if r does not implement io.ByteReader.
func DecodeBlock(r io.Reader) ([]byte, uint16, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("initializing gzip reader: %v", err)
	}
	defer gzr.Close()

	extra := gzr.Header.Extra
	if len(extra) < 6 || extra[0] != 0x42 || extra[1] != 0x43 {
		return nil, 0, fmt.Errorf("unexpected extra ID: %x", extra)
	}
	if extra[2] != 2 || extra[3] != 0 {
		return nil, 0, fmt.Errorf("unexpected extra length: %x", extra[2:4])
	}

	gzr.Multistream(false)
	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, gzr); err != nil {
		return nil, 0, fmt.Errorf("decompressing data: %v", err)
	}
	return buffer.Bytes(), (uint16(extra[4]) | uint16(extra[5])<<8) + 1, nil
}

// EncodeBlock returns a single BGZF block that encodes data.
func EncodeBlock(data []byte) ([]byte, error) {
	if len(data) > MaximumBlockSize {
		return nil, errors.New("bgzf: data exceeds maximum block size")
	}

	var buffer bytes.Buffer
	gzw := gzip.NewWriter(&buffer)
	gzw.Header.Extra = []byte{
		0x42, 0x43, // Subfield ID.
		0x02, 0x00, // Subfield length (2 bytes).
		0x88, 0x88, // BSIZE placeholder, patched below.
	}
	if _, err := gzw.Write(data); err != nil {
		return nil, fmt.Errorf("writing compressed data: %v", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing writer: %v", err)
	}

	encoded := buffer.Bytes()
	bsize := len(encoded) - 1
	if bsize > 0xffff {
		return nil, errors.New("bgzf: encoded block exceeds maximum on-wire size")
	}
	encoded[16] = byte(bsize)
	encoded[17] = byte(bsize >> 8)
	return encoded, nil
}

// IsEOFMarker reports whether block is the canonical empty terminator block.
func IsEOFMarker(block []byte) bool {
	return bytes.Equal(block, EOFMarker)
}
