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

package cram

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

type fileDefinition struct {
	Magic        uint32
	MajorVersion uint8
	MinorVersion uint8
	ID           [20]byte
}

type blockHeader struct {
	Method      byte
	ContentType byte
	ContentID   int32
	Length      int32
	RawLength   int32
}

// magic is the four-byte CRAM file signature, "CRAM" read little-endian.
const magic = 0x4d415243

// HeaderText reads a CRAM stream's file definition and first container,
// returning a reader over the embedded plain-text SAM header (the same
// "@SQ SN:...  LN:..." format BAM embeds, without BAM's extra binary
// reference list). Callers use this to resolve a CRAM file's reference
// dictionary without needing a .crai index.
func HeaderText(r io.Reader) (io.Reader, error) {
	var def fileDefinition
	if err := read(r, &def); err != nil {
		return nil, fmt.Errorf("reading file definition: %v", err)
	}
	if def.Magic != magic {
		return nil, fmt.Errorf("invalid magic value, got: %08x, want: %08x", def.Magic, magic)
	}

	if err := def.skipContainerHeader(r); err != nil {
		return nil, fmt.Errorf("reading container header: %v", err)
	}

	bh, err := def.readBlockHeader(r)
	if err != nil {
		return nil, fmt.Errorf("reading block header: %v", err)
	}

	if bh.Method == 1 {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("reading gzipped header: %v", err)
		}
		// Without this, the gzip reader may read past the end of the
		// header archive and into the next container.
		gz.Multistream(false)
		r = gz
	}

	var limit int32
	if err := read(r, &limit); err != nil {
		return nil, fmt.Errorf("reading header length: %v", err)
	}
	return io.LimitReader(r, int64(limit)), nil
}

func (def *fileDefinition) skipContainerHeader(r io.Reader) error {
	var skip int32
	if err := read(r, &skip); err != nil {
		return fmt.Errorf("skipping length: %v", err)
	}

	for i := 0; i < 7; i++ {
		if err := readITF8(r, &skip); err != nil {
			return fmt.Errorf("skipping header field: %v", err)
		}
	}

	var landmarkCount int32
	if err := readITF8(r, &landmarkCount); err != nil {
		return fmt.Errorf("skipping landmark count: %v", err)
	}
	for i := 0; i < int(landmarkCount); i++ {
		if err := readITF8(r, &skip); err != nil {
			return fmt.Errorf("skipping landmark %d: %v", i, err)
		}
	}

	if def.MajorVersion >= 3 {
		if err := read(r, &skip); err != nil {
			return fmt.Errorf("skipping CRC: %v", err)
		}
	}
	return nil
}

func (def *fileDefinition) readBlockHeader(r io.Reader) (*blockHeader, error) {
	var block blockHeader
	if err := read(r, &block.Method); err != nil {
		return nil, fmt.Errorf("reading method: %v", err)
	}
	if err := read(r, &block.ContentType); err != nil {
		return nil, fmt.Errorf("reading content type: %v", err)
	}
	if err := readITF8(r, &block.ContentID); err != nil {
		return nil, fmt.Errorf("reading content ID: %v", err)
	}
	if err := readITF8(r, &block.Length); err != nil {
		return nil, fmt.Errorf("reading length: %v", err)
	}
	if err := readITF8(r, &block.RawLength); err != nil {
		return nil, fmt.Errorf("reading raw length: %v", err)
	}
	return &block, nil
}

// readITF8 decodes a CRAM ITF8 variable-length integer: the number of
// leading one-bits in the first byte determines the total encoded length
// (1 to 5 bytes), per the CRAM format specification section 3.
func readITF8(r io.Reader, i *int32) error {
	b := make([]byte, 1, 5)
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("reading first byte: %v", err)
	}

	b = b[:countLeadingOnes(b[0])+1]
	if _, err := io.ReadFull(r, b[1:]); err != nil {
		return fmt.Errorf("reading remaining bytes: %v", err)
	}

	switch n := len(b); n {
	case 1:
		*i = int32(b[0])
	case 2:
		*i = int32(uint32(b[0]&0x7f)<<8 | uint32(b[1]))
	case 3:
		*i = int32(uint32(b[0]&0x3f)<<16 | uint32(b[1])<<8 | uint32(b[2]))
	case 4:
		*i = int32(uint32(b[0]&0x1f)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	case 5:
		*i = int32(uint32(b[0]&0x0f)<<28 | uint32(b[1])<<20 | uint32(b[2])<<12 | uint32(b[3])<<4 | uint32(b[4]&0x0f))
	default:
		panic(fmt.Sprintf("invalid ITF8 length: %d", n))
	}
	return nil
}

func countLeadingOnes(b byte) int {
	for i := 0; i < 4; i++ {
		if b&0x80 == 0 {
			return i
		}
		b <<= 1
	}
	return 4
}

func read(r io.Reader, v interface{}) error {
	return binary.Read(r, binary.LittleEndian, v)
}
