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
	tbiMagic = "TBI\x01"

	// tabix uses the same 6-level, 16kb-tile scheme as BAM/BAI.
	tbiMinShift = 14
	tbiDepth    = 5
)

// ParseTBI parses a TBI index read in full from r. The returned Index's
// Names field holds the reference dictionary tabix embeds in its own
// header, in reference-ID order, since a tabix-indexed file (VCF.gz) has no
// separate container-level reference dictionary of its own.
func ParseTBI(r io.Reader) (*Index, error) {
	return parse(r, tbiMagic, &tbiHeaderReader{})
}

type tbiHeaderReader struct {
	names []string
}

func (t *tbiHeaderReader) readSchemeHeader(r io.Reader) (minShift, depth, referenceCount int32, err error) {
	if err := binary.Read(r, &referenceCount); err != nil {
		return 0, 0, 0, fmt.Errorf("reading reference count: %v", err)
	}

	var header struct {
		Format                      int32
		SequenceColumn, BeginColumn int32
		EndColumn                   int32
		MetaChar                    int32
		SkipLines                   int32
		NameLength                  int32
	}
	if err := binary.Read(r, &header); err != nil {
		return 0, 0, 0, fmt.Errorf("reading tabix header: %v", err)
	}
	nameBytes := make([]byte, header.NameLength)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return 0, 0, 0, fmt.Errorf("reading reference names: %v", err)
	}

	start := 0
	for i, b := range nameBytes {
		if b == 0 {
			if i > start {
				t.names = append(t.names, string(nameBytes[start:i]))
			}
			start = i + 1
		}
	}
	return tbiMinShift, tbiDepth, referenceCount, nil
}

func (*tbiHeaderReader) readBin(r io.Reader) (id uint32, offset bgzf.Address, chunkCount int32, err error) {
	var bin struct {
		ID     uint32
		Chunks int32
	}
	if err := binary.Read(r, &bin); err != nil {
		return 0, 0, 0, fmt.Errorf("reading bin header: %v", err)
	}
	return bin.ID, 0, bin.Chunks, nil
}

func (*tbiHeaderReader) isVirtualBin(id uint32) bool {
	return id == baiMetadataBinID
}

func (*tbiHeaderReader) readLinearIndex(r io.Reader) ([]bgzf.Address, error) {
	return readLinearIndex(r)
}

func (t *tbiHeaderReader) referenceNames() []string {
	return t.names
}
