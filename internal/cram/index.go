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
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Index holds the data from a CRAM index file (.crai). Region-scoped
// queries are not supported against CRAM resources (htsget rejects them as
// UnsupportedFormat), so Index is used only to bound the byte range of the
// file's leading header container precisely, rather than to resolve
// per-region alignment chunks.
type Index struct {
	entries []indexEntry
	// containers maps the file offset of each container to the offset of
	// the container that follows it. The last container maps to
	// math.MaxUint64.
	containers map[uint64]uint64
}

type indexEntry struct {
	SequenceID      int32
	AlignmentStart  uint32
	AlignmentLength uint32
	ContainerStart  uint64
}

// ReadIndex parses a gzip-compressed CRAM index (.crai) read in full from r.
func ReadIndex(r io.Reader) (*Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ungzipping index: %v", err)
	}

	var index Index
	var containers []uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 6 {
			return nil, fmt.Errorf("wrong number of columns, got %d, want 6", len(fields))
		}

		var ie indexEntry
		s, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing sequence ID: %v", err)
		}
		ie.SequenceID = int32(s)

		if ie.AlignmentStart, err = parseUint32(fields[1]); err != nil {
			return nil, fmt.Errorf("parsing alignment start: %v", err)
		}
		if ie.AlignmentLength, err = parseUint32(fields[2]); err != nil {
			return nil, fmt.Errorf("parsing alignment length: %v", err)
		}
		if ie.ContainerStart, err = strconv.ParseUint(fields[3], 10, 64); err != nil {
			return nil, fmt.Errorf("parsing container start: %v", err)
		}

		index.entries = append(index.entries, ie)
		containers = append(containers, ie.ContainerStart)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning index: %v", err)
	}

	index.containers = make(map[uint64]uint64)
	var prev uint64
	for _, c := range containers {
		index.containers[prev] = c
		prev = c
	}
	index.containers[prev] = math.MaxUint64

	return &index, nil
}

// HeaderChunk returns the byte range of the file's leading container, which
// holds the CRAM file definition and the embedded SAM text header. This is
// the range served for a header-only (class=header) request.
func (index *Index) HeaderChunk() *Chunk {
	return &Chunk{Start: 0, End: index.containers[0]}
}

func parseUint32(str string) (uint32, error) {
	i, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parseUint32: %v", err)
	}
	return uint32(i), nil
}
