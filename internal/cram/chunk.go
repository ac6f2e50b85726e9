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

// Package cram provides enough of the CRAM container format to bound the
// byte range of a CRAM file's embedded header: htsget region queries
// against CRAM resources are rejected as unsupported, so this package never
// needs to resolve alignment-level chunks, only the header container.
package cram

import (
	"fmt"
	"sort"
)

// Chunk specifies a byte range [Start, End) inside a CRAM file. Unlike
// bgzf.Chunk, CRAM chunk boundaries are plain file offsets: CRAM containers
// are not individually BGZF-compressed blocks, so there is no virtual
// offset to decode.
type Chunk struct {
	Start, End uint64
}

// Length returns the length of a Chunk.
func (c *Chunk) Length() uint64 {
	return c.End - c.Start
}

// String returns a human readable description of the receiver.
func (c *Chunk) String() string {
	return fmt.Sprintf("[%d-%d]", c.Start, c.End)
}

// SortAndMerge sorts chunks by start position and merges adjacent,
// non-overlapping chunks as long as the merged result does not exceed
// sizeLimit. The input slice is not modified.
func SortAndMerge(chunks []*Chunk, sizeLimit uint64) []*Chunk {
	sorted := make([]*Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	var merged []*Chunk
	var last *Chunk
	for _, c := range sorted {
		if last == nil || last.End != c.Start || last.Length()+c.Length() > sizeLimit {
			merged = append(merged, c)
			last = c
		} else {
			last.End = c.End
		}
	}
	return merged
}
