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

package brc

import (
	"reflect"
	"testing"

	"github.com/genomepath/htsget/internal/bgzf"
)

func addr(block uint64, data uint16) bgzf.Address {
	return bgzf.NewAddress(block, data)
}

func TestCalculateSingleChunk(t *testing.T) {
	chunks := []*bgzf.Chunk{{Start: addr(100, 0), End: addr(500, 10)}}
	opts := Options{FileLength: 1028, HeaderLength: 50, IncludeHeader: true, IncludeEOF: true}

	got := Calculate(chunks, opts)
	want := []Range{
		{0, 49},
		{100, 1000 - 1},
		{1000, 1027},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Calculate() = %v, want %v", got, want)
	}
}

func TestCalculateCoalescesAdjacentChunks(t *testing.T) {
	chunks := []*bgzf.Chunk{
		{Start: addr(100, 0), End: addr(200, 5)},
		{Start: addr(200, 5), End: addr(300, 0)},
	}
	opts := Options{FileLength: 400}

	got := Calculate(chunks, opts)
	if len(got) != 1 {
		t.Fatalf("expected ranges to coalesce into one, got %v", got)
	}
	if got[0].Begin != 100 {
		t.Errorf("got begin %d, want 100", got[0].Begin)
	}
}

func TestCalculateHeaderOnly(t *testing.T) {
	got := Calculate(nil, Options{FileLength: 1000, HeaderLength: 40, IncludeHeader: true})
	want := []Range{{0, 39}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Calculate() = %v, want %v", got, want)
	}
}

func TestWholeFile(t *testing.T) {
	if got, want := WholeFile(100), []Range{{0, 99}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("WholeFile() = %v, want %v", got, want)
	}
	if got := WholeFile(0); got != nil {
		t.Fatalf("WholeFile(0) = %v, want nil", got)
	}
}
