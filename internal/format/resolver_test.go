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

package format

import (
	"context"
	"io"
	"testing"

	"github.com/genomepath/htsget/internal/storage"
	"github.com/genomepath/htsget/internal/ticket"
)

// fakeBackend answers Exists from a fixed set; the other storage.Backend
// methods are never exercised by the resolver and panic if called.
type fakeBackend struct {
	present map[string]bool
}

func (f *fakeBackend) Exists(ctx context.Context, key string) (bool, error) {
	return f.present[key], nil
}
func (f *fakeBackend) Length(ctx context.Context, key string) (int64, error) {
	panic("not used by resolver tests")
}
func (f *fakeBackend) ReadRange(ctx context.Context, key string, begin, end int64) (io.ReadCloser, error) {
	panic("not used by resolver tests")
}
func (f *fakeBackend) Materialize(ctx context.Context, key string, rng *storage.ByteRange) (storage.URL, error) {
	panic("not used by resolver tests")
}

var _ storage.Backend = (*fakeBackend)(nil)

func TestResolvePicksFirstExtantCandidate(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{
		"sample1.cram": true,
		"sample1.crai": true,
	}}
	res, err := Resolve(context.Background(), backend, EndpointReads, "sample1", nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Format != CRAM || res.DataKey != "sample1.cram" || res.IndexKey != "sample1.crai" {
		t.Fatalf("Resolve() = %+v", res)
	}
}

func TestResolvePrefersRequestedFormat(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{
		"sample1.bam":  true,
		"sample1.bai":  true,
		"sample1.cram": true,
	}}
	requested := BAM
	res, err := Resolve(context.Background(), backend, EndpointReads, "sample1", &requested, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Format != BAM {
		t.Fatalf("Resolve() format = %v, want BAM", res.Format)
	}
}

func TestResolveRequestedFormatNotInCandidateSet(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{"sample1.bam": true}}
	requested := VCF
	_, err := Resolve(context.Background(), backend, EndpointReads, "sample1", &requested, false)
	assertStatus(t, err, "UnsupportedFormat")
}

func TestResolveNoDataFile(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{}}
	_, err := Resolve(context.Background(), backend, EndpointReads, "sample1", nil, false)
	assertStatus(t, err, "NotFound")
}

func TestResolveMissingIndexWithRegionFails(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{"sample1.bam": true}}
	_, err := Resolve(context.Background(), backend, EndpointReads, "sample1", nil, true)
	assertStatus(t, err, "InvalidRange")
}

func TestResolveMissingIndexWithoutRegionTolerated(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{"sample1.bam": true}}
	res, err := Resolve(context.Background(), backend, EndpointReads, "sample1", nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.IndexKey != "" {
		t.Fatalf("IndexKey = %q, want empty", res.IndexKey)
	}
}

func TestResolveNonIndexableNeverRequiresIndex(t *testing.T) {
	backend := &fakeBackend{present: map[string]bool{"sample1.fq": true}}
	res, err := Resolve(context.Background(), backend, EndpointSequences, "sample1", nil, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Format != FASTQ {
		t.Fatalf("Resolve() format = %v, want FASTQ", res.Format)
	}
}

func assertStatus(t *testing.T, err error, wantName string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error, got nil")
	}
	e, ok := err.(*ticket.Error)
	if !ok {
		t.Fatalf("error = %T, want *ticket.Error", err)
	}
	if e.Name != wantName {
		t.Fatalf("error name = %q, want %q", e.Name, wantName)
	}
}
