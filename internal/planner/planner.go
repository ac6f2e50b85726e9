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

// Package planner implements the ticket planner: the top-level request
// handler that consults the format resolver, loads an index through the
// storage backend, merges the chunks found for every region, invokes the
// BGZF range calculator once over the merged set, and renders a ticket from
// the backend's URL materializer.
package planner

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/genomepath/htsget/internal/bgzf"
	"github.com/genomepath/htsget/internal/brc"
	"github.com/genomepath/htsget/internal/cram"
	"github.com/genomepath/htsget/internal/format"
	"github.com/genomepath/htsget/internal/genomics"
	"github.com/genomepath/htsget/internal/index"
	"github.com/genomepath/htsget/internal/storage"
	"github.com/genomepath/htsget/internal/telemetry"
	"github.com/genomepath/htsget/internal/ticket"
)

// headerProbeBytes bounds how much of a data file is fetched to extract its
// reference dictionary. Real SAM/VCF headers are comfortably smaller than
// this; a header that overruns it fails as IndexCorrupt rather than
// silently truncating.
const headerProbeBytes = 1 << 20

// backendTimeout is the deadline Plan applies to every storage backend call
// it makes for one request.
const backendTimeout = 30 * time.Second

// Request is everything the ticket planner needs to plan one htsget
// request, already parsed out of the HTTP layer's query parameters.
type Request struct {
	Endpoint format.Endpoint
	Resource string
	Format   *format.Name
	Regions  []genomics.Region
	Class    genomics.Class
}

// Planner plans tickets against a single storage backend.
type Planner struct {
	Backend        storage.Backend
	BackendID      string
	Cache          *storage.IndexCache
	BlockSizeLimit uint64
}

// New returns a Planner. cache may be nil to disable index caching.
func New(backend storage.Backend, backendID string, cache *storage.IndexCache, blockSizeLimit uint64) *Planner {
	return &Planner{Backend: backend, BackendID: backendID, Cache: cache, BlockSizeLimit: blockSizeLimit}
}

// Plan resolves req against the backend and renders a ticket for it.
func (p *Planner) Plan(ctx context.Context, req Request) (ticket.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	hasRegion := len(req.Regions) > 0

	res, err := format.Resolve(ctx, p.Backend, req.Endpoint, req.Resource, req.Format, hasRegion)
	if err != nil {
		return ticket.Envelope{}, err
	}

	if hasRegion && (res.Format == format.CRAM || res.Format == format.FASTA || res.Format == format.FASTQ) {
		return ticket.Envelope{}, ticket.NewUnsupportedFormatError("planning ticket",
			fmt.Errorf("%s does not support region queries in this server", res.Format))
	}

	length, err := p.Backend.Length(ctx, res.DataKey)
	if err != nil {
		return ticket.Envelope{}, ticket.NewIoError("checking data file length", err)
	}
	fileLength := uint64(length)

	if req.Class == genomics.ClassHeader {
		return p.planHeader(ctx, res, fileLength)
	}
	if !hasRegion {
		return p.materialize(ctx, res, brc.WholeFile(fileLength), ticket.ClassBody)
	}
	return p.planRegions(ctx, res, fileLength, req.Regions)
}

func (p *Planner) planHeader(ctx context.Context, res format.Resolution, fileLength uint64) (ticket.Envelope, error) {
	switch res.Format {
	case format.FASTA, format.FASTQ:
		return ticket.Envelope{}, ticket.NewUnsupportedFormatError("planning header",
			fmt.Errorf("%s has no separate header block", res.Format))
	case format.CRAM:
		if res.IndexKey == "" {
			return p.materialize(ctx, res, brc.WholeFile(fileLength), ticket.ClassHeader)
		}
		idx, err := p.loadCRAMIndex(ctx, res)
		if err != nil {
			return ticket.Envelope{}, err
		}
		// cram.Chunk ends are exclusive; brc.Range ends are inclusive.
		chunk := idx.HeaderChunk()
		return p.materialize(ctx, res, []brc.Range{{Begin: chunk.Start, End: chunk.End - 1}}, ticket.ClassHeader)
	default: // BAM, VCF, BCF
		if res.IndexKey == "" {
			return p.materialize(ctx, res, brc.WholeFile(fileLength), ticket.ClassHeader)
		}
		idx, err := p.loadGenomicIndex(ctx, res)
		if err != nil {
			return ticket.Envelope{}, err
		}
		ranges := brc.Calculate(nil, brc.Options{
			FileLength:    fileLength,
			HeaderLength:  idx.HeaderEnd.BlockOffset(),
			IncludeHeader: true,
		})
		return p.materialize(ctx, res, ranges, ticket.ClassHeader)
	}
}

func (p *Planner) planRegions(ctx context.Context, res format.Resolution, fileLength uint64, regions []genomics.Region) (ticket.Envelope, error) {
	dict, err := p.referenceDictionary(ctx, res, fileLength)
	if err != nil {
		return ticket.Envelope{}, err
	}
	idx, err := p.loadGenomicIndex(ctx, res)
	if err != nil {
		return ticket.Envelope{}, err
	}

	type outcome struct {
		chunks []*bgzf.Chunk
		err    error
	}
	results := make([]outcome, len(regions))
	var wg sync.WaitGroup
	for i, region := range regions {
		wg.Add(1)
		go func(i int, region genomics.Region) {
			defer wg.Done()
			chunks, err := resolveRegion(dict, idx, region)
			results[i] = outcome{chunks, err}
		}(i, region)
	}
	wg.Wait()

	// idx.Chunks always prepends a synthetic chunk covering [0, HeaderEnd) so
	// that a whole-file query through the index still returns the header;
	// that chunk carries no data of its own, so it is dropped here and the
	// header range is computed once, directly from idx.HeaderEnd, instead.
	// This keeps the header and body ranges as two independently computed,
	// never-coalesced URL groups, tagged class=header and class=body per
	// spec.md §4.5 step 6, even when they happen to be byte-adjacent.
	var all []*bgzf.Chunk
	for _, r := range results {
		if r.err != nil {
			return ticket.Envelope{}, r.err
		}
		for _, c := range r.chunks {
			if c.End > idx.HeaderEnd {
				all = append(all, c)
			}
		}
	}
	merged := bgzf.Merge(all, p.BlockSizeLimit)

	headerRanges := brc.Calculate(nil, brc.Options{
		HeaderLength:  idx.HeaderEnd.BlockOffset(),
		IncludeHeader: true,
	})
	bodyRanges := brc.Calculate(merged, brc.Options{
		FileLength: fileLength,
		IncludeEOF: true,
	})
	return p.materializeGroups(ctx, res, []rangeGroup{
		{ranges: headerRanges, class: ticket.ClassHeader},
		{ranges: bodyRanges, class: ticket.ClassBody},
	})
}

// resolveRegion validates region against dict and returns the chunks it
// overlaps in idx. A region entirely past the end of its reference yields
// an empty, non-error chunk set, per spec.md's "start >= reference length"
// edge case.
func resolveRegion(dict *genomics.ReferenceDictionary, idx *index.Index, region genomics.Region) ([]*bgzf.Chunk, error) {
	if region.IsWholeFile() {
		return idx.Chunks(index.AllMappedReads), nil
	}
	if err := region.Validate(); err != nil {
		return nil, ticket.NewInvalidInputError("validating region", err)
	}
	length, ok := dict.Length(region.ReferenceName)
	if !ok {
		return nil, ticket.NewInvalidInputError("validating region", fmt.Errorf("unknown reference %q", region.ReferenceName))
	}
	start, end := region.Resolved(length)
	if start >= length {
		return nil, nil
	}
	return idx.Chunks(index.Region{
		ReferenceID: int32(dict.ID(region.ReferenceName)),
		Start:       uint32(start),
		End:         uint32(end),
	}), nil
}

func (p *Planner) referenceDictionary(ctx context.Context, res format.Resolution, fileLength uint64) (*genomics.ReferenceDictionary, error) {
	probe := int64(headerProbeBytes)
	if uint64(probe) > fileLength {
		probe = int64(fileLength)
	}
	r, err := p.Backend.ReadRange(ctx, res.DataKey, 0, probe-1)
	if err != nil {
		return nil, ticket.NewIoError("fetching header for reference dictionary", err)
	}
	defer r.Close()
	dict, err := format.ReferenceDictionary(res.Format, r)
	if err != nil {
		return nil, ticket.NewIndexCorruptError("parsing reference dictionary", err)
	}
	return dict, nil
}

func (p *Planner) loadGenomicIndex(ctx context.Context, res format.Resolution) (*index.Index, error) {
	length, err := p.Backend.Length(ctx, res.IndexKey)
	if err != nil {
		return nil, ticket.NewIoError("checking index length", err)
	}
	cacheKey := storage.Key(p.BackendID, res.IndexKey, fmt.Sprintf("%d", length))
	if cached, ok := p.cacheGet(cacheKey); ok {
		if idx, ok := cached.(*index.Index); ok {
			return idx, nil
		}
	}

	r, err := p.fetchIndexBody(ctx, res.IndexKey, length)
	if err != nil {
		return nil, ticket.NewIoError("fetching index", err)
	}
	defer r.Close()

	var idx *index.Index
	var parseErr error
	switch {
	case strings.HasSuffix(res.IndexKey, ".bai"):
		// BAI is the one binary index format stored uncompressed.
		idx, parseErr = index.ParseBAI(r)
	case strings.HasSuffix(res.IndexKey, ".tbi"):
		idx, parseErr = parseCompressed(r, index.ParseTBI)
	case strings.HasSuffix(res.IndexKey, ".csi"):
		idx, parseErr = parseCompressed(r, index.ParseCSI)
	default:
		return nil, ticket.NewInternalError("loading index", fmt.Errorf("unrecognized index extension for %q", res.IndexKey))
	}
	if parseErr != nil {
		return nil, ticket.NewIndexCorruptError("parsing index", parseErr)
	}
	p.cacheSet(cacheKey, idx)
	return idx, nil
}

// parseCompressed gzip-decompresses r (TBI and CSI indexes are written as a
// BGZF/gzip stream, the same as the data files they index) before handing
// it to parse, mirroring the teacher's own csi.go, which wraps its index
// reader in gzip.NewReader before delegating to the binary parser.
func parseCompressed(r io.Reader, parse func(io.Reader) (*index.Index, error)) (*index.Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening index archive: %v", err)
	}
	defer gz.Close()
	return parse(gz)
}

func (p *Planner) loadCRAMIndex(ctx context.Context, res format.Resolution) (*cram.Index, error) {
	length, err := p.Backend.Length(ctx, res.IndexKey)
	if err != nil {
		return nil, ticket.NewIoError("checking index length", err)
	}
	cacheKey := storage.Key(p.BackendID, res.IndexKey, fmt.Sprintf("%d", length))
	if cached, ok := p.cacheGet(cacheKey); ok {
		if idx, ok := cached.(*cram.Index); ok {
			return idx, nil
		}
	}

	r, err := p.fetchIndexBody(ctx, res.IndexKey, length)
	if err != nil {
		return nil, ticket.NewIoError("fetching index", err)
	}
	defer r.Close()

	// cram.ReadIndex does its own gzip decompression.
	idx, err := cram.ReadIndex(r)
	if err != nil {
		return nil, ticket.NewIndexCorruptError("parsing crai index", err)
	}
	p.cacheSet(cacheKey, idx)
	return idx, nil
}

// fetchIndexBody returns the full, still-compressed bytes of an index key.
// Against the S3 backend this uses StageForParsing, which copies the blob
// to a local staging file or in-memory cache first, per spec.md §4.1, so
// the index parser gets random-access reads without re-issuing ranged GETs
// mid-parse; every other backend is small and local enough that a single
// ReadRange over the whole object is sufficient.
func (p *Planner) fetchIndexBody(ctx context.Context, key string, length int64) (io.ReadCloser, error) {
	if s3, ok := p.Backend.(*storage.S3); ok {
		return s3.StageForParsing(ctx, key)
	}
	return p.Backend.ReadRange(ctx, key, 0, length-1)
}

func (p *Planner) cacheGet(key string) (interface{}, bool) {
	if p.Cache == nil {
		return nil, false
	}
	value, ok := p.Cache.Get(key)
	telemetry.ObserveIndexCache(ok)
	return value, ok
}

func (p *Planner) cacheSet(key string, value interface{}) {
	if p.Cache == nil {
		return
	}
	p.Cache.Set(key, value)
}

func (p *Planner) materialize(ctx context.Context, res format.Resolution, ranges []brc.Range, cls ticket.Class) (ticket.Envelope, error) {
	return p.materializeGroups(ctx, res, []rangeGroup{{ranges: ranges, class: cls}})
}

// rangeGroup is a set of byte ranges that share a single ticket class.
type rangeGroup struct {
	ranges []brc.Range
	class  ticket.Class
}

func (p *Planner) materializeGroups(ctx context.Context, res format.Resolution, groups []rangeGroup) (ticket.Envelope, error) {
	var urls []ticket.URL
	for _, g := range groups {
		for _, r := range g.ranges {
			u, err := p.Backend.Materialize(ctx, res.DataKey, &storage.ByteRange{Begin: int64(r.Begin), End: int64(r.End)})
			if err != nil {
				return ticket.Envelope{}, ticket.NewIoError("materializing url", err)
			}
			urls = append(urls, ticket.URL{URL: u.URL, Headers: u.Headers, Class: g.class})
		}
	}
	return ticket.New(string(res.Format), urls), nil
}
