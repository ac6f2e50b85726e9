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
	"fmt"
	"io"

	"github.com/genomepath/htsget/internal/genomics"
	"github.com/genomepath/htsget/internal/storage"
	"github.com/genomepath/htsget/internal/ticket"
)

// Endpoint is the htsget endpoint kind a request arrived on. It determines
// the candidate container-format set a resource id is resolved against.
type Endpoint string

const (
	EndpointReads     Endpoint = "reads"
	EndpointVariants  Endpoint = "variants"
	EndpointSequences Endpoint = "sequences"
)

// Name identifies one of the six supported container formats.
type Name string

const (
	BAM   Name = "BAM"
	CRAM  Name = "CRAM"
	VCF   Name = "VCF"
	BCF   Name = "BCF"
	FASTA Name = "FASTA"
	FASTQ Name = "FASTQ"
)

// candidate describes one container format's extension table, per spec.md
// §3's format table.
type candidate struct {
	name       Name
	dataExts   []string
	indexExts  []string
	indexable  bool
}

var candidatesByEndpoint = map[Endpoint][]candidate{
	EndpointReads: {
		{name: BAM, dataExts: []string{".bam"}, indexExts: []string{".bai", ".csi"}, indexable: true},
		{name: CRAM, dataExts: []string{".cram"}, indexExts: []string{".crai"}, indexable: true},
	},
	EndpointVariants: {
		{name: VCF, dataExts: []string{".vcf.gz"}, indexExts: []string{".tbi", ".csi"}, indexable: true},
		{name: BCF, dataExts: []string{".bcf"}, indexExts: []string{".csi"}, indexable: true},
	},
	EndpointSequences: {
		{name: FASTA, dataExts: []string{".fa", ".fasta"}, indexExts: []string{".fai"}, indexable: false},
		{name: FASTQ, dataExts: []string{".fq", ".fastq", ".fq.gz", ".fastq.gz"}, indexExts: nil, indexable: false},
	},
}

// Resolution is what the Format Resolver hands the Ticket Planner: the keys
// to open on the storage backend, which container format they hold, and
// whether it supports indexed region queries at all.
type Resolution struct {
	Format    Name
	DataKey   string
	IndexKey  string // empty if no index was found
	Indexable bool
}

// Resolve implements spec.md §4.4's five-step resolution algorithm.
func Resolve(ctx context.Context, backend storage.Backend, endpoint Endpoint, resourceID string, requestedFormat *Name, hasRegion bool) (Resolution, error) {
	candidates, ok := candidatesByEndpoint[endpoint]
	if !ok {
		return Resolution{}, ticket.NewInvalidInputError("resolving format", fmt.Errorf("unknown endpoint kind %q", endpoint))
	}

	if requestedFormat != nil {
		var match *candidate
		for i := range candidates {
			if candidates[i].name == *requestedFormat {
				match = &candidates[i]
				break
			}
		}
		if match == nil {
			return Resolution{}, ticket.NewUnsupportedFormatError("resolving format", fmt.Errorf("format %q is not valid for endpoint %q", *requestedFormat, endpoint))
		}
		candidates = []candidate{*match}
	}

	for _, c := range candidates {
		for _, ext := range c.dataExts {
			key := resourceID + ext
			exists, err := backend.Exists(ctx, key)
			if err != nil {
				return Resolution{}, ticket.NewIoError("probing data extension", err)
			}
			if !exists {
				continue
			}

			indexKey, err := resolveIndex(ctx, backend, resourceID, c, hasRegion)
			if err != nil {
				return Resolution{}, err
			}
			return Resolution{Format: c.name, DataKey: key, IndexKey: indexKey, Indexable: c.indexable}, nil
		}
	}
	return Resolution{}, ticket.NewNotFoundError("resolving format", fmt.Errorf("no data file found for resource %q", resourceID))
}

func resolveIndex(ctx context.Context, backend storage.Backend, resourceID string, c candidate, hasRegion bool) (string, error) {
	for _, ext := range c.indexExts {
		key := resourceID + ext
		exists, err := backend.Exists(ctx, key)
		if err != nil {
			return "", ticket.NewIoError("probing index extension", err)
		}
		if exists {
			return key, nil
		}
	}
	if c.indexable && hasRegion {
		return "", ticket.NewInvalidRangeError("resolving index", fmt.Errorf("resource %q has no index but the request carries a region", resourceID))
	}
	return "", nil
}

// ReferenceDictionary extracts the reference name/length table for a
// resolved container by reading its header, dispatching to the per-format
// parser. FASTA and FASTQ never need one since region requests against them
// are rejected before this is called.
func ReferenceDictionary(name Name, headerSource io.Reader) (*genomics.ReferenceDictionary, error) {
	switch name {
	case BAM:
		return BAMReferenceDictionary(headerSource)
	case CRAM:
		return CRAMReferenceDictionary(headerSource)
	case VCF:
		return VCFReferenceDictionary(headerSource)
	case BCF:
		return BCFReferenceDictionary(headerSource)
	default:
		return nil, ticket.NewUnsupportedFormatError("extracting reference dictionary", fmt.Errorf("format %q carries no reference dictionary", name))
	}
}
