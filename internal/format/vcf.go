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
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/genomepath/htsget/internal/binary"
	"github.com/genomepath/htsget/internal/genomics"
)

const bcfMagic = "BCF\x02\x02"

// VCFReferenceDictionary reads a bgzipped VCF header and builds a reference
// dictionary from its "##contig=<ID=...,length=...>" meta-lines.
func VCFReferenceDictionary(r io.Reader) (*genomics.ReferenceDictionary, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %v", err)
	}
	return parseContigDictionary(gz)
}

// BCFReferenceDictionary reads a BCF file's typed text header (identical
// "##contig" syntax to VCF, stored as a length-prefixed blob after the BCF
// magic) and builds a reference dictionary from it.
func BCFReferenceDictionary(r io.Reader) (*genomics.ReferenceDictionary, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %v", err)
	}
	if err := binary.ExpectBytes(gz, []byte(bcfMagic)); err != nil {
		return nil, fmt.Errorf("checking magic: %v", err)
	}
	var length uint32
	if err := binary.Read(gz, &length); err != nil {
		return nil, fmt.Errorf("reading header length: %v", err)
	}
	return parseContigDictionary(io.LimitReader(gz, int64(length)))
}

// parseContigDictionary scans VCF/BCF meta-header lines for
// "##contig=<ID=name,length=n,...>" entries. Scanning stops at the first
// non-meta line (the "#CHROM" column header), since contig declarations
// always precede it.
func parseContigDictionary(r io.Reader) (*genomics.ReferenceDictionary, error) {
	dict := genomics.NewReferenceDictionary()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "##") {
			break
		}
		if !strings.HasPrefix(line, "##contig") {
			continue
		}
		name := contigField(line, "ID")
		if name == "" {
			continue
		}
		var length uint64
		if raw := contigField(line, "length"); raw != "" {
			length, _ = strconv.ParseUint(raw, 10, 64)
		}
		dict.Add(name, length)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning header: %v", err)
	}
	if len(dict.Names()) == 0 {
		return nil, fmt.Errorf("no ##contig lines found in header")
	}
	return dict, nil
}

// contigField extracts the value of name=... from a "##contig=<...>" line.
func contigField(input, name string) string {
	field := fmt.Sprintf("%s=", name)
	for {
		start := strings.Index(input, field)
		if start == -1 {
			return ""
		}
		if start > 0 && !isContigDelimiter(input[start-1]) {
			input = input[start+len(field):]
			continue
		}
		input = input[start+len(field):]
		if end := strings.IndexAny(input, ",>"); end > 0 {
			return input[:end]
		}
		return input
	}
}

func isContigDelimiter(c byte) bool {
	return c == ',' || c == '<'
}
