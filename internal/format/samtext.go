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

// Package format resolves a container's reference dictionary: the mapping
// from a region's reference name to the reference ID and length that the
// index reader and BGZF range calculator need. Each supported container
// format stores that dictionary differently, so this package has one
// extraction path per format but hands every path the same
// genomics.ReferenceDictionary result type.
package format

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/genomepath/htsget/internal/genomics"
)

var sqTagRe = regexp.MustCompile(`\b(SN|LN):(\S+)`)

// parseSAMHeaderText scans SAM header text for @SQ lines and builds a
// reference dictionary from their SN (name) and LN (length) tags. It is
// used for CRAM, whose container only ever carries the textual SAM header;
// BAM's dictionary is read from its binary reference list instead.
func parseSAMHeaderText(r io.Reader) (*genomics.ReferenceDictionary, error) {
	dict := genomics.NewReferenceDictionary()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "@SQ") {
			continue
		}
		var name string
		var length uint64
		for _, tag := range sqTagRe.FindAllStringSubmatch(line, -1) {
			switch tag[1] {
			case "SN":
				name = tag[2]
			case "LN":
				length, _ = strconv.ParseUint(tag[2], 10, 64)
			}
		}
		if name != "" {
			dict.Add(name, length)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning SAM header: %v", err)
	}
	if len(dict.Names()) == 0 {
		return nil, fmt.Errorf("no @SQ lines found in header")
	}
	return dict, nil
}
