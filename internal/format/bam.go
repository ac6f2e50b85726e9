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
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/genomepath/htsget/internal/binary"
	"github.com/genomepath/htsget/internal/genomics"
)

const (
	bamMagic = "BAM\x01"

	// maximumNameLength guards against unbounded allocation from malformed
	// input; no real reference name approaches this length.
	maximumNameLength = 1024
)

// BAMReferenceDictionary reads a BAM file's embedded reference list,
// building a dictionary of reference name to length. BGZF is a concatenated
// sequence of independent gzip members, so a plain multistream gzip.Reader
// transparently decodes across block boundaries without needing BGZF
// virtual-offset bookkeeping.
func BAMReferenceDictionary(r io.Reader) (*genomics.ReferenceDictionary, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %v", err)
	}

	if err := binary.ExpectBytes(gz, []byte(bamMagic)); err != nil {
		return nil, fmt.Errorf("reading magic: %v", err)
	}
	var textLength int32
	if err := binary.Read(gz, &textLength); err != nil {
		return nil, fmt.Errorf("reading SAM header length: %v", err)
	}
	if _, err := io.CopyN(ioutil.Discard, gz, int64(textLength)); err != nil {
		return nil, fmt.Errorf("reading past SAM header text: %v", err)
	}

	var count int32
	if err := binary.Read(gz, &count); err != nil {
		return nil, fmt.Errorf("reading reference count: %v", err)
	}

	dict := genomics.NewReferenceDictionary()
	for i := int32(0); i < count; i++ {
		var nameLength int32
		if err := binary.Read(gz, &nameLength); err != nil {
			return nil, fmt.Errorf("reading name length: %v", err)
		}
		if nameLength < 1 || nameLength > maximumNameLength {
			return nil, fmt.Errorf("invalid reference name length (%d bytes)", nameLength)
		}
		name := make([]byte, nameLength)
		if _, err := io.ReadFull(gz, name); err != nil {
			return nil, fmt.Errorf("reading name: %v", err)
		}
		var length int32
		if err := binary.Read(gz, &length); err != nil {
			return nil, fmt.Errorf("reading reference length: %v", err)
		}
		// The name includes a trailing null terminator.
		dict.Add(string(name[:nameLength-1]), uint64(length))
	}
	return dict, nil
}
