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
	"fmt"
	"io"

	"github.com/genomepath/htsget/internal/cram"
	"github.com/genomepath/htsget/internal/genomics"
)

// CRAMReferenceDictionary reads a CRAM file's embedded SAM-text header and
// builds a reference dictionary from its @SQ lines. The planner reads
// reference dictionaries only for region queries, which it rejects for CRAM
// as UnsupportedFormat, so the planner never calls this.
func CRAMReferenceDictionary(r io.Reader) (*genomics.ReferenceDictionary, error) {
	text, err := cram.HeaderText(r)
	if err != nil {
		return nil, fmt.Errorf("reading CRAM header: %v", err)
	}
	return parseSAMHeaderText(text)
}
