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

// Package ticket defines the htsget v1.3 ticket JSON schema and the error
// taxonomy the rest of the server reports against.
package ticket

// Class identifies whether a URL descriptor covers a file's header or its
// body.
type Class string

const (
	ClassHeader Class = "header"
	ClassBody   Class = "body"
)

// URL describes one entry in a ticket's ordered URL list.
type URL struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Class   Class             `json:"class,omitempty"`
}

// Ticket is the top-level htsget response payload.
type Ticket struct {
	Format string `json:"format"`
	URLs   []URL  `json:"urls"`
	MD5    string `json:"md5,omitempty"`
}

// Envelope wraps a Ticket in the "htsget" field the protocol requires.
type Envelope struct {
	HTSGet Ticket `json:"htsget"`
}

// New wraps a format and URL list in a response envelope.
func New(format string, urls []URL) Envelope {
	return Envelope{HTSGet: Ticket{Format: format, URLs: urls}}
}
