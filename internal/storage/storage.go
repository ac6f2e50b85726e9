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

// Package storage abstracts the byte source a ticket is planned against: a
// local filesystem root, an S3-compatible object store, or a remote HTTP
// server. Every backend exposes the same capability set so the planner
// never branches on backend kind.
package storage

import (
	"context"
	"io"
)

// ByteRange is an inclusive byte range, as used throughout the ticket
// planner.
type ByteRange struct {
	Begin, End int64
}

// URL is a single materialized ticket URL descriptor: a fetchable address
// plus any headers the client must send (typically a Range header).
type URL struct {
	URL     string
	Headers map[string]string
}

// Backend is the capability set every storage implementation provides.
// Implementations must be safe for concurrent use; no call takes a
// request-level lock.
type Backend interface {
	// Exists reports whether key is present in the backend.
	Exists(ctx context.Context, key string) (bool, error)
	// Length returns the size, in bytes, of key.
	Length(ctx context.Context, key string) (int64, error)
	// ReadRange returns a reader over the inclusive byte range
	// [begin, end] of key.
	ReadRange(ctx context.Context, key string, begin, end int64) (io.ReadCloser, error)
	// Materialize returns a URL descriptor the client can fetch to
	// retrieve rng (or the whole object, if rng is nil). If the backend
	// cannot issue a pre-authenticated URL of its own, it returns an
	// internal URL pointing back at the server's data-proxy endpoint.
	Materialize(ctx context.Context, key string, rng *ByteRange) (URL, error)
}
