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

package storage

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

func newTestSession(t *testing.T, endpoint string) *session.Session {
	t.Helper()
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(endpoint != ""),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials("AKIATEST", "secret", ""),
	})
	if err != nil {
		t.Fatalf("creating test session: %v", err)
	}
	return sess
}

// TestS3MaterializePresignsURLWithRangeHeader reproduces spec.md §8 scenario
// 6: a ticket URL against the S3 backend is an https presigned URL carrying
// a Range header, rather than bytes the server proxies itself.
func TestS3MaterializePresignsURLWithRangeHeader(t *testing.T) {
	sess := newTestSession(t, "")
	backend := NewS3(sess, "htsget-bucket", "data/", 15*time.Minute, "")

	rng := &ByteRange{Begin: 100, End: 200}
	url, err := backend.Materialize(context.Background(), "sample1.bam", rng)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !strings.HasPrefix(url.URL, "https://") {
		t.Fatalf("url = %q, want an https presigned URL", url.URL)
	}
	if !strings.Contains(url.URL, "htsget-bucket") {
		t.Fatalf("url = %q, want it to reference the bucket", url.URL)
	}
	if !strings.Contains(url.URL, "data/sample1.bam") {
		t.Fatalf("url = %q, want it to reference the prefixed key", url.URL)
	}
	if got, want := url.Headers["Range"], "bytes=100-200"; got != want {
		t.Fatalf("Range header = %q, want %q", got, want)
	}
}

// TestS3MaterializeWholeObjectHasNoRangeHeader covers the whole-file
// Materialize call (rng == nil), used when a ticket's URL spans an entire
// object rather than a byte range within it.
func TestS3MaterializeWholeObjectHasNoRangeHeader(t *testing.T) {
	sess := newTestSession(t, "")
	backend := NewS3(sess, "htsget-bucket", "", time.Minute, "")

	url, err := backend.Materialize(context.Background(), "sample1.bam", nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if _, ok := url.Headers["Range"]; ok {
		t.Fatalf("url = %+v, want no Range header for a whole-object URL", url)
	}
}

func newObjectServer(t *testing.T, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// TestS3StageForParsingBuffersIndexBlob covers the in-memory staging path
// (cacheDir unset): the first call fetches the object and returns its
// bytes unchanged, and a second call against the same key is served from the
// bigcache layer without a second request reaching the object store.
func TestS3StageForParsingBuffersIndexBlob(t *testing.T) {
	body := []byte("fake-compressed-index-bytes")
	srv, requests := newObjectServer(t, body)

	backend := NewS3(newTestSession(t, srv.URL), "htsget-bucket", "", time.Minute, "")

	r, err := backend.StageForParsing(context.Background(), "sample1.bam.tbi")
	if err != nil {
		t.Fatalf("StageForParsing: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("reading staged index: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("staged bytes = %q, want %q", got, body)
	}
	if n := atomic.LoadInt32(requests); n != 1 {
		t.Fatalf("requests after first stage = %d, want 1", n)
	}

	r2, err := backend.StageForParsing(context.Background(), "sample1.bam.tbi")
	if err != nil {
		t.Fatalf("StageForParsing (cached): %v", err)
	}
	got2, err := ioutil.ReadAll(r2)
	r2.Close()
	if err != nil {
		t.Fatalf("reading cached staged index: %v", err)
	}
	if string(got2) != string(body) {
		t.Fatalf("cached staged bytes = %q, want %q", got2, body)
	}
	if n := atomic.LoadInt32(requests); n != 1 {
		t.Fatalf("requests after cached stage = %d, want still 1 (served from bigcache)", n)
	}
}

// TestS3StageForParsingWritesCacheDir covers the on-disk staging path: when
// cacheDir is set, the index blob lands in a regular file under it instead
// of the in-process byte cache.
func TestS3StageForParsingWritesCacheDir(t *testing.T) {
	body := []byte("fake-compressed-index-bytes")
	srv, _ := newObjectServer(t, body)
	dir := t.TempDir()

	backend := NewS3(newTestSession(t, srv.URL), "htsget-bucket", "", time.Minute, dir)

	r, err := backend.StageForParsing(context.Background(), "sample1.bam.tbi")
	if err != nil {
		t.Fatalf("StageForParsing: %v", err)
	}
	defer r.Close()
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("reading staged index: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("staged bytes = %q, want %q", got, body)
	}

	staged, err := ioutil.ReadFile(filepath.Join(dir, "sample1.bam.tbi"))
	if err != nil {
		t.Fatalf("reading staged file: %v", err)
	}
	if string(staged) != string(body) {
		t.Fatalf("staged file bytes = %q, want %q", staged, body)
	}
}
