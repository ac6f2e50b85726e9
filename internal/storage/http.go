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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// retryBackoffs is the fixed 100/400/1600ms backoff schedule read_range
// retries transient network errors against, per spec.md's error-handling
// policy. The final attempt is not followed by a sleep.
var retryBackoffs = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 1600 * time.Millisecond}

// HTTP serves data and index keys by joining them against a remote base
// URL and performing ranged GETs.
type HTTP struct {
	client        *http.Client
	dataBaseURL   string
	indexBaseURL  string
}

// NewHTTP returns an HTTP backend. indexBaseURL may be empty, in which case
// index keys are resolved against dataBaseURL as well.
func NewHTTP(client *http.Client, dataBaseURL, indexBaseURL string) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client, dataBaseURL: strings.TrimRight(dataBaseURL, "/"), indexBaseURL: strings.TrimRight(indexBaseURL, "/")}
}

func (h *HTTP) resolve(key string) string {
	base := h.dataBaseURL
	if h.indexBaseURL != "" && isIndexKey(key) {
		base = h.indexBaseURL
	}
	return base + "/" + strings.TrimLeft(key, "/")
}

func isIndexKey(key string) bool {
	for _, ext := range []string{".bai", ".csi", ".tbi", ".crai", ".fai"} {
		if strings.HasSuffix(key, ext) {
			return true
		}
	}
	return false
}

func (h *HTTP) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.resolve(key), nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (h *HTTP) Length(ctx context.Context, key string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.resolve(key), nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.ContentLength, nil
}

func (h *HTTP) ReadRange(ctx context.Context, key string, begin, end int64) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt < len(retryBackoffs)+1; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoffs[attempt-1]):
			}
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, h.resolve(key), nil)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", begin, end))

		resp, doErr := h.client.Do(req)
		if doErr != nil {
			lastErr = doErr
			continue
		}
		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %s", resp.Status)
			continue
		}
		return resp.Body, nil
	}
	return nil, fmt.Errorf("reading range after %d attempts: %v", len(retryBackoffs)+1, lastErr)
}

func (h *HTTP) Materialize(ctx context.Context, key string, rng *ByteRange) (URL, error) {
	url := URL{URL: h.resolve(key)}
	if rng != nil {
		url.Headers = map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", rng.Begin, rng.End)}
	}
	return url, nil
}
