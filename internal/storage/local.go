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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local serves files rooted at a directory on the local filesystem. Since a
// filesystem path has no way to pre-authenticate a remote fetch, Materialize
// always points back at the server's own /data/{token} proxy route, where
// token is an HMAC-signed, time-limited descriptor of the key and range
// being requested. This mirrors the teacher's gob-encoded, bearer-token
// protected block-request pattern in its GCS-backed api package, adapted to
// sign a (key, range) pair instead of a BAM chunk query.
type Local struct {
	root      string
	secret    []byte
	tokenTTL  time.Duration
	proxyBase string
}

// NewLocal returns a Local backend rooted at root. secret signs data-proxy
// tokens; proxyBase is the externally reachable base URL of this server's
// own /data route (e.g. "https://host:port").
func NewLocal(root string, secret []byte, tokenTTL time.Duration, proxyBase string) *Local {
	return &Local{root: root, secret: secret, tokenTTL: tokenTTL, proxyBase: strings.TrimRight(proxyBase, "/")}
}

func (l *Local) path(key string) (string, error) {
	full := filepath.Join(l.root, key)
	if !strings.HasPrefix(full, filepath.Clean(l.root)+string(filepath.Separator)) && full != filepath.Clean(l.root) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return full, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	full, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Length(ctx context.Context, key string) (int64, error) {
	full, err := l.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) ReadRange(ctx context.Context, key string, begin, end int64) (io.ReadCloser, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(begin, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &limitedFile{f, io.LimitReader(f, end-begin+1)}, nil
}

type limitedFile struct {
	f *os.File
	r io.Reader
}

func (l *limitedFile) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedFile) Close() error                { return l.f.Close() }

func (l *Local) Materialize(ctx context.Context, key string, rng *ByteRange) (URL, error) {
	token, err := l.sign(key, rng)
	if err != nil {
		return URL{}, fmt.Errorf("signing data token: %v", err)
	}
	url := URL{URL: fmt.Sprintf("%s/data/%s", l.proxyBase, token)}
	if rng != nil {
		url.Headers = map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", rng.Begin, rng.End)}
	}
	return url, nil
}

// dataToken is the payload signed into a /data/{token} URL.
type dataToken struct {
	Key     string `json:"key"`
	Begin   int64  `json:"begin,omitempty"`
	End     int64  `json:"end,omitempty"`
	HasRng  bool   `json:"has_range,omitempty"`
	Expires int64  `json:"expires"`
}

func (l *Local) sign(key string, rng *ByteRange) (string, error) {
	t := dataToken{Key: key, Expires: time.Now().Add(l.tokenTTL).Unix()}
	if rng != nil {
		t.Begin, t.End, t.HasRng = rng.Begin, rng.End, true
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(encodedPayload))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return encodedPayload + "." + signature, nil
}

// VerifyToken validates a /data/{token} value produced by sign, returning
// the key and (optional) range it authorizes. It is used by the data-proxy
// HTTP handler, not the planner.
func (l *Local) VerifyToken(token string) (key string, rng *ByteRange, err error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("malformed token")
	}
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(parts[0]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return "", nil, fmt.Errorf("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", nil, fmt.Errorf("decoding payload: %v", err)
	}
	var t dataToken
	if err := json.Unmarshal(payload, &t); err != nil {
		return "", nil, fmt.Errorf("decoding payload: %v", err)
	}
	if time.Now().Unix() > t.Expires {
		return "", nil, fmt.Errorf("token expired")
	}
	if t.HasRng {
		rng = &ByteRange{Begin: t.Begin, End: t.End}
	}
	return t.Key, rng, nil
}
