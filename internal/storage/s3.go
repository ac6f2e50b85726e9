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
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// S3 serves objects from an S3-compatible bucket. Materialize issues a
// presigned GET URL directly against the object store; the server never
// proxies the bytes itself.
type S3 struct {
	client     *s3.S3
	bucket     string
	prefix     string
	presignTTL time.Duration
	cacheDir   string
	memCache   *bigcache.BigCache
}

// NewS3 returns an S3 backend for bucket, using sess (already configured
// with region/endpoint/credentials). Keys are formed as prefix+stem+ext.
// presignTTL bounds how long a Materialize URL remains valid. If cacheDir is
// non-empty, index blobs fetched via StageForParsing are written there
// instead of held in the in-process bigcache, which otherwise holds staged
// index bytes for repeat lookups of the same object within its eviction
// window so a run of requests against one BAM doesn't re-fetch its .bai on
// every ticket.
func NewS3(sess *session.Session, bucket, prefix string, presignTTL time.Duration, cacheDir string) *S3 {
	memCache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(10*time.Minute))
	if err != nil {
		// DefaultConfig never fails validation; a non-nil error here would be
		// a bigcache bug, not a runtime condition this backend should try to
		// recover from.
		panic(err)
	}
	return &S3{client: s3.New(sess), bucket: bucket, prefix: prefix, presignTTL: presignTTL, cacheDir: cacheDir, memCache: memCache}
}

func (b *S3) fullKey(key string) string {
	return b.prefix + key
}

func (b *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *S3) Length(ctx context.Context, key string) (int64, error) {
	out, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		return 0, err
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("object %q has no content length", key)
	}
	return *out.ContentLength, nil
}

func (b *S3) ReadRange(ctx context.Context, key string, begin, end int64) (io.ReadCloser, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", begin, end)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (b *S3) Materialize(ctx context.Context, key string, rng *ByteRange) (URL, error) {
	req, _ := b.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	presigned, err := req.Presign(b.presignTTL)
	if err != nil {
		return URL{}, errors.Wrap(err, "presigning object URL")
	}
	url := URL{URL: presigned}
	if rng != nil {
		url.Headers = map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", rng.Begin, rng.End)}
	}
	return url, nil
}

// StageForParsing copies an index blob (small enough to hold in full) to a
// local file so the index reader can parse it with random-access reads
// without re-issuing ranged GETs against the object store mid-parse. If
// cacheDir is unset, it is staged to a byte buffer instead.
func (b *S3) StageForParsing(ctx context.Context, key string) (io.ReadCloser, error) {
	fullKey := b.fullKey(key)

	if b.cacheDir == "" {
		if cached, err := b.memCache.Get(fullKey); err == nil {
			return ioutil.NopCloser(bytes.NewReader(cached)), nil
		}
	}

	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching index blob")
	}
	defer out.Body.Close()

	if b.cacheDir == "" {
		data, err := ioutil.ReadAll(out.Body)
		if err != nil {
			return nil, errors.Wrap(err, "buffering index blob")
		}
		if err := b.memCache.Set(fullKey, data); err != nil {
			klog.Warningf("caching staged index blob %q: %v", fullKey, err)
		}
		return ioutil.NopCloser(bytes.NewReader(data)), nil
	}

	staged := filepath.Join(b.cacheDir, strings.ReplaceAll(key, "/", "_"))
	f, err := os.Create(staged)
	if err != nil {
		return nil, errors.Wrap(err, "creating staging file")
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "staging index blob")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}
