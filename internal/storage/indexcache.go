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
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// IndexCache is the process-wide, size-bounded, TTL-evicted cache of parsed
// indexes (index.Index for BAI/TBI/CSI, cram.Index for .crai). It is the
// only shared mutable state the ticket planner touches: reads and writes
// are both serialized internally by ttlcache.
type IndexCache struct {
	cache *ttlcache.Cache[string, interface{}]
}

// NewIndexCache returns a cache holding up to capacity entries, each
// evicted ttl after it was last set or read (ttlcache extends an entry's
// TTL on every hit).
func NewIndexCache(capacity uint64, ttl time.Duration) *IndexCache {
	cache := ttlcache.New[string, interface{}](
		ttlcache.WithCapacity[string, interface{}](capacity),
		ttlcache.WithTTL[string, interface{}](ttl),
	)
	go cache.Start()
	return &IndexCache{cache: cache}
}

// Key builds the cache key spec.md §5 describes: (backend, key, version).
// version is supplied by the caller and invalidates the entry when it
// changes, without requiring active eviction. The planner passes the index
// object's length, so a rewrite that leaves the length unchanged is not
// detected.
func Key(backendID, key, version string) string {
	return fmt.Sprintf("%s\x00%s\x00%s", backendID, key, version)
}

// Get returns the cached value for key, if present and unexpired.
func (c *IndexCache) Get(key string) (interface{}, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key, superseding any prior entry.
func (c *IndexCache) Set(key string, value interface{}) {
	c.cache.Set(key, value, ttlcache.DefaultTTL)
}

// Stop halts the cache's background eviction goroutine.
func (c *IndexCache) Stop() {
	c.cache.Stop()
}
