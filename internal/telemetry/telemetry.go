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

// Package telemetry carries the server's ambient observability stack:
// structured logging via klog and request/ticket/cache metrics via
// Prometheus. The gin middleware here plays the same per-request
// accumulate-then-flush role as the teacher's analytics.TrackingHandler,
// adapted from a batch of Google Analytics hits to a set of metric
// observations and one structured log line.
package telemetry

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"k8s.io/klog/v2"
)

// requestIDHeader is the header carrying the request ID, both read from an
// upstream proxy and written back in the response so a client can correlate
// its request with the structured log line it produced.
const requestIDHeader = "X-Request-Id"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htsget_requests_total",
			Help: "HTTP requests handled, by endpoint kind and status class.",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "htsget_request_duration_seconds",
			Help:    "Request handling latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ticketURLCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "htsget_ticket_urls",
			Help:    "Number of URL descriptors emitted per ticket.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	indexCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "htsget_index_cache_hits_total",
			Help: "Parsed-index cache hits.",
		},
	)

	indexCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "htsget_index_cache_misses_total",
			Help: "Parsed-index cache misses.",
		},
	)
)

// ObserveTicketSize records how many URL descriptors a planned ticket held.
func ObserveTicketSize(n int) {
	ticketURLCount.Observe(float64(n))
}

// ObserveIndexCache records a single cache lookup's outcome.
func ObserveIndexCache(hit bool) {
	if hit {
		indexCacheHits.Inc()
		return
	}
	indexCacheMisses.Inc()
}

// Middleware logs one structured line per request and records the
// request-count and latency metrics, keyed by the endpoint kind recorded in
// gin's route pattern rather than the raw path (which carries a resource
// id and would blow up metric cardinality).
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()

		requestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
		requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())

		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}

		klog.InfoS("request",
			"requestID", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
			"responseSize", humanize.Bytes(uint64(size)),
			"clientIP", c.ClientIP(),
		)
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
