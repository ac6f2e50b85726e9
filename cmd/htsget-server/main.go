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

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/genomepath/htsget/internal/auth"
	"github.com/genomepath/htsget/internal/config"
	"github.com/genomepath/htsget/internal/httpapi"
	"github.com/genomepath/htsget/internal/planner"
	"github.com/genomepath/htsget/internal/storage"
)

const (
	// blockSizeLimit bounds how large a merged BGZF chunk is allowed to
	// grow before bgzf.Merge starts a new one; matches the
	// teacher's default in its multisource file server.
	blockSizeLimit = 1024 * 1024 * 1024
	indexCacheSize = 256
	indexCacheTTL  = 10 * time.Minute
	jwksTTL        = 5 * time.Minute
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-interrupt:
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "htsget-server",
		Usage:       "GA4GH htsget v1.3 streaming server",
		Flags:       config.Flags(),
		Action:      run,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Errorf("exiting: %v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode implements spec.md §6's exit code contract: 1 for configuration
// errors, 2 for a failed listener bind, surfaced via the sentinel types
// below; anything else defaults to 1.
func exitCode(err error) int {
	if _, ok := err.(bindError); ok {
		return 2
	}
	return 1
}

type bindError struct{ cause error }

func (e bindError) Error() string { return e.cause.Error() }

func run(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	cache := storage.NewIndexCache(indexCacheSize, indexCacheTTL)
	defer cache.Stop()

	plan := planner.New(backend, string(cfg.Storage), cache, blockSizeLimit)

	var local *storage.Local
	if l, ok := backend.(*storage.Local); ok {
		local = l
	}

	server := &httpapi.Server{Planner: plan, Local: local, CORS: cfg.CORS}

	authenticator, err := auth.New(auth.Config{
		Enabled:         cfg.AuthEnabled,
		Issuer:          cfg.AuthIssuer,
		Audience:        cfg.AuthAudience,
		JWKSURL:         cfg.AuthJWKSURL,
		PublicKeyPEM:    cfg.AuthPublicKey,
		PublicEndpoints: publicEndpointSet(cfg.AuthPublicEndpoints),
	}, http.DefaultClient, jwksTTL)
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(authenticator.Middleware())
	server.Register(router)

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return bindError{err}
	}

	klog.InfoS("listening", "addr", addr, "storage", cfg.Storage)
	return http.Serve(listener, router)
}

func publicEndpointSet(endpoints []string) map[string]bool {
	set := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		set[e] = true
	}
	return set
}

func buildBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageLocal:
		return storage.NewLocal(cfg.DataDir, []byte(cfg.DataURLSecret), cfg.DataURLExpiry, cfg.BaseURL), nil
	case config.StorageS3:
		sess, err := session.NewSession(&aws.Config{
			Region:   aws.String(cfg.S3Region),
			Endpoint: aws.String(cfg.S3Endpoint),
		})
		if err != nil {
			return nil, fmt.Errorf("creating AWS session: %v", err)
		}
		return storage.NewS3(sess, cfg.S3Bucket, cfg.S3Prefix, cfg.PresignedURLExpiry, cfg.CacheDir), nil
	case config.StorageHTTP:
		return storage.NewHTTP(http.DefaultClient, cfg.HTTPBaseURL, cfg.HTTPIndexBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
