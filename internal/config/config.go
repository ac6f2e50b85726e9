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

// Package config binds every environment variable spec.md §6 names to a
// urfave/cli flag, so `htsget-server --help` documents the whole
// configuration surface and each value can equally be set as a flag or an
// environment variable.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// Storage selects which storage.Backend implementation to construct.
type Storage string

const (
	StorageLocal Storage = "local"
	StorageS3    Storage = "s3"
	StorageHTTP  Storage = "http"
)

// Config is the fully parsed configuration surface, ready to build a
// storage backend, authenticator, and HTTP server from.
type Config struct {
	Host string
	Port int

	DataDir string
	BaseURL string
	CORS    string

	Storage Storage

	S3Bucket            string
	S3Region             string
	S3Prefix             string
	S3Endpoint           string
	PresignedURLExpiry   time.Duration
	CacheDir             string

	HTTPBaseURL      string
	HTTPIndexBaseURL string

	AuthEnabled         bool
	AuthIssuer          string
	AuthAudience        string
	AuthJWKSURL         string
	AuthPublicKey       string
	AuthPublicEndpoints []string

	DataURLSecret string
	DataURLExpiry time.Duration
}

// Flags returns the urfave/cli flag set backing every field in Config, each
// with a matching EnvVars entry per spec.md §6.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"HOST"}, Usage: "address to bind the HTTP listener to"},
		&cli.IntFlag{Name: "port", Value: 8080, EnvVars: []string{"PORT"}, Usage: "port to bind the HTTP listener to"},

		&cli.StringFlag{Name: "data-dir", EnvVars: []string{"DATA_DIR"}, Usage: "root directory for the local storage backend"},
		&cli.StringFlag{Name: "base-url", EnvVars: []string{"BASE_URL"}, Usage: "externally reachable base URL of this server, used to build /data proxy URLs"},
		&cli.StringFlag{Name: "cors", EnvVars: []string{"CORS"}, Usage: "Access-Control-Allow-Origin value, empty disables CORS"},

		&cli.StringFlag{Name: "storage", Value: "local", EnvVars: []string{"STORAGE"}, Usage: "storage backend: local, s3, or http"},

		&cli.StringFlag{Name: "s3-bucket", EnvVars: []string{"S3_BUCKET"}, Usage: "S3 bucket name (required when storage=s3)"},
		&cli.StringFlag{Name: "s3-region", EnvVars: []string{"S3_REGION"}, Usage: "S3 bucket region"},
		&cli.StringFlag{Name: "s3-prefix", EnvVars: []string{"S3_PREFIX"}, Usage: "key prefix applied to every S3 object lookup"},
		&cli.StringFlag{Name: "s3-endpoint", EnvVars: []string{"S3_ENDPOINT"}, Usage: "S3-compatible endpoint override"},
		&cli.DurationFlag{Name: "presigned-url-expiry", Value: 15 * time.Minute, EnvVars: []string{"PRESIGNED_URL_EXPIRY"}, Usage: "TTL of presigned S3 GET URLs"},
		&cli.StringFlag{Name: "cache-dir", EnvVars: []string{"CACHE_DIR"}, Usage: "directory to stage remote index blobs in before parsing"},

		&cli.StringFlag{Name: "http-base-url", EnvVars: []string{"HTTP_BASE_URL"}, Usage: "base URL of the remote data store (required when storage=http)"},
		&cli.StringFlag{Name: "http-index-base-url", EnvVars: []string{"HTTP_INDEX_BASE_URL"}, Usage: "base URL for index files, if different from http-base-url"},

		&cli.BoolFlag{Name: "auth-enabled", EnvVars: []string{"AUTH_ENABLED"}, Usage: "require a valid bearer token on every non-public endpoint"},
		&cli.StringFlag{Name: "auth-issuer", EnvVars: []string{"AUTH_ISSUER"}, Usage: "required JWT issuer claim"},
		&cli.StringFlag{Name: "auth-audience", EnvVars: []string{"AUTH_AUDIENCE"}, Usage: "required JWT audience claim"},
		&cli.StringFlag{Name: "auth-jwks-url", EnvVars: []string{"AUTH_JWKS_URL"}, Usage: "JWKS endpoint used to validate bearer tokens"},
		&cli.StringFlag{Name: "auth-public-key", EnvVars: []string{"AUTH_PUBLIC_KEY"}, Usage: "PEM-encoded RSA public key, used instead of a JWKS endpoint"},
		&cli.StringFlag{Name: "auth-public-endpoints", EnvVars: []string{"AUTH_PUBLIC_ENDPOINTS"}, Usage: "comma-separated route patterns exempt from auth, e.g. /service-info"},

		&cli.StringFlag{Name: "data-url-secret", EnvVars: []string{"DATA_URL_SECRET"}, Usage: "HMAC secret signing local backend /data proxy tokens"},
		&cli.DurationFlag{Name: "data-url-expiry", Value: 10 * time.Minute, EnvVars: []string{"DATA_URL_EXPIRY"}, Usage: "TTL of signed /data proxy tokens"},
	}
}

// FromContext builds a Config from a parsed cli.Context, validating the
// required fields for the selected storage backend. A returned error here
// corresponds to exit code 1 (configuration error) per spec.md §6.
func FromContext(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Host:    c.String("host"),
		Port:    c.Int("port"),
		DataDir: c.String("data-dir"),
		BaseURL: c.String("base-url"),
		CORS:    c.String("cors"),

		Storage: Storage(c.String("storage")),

		S3Bucket:           c.String("s3-bucket"),
		S3Region:           c.String("s3-region"),
		S3Prefix:           c.String("s3-prefix"),
		S3Endpoint:         c.String("s3-endpoint"),
		PresignedURLExpiry: c.Duration("presigned-url-expiry"),
		CacheDir:           c.String("cache-dir"),

		HTTPBaseURL:      c.String("http-base-url"),
		HTTPIndexBaseURL: c.String("http-index-base-url"),

		AuthEnabled:   c.Bool("auth-enabled"),
		AuthIssuer:    c.String("auth-issuer"),
		AuthAudience:  c.String("auth-audience"),
		AuthJWKSURL:   c.String("auth-jwks-url"),
		AuthPublicKey: c.String("auth-public-key"),

		DataURLSecret: c.String("data-url-secret"),
		DataURLExpiry: c.Duration("data-url-expiry"),
	}
	if raw := c.String("auth-public-endpoints"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.AuthPublicEndpoints = append(cfg.AuthPublicEndpoints, p)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Storage {
	case StorageLocal:
		if cfg.DataDir == "" {
			return fmt.Errorf("storage=local requires --data-dir (DATA_DIR)")
		}
		if cfg.DataURLSecret == "" {
			return fmt.Errorf("storage=local requires --data-url-secret (DATA_URL_SECRET) to sign proxy tokens")
		}
	case StorageS3:
		if cfg.S3Bucket == "" {
			return fmt.Errorf("storage=s3 requires --s3-bucket (S3_BUCKET)")
		}
	case StorageHTTP:
		if cfg.HTTPBaseURL == "" {
			return fmt.Errorf("storage=http requires --http-base-url (HTTP_BASE_URL)")
		}
	default:
		return fmt.Errorf("unknown storage backend %q: must be local, s3, or http", cfg.Storage)
	}

	if cfg.AuthEnabled && cfg.AuthJWKSURL == "" && cfg.AuthPublicKey == "" {
		return fmt.Errorf("auth-enabled requires either --auth-jwks-url (AUTH_JWKS_URL) or --auth-public-key (AUTH_PUBLIC_KEY)")
	}
	return nil
}
