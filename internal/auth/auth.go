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

// Package auth validates JWT bearer tokens against a JWKS endpoint or a
// static public key, gating every htsget endpoint except the ones named in
// AUTH_PUBLIC_ENDPOINTS.
package auth

import (
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/genomepath/htsget/internal/ticket"
)

// Config is the auth middleware's static configuration, one field per
// AUTH_* environment variable in spec.md §6.
type Config struct {
	Enabled         bool
	Issuer          string
	Audience        string
	JWKSURL         string
	PublicKeyPEM    string
	PublicEndpoints map[string]bool
}

// Authenticator validates bearer tokens per Config.
type Authenticator struct {
	config    Config
	jwks      *jwksClient
	staticKey *rsa.PublicKey
}

// New returns an Authenticator. If cfg.JWKSURL is set it takes precedence
// over cfg.PublicKeyPEM; at least one must be set when cfg.Enabled is true.
func New(cfg Config, httpClient *http.Client, jwksTTL time.Duration) (*Authenticator, error) {
	a := &Authenticator{config: cfg}
	if !cfg.Enabled {
		return a, nil
	}
	if cfg.JWKSURL != "" {
		a.jwks = newJWKSClient(cfg.JWKSURL, httpClient, jwksTTL)
		return a, nil
	}
	if cfg.PublicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parsing AUTH_PUBLIC_KEY: %v", err)
		}
		a.staticKey = key
		return a, nil
	}
	return nil, fmt.Errorf("auth is enabled but neither AUTH_JWKS_URL nor AUTH_PUBLIC_KEY is set")
}

// Middleware returns a gin handler enforcing a's configuration. Requests to
// a path in cfg.PublicEndpoints are let through unauthenticated.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.config.Enabled || a.config.PublicEndpoints[c.FullPath()] {
			c.Next()
			return
		}

		if err := a.authenticate(c.Request); err != nil {
			status, body := ticket.AsResponse(ticket.NewInvalidAuthenticationError("authenticating request", err))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(r *http.Request) error {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, prefix)

	parserOpts := []jwt.ParserOption{}
	if a.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(a.config.Audience))
	}

	token, err := jwt.Parse(raw, a.keyFunc, parserOpts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("token failed validation")
	}
	return nil
}

func (a *Authenticator) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	if a.staticKey != nil {
		return a.staticKey, nil
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no key id")
	}
	return a.jwks.key(kid)
}
