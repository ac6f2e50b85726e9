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

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestAuthenticateWithStaticKeySucceeds(t *testing.T) {
	key, pub := generateKeyPair(t)
	a, err := New(Config{Enabled: true, PublicKeyPEM: pub}, nil, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := signToken(t, key, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/reads/sample1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	if err := a.authenticate(req); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	_, pub := generateKeyPair(t)
	a, err := New(Config{Enabled: true, PublicKeyPEM: pub}, nil, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/reads/sample1", nil)
	if err := a.authenticate(req); err == nil {
		t.Fatal("expected an error for a request with no Authorization header")
	}
}

func TestAuthenticateRejectsWrongKey(t *testing.T) {
	signingKey, _ := generateKeyPair(t)
	_, otherPub := generateKeyPair(t)
	a, err := New(Config{Enabled: true, PublicKeyPEM: otherPub}, nil, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := signToken(t, signingKey, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/reads/sample1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	if err := a.authenticate(req); err == nil {
		t.Fatal("expected signature verification to fail against the wrong key")
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	key, pub := generateKeyPair(t)
	a, err := New(Config{Enabled: true, PublicKeyPEM: pub}, nil, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := signToken(t, key, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/reads/sample1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	if err := a.authenticate(req); err == nil {
		t.Fatal("expected an expired token to be rejected")
	}
}

func TestNewRequiresAKeySourceWhenEnabled(t *testing.T) {
	if _, err := New(Config{Enabled: true}, nil, time.Minute); err == nil {
		t.Fatal("expected an error when auth is enabled with no JWKS URL or public key")
	}
}

func TestNewDisabledRequiresNoKeySource(t *testing.T) {
	if _, err := New(Config{Enabled: false}, nil, time.Minute); err != nil {
		t.Fatalf("New: %v", err)
	}
}
