// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access token claims issued by the platform's auth provider.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// VerifierConfig holds token verification settings
type VerifierConfig struct {
	Secret     []byte
	Issuer     string
	CookieName string
	Leeway     time.Duration
}

// Verifier turns inbound credentials into a Principal.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

// NewVerifier creates a new token verifier
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		secret:     cfg.Secret,
		cookieName: cfg.CookieName,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// Verify validates a signed token and returns the principal it names.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	if tokenString == "" {
		return Anonymous(), ErrMissingToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Anonymous(), ErrInvalidSubject
	}

	return Principal{
		ID:            sub.String(),
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		Authenticated: true,
	}, nil
}

// FromRequest extracts the principal from the Authorization bearer token or,
// failing that, the session cookie. Any failure yields the anonymous
// principal; deciding what anonymity means is the gateway's job.
func (v *Verifier) FromRequest(r *http.Request) (Principal, error) {
	token := bearerToken(r)
	if token == "" && v.cookieName != "" {
		if c, err := r.Cookie(v.cookieName); err == nil {
			token = c.Value
		}
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Principal is FromRequest without the error: callers that only need to know
// who is asking get the anonymous principal on any failure.
func (v *Verifier) Principal(r *http.Request) Principal {
	p, _ := v.FromRequest(r)
	return p
}
