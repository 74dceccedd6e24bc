// Copyright 2025 Blink Labs Software
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

// Package auth issues and verifies the signed tokens that identify API callers
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/blinklabs-io/circulard/database/sops"
	"github.com/blinklabs-io/circulard/directory"
	"github.com/blinklabs-io/circulard/workflow"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	// TokenHeader is the header carrying the token. A standard
	// "Authorization: Bearer" header is accepted as well
	TokenHeader = "x-auth-token"

	minSecretLength = 32
)

// Claims is the token payload. The user object mirrors the actor identity
type Claims struct {
	User workflow.Actor `json:"user"`
	jwt.RegisteredClaims
}

// Credentials looks up accounts by email for Login
type Credentials interface {
	GetUserRecordByEmail(ctx context.Context, email string) (*directory.UserRecord, error)
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  Credentials
	logger *slog.Logger
	now    func() time.Time
}

type AuthenticatorOptionFunc func(*Authenticator)

func WithLogger(logger *slog.Logger) AuthenticatorOptionFunc {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func WithTokenTTL(ttl time.Duration) AuthenticatorOptionFunc {
	return func(a *Authenticator) {
		a.ttl = ttl
	}
}

func WithCredentials(users Credentials) AuthenticatorOptionFunc {
	return func(a *Authenticator) {
		a.users = users
	}
}

func WithClock(now func() time.Time) AuthenticatorOptionFunc {
	return func(a *Authenticator) {
		a.now = now
	}
}

func New(secret []byte, opts ...AuthenticatorOptionFunc) (*Authenticator, error) {
	secret = bytes.TrimSpace(secret)
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf(
			"auth secret must be at least %d bytes, got %d",
			minSecretLength,
			len(secret),
		)
	}
	a := &Authenticator{
		secret: secret,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "auth")
	if a.ttl <= 0 {
		a.ttl = DefaultTokenTTL
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// LoadSecretFile reads a signing secret from disk, decrypting it first when
// the file is a SOPS document
func LoadSecretFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read auth secret: %w", err)
	}
	if sops.IsEncrypted(data) {
		data, err = sops.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt auth secret: %w", err)
		}
	}
	return bytes.TrimSpace(data), nil
}

// Issue signs a token for actor
func (a *Authenticator) Issue(actor workflow.Actor) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		User: actor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Verify checks a token and returns the actor it was issued for
func (a *Authenticator) Verify(token string) (workflow.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return workflow.Actor{}, workflow.NewError(workflow.KindUnauthenticated, "token is not valid")
	}
	if claims.User.ID == "" || !claims.User.Role.Valid() {
		return workflow.Actor{}, workflow.NewError(workflow.KindUnauthenticated, "token is not valid")
	}
	return claims.User, nil
}

// TokenFromRequest extracts the raw token, or "" when none was sent
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// ActorFromRequest authenticates an HTTP request
func (a *Authenticator) ActorFromRequest(r *http.Request) (workflow.Actor, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return workflow.Actor{}, workflow.NewError(
			workflow.KindUnauthenticated,
			"no token, authorization denied",
		)
	}
	return a.Verify(token)
}

// Login checks a password and issues a token for the account
func (a *Authenticator) Login(
	ctx context.Context,
	email string,
	password string,
) (string, *directory.UserRecord, error) {
	if a.users == nil {
		return "", nil, errors.New("login requires a credentials store")
	}
	invalid := workflow.NewError(workflow.KindUnauthenticated, "invalid email or password")
	u, err := a.users.GetUserRecordByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return "", nil, invalid
		}
		return "", nil, fmt.Errorf("look up user: %w", err)
	}
	if !u.CheckPassword(password) {
		a.logger.Info("failed login", "user", u.ID)
		return "", nil, invalid
	}
	token, _, err := a.Issue(workflow.Actor{ID: u.ID, Role: u.Role})
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

type contextKey struct{}

// NewContext returns a child context carrying the actor
func NewContext(ctx context.Context, actor workflow.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the actor stored by NewContext
func FromContext(ctx context.Context) (workflow.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(workflow.Actor)
	return actor, ok
}
