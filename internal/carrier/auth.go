package carrier

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Token is a cached B2B bearer credential.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStore persists the single cached token.
type TokenStore interface {
	Load(ctx context.Context) (Token, bool, error)
	Store(ctx context.Context, tok Token) error
	Clear(ctx context.Context) error
}

// Authenticator obtains a fresh token from the carrier.
type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// AuthCache hands out the cached B2B token and logs in again once it expires.
// Concurrent misses share one login call.
type AuthCache struct {
	auth  Authenticator
	store TokenStore
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

// NewAuthCache caches tokens for ttl. Keep ttl below the carrier's real expiry.
func NewAuthCache(auth Authenticator, store TokenStore, ttl time.Duration) *AuthCache {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &AuthCache{auth: auth, store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (c *AuthCache) WithClock(now func() time.Time) *AuthCache {
	c.now = now
	return c
}

// Token returns the cached token while now < expiry, otherwise logs in.
func (c *AuthCache) Token(ctx context.Context) (string, error) {
	tok, ok, err := c.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load cached token: %w", err)
	}
	if ok && c.now().Before(tok.ExpiresAt) {
		return tok.Value, nil
	}

	// The login outlives any single caller so that one cancelled request does
	// not fail the others waiting on it.
	loginCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("login", func() (any, error) {
		value, err := c.auth.Login(loginCtx)
		if err != nil {
			return "", err
		}
		fresh := Token{Value: value, ExpiresAt: c.now().Add(c.ttl)}
		if err := c.store.Store(loginCtx, fresh); err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
		return value, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next Token call logs in.
func (c *AuthCache) Invalidate(ctx context.Context) error {
	return c.store.Clear(ctx)
}

type MemoryTokenStore struct {
	mu  sync.RWMutex
	tok *Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(ctx context.Context) (Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return Token{}, false, nil
	}
	return *s.tok, true, nil
}

func (s *MemoryTokenStore) Store(ctx context.Context, tok Token) error {
	s.mu.Lock()
	s.tok = &tok
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tok = nil
	s.mu.Unlock()
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	JWT  string `json:"jwt"`
	Data struct {
		JWT string `json:"jwt"`
	} `json:"data"`
}

// Login authenticates against the B2B API. Client satisfies Authenticator.
func (c *Client) Login(ctx context.Context) (string, error) {
	var out loginResponse
	err := c.do(ctx, request{
		endpoint: "b2b_login",
		base:     c.b2bURL,
		method:   http.MethodPost,
		path:     "ums/login",
		body:     loginRequest{Username: c.username, Password: c.password},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	tok := out.JWT
	if tok == "" {
		tok = out.Data.JWT
	}
	if tok == "" {
		return "", fmt.Errorf("%w: login response without token", ErrAuthFailed)
	}
	return tok, nil
}
