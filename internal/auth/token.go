package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoToken             = errors.New("no access token available")
	ErrNoConfigPersister   = errors.New("no config persister configured")
	ErrRefreshNotSupported = errors.New("token cannot be refreshed")
)

// expiryBuffer treats tokens that expire this soon as already expired.
const expiryBuffer = 30 * time.Second

// Token is a bearer credential. A zero ExpiresAt means the token does not
// expire, which is the case for organization access tokens.
type Token struct {
	AccessToken string    `json:"access_token"         yaml:"access_token"`
	TokenType   string    `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Valid reports whether the token can be sent.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenManager supplies tokens to the HTTP layer.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// TokenStore holds the current token and is safe for concurrent use.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// StaticTokenManager serves a fixed token.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager for token. Surrounding whitespace
// and a "Bearer " prefix are stripped.
func NewStaticTokenManager(token string) *StaticTokenManager {
	m := &StaticTokenManager{store: NewTokenStore()}
	m.SetToken(token, time.Time{})

	return m
}

// GetToken returns the token or ErrNoToken.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if !token.Valid() {
		return "", ErrNoToken
	}

	return token.AccessToken, nil
}

// RefreshToken always fails with ErrRefreshNotSupported.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrRefreshNotSupported
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	token = normalizeToken(token)
	if token == "" {
		m.store.Clear()
		return
	}

	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}

func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}

	return token
}
