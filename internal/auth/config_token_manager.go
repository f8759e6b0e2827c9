package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ConfigPersister reads and writes tokens in the CLI configuration, keyed by
// server name.
type ConfigPersister interface {
	UpdateAccessToken(server, token string, expiresAt time.Time) error
	LoadAccessToken(server string) (string, time.Time, error)
}

// ConfigTokenManager serves the token stored in the CLI configuration. Tokens
// set through it are persisted; RefreshToken reloads the configuration so a
// token replaced by another process is picked up.
type ConfigTokenManager struct {
	store           *TokenStore
	configPersister ConfigPersister
	server          string
	mutex           sync.Mutex
}

// NewConfigTokenManager creates a manager seeded with initialToken.
func NewConfigTokenManager(configPersister ConfigPersister, server string, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	m := &ConfigTokenManager{
		store:           NewTokenStore(),
		configPersister: configPersister,
		server:          server,
	}

	if token := normalizeToken(initialToken); token != "" {
		m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: initialExpiry})
	}

	return m
}

// GetToken returns the current token. An expired or missing token triggers a
// reload from the configuration first.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	token = m.store.Get()
	if !token.Valid() {
		return "", ErrNoToken
	}

	return token.AccessToken, nil
}

// RefreshToken reloads the token from the configuration.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	token, expiresAt, err := m.configPersister.LoadAccessToken(m.server)
	if err != nil {
		return fmt.Errorf("failed to load access token: %w", err)
	}

	token = normalizeToken(token)
	if token == "" {
		m.store.Clear()
		return ErrNoToken
	}

	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})

	return nil
}

// SetToken stores and persists token. Persistence failures are reported by Persist.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	_ = m.Persist(token, expiresAt)
}

// Persist stores token and writes it to the configuration.
func (m *ConfigTokenManager) Persist(token string, expiresAt time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	token = normalizeToken(token)
	if token == "" {
		m.store.Clear()
	} else {
		m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
	}

	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	err := m.configPersister.UpdateAccessToken(m.server, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	return nil
}

// IsTokenExpiringSoon returns true if the token expires within the given duration.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.store.Get()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}

// GetTokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) GetTokenExpiry() time.Time {
	token := m.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}
