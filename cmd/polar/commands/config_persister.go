package commands

import (
	"sync"
	"time"
)

// ConfigPersister implements the auth.ConfigPersister interface on top of
// the configuration file at path.
type ConfigPersister struct {
	path  string
	mutex sync.Mutex
}

// NewConfigPersister creates a persister for the configuration file at path.
func NewConfigPersister(path string) *ConfigPersister {
	return &ConfigPersister{path: path}
}

// UpdateAccessToken stores token for server. An empty token removes the
// server's credentials.
func (p *ConfigPersister) UpdateAccessToken(server, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfigFile(p.path)
	if err != nil {
		return err
	}

	if token == "" {
		delete(config.Servers, server)

		return saveConfigFile(p.path, config)
	}

	now := time.Now()
	entry := &ServerConfig{Token: token, LastUpdated: &now}

	if !expiresAt.IsZero() {
		entry.TokenExpiresAt = &expiresAt
	}

	config.Servers[server] = entry

	return saveConfigFile(p.path, config)
}

// LoadAccessToken returns the stored token for server. A server without
// credentials yields an empty token.
func (p *ConfigPersister) LoadAccessToken(server string) (string, time.Time, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfigFile(p.path)
	if err != nil {
		return "", time.Time{}, err
	}

	entry, ok := config.Servers[server]
	if !ok || entry == nil {
		return "", time.Time{}, nil
	}

	var expiresAt time.Time
	if entry.TokenExpiresAt != nil {
		expiresAt = *entry.TokenExpiresAt
	}

	return entry.Token, expiresAt, nil
}
