package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves secrets (API keys, DSNs) outside the config file.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, fallback string) string
}

// EnvironmentSecretStore reads secrets from environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore {
	return &EnvironmentSecretStore{}
}

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("secret %s not set", key)
	}
	return value, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, fallback string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	return value
}

// LoadSecretsFromEnv pulls connection secrets from the environment, keeping
// them out of config files.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	store := NewEnvironmentSecretStore()
	c.Storage.SQL.DSN = store.GetWithDefault(ctx, "LIFEOL_SQL_DSN", c.Storage.SQL.DSN)
	c.Storage.Redis.Password = store.GetWithDefault(ctx, "LIFEOL_REDIS_PASSWORD", c.Storage.Redis.Password)
	if keys, err := store.Get(ctx, "LIFEOL_API_KEYS"); err == nil {
		c.Security.APIKeys = strings.Split(keys, ",")
	}
	return nil
}
