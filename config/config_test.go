package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeol/core"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("LIFEOL_SERVER_ADDR", ":7070")
	os.Setenv("LIFEOL_STORAGE_ADAPTER", "file")
	defer os.Unsetenv("LIFEOL_SERVER_ADDR")
	defer os.Unsetenv("LIFEOL_STORAGE_ADAPTER")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Storage.Adapter)
}

func TestLoadFromFile(t *testing.T) {
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		},
		"decay": {
			"str": {"inactive_threshold": 3, "decay_rate": 0.02}
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)

	table, err := cfg.DecayTable()
	require.NoError(t, err)
	assert.Equal(t, core.DecayConfig{InactiveThreshold: 3, DecayRate: 0.02}, table[core.AttrStr])
	// untouched attributes keep defaults
	assert.Equal(t, core.DefaultDecayTable()[core.AttrInt], table[core.AttrInt])
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: EnvDevelopment,
			Server: ServerConfig{
				Address:           ":8080",
				ReadTimeout:       time.Second,
				WriteTimeout:      time.Second,
				IdleTimeout:       time.Second,
				ReadHeaderTimeout: time.Second,
				ShutdownTimeout:   time.Second,
			},
			Storage: StorageConfig{
				Adapter: "memory",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"empty environment", func(c *Config) { c.Environment = "" }, true},
		{"zero server timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"unknown adapter", func(c *Config) { c.Storage.Adapter = "etcd" }, true},
		{"sql adapter needs dsn", func(c *Config) { c.Storage.Adapter = "sql" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad decay key", func(c *Config) {
			c.Decay = map[string]core.DecayConfig{"luck": {InactiveThreshold: 5, DecayRate: 0.01}}
		}, true},
		{"bad decay rate", func(c *Config) {
			c.Decay = map[string]core.DecayConfig{"str": {InactiveThreshold: 5, DecayRate: 1.5}}
		}, true},
		{"good decay override", func(c *Config) {
			c.Decay = map[string]core.DecayConfig{"str": {InactiveThreshold: 5, DecayRate: 0.01}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		name         string
		profileName  string
		expectConfig bool
		environment  Environment
	}{
		{"development", "development", true, EnvDevelopment},
		{"testing", "testing", true, EnvTesting},
		{"staging", "staging", true, EnvStaging},
		{"production", "production", true, EnvProduction},
		{"unknown", "unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadProfile(tt.profileName)
			if tt.expectConfig {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				assert.Equal(t, tt.environment, cfg.Environment)
			} else {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestSecrets(t *testing.T) {
	store := NewEnvironmentSecretStore()

	testKey := "TEST_SECRET_KEY"
	testValue := "test_secret_value"
	os.Setenv(testKey, testValue)
	defer os.Unsetenv(testKey)

	ctx := context.Background()

	value, err := store.Get(ctx, testKey)
	assert.NoError(t, err)
	assert.Equal(t, testValue, value)

	defaultValue := "default"
	value = store.GetWithDefault(ctx, "NONEXISTENT_KEY", defaultValue)
	assert.Equal(t, defaultValue, value)

	value = store.GetWithDefault(ctx, testKey, defaultValue)
	assert.Equal(t, testValue, value)
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.SQL.DSN = "postgres://user:hunter2@db/lifeol"
	cfg.Storage.Redis.Password = "hunter2"
	cfg.Security.APIKeys = []string{"sk-123"}

	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "sk-123")
	assert.Contains(t, s, "[REDACTED]")
}

func TestValidateConfigPath(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	tmpFile.WriteString("{}")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	assert.NoError(t, validateConfigPath(tmpFile.Name()))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("nonexistent.json"))
	assert.Error(t, validateConfigPath("config.txt"))
}
