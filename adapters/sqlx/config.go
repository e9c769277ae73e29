package sqlx

import (
	"fmt"
	"time"
)

// Config holds SQL storage settings.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// OpenConfig connects using the config and applies the pool settings.
func OpenConfig(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sql dsn cannot be empty")
	}
	store, err := Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	store.db.SetMaxOpenConns(cfg.MaxOpenConns)
	store.db.SetMaxIdleConns(cfg.MaxIdleConns)
	store.db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return store, nil
}
