// Package database provides the key-value persistence the entity stores
// and the rate limiter are built on.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/config"
	"go.uber.org/zap"
)

// ErrKeyNotFound is returned by Get when no value is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// KV is a durable key-value store with read-after-write consistency per key.
// It offers no scan and no cross-key transactions.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open connects to the backend selected by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (KV, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := NewPool(ctx, cfg.DSN(), log)
		if err != nil {
			return nil, err
		}
		store := NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
