package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/narrator/config"
)

// ErrNotFound is returned when a key has no stored document.
var ErrNotFound = errors.New("document not found")

// Store persists JSON documents by key. Put replaces the whole document.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.File.DataDir)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// validKey rejects keys that could escape the namespace.
func validKey(key string) error {
	if key == "" {
		return errors.New("empty key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
