// Package settings resolves named application secrets with a
// database-then-environment precedence. Values stored in the settings
// table override environment variables of the same name; an unreachable
// store is treated as a miss, never as a failure.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JeremyNoori/xdc-risk-monitor/storage"
)

// Well-known setting keys
const (
	KeyAPIKey     = "CMC_API_KEY"
	KeyAdminToken = "ADMIN_TOKEN"

	// KeyDatabaseURL is the Postgres connection string variable.
	// It bootstraps the store itself, so it is env-only: never stored
	// in the database and never writable through the settings surface
	KeyDatabaseURL = "XDCRISK_DB_URL"
)

// Keys lists the setting keys the application recognizes
var Keys = []string{
	KeyAPIKey,
	KeyAdminToken,
}

// ErrNotConfigured is returned when a setting is present in neither
// the store nor the environment
var ErrNotConfigured = errors.New("setting is not configured")

// Store is the subset of the storage surface the resolver reads
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// EnvFn looks up an environment variable, returning "" on a miss
type EnvFn func(key string) string

// Resolver resolves setting values, store first, environment second
type Resolver struct {
	store  Store
	env    EnvFn
	logger *slog.Logger
}

// NewResolver creates a new settings resolver
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		env:    os.Getenv,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply the options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the first value found for the given key.
// A store error is swallowed and treated as "not found there",
// so the environment fallback still applies
func (r *Resolver) Resolve(ctx context.Context, key string) (string, error) {
	value, err := r.store.GetSetting(ctx, key)

	switch {
	case err == nil && value != "":
		return value, nil
	case err != nil && !errors.Is(err, storage.ErrSettingNotFound):
		r.logger.Warn(
			"settings store unavailable, falling back to env",
			"key", key,
			"err", err,
		)
	}

	if value := r.env(key); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNotConfigured, key)
}
