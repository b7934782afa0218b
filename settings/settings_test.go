package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyNoori/xdc-risk-monitor/storage"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/mock"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	noEnv := func(_ string) string {
		return ""
	}

	t.Run("store hit wins", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			GetSettingFn: func(_ context.Context, key string) (string, error) {
				require.Equal(t, KeyAPIKey, key)

				return "db-value", nil
			},
		}

		r := NewResolver(
			store,
			WithEnv(func(_ string) string {
				return "env-value"
			}),
		)

		value, err := r.Resolve(context.Background(), KeyAPIKey)

		require.NoError(t, err)
		assert.Equal(t, "db-value", value)
	})

	t.Run("store miss falls back to env", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			GetSettingFn: func(_ context.Context, _ string) (string, error) {
				return "", storage.ErrSettingNotFound
			},
		}

		r := NewResolver(
			store,
			WithEnv(func(key string) string {
				require.Equal(t, KeyAdminToken, key)

				return "env-value"
			}),
		)

		value, err := r.Resolve(context.Background(), KeyAdminToken)

		require.NoError(t, err)
		assert.Equal(t, "env-value", value)
	})

	t.Run("store error is swallowed", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			GetSettingFn: func(_ context.Context, _ string) (string, error) {
				return "", errors.New("connection refused")
			},
		}

		r := NewResolver(
			store,
			WithEnv(func(_ string) string {
				return "env-value"
			}),
		)

		value, err := r.Resolve(context.Background(), KeyAPIKey)

		require.NoError(t, err)
		assert.Equal(t, "env-value", value)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			GetSettingFn: func(_ context.Context, _ string) (string, error) {
				return "", storage.ErrSettingNotFound
			},
		}

		r := NewResolver(store, WithEnv(noEnv))

		_, err := r.Resolve(context.Background(), KeyAPIKey)

		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("empty store value falls through", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			GetSettingFn: func(_ context.Context, _ string) (string, error) {
				return "", nil
			},
		}

		r := NewResolver(
			store,
			WithEnv(func(_ string) string {
				return "env-value"
			}),
		)

		value, err := r.Resolve(context.Background(), KeyAPIKey)

		require.NoError(t, err)
		assert.Equal(t, "env-value", value)
	})
}
