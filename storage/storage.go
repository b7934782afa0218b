package storage

import (
	"context"
	"errors"
	"time"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

// ErrSettingNotFound is returned when a setting key has no stored value
var ErrSettingNotFound = errors.New("setting not found")

// Storage is an abstraction over run, snapshot and settings data
type Storage interface {
	// CreateRun inserts a new run record with its provisional status
	CreateRun(context.Context, *types.Run) error

	// CompleteRun commits the run's venue, reserve and pair snapshots
	// together with the run's terminal status and credit usage.
	// The commit is atomic: either all rows become visible, or none do
	CompleteRun(context.Context, *types.RunResult) error

	// FailRun marks the run as FAILED with the given error message.
	// No snapshot rows are written for a failed run
	FailRun(ctx context.Context, runID string, finishedAt time.Time, errMsg string) error

	// GetSetting fetches a stored setting value by exact key,
	// returning ErrSettingNotFound on a miss
	GetSetting(ctx context.Context, key string) (string, error)

	// SaveSetting stores (or overwrites) a setting value
	SaveSetting(ctx context.Context, key, value string) error

	// DeleteSetting removes a stored setting, reverting lookups
	// to the environment
	DeleteSetting(ctx context.Context, key string) error

	// ListSettings returns all stored settings
	ListSettings(context.Context) (map[string]string, error)

	// Ping verifies the store is reachable
	Ping(context.Context) error
}
