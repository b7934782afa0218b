package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JeremyNoori/xdc-risk-monitor/storage"
	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

var errRunNotFound = errors.New("run not found")

// Storage is an in-memory store for runs, snapshots and settings.
// Snapshot sets are committed whole under one lock, mirroring the
// SQL adapter's transactional contract
type Storage struct {
	runs      map[string]*types.Run
	snapshots map[string][]*types.VenueRisk
	settings  map[string]string

	mu sync.RWMutex
}

// NewStorage creates a new in-memory store
func NewStorage() *Storage {
	return &Storage{
		runs:      make(map[string]*types.Run),
		snapshots: make(map[string][]*types.VenueRisk),
		settings:  make(map[string]string),
	}
}

func (s *Storage) CreateRun(_ context.Context, run *types.Run) error {
	cp := *run

	s.mu.Lock()
	s.runs[run.ID] = &cp
	s.mu.Unlock()

	return nil
}

func (s *Storage) CompleteRun(_ context.Context, result *types.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[result.RunID]
	if !ok {
		return errRunNotFound
	}

	finishedAt := result.FinishedAt

	run.FinishedAt = &finishedAt
	run.Status = result.Status
	run.CreditsUsed = result.CreditsUsed

	s.snapshots[result.RunID] = result.Venues

	return nil
}

func (s *Storage) FailRun(
	_ context.Context,
	runID string,
	finishedAt time.Time,
	errMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return errRunNotFound
	}

	run.FinishedAt = &finishedAt
	run.Status = types.RunStatusFailed
	run.ErrorMessage = &errMsg

	return nil
}

func (s *Storage) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	value, ok := s.settings[key]
	s.mu.RUnlock()

	if !ok {
		return "", storage.ErrSettingNotFound
	}

	return value, nil
}

func (s *Storage) SaveSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.settings[key] = value
	s.mu.Unlock()

	return nil
}

func (s *Storage) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.settings, key)
	s.mu.Unlock()

	return nil
}

func (s *Storage) ListSettings(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.settings))

	for k, v := range s.settings {
		out[k] = v
	}

	return out, nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

// Run fetches a stored run by id
func (s *Storage) Run(id string) (*types.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, false
	}

	cp := *run

	return &cp, true
}

// Snapshots fetches the committed snapshot set for a run,
// or nil if the run never completed
func (s *Storage) Snapshots(runID string) []*types.VenueRisk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshots[runID]
}
