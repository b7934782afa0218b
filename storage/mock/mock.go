package mock

import (
	"context"
	"time"

	"github.com/JeremyNoori/xdc-risk-monitor/storage/types"
)

type (
	CreateRunDelegate     func(context.Context, *types.Run) error
	CompleteRunDelegate   func(context.Context, *types.RunResult) error
	FailRunDelegate       func(context.Context, string, time.Time, string) error
	GetSettingDelegate    func(context.Context, string) (string, error)
	SaveSettingDelegate   func(context.Context, string, string) error
	DeleteSettingDelegate func(context.Context, string) error
	ListSettingsDelegate  func(context.Context) (map[string]string, error)
	PingDelegate          func(context.Context) error
)

type Storage struct {
	CreateRunFn     CreateRunDelegate
	CompleteRunFn   CompleteRunDelegate
	FailRunFn       FailRunDelegate
	GetSettingFn    GetSettingDelegate
	SaveSettingFn   SaveSettingDelegate
	DeleteSettingFn DeleteSettingDelegate
	ListSettingsFn  ListSettingsDelegate
	PingFn          PingDelegate
}

func (m *Storage) CreateRun(ctx context.Context, run *types.Run) error {
	if m.CreateRunFn != nil {
		return m.CreateRunFn(ctx, run)
	}

	return nil
}

func (m *Storage) CompleteRun(ctx context.Context, result *types.RunResult) error {
	if m.CompleteRunFn != nil {
		return m.CompleteRunFn(ctx, result)
	}

	return nil
}

func (m *Storage) FailRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	errMsg string,
) error {
	if m.FailRunFn != nil {
		return m.FailRunFn(ctx, runID, finishedAt, errMsg)
	}

	return nil
}

func (m *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingFn != nil {
		return m.GetSettingFn(ctx, key)
	}

	return "", nil
}

func (m *Storage) SaveSetting(ctx context.Context, key, value string) error {
	if m.SaveSettingFn != nil {
		return m.SaveSettingFn(ctx, key, value)
	}

	return nil
}

func (m *Storage) DeleteSetting(ctx context.Context, key string) error {
	if m.DeleteSettingFn != nil {
		return m.DeleteSettingFn(ctx, key)
	}

	return nil
}

func (m *Storage) ListSettings(ctx context.Context) (map[string]string, error) {
	if m.ListSettingsFn != nil {
		return m.ListSettingsFn(ctx)
	}

	return nil, nil
}

func (m *Storage) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}

	return nil
}
