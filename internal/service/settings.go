package service

import (
	"studyplan_backend/internal/config"
	"sync/atomic"
	"time"
)

// SettingsStore 持有当前生效的引擎参数，配置热更新时整体替换
type SettingsStore struct {
	v atomic.Pointer[config.EngineConfig]
}

func NewSettingsStore(cfg config.EngineConfig) *SettingsStore {
	s := &SettingsStore{}
	s.Set(cfg)
	return s
}

func (s *SettingsStore) Get() config.EngineConfig {
	return *s.v.Load()
}

func (s *SettingsStore) Set(cfg config.EngineConfig) {
	c := cfg
	s.v.Store(&c)
}

// Location 引擎默认时区
func (s *SettingsStore) Location() *time.Location {
	loc, err := time.LoadLocation(s.Get().DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
