package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/darasalabs/darasa/core/setting"
)

type SettingRepository struct {
	mu       sync.RWMutex
	settings map[string]setting.Setting
}

var _ setting.Repository = (*SettingRepository)(nil)

func NewSettingRepository() *SettingRepository {
	return &SettingRepository{settings: make(map[string]setting.Setting)}
}

func (repo *SettingRepository) GetSetting(ctx context.Context, key string) (setting.Setting, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	s, ok := repo.settings[key]
	if !ok {
		return setting.Setting{}, setting.ErrNotFound
	}
	return s, nil
}

func (repo *SettingRepository) UpsertSetting(ctx context.Context, s setting.Setting) (setting.Setting, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := repo.settings[s.Key]; ok {
		s.CreatedAt = existing.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	repo.settings[s.Key] = s
	return s, nil
}

func (repo *SettingRepository) QueryAllSettings(ctx context.Context) ([]setting.Setting, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	settings := make([]setting.Setting, 0, len(repo.settings))
	for _, s := range repo.settings {
		settings = append(settings, s)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}
