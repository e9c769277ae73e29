package memory

import (
	"context"
	"sync"
	"time"

	"lifeol/core"
	"lifeol/engine"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu      sync.Mutex
	profile core.Profile
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{profile: core.NewProfile(user)}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

func (s *Store) GetProfile(_ context.Context, user core.UserID) (core.Profile, error) {
	v, ok := s.users.Load(user)
	if !ok {
		return core.Profile{}, engine.ErrNotFound
	}
	rec := v.(*userRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.profile.Clone(), nil
}

func (s *Store) PutAttributes(_ context.Context, user core.UserID, attrs core.AttributeSet) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.Attributes = attrs.Clone()
	rec.profile.Updated = time.Now().UTC()
	return nil
}

func (s *Store) PutEvents(_ context.Context, user core.UserID, events []core.Event) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.Events = append([]core.Event(nil), events...)
	rec.profile.Updated = time.Now().UTC()
	return nil
}

func (s *Store) PutAchievements(_ context.Context, user core.UserID, achievements []core.Achievement) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.Achievements = append([]core.Achievement(nil), achievements...)
	rec.profile.Updated = time.Now().UTC()
	return nil
}

func (s *Store) PutItems(_ context.Context, user core.UserID, items []core.Item) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.Items = append([]core.Item(nil), items...)
	rec.profile.Updated = time.Now().UTC()
	return nil
}

func (s *Store) PutProjects(_ context.Context, user core.UserID, projects []core.ProjectEvent) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.Projects = append([]core.ProjectEvent(nil), projects...)
	rec.profile.Updated = time.Now().UTC()
	return nil
}

func (s *Store) PutSelectedTitles(_ context.Context, user core.UserID, titles []string) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.profile.SelectedTitles = append([]string(nil), titles...)
	rec.profile.Updated = time.Now().UTC()
	return nil
}

var _ engine.Storage = (*Store)(nil)
