package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lifeol/core"
	"lifeol/engine"
)

// Store persists all profiles to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]core.Profile
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]core.Profile{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]core.Profile
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]core.Profile, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) core.Profile {
	if p, ok := s.data[user]; ok {
		return p
	}
	return core.NewProfile(user)
}

func (s *Store) put(user core.UserID, mutate func(*core.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(user)
	mutate(&p)
	p.Updated = time.Now().UTC()
	s.data[user] = p
	return s.persist()
}

func (s *Store) GetProfile(_ context.Context, user core.UserID) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[user]
	if !ok {
		return core.Profile{}, engine.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) PutAttributes(_ context.Context, user core.UserID, attrs core.AttributeSet) error {
	return s.put(user, func(p *core.Profile) { p.Attributes = attrs.Clone() })
}

func (s *Store) PutEvents(_ context.Context, user core.UserID, events []core.Event) error {
	return s.put(user, func(p *core.Profile) { p.Events = append([]core.Event(nil), events...) })
}

func (s *Store) PutAchievements(_ context.Context, user core.UserID, achievements []core.Achievement) error {
	return s.put(user, func(p *core.Profile) { p.Achievements = append([]core.Achievement(nil), achievements...) })
}

func (s *Store) PutItems(_ context.Context, user core.UserID, items []core.Item) error {
	return s.put(user, func(p *core.Profile) { p.Items = append([]core.Item(nil), items...) })
}

func (s *Store) PutProjects(_ context.Context, user core.UserID, projects []core.ProjectEvent) error {
	return s.put(user, func(p *core.Profile) { p.Projects = append([]core.ProjectEvent(nil), projects...) })
}

func (s *Store) PutSelectedTitles(_ context.Context, user core.UserID, titles []string) error {
	return s.put(user, func(p *core.Profile) { p.SelectedTitles = append([]string(nil), titles...) })
}

var _ engine.Storage = (*Store)(nil)
