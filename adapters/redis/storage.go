package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lifeol/core"
	"lifeol/engine"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Each profile section lives under its own key as a JSON blob:
// - user:{user_id}:attributes
// - user:{user_id}:events
// - user:{user_id}:achievements
// - user:{user_id}:items
// - user:{user_id}:projects
// - user:{user_id}:titles
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

const (
	sectionAttributes   = "attributes"
	sectionEvents       = "events"
	sectionAchievements = "achievements"
	sectionItems        = "items"
	sectionProjects     = "projects"
	sectionTitles       = "titles"
)

func sectionKey(userID core.UserID, section string) string {
	return fmt.Sprintf("user:%s:%s", userID, section)
}

func (s *Store) putSection(ctx context.Context, userID core.UserID, section string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", section, err)
	}
	if err := s.client.Set(ctx, sectionKey(userID, section), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", section, err)
	}
	return nil
}

// getSection loads one section into out. Returns false when the key is absent.
func (s *Store) getSection(ctx context.Context, userID core.UserID, section string, out any) (bool, error) {
	data, err := s.client.Get(ctx, sectionKey(userID, section)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", section, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", section, err)
	}
	return true, nil
}

// GetProfile assembles the profile from its section keys. Sections never
// written fall back to the fresh-profile defaults.
func (s *Store) GetProfile(ctx context.Context, userID core.UserID) (core.Profile, error) {
	p := core.NewProfile(userID)
	found := false

	var attrs core.AttributeSet
	ok, err := s.getSection(ctx, userID, sectionAttributes, &attrs)
	if err != nil {
		return core.Profile{}, err
	}
	if ok {
		p.Attributes = attrs
		found = true
	}

	var events []core.Event
	if ok, err = s.getSection(ctx, userID, sectionEvents, &events); err != nil {
		return core.Profile{}, err
	} else if ok {
		p.Events = events
		found = true
	}

	var achievements []core.Achievement
	if ok, err = s.getSection(ctx, userID, sectionAchievements, &achievements); err != nil {
		return core.Profile{}, err
	} else if ok {
		p.Achievements = achievements
		found = true
	}

	var items []core.Item
	if ok, err = s.getSection(ctx, userID, sectionItems, &items); err != nil {
		return core.Profile{}, err
	} else if ok {
		p.Items = items
		found = true
	}

	var projects []core.ProjectEvent
	if ok, err = s.getSection(ctx, userID, sectionProjects, &projects); err != nil {
		return core.Profile{}, err
	} else if ok {
		p.Projects = projects
		found = true
	}

	var titles []string
	if ok, err = s.getSection(ctx, userID, sectionTitles, &titles); err != nil {
		return core.Profile{}, err
	} else if ok {
		p.SelectedTitles = titles
		found = true
	}

	if !found {
		return core.Profile{}, engine.ErrNotFound
	}
	p.Updated = time.Now().UTC()
	return p, nil
}

func (s *Store) PutAttributes(ctx context.Context, userID core.UserID, attrs core.AttributeSet) error {
	return s.putSection(ctx, userID, sectionAttributes, attrs)
}

func (s *Store) PutEvents(ctx context.Context, userID core.UserID, events []core.Event) error {
	return s.putSection(ctx, userID, sectionEvents, events)
}

func (s *Store) PutAchievements(ctx context.Context, userID core.UserID, achievements []core.Achievement) error {
	return s.putSection(ctx, userID, sectionAchievements, achievements)
}

func (s *Store) PutItems(ctx context.Context, userID core.UserID, items []core.Item) error {
	return s.putSection(ctx, userID, sectionItems, items)
}

func (s *Store) PutProjects(ctx context.Context, userID core.UserID, projects []core.ProjectEvent) error {
	return s.putSection(ctx, userID, sectionProjects, projects)
}

func (s *Store) PutSelectedTitles(ctx context.Context, userID core.UserID, titles []string) error {
	return s.putSection(ctx, userID, sectionTitles, titles)
}

var _ engine.Storage = (*Store)(nil)
