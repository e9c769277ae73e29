package sqlx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"lifeol/core"
	"lifeol/engine"
)

// Driver selects the SQL dialect for upserts.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Store implements engine.Storage on a SQL database via sqlx. Every profile
// section is one row in user_sections keyed by (user_id, section), with the
// section payload stored as JSON.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// NewWithDB wraps an existing sqlx handle.
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Open connects to the database and pings it.
func Open(driver Driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Schema returns the DDL for the backing table in the store's dialect.
func (s *Store) Schema() string {
	payload := "TEXT"
	if s.driver == DriverPostgres {
		payload = "JSONB"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_sections (
	user_id    VARCHAR(128) NOT NULL,
	section    VARCHAR(32)  NOT NULL,
	payload    %s           NOT NULL,
	updated_at TIMESTAMP    NOT NULL,
	PRIMARY KEY (user_id, section)
)`, payload)
}

// Migrate creates the backing table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.Schema())
	return err
}

const (
	sectionAttributes   = "attributes"
	sectionEvents       = "events"
	sectionAchievements = "achievements"
	sectionItems        = "items"
	sectionProjects     = "projects"
	sectionTitles       = "titles"
)

func (s *Store) upsert(ctx context.Context, user core.UserID, section string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", section, err)
	}
	var query string
	switch s.driver {
	case DriverMySQL:
		query = `INSERT INTO user_sections (user_id, section, payload, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO user_sections (user_id, section, payload, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, section) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	}
	query = s.db.Rebind(query)
	if _, err := s.db.ExecContext(ctx, query, user, section, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store %s: %w", section, err)
	}
	return nil
}

type sectionRow struct {
	Section string `db:"section"`
	Payload []byte `db:"payload"`
}

// GetProfile assembles the profile from its section rows. Sections never
// written fall back to the fresh-profile defaults.
func (s *Store) GetProfile(ctx context.Context, user core.UserID) (core.Profile, error) {
	query := s.db.Rebind(`SELECT section, payload FROM user_sections WHERE user_id = ?`)
	var rows []sectionRow
	if err := s.db.SelectContext(ctx, &rows, query, user); err != nil {
		return core.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(rows) == 0 {
		return core.Profile{}, engine.ErrNotFound
	}

	p := core.NewProfile(user)
	for _, row := range rows {
		var err error
		switch row.Section {
		case sectionAttributes:
			err = json.Unmarshal(row.Payload, &p.Attributes)
		case sectionEvents:
			err = json.Unmarshal(row.Payload, &p.Events)
		case sectionAchievements:
			err = json.Unmarshal(row.Payload, &p.Achievements)
		case sectionItems:
			err = json.Unmarshal(row.Payload, &p.Items)
		case sectionProjects:
			err = json.Unmarshal(row.Payload, &p.Projects)
		case sectionTitles:
			err = json.Unmarshal(row.Payload, &p.SelectedTitles)
		}
		if err != nil {
			return core.Profile{}, fmt.Errorf("failed to decode %s: %w", row.Section, err)
		}
	}
	p.Updated = time.Now().UTC()
	return p, nil
}

func (s *Store) PutAttributes(ctx context.Context, user core.UserID, attrs core.AttributeSet) error {
	return s.upsert(ctx, user, sectionAttributes, attrs)
}

func (s *Store) PutEvents(ctx context.Context, user core.UserID, events []core.Event) error {
	return s.upsert(ctx, user, sectionEvents, events)
}

func (s *Store) PutAchievements(ctx context.Context, user core.UserID, achievements []core.Achievement) error {
	return s.upsert(ctx, user, sectionAchievements, achievements)
}

func (s *Store) PutItems(ctx context.Context, user core.UserID, items []core.Item) error {
	return s.upsert(ctx, user, sectionItems, items)
}

func (s *Store) PutProjects(ctx context.Context, user core.UserID, projects []core.ProjectEvent) error {
	return s.upsert(ctx, user, sectionProjects, projects)
}

func (s *Store) PutSelectedTitles(ctx context.Context, user core.UserID, titles []string) error {
	return s.upsert(ctx, user, sectionTitles, titles)
}

var _ engine.Storage = (*Store)(nil)
