package engine

import (
	"context"
	"errors"

	"lifeol/core"
)

// ErrNotFound is returned by Storage when no profile exists for a user.
var ErrNotFound = errors.New("profile not found")

// Storage abstracts persistence for progression state. Profiles are written
// section by section so adapters can persist each concern under its own key.
// Implementations must serialize writes per user.
type Storage interface {
	GetProfile(ctx context.Context, user core.UserID) (core.Profile, error)
	PutAttributes(ctx context.Context, user core.UserID, attrs core.AttributeSet) error
	PutEvents(ctx context.Context, user core.UserID, events []core.Event) error
	PutAchievements(ctx context.Context, user core.UserID, achievements []core.Achievement) error
	PutItems(ctx context.Context, user core.UserID, items []core.Item) error
	PutProjects(ctx context.Context, user core.UserID, projects []core.ProjectEvent) error
	PutSelectedTitles(ctx context.Context, user core.UserID, titles []string) error
}
