package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Attribute mirrors the public JSON surface of one attribute.
type Attribute struct {
	Level int `json:"level"`
	Exp   int `json:"exp"`
}

// Event mirrors one ledger entry.
type Event struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Timestamp     time.Time      `json:"timestamp"`
	ExpGains      map[string]int `json:"exp_gains,omitempty"`
	RelatedItemID string         `json:"related_item_id,omitempty"`
}

// Achievement mirrors one achievement, locked or unlocked.
type Achievement struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Icon       string     `json:"icon,omitempty"`
	IsTitle    bool       `json:"is_title,omitempty"`
	Custom     bool       `json:"custom,omitempty"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ItemEffect mirrors one item effect.
type ItemEffect struct {
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
	Value     int    `json:"value"`
}

// Item mirrors one inventory item.
type Item struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Effects []ItemEffect `json:"effects,omitempty"`
	Used    bool         `json:"used,omitempty"`
}

// Project mirrors one project event.
type Project struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Progress         int            `json:"progress"`
	AttributeRewards map[string]int `json:"attribute_rewards,omitempty"`
	ItemRewards      []string       `json:"item_rewards,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// Profile mirrors the full user profile response.
type Profile struct {
	UserID         string               `json:"user_id"`
	Attributes     map[string]Attribute `json:"attributes"`
	Events         []Event              `json:"events"`
	Achievements   []Achievement        `json:"achievements"`
	Items          []Item               `json:"items,omitempty"`
	Projects       []Project            `json:"projects,omitempty"`
	SelectedTitles []string             `json:"selected_titles,omitempty"`
	Updated        time.Time            `json:"updated"`
}

// Snapshot mirrors the response of mutating operations.
type Snapshot struct {
	Attributes    map[string]Attribute `json:"attributes"`
	Event         *Event               `json:"event,omitempty"`
	NewlyUnlocked []Achievement        `json:"newly_unlocked,omitempty"`
}

// DecayWarning mirrors one decay warning.
type DecayWarning struct {
	Attribute          string `json:"attribute"`
	DaysSinceLastEvent int    `json:"days_since_last_event,omitempty"`
	DecayAmount        int    `json:"decay_amount,omitempty"`
	DaysUntilDecay     int    `json:"days_until_decay,omitempty"`
}

// DecayOutcome mirrors the response of a decay pass.
type DecayOutcome struct {
	Attributes map[string]Attribute `json:"attributes"`
	Warnings   []DecayWarning       `json:"warnings"`
}

// Overview mirrors the stats overview response.
type Overview struct {
	TotalExp      int            `json:"total_exp"`
	TotalEvents   int            `json:"total_events"`
	Unlocked      int            `json:"unlocked_achievements"`
	Distribution  map[string]int `json:"distribution"`
	WeekExp       int            `json:"week_exp"`
	WeekEvents    int            `json:"week_events"`
	CurrentStreak int            `json:"current_streak"`
	ActiveDays    int            `json:"active_days"`
	FirstEventDay string         `json:"first_event_day,omitempty"`
}

// LeaderboardEntry mirrors one leaderboard row.
type LeaderboardEntry struct {
	User     string `json:"user"`
	TotalExp int64  `json:"total_exp"`
}

// Notice mirrors the WebSocket notice stream.
type Notice struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	Attribute     string    `json:"attribute,omitempty"`
	Delta         int       `json:"delta,omitempty"`
	Exp           int       `json:"exp,omitempty"`
	Level         int       `json:"level,omitempty"`
	AchievementID string    `json:"achievement_id,omitempty"`
	ItemID        string    `json:"item_id,omitempty"`
	ProjectID     string    `json:"project_id,omitempty"`
	Time          time.Time `json:"time"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
