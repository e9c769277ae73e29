package core

import "time"

// ProgressLogEntry records one change to a project's progress.
type ProgressLogEntry struct {
	Change    int       `json:"change"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectEvent is a longer-running task tracked with a 0-100 progress bar.
// Completing it pays out attribute and item rewards once.
type ProjectEvent struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Progress         int                `json:"progress"`
	AttributeRewards map[AttrKey]int    `json:"attribute_rewards,omitempty"`
	ItemRewards      []string           `json:"item_rewards,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	ProgressLog      []ProgressLogEntry `json:"progress_log,omitempty"`
}

// Completed reports whether the project has been completed.
func (p ProjectEvent) Completed() bool { return p.CompletedAt != nil }

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
