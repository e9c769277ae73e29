package core

import "time"

// Profile is the complete persisted state for one user. Events are kept
// newest first for display; computations do not rely on order.
type Profile struct {
	UserID         UserID         `json:"user_id"`
	Attributes     AttributeSet   `json:"attributes"`
	Events         []Event        `json:"events"`
	Achievements   []Achievement  `json:"achievements"`
	Items          []Item         `json:"items,omitempty"`
	Projects       []ProjectEvent `json:"projects,omitempty"`
	SelectedTitles []string       `json:"selected_titles,omitempty"`
	Updated        time.Time      `json:"updated"`
}

// NewProfile returns a fresh profile with level-1 attributes and the seeded
// achievement catalog, all locked.
func NewProfile(user UserID) Profile {
	return Profile{
		UserID:       user,
		Attributes:   NewAttributeSet(),
		Achievements: SeedAchievements(),
		Updated:      time.Now().UTC(),
	}
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	cp := p
	cp.Attributes = p.Attributes.Clone()
	cp.Events = cloneEvents(p.Events)
	cp.Achievements = append([]Achievement(nil), p.Achievements...)
	cp.Items = append([]Item(nil), p.Items...)
	cp.Projects = cloneProjects(p.Projects)
	cp.SelectedTitles = append([]string(nil), p.SelectedTitles...)
	return cp
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		cp := e
		if e.ExpGains != nil {
			cp.ExpGains = make(map[AttrKey]int, len(e.ExpGains))
			for k, v := range e.ExpGains {
				cp.ExpGains[k] = v
			}
		}
		out[i] = cp
	}
	return out
}

func cloneProjects(projects []ProjectEvent) []ProjectEvent {
	out := make([]ProjectEvent, len(projects))
	for i, p := range projects {
		cp := p
		if p.AttributeRewards != nil {
			cp.AttributeRewards = make(map[AttrKey]int, len(p.AttributeRewards))
			for k, v := range p.AttributeRewards {
				cp.AttributeRewards[k] = v
			}
		}
		cp.ItemRewards = append([]string(nil), p.ItemRewards...)
		cp.ProgressLog = append([]ProgressLogEntry(nil), p.ProgressLog...)
		out[i] = cp
	}
	return out
}

// EventIndex returns the position of the event with the given id, or -1.
func (p Profile) EventIndex(id string) int {
	for i, e := range p.Events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ItemIndex returns the position of the item with the given id, or -1.
func (p Profile) ItemIndex(id string) int {
	for i, it := range p.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ProjectIndex returns the position of the project with the given id, or -1.
func (p Profile) ProjectIndex(id string) int {
	for i, pr := range p.Projects {
		if pr.ID == id {
			return i
		}
	}
	return -1
}

// AchievementIndex returns the position of the achievement with the given
// id, or -1.
func (p Profile) AchievementIndex(id string) int {
	for i, a := range p.Achievements {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// UnlockedTitles returns the unlocked title achievements grouped by their
// required attribute.
func (p Profile) UnlockedTitles() map[AttrKey][]Achievement {
	titles := make(map[AttrKey][]Achievement)
	for _, a := range p.Achievements {
		if a.IsTitle && a.Unlocked() {
			titles[a.AttributeRequirement] = append(titles[a.AttributeRequirement], a)
		}
	}
	return titles
}
