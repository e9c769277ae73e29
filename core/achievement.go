package core

import (
	"strconv"
	"strings"
	"time"
)

// ConditionKind tags the rule family used to auto-unlock an achievement.
type ConditionKind string

const (
	// CondManual never auto-unlocks; only an explicit unlock action applies.
	CondManual ConditionKind = "manual"
	// CondLevel unlocks when one attribute reaches a level.
	CondLevel ConditionKind = "level"
	// CondEventCount unlocks when the ledger holds at least N events.
	CondEventCount ConditionKind = "events"
	// CondKeyword unlocks when any event title or description contains any
	// of the keywords (case-sensitive substring match).
	CondKeyword ConditionKind = "keyword"
	// CondStreak unlocks after N consecutive calendar days with events,
	// counting back from today.
	CondStreak ConditionKind = "streak"
	// CondAllLevels unlocks when every attribute reaches a level.
	CondAllLevels ConditionKind = "all_levels"
	// CondBalancedWeek unlocks when all six attributes gained experience
	// within the last seven days.
	CondBalancedWeek ConditionKind = "balanced_week"
	// CondAccountAge unlocks N days after the oldest recorded event.
	CondAccountAge ConditionKind = "account_age"
	// CondLongNote unlocks when any event description has at least N
	// characters.
	CondLongNote ConditionKind = "long_note"
	// CondKeywordWithGain unlocks when an event matches a keyword and also
	// granted experience to one of the listed attributes.
	CondKeywordWithGain ConditionKind = "keyword_with_gain"
	// CondSingleEventExp unlocks when a single event granted at least N
	// total experience.
	CondSingleEventExp ConditionKind = "single_event_exp"
)

// Condition is the data-only form of an unlock rule. Keeping conditions as
// tagged values rather than closures means achievements survive a round trip
// through JSON persistence.
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Attr      AttrKey       `json:"attr,omitempty"`
	Threshold int           `json:"threshold,omitempty"`
	Keywords  []string      `json:"keywords,omitempty"`
	GainAttrs []AttrKey     `json:"gain_attrs,omitempty"`
}

// ParseCondition maps a declarative trigger rule onto a Condition. It is the
// single synthesis path for both seeded and user-defined achievements.
// Grammars per trigger type:
//
//	level    "attr:N"
//	events   "N"
//	keyword  "kw1,kw2,..."
//	streak   "N"
//
// Anything malformed or unknown degrades to a manual condition, which
// evaluates to unmet rather than failing the evaluation pass.
func ParseCondition(triggerType, raw string) Condition {
	manual := Condition{Kind: CondManual}
	switch triggerType {
	case string(CondLevel):
		attr, levelStr, ok := strings.Cut(raw, ":")
		if !ok {
			return manual
		}
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return manual
		}
		return Condition{Kind: CondLevel, Attr: AttrKey(strings.TrimSpace(attr)), Threshold: level}
	case string(CondEventCount):
		count, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return manual
		}
		return Condition{Kind: CondEventCount, Threshold: count}
	case string(CondKeyword):
		var keywords []string
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return manual
		}
		return Condition{Kind: CondKeyword, Keywords: keywords}
	case string(CondStreak):
		days, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || days < 1 {
			return manual
		}
		return Condition{Kind: CondStreak, Threshold: days}
	default:
		return manual
	}
}

// Met evaluates the condition against a state snapshot. It is pure and never
// fails: unknown attribute keys and degenerate payloads read as unmet.
func (c Condition) Met(attrs AttributeSet, events []Event, now time.Time) bool {
	switch c.Kind {
	case CondLevel:
		a, ok := attrs[c.Attr]
		return ok && a.Level >= c.Threshold
	case CondEventCount:
		return len(events) >= c.Threshold
	case CondKeyword:
		for _, e := range events {
			if containsAny(e.Title, c.Keywords) || containsAny(e.Description, c.Keywords) {
				return true
			}
		}
		return false
	case CondStreak:
		if c.Threshold < 1 {
			return false
		}
		for i := 0; i < c.Threshold; i++ {
			if !hasEventOnDay(events, now.AddDate(0, 0, -i)) {
				return false
			}
		}
		return true
	case CondAllLevels:
		for _, k := range AttrKeys() {
			if a, ok := attrs[k]; !ok || a.Level < c.Threshold {
				return false
			}
		}
		return true
	case CondBalancedWeek:
		weekAgo := now.AddDate(0, 0, -7)
		touched := map[AttrKey]struct{}{}
		for _, e := range events {
			if !e.Timestamp.After(weekAgo) {
				continue
			}
			for k, gain := range e.ExpGains {
				if gain > 0 {
					touched[k] = struct{}{}
				}
			}
		}
		return len(touched) >= len(AttrKeys())
	case CondAccountAge:
		first, ok := oldestEvent(events)
		return ok && daysBetween(first, now) >= c.Threshold
	case CondLongNote:
		for _, e := range events {
			if len([]rune(e.Description)) >= c.Threshold {
				return true
			}
		}
		return false
	case CondKeywordWithGain:
		for _, e := range events {
			if !containsAny(e.Title, c.Keywords) && !containsAny(e.Description, c.Keywords) {
				continue
			}
			for _, k := range c.GainAttrs {
				if e.ExpGains[k] > 0 {
					return true
				}
			}
		}
		return false
	case CondSingleEventExp:
		for _, e := range events {
			total := 0
			for _, gain := range e.ExpGains {
				total += gain
			}
			if total >= c.Threshold {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func oldestEvent(events []Event) (time.Time, bool) {
	var first time.Time
	found := false
	for _, e := range events {
		if !found || e.Timestamp.Before(first) {
			first = e.Timestamp
			found = true
		}
	}
	return first, found
}

// Achievement is a named unlockable milestone, either seeded or user-custom.
// UnlockedAt transitions once from nil to a timestamp and never reverts.
type Achievement struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Icon                 string     `json:"icon"`
	IsCustom             bool       `json:"is_custom,omitempty"`
	UnlockedAt           *time.Time `json:"unlocked_at"`
	TriggerType          string     `json:"trigger_type,omitempty"`
	TriggerCondition     string     `json:"trigger_condition,omitempty"`
	Condition            Condition  `json:"condition"`
	IsTitle              bool       `json:"is_title,omitempty"`
	AttributeRequirement AttrKey    `json:"attribute_requirement,omitempty"`
	LevelRequirement     int        `json:"level_requirement,omitempty"`
}

// Unlocked reports whether the achievement has been unlocked.
func (a Achievement) Unlocked() bool { return a.UnlockedAt != nil }

// NewCustomAchievement builds a data-only achievement from a declarative
// trigger rule. A malformed rule yields a manual condition that stays locked
// until explicitly unlocked.
func NewCustomAchievement(id, title, description, icon, triggerType, triggerCondition string) Achievement {
	return Achievement{
		ID:               id,
		Title:            title,
		Description:      description,
		Icon:             icon,
		IsCustom:         true,
		TriggerType:      triggerType,
		TriggerCondition: triggerCondition,
		Condition:        ParseCondition(triggerType, triggerCondition),
	}
}

func (a Achievement) qualifies(attrs AttributeSet, events []Event, now time.Time) bool {
	if a.IsTitle {
		attr, ok := attrs[a.AttributeRequirement]
		return ok && attr.Level >= a.LevelRequirement
	}
	return a.Condition.Met(attrs, events, now)
}

// EvaluateAchievements returns the not-yet-unlocked achievements whose
// conditions are now satisfied, each stamped with unlockedAt=now. Inputs are
// not mutated; already-unlocked achievements are skipped, so merging the
// result back and evaluating again yields nothing new.
func EvaluateAchievements(attrs AttributeSet, events []Event, achievements []Achievement, now time.Time) []Achievement {
	var newly []Achievement
	for _, a := range achievements {
		if a.Unlocked() || !a.qualifies(attrs, events, now) {
			continue
		}
		t := now
		a.UnlockedAt = &t
		newly = append(newly, a)
	}
	return newly
}

// MergeUnlocked folds newly unlocked records into the achievement list,
// matching by id. Entries that are already unlocked keep their original
// timestamp, which keeps repeated merges idempotent.
func MergeUnlocked(achievements, newly []Achievement) []Achievement {
	if len(newly) == 0 {
		return achievements
	}
	byID := make(map[string]Achievement, len(newly))
	for _, n := range newly {
		byID[n.ID] = n
	}
	out := make([]Achievement, len(achievements))
	for i, a := range achievements {
		if n, ok := byID[a.ID]; ok && !a.Unlocked() && n.Unlocked() {
			out[i] = n
			continue
		}
		out[i] = a
	}
	return out
}

// AchievementProgress reports completion toward an achievement as a
// percentage in [0,100]. Unlocked achievements always report 100; kinds
// without a measurable scale report 0 while locked.
func AchievementProgress(a Achievement, attrs AttributeSet, events []Event) float64 {
	if a.Unlocked() {
		return 100
	}
	if a.IsTitle {
		if a.LevelRequirement <= 0 {
			return 100
		}
		if attr, ok := attrs[a.AttributeRequirement]; ok {
			return clampPct(float64(attr.Level) / float64(a.LevelRequirement) * 100)
		}
		return 0
	}
	switch a.Condition.Kind {
	case CondLevel:
		if attr, ok := attrs[a.Condition.Attr]; ok && a.Condition.Threshold > 0 {
			return clampPct(float64(attr.Level) / float64(a.Condition.Threshold) * 100)
		}
	case CondEventCount:
		if a.Condition.Threshold > 0 {
			return clampPct(float64(len(events)) / float64(a.Condition.Threshold) * 100)
		}
	}
	return 0
}

func clampPct(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
