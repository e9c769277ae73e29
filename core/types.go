package core

import (
	"errors"
	"strings"
	"time"
)

// UserID uniquely identifies a tracked user.
type UserID string

// AttrKey names one of the six fixed personal-development attributes.
type AttrKey string

const (
	AttrInt AttrKey = "int" // intelligence
	AttrStr AttrKey = "str" // strength
	AttrVit AttrKey = "vit" // vitality
	AttrCha AttrKey = "cha" // charisma
	AttrEQ  AttrKey = "eq"  // emotional intelligence
	AttrCre AttrKey = "cre" // creativity
)

// AttrKeys returns the six fixed attribute keys in display order.
func AttrKeys() []AttrKey {
	return []AttrKey{AttrInt, AttrStr, AttrVit, AttrCha, AttrEQ, AttrCre}
}

// ValidAttrKey reports whether k is one of the six fixed keys.
func ValidAttrKey(k AttrKey) bool {
	switch k {
	case AttrInt, AttrStr, AttrVit, AttrCha, AttrEQ, AttrCre:
		return true
	}
	return false
}

// Attribute tracks cumulative experience and the level derived from it.
// Level always equals LevelForExp(Exp) after every engine mutation.
type Attribute struct {
	Level int `json:"level"`
	Exp   int `json:"exp"`
}

// AttributeSet maps every fixed attribute key to its current state.
// Implementations should treat snapshots as immutable and work on copies.
type AttributeSet map[AttrKey]Attribute

// NewAttributeSet returns a set with all six attributes at level 1, exp 0.
func NewAttributeSet() AttributeSet {
	s := make(AttributeSet, 6)
	for _, k := range AttrKeys() {
		s[k] = Attribute{Level: 1}
	}
	return s
}

// Clone returns a deep copy of the set to uphold immutability.
func (s AttributeSet) Clone() AttributeSet {
	cp := make(AttributeSet, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}

// TotalExp sums experience across all attributes.
func (s AttributeSet) TotalExp() int {
	total := 0
	for _, a := range s {
		total += a.Exp
	}
	return total
}

// ApplyExperienceDelta returns a copy of attrs with every non-zero delta
// applied and levels recomputed. Experience is not clamped here; reversal
// paths that must not go below zero clamp at the call site.
func ApplyExperienceDelta(attrs AttributeSet, gains map[AttrKey]int) AttributeSet {
	out := attrs.Clone()
	for k, delta := range gains {
		if delta == 0 {
			continue
		}
		cur, ok := out[k]
		if !ok {
			continue
		}
		exp := cur.Exp + delta
		out[k] = Attribute{Exp: exp, Level: LevelForExp(exp)}
	}
	return out
}

// Event is one entry in the append-only life event ledger.
// Exp gains are applied once when the event is recorded; later edits to
// title or description do not re-apply them.
type Event struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Timestamp     time.Time       `json:"timestamp"`
	ExpGains      map[AttrKey]int `json:"exp_gains,omitempty"`
	RelatedItemID string          `json:"related_item_id,omitempty"`
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// sameCalendarDay compares two instants by local calendar date, using the
// location of ref for both sides.
func sameCalendarDay(t, ref time.Time) bool {
	t = t.In(ref.Location())
	return t.Year() == ref.Year() && t.YearDay() == ref.YearDay()
}

// hasEventOnDay reports whether any ledger event falls on the calendar day
// of ref.
func hasEventOnDay(events []Event, ref time.Time) bool {
	for _, e := range events {
		if sameCalendarDay(e.Timestamp, ref) {
			return true
		}
	}
	return false
}
