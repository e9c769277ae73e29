package stats

import (
	"time"

	"lifeol/core"
)

// DayTotal is one cell of the activity heatmap.
type DayTotal struct {
	Day      string `json:"day"` // "2006-01-02"
	Events   int    `json:"events"`
	TotalExp int    `json:"total_exp"`
}

// Overview summarizes a profile for the stats screen.
type Overview struct {
	TotalExp        int                 `json:"total_exp"`
	TotalEvents     int                 `json:"total_events"`
	Unlocked        int                 `json:"unlocked_achievements"`
	Distribution    map[core.AttrKey]int `json:"distribution"`
	WeekExp         int                 `json:"week_exp"`
	WeekEvents      int                 `json:"week_events"`
	CurrentStreak   int                 `json:"current_streak"`
	ActiveDays      int                 `json:"active_days"`
	FirstEventDay   string              `json:"first_event_day,omitempty"`
	SelectedTitles  []string            `json:"selected_titles,omitempty"`
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// positiveExp sums the positive gains of one event. Decay audit entries
// carry negative gains and do not count as activity.
func positiveExp(e core.Event) int {
	total := 0
	for _, v := range e.ExpGains {
		if v > 0 {
			total += v
		}
	}
	return total
}

func isActivity(e core.Event) bool {
	if len(e.ExpGains) == 0 {
		return true
	}
	for _, v := range e.ExpGains {
		if v > 0 {
			return true
		}
	}
	return false
}

// DailyExpTotals buckets ledger activity per UTC day over the last `days`
// days ending at now, oldest first. Days without activity are included with
// zero totals so the heatmap stays dense.
func DailyExpTotals(events []core.Event, days int, now time.Time) []DayTotal {
	if days <= 0 {
		return nil
	}
	byDay := make(map[string]*DayTotal, days)
	out := make([]DayTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := dayKey(now.AddDate(0, 0, -i))
		out = append(out, DayTotal{Day: key})
		byDay[key] = &out[len(out)-1]
	}
	for _, e := range events {
		if !isActivity(e) {
			continue
		}
		if cell, ok := byDay[dayKey(e.Timestamp)]; ok {
			cell.Events++
			cell.TotalExp += positiveExp(e)
		}
	}
	return out
}

// CurrentStreak counts consecutive days with at least one activity entry,
// ending today or yesterday (a streak survives until a full day is missed).
func CurrentStreak(events []core.Event, now time.Time) int {
	active := make(map[string]bool)
	for _, e := range events {
		if isActivity(e) {
			active[dayKey(e.Timestamp)] = true
		}
	}
	start := now
	if !active[dayKey(now)] {
		start = now.AddDate(0, 0, -1)
		if !active[dayKey(start)] {
			return 0
		}
	}
	streak := 0
	for active[dayKey(start.AddDate(0, 0, -streak))] {
		streak++
	}
	return streak
}

// Summarize builds the stats overview from a profile snapshot.
func Summarize(p core.Profile, now time.Time) Overview {
	o := Overview{
		TotalExp:       p.Attributes.TotalExp(),
		TotalEvents:    0,
		Distribution:   make(map[core.AttrKey]int, len(core.AttrKeys())),
		CurrentStreak:  CurrentStreak(p.Events, now),
		SelectedTitles: append([]string(nil), p.SelectedTitles...),
	}
	for _, k := range core.AttrKeys() {
		o.Distribution[k] = p.Attributes[k].Exp
	}
	for _, a := range p.Achievements {
		if a.Unlocked() {
			o.Unlocked++
		}
	}

	weekStart := now.AddDate(0, 0, -7)
	activeDays := make(map[string]bool)
	var first time.Time
	for _, e := range p.Events {
		if !isActivity(e) {
			continue
		}
		o.TotalEvents++
		activeDays[dayKey(e.Timestamp)] = true
		if first.IsZero() || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(weekStart) {
			o.WeekEvents++
			o.WeekExp += positiveExp(e)
		}
	}
	o.ActiveDays = len(activeDays)
	if !first.IsZero() {
		o.FirstEventDay = dayKey(first)
	}
	return o
}
