package stats

import (
	"testing"
	"time"

	"lifeol/core"
)

func TestDailyExpTotals(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	events := []core.Event{
		{ID: "1", Timestamp: now.Add(-time.Hour), ExpGains: map[core.AttrKey]int{core.AttrInt: 10}},
		{ID: "2", Timestamp: now.AddDate(0, 0, -1), ExpGains: map[core.AttrKey]int{core.AttrStr: 5}},
		{ID: "3", Timestamp: now.AddDate(0, 0, -1), ExpGains: map[core.AttrKey]int{core.AttrVit: 7}},
		// decay audit entries do not count
		{ID: "4", Timestamp: now.Add(-2 * time.Hour), ExpGains: map[core.AttrKey]int{core.AttrStr: -3}},
		// outside the window
		{ID: "5", Timestamp: now.AddDate(0, 0, -10), ExpGains: map[core.AttrKey]int{core.AttrInt: 99}},
	}

	totals := DailyExpTotals(events, 7, now)
	if len(totals) != 7 {
		t.Fatalf("expected 7 cells, got %d", len(totals))
	}
	today := totals[6]
	if today.Day != "2026-03-10" || today.Events != 1 || today.TotalExp != 10 {
		t.Fatalf("unexpected today cell: %+v", today)
	}
	yesterday := totals[5]
	if yesterday.Events != 2 || yesterday.TotalExp != 12 {
		t.Fatalf("unexpected yesterday cell: %+v", yesterday)
	}
	if totals[0].Events != 0 {
		t.Fatalf("empty day should stay zero: %+v", totals[0])
	}
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	if got := CurrentStreak(nil, now); got != 0 {
		t.Fatalf("empty ledger streak = %d", got)
	}

	events := []core.Event{
		{ID: "1", Timestamp: now.Add(-time.Hour)},
		{ID: "2", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "3", Timestamp: now.AddDate(0, 0, -2)},
		{ID: "4", Timestamp: now.AddDate(0, 0, -5)},
	}
	if got := CurrentStreak(events, now); got != 3 {
		t.Fatalf("streak = %d, want 3", got)
	}

	// nothing today yet: the streak counts from yesterday
	noToday := events[1:]
	if got := CurrentStreak(noToday, now); got != 2 {
		t.Fatalf("streak without today = %d, want 2", got)
	}

	// a full missed day breaks it
	stale := []core.Event{{ID: "1", Timestamp: now.AddDate(0, 0, -2)}}
	if got := CurrentStreak(stale, now); got != 0 {
		t.Fatalf("broken streak = %d, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	p := core.NewProfile("alice")
	p.Attributes[core.AttrInt] = core.Attribute{Level: 2, Exp: 60}
	p.Attributes[core.AttrVit] = core.Attribute{Level: 1, Exp: 15}
	p.Events = []core.Event{
		{ID: "1", Timestamp: now.Add(-time.Hour), ExpGains: map[core.AttrKey]int{core.AttrInt: 10}},
		{ID: "2", Timestamp: now.AddDate(0, 0, -20), ExpGains: map[core.AttrKey]int{core.AttrVit: 15}},
	}
	unlocked := now.AddDate(0, 0, -1)
	p.Achievements[0].UnlockedAt = &unlocked

	o := Summarize(p, now)
	if o.TotalExp != 75 {
		t.Fatalf("total exp = %d, want 75", o.TotalExp)
	}
	if o.TotalEvents != 2 || o.ActiveDays != 2 {
		t.Fatalf("events=%d activeDays=%d", o.TotalEvents, o.ActiveDays)
	}
	if o.Unlocked != 1 {
		t.Fatalf("unlocked = %d, want 1", o.Unlocked)
	}
	if o.WeekExp != 10 || o.WeekEvents != 1 {
		t.Fatalf("week exp=%d events=%d", o.WeekExp, o.WeekEvents)
	}
	if o.Distribution[core.AttrInt] != 60 {
		t.Fatalf("distribution = %+v", o.Distribution)
	}
	if o.FirstEventDay != "2026-02-18" {
		t.Fatalf("first event day = %s", o.FirstEventDay)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()

	n := core.NewExpApplied("alice", core.AttrInt, 10, 10)
	c.OnNotice(n)
	c.OnNotice(core.NewExpApplied("bob", core.AttrStr, 5, 5))
	c.OnNotice(core.NewLevelUp("alice", core.AttrInt, 2))
	c.OnNotice(core.NewAchievementUnlocked("alice", "first_event"))
	// negative deltas (undo, decay) do not add awarded exp
	c.OnNotice(core.NewExpApplied("alice", core.AttrInt, -4, 6))

	day := Today(n.Time)
	if got := c.ActiveUsers(day); got != 2 {
		t.Fatalf("active users = %d, want 2", got)
	}
	if got := c.ExpAwarded(day); got != 15 {
		t.Fatalf("exp awarded = %d, want 15", got)
	}
	if got := c.LevelUps(day); got != 1 {
		t.Fatalf("level ups = %d, want 1", got)
	}
	if got := c.Unlocks(day); got != 1 {
		t.Fatalf("unlocks = %d, want 1", got)
	}
	if got := c.ExpByAttribute()[core.AttrInt]; got != 10 {
		t.Fatalf("int exp = %d, want 10", got)
	}
}
