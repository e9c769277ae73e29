package stats

import (
	"context"
	"sync"
	"time"

	"lifeol/core"
)

// Collector aggregates bus notices into service-wide counters: daily active
// users, experience awarded per day and attribute, level-ups, and
// achievement unlocks.
type Collector struct {
	mu sync.RWMutex

	activeUsers   map[string]map[core.UserID]struct{}
	expByDay      map[string]int
	expByAttr     map[core.AttrKey]int
	levelUpsByDay map[string]int
	unlocksByDay  map[string]int
}

func NewCollector() *Collector {
	return &Collector{
		activeUsers:   make(map[string]map[core.UserID]struct{}),
		expByDay:      make(map[string]int),
		expByAttr:     make(map[core.AttrKey]int),
		levelUpsByDay: make(map[string]int),
		unlocksByDay:  make(map[string]int),
	}
}

func (c *Collector) OnNotice(n core.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := n.Time.UTC().Format("2006-01-02")
	c.touch(n.UserID, day)

	switch n.Type {
	case core.NoticeExpApplied:
		if n.Delta > 0 {
			c.expByDay[day] += n.Delta
			c.expByAttr[n.Attribute] += n.Delta
		}
	case core.NoticeLevelUp:
		c.levelUpsByDay[day]++
	case core.NoticeAchievementUnlocked:
		c.unlocksByDay[day]++
	}
}

func (c *Collector) touch(user core.UserID, day string) {
	m := c.activeUsers[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		c.activeUsers[day] = m
	}
	m[user] = struct{}{}
}

// Attach subscribes the collector to every notice type the service emits.
// The returned func detaches it.
func (c *Collector) Attach(subscribe func(core.NoticeType, func(context.Context, core.Notice)) func()) func() {
	types := []core.NoticeType{
		core.NoticeExpApplied,
		core.NoticeLevelUp,
		core.NoticeAchievementUnlocked,
		core.NoticeAttributeDecayed,
		core.NoticeItemUsed,
		core.NoticeProjectCompleted,
	}
	offs := make([]func(), 0, len(types))
	for _, typ := range types {
		offs = append(offs, subscribe(typ, func(_ context.Context, n core.Notice) { c.OnNotice(n) }))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// ActiveUsers returns the count of distinct users seen on a day.
func (c *Collector) ActiveUsers(day string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeUsers[day])
}

// ExpAwarded returns the experience awarded on a day.
func (c *Collector) ExpAwarded(day string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expByDay[day]
}

// ExpByAttribute returns total experience awarded per attribute.
func (c *Collector) ExpByAttribute() map[core.AttrKey]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[core.AttrKey]int, len(c.expByAttr))
	for k, v := range c.expByAttr {
		out[k] = v
	}
	return out
}

// LevelUps returns the level-up count on a day.
func (c *Collector) LevelUps(day string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.levelUpsByDay[day]
}

// Unlocks returns the achievement unlock count on a day.
func (c *Collector) Unlocks(day string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unlocksByDay[day]
}

// Today formats now as a day key, for symmetry with the getters.
func Today(now time.Time) string { return now.UTC().Format("2006-01-02") }
