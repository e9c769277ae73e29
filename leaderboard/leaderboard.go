package leaderboard

import (
	"context"
	"sync"

	"lifeol/core"
)

// Entry ranks one user by total experience across all attributes.
type Entry struct {
	User     core.UserID `json:"user"`
	TotalExp int64       `json:"total_exp"`
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(user core.UserID, totalExp int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
}

// Tracker keeps per-user experience totals current by consuming experience
// and decay notices from the bus, and mirrors them into a Board.
type Tracker struct {
	board  Board
	mu     sync.Mutex
	totals map[core.UserID]int64
}

func NewTracker(board Board) *Tracker {
	return &Tracker{board: board, totals: map[core.UserID]int64{}}
}

// Seed initializes a user's total, typically from a loaded profile.
func (t *Tracker) Seed(user core.UserID, totalExp int64) {
	t.mu.Lock()
	t.totals[user] = totalExp
	t.mu.Unlock()
	t.board.Update(user, totalExp)
}

// Attach subscribes the tracker to experience-moving notices. The returned
// func detaches it.
func (t *Tracker) Attach(subscribe func(core.NoticeType, func(context.Context, core.Notice)) func()) func() {
	handler := func(_ context.Context, n core.Notice) {
		t.apply(n)
	}
	offExp := subscribe(core.NoticeExpApplied, handler)
	offDecay := subscribe(core.NoticeAttributeDecayed, handler)
	return func() {
		offExp()
		offDecay()
	}
}

func (t *Tracker) apply(n core.Notice) {
	if n.Delta == 0 {
		return
	}
	t.mu.Lock()
	total := t.totals[n.UserID] + int64(n.Delta)
	if total < 0 {
		total = 0
	}
	t.totals[n.UserID] = total
	t.mu.Unlock()
	t.board.Update(n.UserID, total)
}
