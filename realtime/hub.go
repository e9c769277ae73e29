package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"lifeol/core"
)

// Hub is a simple pub/sub for broadcasting progression notices to channels.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan core.Notice
	next int
}

func NewHub() *Hub { return &Hub{subs: map[int]chan core.Notice{}} }

func (h *Hub) Subscribe(buffer int) (int, <-chan core.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Notice, buffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Broadcast(_ context.Context, n core.Notice) {
	h.mu.RLock()
	// copy to avoid holding lock during send
	receivers := make([]chan core.Notice, 0, len(h.subs))
	for _, ch := range h.subs {
		receivers = append(receivers, ch)
	}
	h.mu.RUnlock()
	for _, ch := range receivers {
		select {
		case ch <- n:
		default: /* drop if full */
		}
	}
}

// Attach forwards every notice type the service publishes into the hub.
// The returned func detaches all subscriptions.
func Attach(h *Hub, subscribe func(core.NoticeType, func(context.Context, core.Notice)) func()) func() {
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
		offs = append(offs, subscribe(typ, func(ctx context.Context, n core.Notice) {
			h.Broadcast(ctx, n)
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// MarshalJSON is a helper to convert notices to JSON bytes for WebSocket/SSE.
func MarshalJSON(n core.Notice) []byte {
	b, _ := json.Marshal(n)
	return b
}
