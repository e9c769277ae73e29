package lifeol

import (
	"context"

	mem "lifeol/adapters/memory"
	"lifeol/core"
	"lifeol/engine"
	"lifeol/integrations/webhook"
	"lifeol/leaderboard"
	"lifeol/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	decay   core.DecayTable
	hub     *realtime.Hub
	board   leaderboard.Board
	sink    *webhook.Sink
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDecayTable overrides the attribute decay thresholds and rates.
func WithDecayTable(t core.DecayTable) Option { return func(c *config) { c.decay = t } }

// WithDispatchMode selects sync or async notice dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all service notices.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLeaderboard keeps a board updated from experience notices.
func WithLeaderboard(b leaderboard.Board) Option { return func(c *config) { c.board = b } }

// WithWebhooks delivers every notice to the sink's endpoints.
func WithWebhooks(s *webhook.Sink) Option { return func(c *config) { c.sink = s } }

// New builds a configured Service. If not provided, defaults are used:
//   - storage: in-memory
//   - decay: DefaultDecayTable
//   - dispatch: async
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(cfg.storage, bus, cfg.decay)
	if cfg.hub != nil {
		realtime.Attach(cfg.hub, bus.Subscribe)
	}
	if cfg.board != nil {
		leaderboard.NewTracker(cfg.board).Attach(bus.Subscribe)
	}
	if cfg.sink != nil {
		attachSink(cfg.sink, bus)
	}
	return svc
}

func attachSink(sink *webhook.Sink, bus *engine.EventBus) {
	types := []core.NoticeType{
		core.NoticeExpApplied,
		core.NoticeLevelUp,
		core.NoticeAchievementUnlocked,
		core.NoticeAttributeDecayed,
		core.NoticeItemUsed,
		core.NoticeProjectCompleted,
	}
	for _, typ := range types {
		bus.Subscribe(typ, func(_ context.Context, n core.Notice) { sink.OnNotice(n) })
	}
}
