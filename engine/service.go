package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"lifeol/core"
)

// EventInput is the caller-supplied portion of a ledger event.
type EventInput struct {
	Title       string
	Description string
	ExpGains    map[core.AttrKey]int
}

// Snapshot is what a mutating operation reports back: the attribute state
// after the mutation, the ledger entry it produced (if any), and the
// achievements it newly unlocked.
type Snapshot struct {
	Attributes    core.AttributeSet  `json:"attributes"`
	Event         *core.Event        `json:"event,omitempty"`
	NewlyUnlocked []core.Achievement `json:"newly_unlocked,omitempty"`
}

// Service wires storage and the event bus into the progression API.
// Operations are serialized per user; the pure computations live in core.
type Service struct {
	storage Storage
	bus     *EventBus
	decay   core.DecayTable
	now     func() time.Time

	mu    sync.Mutex
	users map[core.UserID]*sync.Mutex
}

func NewService(storage Storage, bus *EventBus, decay core.DecayTable) *Service {
	if storage == nil || bus == nil {
		panic("NewService requires non-nil storage and bus")
	}
	if decay == nil {
		decay = core.DefaultDecayTable()
	}
	return &Service{
		storage: storage,
		bus:     bus,
		decay:   decay,
		now:     time.Now,
		users:   make(map[core.UserID]*sync.Mutex),
	}
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.NoticeType, handler func(context.Context, core.Notice)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Publish(ctx context.Context, n core.Notice) {
	s.bus.Publish(ctx, n)
}

func (s *Service) Close() { s.bus.Close() }

func (s *Service) userLock(user core.UserID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[user]
	if !ok {
		l = &sync.Mutex{}
		s.users[user] = l
	}
	return l
}

func (s *Service) loadOrInit(ctx context.Context, user core.UserID) (core.Profile, error) {
	p, err := s.storage.GetProfile(ctx, user)
	if errors.Is(err, ErrNotFound) {
		return core.NewProfile(user), nil
	}
	if err != nil {
		return core.Profile{}, err
	}
	return p, nil
}

// GetProfile returns the user's profile, or a fresh one if none is stored.
func (s *Service) GetProfile(ctx context.Context, user core.UserID) (core.Profile, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Profile{}, err
	}
	return s.loadOrInit(ctx, normalized)
}

func validateGains(gains map[core.AttrKey]int) error {
	for k, v := range gains {
		if !core.ValidAttrKey(k) {
			return fmt.Errorf("unknown attribute key %q", k)
		}
		if v < 0 {
			return fmt.Errorf("negative gain %d for %s", v, k)
		}
	}
	return nil
}

// RecordEvent appends a ledger event, applies its experience gains, and
// evaluates achievements against the updated state.
func (s *Service) RecordEvent(ctx context.Context, user core.UserID, in EventInput) (Snapshot, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Snapshot{}, err
	}
	if in.Title == "" {
		return Snapshot{}, errors.New("event title cannot be empty")
	}
	if err := validateGains(in.ExpGains); err != nil {
		return Snapshot{}, err
	}

	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return Snapshot{}, err
	}
	now := s.now().UTC()
	event := core.Event{
		ID:          newID("evt"),
		Title:       in.Title,
		Description: in.Description,
		Timestamp:   now,
		ExpGains:    in.ExpGains,
	}
	return s.commitEvent(ctx, normalized, p, event, now)
}

// commitEvent applies a ledger event to the profile: gains, achievement
// evaluation, persistence, notices. Caller holds the user lock.
func (s *Service) commitEvent(ctx context.Context, user core.UserID, p core.Profile, event core.Event, now time.Time) (Snapshot, error) {
	before := p.Attributes
	p.Attributes = core.ApplyExperienceDelta(p.Attributes, event.ExpGains)
	p.Events = append([]core.Event{event}, p.Events...)

	newly := core.EvaluateAchievements(p.Attributes, p.Events, p.Achievements, now)
	p.Achievements = core.MergeUnlocked(p.Achievements, newly)

	if err := s.storage.PutAttributes(ctx, user, p.Attributes); err != nil {
		return Snapshot{}, err
	}
	if err := s.storage.PutEvents(ctx, user, p.Events); err != nil {
		return Snapshot{}, err
	}
	if len(newly) > 0 {
		if err := s.storage.PutAchievements(ctx, user, p.Achievements); err != nil {
			return Snapshot{}, err
		}
	}

	s.publishGains(ctx, user, before, p.Attributes, event.ExpGains)
	for _, a := range newly {
		s.bus.Publish(ctx, core.NewAchievementUnlocked(user, a.ID))
	}
	return Snapshot{Attributes: p.Attributes, Event: &event, NewlyUnlocked: newly}, nil
}

func (s *Service) publishGains(ctx context.Context, user core.UserID, before, after core.AttributeSet, gains map[core.AttrKey]int) {
	for k, delta := range gains {
		if delta == 0 {
			continue
		}
		s.bus.Publish(ctx, core.NewExpApplied(user, k, delta, after[k].Exp))
		if after[k].Level > before[k].Level {
			s.bus.Publish(ctx, core.NewLevelUp(user, k, after[k].Level))
		}
	}
}

// UpdateEvent edits an event's title and description. Experience gains are
// applied once at record time and are never recomputed on edit.
func (s *Service) UpdateEvent(ctx context.Context, user core.UserID, id, title, description string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	if title == "" {
		return errors.New("event title cannot be empty")
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return err
	}
	i := p.EventIndex(id)
	if i < 0 {
		return fmt.Errorf("event %s not found", id)
	}
	p.Events[i].Title = title
	p.Events[i].Description = description
	return s.storage.PutEvents(ctx, normalized, p.Events)
}

// DeleteEvent removes a ledger entry. Attributes are left untouched; the
// attribute set is the source of truth and the ledger is an audit trail.
func (s *Service) DeleteEvent(ctx context.Context, user core.UserID, id string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return err
	}
	i := p.EventIndex(id)
	if i < 0 {
		return fmt.Errorf("event %s not found", id)
	}
	p.Events = append(p.Events[:i], p.Events[i+1:]...)
	return s.storage.PutEvents(ctx, normalized, p.Events)
}

// AddItem adds an item to the user's inventory.
func (s *Service) AddItem(ctx context.Context, user core.UserID, item core.Item) (core.Item, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Item{}, err
	}
	if item.Name == "" {
		return core.Item{}, errors.New("item name cannot be empty")
	}
	for _, e := range item.Effects {
		if !core.ValidAttrKey(e.Attribute) {
			return core.Item{}, fmt.Errorf("unknown attribute key %q", e.Attribute)
		}
	}
	if item.ID == "" {
		item.ID = newID("itm")
	}
	item.CreatedAt = s.now().UTC()
	item.Used = false
	item.UsedAt = nil

	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.Item{}, err
	}
	p.Items = append(p.Items, item)
	if err := s.storage.PutItems(ctx, normalized, p.Items); err != nil {
		return core.Item{}, err
	}
	return item, nil
}

// UseItem applies the item's effects, records a ledger event carrying the
// granted gains, and marks the item used.
func (s *Service) UseItem(ctx context.Context, user core.UserID, itemID string) (Snapshot, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Snapshot{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return Snapshot{}, err
	}
	i := p.ItemIndex(itemID)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("item %s not found", itemID)
	}
	item := p.Items[i]
	if item.Used {
		return Snapshot{}, fmt.Errorf("item %s already used", itemID)
	}
	if len(item.Effects) == 0 {
		return Snapshot{}, fmt.Errorf("item %s has no effects", itemID)
	}

	now := s.now().UTC()
	_, gains := core.ApplyItemEffects(p.Attributes, item.Effects)
	event := core.Event{
		ID:            newID("evt"),
		Title:         item.Name,
		Description:   item.Description,
		Timestamp:     now,
		ExpGains:      gains,
		RelatedItemID: item.ID,
	}

	p.Items[i].Used = true
	p.Items[i].UsedAt = &now
	if err := s.storage.PutItems(ctx, normalized, p.Items); err != nil {
		return Snapshot{}, err
	}

	snap, err := s.commitEvent(ctx, normalized, p, event, now)
	if err != nil {
		return Snapshot{}, err
	}
	s.bus.Publish(ctx, core.NewItemUsed(normalized, item.ID, event.ID))
	return snap, nil
}

// UndoItemUse reverts a use within UndoItemWindow: gains are subtracted
// (clamped at zero), the ledger event is removed, and the item is usable
// again.
func (s *Service) UndoItemUse(ctx context.Context, user core.UserID, itemID string) (Snapshot, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Snapshot{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return Snapshot{}, err
	}
	i := p.ItemIndex(itemID)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("item %s not found", itemID)
	}
	item := p.Items[i]
	if !item.Used || item.UsedAt == nil {
		return Snapshot{}, fmt.Errorf("item %s is not used", itemID)
	}
	now := s.now().UTC()
	if now.Sub(*item.UsedAt) > core.UndoItemWindow {
		return Snapshot{}, fmt.Errorf("undo window for item %s has expired", itemID)
	}

	var gains map[core.AttrKey]int
	for j, e := range p.Events {
		if e.RelatedItemID == item.ID {
			gains = e.ExpGains
			p.Events = append(p.Events[:j], p.Events[j+1:]...)
			break
		}
	}
	p.Attributes = core.RevertItemEffects(p.Attributes, gains)
	p.Items[i].Used = false
	p.Items[i].UsedAt = nil

	if err := s.storage.PutAttributes(ctx, normalized, p.Attributes); err != nil {
		return Snapshot{}, err
	}
	if err := s.storage.PutEvents(ctx, normalized, p.Events); err != nil {
		return Snapshot{}, err
	}
	if err := s.storage.PutItems(ctx, normalized, p.Items); err != nil {
		return Snapshot{}, err
	}
	for k, delta := range gains {
		if delta == 0 {
			continue
		}
		s.bus.Publish(ctx, core.NewExpApplied(normalized, k, -delta, p.Attributes[k].Exp))
	}
	return Snapshot{Attributes: p.Attributes}, nil
}

// AddProject creates a project event with zero progress.
func (s *Service) AddProject(ctx context.Context, user core.UserID, project core.ProjectEvent) (core.ProjectEvent, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.ProjectEvent{}, err
	}
	if project.Title == "" {
		return core.ProjectEvent{}, errors.New("project title cannot be empty")
	}
	if err := validateGains(project.AttributeRewards); err != nil {
		return core.ProjectEvent{}, err
	}
	if project.ID == "" {
		project.ID = newID("prj")
	}
	project.Progress = 0
	project.CreatedAt = s.now().UTC()
	project.CompletedAt = nil
	project.ProgressLog = nil

	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.ProjectEvent{}, err
	}
	p.Projects = append(p.Projects, project)
	if err := s.storage.PutProjects(ctx, normalized, p.Projects); err != nil {
		return core.ProjectEvent{}, err
	}
	return project, nil
}

// UpdateProjectProgress moves the progress bar and appends a log entry when
// the value actually changes. Completed projects cannot be updated.
func (s *Service) UpdateProjectProgress(ctx context.Context, user core.UserID, id string, progress int, reason string) (core.ProjectEvent, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.ProjectEvent{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.ProjectEvent{}, err
	}
	i := p.ProjectIndex(id)
	if i < 0 {
		return core.ProjectEvent{}, fmt.Errorf("project %s not found", id)
	}
	if p.Projects[i].Completed() {
		return core.ProjectEvent{}, fmt.Errorf("project %s already completed", id)
	}
	progress = core.ClampProgress(progress)
	if change := progress - p.Projects[i].Progress; change != 0 {
		p.Projects[i].Progress = progress
		p.Projects[i].ProgressLog = append(p.Projects[i].ProgressLog, core.ProgressLogEntry{
			Change:    change,
			Reason:    reason,
			Timestamp: s.now().UTC(),
		})
		if err := s.storage.PutProjects(ctx, normalized, p.Projects); err != nil {
			return core.ProjectEvent{}, err
		}
	}
	return p.Projects[i], nil
}

// CompleteProject finishes a project and pays out its rewards once.
// Completing an already-completed project is a no-op.
func (s *Service) CompleteProject(ctx context.Context, user core.UserID, id string) (Snapshot, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Snapshot{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return Snapshot{}, err
	}
	i := p.ProjectIndex(id)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("project %s not found", id)
	}
	if p.Projects[i].Completed() {
		return Snapshot{Attributes: p.Attributes}, nil
	}
	now := s.now().UTC()
	if change := 100 - p.Projects[i].Progress; change != 0 {
		p.Projects[i].ProgressLog = append(p.Projects[i].ProgressLog, core.ProgressLogEntry{
			Change:    change,
			Reason:    "completed",
			Timestamp: now,
		})
	}
	p.Projects[i].Progress = 100
	p.Projects[i].CompletedAt = &now
	project := p.Projects[i]

	for _, name := range project.ItemRewards {
		p.Items = append(p.Items, core.Item{
			ID:        newID("itm"),
			Name:      name,
			Type:      core.ItemTrophy,
			CreatedAt: now,
		})
	}

	if err := s.storage.PutProjects(ctx, normalized, p.Projects); err != nil {
		return Snapshot{}, err
	}
	if len(project.ItemRewards) > 0 {
		if err := s.storage.PutItems(ctx, normalized, p.Items); err != nil {
			return Snapshot{}, err
		}
	}

	event := core.Event{
		ID:          newID("evt"),
		Title:       project.Title,
		Description: project.Description,
		Timestamp:   now,
		ExpGains:    project.AttributeRewards,
	}
	snap, err := s.commitEvent(ctx, normalized, p, event, now)
	if err != nil {
		return Snapshot{}, err
	}
	s.bus.Publish(ctx, core.NewProjectCompleted(normalized, project.ID))
	return snap, nil
}

// ResetProject clears progress, log, and completion. Rewards already paid
// out are not clawed back.
func (s *Service) ResetProject(ctx context.Context, user core.UserID, id string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return err
	}
	i := p.ProjectIndex(id)
	if i < 0 {
		return fmt.Errorf("project %s not found", id)
	}
	p.Projects[i].Progress = 0
	p.Projects[i].CompletedAt = nil
	p.Projects[i].ProgressLog = nil
	return s.storage.PutProjects(ctx, normalized, p.Projects)
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, user core.UserID, id string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return err
	}
	i := p.ProjectIndex(id)
	if i < 0 {
		return fmt.Errorf("project %s not found", id)
	}
	p.Projects = append(p.Projects[:i], p.Projects[i+1:]...)
	return s.storage.PutProjects(ctx, normalized, p.Projects)
}

// AddCustomAchievement creates a user-defined achievement from a trigger
// rule and evaluates it immediately. A malformed rule yields a locked
// achievement that never unlocks on its own.
func (s *Service) AddCustomAchievement(ctx context.Context, user core.UserID, title, description, icon, triggerType, triggerCondition string) (core.Achievement, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Achievement{}, err
	}
	if title == "" {
		return core.Achievement{}, errors.New("achievement title cannot be empty")
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.Achievement{}, err
	}
	a := core.NewCustomAchievement(newID("ach"), title, description, icon, triggerType, triggerCondition)
	p.Achievements = append(p.Achievements, a)

	now := s.now().UTC()
	newly := core.EvaluateAchievements(p.Attributes, p.Events, p.Achievements, now)
	p.Achievements = core.MergeUnlocked(p.Achievements, newly)
	if err := s.storage.PutAchievements(ctx, normalized, p.Achievements); err != nil {
		return core.Achievement{}, err
	}
	for _, u := range newly {
		s.bus.Publish(ctx, core.NewAchievementUnlocked(normalized, u.ID))
	}
	return p.Achievements[p.AchievementIndex(a.ID)], nil
}

// UnlockAchievement unlocks an achievement by hand, regardless of its
// condition. Already-unlocked achievements keep their timestamp.
func (s *Service) UnlockAchievement(ctx context.Context, user core.UserID, id string) (core.Achievement, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Achievement{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.Achievement{}, err
	}
	i := p.AchievementIndex(id)
	if i < 0 {
		return core.Achievement{}, fmt.Errorf("achievement %s not found", id)
	}
	if !p.Achievements[i].Unlocked() {
		now := s.now().UTC()
		p.Achievements[i].UnlockedAt = &now
		if err := s.storage.PutAchievements(ctx, normalized, p.Achievements); err != nil {
			return core.Achievement{}, err
		}
		s.bus.Publish(ctx, core.NewAchievementUnlocked(normalized, id))
	}
	return p.Achievements[i], nil
}

// EvaluateAchievements re-runs the evaluator against the current state and
// persists any new unlocks. Safe to call repeatedly.
func (s *Service) EvaluateAchievements(ctx context.Context, user core.UserID) ([]core.Achievement, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return nil, err
	}
	newly := core.EvaluateAchievements(p.Attributes, p.Events, p.Achievements, s.now().UTC())
	if len(newly) == 0 {
		return nil, nil
	}
	p.Achievements = core.MergeUnlocked(p.Achievements, newly)
	if err := s.storage.PutAchievements(ctx, normalized, p.Achievements); err != nil {
		return nil, err
	}
	for _, a := range newly {
		s.bus.Publish(ctx, core.NewAchievementUnlocked(normalized, a.ID))
	}
	return newly, nil
}

// SelectTitles sets the user's displayed titles. Every id must name an
// unlocked title achievement.
func (s *Service) SelectTitles(ctx context.Context, user core.UserID, ids []string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return err
	}
	for _, id := range ids {
		i := p.AchievementIndex(id)
		if i < 0 {
			return fmt.Errorf("achievement %s not found", id)
		}
		a := p.Achievements[i]
		if !a.IsTitle {
			return fmt.Errorf("achievement %s is not a title", id)
		}
		if !a.Unlocked() {
			return fmt.Errorf("title %s is not unlocked", id)
		}
	}
	return s.storage.PutSelectedTitles(ctx, normalized, ids)
}

// ApplyDecay runs the decay calculator and, when any attribute decayed,
// persists the reduced attributes and appends an audit event whose gains
// carry the negative decay amounts.
func (s *Service) ApplyDecay(ctx context.Context, user core.UserID) (core.DecayResult, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.DecayResult{}, err
	}
	lock := s.userLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return core.DecayResult{}, err
	}
	now := s.now().UTC()
	res := core.ComputeDecay(p.Attributes, p.Events, s.decay, now)
	if len(res.Warnings) == 0 {
		return res, nil
	}

	losses := make(map[core.AttrKey]int, len(res.Warnings))
	for _, w := range res.Warnings {
		losses[w.Attribute] = -w.DecayAmount
	}
	audit := core.Event{
		ID:        newID("evt"),
		Title:     "attribute decay",
		Timestamp: now,
		ExpGains:  losses,
	}
	p.Attributes = res.Updated
	p.Events = append([]core.Event{audit}, p.Events...)

	if err := s.storage.PutAttributes(ctx, normalized, p.Attributes); err != nil {
		return core.DecayResult{}, err
	}
	if err := s.storage.PutEvents(ctx, normalized, p.Events); err != nil {
		return core.DecayResult{}, err
	}
	for _, w := range res.Warnings {
		s.bus.Publish(ctx, core.NewAttributeDecayed(normalized, w.Attribute, w.DecayAmount, p.Attributes[w.Attribute].Exp))
	}
	return res, nil
}

// DecayStatus reports attributes within two days of starting to decay.
func (s *Service) DecayStatus(ctx context.Context, user core.UserID) ([]core.DecayWarning, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	p, err := s.loadOrInit(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return core.ApproachingWarnings(p.Attributes, p.Events, s.decay, s.now().UTC()), nil
}

func newID(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b[:])
}
