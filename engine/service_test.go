package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lifeol/core"
)

type fakeStore struct {
	mu       sync.Mutex
	profiles map[core.UserID]core.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[core.UserID]core.Profile)}
}

func (f *fakeStore) get(user core.UserID) core.Profile {
	p, ok := f.profiles[user]
	if !ok {
		p = core.NewProfile(user)
	}
	return p
}

func (f *fakeStore) GetProfile(_ context.Context, user core.UserID) (core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[user]
	if !ok {
		return core.Profile{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (f *fakeStore) PutAttributes(_ context.Context, user core.UserID, attrs core.AttributeSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.Attributes = attrs.Clone()
	f.profiles[user] = p
	return nil
}

func (f *fakeStore) PutEvents(_ context.Context, user core.UserID, events []core.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.Events = append([]core.Event(nil), events...)
	f.profiles[user] = p
	return nil
}

func (f *fakeStore) PutAchievements(_ context.Context, user core.UserID, achievements []core.Achievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.Achievements = append([]core.Achievement(nil), achievements...)
	f.profiles[user] = p
	return nil
}

func (f *fakeStore) PutItems(_ context.Context, user core.UserID, items []core.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.Items = append([]core.Item(nil), items...)
	f.profiles[user] = p
	return nil
}

func (f *fakeStore) PutProjects(_ context.Context, user core.UserID, projects []core.ProjectEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.Projects = append([]core.ProjectEvent(nil), projects...)
	f.profiles[user] = p
	return nil
}

func (f *fakeStore) PutSelectedTitles(_ context.Context, user core.UserID, titles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.get(user)
	p.SelectedTitles = append([]string(nil), titles...)
	f.profiles[user] = p
	return nil
}

var _ Storage = (*fakeStore)(nil)

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, NewEventBus(DispatchSync), nil), store
}

func TestRecordEventAppliesGainsAndUnlocks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var levelUps, unlocks int
	svc.Subscribe(core.NoticeLevelUp, func(ctx context.Context, n core.Notice) { levelUps++ })
	svc.Subscribe(core.NoticeAchievementUnlocked, func(ctx context.Context, n core.Notice) { unlocks++ })

	snap, err := svc.RecordEvent(ctx, "User1", EventInput{
		Title:    "读完一本书",
		ExpGains: map[core.AttrKey]int{core.AttrInt: 60},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Attributes[core.AttrInt]; got.Exp != 60 || got.Level != 2 {
		t.Fatalf("expected exp 60 level 2, got %+v", got)
	}
	if levelUps != 1 {
		t.Fatalf("expected one level-up notice, got %d", levelUps)
	}
	if unlocks == 0 {
		t.Fatal("expected achievement unlock notices")
	}

	found := false
	for _, a := range snap.NewlyUnlocked {
		if a.ID == "first_event" {
			found = true
		}
	}
	if !found {
		t.Fatalf("first_event not among unlocks: %+v", snap.NewlyUnlocked)
	}

	p, err := svc.GetProfile(ctx, "user1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Events) != 1 || p.Events[0].Title != "读完一本书" {
		t.Fatalf("ledger not persisted: %+v", p.Events)
	}
}

func TestRecordEventValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: ""}); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "x", ExpGains: map[core.AttrKey]int{"luck": 5}}); err == nil {
		t.Fatal("expected error for unknown attribute key")
	}
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "x", ExpGains: map[core.AttrKey]int{core.AttrInt: -5}}); err == nil {
		t.Fatal("expected error for negative gain")
	}
	if _, err := svc.RecordEvent(ctx, "  ", EventInput{Title: "x"}); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestUpdateEventDoesNotTouchAttributes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	snap, err := svc.RecordEvent(ctx, "u", EventInput{Title: "跑步", ExpGains: map[core.AttrKey]int{core.AttrVit: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateEvent(ctx, "u", snap.Event.ID, "晨跑", "五公里"); err != nil {
		t.Fatal(err)
	}
	p, _ := svc.GetProfile(ctx, "u")
	if p.Events[0].Title != "晨跑" || p.Events[0].Description != "五公里" {
		t.Fatalf("edit not applied: %+v", p.Events[0])
	}
	if p.Attributes[core.AttrVit].Exp != 10 {
		t.Fatal("edit changed attribute experience")
	}

	if err := svc.UpdateEvent(ctx, "u", "missing", "t", ""); err == nil {
		t.Fatal("expected error for unknown event id")
	}
}

func TestDeleteEventKeepsAttributes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	snap, _ := svc.RecordEvent(ctx, "u", EventInput{Title: "冥想", ExpGains: map[core.AttrKey]int{core.AttrEQ: 8}})
	if err := svc.DeleteEvent(ctx, "u", snap.Event.ID); err != nil {
		t.Fatal(err)
	}
	p, _ := svc.GetProfile(ctx, "u")
	if len(p.Events) != 0 {
		t.Fatalf("event not deleted: %+v", p.Events)
	}
	if p.Attributes[core.AttrEQ].Exp != 8 {
		t.Fatal("delete rolled back attribute experience")
	}
}

func TestUseItemAndUndo(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "u", core.Item{
		Name: "能量饮料",
		Type: core.ItemConsumable,
		Effects: []core.ItemEffect{
			{Attribute: core.AttrVit, Type: core.EffectFixed, Value: 30},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	snap, err := svc.UseItem(ctx, "u", item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Attributes[core.AttrVit].Exp != 30 {
		t.Fatalf("effect not applied: %+v", snap.Attributes[core.AttrVit])
	}
	if snap.Event == nil || snap.Event.RelatedItemID != item.ID {
		t.Fatalf("ledger event missing item link: %+v", snap.Event)
	}
	if _, err := svc.UseItem(ctx, "u", item.ID); err == nil {
		t.Fatal("expected error when using an item twice")
	}

	undone, err := svc.UndoItemUse(ctx, "u", item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if undone.Attributes[core.AttrVit].Exp != 0 {
		t.Fatalf("undo did not revert gains: %+v", undone.Attributes[core.AttrVit])
	}
	p, _ := svc.GetProfile(ctx, "u")
	if len(p.Events) != 0 {
		t.Fatalf("undo left the ledger event behind: %+v", p.Events)
	}
	if p.Items[0].Used {
		t.Fatal("undo did not clear the used flag")
	}
}

func TestUndoItemUseWindowExpired(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	item, _ := svc.AddItem(ctx, "u", core.Item{
		Name:    "药水",
		Type:    core.ItemConsumable,
		Effects: []core.ItemEffect{{Attribute: core.AttrInt, Type: core.EffectFixed, Value: 5}},
	})
	if _, err := svc.UseItem(ctx, "u", item.ID); err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return base.Add(3 * time.Hour) }
	if _, err := svc.UndoItemUse(ctx, "u", item.ID); err == nil {
		t.Fatal("expected undo window error")
	}
}

func TestProjectLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	project, err := svc.AddProject(ctx, "u", core.ProjectEvent{
		Title:            "学习围棋",
		AttributeRewards: map[core.AttrKey]int{core.AttrInt: 40},
		ItemRewards:      []string{"段位证书"},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateProjectProgress(ctx, "u", project.ID, 40, "完成入门教程")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Progress != 40 || len(updated.ProgressLog) != 1 || updated.ProgressLog[0].Change != 40 {
		t.Fatalf("progress log wrong: %+v", updated)
	}

	// unchanged progress adds no log entry
	updated, _ = svc.UpdateProjectProgress(ctx, "u", project.ID, 40, "")
	if len(updated.ProgressLog) != 1 {
		t.Fatalf("no-op update appended a log entry: %+v", updated.ProgressLog)
	}

	snap, err := svc.CompleteProject(ctx, "u", project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Attributes[core.AttrInt].Exp != 40 {
		t.Fatalf("rewards not applied: %+v", snap.Attributes[core.AttrInt])
	}
	p, _ := svc.GetProfile(ctx, "u")
	if !p.Projects[0].Completed() || p.Projects[0].Progress != 100 {
		t.Fatalf("project not completed: %+v", p.Projects[0])
	}
	if len(p.Items) != 1 || p.Items[0].Name != "段位证书" {
		t.Fatalf("item reward missing: %+v", p.Items)
	}

	// completing twice is a no-op
	again, err := svc.CompleteProject(ctx, "u", project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Attributes[core.AttrInt].Exp != 40 {
		t.Fatalf("second completion paid rewards again: %+v", again.Attributes[core.AttrInt])
	}
	if _, err := svc.UpdateProjectProgress(ctx, "u", project.ID, 50, ""); err == nil {
		t.Fatal("expected error updating a completed project")
	}

	if err := svc.ResetProject(ctx, "u", project.ID); err != nil {
		t.Fatal(err)
	}
	p, _ = svc.GetProfile(ctx, "u")
	if p.Projects[0].Completed() || p.Projects[0].Progress != 0 || len(p.Projects[0].ProgressLog) != 0 {
		t.Fatalf("reset incomplete: %+v", p.Projects[0])
	}

	if err := svc.DeleteProject(ctx, "u", project.ID); err != nil {
		t.Fatal(err)
	}
	p, _ = svc.GetProfile(ctx, "u")
	if len(p.Projects) != 0 {
		t.Fatal("project not deleted")
	}
}

func TestCustomAchievementUnlocksImmediately(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "学习", ExpGains: map[core.AttrKey]int{core.AttrInt: 100}}); err != nil {
		t.Fatal(err)
	}
	a, err := svc.AddCustomAchievement(ctx, "u", "三级智者", "", "brain", "level", "int:3")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Unlocked() {
		t.Fatalf("achievement should unlock against current state: %+v", a)
	}

	locked, err := svc.AddCustomAchievement(ctx, "u", "百级传说", "", "crown", "level", "int:100")
	if err != nil {
		t.Fatal(err)
	}
	if locked.Unlocked() {
		t.Fatal("unreachable achievement unlocked")
	}
}

func TestManualUnlockIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.AddCustomAchievement(ctx, "u", "手动", "", "", "manual", "")
	if err != nil {
		t.Fatal(err)
	}
	first, err := svc.UnlockAchievement(ctx, "u", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.UnlockAchievement(ctx, "u", a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Unlocked() || !second.UnlockedAt.Equal(*first.UnlockedAt) {
		t.Fatalf("manual unlock not idempotent: %+v vs %+v", first.UnlockedAt, second.UnlockedAt)
	}
}

func TestSelectTitlesRequiresUnlocked(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.SelectTitles(ctx, "u", []string{"title_int_5"}); err == nil {
		t.Fatal("expected error selecting a locked title")
	}
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "学习", ExpGains: map[core.AttrKey]int{core.AttrInt: 130}}); err != nil {
		t.Fatal(err)
	}
	// int level 5 unlocks title_int_5
	if err := svc.SelectTitles(ctx, "u", []string{"title_int_5"}); err != nil {
		t.Fatal(err)
	}
	p, _ := svc.GetProfile(ctx, "u")
	if len(p.SelectedTitles) != 1 || p.SelectedTitles[0] != "title_int_5" {
		t.Fatalf("titles not persisted: %+v", p.SelectedTitles)
	}

	if err := svc.SelectTitles(ctx, "u", []string{"first_event"}); err == nil {
		t.Fatal("expected error selecting a non-title achievement")
	}
}

func TestApplyDecayPersistsAuditEvent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "举铁", ExpGains: map[core.AttrKey]int{core.AttrStr: 60}}); err != nil {
		t.Fatal(err)
	}

	// ten days later: threshold 7, three decay days at 1% of 60 = 1
	svc.now = func() time.Time { return base.AddDate(0, 0, 10) }
	res, err := svc.ApplyDecay(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Attribute != core.AttrStr {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}

	p, _ := svc.GetProfile(ctx, "u")
	if p.Attributes[core.AttrStr].Exp != 59 {
		t.Fatalf("decay not persisted: %+v", p.Attributes[core.AttrStr])
	}
	if len(p.Events) != 2 {
		t.Fatalf("audit event missing: %d events", len(p.Events))
	}
	if got := p.Events[0].ExpGains[core.AttrStr]; got != -1 {
		t.Fatalf("audit event gain = %d, want -1", got)
	}
}

func TestApplyDecayNoopInsideThreshold(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "举铁", ExpGains: map[core.AttrKey]int{core.AttrStr: 60}}); err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return base.AddDate(0, 0, 3) }
	res, err := svc.ApplyDecay(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected decay: %+v", res.Warnings)
	}
	p, _ := svc.GetProfile(ctx, "u")
	if len(p.Events) != 1 {
		t.Fatal("no-op decay pass appended an event")
	}
}

func TestDecayStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, err := svc.RecordEvent(ctx, "u", EventInput{Title: "举铁", ExpGains: map[core.AttrKey]int{core.AttrStr: 10}}); err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return base.AddDate(0, 0, 6) }
	warnings, err := svc.DecayStatus(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || warnings[0].Attribute != core.AttrStr || warnings[0].DaysUntilDecay != 1 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, store := newTestService()
	p, err := svc.GetProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != "nobody" || len(p.Achievements) == 0 {
		t.Fatalf("expected fresh seeded profile: %+v", p.UserID)
	}
	// read does not persist
	if _, err := store.GetProfile(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatal("profile read materialized storage state")
	}
}
