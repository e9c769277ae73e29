package sdk

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	mem "lifeol/adapters/memory"
	"lifeol/api/httpapi"
	"lifeol/core"
	"lifeol/engine"
	"lifeol/leaderboard"
	"lifeol/realtime"
)

// newTestServer serves the real API over a memory store.
func newTestServer() (*httptest.Server, *engine.Service) {
	store := mem.New()
	bus := engine.NewEventBus(engine.DispatchSync)
	svc := engine.NewService(store, bus, nil)
	hub := realtime.NewHub()
	realtime.Attach(hub, bus.Subscribe)
	board := leaderboard.NewSkipList()
	leaderboard.NewTracker(board).Attach(bus.Subscribe)

	handler := httpapi.NewMux(svc, hub, board, httpapi.Options{PathPrefix: "/api"})
	return httptest.NewServer(handler), svc
}

func TestClientProfileAndEvents(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	snap, err := client.RecordEvent(ctx, "alice", "deep work", "", map[string]int{"int": 60})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}
	if snap.Attributes["int"].Level != 2 {
		t.Fatalf("unexpected attribute: %+v", snap.Attributes["int"])
	}
	if snap.Event == nil {
		t.Fatal("expected ledger event in snapshot")
	}

	p, err := client.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.UserID != "alice" || p.Attributes["int"].Exp != 60 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if err := client.UpdateEvent(ctx, "alice", snap.Event.ID, "focused work", "90 min"); err != nil {
		t.Fatalf("update event: %v", err)
	}
	if err := client.DeleteEvent(ctx, "alice", snap.Event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}

	health, err := client.Health(ctx)
	if err != nil || health.Status != "healthy" {
		t.Fatalf("health: %+v err=%v", health, err)
	}
}

func TestClientItemsProjectsAndStats(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	item, err := client.AddItem(ctx, "bob", Item{
		Name:    "energy drink",
		Type:    "consumable",
		Effects: []ItemEffect{{Attribute: "vit", Type: "fixed", Value: 20}},
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	snap, err := client.UseItem(ctx, "bob", item.ID)
	if err != nil {
		t.Fatalf("use item: %v", err)
	}
	if snap.Attributes["vit"].Exp != 20 {
		t.Fatalf("unexpected vit after use: %+v", snap.Attributes["vit"])
	}
	if _, err := client.UndoItemUse(ctx, "bob", item.ID); err != nil {
		t.Fatalf("undo item use: %v", err)
	}

	project, err := client.AddProject(ctx, "bob", Project{
		Title:            "learn go",
		AttributeRewards: map[string]int{"int": 30},
	})
	if err != nil {
		t.Fatalf("add project: %v", err)
	}
	if _, err := client.UpdateProjectProgress(ctx, "bob", project.ID, 80, "almost"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	done, err := client.CompleteProject(ctx, "bob", project.ID)
	if err != nil {
		t.Fatalf("complete project: %v", err)
	}
	if done.Attributes["int"].Exp != 30 {
		t.Fatalf("unexpected int after completion: %+v", done.Attributes["int"])
	}

	stats, err := client.Stats(ctx, "bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalExp != 30 {
		t.Fatalf("total exp = %d, want 30", stats.TotalExp)
	}

	entries, err := client.Leaderboard(ctx, 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) == 0 || entries[0].User != "bob" {
		t.Fatalf("unexpected leaderboard: %#v", entries)
	}
}

func TestClientValidation(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()

	if _, err := client.GetProfile(ctx, ""); err != ErrEmptyUserID {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
	if _, err := client.RecordEvent(ctx, "alice", "", "", map[string]int{"int": 5}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestClientSubscribeNotices(t *testing.T) {
	srv, svc := newTestServer()
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	notices, err := client.SubscribeNotices(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// give the server side a moment to register its hub subscription
	time.Sleep(50 * time.Millisecond)

	if _, err := svc.RecordEvent(ctx, "carol", engine.EventInput{
		Title:    "sketching",
		ExpGains: map[core.AttrKey]int{core.AttrCre: 15},
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	select {
	case n := <-notices:
		if n.Type != string(core.NoticeExpApplied) || n.UserID != "carol" {
			t.Fatalf("unexpected notice: %+v", n)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for notice")
	}
}
