package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	mem "lifeol/adapters/memory"
	ws "lifeol/adapters/websocket"
	"lifeol/core"
	"lifeol/engine"
	"lifeol/realtime"
)

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	store := mem.New()
	bus := engine.NewEventBus(engine.DispatchAsync)
	svc := engine.NewService(store, bus, nil)
	hub := realtime.NewHub()
	realtime.Attach(hub, bus.Subscribe)

	http.Handle("/ws", ws.Handler(hub))
	http.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		// routes: POST /users/{id}/events?title=...&attr=int&exp=25, GET /users/{id}
		parts := split(r.URL.Path, '/')
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		user := core.UserID(parts[1])
		switch r.Method {
		case http.MethodPost:
			if len(parts) >= 3 && parts[2] == "events" {
				attr := core.AttrKey(r.URL.Query().Get("attr"))
				if attr == "" {
					attr = core.AttrInt
				}
				exp, _ := strconv.Atoi(r.URL.Query().Get("exp"))
				title := r.URL.Query().Get("title")
				if title == "" {
					title = "demo event"
				}
				snap, err := svc.RecordEvent(ctx, user, engine.EventInput{
					Title:    title,
					ExpGains: map[core.AttrKey]int{attr: exp},
				})
				writeJSON(w, map[string]any{"attributes": snap.Attributes, "err": errString(err)})
				return
			}
		case http.MethodGet:
			p, err := svc.GetProfile(ctx, user)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, p)
			return
		}
		http.NotFound(w, r)
	})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
