package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "lifeol/adapters/websocket"
	"lifeol/core"
	"lifeol/engine"
	"lifeol/leaderboard"
	"lifeol/realtime"
	"lifeol/stats"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

type eventRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	ExpGains    map[core.AttrKey]int `json:"exp_gains"`
}

type itemRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Type        core.ItemType     `json:"type"`
	Effects     []core.ItemEffect `json:"effects"`
}

type projectRequest struct {
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	AttributeRewards map[core.AttrKey]int `json:"attribute_rewards"`
	ItemRewards      []string             `json:"item_rewards"`
}

type progressRequest struct {
	Progress int    `json:"progress"`
	Reason   string `json:"reason"`
}

type achievementRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	TriggerType      string `json:"trigger_type"`
	TriggerCondition string `json:"trigger_condition"`
}

type titlesRequest struct {
	Titles []string `json:"titles"`
}

// NewMux builds an http.Handler exposing the progression REST API and
// WebSocket stream.
// Routes:
//   - GET    {prefix}/users/{id}
//   - GET    {prefix}/users/{id}/stats
//   - GET    {prefix}/users/{id}/stats/daily?days=30
//   - POST   {prefix}/users/{id}/events
//   - PUT    {prefix}/users/{id}/events/{eid}
//   - DELETE {prefix}/users/{id}/events/{eid}
//   - POST   {prefix}/users/{id}/items
//   - POST   {prefix}/users/{id}/items/{iid}/use
//   - POST   {prefix}/users/{id}/items/{iid}/undo
//   - POST   {prefix}/users/{id}/projects
//   - PUT    {prefix}/users/{id}/projects/{pid}/progress
//   - POST   {prefix}/users/{id}/projects/{pid}/complete
//   - POST   {prefix}/users/{id}/projects/{pid}/reset
//   - DELETE {prefix}/users/{id}/projects/{pid}
//   - POST   {prefix}/users/{id}/achievements
//   - POST   {prefix}/users/{id}/achievements/{aid}/unlock
//   - PUT    {prefix}/users/{id}/titles
//   - GET    {prefix}/users/{id}/decay
//   - POST   {prefix}/users/{id}/decay
//   - GET    {prefix}/leaderboard?n=10
//   - GET    {prefix}/healthz
//   - WS     {prefix}/ws
func NewMux(svc *engine.Service, hub *realtime.Hub, board leaderboard.Board, opts Options) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket notices
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	// Leaderboard
	if board != nil {
		mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard"), func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
				return
			}
			n, err := strconv.Atoi(r.URL.Query().Get("n"))
			if err != nil || n <= 0 {
				n = 10
			}
			writeJSON(w, board.TopN(n))
		})
	}

	// Users API
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, opts.PathPrefix)
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		parts := split(path, '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		user, err := core.NormalizeUserID(core.UserID(parts[1]))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}
		handleUser(w, r, svc, user, parts[2:])
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// handleUser routes everything under /users/{id}. rest holds the path
// segments after the user id.
func handleUser(w http.ResponseWriter, r *http.Request, svc *engine.Service, user core.UserID, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		p, err := svc.GetProfile(ctx, user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
			return
		}
		writeJSON(w, p)
		return
	}

	switch rest[0] {
	case "stats":
		if r.Method != http.MethodGet {
			break
		}
		p, err := svc.GetProfile(ctx, user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
			return
		}
		if len(rest) >= 2 && rest[1] == "daily" {
			days, err := strconv.Atoi(r.URL.Query().Get("days"))
			if err != nil || days <= 0 {
				days = 30
			}
			writeJSON(w, stats.DailyExpTotals(p.Events, days, time.Now().UTC()))
			return
		}
		writeJSON(w, stats.Summarize(p, time.Now().UTC()))
		return

	case "events":
		switch {
		case r.Method == http.MethodPost && len(rest) == 1:
			var req eventRequest
			if !decodeBody(w, r, &req) {
				return
			}
			snap, err := svc.RecordEvent(ctx, user, engine.EventInput{
				Title:       req.Title,
				Description: req.Description,
				ExpGains:    req.ExpGains,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, snap)
			return
		case r.Method == http.MethodPut && len(rest) == 2:
			var req eventRequest
			if !decodeBody(w, r, &req) {
				return
			}
			if err := svc.UpdateEvent(ctx, user, rest[1], req.Title, req.Description); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			return
		case r.Method == http.MethodDelete && len(rest) == 2:
			if err := svc.DeleteEvent(ctx, user, rest[1]); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			return
		}

	case "items":
		switch {
		case r.Method == http.MethodPost && len(rest) == 1:
			var req itemRequest
			if !decodeBody(w, r, &req) {
				return
			}
			item, err := svc.AddItem(ctx, user, core.Item{
				Name:        req.Name,
				Description: req.Description,
				Icon:        req.Icon,
				Type:        req.Type,
				Effects:     req.Effects,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, item)
			return
		case r.Method == http.MethodPost && len(rest) == 3 && rest[2] == "use":
			snap, err := svc.UseItem(ctx, user, rest[1])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, snap)
			return
		case r.Method == http.MethodPost && len(rest) == 3 && rest[2] == "undo":
			snap, err := svc.UndoItemUse(ctx, user, rest[1])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, snap)
			return
		}

	case "projects":
		switch {
		case r.Method == http.MethodPost && len(rest) == 1:
			var req projectRequest
			if !decodeBody(w, r, &req) {
				return
			}
			project, err := svc.AddProject(ctx, user, core.ProjectEvent{
				Title:            req.Title,
				Description:      req.Description,
				AttributeRewards: req.AttributeRewards,
				ItemRewards:      req.ItemRewards,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, project)
			return
		case r.Method == http.MethodPut && len(rest) == 3 && rest[2] == "progress":
			var req progressRequest
			if !decodeBody(w, r, &req) {
				return
			}
			project, err := svc.UpdateProjectProgress(ctx, user, rest[1], req.Progress, req.Reason)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, project)
			return
		case r.Method == http.MethodPost && len(rest) == 3 && rest[2] == "complete":
			snap, err := svc.CompleteProject(ctx, user, rest[1])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, snap)
			return
		case r.Method == http.MethodPost && len(rest) == 3 && rest[2] == "reset":
			if err := svc.ResetProject(ctx, user, rest[1]); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			return
		case r.Method == http.MethodDelete && len(rest) == 2:
			if err := svc.DeleteProject(ctx, user, rest[1]); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			return
		}

	case "achievements":
		switch {
		case r.Method == http.MethodPost && len(rest) == 1:
			var req achievementRequest
			if !decodeBody(w, r, &req) {
				return
			}
			a, err := svc.AddCustomAchievement(ctx, user, req.Title, req.Description, req.Icon, req.TriggerType, req.TriggerCondition)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, a)
			return
		case r.Method == http.MethodPost && len(rest) == 3 && rest[2] == "unlock":
			a, err := svc.UnlockAchievement(ctx, user, rest[1])
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, a)
			return
		}

	case "titles":
		if r.Method == http.MethodPut && len(rest) == 1 {
			var req titlesRequest
			if !decodeBody(w, r, &req) {
				return
			}
			if err := svc.SelectTitles(ctx, user, req.Titles); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
			return
		}

	case "decay":
		switch r.Method {
		case http.MethodGet:
			warnings, err := svc.DecayStatus(ctx, user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, warnings)
			return
		case http.MethodPost:
			res, err := svc.ApplyDecay(ctx, user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"attributes": res.Updated, "warnings": res.Warnings})
			return
		}
	}

	writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
}

// Helpers

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	ctx := r.Context()

	// Verify storage works by trying to fetch a dummy user
	// This is a safe, lightweight check that doesn't affect real data
	dummyUser := core.UserID("healthcheck_probe")
	_, err := svc.GetProfile(ctx, dummyUser)

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", nil)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	// trim leading '/'
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
