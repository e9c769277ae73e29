package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the LifeOL HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

func (c *Client) userPath(userID string, rest ...string) string {
	parts := append([]string{c.baseURL, "users", url.PathEscape(userID)}, rest...)
	return strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, target)
}

// GetProfile fetches the full profile for a user.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, ErrEmptyUserID
	}
	var p Profile
	err := c.do(ctx, http.MethodGet, c.userPath(userID), nil, &p)
	return p, err
}

// RecordEvent logs an activity with per-attribute experience gains.
func (c *Client) RecordEvent(ctx context.Context, userID, title, description string, expGains map[string]int) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrEmptyUserID
	}
	body := map[string]any{"title": title, "description": description, "exp_gains": expGains}
	var snap Snapshot
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "events"), body, &snap)
	return snap, err
}

// UpdateEvent edits a ledger entry's title and description.
func (c *Client) UpdateEvent(ctx context.Context, userID, eventID, title, description string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	body := map[string]any{"title": title, "description": description}
	return c.do(ctx, http.MethodPut, c.userPath(userID, "events", url.PathEscape(eventID)), body, nil)
}

// DeleteEvent removes a ledger entry. Attribute experience is untouched.
func (c *Client) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "events", url.PathEscape(eventID)), nil, nil)
}

// AddItem adds an inventory item.
func (c *Client) AddItem(ctx context.Context, userID string, item Item) (Item, error) {
	if strings.TrimSpace(userID) == "" {
		return Item{}, ErrEmptyUserID
	}
	var out Item
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "items"), item, &out)
	return out, err
}

// UseItem consumes an item, applying its effects.
func (c *Client) UseItem(ctx context.Context, userID, itemID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrEmptyUserID
	}
	var snap Snapshot
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "items", url.PathEscape(itemID), "use"), nil, &snap)
	return snap, err
}

// UndoItemUse reverts a recent item use.
func (c *Client) UndoItemUse(ctx context.Context, userID, itemID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrEmptyUserID
	}
	var snap Snapshot
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "items", url.PathEscape(itemID), "undo"), nil, &snap)
	return snap, err
}

// AddProject creates a project with optional completion rewards.
func (c *Client) AddProject(ctx context.Context, userID string, project Project) (Project, error) {
	if strings.TrimSpace(userID) == "" {
		return Project{}, ErrEmptyUserID
	}
	var out Project
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "projects"), project, &out)
	return out, err
}

// UpdateProjectProgress sets a project's progress bar.
func (c *Client) UpdateProjectProgress(ctx context.Context, userID, projectID string, progress int, reason string) (Project, error) {
	if strings.TrimSpace(userID) == "" {
		return Project{}, ErrEmptyUserID
	}
	body := map[string]any{"progress": progress, "reason": reason}
	var out Project
	err := c.do(ctx, http.MethodPut, c.userPath(userID, "projects", url.PathEscape(projectID), "progress"), body, &out)
	return out, err
}

// CompleteProject completes a project and pays out its rewards.
func (c *Client) CompleteProject(ctx context.Context, userID, projectID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, ErrEmptyUserID
	}
	var snap Snapshot
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "projects", url.PathEscape(projectID), "complete"), nil, &snap)
	return snap, err
}

// AddCustomAchievement creates a user-defined achievement.
func (c *Client) AddCustomAchievement(ctx context.Context, userID, title, triggerType, triggerCondition string) (Achievement, error) {
	if strings.TrimSpace(userID) == "" {
		return Achievement{}, ErrEmptyUserID
	}
	body := map[string]any{"title": title, "trigger_type": triggerType, "trigger_condition": triggerCondition}
	var a Achievement
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "achievements"), body, &a)
	return a, err
}

// SelectTitles sets which unlocked titles the user displays.
func (c *Client) SelectTitles(ctx context.Context, userID string, titles []string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return c.do(ctx, http.MethodPut, c.userPath(userID, "titles"), map[string]any{"titles": titles}, nil)
}

// RunDecay applies the attribute decay pass for a user.
func (c *Client) RunDecay(ctx context.Context, userID string) (DecayOutcome, error) {
	if strings.TrimSpace(userID) == "" {
		return DecayOutcome{}, ErrEmptyUserID
	}
	var out DecayOutcome
	err := c.do(ctx, http.MethodPost, c.userPath(userID, "decay"), nil, &out)
	return out, err
}

// DecayWarnings reports attributes approaching their decay threshold.
func (c *Client) DecayWarnings(ctx context.Context, userID string) ([]DecayWarning, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	var warnings []DecayWarning
	err := c.do(ctx, http.MethodGet, c.userPath(userID, "decay"), nil, &warnings)
	return warnings, err
}

// Stats fetches the stats overview for a user.
func (c *Client) Stats(ctx context.Context, userID string) (Overview, error) {
	if strings.TrimSpace(userID) == "" {
		return Overview{}, ErrEmptyUserID
	}
	var o Overview
	err := c.do(ctx, http.MethodGet, c.userPath(userID, "stats"), nil, &o)
	return o, err
}

// Leaderboard fetches the top n users by total experience.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/leaderboard?n=%d", c.baseURL, n), nil, &entries)
	return entries, err
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil, &hs)
	return hs, err
}

// SubscribeNotices connects to the WebSocket stream and emits Notice values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeNotices(ctx context.Context) (<-chan Notice, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan Notice, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var n Notice
				if err := conn.ReadJSON(&n); err != nil {
					return
				}
				select {
				case out <- n:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
