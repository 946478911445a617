// Package remote is the client for the remote achievements API: the
// catalogue of achievement definitions and the user's synced profile.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

var (
	// ErrNotLoggedIn is returned for profile calls without an access token,
	// and matches 401 responses.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSubscriptionRequired is returned when a call needs an active
	// subscription the account does not have, and matches 402 responses.
	ErrSubscriptionRequired = errors.New("subscription required")
)

// APIError is a non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is maps auth and payment statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotLoggedIn:
		return e.StatusCode == http.StatusUnauthorized
	case ErrSubscriptionRequired:
		return e.StatusCode == http.StatusPaymentRequired
	}
	return false
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string

	// SubscriptionExpiresAt is zero when the account has no subscription.
	SubscriptionExpiresAt time.Time

	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

// Client talks to the remote achievements API.
type Client struct {
	baseURL      string
	token        string
	subscription time.Time
	httpClient   *http.Client
	limiter      *rate.Limiter
	now          func() time.Time
}

// New creates a client. A non-positive RequestsPerSecond disables limiting.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		subscription: cfg.SubscriptionExpiresAt,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		now:          time.Now,
	}
}

// LoggedIn reports whether the client has an access token.
func (c *Client) LoggedIn() bool {
	return c.token != ""
}

// HasActiveSubscription reports whether the subscription is unexpired.
func (c *Client) HasActiveSubscription() bool {
	return !c.subscription.IsZero() && c.subscription.After(c.now())
}

// SyncResult is the authoritative state returned by PutAchievements.
type SyncResult struct {
	ObjectID     string                 `json:"objectId"`
	Shop         string                 `json:"shop"`
	Achievements []achievement.Unlocked `json:"achievements"`
}

// FetchDefinitions returns the achievement catalogue for a game.
func (c *Client) FetchDefinitions(ctx context.Context, key achievement.GameKey, language string) ([]achievement.Definition, error) {
	q := url.Values{}
	q.Set("shop", key.Shop)
	q.Set("objectId", key.ObjectID)
	if language != "" {
		q.Set("language", language)
	}

	var defs []achievement.Definition
	if err := c.do(ctx, "fetch definitions", http.MethodGet, "/games/achievements?"+q.Encode(), nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// PutAchievements uploads the unlocked set for a linked game and returns
// the merged state the server now holds. With needsSubscription set the
// call is refused locally when no subscription is active.
func (c *Client) PutAchievements(ctx context.Context, remoteID string, unlocked []achievement.Unlocked, needsSubscription bool) (*SyncResult, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if needsSubscription && !c.HasActiveSubscription() {
		return nil, ErrSubscriptionRequired
	}

	if unlocked == nil {
		unlocked = []achievement.Unlocked{}
	}
	body := struct {
		ID           string                 `json:"id"`
		Achievements []achievement.Unlocked `json:"achievements"`
	}{ID: remoteID, Achievements: unlocked}

	var out SyncResult
	if err := c.do(ctx, "put achievements", http.MethodPut, "/profile/games/achievements", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAchievements clears the remote unlocked set for a linked game.
func (c *Client) DeleteAchievements(ctx context.Context, remoteID string) error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	path := "/profile/games/achievements/" + url.PathEscape(remoteID)
	return c.do(ctx, "delete achievements", http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// readMessage extracts {"message": "..."} or falls back to the raw body.
func readMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(data))
}
