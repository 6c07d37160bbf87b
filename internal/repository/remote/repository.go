// Package remote implements the incident repository against the backend
// HTTP API. Requests carry the session's bearer token and are throttled
// client-side so a busy dashboard cannot hammer the API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/repository"
	"golang.org/x/time/rate"
)

// Config contains remote repository configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second; Burst allows short spikes.
	RateLimit float64
	Burst     int
}

// DefaultConfig returns conservative client defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   10 * time.Second,
		RateLimit: 10,
		Burst:     20,
	}
}

// Repository implements repository.Repository over HTTP.
type Repository struct {
	cfg     Config
	client  *http.Client
	session repository.Session
	limiter *rate.Limiter
}

// New creates a remote repository.
func New(cfg Config, session repository.Session) *Repository {
	return &Repository{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		session: session,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}
}

// List implements repository.Repository.
func (r *Repository) List(ctx context.Context, filters repository.Filters) ([]domain.Incident, error) {
	q := url.Values{}
	if filters.Status != nil {
		q.Set("status", string(*filters.Status))
	}
	if filters.Type != nil {
		q.Set("type", string(*filters.Type))
	}
	if filters.Urgency != nil {
		q.Set("urgency", string(*filters.Urgency))
	}

	path := "/incidents"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out []domain.Incident
	if err := r.call(ctx, "list", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create implements repository.Repository.
func (r *Repository) Create(ctx context.Context, input repository.CreateIncidentInput) (domain.Incident, error) {
	if err := repository.ValidateCreateInput(input); err != nil {
		return domain.Incident{}, err
	}

	var out domain.Incident
	if err := r.call(ctx, "create", http.MethodPost, "/incidents", input, &out); err != nil {
		return domain.Incident{}, err
	}
	return out, nil
}

// Assign implements repository.Repository.
func (r *Repository) Assign(ctx context.Context, id string) (domain.Incident, error) {
	var out domain.Incident
	path := fmt.Sprintf("/incidents/%s/assign", url.PathEscape(id))
	if err := r.call(ctx, "assign", http.MethodPatch, path, nil, &out); err != nil {
		return domain.Incident{}, err
	}
	return out, nil
}

// Resolve implements repository.Repository.
func (r *Repository) Resolve(ctx context.Context, id string) (domain.Incident, error) {
	var out domain.Incident
	path := fmt.Sprintf("/incidents/%s/resolve", url.PathEscape(id))
	if err := r.call(ctx, "resolve", http.MethodPatch, path, nil, &out); err != nil {
		return domain.Incident{}, err
	}
	return out, nil
}

// FetchHistory implements repository.Repository.
func (r *Repository) FetchHistory(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	path := fmt.Sprintf("/incidents/%s/history", url.PathEscape(id))
	if err := r.call(ctx, "history", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment implements repository.Repository.
func (r *Repository) AddComment(ctx context.Context, id, text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty comment", repository.ErrInvalid)
	}
	path := fmt.Sprintf("/incidents/%s/comments", url.PathEscape(id))
	return r.call(ctx, "comment", http.MethodPost, path, map[string]string{"text": text}, nil)
}

// ListMessages implements repository.Repository.
func (r *Repository) ListMessages(ctx context.Context, id string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	path := fmt.Sprintf("/incidents/%s/messages", url.PathEscape(id))
	if err := r.call(ctx, "messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage implements repository.Repository.
func (r *Repository) SendMessage(ctx context.Context, id, body string) (domain.ChatMessage, error) {
	if body == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: empty message", repository.ErrInvalid)
	}

	var out domain.ChatMessage
	path := fmt.Sprintf("/incidents/%s/messages", url.PathEscape(id))
	if err := r.call(ctx, "send_message", http.MethodPost, path, map[string]string{"body": body}, &out); err != nil {
		return domain.ChatMessage{}, err
	}
	return out, nil
}

// call performs one API request and decodes the response into out (when
// out is non-nil).
func (r *Repository) call(ctx context.Context, op, method, path string, body, out any) error {
	token := r.session.Token()
	if token == "" {
		return repository.ErrUnauthenticated
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		recordRequest(op, "error", time.Since(start))
		return fmt.Errorf("%w: %s", repository.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	recordRequest(op, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return repository.ErrUnauthenticated
	case code == http.StatusNotFound:
		return repository.ErrNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return repository.ErrInvalid
	case code >= 500:
		return fmt.Errorf("%w: status %d", repository.ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
