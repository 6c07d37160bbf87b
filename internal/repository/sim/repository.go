// Package sim provides an in-process incident repository with artificial
// latency, standing in for the backend during local development and tests.
// It writes through the same shared store the sync controller reads, so a
// later confirmation of an optimistic write is a no-op merge.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/repository"
	"github.com/alerta-utec/campuswatch/internal/store"
	"github.com/google/uuid"
)

// Config controls the simulated latency and chat auto-reply behavior.
type Config struct {
	MinLatency    time.Duration
	MaxLatency    time.Duration
	AutoReply     bool
	ReplyMinDelay time.Duration
	ReplyMaxDelay time.Duration
}

// DefaultConfig returns the latency window the UI was tuned against.
func DefaultConfig() Config {
	return Config{
		MinLatency:    200 * time.Millisecond,
		MaxLatency:    400 * time.Millisecond,
		AutoReply:     true,
		ReplyMinDelay: 2 * time.Second,
		ReplyMaxDelay: 4 * time.Second,
	}
}

// Repository implements repository.Repository against the shared in-memory
// store.
type Repository struct {
	cfg     Config
	store   *store.Store
	session repository.Session
	logger  *slog.Logger
	now     func() int64

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

// New creates a simulated repository backed by the given store and session.
func New(cfg Config, st *store.Store, session repository.Session, logger *slog.Logger) *Repository {
	return &Repository{
		cfg:     cfg,
		store:   st,
		session: session,
		logger:  logger,
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Close cancels any pending auto-replies. Safe to call multiple times.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
}

// List implements repository.Repository.
func (r *Repository) List(ctx context.Context, filters repository.Filters) ([]domain.Incident, error) {
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	return r.store.List(filters.Matches), nil
}

// Create implements repository.Repository.
func (r *Repository) Create(ctx context.Context, input repository.CreateIncidentInput) (domain.Incident, error) {
	if err := r.begin(ctx); err != nil {
		return domain.Incident{}, err
	}
	if err := repository.ValidateCreateInput(input); err != nil {
		return domain.Incident{}, err
	}

	actor, err := r.actor()
	if err != nil {
		return domain.Incident{}, err
	}

	now := r.now()
	inc := domain.Incident{
		ID:          "inc_" + uuid.NewString(),
		Type:        input.Type,
		Location:    input.Location,
		Description: input.Description,
		Urgency:     input.Urgency,
		Status:      domain.IncidentStatusPending,
		ReportedBy:  actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.store.Upsert(inc)
	r.store.AppendHistory(inc.ID, domain.HistoryEntry{
		Timestamp: now,
		Action:    domain.HistoryActionCreated,
		Actor:     actor,
		Details:   "Incident created with status pending",
	})

	return inc, nil
}

// Assign implements repository.Repository.
func (r *Repository) Assign(ctx context.Context, id string) (domain.Incident, error) {
	if err := r.begin(ctx); err != nil {
		return domain.Incident{}, err
	}
	actor, err := r.actor()
	if err != nil {
		return domain.Incident{}, err
	}

	inc, err := r.get(id)
	if err != nil {
		return domain.Incident{}, err
	}
	if !inc.Status.CanTransitionTo(domain.IncidentStatusInProgress) {
		return domain.Incident{}, fmt.Errorf("%w: cannot assign incident in status %s", repository.ErrInvalid, inc.Status)
	}

	inc.Status = domain.IncidentStatusInProgress
	inc.AssignedTo = actor
	inc.UpdatedAt = bump(inc.UpdatedAt, r.now())
	r.store.Upsert(inc)

	r.store.AppendHistory(id, domain.HistoryEntry{
		Timestamp: inc.UpdatedAt,
		Action:    domain.HistoryActionAssigned,
		Actor:     actor,
		Details:   fmt.Sprintf("Incident assigned to %s", actor),
	})

	return inc, nil
}

// Resolve implements repository.Repository.
func (r *Repository) Resolve(ctx context.Context, id string) (domain.Incident, error) {
	if err := r.begin(ctx); err != nil {
		return domain.Incident{}, err
	}
	actor, err := r.actor()
	if err != nil {
		return domain.Incident{}, err
	}

	inc, err := r.get(id)
	if err != nil {
		return domain.Incident{}, err
	}
	if !inc.Status.CanTransitionTo(domain.IncidentStatusResolved) {
		return domain.Incident{}, fmt.Errorf("%w: cannot resolve incident in status %s", repository.ErrInvalid, inc.Status)
	}

	inc.Status = domain.IncidentStatusResolved
	inc.UpdatedAt = bump(inc.UpdatedAt, r.now())
	r.store.Upsert(inc)

	r.store.AppendHistory(id, domain.HistoryEntry{
		Timestamp: inc.UpdatedAt,
		Action:    domain.HistoryActionResolved,
		Actor:     actor,
		Details:   "Incident resolved",
	})

	return inc, nil
}

// FetchHistory implements repository.Repository.
func (r *Repository) FetchHistory(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	if err := r.begin(ctx); err != nil {
		return nil, err
	}

	entries, err := r.store.History(id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return entries, nil
}

// AddComment implements repository.Repository.
func (r *Repository) AddComment(ctx context.Context, id, text string) error {
	if err := r.begin(ctx); err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: empty comment", repository.ErrInvalid)
	}
	actor, err := r.actor()
	if err != nil {
		return err
	}

	inc, err := r.get(id)
	if err != nil {
		return err
	}

	inc.UpdatedAt = bump(inc.UpdatedAt, r.now())
	r.store.Upsert(inc)
	r.store.AppendHistory(id, domain.HistoryEntry{
		Timestamp: inc.UpdatedAt,
		Action:    domain.HistoryActionComment,
		Actor:     actor,
		Details:   text,
	})

	return nil
}

// ListMessages implements repository.Repository.
func (r *Repository) ListMessages(ctx context.Context, id string) ([]domain.ChatMessage, error) {
	if err := r.begin(ctx); err != nil {
		return nil, err
	}

	msgs, err := r.store.Messages(id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return msgs, nil
}

// SendMessage implements repository.Repository.
func (r *Repository) SendMessage(ctx context.Context, id, body string) (domain.ChatMessage, error) {
	if err := r.begin(ctx); err != nil {
		return domain.ChatMessage{}, err
	}
	if body == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: empty message", repository.ErrInvalid)
	}
	actor, err := r.actor()
	if err != nil {
		return domain.ChatMessage{}, err
	}

	inc, err := r.get(id)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	msg := domain.ChatMessage{
		ID:         "msg_" + uuid.NewString(),
		IncidentID: id,
		Sender:     actor,
		Body:       body,
		Timestamp:  r.now(),
	}
	r.store.AppendMessage(id, msg)

	if r.cfg.AutoReply && inc.AssignedTo != "" && inc.AssignedTo != actor {
		r.scheduleReply(id)
	}

	return msg, nil
}

var cannedReplies = []string{
	"Entendido, voy a revisar el incidente.",
	"Gracias por la información, lo estoy atendiendo.",
	"Perfecto, ya estoy trabajando en ello.",
	"Recibido, te mantendré informado del progreso.",
}

// scheduleReply posts a canned handler response after a short delay,
// simulating the assigned worker answering in the chat.
func (r *Repository) scheduleReply(incidentID string) {
	delay := r.cfg.ReplyMinDelay + randSpan(r.cfg.ReplyMaxDelay-r.cfg.ReplyMinDelay)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}

		inc, err := r.store.Get(incidentID)
		if err != nil || inc.AssignedTo == "" {
			return
		}

		r.store.AppendMessage(incidentID, domain.ChatMessage{
			ID:         "msg_" + uuid.NewString(),
			IncidentID: incidentID,
			Sender:     inc.AssignedTo,
			Body:       cannedReplies[rand.IntN(len(cannedReplies))],
			Timestamp:  r.now(),
		})
		r.logger.Debug("posted simulated reply", "incident_id", incidentID, "sender", inc.AssignedTo)

		r.mu.Lock()
		for i, t := range r.timers {
			if t == timer {
				r.timers = append(r.timers[:i], r.timers[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
	})
	r.timers = append(r.timers, timer)
}

// begin applies the simulated network latency and checks authentication.
func (r *Repository) begin(ctx context.Context) error {
	if r.session.Token() == "" {
		return repository.ErrUnauthenticated
	}

	delay := r.cfg.MinLatency + randSpan(r.cfg.MaxLatency-r.cfg.MinLatency)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Repository) actor() (string, error) {
	user, ok := r.session.CurrentUser()
	if !ok {
		return "", repository.ErrUnauthenticated
	}
	return user.Email, nil
}

func (r *Repository) get(id string) (domain.Incident, error) {
	inc, err := r.store.Get(id)
	if err != nil {
		return domain.Incident{}, mapStoreErr(err)
	}
	return inc, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// bump advances an incident's UpdatedAt so each mutation is observably
// newer even within the same second.
func bump(prev, now int64) int64 {
	if now > prev {
		return now
	}
	return prev + 1
}

func randSpan(span time.Duration) time.Duration {
	if span <= 0 {
		return 0
	}
	return rand.N(span)
}
