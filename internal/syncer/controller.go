// Package syncer reconciles optimistic local writes and asynchronous
// realtime events into the one shared incident store, and exposes the
// consistent read model the presentation layer renders.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/realtime"
	"github.com/alerta-utec/campuswatch/internal/repository"
	"github.com/alerta-utec/campuswatch/internal/store"
)

// Notifier receives user-facing notifications from the controller.
// All methods are optional surface for the UI (toasts, banners).
type Notifier interface {
	IncidentUpdated(inc domain.Incident)
	IncidentCreated(incidentID string)
	ConnectionChanged(connected bool)
}

// Controller is the single point where local mutation and remote events
// merge into one view of truth.
type Controller struct {
	store    *store.Store
	repo     repository.Repository
	channel  realtime.Channel
	scope    ScopePolicy
	notifier Notifier
	logger   *slog.Logger

	// applyMu serializes event merges and action write-backs so a merge's
	// read-check-write is atomic with respect to optimistic writes.
	applyMu sync.Mutex

	mu           sync.Mutex
	ctx          context.Context
	subscribed   bool
	lastSubjects []string
	detailID     string
	detailFn     func(domain.Incident)
	unsubEvent   func()
	unsubConn    func()
}

// New creates a controller. The scope policy decides which incidents this
// viewer reconciles; events outside it are dropped silently.
func New(st *store.Store, repo repository.Repository, ch realtime.Channel, scope ScopePolicy, logger *slog.Logger) *Controller {
	if scope == nil {
		scope = ScopeAll()
	}
	return &Controller{
		store:   st,
		repo:    repo,
		channel: ch,
		scope:   scope,
		logger:  logger,
	}
}

// SetNotifier installs the UI notification sink. Must be called before
// Start.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// Start loads the initial incident list, subscribes to the channel, and
// connects it scoped to the viewer's incident ids.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	incidents, err := c.repo.List(ctx, repository.Filters{})
	if err != nil {
		return fmt.Errorf("initial incident list: %w", err)
	}
	for _, inc := range incidents {
		c.store.Upsert(inc)
	}

	c.mu.Lock()
	c.unsubEvent = c.channel.OnEvent(c.handleEvent)
	c.unsubConn = c.channel.OnConnectionChange(c.handleConnectionChange)
	c.mu.Unlock()

	c.resubscribe()
	return nil
}

// Stop unsubscribes and disconnects the channel. Safe to call multiple
// times.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.unsubEvent != nil {
		c.unsubEvent()
		c.unsubEvent = nil
	}
	if c.unsubConn != nil {
		c.unsubConn()
		c.unsubConn = nil
	}
	c.subscribed = false
	c.mu.Unlock()

	c.channel.Disconnect()
}

// View returns the scoped incident list, newest first. The slice is a
// snapshot; mutating it does not affect the store.
func (c *Controller) View() []domain.Incident {
	incidents := c.store.List(c.scope)
	sort.Slice(incidents, func(i, j int) bool {
		if incidents[i].CreatedAt != incidents[j].CreatedAt {
			return incidents[i].CreatedAt > incidents[j].CreatedAt
		}
		return incidents[i].ID > incidents[j].ID
	})
	return incidents
}

// Create reports a new incident. The result is written through to the
// shared store immediately and the channel subscription follows the new
// id set.
func (c *Controller) Create(ctx context.Context, input repository.CreateIncidentInput) (domain.Incident, error) {
	inc, err := c.repo.Create(ctx, input)
	if err != nil {
		return domain.Incident{}, err
	}

	c.applyMu.Lock()
	c.store.Upsert(inc)
	c.applyMu.Unlock()

	c.resubscribe()
	return inc, nil
}

// Assign moves the incident to in_progress, assigned to the current actor.
func (c *Controller) Assign(ctx context.Context, id string) (domain.Incident, error) {
	return c.mutate(ctx, id, c.repo.Assign)
}

// Resolve marks the incident resolved.
func (c *Controller) Resolve(ctx context.Context, id string) (domain.Incident, error) {
	return c.mutate(ctx, id, c.repo.Resolve)
}

func (c *Controller) mutate(ctx context.Context, id string, op func(context.Context, string) (domain.Incident, error)) (domain.Incident, error) {
	inc, err := op(ctx, id)
	if err != nil {
		return domain.Incident{}, err
	}

	c.applyMu.Lock()
	c.store.Upsert(inc)
	c.applyMu.Unlock()

	c.refreshDetail(inc)
	return inc, nil
}

// Comment appends a COMMENT entry to the incident's audit trail.
func (c *Controller) Comment(ctx context.Context, id, text string) error {
	return c.repo.AddComment(ctx, id, text)
}

// History returns the incident's audit trail.
func (c *Controller) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	return c.repo.FetchHistory(ctx, id)
}

// Messages returns the incident's chat transcript.
func (c *Controller) Messages(ctx context.Context, id string) ([]domain.ChatMessage, error) {
	return c.repo.ListMessages(ctx, id)
}

// SendMessage posts a chat message on the incident.
func (c *Controller) SendMessage(ctx context.Context, id, body string) (domain.ChatMessage, error) {
	return c.repo.SendMessage(ctx, id, body)
}

// BindDetail registers the open detail view for an incident. While bound,
// every merge affecting that incident invokes fn synchronously with the
// store update, so the panel never shows a snapshot staler than the list.
// The returned unbind function is idempotent.
func (c *Controller) BindDetail(id string, fn func(domain.Incident)) func() {
	c.mu.Lock()
	c.detailID = id
	c.detailFn = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.detailID == id {
			c.detailID = ""
			c.detailFn = nil
		}
	}
}

// handleEvent processes one inbound realtime event. Failures are logged
// and contained; delivery of subsequent events is unaffected.
func (c *Controller) handleEvent(ev domain.RealtimeEvent) {
	switch ev.Kind {
	case domain.EventKindIncidentUpdated:
		c.applyUpdate(ev)
	case domain.EventKindIncidentCreated:
		c.handleCreated(ev)
	default:
		c.logger.Warn("dropping event of unknown kind", "kind", ev.Kind)
		recordEventDropped(dropReasonMalformed)
	}
}

// applyUpdate implements the field-level merge with the updatedAt
// tie-break: only the payload's fields override the stored incident, and a
// strictly older event is ignored to protect against out-of-order
// delivery.
func (c *Controller) applyUpdate(ev domain.RealtimeEvent) {
	if ev.Payload.Status != nil && !ev.Payload.Status.IsValid() {
		c.logger.Warn("dropping update with invalid status", "incident_id", ev.IncidentID, "status", *ev.Payload.Status)
		recordEventDropped(dropReasonMalformed)
		return
	}

	c.applyMu.Lock()

	inc, err := c.store.Get(ev.IncidentID)
	if err != nil || !c.scope(inc) {
		// Out of scope for this viewer: expected on a broadcast channel,
		// not an error.
		c.applyMu.Unlock()
		recordEventDropped(dropReasonOutOfScope)
		return
	}

	eventUpdatedAt := ev.EffectiveUpdatedAt()
	if eventUpdatedAt < inc.UpdatedAt {
		c.applyMu.Unlock()
		c.logger.Debug("ignoring stale event",
			"incident_id", ev.IncidentID,
			"event_updated_at", eventUpdatedAt,
			"stored_updated_at", inc.UpdatedAt,
		)
		recordEventDropped(dropReasonStale)
		return
	}

	merged := inc
	if ev.Payload.Status != nil {
		merged.Status = *ev.Payload.Status
	}
	if ev.Payload.AssignedTo != nil {
		merged.AssignedTo = *ev.Payload.AssignedTo
	}
	merged.UpdatedAt = eventUpdatedAt

	c.store.Replace(merged)
	c.applyMu.Unlock()

	recordEventApplied()
	c.refreshDetail(merged)

	if c.notifier != nil {
		c.notifier.IncidentUpdated(merged)
	}
}

// handleCreated surfaces the notification and re-lists from the
// repository: the event payload is not guaranteed complete, so the
// authoritative record must come from the backend.
func (c *Controller) handleCreated(ev domain.RealtimeEvent) {
	if c.notifier != nil {
		c.notifier.IncidentCreated(ev.IncidentID)
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	incidents, err := c.repo.List(ctx, repository.Filters{})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("failed to refresh after incident_created", "error", err)
		}
		return
	}

	c.applyMu.Lock()
	for _, inc := range incidents {
		c.store.Upsert(inc)
	}
	c.applyMu.Unlock()

	c.resubscribe()
}

func (c *Controller) handleConnectionChange(connected bool) {
	if connected {
		c.logger.Info("realtime channel connected")
	} else {
		c.logger.Warn("realtime channel disconnected, operating in degraded mode")
	}
	if c.notifier != nil {
		c.notifier.ConnectionChanged(connected)
	}
}

// refreshDetail pushes the updated incident into the bound detail view,
// if one is open for it.
func (c *Controller) refreshDetail(inc domain.Incident) {
	c.mu.Lock()
	fn := c.detailFn
	bound := c.detailID == inc.ID && fn != nil
	c.mu.Unlock()

	if bound {
		fn(inc)
	}
}

// resubscribe reconnects the channel whenever the scoped id set changed.
// The channel abstraction has no subscription-update primitive, so the
// only way to change scope is a full disconnect/connect cycle.
func (c *Controller) resubscribe() {
	ids := make([]string, 0)
	for _, inc := range c.store.List(c.scope) {
		ids = append(ids, inc.ID)
	}
	sort.Strings(ids)

	c.mu.Lock()
	if c.subscribed && equalIDs(c.lastSubjects, ids) {
		c.mu.Unlock()
		return
	}
	wasSubscribed := c.subscribed
	c.subscribed = true
	c.lastSubjects = ids
	c.mu.Unlock()

	if wasSubscribed {
		c.channel.Disconnect()
	}
	c.channel.Connect(ids)
	recordResubscribe()
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
