package domain

// EventKind represents the type of a realtime event.
type EventKind string

// Event kinds.
const (
	EventKindIncidentUpdated EventKind = "incident_updated"
	EventKindIncidentCreated EventKind = "incident_created"
)

// RealtimeEvent is an asynchronous notification of incident change.
// Events are transient, not guaranteed ordered, and the payload is not
// guaranteed complete.
type RealtimeEvent struct {
	Kind       EventKind     `json:"kind"`
	IncidentID string        `json:"incident_id"`
	Payload    EventPayload  `json:"payload"`
	Timestamp  int64         `json:"timestamp"`
}

// EventPayload carries the partial incident fields of a realtime event.
// Nil fields were not mentioned by the event and must be preserved from
// the stored incident during a merge.
type EventPayload struct {
	Status     *IncidentStatus `json:"status,omitempty"`
	AssignedTo *string         `json:"assigned_to,omitempty"`
	UpdatedAt  *int64          `json:"updated_at,omitempty"`
}

// IsValid checks if the event kind is valid.
func (k EventKind) IsValid() bool {
	return k == EventKindIncidentUpdated || k == EventKindIncidentCreated
}

// EffectiveUpdatedAt returns the timestamp that orders this event against
// stored state: the payload's updated_at when present, otherwise the
// event's own timestamp.
func (e RealtimeEvent) EffectiveUpdatedAt() int64 {
	if e.Payload.UpdatedAt != nil {
		return *e.Payload.UpdatedAt
	}
	return e.Timestamp
}
