package domain

// HistoryAction represents the kind of audit entry recorded for an incident.
type HistoryAction string

// History actions.
const (
	HistoryActionCreated  HistoryAction = "CREATED"
	HistoryActionAssigned HistoryAction = "ASSIGNED"
	HistoryActionResolved HistoryAction = "RESOLVED"
	HistoryActionComment  HistoryAction = "COMMENT"
)

// HistoryEntry is one record in an incident's append-only audit trail.
// Entries are ordered by timestamp ascending and the first entry for any
// incident is always CREATED.
type HistoryEntry struct {
	Timestamp int64         `json:"timestamp"`
	Action    HistoryAction `json:"action"`
	Actor     string        `json:"actor"`
	Details   string        `json:"details"`
}

// IsValid checks if the history action is valid.
func (a HistoryAction) IsValid() bool {
	switch a {
	case HistoryActionCreated, HistoryActionAssigned, HistoryActionResolved, HistoryActionComment:
		return true
	}
	return false
}
