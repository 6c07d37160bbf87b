package domain

// IncidentType categorizes what a report is about.
type IncidentType string

// Incident types.
const (
	IncidentTypeInfrastructure IncidentType = "infrastructure"
	IncidentTypeCleaning       IncidentType = "cleaning"
	IncidentTypeSecurity       IncidentType = "security"
	IncidentTypeTechnology     IncidentType = "technology"
	IncidentTypeOther          IncidentType = "other"
)

// IncidentStatus represents the current lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusPending    IncidentStatus = "pending"
	IncidentStatusInProgress IncidentStatus = "in_progress"
	IncidentStatusResolved   IncidentStatus = "resolved"
)

// Urgency represents the urgency level of an incident, ordered by severity.
type Urgency string

// Urgency levels.
const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Incident represents a reported issue tracked through
// pending -> in_progress -> resolved.
//
// Timestamps are integer seconds since epoch; UpdatedAt is bumped on
// every mutation and never decreases.
type Incident struct {
	ID          string         `json:"id"`
	Type        IncidentType   `json:"type"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Urgency     Urgency        `json:"urgency"`
	Status      IncidentStatus `json:"status"`
	ReportedBy  string         `json:"reported_by"`
	AssignedTo  string         `json:"assigned_to,omitempty"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentTypeInfrastructure, IncidentTypeCleaning, IncidentTypeSecurity,
		IncidentTypeTechnology, IncidentTypeOther:
		return true
	}
	return false
}

// IsValid checks if the status is valid.
func (s IncidentStatus) IsValid() bool {
	return s == IncidentStatusPending || s == IncidentStatusInProgress || s == IncidentStatusResolved
}

// CanTransitionTo reports whether the status may move to next.
// Pending incidents may be assigned or resolved directly; resolved is terminal.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	switch s {
	case IncidentStatusPending:
		return next == IncidentStatusInProgress || next == IncidentStatusResolved
	case IncidentStatusInProgress:
		return next == IncidentStatusResolved
	}
	return false
}

// IsValid checks if the urgency level is valid.
func (u Urgency) IsValid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh || u == UrgencyCritical
}

// Rank returns the severity order of the urgency, higher is more urgent.
// Unknown values rank below low.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	}
	return 0
}
