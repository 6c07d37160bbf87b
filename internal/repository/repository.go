// Package repository abstracts where incidents come from: a remote backend
// or an in-process simulated store with artificial latency.
package repository

import (
	"context"
	"fmt"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Session exposes the identity used to authenticate and attribute
// operations. Implemented by auth.Session.
type Session interface {
	Token() string
	CurrentUser() (domain.User, bool)
}

// Repository defines the incident operations a backend must provide.
type Repository interface {
	List(ctx context.Context, filters Filters) ([]domain.Incident, error)
	Create(ctx context.Context, input CreateIncidentInput) (domain.Incident, error)
	Assign(ctx context.Context, id string) (domain.Incident, error)
	Resolve(ctx context.Context, id string) (domain.Incident, error)
	FetchHistory(ctx context.Context, id string) ([]domain.HistoryEntry, error)
	AddComment(ctx context.Context, id, text string) error

	ListMessages(ctx context.Context, id string) ([]domain.ChatMessage, error)
	SendMessage(ctx context.Context, id, body string) (domain.ChatMessage, error)
}

// Filters holds filter options for listing incidents.
// Unset fields apply no constraint; set fields are exact-match AND-combined.
type Filters struct {
	Status  *domain.IncidentStatus
	Type    *domain.IncidentType
	Urgency *domain.Urgency
}

// Matches reports whether the incident satisfies every set filter.
func (f Filters) Matches(inc domain.Incident) bool {
	if f.Status != nil && inc.Status != *f.Status {
		return false
	}
	if f.Type != nil && inc.Type != *f.Type {
		return false
	}
	if f.Urgency != nil && inc.Urgency != *f.Urgency {
		return false
	}
	return true
}

// CreateIncidentInput holds data for creating an incident report.
type CreateIncidentInput struct {
	Type        domain.IncidentType `json:"type" validate:"required,oneof=infrastructure cleaning security technology other"`
	Location    string              `json:"location" validate:"required"`
	Description string              `json:"description" validate:"required"`
	Urgency     domain.Urgency      `json:"urgency" validate:"required,oneof=low medium high critical"`
}

var validate = validator.New()

// ValidateCreateInput checks the input and wraps violations in ErrInvalid.
func ValidateCreateInput(input CreateIncidentInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return nil
}
