package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

func TestFilters_Matches(t *testing.T) {
	inc := domain.Incident{
		ID:      "inc_1",
		Type:    domain.IncidentTypeCleaning,
		Status:  domain.IncidentStatusInProgress,
		Urgency: domain.UrgencyHigh,
	}

	status := domain.IncidentStatusInProgress
	wrongStatus := domain.IncidentStatusResolved
	typ := domain.IncidentTypeCleaning
	urgency := domain.UrgencyHigh
	wrongUrgency := domain.UrgencyLow

	tests := []struct {
		name     string
		filters  Filters
		expected bool
	}{
		{"empty filters match", Filters{}, true},
		{"matching status", Filters{Status: &status}, true},
		{"non-matching status", Filters{Status: &wrongStatus}, false},
		{"all set and matching", Filters{Status: &status, Type: &typ, Urgency: &urgency}, true},
		{"one of several mismatches", Filters{Status: &status, Urgency: &wrongUrgency}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filters.Matches(inc))
		})
	}
}

func TestValidateCreateInput(t *testing.T) {
	valid := CreateIncidentInput{
		Type:        domain.IncidentTypeTechnology,
		Location:    "Lab 3",
		Description: "Router offline",
		Urgency:     domain.UrgencyHigh,
	}

	t.Run("valid input", func(t *testing.T) {
		assert.NoError(t, ValidateCreateInput(valid))
	})

	tests := []struct {
		name   string
		mutate func(*CreateIncidentInput)
	}{
		{"missing type", func(i *CreateIncidentInput) { i.Type = "" }},
		{"unknown type", func(i *CreateIncidentInput) { i.Type = "vandalism" }},
		{"missing location", func(i *CreateIncidentInput) { i.Location = "" }},
		{"missing description", func(i *CreateIncidentInput) { i.Description = "" }},
		{"unknown urgency", func(i *CreateIncidentInput) { i.Urgency = "asap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			assert.ErrorIs(t, ValidateCreateInput(input), ErrInvalid)
		})
	}
}
