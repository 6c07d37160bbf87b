package syncer

import "github.com/alerta-utec/campuswatch/internal/domain"

// ScopePolicy decides which incidents a viewer reconciles and sees in the
// read model. Events for incidents outside the scope are dropped without
// error.
type ScopePolicy func(domain.Incident) bool

// ScopeAll accepts every incident. Supervisor and worker dashboards use
// this.
func ScopeAll() ScopePolicy {
	return func(domain.Incident) bool { return true }
}

// ScopeOwnedBy accepts only incidents reported by the given identity.
// Student dashboards use this.
func ScopeOwnedBy(email string) ScopePolicy {
	return func(inc domain.Incident) bool { return inc.ReportedBy == email }
}
