package app

import (
	"log/slog"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// logNotifier surfaces controller notifications to the log. A UI embedding
// the controller would replace this with toasts.
type logNotifier struct {
	logger *slog.Logger
}

func newLogNotifier(logger *slog.Logger) *logNotifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) IncidentUpdated(inc domain.Incident) {
	n.logger.Info("incident updated",
		"incident_id", inc.ID,
		"status", inc.Status,
		"assigned_to", inc.AssignedTo,
	)
}

func (n *logNotifier) IncidentCreated(incidentID string) {
	n.logger.Info("new incident reported", "incident_id", incidentID)
}

func (n *logNotifier) ConnectionChanged(connected bool) {
	if connected {
		n.logger.Info("realtime connection established")
	} else {
		n.logger.Warn("realtime connection lost")
	}
}
