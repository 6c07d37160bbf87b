package domain

// ChatMessage is one message in an incident's chat transcript.
// Messages are ordered by timestamp ascending and never deleted.
type ChatMessage struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	Sender     string `json:"sender"`
	Body       string `json:"body"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}
