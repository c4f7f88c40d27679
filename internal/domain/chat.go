package domain

import "time"

// ChatRecord is one persisted chat exchange (user message plus
// assistant response) kept as an audit trail.
type ChatRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
