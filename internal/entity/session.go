package entity

import "time"

const (
	StateAwaitingConnection = "awaiting_connection"
	StateActive             = "active"
	StateEnding             = "ending"
	StateClosed             = "closed"
)

// Snapshot is the observable state of a live session.
type Snapshot struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	ClientPos     Position  `json:"client_pos"`
	OpponentPos   Position  `json:"opponent_pos"`
	ClientScore   int       `json:"client_score"`
	OpponentScore int       `json:"opponent_score"`
	Deadline      time.Time `json:"deadline"`
	Rows          []string  `json:"rows"`
}

func (that *Snapshot) IsActive() bool {
	return that.State == StateActive
}
