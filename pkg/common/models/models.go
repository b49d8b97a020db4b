package models

import "time"

// Event bus envelope shared by all services.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // candidate_registered, match_created, match_status_changed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Registration intake
type RegisterRequest struct {
	PersonID   string            `json:"person_id"`
	Gender     string            `json:"gender"`      // man, woman
	Slot       string            `json:"slot"`        // RFC 3339, one of the catalogued slots
	PartyStyle string            `json:"party_style"` // casual, serious, ...
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type RegisterResponse struct {
	CandidateID string    `json:"candidate_id"`
	Slot        time.Time `json:"slot"`
	State       string    `json:"state"`
	Timestamp   time.Time `json:"timestamp"`
}

// Matching API
type AttemptMatchRequest struct {
	Slot string `json:"slot"`
}

type AttemptMatchResponse struct {
	Outcome string     `json:"outcome"` // matched, no_match
	Match   *MatchView `json:"match,omitempty"`
}

type MatchView struct {
	MatchID    string    `json:"match_id"`
	Slot       time.Time `json:"slot"`
	PartyStyle string    `json:"party_style"`
	Men        []string  `json:"men"`
	Women      []string  `json:"women"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UpdateMatchStatusRequest struct {
	Status string `json:"status"` // confirmed, cancelled
}

type CandidateView struct {
	CandidateID string    `json:"candidate_id"`
	PersonID    string    `json:"person_id"`
	Gender      string    `json:"gender"`
	Slot        time.Time `json:"slot"`
	PartyStyle  string    `json:"party_style"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}
