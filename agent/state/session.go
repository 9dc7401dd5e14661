package state

import (
	"time"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// Turn records one user message and the request snapshot it produced.
type Turn struct {
	Raw     string                       `json:"raw"`
	Request contractx.ProcurementRequest `json:"request"`
	At      time.Time                    `json:"at"`
}

// ConversationState is the per-session accumulated procurement intent. It is
// owned by the Manager and lives only for the process lifetime; a turn's
// Current snapshot changes only after a full interpret step succeeds.
type ConversationState struct {
	SessionID string                       `json:"session_id"`
	Current   contractx.ProcurementRequest `json:"current_request"`
	Turns     []Turn                       `json:"turn_history"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

// Commit replaces the current request and appends the turn snapshot.
func (s *ConversationState) Commit(raw string, req contractx.ProcurementRequest, now time.Time) {
	s.Current = req
	s.Turns = append(s.Turns, Turn{
		Raw:     raw,
		Request: req.Clone(),
		At:      now.UTC(),
	})
	s.UpdatedAt = now.UTC()
}

// PriorRequest returns a copy of the current request, or nil before the first
// committed turn.
func (s *ConversationState) PriorRequest() *contractx.ProcurementRequest {
	if len(s.Turns) == 0 {
		return nil
	}
	prior := s.Current.Clone()
	return &prior
}
