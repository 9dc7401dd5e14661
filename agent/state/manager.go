package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// Manager owns all conversation state, keyed by session id. Turns for the
// same session are serialized on a per-session lock; distinct sessions share
// nothing mutable beyond the arena map itself.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	now func() time.Time
}

type sessionEntry struct {
	mu    sync.Mutex
	state *ConversationState
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

// Merge runs the interpreter against the session's prior request and the new
// raw text, committing the merged request only if interpretation succeeds.
// An aborted or failed interpret leaves the session untouched.
func (m *Manager) Merge(
	ctx context.Context,
	sessionID string,
	rawText string,
	interp contractx.Interpreter,
) (contractx.ProcurementRequest, error) {
	if strings.TrimSpace(sessionID) == "" {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	if interp == nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: interpreter is nil", contractx.ErrSessionState)
	}

	entry := m.entryFor(sessionID)
	if entry == nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: missing session %s after creation", contractx.ErrSessionState, sessionID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	st := entry.state
	if st == nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: nil state for session %s", contractx.ErrSessionState, sessionID)
	}

	merged, err := interp.Interpret(ctx, st.PriorRequest(), rawText)
	if err != nil {
		return contractx.ProcurementRequest{}, err
	}
	if err := ctx.Err(); err != nil {
		// Turn was cancelled; do not apply a partial merge.
		return contractx.ProcurementRequest{}, err
	}

	st.Commit(rawText, merged, m.now())
	log.Debug().
		Str("session_id", sessionID).
		Int("items", len(merged.Items)).
		Int("turns", len(st.Turns)).
		Msg("session merge committed")

	return merged.Clone(), nil
}

// Snapshot returns a copy of the session's current request and whether the
// session exists.
func (m *Manager) Snapshot(sessionID string) (contractx.ProcurementRequest, bool) {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok || entry == nil {
		return contractx.ProcurementRequest{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.state == nil {
		return contractx.ProcurementRequest{}, false
	}
	return entry.state.Current.Clone(), true
}

// Drop forgets a session entirely.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

func (m *Manager) entryFor(sessionID string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{state: NewConversationState(sessionID, m.now())}
		m.sessions[sessionID] = entry
	}
	return entry
}
