package session

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/notebook/internal/notebook"
)

const (
	sessionKeyPrefix = "notebook:session:"
	defaultTTL       = 30 * time.Minute
)

// Session is the notebook UI state of one editor: which steps are open but
// still empty. Stored in Valkey keyed by notebook:session:{session_id}.
type Session struct {
	ID         string             `json:"id"`
	QuestionID *uuid.UUID         `json:"question_id,omitempty"`
	OpenSteps  notebook.OpenSteps `json:"open_steps"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Manager loads and saves sessions.
type Manager struct {
	client valkey.Client
	ttl    time.Duration
}

// NewManager creates a session manager. A zero ttl uses 30 minutes.
func NewManager(client valkey.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{client: client, ttl: ttl}
}

// Load retrieves a session. Missing or unreadable sessions start fresh.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	key := sessionKeyPrefix + sessionID
	resp := m.client.Do(ctx, m.client.B().Get().Key(key).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return newSession(sessionID), nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return newSession(sessionID), nil
	}
	if s.OpenSteps == nil {
		s.OpenSteps = notebook.OpenSteps{}
	}
	return &s, nil
}

// Save persists a session and refreshes its TTL.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKeyPrefix + s.ID
	resp := m.client.Do(ctx, m.client.B().Set().Key(key).Value(string(data)).Ex(m.ttl).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Delete drops a session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	resp := m.client.Do(ctx, m.client.B().Del().Key(sessionKeyPrefix+sessionID).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		OpenSteps: notebook.OpenSteps{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Open marks a step open.
func (s *Session) Open(stepID string) {
	if s.OpenSteps == nil {
		s.OpenSteps = notebook.OpenSteps{}
	}
	s.OpenSteps[stepID] = true
}

// Close forgets an open step.
func (s *Session) Close(stepID string) {
	delete(s.OpenSteps, stepID)
}

// Prune drops open steps that are now populated. Once a step has clauses it
// is active and no longer needs to be held open.
func (s *Session) Prune(steps notebook.Steps) {
	for _, st := range steps {
		if st.Active {
			delete(s.OpenSteps, st.ID)
		}
	}
}

// Snapshot returns a copy of the open steps for a derivation.
func (s *Session) Snapshot() notebook.OpenSteps {
	out := make(notebook.OpenSteps, len(s.OpenSteps))
	maps.Copy(out, s.OpenSteps)
	return out
}

// Bind associates the session with a saved question. Switching questions
// clears the open steps.
func (s *Session) Bind(questionID uuid.UUID) {
	if s.QuestionID != nil && *s.QuestionID == questionID {
		return
	}
	s.QuestionID = &questionID
	s.OpenSteps = notebook.OpenSteps{}
}
