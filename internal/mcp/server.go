package mcp

import (
	"context"
	"log/slog"

	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/internal/question"
)

// SessionStore is satisfied by *session.Manager.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

// ServerDeps holds the shared infrastructure for MCP tool handlers.
type ServerDeps struct {
	Questions *question.Service
	// Sessions is optional. Without it open steps only come from tool params.
	Sessions SessionStore
	Logger   *slog.Logger
}

// Server carries what the tool handlers share. Tools are registered on the
// SDK server in cmd/mcp.
type Server struct {
	Questions *question.Service
	Sessions  SessionStore
	Navigator *Navigator
	logger    *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		Questions: deps.Questions,
		Sessions:  deps.Sessions,
		Navigator: NewNavigator(),
		logger:    deps.Logger,
	}
}

// LoadSession returns the session for id, or nil when sessions are disabled
// or no id was given. Load failures are logged and treated as no session.
func (s *Server) LoadSession(ctx context.Context, id string) *session.Session {
	if s.Sessions == nil || id == "" {
		return nil
	}
	sess, err := s.Sessions.Load(ctx, id)
	if err != nil {
		s.logger.Warn("load notebook session", slog.String("session_id", id), slog.String("error", err.Error()))
		return nil
	}
	return sess
}

// SaveSession persists sess. A nil session is a no-op.
func (s *Server) SaveSession(ctx context.Context, sess *session.Session) {
	if s.Sessions == nil || sess == nil {
		return
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.logger.Warn("save notebook session", slog.String("session_id", sess.ID), slog.String("error", err.Error()))
	}
}
