// Package store persists chat sessions and their messages.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ngl-strategy/rim-assistant/internal/config"
	"github.com/ngl-strategy/rim-assistant/internal/model"
)

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Username string `json:"username,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for chat history.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, username string) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	ClearSession(ctx context.Context, sessionID string) error

	// Messages
	AppendMessage(ctx context.Context, sessionID string, role model.Role, content string, sources []model.Candidate) (*model.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store based on config.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = "rim-assistant.db"
		}
		return NewSQLite(path)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
