// Package storage provides session persistence for conversational context.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes

package storage

import "context"

// Turn is one completed exchange: the user's query and the run summary
// it produced. Aborted runs never become turns.
type Turn struct {
	Query   string
	Summary string
}

// ContextStorage persists the conversational context of chat sessions.
// The context is the accumulated summary text carried across turns;
// plans and traces are per-run scratch and are never stored.
type ContextStorage interface {
	// SaveContext stores the accumulated context text for a session.
	SaveContext(ctx context.Context, sessionID string, contextText string) error

	// LoadContext returns the accumulated context for a session.
	// Returns "" (not an error) if the session doesn't exist.
	LoadContext(ctx context.Context, sessionID string) (string, error)

	// AppendTurn records one completed exchange for a session.
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error

	// LoadTurns returns all recorded turns for a session in order.
	// Returns empty slice (not nil) if the session doesn't exist.
	LoadTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// Delete removes a session and everything recorded under it.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
