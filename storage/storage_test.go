package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// backends returns every ContextStorage implementation under test.
func backends(t *testing.T) map[string]ContextStorage {
	t.Helper()

	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("NewSqliteInMemory: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]ContextStorage{
		"memory": NewInMemoryStorage(),
		"sqlite": sqlite,
	}
}

func TestSaveAndLoadContext(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.LoadContext(ctx, "missing")
			if err != nil {
				t.Fatalf("LoadContext: %v", err)
			}
			if got != "" {
				t.Errorf("missing session context = %q, want empty", got)
			}

			if err := store.SaveContext(ctx, "s1", "Query: cpu\nAnswer: all good"); err != nil {
				t.Fatalf("SaveContext: %v", err)
			}
			if err := store.SaveContext(ctx, "s1", "Query: cpu\nAnswer: all good\nQuery: disk\nAnswer: fine"); err != nil {
				t.Fatalf("SaveContext overwrite: %v", err)
			}

			got, err = store.LoadContext(ctx, "s1")
			if err != nil {
				t.Fatalf("LoadContext: %v", err)
			}
			if got != "Query: cpu\nAnswer: all good\nQuery: disk\nAnswer: fine" {
				t.Errorf("context = %q", got)
			}
		})
	}
}

func TestAppendAndLoadTurns(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			turns, err := store.LoadTurns(ctx, "missing")
			if err != nil {
				t.Fatalf("LoadTurns: %v", err)
			}
			if turns == nil || len(turns) != 0 {
				t.Errorf("missing session turns = %v, want empty slice", turns)
			}

			first := Turn{Query: "which pods are hot", Summary: "cart-1 is at 92%"}
			second := Turn{Query: "is it restarting", Summary: "no restarts in the last hour"}
			if err := store.AppendTurn(ctx, "s1", first); err != nil {
				t.Fatalf("AppendTurn: %v", err)
			}
			if err := store.AppendTurn(ctx, "s1", second); err != nil {
				t.Fatalf("AppendTurn: %v", err)
			}

			turns, err = store.LoadTurns(ctx, "s1")
			if err != nil {
				t.Fatalf("LoadTurns: %v", err)
			}
			if len(turns) != 2 || turns[0] != first || turns[1] != second {
				t.Errorf("turns = %v", turns)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.SaveContext(ctx, "s1", "some context"); err != nil {
				t.Fatalf("SaveContext: %v", err)
			}
			if err := store.AppendTurn(ctx, "s1", Turn{Query: "q", Summary: "a"}); err != nil {
				t.Fatalf("AppendTurn: %v", err)
			}

			if err := store.Delete(ctx, "s1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			exists, err := store.Exists(ctx, "s1")
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if exists {
				t.Error("session should not exist after delete")
			}

			turns, err := store.LoadTurns(ctx, "s1")
			if err != nil {
				t.Fatalf("LoadTurns: %v", err)
			}
			if len(turns) != 0 {
				t.Errorf("turns after delete = %v", turns)
			}
		})
	}
}

func TestListSessionsAndExists(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.SaveContext(ctx, "a", "x"); err != nil {
				t.Fatalf("SaveContext: %v", err)
			}
			if err := store.SaveContext(ctx, "b", "y"); err != nil {
				t.Fatalf("SaveContext: %v", err)
			}

			sessions, err := store.ListSessions(ctx)
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if len(sessions) != 2 {
				t.Errorf("sessions = %v", sessions)
			}

			exists, err := store.Exists(ctx, "a")
			if err != nil {
				t.Fatalf("Exists: %v", err)
			}
			if !exists {
				t.Error("session a should exist")
			}
		})
	}
}

func TestOpenSqliteCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.db")
	store, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveContext(ctx, "s1", "persisted"); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	got, err := store.LoadContext(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}
	if got != "persisted" {
		t.Errorf("context = %q", got)
	}
}
