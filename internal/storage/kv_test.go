package storage

import (
	"context"
	"errors"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	file, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	return map[string]Store{
		"memory":   NewMemoryStore(),
		"file":     file,
		"sqlite":   sqlite,
		"prefixed": WithPrefix(NewMemoryStore(), "user1:"),
	}
}

// TestKVContract verifies every store returns ErrNotFound for absent keys,
// reads back the last write, and treats Remove as idempotent.
func TestKVContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "workout"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(absent) error = %v, want ErrNotFound", err)
			}

			if err := store.Set(ctx, "workout", `{"id":"a"}`); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(ctx, "workout", `{"id":"b"}`); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := store.Get(ctx, "workout")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != `{"id":"b"}` {
				t.Errorf("Get = %q, want last write", got)
			}

			if err := store.Remove(ctx, "workout"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := store.Remove(ctx, "workout"); err != nil {
				t.Errorf("second Remove error = %v, want nil", err)
			}
			if _, err := store.Get(ctx, "workout"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Remove error = %v, want ErrNotFound", err)
			}
		})
	}
}

// TestSQLiteSurvivesReopen verifies values written before Close are read
// back by a fresh handle on the same directory.
func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.Set(ctx, "rest_timer", "payload"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	first.Close()

	second, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, "rest_timer")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "payload" {
		t.Errorf("Get = %q, want %q", got, "payload")
	}
}

// TestFileStoreEscapesKeys verifies keys containing path separators stay
// inside the store directory.
func TestFileStoreEscapesKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "../escape/key", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "../escape/key")
	if err != nil || got != "v" {
		t.Errorf("Get = %q, %v; want %q, nil", got, err, "v")
	}
}

// TestPrefixIsolation verifies prefixed stores sharing a backend do not see
// each other's keys.
func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	a := WithPrefix(base, "a:")
	b := WithPrefix(base, "b:")

	if err := a.Set(ctx, "workout", "from-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(ctx, "workout"); !errors.Is(err, ErrNotFound) {
		t.Errorf("b.Get error = %v, want ErrNotFound", err)
	}
	if got, _ := base.Get(ctx, "a:workout"); got != "from-a" {
		t.Errorf("base.Get(a:workout) = %q, want %q", got, "from-a")
	}
}

// TestOpenUnknownDriver verifies a typo in the driver name is reported.
func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "redis"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
