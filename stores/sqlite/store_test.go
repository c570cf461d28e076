package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"gamedex/core"
	"gamedex/stores/storetest"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "gamedex.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.CollectionStore {
		return newTestStore(t)
	})
}

func TestNewStore_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamedex.db")
	ctx := context.Background()

	first, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if err := first.Insert(ctx, storetest.NewRow("user-a", 1)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	first.Close()

	second, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore() on existing database failed: %v", err)
	}
	defer second.Close()

	rows, err := second.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("List() after reopen returned %d rows, want 1", len(rows))
	}
}

func TestGet_PreservesGameData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	row := storetest.NewRow("user-a", 42)
	if err := store.Insert(ctx, row); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := store.Get(ctx, "user-a", 42)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got.GameData) != string(row.GameData) {
		t.Errorf("game_data = %s, want %s", got.GameData, row.GameData)
	}
	if !got.CreatedAt.Equal(row.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, row.CreatedAt)
	}
}
