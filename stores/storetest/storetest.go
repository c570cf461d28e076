// Package storetest holds the behavioural checks every core.CollectionStore
// backend must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamedex/core"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) core.CollectionStore

// Run exercises the shared CollectionStore contract against a backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, newStore(t)) })
	t.Run("InsertDuplicate", func(t *testing.T) { testInsertDuplicate(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newStore(t)) })
	t.Run("UserIsolation", func(t *testing.T) { testUserIsolation(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("DeleteMissing", func(t *testing.T) { testDeleteMissing(t, newStore(t)) })
	t.Run("ConcurrentDuplicateInsert", func(t *testing.T) { testConcurrentDuplicateInsert(t, newStore(t)) })
}

// NewRow builds a row with a minimal CollectedGame document.
func NewRow(userID string, gameID int64) *core.CollectionRow {
	data, _ := json.Marshal(core.CollectedGame{
		Game: core.Game{
			ID:           gameID,
			Name:         fmt.Sprintf("Game %d", gameID),
			Platforms:    []core.Platform{},
			Screenshots:  []core.Image{},
			SimilarGames: []int64{},
		},
		CollectedAt: 1700000000000,
	})
	return &core.CollectionRow{UserID: userID, GameID: gameID, GameData: data}
}

func testListEmpty(t *testing.T, store core.CollectionStore) {
	rows, err := store.List(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if rows == nil {
		t.Error("List() returned nil, want empty slice")
	}
	if len(rows) != 0 {
		t.Errorf("List() returned %d rows, want 0", len(rows))
	}
}

func testInsertAndGet(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	row := NewRow("user-a", 1942)

	if err := store.Insert(ctx, row); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if row.ID == "" {
		t.Error("Insert() did not assign an ID")
	}
	if row.CreatedAt.IsZero() {
		t.Error("Insert() did not assign CreatedAt")
	}

	got, err := store.Get(ctx, "user-a", 1942)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.ID != row.ID || got.UserID != "user-a" || got.GameID != 1942 {
		t.Errorf("Get() = %+v, want row %s for game 1942", got, row.ID)
	}

	var game core.CollectedGame
	if err := json.Unmarshal(got.GameData, &game); err != nil {
		t.Fatalf("stored game_data is not valid JSON: %v", err)
	}
	if game.Name != "Game 1942" {
		t.Errorf("stored game name = %q, want %q", game.Name, "Game 1942")
	}
}

func testInsertDuplicate(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	if err := store.Insert(ctx, NewRow("user-a", 7)); err != nil {
		t.Fatalf("first Insert() failed: %v", err)
	}

	err := store.Insert(ctx, NewRow("user-a", 7))
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("second Insert() error = %v, want ErrDuplicate", err)
	}

	rows, err := store.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("List() returned %d rows after duplicate insert, want 1", len(rows))
	}
}

func testGetMissing(t *testing.T, store core.CollectionStore) {
	_, err := store.Get(context.Background(), "user-a", 404)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func testListNewestFirst(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		if err := store.Insert(ctx, NewRow("user-a", id)); err != nil {
			t.Fatalf("Insert(%d) failed: %v", id, err)
		}
		// Keep creation timestamps distinct on coarse clocks.
		time.Sleep(2 * time.Millisecond)
	}

	rows, err := store.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("List() returned %d rows, want 3", len(rows))
	}
	want := []int64{3, 2, 1}
	for i, row := range rows {
		if row.GameID != want[i] {
			t.Errorf("rows[%d].GameID = %d, want %d", i, row.GameID, want[i])
		}
	}
}

func testUserIsolation(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	if err := store.Insert(ctx, NewRow("user-a", 10)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := store.Insert(ctx, NewRow("user-b", 10)); err != nil {
		t.Fatalf("Insert() for second user failed: %v", err)
	}

	rows, err := store.List(ctx, "user-b")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != "user-b" {
		t.Errorf("List(user-b) = %+v, want exactly one user-b row", rows)
	}

	if err := store.Delete(ctx, "user-b", 10); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "user-a", 10); err != nil {
		t.Errorf("Delete() for user-b removed user-a's row: %v", err)
	}
}

func testDelete(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	if err := store.Insert(ctx, NewRow("user-a", 5)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := store.Delete(ctx, "user-a", 5); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "user-a", 5); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}

	// The game can be collected again once removed.
	if err := store.Insert(ctx, NewRow("user-a", 5)); err != nil {
		t.Errorf("re-Insert() after Delete() failed: %v", err)
	}
}

func testDeleteMissing(t *testing.T, store core.CollectionStore) {
	if err := store.Delete(context.Background(), "user-a", 999); err != nil {
		t.Errorf("Delete() of missing row error = %v, want nil", err)
	}
}

func testConcurrentDuplicateInsert(t *testing.T, store core.CollectionStore) {
	ctx := context.Background()
	const workers = 8

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Insert(ctx, NewRow("user-a", 77))
			switch {
			case err == nil:
				success.Add(1)
			case !errors.Is(err, core.ErrDuplicate):
				t.Errorf("Insert() error = %v, want nil or ErrDuplicate", err)
			}
		}()
	}
	wg.Wait()

	if got := success.Load(); got != 1 {
		t.Errorf("%d concurrent inserts succeeded, want exactly 1", got)
	}
}
