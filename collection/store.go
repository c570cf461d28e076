// Package collection keeps a user's game collection on the client. Signed-in
// sessions write through to the server; guests get a read-only view of the
// locally persisted collection.
package collection

import (
	"context"
	"sync"
	"time"

	"gamedex/core"
)

// StorageKey is the local storage key holding the persisted collection.
const StorageKey = "gamedex-game-collection"

type (
	// Store is the collection as seen by one session.
	Store interface {
		Load(ctx context.Context) error
		// Add reports whether the game was added. Outcomes are announced
		// through the Notifier, never returned.
		Add(ctx context.Context, game core.CollectedGame) bool
		Remove(ctx context.Context, gameID int64)
		Contains(gameID int64) bool
		Sorted(by Criterion) []core.CollectedGame
		Len() int
		Items() []core.CollectedGame
	}

	// API is the server surface a Remote store needs.
	API interface {
		ListCollection(ctx context.Context) ([]*core.CollectionRow, error)
		AddToCollection(ctx context.Context, game core.CollectedGame) (*core.CollectionRow, error)
		RemoveFromCollection(ctx context.Context, gameID int64) error
		Game(ctx context.Context, id int64) (*core.GameDetails, error)
	}

	// Notifier shows transient user-facing messages.
	Notifier interface {
		Success(message string)
		Error(message string)
	}

	// Storage is a string key-value store that survives restarts.
	Storage interface {
		GetItem(key string) (string, bool, error)
		SetItem(key, value string) error
	}

	Deps struct {
		API      API
		Storage  Storage
		Notifier Notifier
		Now      func() time.Time
	}
)

// New picks the variant for a session once: Remote when a session token is
// present, Local otherwise.
func New(session string, deps Deps) Store {
	if session != "" && deps.API != nil {
		return NewRemote(deps)
	}
	return NewLocal(deps)
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = discard{}
	}
	return d
}

// state is the in-memory collection shared by both variants.
type state struct {
	mu    sync.RWMutex
	items []core.CollectedGame
}

func (s *state) set(items []core.CollectedGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *state) find(gameID int64) (core.CollectedGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.items {
		if g.ID == gameID {
			return g, true
		}
	}
	return core.CollectedGame{}, false
}

func (s *state) Contains(gameID int64) bool {
	_, ok := s.find(gameID)
	return ok
}

func (s *state) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy in insertion order.
func (s *state) Items() []core.CollectedGame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]core.CollectedGame, len(s.items))
	copy(items, s.items)
	return items
}

func (s *state) Sorted(by Criterion) []core.CollectedGame {
	items := s.Items()
	sortGames(items, by)
	return items
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string) {}
