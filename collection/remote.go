package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gamedex/client"
	"gamedex/core"

	"github.com/sirupsen/logrus"
)

// Remote writes through to the server. Memory only changes after the
// server confirmed a write.
type Remote struct {
	state
	api      API
	storage  Storage
	notifier Notifier
	now      func() time.Time

	// writes serializes mutations so confirmations apply in request order.
	writes sync.Mutex
	log    *logrus.Entry
}

func NewRemote(deps Deps) *Remote {
	deps = deps.withDefaults()
	return &Remote{
		api:      deps.API,
		storage:  deps.Storage,
		notifier: deps.Notifier,
		now:      deps.Now,
		log:      logrus.WithField("component", "collection"),
	}
}

// Load replaces the in-memory collection with the server's. When the
// server is unreachable the locally persisted collection is used instead.
func (r *Remote) Load(ctx context.Context) error {
	rows, err := r.api.ListCollection(ctx)
	if err != nil {
		r.log.WithError(err).Error("Error loading collection from server")
		items, localErr := loadLocal(r.storage)
		if localErr != nil {
			r.log.WithError(localErr).Error("Error parsing saved collection")
		}
		r.set(items)
		return err
	}

	items := make([]core.CollectedGame, 0, len(rows))
	for _, row := range rows {
		var game core.CollectedGame
		if err := json.Unmarshal(row.GameData, &game); err != nil {
			r.log.WithFields(logrus.Fields{"error": err, "gameID": row.GameID}).Warn("Skipping unreadable collection row")
			continue
		}
		if game.ID == 0 {
			game.ID = row.GameID
		}
		game.CollectedAt = row.CreatedAt.UnixMilli()
		items = append(items, game)
	}
	r.set(items)
	r.mirror()
	return nil
}

func (r *Remote) Add(ctx context.Context, game core.CollectedGame) bool {
	r.writes.Lock()
	defer r.writes.Unlock()

	if r.Contains(game.ID) {
		r.notifier.Error(fmt.Sprintf("%s is already in your collection", game.Name))
		return false
	}

	toAdd := r.enrich(ctx, game)
	toAdd.CollectedAt = r.now().UnixMilli()

	if _, err := r.api.AddToCollection(ctx, toAdd); err != nil {
		r.log.WithFields(logrus.Fields{"error": err, "gameID": game.ID}).Error("Error adding game to collection")
		message := "Failed to add game to collection"
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			message = apiErr.Message
		}
		r.notifier.Error(message)
		return false
	}

	r.mu.Lock()
	r.items = append(r.items, toAdd)
	r.mu.Unlock()
	r.mirror()

	r.notifier.Success(fmt.Sprintf("%s added to your collection!", game.Name))
	return true
}

// enrich swaps in the full catalog record when the game lacks rating,
// platforms or screenshots. Lookup failures keep the given data.
func (r *Remote) enrich(ctx context.Context, game core.CollectedGame) core.CollectedGame {
	if game.HasFullDetails() {
		return game
	}
	details, err := r.api.Game(ctx, game.ID)
	if err != nil || details == nil || details.Game == nil {
		r.log.WithFields(logrus.Fields{"error": err, "gameID": game.ID}).Warn("Error getting game details")
		return game
	}
	return core.CollectedGame{Game: *details.Game}
}

func (r *Remote) Remove(ctx context.Context, gameID int64) {
	r.writes.Lock()
	defer r.writes.Unlock()

	removed, found := r.find(gameID)

	if err := r.api.RemoveFromCollection(ctx, gameID); err != nil {
		r.log.WithFields(logrus.Fields{"error": err, "gameID": gameID}).Error("Error removing game from collection")
		r.notifier.Error("Failed to remove from collection")
		return
	}

	r.mu.Lock()
	kept := r.items[:0:0]
	for _, g := range r.items {
		if g.ID != gameID {
			kept = append(kept, g)
		}
	}
	r.items = kept
	r.mu.Unlock()
	r.mirror()

	if found {
		r.notifier.Success(fmt.Sprintf("%s removed from your collection", removed.Name))
	}
}

// Apply folds a change pushed by another session into memory. The server
// already confirmed it.
func (r *Remote) Apply(event core.CollectionEvent) {
	r.writes.Lock()
	defer r.writes.Unlock()

	switch event.Action {
	case core.CollectionAdded:
		if event.Row == nil || r.Contains(event.GameID) {
			return
		}
		var game core.CollectedGame
		if err := json.Unmarshal(event.Row.GameData, &game); err != nil {
			r.log.WithError(err).Warn("Ignoring unreadable collection event")
			return
		}
		game.CollectedAt = event.Row.CreatedAt.UnixMilli()
		r.mu.Lock()
		r.items = append(r.items, game)
		r.mu.Unlock()
	case core.CollectionRemoved:
		r.mu.Lock()
		kept := r.items[:0:0]
		for _, g := range r.items {
			if g.ID != event.GameID {
				kept = append(kept, g)
			}
		}
		r.items = kept
		r.mu.Unlock()
	default:
		return
	}
	r.mirror()
}

// mirror persists the confirmed collection for later guest sessions.
func (r *Remote) mirror() {
	if r.storage == nil {
		return
	}
	if err := saveLocal(r.storage, r.Items()); err != nil {
		r.log.WithError(err).Warn("Failed to mirror collection to local storage")
	}
}
