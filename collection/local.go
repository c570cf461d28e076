package collection

import (
	"context"
	"encoding/json"

	"gamedex/core"

	"github.com/sirupsen/logrus"
)

// Local is the guest view: the collection persisted on this machine,
// read-only until the user signs in.
type Local struct {
	state
	storage  Storage
	notifier Notifier
}

func NewLocal(deps Deps) *Local {
	deps = deps.withDefaults()
	return &Local{storage: deps.Storage, notifier: deps.Notifier}
}

func (l *Local) Load(ctx context.Context) error {
	items, err := loadLocal(l.storage)
	if err != nil {
		logrus.WithError(err).Error("Error parsing saved collection")
	}
	l.set(items)
	return err
}

func (l *Local) Add(ctx context.Context, game core.CollectedGame) bool {
	l.notifier.Error("Please sign in to add games to your collection")
	return false
}

func (l *Local) Remove(ctx context.Context, gameID int64) {
	l.notifier.Error("Please sign in to remove games from your collection")
}

// loadLocal reads the persisted collection. A missing key is an empty
// collection; a corrupt value is reported and treated as empty.
func loadLocal(storage Storage) ([]core.CollectedGame, error) {
	items := []core.CollectedGame{}
	if storage == nil {
		return items, nil
	}
	raw, ok, err := storage.GetItem(StorageKey)
	if err != nil || !ok {
		return items, err
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []core.CollectedGame{}, err
	}
	return items, nil
}

func saveLocal(storage Storage, items []core.CollectedGame) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return storage.SetItem(StorageKey, string(data))
}
