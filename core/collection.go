package core

import (
	"context"
	"encoding/json"
	"time"
)

type (
	// CollectionRow is one persisted collection entry. GameData holds the
	// client-supplied CollectedGame document verbatim.
	CollectionRow struct {
		ID        string          `json:"id"`
		UserID    string          `json:"user_id"`
		GameID    int64           `json:"game_id"`
		GameData  json.RawMessage `json:"game_data"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// CollectionStore is the authoritative per-user collection persistence.
	// All operations are scoped to a specific user.
	CollectionStore interface {
		// List returns the user's rows ordered newest first by CreatedAt.
		List(ctx context.Context, userID string) ([]*CollectionRow, error)

		// Get returns the row for a game, or ErrNotFound.
		Get(ctx context.Context, userID string, gameID int64) (*CollectionRow, error)

		// Insert assigns ID and CreatedAt and stores the row.
		// Returns ErrDuplicate if the user already has the game.
		Insert(ctx context.Context, row *CollectionRow) error

		// Delete removes the user's row for a game. Deleting a missing row is not an error.
		Delete(ctx context.Context, userID string, gameID int64) error
	}

	// CollectionEvent is pushed to a user's other sessions after a confirmed write.
	CollectionEvent struct {
		Action string         `json:"action"` // "added" | "removed"
		GameID int64          `json:"game_id"`
		Row    *CollectionRow `json:"row,omitempty"`
	}
)

const (
	CollectionAdded   = "added"
	CollectionRemoved = "removed"
)
