package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gamedex/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS user_collections (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	game_id INTEGER NOT NULL,
	game_data TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (user_id, game_id)
);
CREATE INDEX IF NOT EXISTS user_collections_user_created
	ON user_collections (user_id, created_at DESC);`

// NewStore opens (or creates) the SQLite database and ensures the schema.
func NewStore(ctx context.Context, dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create user_collections table: %w", err)
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) List(ctx context.Context, userID string) ([]*core.CollectionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, game_id, game_data, created_at FROM user_collections WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list collection")
		return nil, err
	}
	defer rows.Close()

	result := []*core.CollectionRow{}
	for rows.Next() {
		row := core.CollectionRow{UserID: userID}
		var (
			data    string
			created int64
		)
		if err := rows.Scan(&row.ID, &row.GameID, &data, &created); err != nil {
			return nil, err
		}
		row.GameData = []byte(data)
		row.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, &row)
	}
	return result, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, userID string, gameID int64) (*core.CollectionRow, error) {
	row := core.CollectionRow{UserID: userID, GameID: gameID}
	var (
		data    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, game_data, created_at FROM user_collections WHERE user_id = ? AND game_id = ?",
		userID, gameID).Scan(&row.ID, &data, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrNotFound)
		}
		return nil, err
	}
	row.GameData = []byte(data)
	row.CreatedAt = time.Unix(0, created).UTC()
	return &row, nil
}

func (s *sqliteStore) Insert(ctx context.Context, row *core.CollectionRow) error {
	log := logrus.WithFields(logrus.Fields{"user_id": row.UserID, "game_id": row.GameID})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM user_collections WHERE user_id = ? AND game_id = ?",
		row.UserID, row.GameID).Scan(&exists)
	switch {
	case err == nil:
		log.Warn("Game already in collection")
		return fmt.Errorf("game %d for user %s: %w", row.GameID, row.UserID, core.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	id := ulid.Make().String()
	createdAt := s.now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO user_collections (id, user_id, game_id, game_data, created_at) VALUES (?, ?, ?, ?, ?)",
		id, row.UserID, row.GameID, string(row.GameData), createdAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("game %d for user %s: %w", row.GameID, row.UserID, core.ErrDuplicate)
		}
		log.WithError(err).Error("Failed to insert collection row")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	row.ID = id
	row.CreatedAt = createdAt
	log.Info("Collection row inserted")
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID string, gameID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM user_collections WHERE user_id = ? AND game_id = ?", userID, gameID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "game_id": gameID}).WithError(err).Error("Failed to delete collection row")
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
