package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamedex/core"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const table = "user_collections"

const schema = `
CREATE TABLE IF NOT EXISTS user_collections (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	game_id    BIGINT NOT NULL,
	game_data  JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, game_id)
);
CREATE INDEX IF NOT EXISTS user_collections_user_created
	ON user_collections (user_id, created_at DESC);`

var columns = []string{"id", "user_id", "game_id", "game_data", "created_at"}

type pgStore struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
	now  func() time.Time
}

// NewStore connects to PostgreSQL and ensures the collection table exists.
func NewStore(ctx context.Context, databaseURL string) (*pgStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create %s table: %w", table, err)
	}

	return &pgStore{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}, nil
}

// Close releases the connection pool.
func (s *pgStore) Close() {
	s.pool.Close()
}

func (s *pgStore) List(ctx context.Context, userID string) ([]*core.CollectionRow, error) {
	query, args, err := s.psql.Select(columns...).
		From(table).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to list collection")
		return nil, mapError(err, userID, 0)
	}
	defer rows.Close()

	result := []*core.CollectionRow{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, userID string, gameID int64) (*core.CollectionRow, error) {
	query, args, err := s.psql.Select(columns...).
		From(table).
		Where(sq.Eq{"user_id": userID, "game_id": gameID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	row, err := scanRow(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, userID, gameID)
	}
	return row, nil
}

func (s *pgStore) Insert(ctx context.Context, row *core.CollectionRow) error {
	log := logrus.WithFields(logrus.Fields{"user_id": row.UserID, "game_id": row.GameID})

	id := ulid.Make().String()
	createdAt := s.now().UTC()
	query, args, err := s.psql.Insert(table).
		Columns(columns...).
		Values(id, row.UserID, row.GameID, string(row.GameData), createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		mapped := mapError(err, row.UserID, row.GameID)
		if errors.Is(mapped, core.ErrDuplicate) {
			log.Warn("Game already in collection")
		} else {
			log.WithError(err).Error("Failed to insert collection row")
		}
		return mapped
	}

	row.ID = id
	row.CreatedAt = createdAt
	log.Info("Collection row inserted")
	return nil
}

func (s *pgStore) Delete(ctx context.Context, userID string, gameID int64) error {
	query, args, err := s.psql.Delete(table).
		Where(sq.Eq{"user_id": userID, "game_id": gameID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return mapError(err, userID, gameID)
	}
	return nil
}

func scanRow(row pgx.Row) (*core.CollectionRow, error) {
	var r core.CollectionRow
	if err := row.Scan(&r.ID, &r.UserID, &r.GameID, &r.GameData, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// mapError translates driver errors into core sentinels.
func mapError(err error, userID string, gameID int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("game %d for user %s: %w", gameID, userID, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrDuplicate)
	}
	return fmt.Errorf("game %d for user %s: %w", gameID, userID, err)
}
