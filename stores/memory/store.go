package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gamedex/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore keeps collection rows in process memory.
type memStore struct {
	mu sync.RWMutex
	// rows is keyed by userID, then by gameID.
	rows map[string]map[int64]*core.CollectionRow
	now  func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		rows: make(map[string]map[int64]*core.CollectionRow),
		now:  time.Now,
	}
}

// List returns the user's rows, newest first.
func (s *memStore) List(ctx context.Context, userID string) ([]*core.CollectionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userRows := s.rows[userID]
	rows := make([]*core.CollectionRow, 0, len(userRows))
	for _, row := range userRows {
		copied := *row
		rows = append(rows, &copied)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	logrus.WithField("user_id", userID).Debugf("Listed %d collection rows", len(rows))
	return rows, nil
}

func (s *memStore) Get(ctx context.Context, userID string, gameID int64) (*core.CollectionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[userID][gameID]
	if !ok {
		return nil, fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrNotFound)
	}
	copied := *row
	return &copied, nil
}

func (s *memStore) Insert(ctx context.Context, row *core.CollectionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": row.UserID, "game_id": row.GameID})

	if row.UserID == "" {
		return fmt.Errorf("%w: user id cannot be empty", core.ErrValidation)
	}

	userRows, ok := s.rows[row.UserID]
	if !ok {
		userRows = make(map[int64]*core.CollectionRow)
		s.rows[row.UserID] = userRows
	}
	if _, exists := userRows[row.GameID]; exists {
		log.Warn("Game already in collection")
		return fmt.Errorf("game %d for user %s: %w", row.GameID, row.UserID, core.ErrDuplicate)
	}

	row.ID = ulid.Make().String()
	row.CreatedAt = s.now().UTC()
	copied := *row
	userRows[row.GameID] = &copied

	log.Info("Collection row inserted")
	return nil
}

func (s *memStore) Delete(ctx context.Context, userID string, gameID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows[userID], gameID)
	logrus.WithFields(logrus.Fields{"user_id": userID, "game_id": gameID}).Info("Collection row deleted")
	return nil
}
