package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gamedex/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// fsStore keeps one JSON file per collected game under basePath/<userID>/.
type fsStore struct {
	basePath string
	now      func() time.Time
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath, now: time.Now}, nil
}

func (s *fsStore) userPath(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id cannot be empty", core.ErrValidation)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", err
	}
	absUser, err := filepath.Abs(filepath.Join(s.basePath, userID))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absUser, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied")
	}
	return absUser, nil
}

func (s *fsStore) rowPath(userID string, gameID int64) (string, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(userPath, strconv.FormatInt(gameID, 10)+".json"), nil
}

func (s *fsStore) List(ctx context.Context, userID string) ([]*core.CollectionRow, error) {
	userPath, err := s.userPath(userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", userPath)

	files, err := os.ReadDir(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("User directory does not exist, returning empty list.")
			return []*core.CollectionRow{}, nil
		}
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}

	rows := make([]*core.CollectionRow, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		row, err := readRow(filepath.Join(userPath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read collection file %s, skipping", file.Name())
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	log.Debugf("Listed %d collection rows", len(rows))
	return rows, nil
}

func (s *fsStore) Get(ctx context.Context, userID string, gameID int64) (*core.CollectionRow, error) {
	filePath, err := s.rowPath(userID, gameID)
	if err != nil {
		return nil, err
	}
	row, err := readRow(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrNotFound)
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "game_id": gameID}).WithError(err).Error("Failed to read collection file")
		return nil, err
	}
	return row, nil
}

func (s *fsStore) Insert(ctx context.Context, row *core.CollectionRow) error {
	filePath, err := s.rowPath(row.UserID, row.GameID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": row.UserID, "game_id": row.GameID, "path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create user directory")
		return err
	}

	stored := *row
	stored.ID = ulid.Make().String()
	stored.CreatedAt = s.now().UTC()

	// The row is written in full to a temp file and then linked into place.
	// Link fails if the target exists, so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".row-*.tmp")
	if err != nil {
		log.WithError(err).Error("Failed to create temp file")
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(&stored); err != nil {
		tmp.Close()
		log.WithError(err).Error("Failed to write collection file")
		return err
	}
	if err := tmp.Close(); err != nil {
		log.WithError(err).Error("Failed to write collection file")
		return err
	}

	if err := os.Link(tmp.Name(), filePath); err != nil {
		if errors.Is(err, os.ErrExist) {
			log.Warn("Game already in collection")
			return fmt.Errorf("game %d for user %s: %w", row.GameID, row.UserID, core.ErrDuplicate)
		}
		log.WithError(err).Error("Failed to create collection file")
		return err
	}
	*row = stored

	log.Info("Collection row saved")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, userID string, gameID int64) error {
	filePath, err := s.rowPath(userID, gameID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "game_id": gameID, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Collection file not found for deletion, considered successful.")
			return nil
		}
		log.WithError(err).Error("Failed to delete collection file")
		return err
	}

	log.Info("Collection row deleted")
	return nil
}

func readRow(filePath string) (*core.CollectionRow, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var row core.CollectionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return &row, nil
}
