package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"time"

	"gamedex/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// s3API is the subset of the S3 client used by the store.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	s3Client s3API
	bucket   string
	now      func() time.Time
}

// NewStore creates a new S3-based store using the default AWS credential chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newStoreWithClient(s3.NewFromConfig(cfg), bucketName), nil
}

func newStoreWithClient(client s3API, bucketName string) *s3Store {
	return &s3Store{s3Client: client, bucket: bucketName, now: time.Now}
}

func (s *s3Store) rowKey(userID string, gameID int64) (string, error) {
	// userID must be a single path segment.
	if userID == "" || path.Base(userID) != userID || userID == "." || userID == ".." {
		return "", fmt.Errorf("%w: invalid user id", core.ErrValidation)
	}
	return path.Join(userID, strconv.FormatInt(gameID, 10)+".json"), nil
}

func (s *s3Store) List(ctx context.Context, userID string) ([]*core.CollectionRow, error) {
	if _, err := s.rowKey(userID, 0); err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID)

	rows := []*core.CollectionRow{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(userID + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list collection for user %s: %w", userID, err)
		}
		for _, object := range page.Contents {
			row, err := s.readRow(ctx, aws.ToString(object.Key))
			if err != nil {
				log.WithError(err).Warnf("Failed to read object %s, skipping", aws.ToString(object.Key))
				continue
			}
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}

func (s *s3Store) Get(ctx context.Context, userID string, gameID int64) (*core.CollectionRow, error) {
	key, err := s.rowKey(userID, gameID)
	if err != nil {
		return nil, err
	}
	row, err := s.readRow(ctx, key)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("game %d for user %s: %w", gameID, userID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get collection row %s: %w", key, err)
	}
	return row, nil
}

func (s *s3Store) Insert(ctx context.Context, row *core.CollectionRow) error {
	key, err := s.rowKey(row.UserID, row.GameID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": row.UserID, "game_id": row.GameID, "key": key})

	if _, err := s.Get(ctx, row.UserID, row.GameID); err == nil {
		log.Warn("Game already in collection")
		return fmt.Errorf("game %d for user %s: %w", row.GameID, row.UserID, core.ErrDuplicate)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	stored := *row
	stored.ID = ulid.Make().String()
	stored.CreatedAt = s.now().UTC()
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal collection row: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.WithError(err).Error("Failed to upload collection row")
		return fmt.Errorf("failed to save collection row %s: %w", key, err)
	}

	row.ID = stored.ID
	row.CreatedAt = stored.CreatedAt
	log.Info("Collection row saved")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, userID string, gameID int64) error {
	key, err := s.rowKey(userID, gameID)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection row %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) readRow(ctx context.Context, key string) (*core.CollectionRow, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection row: %w", err)
	}
	var row core.CollectionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection row: %w", err)
	}
	return &row, nil
}
