package stores

import (
	"context"
	"fmt"
	"strings"

	"gamedex/config"
	"gamedex/core"
	"gamedex/stores/aws"
	"gamedex/stores/filesystem"
	"gamedex/stores/memory"
	"gamedex/stores/postgres"
	"gamedex/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore builds the collection store selected by cfg.Type.
func GetStore(ctx context.Context, cfg config.StorageConfig) (core.CollectionStore, error) {
	var (
		store core.CollectionStore
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch strings.ToLower(cfg.Type) {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store, err = filesystem.NewStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(ctx, cfg.DataSourceName)
	case "s3":
		if cfg.BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.BucketName
		store, err = aws.NewStore(ctx, cfg.BucketName)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set for postgres storage type")
		}
		store, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	case "", "memory":
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		logrus.WithFields(storageField).WithError(err).Error("Failed to open storage")
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
