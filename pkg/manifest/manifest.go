// Package manifest records upload results in a database so runs can be
// audited after the fact.
package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/assetoor/pkg/config"
	"github.com/ethpandaops/assetoor/pkg/upload"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists upload results.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Record stores one row per result under runID. publicURL derives the
	// public address of a key and may be nil.
	Record(
		ctx context.Context,
		runID, bucket string,
		results []upload.Result,
		publicURL func(key string) string,
	) error

	// ListRun returns the rows of a run ordered by insertion.
	ListRun(ctx context.Context, runID string) ([]Upload, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

// ErrNotStarted is returned by Record and ListRun when Start has not
// opened the database.
var ErrNotStarted = errors.New("manifest store not started")

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "manifest"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dialector = postgres.Open(s.cfg.Postgres.DSN())
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	s.db, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&Upload{}); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Debug("Manifest database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// Record inserts the results of a run in a single transaction.
func (s *store) Record(
	ctx context.Context,
	runID, bucket string,
	results []upload.Result,
	publicURL func(key string) string,
) error {
	if s.db == nil {
		return ErrNotStarted
	}

	if len(results) == 0 {
		return nil
	}

	rows := make([]Upload, 0, len(results))

	for _, res := range results {
		row := Upload{
			RunID:      runID,
			Bucket:     bucket,
			Key:        res.Key,
			ObjectURL:  res.ObjectURL,
			Status:     StatusUploaded,
			Batch:      res.Batch,
			Bytes:      res.Bytes,
			DurationMS: res.Duration.Milliseconds(),
		}

		if res.Err != nil {
			row.Status = StatusFailed
			row.Error = res.Err.Error()
		} else if publicURL != nil {
			row.PublicURL = publicURL(res.Key)
		}

		rows = append(rows, row)
	}

	if err := s.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("recording run %s: %w", runID, err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id": runID,
		"rows":   len(rows),
	}).Info("Recorded upload manifest")

	return nil
}

// ListRun returns all rows recorded for runID.
func (s *store) ListRun(ctx context.Context, runID string) ([]Upload, error) {
	if s.db == nil {
		return nil, ErrNotStarted
	}

	var rows []Upload

	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing run %s: %w", runID, err)
	}

	return rows, nil
}
