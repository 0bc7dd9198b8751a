package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coverbay/coverbay/config"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
)

const fileBatchSize = 500

// Store is the gorm-backed implementation of core.CoverageStore.
type Store struct {
	db     *gorm.DB
	logger lumber.Logger
}

// sqlLogWriter routes gorm's SQL log through lumber.
type sqlLogWriter struct {
	logger lumber.Logger
}

func (w sqlLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Debugf(format, args...)
}

// New connects to postgres, migrates the schema and returns the store.
func New(cfg *config.EngineConfig, logger lumber.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port, cfg.DB.SSLMode)

	gormLog := gormlogger.New(sqlLogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLog,
	})
	if err != nil {
		return nil, &errs.StorageUnavailableError{Err: err}
	}
	return NewWithDB(db, logger)
}

// NewWithDB wraps an existing gorm connection, migrating the schema.
// Tests use this with the sqlite driver.
func NewWithDB(db *gorm.DB, logger lumber.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Organization{}, &Repository{}, &Commit{}, &Report{}, &File{}, &UploadBlob{}); err != nil {
		return nil, &errs.StorageUnavailableError{Err: err}
	}
	return &Store{db: db, logger: logger}, nil
}

// Upload persists the report and its files in one transaction.
//
// Identical content for the same commit is an idempotent no-op returning
// the pre-existing report. Distinct content inserts a new report row and
// atomically moves the current flag to it; concurrent uploads for the
// same commit serialize on the commit row, so the last committed upload
// owns the current pointer.
func (s *Store) Upload(ctx context.Context, input *core.UploadInput) (*core.StoredReport, error) {
	var stored *core.StoredReport

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commit, err := s.resolveCommit(tx, input.Org, input.Repo, input.Commit)
		if err != nil {
			return err
		}
		// serialize concurrent uploads for this commit on its row lock
		if err := tx.Model(&Commit{}).Where("id = ?", commit.ID).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}

		existing := Report{}
		err = tx.Where("commit_id = ? AND content_hash = ?", commit.ID, input.ContentHash).
			First(&existing).Error
		if err == nil {
			s.logger.Debugf("duplicate upload for commit %s, returning report %s", input.Commit, existing.ID)
			stored = s.toStoredReport(&existing, input.Org, input.Repo, input.Commit)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := Report{
			ID:           uuid.NewString(),
			CommitID:     commit.ID,
			ContentHash:  input.ContentHash,
			Format:       input.Format,
			Current:      true,
			UploadedAt:   time.Now().UTC(),
			LineRate:     input.Report.Summary.LineRate,
			BranchRate:   input.Report.Summary.BranchRate,
			TotalLines:   input.Report.Summary.TotalLines,
			CoveredLines: input.Report.Summary.CoveredLines,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Model(&Report{}).
			Where("commit_id = ? AND current = ? AND id <> ?", commit.ID, true, row.ID).
			Update("current", false).Error; err != nil {
			return err
		}

		if len(input.Report.Files) > 0 {
			files := make([]File, 0, len(input.Report.Files))
			for i := range input.Report.Files {
				files = append(files, fileRow(row.ID, &input.Report.Files[i]))
			}
			if err := tx.CreateInBatches(files, fileBatchSize).Error; err != nil {
				return err
			}
		}

		if len(input.RawPayload) > 0 {
			if err := s.archivePayload(tx, input); err != nil {
				return err
			}
		}

		stored = s.toStoredReport(&row, input.Org, input.Repo, input.Commit)
		return nil
	})

	if txErr == nil {
		return stored, nil
	}
	// A duplicate key on (commit_id, content_hash) means we lost a race
	// with an identical concurrent upload; the committed winner stands.
	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		report, err := s.getReportByContent(ctx, input.Org, input.Repo, input.Commit, input.ContentHash)
		if err == nil {
			s.logger.Infof("upload for commit %s resolved idempotently to report %s", input.Commit, report.ID)
			return report, nil
		}
		return nil, &errs.ConflictError{Err: txErr}
	}
	return nil, translateError(txErr)
}

// translateError maps storage failures onto the error taxonomy; already
// classified errors and context cancellation pass through unchanged.
func translateError(err error) error {
	var notFound *errs.NotFoundError
	var conflict *errs.ConflictError
	var unavailable *errs.StorageUnavailableError
	if errors.As(err, &notFound) || errors.As(err, &conflict) || errors.As(err, &unavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &errs.StorageUnavailableError{Err: err}
}
