package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
)

// resolveCommit walks org -> repo -> commit, creating missing rows on the
// way. Upserts go through ON CONFLICT DO NOTHING so concurrent first
// references of the same natural key converge on one row.
func (s *Store) resolveCommit(tx *gorm.DB, org, repo, commit string) (*Commit, error) {
	orgRow := Organization{Name: org}
	if err := upsert(tx, &orgRow, "name = ?", org); err != nil {
		return nil, err
	}
	repoRow := Repository{OrganizationID: orgRow.ID, Name: repo}
	if err := upsert(tx, &repoRow, "organization_id = ? AND name = ?", orgRow.ID, repo); err != nil {
		return nil, err
	}
	commitRow := Commit{RepositoryID: repoRow.ID, Hash: commit}
	if err := upsert(tx, &commitRow, "repository_id = ? AND hash = ?", repoRow.ID, commit); err != nil {
		return nil, err
	}
	return &commitRow, nil
}

func upsert[T any](tx *gorm.DB, row *T, query string, args ...interface{}) error {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return err
	}
	return tx.Where(query, args...).First(row).Error
}

// lookupCommit resolves the natural keys without creating anything.
func (s *Store) lookupCommit(tx *gorm.DB, org, repo, commit string) (*Commit, error) {
	orgRow := Organization{}
	if err := tx.Where("name = ?", org).First(&orgRow).Error; err != nil {
		return nil, lookupError(err, "organization", org)
	}
	repoRow := Repository{}
	if err := tx.Where("organization_id = ? AND name = ?", orgRow.ID, repo).First(&repoRow).Error; err != nil {
		return nil, lookupError(err, "repository", repo)
	}
	commitRow := Commit{}
	if err := tx.Where("repository_id = ? AND hash = ?", repoRow.ID, commit).First(&commitRow).Error; err != nil {
		return nil, lookupError(err, "commit", commit)
	}
	return &commitRow, nil
}

func lookupError(err error, entity, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &errs.NotFoundError{Entity: entity, Key: key}
	}
	return err
}

// GetCurrentReport returns the authoritative report for a commit.
func (s *Store) GetCurrentReport(ctx context.Context, org, repo, commit string) (*core.StoredReport, error) {
	row, err := s.currentReportRow(ctx, org, repo, commit)
	if err != nil {
		return nil, err
	}
	return s.toStoredReport(row, org, repo, commit), nil
}

// ListFiles returns the current report's files ordered by filename.
func (s *Store) ListFiles(ctx context.Context, org, repo, commit string) ([]core.FileCoverage, error) {
	row, err := s.currentReportRow(ctx, org, repo, commit)
	if err != nil {
		return nil, err
	}
	rows := []File{}
	if err := s.db.WithContext(ctx).
		Where("report_id = ?", row.ID).
		Order("filename asc").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	files := make([]core.FileCoverage, 0, len(rows))
	for i := range rows {
		files = append(files, fileCoverageFromRow(&rows[i]))
	}
	return files, nil
}

func (s *Store) currentReportRow(ctx context.Context, org, repo, commit string) (*Report, error) {
	row := Report{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commitRow, err := s.lookupCommit(tx, org, repo, commit)
		if err != nil {
			return err
		}
		if err := tx.Where("commit_id = ? AND current = ?", commitRow.ID, true).First(&row).Error; err != nil {
			return lookupError(err, "report", commit)
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &row, nil
}

// GetReport resolves a report by its id, walking back up to the commit,
// repository and organization that own it.
func (s *Store) GetReport(ctx context.Context, id string) (*core.StoredReport, error) {
	row := Report{}
	var org, repo, commit string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return lookupError(err, "report", id)
		}
		commitRow := Commit{}
		if err := tx.First(&commitRow, row.CommitID).Error; err != nil {
			return err
		}
		repoRow := Repository{}
		if err := tx.First(&repoRow, commitRow.RepositoryID).Error; err != nil {
			return err
		}
		orgRow := Organization{}
		if err := tx.First(&orgRow, repoRow.OrganizationID).Error; err != nil {
			return err
		}
		org, repo, commit = orgRow.Name, repoRow.Name, commitRow.Hash
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return s.toStoredReport(&row, org, repo, commit), nil
}

func (s *Store) getReportByContent(ctx context.Context, org, repo, commit, contentHash string) (*core.StoredReport, error) {
	row := Report{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commitRow, err := s.lookupCommit(tx, org, repo, commit)
		if err != nil {
			return err
		}
		if err := tx.Where("commit_id = ? AND content_hash = ?", commitRow.ID, contentHash).First(&row).Error; err != nil {
			return lookupError(err, "report", contentHash)
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return s.toStoredReport(&row, org, repo, commit), nil
}

func (s *Store) toStoredReport(row *Report, org, repo, commit string) *core.StoredReport {
	return &core.StoredReport{
		ID:          row.ID,
		Org:         org,
		Repo:        repo,
		Commit:      commit,
		ContentHash: row.ContentHash,
		Format:      row.Format,
		Current:     row.Current,
		UploadedAt:  row.UploadedAt,
		Summary: core.Summary{
			LineRate:     row.LineRate,
			BranchRate:   row.BranchRate,
			TotalLines:   row.TotalLines,
			CoveredLines: row.CoveredLines,
		},
	}
}

func fileRow(reportID string, file *core.FileCoverage) File {
	return File{
		ReportID:          reportID,
		Filename:          file.Filename,
		TotalLines:        file.TotalLines,
		CoveredLines:      file.CoveredLines,
		LineRate:          file.LineRate,
		NoExecutableLines: file.NoExecutableLines,
		BranchesTotal:     file.BranchesTotal,
		BranchesCovered:   file.BranchesCovered,
		BranchRate:        file.BranchRate,
		LineHits:          file.LineHits,
	}
}

func fileCoverageFromRow(row *File) core.FileCoverage {
	return core.FileCoverage{
		Filename:          row.Filename,
		TotalLines:        row.TotalLines,
		CoveredLines:      row.CoveredLines,
		LineRate:          row.LineRate,
		NoExecutableLines: row.NoExecutableLines,
		BranchesTotal:     row.BranchesTotal,
		BranchesCovered:   row.BranchesCovered,
		BranchRate:        row.BranchRate,
		LineHits:          row.LineHits,
	}
}
