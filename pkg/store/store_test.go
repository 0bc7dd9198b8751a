package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/testutils"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate",
		filepath.Join(t.TempDir(), "coverbay.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	s, err := NewWithDB(db, logger)
	require.NoError(t, err)
	return s
}

func ratePtr(v float64) *float64 { return &v }

func uploadInput(commit, contentHash string, files ...core.FileCoverage) *core.UploadInput {
	total, covered := 0, 0
	for _, f := range files {
		total += f.TotalLines
		covered += f.CoveredLines
	}
	summary := core.Summary{TotalLines: total, CoveredLines: covered}
	if total > 0 {
		summary.LineRate = ratePtr(float64(covered) / float64(total))
	}
	return &core.UploadInput{
		Org:         "acme",
		Repo:        "rocket",
		Commit:      commit,
		Format:      "cobertura",
		ContentHash: contentHash,
		Report: &core.AggregatedReport{
			Summary: summary,
			Files:   files,
		},
	}
}

func file(name string, covered, total int) core.FileCoverage {
	f := core.FileCoverage{Filename: name, TotalLines: total, CoveredLines: covered}
	if total > 0 {
		f.LineRate = float64(covered) / float64(total)
	} else {
		f.NoExecutableLines = true
	}
	return f
}

func TestStore_UploadAndGetCurrentReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f1", 10, 10), file("f2", 0, 10)))
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.True(t, stored.Current)

	got, err := s.GetCurrentReport(ctx, "acme", "rocket", "c1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	require.NotNil(t, got.LineRate)
	assert.InDelta(t, 0.5, *got.LineRate, 1e-9)
	assert.Equal(t, 20, got.TotalLines)
	assert.Equal(t, 10, got.CoveredLines)
}

func TestStore_IdempotentReupload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f1", 5, 10)))
	require.NoError(t, err)
	second, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f1", 5, 10)))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-uploading identical content must return the same report")

	var count int64
	require.NoError(t, s.db.Model(&Report{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStore_DistinctContentSupersedesCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f1", 5, 10)))
	require.NoError(t, err)
	second, err := s.Upload(ctx, uploadInput("c1", "hash2", file("f1", 8, 10)))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	current, err := s.GetCurrentReport(ctx, "acme", "rocket", "c1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	var count int64
	require.NoError(t, s.db.Model(&Report{}).Where("commit_id = (?)",
		s.db.Model(&Commit{}).Select("id").Where("hash = ?", "c1")).Count(&count).Error)
	assert.EqualValues(t, 2, count, "superseded reports stay as history")
}

func TestStore_ListFilesOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, uploadInput("c1", "hash1",
		file("zeta.go", 1, 2),
		file("alpha.go", 2, 2),
		file("mid/beta.go", 0, 4),
	))
	require.NoError(t, err)

	files, err := s.ListFiles(ctx, "acme", "rocket", "c1")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "alpha.go", files[0].Filename)
	assert.Equal(t, "mid/beta.go", files[1].Filename)
	assert.Equal(t, "zeta.go", files[2].Filename)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetCurrentReport(ctx, "ghost", "rocket", "c1")
	var notFound *errs.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "organization", notFound.Entity)

	_, err = s.Upload(ctx, uploadInput("c9", "h", file("f", 1, 1)))
	require.NoError(t, err)

	_, err = s.ListFiles(ctx, "acme", "rocket", "unknown")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "commit", notFound.Entity)
}

func TestStore_ConflictRollsBackWholeReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// duplicate filenames violate the (report_id, filename) constraint;
	// the whole transaction must roll back with no partial state
	input := uploadInput("c1", "hash1", file("same.go", 1, 2), file("same.go", 2, 2))
	_, err := s.Upload(ctx, input)
	var conflict *errs.ConflictError
	require.ErrorAs(t, err, &conflict)

	var reports int64
	require.NoError(t, s.db.Model(&Report{}).Count(&reports).Error)
	assert.EqualValues(t, 0, reports)
	var files int64
	require.NoError(t, s.db.Model(&File{}).Count(&files).Error)
	assert.EqualValues(t, 0, files)
}

func TestStore_ConcurrentDistinctUploads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const n = 8

	var wg sync.WaitGroup
	uploadErrs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := uploadInput("c1", fmt.Sprintf("hash-%d", i), file("f.go", i, n))
			_, uploadErrs[i] = s.Upload(ctx, input)
		}(i)
	}
	wg.Wait()

	for i, err := range uploadErrs {
		assert.NoErrorf(t, err, "upload %d failed", i)
	}

	var total int64
	require.NoError(t, s.db.Model(&Report{}).Count(&total).Error)
	assert.EqualValues(t, n, total, "every distinct upload persists as history")

	var current int64
	require.NoError(t, s.db.Model(&Report{}).Where("current = ?", true).Count(&current).Error)
	assert.EqualValues(t, 1, current, "exactly one report owns the current pointer")
}

func TestStore_ConcurrentIdenticalUploads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const n = 6

	var wg sync.WaitGroup
	ids := make([]string, n)
	uploadErrs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := s.Upload(ctx, uploadInput("c1", "same-hash", file("f.go", 3, 4)))
			if stored != nil {
				ids[i] = stored.ID
			}
			uploadErrs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range uploadErrs {
		require.NoErrorf(t, err, "upload %d failed", i)
	}
	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i], "identical uploads must converge on one report")
	}

	var count int64
	require.NoError(t, s.db.Model(&Report{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStore_ArchiveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	raw := []byte("mode: set\npkg/a.go:1.1,2.1 1 1\npkg/a.go:3.1,4.1 1 0\n")
	input := uploadInput("c1", "hash1", file("pkg/a.go", 1, 2))
	input.RawPayload = raw
	_, err := s.Upload(ctx, input)
	require.NoError(t, err)

	got, err := s.GetRawPayload(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = s.GetRawPayload(ctx, "missing")
	var notFound *errs.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_GetReportByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f.go", 1, 2)))
	require.NoError(t, err)

	got, err := s.GetReport(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "acme", got.Org)
	assert.Equal(t, "rocket", got.Repo)
	assert.Equal(t, "c1", got.Commit)

	_, err = s.GetReport(ctx, "no-such-id")
	var notFound *errs.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_UploadCancelledContextLeavesNoState(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, uploadInput("c1", "hash1", file("f.go", 1, 2)))
	require.Error(t, err)

	var reports int64
	require.NoError(t, s.db.Model(&Report{}).Count(&reports).Error)
	assert.EqualValues(t, 0, reports)
}
