package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/coverbay/coverbay/pkg/service/aggregator"
	"github.com/coverbay/coverbay/pkg/service/normalizer"
	"github.com/coverbay/coverbay/pkg/store"
	"github.com/coverbay/coverbay/testutils"
)

const goProfile = `mode: set
acme/rocket/engine.go:10.2,12.3 2 1
acme/rocket/engine.go:14.2,15.3 2 0
`

func newTestService(t *testing.T, archive bool) *Service {
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
	coverageStore, err := store.NewWithDB(db, logger)
	require.NoError(t, err)

	cfg := testutils.GetConfig()
	cfg.ArchiveUploads = archive
	return New(cfg, normalizer.New(logger), aggregator.New(logger), coverageStore, logger)
}

func TestIngest_GoProfileEndToEnd(t *testing.T) {
	svc := newTestService(t, false)

	stored, err := svc.Ingest(context.TODO(), &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  global.FormatGolang,
		Payload: []byte(goProfile),
	})
	require.NoError(t, err)
	assert.True(t, stored.Current)
	assert.Equal(t, 4, stored.TotalLines)
	assert.Equal(t, 2, stored.CoveredLines)
	require.NotNil(t, stored.LineRate)
	assert.InDelta(t, 0.5, *stored.LineRate, 1e-9)

	files, err := svc.store.ListFiles(context.TODO(), "acme", "rocket", "c1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "acme/rocket/engine.go", files[0].Filename)
}

func TestIngest_IdenticalPayloadIsIdempotent(t *testing.T) {
	svc := newTestService(t, false)
	req := &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  global.FormatGolang,
		Payload: []byte(goProfile),
	}

	first, err := svc.Ingest(context.TODO(), req)
	require.NoError(t, err)
	second, err := svc.Ingest(context.TODO(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ContentHash, second.ContentHash)
}

func TestIngest_UnsupportedFormatRejected(t *testing.T) {
	svc := newTestService(t, false)

	_, err := svc.Ingest(context.TODO(), &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  "jacoco",
		Payload: []byte("<report/>"),
	})
	var formatErr *errs.UnsupportedFormatError
	require.True(t, errors.As(err, &formatErr))

	// a rejected upload must leave no trace behind
	_, err = svc.store.GetCurrentReport(context.TODO(), "acme", "rocket", "c1")
	var notFound *errs.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestIngest_MalformedPayloadRejected(t *testing.T) {
	svc := newTestService(t, false)

	_, err := svc.Ingest(context.TODO(), &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  global.FormatCobertura,
		Payload: []byte("<coverage><packages>"),
	})
	var parseErr *errs.ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestIngest_ArchivesRawPayloadWhenEnabled(t *testing.T) {
	svc := newTestService(t, true)

	stored, err := svc.Ingest(context.TODO(), &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  global.FormatGolang,
		Payload: []byte(goProfile),
	})
	require.NoError(t, err)

	raw, err := svc.store.GetRawPayload(context.TODO(), stored.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, []byte(goProfile), raw)
}

func TestIngest_NoArchiveByDefault(t *testing.T) {
	svc := newTestService(t, false)

	stored, err := svc.Ingest(context.TODO(), &core.UploadRequest{
		Org:     "acme",
		Repo:    "rocket",
		Commit:  "c1",
		Format:  global.FormatGolang,
		Payload: []byte(goProfile),
	})
	require.NoError(t, err)

	_, err = svc.store.GetRawPayload(context.TODO(), stored.ContentHash)
	var notFound *errs.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}
