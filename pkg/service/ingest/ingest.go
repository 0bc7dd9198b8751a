package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coverbay/coverbay/config"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverbay_uploads_total",
		Help: "Coverage uploads by format and outcome.",
	}, []string{"format", "status"})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverbay_upload_duration_seconds",
		Help:    "End to end duration of accepted uploads.",
		Buckets: prometheus.DefBuckets,
	})
)

// Service runs the upload pipeline: normalize, aggregate, store. Errors
// before the store abort the upload with nothing persisted.
type Service struct {
	logger     lumber.Logger
	normalizer core.Normalizer
	aggregator core.Aggregator
	store      core.CoverageStore
	archive    bool
}

// New returns the ingestion service.
func New(cfg *config.EngineConfig, normalizer core.Normalizer, aggregator core.Aggregator,
	store core.CoverageStore, logger lumber.Logger) *Service {
	return &Service{
		logger:     logger,
		normalizer: normalizer,
		aggregator: aggregator,
		store:      store,
		archive:    cfg.ArchiveUploads,
	}
}

// Ingest processes one raw upload and returns the persisted report, which
// may be a pre-existing one when the content was already uploaded.
func (s *Service) Ingest(ctx context.Context, req *core.UploadRequest) (*core.StoredReport, error) {
	start := time.Now()

	draft, err := s.normalizer.Normalize(req.Payload, req.Format)
	if err != nil {
		uploadsTotal.WithLabelValues(req.Format, "rejected").Inc()
		return nil, err
	}
	report, err := s.aggregator.Aggregate(draft)
	if err != nil {
		uploadsTotal.WithLabelValues(req.Format, "rejected").Inc()
		return nil, err
	}

	digest := sha256.Sum256(req.Payload)
	input := &core.UploadInput{
		Org:         req.Org,
		Repo:        req.Repo,
		Commit:      req.Commit,
		Format:      req.Format,
		ContentHash: hex.EncodeToString(digest[:]),
		Report:      report,
	}
	if s.archive {
		input.RawPayload = req.Payload
	}

	stored, err := s.store.Upload(ctx, input)
	if err != nil {
		uploadsTotal.WithLabelValues(req.Format, "failed").Inc()
		return nil, err
	}

	uploadsTotal.WithLabelValues(req.Format, "accepted").Inc()
	uploadDuration.Observe(time.Since(start).Seconds())
	s.logger.Infof("accepted %s upload for %s/%s@%s as report %s (%d files)",
		req.Format, req.Org, req.Repo, req.Commit, stored.ID, len(report.Files))
	return stored, nil
}
