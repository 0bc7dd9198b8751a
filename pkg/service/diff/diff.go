package diff

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
)

// Service compares the current reports of two commits, typically a commit
// under test against its merge-base.
type Service struct {
	logger     lumber.Logger
	store      core.CoverageStore
	aggregator core.Aggregator
}

// New returns the diff service.
func New(store core.CoverageStore, aggregator core.Aggregator, logger lumber.Logger) *Service {
	return &Service{logger: logger, store: store, aggregator: aggregator}
}

// Compare loads both commits' current file lists and computes the
// per-file deltas. Either commit missing a report surfaces as NotFound.
func (s *Service) Compare(ctx context.Context, org, repo, baseCommit, headCommit string) (*core.DiffResult, error) {
	var baseFiles, headFiles []core.FileCoverage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseFiles, err = s.store.ListFiles(gctx, org, repo, baseCommit)
		return err
	})
	g.Go(func() error {
		var err error
		headFiles, err = s.store.ListFiles(gctx, org, repo, headCommit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &core.DiffResult{
		BaseCommit: baseCommit,
		HeadCommit: headCommit,
		Files:      s.aggregator.Diff(baseFiles, headFiles),
	}, nil
}
