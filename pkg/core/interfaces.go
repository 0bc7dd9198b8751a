package core

import (
	"context"
)

// Parser decodes one raw payload format into a report draft.
// Implementations are pure: no side effects, draft or error.
type Parser interface {
	// Format returns the format tag this parser handles.
	Format() string
	// Parse decodes the raw payload into file drafts.
	Parse(payload []byte) (*ReportDraft, error)
}

// Normalizer dispatches a raw payload to the parser registered for its
// declared format tag and normalizes the resulting draft.
type Normalizer interface {
	Normalize(payload []byte, format string) (*ReportDraft, error)
}

// Aggregator computes weighted coverage rollups and commit diffs.
type Aggregator interface {
	Aggregate(draft *ReportDraft) (*AggregatedReport, error)
	Diff(base, head []FileCoverage) []FileDiff
}

// CoverageStore is the transactional persistence layer for reports.
type CoverageStore interface {
	// Upload persists the report and its files atomically. Re-uploading
	// identical content for the same commit is an idempotent no-op that
	// returns the pre-existing report.
	Upload(ctx context.Context, input *UploadInput) (*StoredReport, error)
	// GetCurrentReport returns the authoritative report for a commit.
	GetCurrentReport(ctx context.Context, org, repo, commit string) (*StoredReport, error)
	// ListFiles returns the current report's files ordered by filename.
	ListFiles(ctx context.Context, org, repo, commit string) ([]FileCoverage, error)
	// GetRawPayload returns the archived raw payload for a content hash.
	GetRawPayload(ctx context.Context, contentHash string) ([]byte, error)
}

// Ingestor runs the upload pipeline: normalize, aggregate, store.
type Ingestor interface {
	Ingest(ctx context.Context, req *UploadRequest) (*StoredReport, error)
}

// DiffService compares the current reports of two commits.
type DiffService interface {
	Compare(ctx context.Context, org, repo, baseCommit, headCommit string) (*DiffResult, error)
}

// Requests is the wrapper around the http client for outbound API calls.
type Requests interface {
	MakeAPIRequest(ctx context.Context, httpMethod, endpoint string, body []byte) ([]byte, error)
}

// Authorizer is the opaque SCM capability check consumed by the HTTP
// surface. Implementations decide whether the caller may touch org/repo.
type Authorizer interface {
	Authorize(ctx context.Context, org, repo string) error
}
