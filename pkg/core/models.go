package core

import (
	"time"
)

// FileDraft is the normalized per-file outcome of parsing a raw payload.
// TotalLines counts executable lines only; a file with TotalLines == 0 has
// no executable lines and is excluded from every weighted rollup.
type FileDraft struct {
	Filename        string
	TotalLines      int
	CoveredLines    int
	LineHits        map[int]int
	BranchesTotal   int
	BranchesCovered int
	HasBranches     bool
}

// ReportDraft is the canonical output of the normalizer: an ordered set of
// file drafts plus non-fatal warnings collected while parsing.
type ReportDraft struct {
	Files    []FileDraft
	Warnings []string
}

// Summary holds a weighted coverage rollup. LineRate and BranchRate are nil
// when the aggregate is undefined (no executable lines, or no branch data).
type Summary struct {
	LineRate     *float64 `json:"line_rate"`
	BranchRate   *float64 `json:"branch_rate"`
	TotalLines   int      `json:"total_lines"`
	CoveredLines int      `json:"covered_lines"`
}

// FileCoverage is the aggregated per-file record persisted with a report.
type FileCoverage struct {
	Filename          string   `json:"filename"`
	TotalLines        int      `json:"total_lines"`
	CoveredLines      int      `json:"covered_lines"`
	LineRate          float64  `json:"line_rate"`
	NoExecutableLines bool     `json:"no_executable_lines,omitempty"`
	BranchesTotal     int      `json:"-"`
	BranchesCovered   int      `json:"-"`
	BranchRate        *float64 `json:"-"`
	LineHits          string   `json:"-"`
}

// PackageSummary is a derived rollup over files sharing a directory prefix.
// It is recomputed on read and never persisted.
type PackageSummary struct {
	Package string `json:"package"`
	Summary
}

// AggregatedReport is the aggregator's output for one upload: the report
// level rollup, the per-file records and the derived package rollups.
type AggregatedReport struct {
	Summary  Summary
	Files    []FileCoverage
	Packages []PackageSummary
	Warnings []string
}

// Diff statuses for a file compared between a base and a head report.
const (
	DiffAdded   = "added"
	DiffRemoved = "removed"
	DiffChanged = "changed"
)

// FileDiff describes how one file's coverage moved between two reports.
// RateDelta is set for files present in both reports.
type FileDiff struct {
	Filename  string   `json:"filename"`
	Status    string   `json:"status"`
	RateDelta *float64 `json:"rate_delta,omitempty"`
}

// DiffResult is the commit-to-commit coverage comparison.
type DiffResult struct {
	BaseCommit string     `json:"base_commit"`
	HeadCommit string     `json:"head_commit"`
	Files      []FileDiff `json:"files"`
}

// UploadRequest carries one raw upload through the ingestion pipeline.
type UploadRequest struct {
	Org     string
	Repo    string
	Commit  string
	Format  string
	Payload []byte
}

// UploadInput is the validated, aggregated report handed to the store.
type UploadInput struct {
	Org         string
	Repo        string
	Commit      string
	Format      string
	ContentHash string
	Report      *AggregatedReport
	RawPayload  []byte
}

// StoredReport is the persisted identity and rollup of one upload.
type StoredReport struct {
	ID          string    `json:"id"`
	Org         string    `json:"-"`
	Repo        string    `json:"-"`
	Commit      string    `json:"commit"`
	ContentHash string    `json:"-"`
	Format      string    `json:"-"`
	Current     bool      `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Summary
}
