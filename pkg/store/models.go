package store

import (
	"time"
)

// Relational schema for the coverage engine. Reports are append-only:
// rows are never updated in place except for the current flag flip.

// Organization owns repositories and is created lazily on first upload.
type Organization struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:255"`
	CreatedAt time.Time
}

// Repository belongs to exactly one organization.
type Repository struct {
	ID             uint   `gorm:"primaryKey"`
	OrganizationID uint   `gorm:"uniqueIndex:idx_org_repo"`
	Name           string `gorm:"uniqueIndex:idx_org_repo;size:255"`
	CreatedAt      time.Time
}

// Commit is identified by its VCS revision hash, immutable once created.
// UpdatedAt is touched inside the upload transaction; the row write takes
// a row lock that serializes concurrent uploads for the same commit.
type Commit struct {
	ID           uint   `gorm:"primaryKey"`
	RepositoryID uint   `gorm:"uniqueIndex:idx_repo_commit"`
	Hash         string `gorm:"uniqueIndex:idx_repo_commit;size:64"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Report is one accepted upload for a commit. The unique
// (commit_id, content_hash) pair is the idempotency and concurrency guard;
// exactly one report per commit carries current = true.
type Report struct {
	ID           string `gorm:"primaryKey;size:36"`
	CommitID     uint   `gorm:"uniqueIndex:idx_commit_content"`
	ContentHash  string `gorm:"uniqueIndex:idx_commit_content;size:64"`
	Format       string `gorm:"size:32"`
	Current      bool   `gorm:"index"`
	UploadedAt   time.Time
	LineRate     *float64
	BranchRate   *float64
	TotalLines   int
	CoveredLines int
	CreatedAt    time.Time
}

// File is one file's coverage within a report, immutable once the report
// transaction commits.
type File struct {
	ID                uint   `gorm:"primaryKey"`
	ReportID          string `gorm:"uniqueIndex:idx_report_filename;size:36"`
	Filename          string `gorm:"uniqueIndex:idx_report_filename;size:512"`
	TotalLines        int
	CoveredLines      int
	LineRate          float64
	NoExecutableLines bool
	BranchesTotal     int
	BranchesCovered   int
	BranchRate        *float64
	LineHits          string `gorm:"type:text"`
}

// UploadBlob archives the raw payload of an accepted upload, LZ4
// compressed, keyed by content hash. Written only when archival is
// enabled; re-uploads of identical content are no-ops.
type UploadBlob struct {
	ID          uint   `gorm:"primaryKey"`
	ContentHash string `gorm:"uniqueIndex;size:64"`
	Format      string `gorm:"size:32"`
	RawSize     int
	Compressed  []byte
	CreatedAt   time.Time
}
