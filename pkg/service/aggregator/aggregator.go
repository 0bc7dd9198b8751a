package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/coverbay/coverbay/pkg/lumber"
)

// Aggregator computes weighted line and branch rollups from file drafts.
// Rollups are weighted by line counts, not a simple mean of rates, so a
// two-line file cannot skew a package the way its rate alone would.
type Aggregator struct {
	logger       lumber.Logger
	packageDepth int
	acceptEmpty  bool
}

// Option mutates aggregator construction.
type Option func(*Aggregator)

// WithPackageDepth sets the number of leading directory segments used to
// group files into packages.
func WithPackageDepth(depth int) Option {
	return func(a *Aggregator) {
		if depth > 0 {
			a.packageDepth = depth
		}
	}
}

// WithAcceptEmpty controls whether a report with zero executable lines is
// accepted (aggregate undefined) or rejected with EmptyReportError.
func WithAcceptEmpty(accept bool) Option {
	return func(a *Aggregator) { a.acceptEmpty = accept }
}

// New returns an aggregator with the default grouping depth.
func New(logger lumber.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		logger:       logger,
		packageDepth: global.DefaultPackageDepth,
		acceptEmpty:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes per-file rates, package rollups and the report level
// rollup for a normalized draft.
func (a *Aggregator) Aggregate(draft *core.ReportDraft) (*core.AggregatedReport, error) {
	report := &core.AggregatedReport{
		Files:    make([]core.FileCoverage, 0, len(draft.Files)),
		Warnings: draft.Warnings,
	}

	executable := 0
	for i := range draft.Files {
		file := fileCoverage(&draft.Files[i])
		if !file.NoExecutableLines {
			executable++
		}
		report.Files = append(report.Files, file)
	}
	if executable == 0 {
		if !a.acceptEmpty {
			return nil, &errs.EmptyReportError{}
		}
		a.logger.Warnf("report has no files with executable lines, aggregate is undefined")
	}

	report.Summary = summarize(report.Files)
	report.Packages = a.packageRollups(report.Files)
	return report, nil
}

// PackageRollups groups persisted files and recomputes their rollups at
// the given depth. Zero depth means the configured default.
func (a *Aggregator) PackageRollups(files []core.FileCoverage, depth int) []core.PackageSummary {
	if depth <= 0 {
		depth = a.packageDepth
	}
	grouped := Aggregator{packageDepth: depth}
	return grouped.packageRollups(files)
}

func (a *Aggregator) packageRollups(files []core.FileCoverage) []core.PackageSummary {
	groups := make(map[string][]core.FileCoverage)
	for _, file := range files {
		key := packageKey(file.Filename, a.packageDepth)
		groups[key] = append(groups[key], file)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	rollups := make([]core.PackageSummary, 0, len(names))
	for _, name := range names {
		rollups = append(rollups, core.PackageSummary{
			Package: name,
			Summary: summarize(groups[name]),
		})
	}
	return rollups
}

// packageKey returns the first depth directory segments of the filename.
// Files at the repository root group under ".".
func packageKey(filename string, depth int) string {
	dir := strings.TrimSuffix(filename, "/"+lastSegment(filename))
	if dir == filename || dir == "" {
		return "."
	}
	segments := strings.Split(dir, "/")
	if len(segments) > depth {
		segments = segments[:depth]
	}
	return strings.Join(segments, "/")
}

func lastSegment(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// fileCoverage derives the per-file rates. Files without executable lines
// are flagged rather than treated as fully covered or uncovered.
func fileCoverage(draft *core.FileDraft) core.FileCoverage {
	file := core.FileCoverage{
		Filename:        draft.Filename,
		TotalLines:      draft.TotalLines,
		CoveredLines:    draft.CoveredLines,
		BranchesTotal:   draft.BranchesTotal,
		BranchesCovered: draft.BranchesCovered,
		LineHits:        encodeLineHits(draft.LineHits),
	}
	if draft.TotalLines > 0 {
		file.LineRate = float64(draft.CoveredLines) / float64(draft.TotalLines)
	} else {
		file.NoExecutableLines = true
	}
	if draft.HasBranches && draft.BranchesTotal > 0 {
		rate := float64(draft.BranchesCovered) / float64(draft.BranchesTotal)
		file.BranchRate = &rate
	}
	return file
}

// summarize computes the line-weighted rollup over files, excluding files
// without executable lines from the denominator.
func summarize(files []core.FileCoverage) core.Summary {
	summary := core.Summary{}
	branchesTotal, branchesCovered, hasBranches := 0, 0, false
	for _, file := range files {
		if file.NoExecutableLines {
			continue
		}
		summary.TotalLines += file.TotalLines
		summary.CoveredLines += file.CoveredLines
		if file.BranchRate != nil {
			hasBranches = true
			branchesTotal += file.BranchesTotal
			branchesCovered += file.BranchesCovered
		}
	}
	if summary.TotalLines > 0 {
		rate := float64(summary.CoveredLines) / float64(summary.TotalLines)
		summary.LineRate = &rate
	}
	if hasBranches && branchesTotal > 0 {
		rate := float64(branchesCovered) / float64(branchesTotal)
		summary.BranchRate = &rate
	}
	return summary
}

// encodeLineHits renders per-line hit counts as "line:hits" pairs in line
// order, a compact text form for the files table.
func encodeLineHits(hits map[int]int) string {
	if len(hits) == 0 {
		return ""
	}
	lines := make([]int, 0, len(hits))
	for line := range hits {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%d", line, hits[line])
	}
	return b.String()
}
