package aggregator

import (
	"sort"

	"github.com/coverbay/coverbay/pkg/core"
)

// Diff compares the files of a base report against a head report.
// Files present only in head are added, files present only in base are
// removed, files present in both carry the head-minus-base rate delta.
// A file without executable lines on either side is skipped: it has no
// defined rate to compare.
func (a *Aggregator) Diff(base, head []core.FileCoverage) []core.FileDiff {
	baseByName := make(map[string]core.FileCoverage, len(base))
	for _, file := range base {
		baseByName[file.Filename] = file
	}
	headByName := make(map[string]core.FileCoverage, len(head))
	for _, file := range head {
		headByName[file.Filename] = file
	}

	diffs := make([]core.FileDiff, 0, len(head))
	for _, headFile := range head {
		baseFile, inBase := baseByName[headFile.Filename]
		switch {
		case !inBase:
			if !headFile.NoExecutableLines {
				diffs = append(diffs, core.FileDiff{Filename: headFile.Filename, Status: core.DiffAdded})
			}
		case baseFile.NoExecutableLines || headFile.NoExecutableLines:
			// no rate on one side, nothing comparable
		default:
			delta := headFile.LineRate - baseFile.LineRate
			diffs = append(diffs, core.FileDiff{
				Filename:  headFile.Filename,
				Status:    core.DiffChanged,
				RateDelta: &delta,
			})
		}
	}
	for _, baseFile := range base {
		if _, inHead := headByName[baseFile.Filename]; !inHead && !baseFile.NoExecutableLines {
			diffs = append(diffs, core.FileDiff{Filename: baseFile.Filename, Status: core.DiffRemoved})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Filename < diffs[j].Filename })
	return diffs
}
