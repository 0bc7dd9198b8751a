package normalizer

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
)

var windowsDrivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// Normalizer parses raw coverage payloads into canonical report drafts.
// It dispatches on the declared format tag over a closed set of parsers.
type Normalizer struct {
	logger  lumber.Logger
	parsers map[string]core.Parser
}

// New returns a normalizer with all supported format parsers registered.
func New(logger lumber.Logger) *Normalizer {
	n := &Normalizer{
		logger:  logger,
		parsers: make(map[string]core.Parser),
	}
	n.register(&coberturaParser{})
	n.register(&codecovParser{})
	n.register(&cloverParser{})
	n.register(&goProfileParser{})
	return n
}

func (n *Normalizer) register(p core.Parser) {
	n.parsers[p.Format()] = p
}

// Normalize parses the payload with the parser registered for format and
// applies filename normalization and the duplicate-filename policy.
func (n *Normalizer) Normalize(payload []byte, format string) (*core.ReportDraft, error) {
	parser, ok := n.parsers[format]
	if !ok {
		return nil, &errs.UnsupportedFormatError{Format: format}
	}
	draft, err := parser.Parse(payload)
	if err != nil {
		return nil, err
	}
	return n.normalizeDraft(draft)
}

// normalizeDraft cleans every filename and resolves duplicates.
// Policy: the last occurrence of a filename wins, earlier occurrences are
// recorded as warnings. Raw formats sometimes legitimately repeat a file
// with updated hit counts, so duplicates are not fatal.
func (n *Normalizer) normalizeDraft(draft *core.ReportDraft) (*core.ReportDraft, error) {
	out := &core.ReportDraft{
		Files:    make([]core.FileDraft, 0, len(draft.Files)),
		Warnings: draft.Warnings,
	}
	seen := make(map[string]int, len(draft.Files))

	for _, file := range draft.Files {
		cleaned, err := cleanPath(file.Filename)
		if err != nil {
			return nil, err
		}
		file.Filename = cleaned

		if idx, dup := seen[cleaned]; dup {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("duplicate coverage entry for %q, keeping the last occurrence", cleaned))
			out.Files[idx] = file
			continue
		}
		seen[cleaned] = len(out.Files)
		out.Files = append(out.Files, file)
	}
	if len(out.Warnings) > 0 {
		n.logger.Warnf("normalizer produced %d warnings", len(out.Warnings))
	}
	return out, nil
}

// cleanPath strips redundant segments and rejects absolute paths and
// path-traversal segments.
func cleanPath(p string) (string, error) {
	candidate := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(candidate, "/") || windowsDrivePrefix.MatchString(candidate) {
		return "", &errs.InvalidPathError{Path: p}
	}
	cleaned := path.Clean(candidate)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &errs.InvalidPathError{Path: p}
	}
	return cleaned, nil
}
