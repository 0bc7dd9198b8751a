package normalizer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
)

// goProfileParser decodes Go cover profiles as written by `go test
// -coverprofile`. Each block line has the form
//
//	name.go:line.col,line.col numStmt count
//
// Statements are the unit of counting, so TotalLines reflects statements
// rather than source lines. Blocks for the same file are merged.
type goProfileParser struct{}

func (p *goProfileParser) Format() string { return global.FormatGolang }

func (p *goProfileParser) Parse(payload []byte) (*core.ReportDraft, error) {
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), global.MaxUploadBytes)

	if !scanner.Scan() {
		return nil, p.parseError(1, errors.New("empty payload"))
	}
	if !strings.HasPrefix(strings.TrimSpace(scanner.Text()), "mode:") {
		return nil, p.parseError(1, errors.New("missing mode header"))
	}

	byFile := make(map[string]*core.FileDraft)
	order := []string{}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		filename, block, err := parseProfileLine(line)
		if err != nil {
			return nil, p.parseError(lineNo, err)
		}
		file, ok := byFile[filename]
		if !ok {
			file = &core.FileDraft{Filename: filename, LineHits: make(map[int]int)}
			byFile[filename] = file
			order = append(order, filename)
		}
		file.TotalLines += block.numStmt
		if block.count > 0 {
			file.CoveredLines += block.numStmt
		}
		for l := block.startLine; l <= block.endLine; l++ {
			file.LineHits[l] += block.count
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.ParseError{Format: global.FormatGolang, Err: err}
	}

	draft := &core.ReportDraft{Files: make([]core.FileDraft, 0, len(order))}
	for _, filename := range order {
		draft.Files = append(draft.Files, *byFile[filename])
	}
	return draft, nil
}

func (p *goProfileParser) parseError(line int, err error) error {
	return &errs.ParseError{
		Format:   global.FormatGolang,
		Location: fmt.Sprintf("line %d", line),
		Err:      err,
	}
}

type profileBlock struct {
	startLine int
	endLine   int
	numStmt   int
	count     int
}

func parseProfileLine(line string) (string, profileBlock, error) {
	block := profileBlock{}
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return "", block, errors.New("missing file separator")
	}
	filename := line[:colon]
	rest := line[colon+1:]

	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return "", block, fmt.Errorf("expected 3 block fields, got %d", len(fields))
	}

	positions := strings.Split(fields[0], ",")
	if len(positions) != 2 {
		return "", block, errors.New("malformed block position")
	}
	var err error
	if block.startLine, err = positionLine(positions[0]); err != nil {
		return "", block, err
	}
	if block.endLine, err = positionLine(positions[1]); err != nil {
		return "", block, err
	}
	if block.numStmt, err = strconv.Atoi(fields[1]); err != nil {
		return "", block, fmt.Errorf("malformed statement count: %w", err)
	}
	if block.count, err = strconv.Atoi(fields[2]); err != nil {
		return "", block, fmt.Errorf("malformed hit count: %w", err)
	}
	return filename, block, nil
}

func positionLine(pos string) (int, error) {
	dot := strings.Index(pos, ".")
	if dot < 0 {
		return 0, errors.New("malformed block position")
	}
	n, err := strconv.Atoi(pos[:dot])
	if err != nil {
		return 0, fmt.Errorf("malformed line number: %w", err)
	}
	return n, nil
}
