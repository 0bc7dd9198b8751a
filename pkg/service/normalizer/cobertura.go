package normalizer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
)

// conditionCoverage matches the hit fraction in attributes like "50% (1/2)".
var conditionCoverage = regexp.MustCompile(`\((\d+)/(\d+)\)`)

type coberturaDoc struct {
	XMLName  xml.Name           `xml:"coverage"`
	Sources  []string           `xml:"sources>source"`
	Packages []coberturaPackage `xml:"packages>package"`
}

type coberturaPackage struct {
	Name    string           `xml:"name,attr"`
	Classes []coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Name     string          `xml:"name,attr"`
	Filename string          `xml:"filename,attr"`
	Lines    []coberturaLine `xml:"lines>line"`
}

type coberturaLine struct {
	Number            int    `xml:"number,attr"`
	Hits              int    `xml:"hits,attr"`
	Branch            bool   `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

// coberturaParser decodes Cobertura XML documents, the format emitted by
// coverage.py and most JVM coverage tools.
type coberturaParser struct{}

func (p *coberturaParser) Format() string { return global.FormatCobertura }

func (p *coberturaParser) Parse(payload []byte) (*core.ReportDraft, error) {
	doc := coberturaDoc{}
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, coberturaParseError(err)
	}
	return draftFromCobertura(&doc), nil
}

func coberturaParseError(err error) error {
	var syntaxErr *xml.SyntaxError
	location := ""
	if errors.As(err, &syntaxErr) {
		location = fmt.Sprintf("line %d", syntaxErr.Line)
	}
	return &errs.ParseError{Format: global.FormatCobertura, Location: location, Err: err}
}

// draftFromCobertura flattens package/class entries into file drafts.
// Class filenames are relative to the source root, so the last segment of
// the source directory is folded back in to yield repo-relative paths.
func draftFromCobertura(doc *coberturaDoc) *core.ReportDraft {
	prefix := sourcePrefix(doc.Sources)
	draft := &core.ReportDraft{}
	for i := range doc.Packages {
		for j := range doc.Packages[i].Classes {
			class := &doc.Packages[i].Classes[j]
			if class.Filename == "" {
				continue
			}
			draft.Files = append(draft.Files, fileFromClass(class, prefix))
		}
	}
	return draft
}

func sourcePrefix(sources []string) string {
	if len(sources) != 1 {
		return ""
	}
	base := path.Base(strings.TrimRight(strings.ReplaceAll(sources[0], `\`, "/"), "/"))
	if base == "/" || base == "." {
		return ""
	}
	return base
}

func fileFromClass(class *coberturaClass, prefix string) core.FileDraft {
	file := core.FileDraft{
		Filename: class.Filename,
		LineHits: make(map[int]int, len(class.Lines)),
	}
	if prefix != "" && !strings.HasPrefix(class.Filename, prefix+"/") {
		file.Filename = path.Join(prefix, class.Filename)
	}
	for _, line := range class.Lines {
		if _, tracked := file.LineHits[line.Number]; !tracked {
			file.TotalLines++
			if line.Hits > 0 {
				file.CoveredLines++
			}
		}
		file.LineHits[line.Number] += line.Hits
		if line.Branch || line.ConditionCoverage != "" {
			covered, total, ok := parseConditionCoverage(line.ConditionCoverage)
			if ok {
				file.HasBranches = true
				file.BranchesTotal += total
				file.BranchesCovered += covered
			}
		}
	}
	return file
}

func parseConditionCoverage(attr string) (covered, total int, ok bool) {
	match := conditionCoverage.FindStringSubmatch(attr)
	if match == nil {
		return 0, 0, false
	}
	// regex guarantees digits
	fmt.Sscanf(match[1], "%d", &covered)
	fmt.Sscanf(match[2], "%d", &total)
	return covered, total, total > 0
}
