package normalizer

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
)

type cloverDoc struct {
	XMLName  xml.Name        `xml:"coverage"`
	Projects []cloverProject `xml:"project"`
}

type cloverProject struct {
	Files    []cloverFile    `xml:"file"`
	Packages []cloverPackage `xml:"package"`
}

type cloverPackage struct {
	Name  string       `xml:"name,attr"`
	Files []cloverFile `xml:"file"`
}

type cloverFile struct {
	Name  string       `xml:"name,attr"`
	Path  string       `xml:"path,attr"`
	Lines []cloverLine `xml:"line"`
}

type cloverLine struct {
	Num        int    `xml:"num,attr"`
	Type       string `xml:"type,attr"`
	Count      int    `xml:"count,attr"`
	TrueCount  int    `xml:"truecount,attr"`
	FalseCount int    `xml:"falsecount,attr"`
}

// cloverParser decodes Clover XML, the format emitted by PHPUnit and the
// Atlassian Java tooling.
type cloverParser struct{}

func (p *cloverParser) Format() string { return global.FormatClover }

func (p *cloverParser) Parse(payload []byte) (*core.ReportDraft, error) {
	doc := cloverDoc{}
	if err := xml.Unmarshal(payload, &doc); err != nil {
		var syntaxErr *xml.SyntaxError
		location := ""
		if errors.As(err, &syntaxErr) {
			location = fmt.Sprintf("line %d", syntaxErr.Line)
		}
		return nil, &errs.ParseError{Format: global.FormatClover, Location: location, Err: err}
	}

	draft := &core.ReportDraft{}
	for i := range doc.Projects {
		project := &doc.Projects[i]
		for j := range project.Files {
			draft.Files = append(draft.Files, fileFromClover(&project.Files[j]))
		}
		for j := range project.Packages {
			for k := range project.Packages[j].Files {
				draft.Files = append(draft.Files, fileFromClover(&project.Packages[j].Files[k]))
			}
		}
	}
	return draft, nil
}

func fileFromClover(cf *cloverFile) core.FileDraft {
	name := cf.Path
	if name == "" {
		name = cf.Name
	}
	file := core.FileDraft{
		Filename: name,
		LineHits: make(map[int]int, len(cf.Lines)),
	}
	for _, line := range cf.Lines {
		switch line.Type {
		case "cond":
			file.HasBranches = true
			file.BranchesTotal += 2
			if line.TrueCount > 0 {
				file.BranchesCovered++
			}
			if line.FalseCount > 0 {
				file.BranchesCovered++
			}
			fallthrough
		default:
			hits := line.Count + line.TrueCount + line.FalseCount
			if _, tracked := file.LineHits[line.Num]; !tracked {
				file.TotalLines++
				if hits > 0 {
					file.CoveredLines++
				}
			}
			file.LineHits[line.Num] += hits
		}
	}
	return file
}
