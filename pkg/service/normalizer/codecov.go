package normalizer

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/global"
)

const (
	networkMarker = "<<<<<< network"
	eofMarker     = "<<<<<< EOF"
	pathPrefix    = "# path="
)

// codecovParser decodes the codecov-bash multipart upload: a network
// section listing the repository's files, followed by one section per
// coverage document, each introduced by "# path=" and terminated by
// "<<<<<< EOF". The embedded documents are Cobertura XML.
//
// Files reported by a document but absent from the network list do not
// belong to the repository and are dropped.
type codecovParser struct{}

func (p *codecovParser) Format() string { return global.FormatCodecov }

func (p *codecovParser) Parse(payload []byte) (*core.ReportDraft, error) {
	network, sections, err := splitSections(payload)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, &errs.ParseError{
			Format: global.FormatCodecov,
			Err:    errors.New("no coverage sections in payload"),
		}
	}

	draft := &core.ReportDraft{}
	for _, section := range sections {
		doc := coberturaDoc{}
		if err := xml.Unmarshal(section.body, &doc); err != nil {
			return nil, &errs.ParseError{
				Format:   global.FormatCodecov,
				Location: pathPrefix + section.path,
				Err:      err,
			}
		}
		part := draftFromCobertura(&doc)
		draft.Files = append(draft.Files, part.Files...)
	}
	return filterByNetwork(draft, network), nil
}

type codecovSection struct {
	path string
	body []byte
}

// splitSections separates the network file list from the coverage sections.
func splitSections(payload []byte) (network map[string]struct{}, sections []codecovSection, err error) {
	network = make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), global.MaxUploadBytes)

	inNetwork := true
	var current *codecovSection
	var body bytes.Buffer

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == networkMarker:
			inNetwork = false
		case strings.HasPrefix(trimmed, pathPrefix):
			if current != nil {
				return nil, nil, unterminatedSection(current.path)
			}
			current = &codecovSection{path: strings.TrimPrefix(trimmed, pathPrefix)}
			body.Reset()
			inNetwork = false
		case trimmed == eofMarker:
			if current == nil {
				return nil, nil, &errs.ParseError{
					Format: global.FormatCodecov,
					Err:    errors.New("section terminator without a section"),
				}
			}
			current.body = append([]byte(nil), bytes.TrimSpace(body.Bytes())...)
			sections = append(sections, *current)
			current = nil
		case current != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		case inNetwork && trimmed != "":
			network[path.Clean(trimmed)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &errs.ParseError{Format: global.FormatCodecov, Err: err}
	}
	if current != nil {
		return nil, nil, unterminatedSection(current.path)
	}
	return network, sections, nil
}

func unterminatedSection(sectionPath string) error {
	return &errs.ParseError{
		Format:   global.FormatCodecov,
		Location: pathPrefix + sectionPath,
		Err:      fmt.Errorf("section not terminated with %q", eofMarker),
	}
}

func filterByNetwork(draft *core.ReportDraft, network map[string]struct{}) *core.ReportDraft {
	if len(network) == 0 {
		return draft
	}
	kept := draft.Files[:0]
	for _, file := range draft.Files {
		if _, ok := network[path.Clean(file.Filename)]; ok {
			kept = append(kept, file)
		}
	}
	draft.Files = kept
	return draft
}
