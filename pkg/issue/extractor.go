package issue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ctf-labs/lab-publisher/pkg/common/failure"
)

// Submission holds the sections pulled out of an issue body. ExtraDetails is
// nil when the optional section is missing or blank.
type Submission struct {
	SubmitterName        string
	ChallengeName        string
	ChallengeType        string
	ChallengeDescription string
	Flag                 string
	Solution             string
	ExtraDetails         *string
}

type compiledSection struct {
	section Section
	re      *regexp.Regexp
}

type Extractor struct {
	sections     []compiledSection
	placeholders map[string]struct{}
}

func NewExtractor(tpl Template) (*Extractor, error) {
	if err := tpl.validate(); err != nil {
		return nil, fmt.Errorf("invalid issue template: %w", err)
	}

	compiled := make([]compiledSection, 0, len(tpl.Sections))
	for _, s := range tpl.Sections {
		compiled = append(compiled, compiledSection{section: s, re: sectionPattern(s.Label)})
	}

	placeholders := make(map[string]struct{}, len(tpl.EmptyPlaceholders))
	for _, p := range tpl.EmptyPlaceholders {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			placeholders[trimmed] = struct{}{}
		}
	}

	return &Extractor{sections: compiled, placeholders: placeholders}, nil
}

// sectionPattern matches the "### <label>" heading line and captures everything
// up to the next line starting with "###" or the end of the body. The capture
// is non-greedy so the first following heading ends the section, even when the
// section itself is empty.
func sectionPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)###[ \t]+` + regexp.QuoteMeta(label) + `[ \t]*(?:\r?\n|\z)([\s\S]*?)(?:^###\s|\z)`)
}

// ExtractField returns the trimmed text under the first "### <label>" heading,
// or "" when there is no such heading.
func ExtractField(body, label string) string {
	return extract(sectionPattern(label), body)
}

func extract(re *regexp.Regexp, body string) string {
	match := re.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// Extract reads every section of the template. The first required section
// that is empty is reported as a content error naming its label.
func (e *Extractor) Extract(body string) (*Submission, error) {
	sub := &Submission{}
	for _, cs := range e.sections {
		value := extract(cs.re, body)

		if !cs.section.Required {
			if _, ok := e.placeholders[value]; ok {
				value = ""
			}
		}

		if value == "" {
			if cs.section.Required {
				return nil, failure.Content(cs.section.Label, fmt.Errorf(
					"Missing required field %q in the issue body. Make sure the template has not been modified.",
					cs.section.Label,
				))
			}
			continue
		}

		sub.set(cs.section.Key, value)
	}
	return sub, nil
}

func (s *Submission) set(key, value string) {
	switch key {
	case KeySubmitterName:
		s.SubmitterName = value
	case KeyChallengeName:
		s.ChallengeName = value
	case KeyChallengeType:
		s.ChallengeType = value
	case KeyChallengeDescription:
		s.ChallengeDescription = value
	case KeyFlag:
		s.Flag = value
	case KeySolution:
		s.Solution = value
	case KeyExtraDetails:
		v := value
		s.ExtraDetails = &v
	}
}
