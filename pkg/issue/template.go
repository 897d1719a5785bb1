package issue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Keys identify what a section feeds into; labels are what the issue form
// prints as the heading.
const (
	KeySubmitterName        = "submitter_name"
	KeyChallengeName        = "challenge_name"
	KeyChallengeType        = "challenge_type"
	KeyChallengeDescription = "challenge_description"
	KeyFlag                 = "flag"
	KeySolution             = "solution"
	KeyExtraDetails         = "extra_details"
)

var coreKeys = []string{
	KeySubmitterName,
	KeyChallengeName,
	KeyChallengeType,
	KeyChallengeDescription,
	KeyFlag,
	KeySolution,
}

type Section struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label" json:"label"`
	Required bool   `yaml:"required" json:"required"`
}

type Template struct {
	Sections          []Section `yaml:"sections" json:"sections"`
	EmptyPlaceholders []string  `yaml:"empty_placeholders" json:"empty_placeholders"`
}

func LoadTemplate(path string) (Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTemplate(), err
	}

	var tpl Template
	if err := yaml.Unmarshal(content, &tpl); err != nil {
		return Template{}, fmt.Errorf("parsing issue template %s: %w", path, err)
	}

	if len(tpl.Sections) == 0 {
		return Template{}, errors.New("no issue template sections configured")
	}
	if tpl.EmptyPlaceholders == nil {
		tpl.EmptyPlaceholders = DefaultTemplate().EmptyPlaceholders
	}

	return tpl, nil
}

// DefaultTemplate mirrors the lab submission issue form.
func DefaultTemplate() Template {
	return Template{
		Sections: []Section{
			{Key: KeySubmitterName, Label: "Submitter Name", Required: true},
			{Key: KeyChallengeName, Label: "Challenge Name", Required: true},
			{Key: KeyChallengeType, Label: "Challenge Type", Required: true},
			{Key: KeyChallengeDescription, Label: "Challenge Description", Required: true},
			{Key: KeyFlag, Label: "Flag", Required: true},
			{Key: KeySolution, Label: "Solution", Required: true},
			{Key: KeyExtraDetails, Label: "Extra Details", Required: false},
		},
		EmptyPlaceholders: []string{"_No response_"},
	}
}

func (t Template) validate() error {
	seen := make(map[string]Section, len(t.Sections))
	for _, s := range t.Sections {
		if s.Label == "" {
			return fmt.Errorf("section %q has no label", s.Key)
		}
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("section %q declared twice", s.Key)
		}
		seen[s.Key] = s
	}
	for _, key := range coreKeys {
		s, ok := seen[key]
		if !ok {
			return fmt.Errorf("template is missing section %q", key)
		}
		if !s.Required {
			return fmt.Errorf("section %q must be required", key)
		}
	}
	for key := range seen {
		if key != KeyExtraDetails && !isCoreKey(key) {
			return fmt.Errorf("unknown section key %q", key)
		}
	}
	return nil
}

func isCoreKey(key string) bool {
	for _, k := range coreKeys {
		if k == key {
			return true
		}
	}
	return false
}
