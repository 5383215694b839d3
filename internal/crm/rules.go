package crm

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rule table. Unknown keys are rejected.
func ParseRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file rulesFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("rules file is empty")
		}
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	return file.Rules, nil
}

// LoadClassifier builds a classifier from a YAML file, or the default table
// when path is empty.
func LoadClassifier(path string) (*Classifier, error) {
	if path == "" {
		return DefaultClassifier(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewClassifier(rules)
}

// MarshalRules renders rules in the same YAML shape ParseRules reads.
func MarshalRules(rules []Rule) ([]byte, error) {
	return yaml.Marshal(rulesFile{Rules: rules})
}
