package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/daviddao/mailrules/internal/rules"
	"gopkg.in/yaml.v3"
)

// RuleFile pairs a rule tree with the action applied to its matches.
type RuleFile struct {
	Name   string        `json:"name,omitempty" yaml:"name,omitempty"`
	Rule   rules.RawNode `json:"rule" yaml:"rule"`
	Action rules.Action  `json:"action" yaml:"action"`
}

// LoadRuleFile reads a rule file. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON. Unknown keys are rejected.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf RuleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse rule file %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rf); err != nil {
			return nil, fmt.Errorf("parse rule file %s: %w", path, err)
		}
	}

	if rf.Name == "" {
		rf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &rf, nil
}

// Node converts the raw rule into a typed tree. A missing rule is an error;
// an explicit empty group is how a file selects every message.
func (rf *RuleFile) Node() (rules.Node, error) {
	n, err := rf.Rule.Node()
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", rf.Name, err)
	}
	return n, nil
}
