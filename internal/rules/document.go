// Package rules loads rule-set documents and compiles them into the runtime
// form the planner folds over. Rules are data: a document is parsed once at
// load time, including replaceWith templates, so no per-site string
// evaluation happens during planning.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/migr8/migr8/internal/report"
)

// Document is the rule-set document consumed verbatim by the rule engine.
// YAML and JSON are both accepted (JSON is a YAML subset).
type Document struct {
	Target  TargetSpec   `yaml:"target"`
	Rules   []RuleSetDoc `yaml:"rules"`
	Version int          `yaml:"version,omitempty"`
}

// TargetSpec scopes the document to a project.
type TargetSpec struct {
	RootPath   string   `yaml:"rootPath,omitempty"`
	Packages   []string `yaml:"packages,omitempty"`
	Components []string `yaml:"components,omitempty"`
}

// RuleSetDoc groups ordered transforms under one
// (sourcePackage, sourceComponent) -> (targetPackage, targetComponent)
// migration.
type RuleSetDoc struct {
	Name            string         `yaml:"name,omitempty"`
	Description     string         `yaml:"description,omitempty"`
	SourcePackage   string         `yaml:"sourcePackage"`
	SourceComponent string         `yaml:"sourceComponent"`
	ImportKind      string         `yaml:"importKind,omitempty"`
	Target          TargetDoc      `yaml:"target"`
	Transforms      []TransformDoc `yaml:"transforms"`
}

// TargetDoc names the replacement component.
type TargetDoc struct {
	Package    string `yaml:"package"`
	Component  string `yaml:"component"`
	ImportKind string `yaml:"importKind,omitempty"`
}

// TransformDoc is one ordered rule.
type TransformDoc struct {
	Order       int                 `yaml:"order"`
	Match       []map[string]string `yaml:"match,omitempty"`
	Remove      []string            `yaml:"remove,omitempty"`
	Rename      map[string]string   `yaml:"rename,omitempty"`
	Set         map[string]string   `yaml:"set,omitempty"`
	ReplaceWith *ReplaceDoc         `yaml:"replaceWith,omitempty"`
}

// ReplaceDoc describes a terminal node replacement.
type ReplaceDoc struct {
	InnerAttrs []string `yaml:"innerAttrs,omitempty"`
	Template   string   `yaml:"template"`
}

// Load reads and parses a rule-set document. Failure here is fatal: the run
// aborts before any file is touched.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, report.Fatal(fmt.Errorf("reading rules %s: %w", path, err))
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, report.Fatal(fmt.Errorf("parsing rules %s: %w", path, err))
	}
	if len(doc.Rules) == 0 {
		return nil, report.Fatalf("rules %s: document declares no rules", path)
	}
	return &doc, nil
}
