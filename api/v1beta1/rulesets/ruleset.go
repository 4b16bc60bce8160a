// Package rulesets provides the RuleSet configuration type for presubmit.
package rulesets

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/presubmit/api"
	"github.com/macropower/presubmit/api/v1beta1"
	"github.com/macropower/presubmit/pkg/rule"
	"github.com/macropower/presubmit/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/main.go -o rulesets.v1beta1.json -root ../../..

var (
	// FileNames contains the valid names for rule set files, in lookup order.
	FileNames = []string{
		".presubmit.yaml",
		"presubmit.yaml",
	}

	//go:embed ruleset.yaml
	defaultRuleSetYAML []byte

	//go:embed rulesets.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for rule sets.
	ValidKinds = []string{"RuleSet"}

	// DefaultValidator validates rule sets against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/rulesets.v1beta1.json", schemaJSON)

	ErrDuplicateRule = errors.New("duplicate rule name")

	// Compile-time interface checks.
	_ v1beta1.Object = (*RuleSet)(nil)
)

// Rule is the configuration of a single presubmit rule.
type Rule struct {
	// Name identifies the rule for `--rule` and `--disable`.
	// Defaults to "rule-<n>", where n is the 1-based position in the list.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
	// Pattern is a regular expression matched from the start of the file,
	// with `.` also matching newlines.
	Pattern string `json:"pattern" jsonschema:"title=Pattern,minLength=1"`
	// Message is reported for each file that violates the rule.
	Message string `json:"message" jsonschema:"title=Message"`
	// When is an optional CEL expression over `path`. The rule only applies to
	// paths for which it returns true.
	When string `json:"when,omitempty" jsonschema:"title=When"`
	// MatchTimeout bounds a single match, e.g. "5s".
	MatchTimeout string `json:"matchTimeout,omitempty" jsonschema:"title=Match Timeout"`
	// Extensions are the path suffixes the rule applies to.
	Extensions []string `json:"extensions" jsonschema:"title=Extensions"`
	// ExemptSubstrings skip any path containing one of them, in addition to
	// the built-in generated-file exemptions.
	ExemptSubstrings []string `json:"exemptSubstrings,omitempty" jsonschema:"title=Exempt Substrings"`
	// Polarity is "forbidden" (fail when matched) or "required" (fail when
	// not matched). Always written when marshalled.
	Polarity rule.Polarity `json:"polarity"`
}

// JSONSchemaExtend keeps polarity optional in rule set documents.
func (Rule) JSONSchemaExtend(jss *jsonschema.Schema) {
	jss.Required = slices.DeleteFunc(jss.Required, func(name string) bool {
		return name == "polarity"
	})
}

// Spec converts the configuration into a [rule.Spec].
func (r *Rule) Spec() (rule.Spec, error) {
	spec := rule.Spec{
		Name:             r.Name,
		Pattern:          r.Pattern,
		Message:          r.Message,
		When:             r.When,
		Extensions:       r.Extensions,
		ExemptSubstrings: r.ExemptSubstrings,
		Polarity:         r.Polarity,
	}

	if r.MatchTimeout != "" {
		d, err := time.ParseDuration(r.MatchTimeout)
		if err != nil {
			return rule.Spec{}, fmt.Errorf("rule %q: match timeout: %w", r.Name, err)
		}

		spec.MatchTimeout = d
	}

	return spec, nil
}

// RuleSet is an ordered list of rules. Order determines the order of messages
// reported for a file.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type RuleSet struct {
	v1beta1.TypeMeta `json:",inline"`

	Rules []*Rule `json:"rules" jsonschema:"title=Rules"`
}

// New creates an empty [RuleSet].
func New() *RuleSet {
	rs := &RuleSet{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "RuleSet",
		},
	}
	rs.EnsureDefaults()

	return rs
}

// EnsureDefaults initializes nil fields and assigns names to unnamed rules.
func (rs *RuleSet) EnsureDefaults() {
	if rs.Rules == nil {
		rs.Rules = []*Rule{}
	}

	for i, r := range rs.Rules {
		if r != nil && r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i+1)
		}
	}
}

// Compile compiles every rule, in order. Rule names must be unique.
func (rs *RuleSet) Compile() ([]*rule.Rule, error) {
	rules := make([]*rule.Rule, 0, len(rs.Rules))
	seen := make(map[string]bool, len(rs.Rules))

	for i, r := range rs.Rules {
		if r == nil {
			return nil, fmt.Errorf("rules[%d]: empty rule", i)
		}

		if seen[r.Name] {
			return nil, fmt.Errorf("rules[%d]: %w: %q", i, ErrDuplicateRule, r.Name)
		}

		seen[r.Name] = true

		spec, err := r.Spec()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}

		compiled, err := rule.New(spec)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}

		rules = append(rules, compiled)
	}

	return rules, nil
}

func (rs RuleSet) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the rule set to YAML.
func (rs RuleSet) MarshalYAML() ([]byte, error) {
	type alias RuleSet

	b, err := api.MarshalYAML(alias(rs))
	if err != nil {
		return nil, fmt.Errorf("marshal rule set: %w", err)
	}

	return b, nil
}

// Default returns the embedded default rule set document.
func Default() []byte {
	return defaultRuleSetYAML
}

// Schema returns the embedded JSON schema for rule sets.
func Schema() []byte {
	return schemaJSON
}

// WriteDefault writes the embedded default ruleset.yaml to path.
// Using `force` backs up and replaces an existing file.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultRuleSetYAML, force, "rule set")
	if err != nil {
		return fmt.Errorf("write default rule set: %w", err)
	}

	return nil
}

// Find searches for a rule set file starting from targetPath and walking up
// the directory tree until the filesystem root. It checks all [FileNames] in
// each directory. Returns an empty string if no file is found.
func Find(targetPath string) (string, error) {
	path, err := api.FindConfigFile(targetPath, FileNames)
	if err != nil {
		return "", fmt.Errorf("find rule set: %w", err)
	}

	return path, nil
}
