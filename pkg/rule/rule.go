package rule

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/cel-go/cel"

	"github.com/macropower/presubmit/pkg/expr"
)

// DefaultMatchTimeout bounds a single pattern match.
const DefaultMatchTimeout = 10 * time.Second

var (
	ErrInvalidPolarity = errors.New("invalid polarity")
	ErrEmptyPattern    = errors.New("empty pattern")
	ErrNotText         = errors.New("content is not valid UTF-8 text")
	ErrMatchTimeout    = errors.New("match timed out")

	// Generated files are never analyzed.
	baselineExemptions = []string{"/build/", "/out/", "cloudbuild-caches"}

	whenEnv = expr.MustNewEnvironment()
)

// BaselineExemptions returns the path substrings every rule skips.
func BaselineExemptions() []string {
	return slices.Clone(baselineExemptions)
}

// Spec is the uncompiled definition of a [Rule].
type Spec struct {
	// Name identifies the rule on the command line and in reports.
	Name string
	// Pattern is the regular expression to forbid or require.
	Pattern string
	// Message describes the violation.
	Message string
	// When is an optional CEL expression over `path` that must be true for
	// the rule to apply.
	When string
	// Extensions are the path suffixes the rule applies to.
	Extensions []string
	// ExemptSubstrings skip any path containing one of them.
	ExemptSubstrings []string
	// Polarity defaults to [Forbidden].
	Polarity Polarity
	// MatchTimeout defaults to [DefaultMatchTimeout].
	MatchTimeout time.Duration
}

// Rule is a compiled, immutable presubmit check.
type Rule struct {
	pattern    *regexp2.Regexp
	when       cel.Program
	name       string
	source     string
	message    string
	whenExpr   string
	extensions []string
	exemptions []string
	timeout    time.Duration
	polarity   Polarity
}

// New compiles spec into a [Rule].
func New(spec Spec) (*Rule, error) {
	if spec.Pattern == "" {
		return nil, fmt.Errorf("rule %q: %w", spec.Name, ErrEmptyPattern)
	}

	// Anchor at the start of the content, and let `.` cross lines.
	re, err := regexp2.Compile(`\A(?:`+spec.Pattern+`)`, regexp2.Singleline)
	if err != nil {
		return nil, fmt.Errorf("rule %q: compile pattern: %w", spec.Name, err)
	}

	re.MatchTimeout = spec.MatchTimeout
	if re.MatchTimeout <= 0 {
		re.MatchTimeout = DefaultMatchTimeout
	}

	r := &Rule{
		pattern:    re,
		name:       spec.Name,
		source:     spec.Pattern,
		message:    spec.Message,
		whenExpr:   spec.When,
		extensions: slices.Clone(spec.Extensions),
		exemptions: unionExemptions(spec.ExemptSubstrings),
		timeout:    re.MatchTimeout,
		polarity:   spec.Polarity,
	}

	if spec.When != "" {
		r.when, err = whenEnv.Compile(spec.When)
		if err != nil {
			return nil, fmt.Errorf("rule %q: when: %w", spec.Name, err)
		}
	}

	return r, nil
}

// MustNew creates a new rule and panics if there's an error.
func MustNew(spec Spec) *Rule {
	r, err := New(spec)
	if err != nil {
		panic(err)
	}

	return r
}

func unionExemptions(extra []string) []string {
	out := slices.Concat(baselineExemptions, extra)
	slices.Sort(out)

	return slices.Compact(out)
}

// Name returns the rule's name.
func (r *Rule) Name() string { return r.name }

// Message returns the message reported for a violating file.
func (r *Rule) Message() string { return r.message }

// Pattern returns the pattern as written, without the start anchor.
func (r *Rule) Pattern() string { return r.source }

// When returns the CEL gate expression, or "" if there is none.
func (r *Rule) When() string { return r.whenExpr }

// Polarity returns whether the pattern is forbidden or required.
func (r *Rule) Polarity() Polarity { return r.polarity }

// Extensions returns the path suffixes the rule applies to.
func (r *Rule) Extensions() []string { return slices.Clone(r.extensions) }

// MatchTimeout returns the bound on a single match.
func (r *Rule) MatchTimeout() time.Duration { return r.timeout }

// Exemptions returns the effective exemption set: the baseline plus the
// rule's own substrings, sorted.
func (r *Rule) Exemptions() []string { return slices.Clone(r.exemptions) }

// Applies reports whether the rule should look at the file at path. A file
// is skipped when it has none of the rule's extensions, when the path
// contains an exemption, or when the `when` expression is false.
func (r *Rule) Applies(path string) (bool, error) {
	if !slices.ContainsFunc(r.extensions, func(ext string) bool {
		return strings.HasSuffix(path, ext)
	}) {
		return false, nil
	}

	for _, ex := range r.exemptions {
		if strings.Contains(path, ex) {
			return false, nil
		}
	}

	if r.when == nil {
		return true, nil
	}

	ok, err := expr.EvalPath(r.when, path)
	if err != nil {
		return false, fmt.Errorf("rule %q: when: %w", r.name, err)
	}

	return ok, nil
}

// Fails reports whether content violates the rule.
func (r *Rule) Fails(content string) (bool, error) {
	matched, err := r.pattern.MatchString(content)
	if err != nil {
		// The engine's error quotes the whole input.
		return false, fmt.Errorf("rule %q: %w after %s", r.name, ErrMatchTimeout, r.timeout)
	}

	if r.polarity == Required {
		return !matched, nil
	}

	return matched, nil
}

// Evaluate checks the file name in fsys. The rule is gated on [MatchPath] of
// name; inapplicable files never fail. Files that cannot be read as text
// return an error rather than passing.
func (r *Rule) Evaluate(fsys fs.FS, name string) (bool, error) {
	ok, err := r.Applies(MatchPath(name))
	if err != nil || !ok {
		return false, err
	}

	content, err := ReadText(fsys, name)
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.name, err)
	}

	return r.Fails(content)
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s (%s %q)", r.name, r.polarity, r.source)
}

// MatchPath returns the form of an [fs.FS] path that rules are matched
// against: slash-separated and prefixed with "./", so that a top-level
// "build" directory still contains "/build/".
func MatchPath(name string) string {
	if name == "." || name == "" {
		return "."
	}

	return "./" + strings.TrimPrefix(name, "./")
}
