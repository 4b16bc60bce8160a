// Package yaml wraps [github.com/goccy/go-yaml] for reading rule set files.
//
// It adds JSON schema validation ([Validator]) and errors that point at the
// offending line of the source document ([Error]).
package yaml
