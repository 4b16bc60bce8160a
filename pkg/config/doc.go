// Package config loads versioned YAML configuration documents.
//
// A [Loader] validates a document against its JSON schema before decoding
// it, and annotates syntax and schema errors with the offending source lines.
package config
