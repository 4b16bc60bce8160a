// Package check runs presubmit rules over a file tree.
//
// A [Runner] walks an [io/fs.FS] in lexical order and evaluates every
// applicable [rule.Rule] against each file, reading the file at most once.
// The resulting [Report] can be written in the plain text format
//
//	./java/Foo.java had errors:
//	  File did not include the license header.
//
// or as JSON. [Runner.Watch] repeats the run whenever the tree changes.
package check
