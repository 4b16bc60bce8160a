// Package expr provides the CEL (Common Expression Language) environment used
// by rule `when` conditions.
//
// Expressions have access to one variable:
//   - `path` (string): the slash-separated path of the file, relative to the
//     scanned root and prefixed with "./".
//
// Besides the standard CEL string functions (`endsWith`, `contains`,
// `matches`, ...) and the [ext.Strings] library, the environment defines:
//   - pathBase(string): the last element of the path
//   - pathDir(string): all but the last element of the path
//   - pathExt(string): the extension of the last element, including the dot
//   - pathSegments(string): the path split on "/", without empty elements
package expr
