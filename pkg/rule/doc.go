// Package rule defines presubmit rules: compiled regular-expression checks
// that apply to files selected by path suffix.
//
// A [Rule] is built once from a [Spec] and never changes afterwards. Each rule
// has a [Polarity]: a [Forbidden] pattern must not match a file's content, a
// [Required] pattern must. Patterns are matched from the start of the content
// and `.` matches newlines, so most patterns begin with `.*`.
//
// Every rule skips paths containing one of the baseline exemptions (build
// output and cache directories, see [BaselineExemptions]) in addition to its
// own exempt substrings.
package rule
