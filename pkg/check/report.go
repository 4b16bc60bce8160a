package check

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/macropower/presubmit/pkg/rule"
)

// FileResult holds the messages of every rule a file violated, in rule order.
// Err is set when the file could not be checked.
type FileResult struct {
	Err      error
	Path     string
	Messages []string
}

func (f FileResult) failed() bool {
	return f.Err != nil || len(f.Messages) > 0
}

// Lines returns the messages to print for the file, followed by one line per
// error in Err.
func (f FileResult) Lines() []string {
	lines := f.Messages
	if f.Err != nil {
		lines = append(lines[:len(lines):len(lines)], strings.Split(f.Err.Error(), "\n")...)
	}

	return lines
}

// Report is the outcome of one [Runner.Run].
type Report struct {
	// Files lists every file with at least one violation or error, in the
	// order they were visited.
	Files    []FileResult
	Scanned  int
	Duration time.Duration
}

func (r *Report) add(f FileResult) {
	r.Files = append(r.Files, f)
}

// Failed reports whether any file violated a rule or could not be checked.
func (r *Report) Failed() bool {
	return len(r.Files) > 0
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

// WriteText writes one block per failed file:
//
//	./path/to/File.java had errors:
//	  File did not include the license header.
//
// When styled is true the header line is highlighted.
func (r *Report) WriteText(w io.Writer, styled bool) error {
	var sb strings.Builder

	for _, f := range r.Files {
		header := rule.MatchPath(f.Path) + " had errors: "
		if styled {
			header = headerStyle.Render(header)
		}

		sb.WriteString(header)
		sb.WriteString("\n  ")
		sb.WriteString(strings.Join(f.Lines(), "\n  "))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

type jsonFile struct {
	Path     string   `json:"path"`
	Error    string   `json:"error,omitempty"`
	Messages []string `json:"messages"`
}

type jsonReport struct {
	Files   []jsonFile `json:"files"`
	Scanned int        `json:"scanned"`
	Failed  bool       `json:"failed"`
}

// WriteJSON writes the report as a single JSON object.
func (r *Report) WriteJSON(w io.Writer) error {
	out := jsonReport{
		Failed:  r.Failed(),
		Scanned: r.Scanned,
		Files:   make([]jsonFile, 0, len(r.Files)),
	}

	for _, f := range r.Files {
		jf := jsonFile{
			Path:     f.Path,
			Messages: f.Messages,
		}
		if jf.Messages == nil {
			jf.Messages = []string{}
		}

		if f.Err != nil {
			jf.Error = f.Err.Error()
		}

		out.Files = append(out.Files, jf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(out)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
