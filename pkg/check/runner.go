package check

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/macropower/presubmit/pkg/log"
	"github.com/macropower/presubmit/pkg/rule"
)

var (
	ErrUnknownRule = errors.New("unknown rule")

	tracer = otel.Tracer("github.com/macropower/presubmit/pkg/check")
)

// Runner applies an ordered set of rules to every file in a tree.
type Runner struct {
	rules    []*rule.Rule
	only     []string
	disabled []string
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(*Runner)

// WithOnly restricts the runner to the named rules.
func WithOnly(names ...string) RunnerOpt {
	return func(r *Runner) {
		r.only = append(r.only, names...)
	}
}

// WithDisabled removes the named rules.
func WithDisabled(names ...string) RunnerOpt {
	return func(r *Runner) {
		r.disabled = append(r.disabled, names...)
	}
}

// NewRunner creates a [Runner] for rules. Names given to [WithOnly] and
// [WithDisabled] must refer to rules in the set.
func NewRunner(rules []*rule.Rule, opts ...RunnerOpt) (*Runner, error) {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}

	names := make([]string, 0, len(rules))
	for _, rl := range rules {
		names = append(names, rl.Name())
	}

	for _, name := range slices.Concat(r.only, r.disabled) {
		if !slices.Contains(names, name) {
			return nil, unknownRuleError(name, names)
		}
	}

	for _, rl := range rules {
		if len(r.only) > 0 && !slices.Contains(r.only, rl.Name()) {
			continue
		}

		if slices.Contains(r.disabled, rl.Name()) {
			continue
		}

		r.rules = append(r.rules, rl)
	}

	return r, nil
}

func unknownRuleError(name string, names []string) error {
	matches := fuzzy.Find(name, names)
	if len(matches) > 0 {
		return fmt.Errorf("%w %q, did you mean %q?", ErrUnknownRule, name, matches[0].Str)
	}

	return fmt.Errorf("%w %q", ErrUnknownRule, name)
}

// Rules returns the rules the runner evaluates, in order.
func (r *Runner) Rules() []*rule.Rule {
	return slices.Clone(r.rules)
}

// Run checks every file in fsys and returns the report. Files are visited in
// lexical order. A file that cannot be read is recorded in the report and the
// run continues; only a failure to read the root, or cancellation of ctx,
// returns an error.
func (r *Runner) Run(ctx context.Context, fsys fs.FS) (*Report, error) {
	ctx, span := tracer.Start(ctx, "check.Run")
	defer span.End()

	logger := log.WithContext(ctx)
	start := time.Now()
	report := &Report{}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if d == nil || name == "." {
				return err
			}

			logger.Warn("skip unreadable directory",
				slog.String("path", name),
				slog.Any("error", err),
			)
			report.add(FileResult{Path: name, Err: fmt.Errorf("could not read directory: %w", err)})

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !r.isCheckable(fsys, name, d) {
			return nil
		}

		report.Scanned++

		res := r.checkFile(fsys, name)
		if res.failed() {
			logger.Debug("file failed",
				slog.String("path", name),
				slog.Int("violations", len(res.Messages)),
			)
			report.add(res)
		}

		return nil
	})

	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("presubmit.rules", len(r.rules)),
		attribute.Int("presubmit.scanned", report.Scanned),
		attribute.Int("presubmit.failed", len(report.Files)),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("walk files: %w", err)
	}

	logger.Info("check complete",
		slog.String("scanned", humanize.Comma(int64(report.Scanned))),
		slog.String("failed", humanize.Comma(int64(len(report.Files)))),
		slog.Int("rules", len(r.rules)),
		slog.Duration("duration", report.Duration),
	)

	return report, nil
}

// isCheckable reports whether a non-directory entry should be read. Symlinks
// to files are followed; symlinks to directories and special files are not.
func (r *Runner) isCheckable(fsys fs.FS, name string, d fs.DirEntry) bool {
	switch {
	case d.Type().IsRegular():
		return true
	case d.Type()&fs.ModeSymlink == 0:
		return false
	}

	info, err := fs.Stat(fsys, name)
	if err != nil {
		// Broken links are still reported if a rule applies to them.
		return true
	}

	return info.Mode().IsRegular()
}

// checkFile evaluates every applicable rule against one file, reading it at
// most once. A rule that errors is recorded and the remaining rules still run;
// a read error ends the file.
func (r *Runner) checkFile(fsys fs.FS, name string) FileResult {
	res := FileResult{Path: name}
	path := rule.MatchPath(name)

	var (
		content string
		loaded  bool
		errs    []error
	)

	for _, rl := range r.rules {
		ok, err := rl.Applies(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !ok {
			continue
		}

		if !loaded {
			content, err = rule.ReadText(fsys, name)
			if err != nil {
				errs = append(errs, fmt.Errorf("could not read file: %w", err))
				break
			}

			loaded = true
		}

		fails, err := rl.Fails(content)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if fails {
			res.Messages = append(res.Messages, rl.Message())
		}
	}

	res.Err = errors.Join(errs...)

	return res
}
