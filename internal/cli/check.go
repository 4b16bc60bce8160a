package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/presubmit/api/v1beta1/rulesets"
	"github.com/macropower/presubmit/pkg/check"
	"github.com/macropower/presubmit/pkg/config"
	"github.com/macropower/presubmit/pkg/log"
)

const (
	cmdExamples = `  # Check the current directory:
  presubmit

  # Check a directory with a specific rule set:
  presubmit ./java --config ./tools/presubmit.yaml

  # Only run some rules:
  presubmit --rule license-header --rule trailing-newline

  # Skip a rule, and print the report as JSON:
  presubmit --disable js-console-logging --format json

  # Re-run whenever a file changes:
  presubmit --watch

  # Write the built-in rule set to .presubmit.yaml:
  presubmit --write-config`

	formatText = "text"
	formatJSON = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown report format")
	ErrNotDirectory  = errors.New("not a directory")

	allFormats = []string{formatText, formatJSON}
)

type CheckArgs struct {
	*RootArgs

	Path        string
	ConfigPath  string
	Format      string
	Rules       []string
	Disable     []string
	Watch       bool
	WriteConfig bool
	Force       bool
	ShowConfig  bool
}

func NewCheckArgs(rootArgs *RootArgs) *CheckArgs {
	return &CheckArgs{
		RootArgs: rootArgs,
	}
}

func (ca *CheckArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ca.ConfigPath, "config", "",
		"Path to the rule set, default is the nearest .presubmit.yaml or the built-in rules")
	cmd.Flags().StringVar(&ca.Format, "format", formatText, fmt.Sprintf("Report format, one of: %s", allFormats))
	cmd.Flags().StringSliceVar(&ca.Rules, "rule", nil, "Only run the named rules")
	cmd.Flags().StringSliceVar(&ca.Disable, "disable", nil, "Do not run the named rules")
	cmd.Flags().BoolVarP(&ca.Watch, "watch", "w", false, "Watch for changes and re-run")
	cmd.Flags().BoolVar(&ca.WriteConfig, "write-config", false, "Write the built-in rule set to the target directory and exit")
	cmd.Flags().BoolVar(&ca.Force, "force", false, "With --write-config, back up and replace an existing file")
	cmd.Flags().BoolVar(&ca.ShowConfig, "show-config", false, "Print the active rule set and exit")

	must(cmd.MarkFlagFilename("config", "yaml", "yml"))
	must(cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(allFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("rule", ruleCompletion(ca)))
	must(cmd.RegisterFlagCompletionFunc("disable", ruleCompletion(ca)))
}

func NewCheckCmd(ca *CheckArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check [path]",
		Short:   "Default command, can be used explicitly if the path is ambiguous",
		Example: cmdExamples,
		Args:    cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return nil, cobra.ShellCompDirectiveFilterDirs
			}

			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ca.Path = "."
			if len(args) > 0 {
				ca.Path = args[0]
			}

			return run(cmd, ca)
		},
		SilenceUsage: true,
	}
	ca.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func ruleCompletion(ca *CheckArgs) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		path := ca.Path
		if path == "" {
			path = "."
		}

		rs, _, err := loadRuleSet(path, ca.ConfigPath, false)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]cobra.Completion, 0, len(rs.Rules))
		for _, r := range rs.Rules {
			completions = append(completions, cobra.CompletionWithDesc(r.Name, r.Message))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func run(cmd *cobra.Command, ca *CheckArgs) error {
	ctx := cmd.Context()
	logger := log.WithContext(ctx)

	if !slices.Contains(allFormats, ca.Format) {
		return fmt.Errorf("%w %q, must be one of: %s", ErrUnknownFormat, ca.Format, allFormats)
	}

	root, err := filepath.Abs(ca.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat path: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", ca.Path, ErrNotDirectory)
	}

	if ca.WriteConfig {
		return rulesets.WriteDefault(filepath.Join(root, rulesets.FileNames[0]), ca.Force)
	}

	rs, source, err := loadRuleSet(root, ca.ConfigPath, isTerminal(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	logger.Debug("loaded rule set",
		slog.String("source", source),
		slog.Int("rules", len(rs.Rules)),
	)

	if ca.ShowConfig {
		b, err := rs.MarshalYAML()
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(b)
		if err != nil {
			return fmt.Errorf("write rule set: %w", err)
		}

		return nil
	}

	rules, err := rs.Compile()
	if err != nil {
		return fmt.Errorf("invalid rule set %s: %w", source, err)
	}

	runner, err := check.NewRunner(rules,
		check.WithOnly(ca.Rules...),
		check.WithDisabled(ca.Disable...),
	)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	out := cmd.OutOrStdout()
	styled := isTerminal(out)

	if ca.Watch {
		logger.Info("watching for changes", slog.String("path", root))

		err := runner.Watch(ctx, root, func(report *check.Report, err error) {
			if err != nil {
				logger.Error("check failed", slog.Any("error", err))
				return
			}

			err = writeReport(out, ca.Format, report, styled)
			if err != nil {
				logger.Error("write report", slog.Any("error", err))
			}
		})
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}

		return nil
	}

	report, err := runner.Run(ctx, os.DirFS(root))
	if err != nil {
		return fmt.Errorf("check %s: %w", ca.Path, err)
	}

	err = writeReport(out, ca.Format, report, styled)
	if err != nil {
		return err
	}

	if report.Failed() {
		return ErrViolations
	}

	return nil
}

// loadRuleSet loads the rule set at configPath, or the nearest one above
// root, or the built-in default. It returns a description of the source.
func loadRuleSet(root, configPath string, colored bool) (*rulesets.RuleSet, string, error) {
	if configPath == "" {
		found, err := rulesets.Find(root)
		if err != nil {
			return nil, "", err //nolint:wrapcheck // Already wrapped.
		}

		configPath = found
	}

	opts := []config.LoaderOpt{config.WithColor(colored)}

	var (
		loader *config.Loader[*rulesets.RuleSet]
		source = "built-in rule set"
	)

	if configPath == "" {
		loader = config.NewLoaderFromBytes(rulesets.Default(), rulesets.New, rulesets.DefaultValidator, opts...)
	} else {
		source = configPath

		var err error

		loader, err = config.NewLoaderFromFile(configPath, rulesets.New, rulesets.DefaultValidator, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("read rule set: %w", err)
		}
	}

	err := loader.Validate()
	if err != nil {
		return nil, "", fmt.Errorf("invalid rule set %s: %w", source, err)
	}

	rs, err := loader.Load()
	if err != nil {
		return nil, "", fmt.Errorf("invalid rule set %s: %w", source, err)
	}

	return rs, source, nil
}

func writeReport(w io.Writer, format string, report *check.Report, styled bool) error {
	if format == formatJSON {
		return report.WriteJSON(w) //nolint:wrapcheck // Already wrapped.
	}

	return report.WriteText(w, styled) //nolint:wrapcheck // Already wrapped.
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
