package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/presubmit/pkg/log"
)

const (
	cmdName = "presubmit"
	cmdDesc = `Check a source tree against regular expression presubmit rules.`
)

// ErrViolations is returned when at least one file failed a rule. The report
// has already been written, so it is not printed again.
var ErrViolations = errors.New("presubmit checks failed")

type RootArgs struct {
	LogLevel  string
	LogFormat string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))

	must(cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	))
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	checkArgs := NewCheckArgs(args)

	checkCmd := NewCheckCmd(checkArgs)
	cmd := &cobra.Command{
		Use:               cmdName + " [path]",
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		ValidArgsFunction: checkCmd.ValidArgsFunction,
		Args:              checkCmd.Args,
		RunE:              checkCmd.RunE,
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)
	checkArgs.AddFlags(cmd)
	cmd.AddCommand(checkCmd)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		err := log.Setup(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}

		return nil
	}
}
