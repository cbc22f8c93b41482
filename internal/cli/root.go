package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

const (
	cmdName = "kswitch"
	cmdDesc = `Fleet status dashboard, context switcher, and task runner for Kubernetes clusters.`

	cmdExamples = `  # Open the fleet dashboard:
  kswitch

  # Sweep every cluster once and print the status table:
  kswitch status

  # Inspect a single cluster in detail:
  kswitch status prod-eu

  # Switch the current kubectl context:
  kswitch contexts use staging

  # Run a task, prompting for missing required inputs:
  kswitch tasks run drain-node

  # Run a task non-interactively:
  kswitch tasks run drain-node --input node=worker-3 --input grace=60

  # Serve the MCP server over stdio:
  kswitch mcp`
)

type RootArgs struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the kswitch configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))

	var err error

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	watchArgs := NewWatchArgs(args)

	watchCmd := NewWatchCmd(watchArgs)
	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		Args:              watchCmd.Args,
		RunE:              watchCmd.RunE,
	}

	args.AddFlags(cmd)
	watchArgs.AddFlags(cmd)
	cmd.AddCommand(
		watchCmd,
		NewStatusCmd(args),
		NewContextsCmd(args),
		NewTasksCmd(args),
		NewMCPCmd(args),
		NewConfigCmd(args),
		NewVersionCmd(),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return nil
	}
}
