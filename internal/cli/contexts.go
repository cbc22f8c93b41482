package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
	"github.com/stefanprodan/kswitch-sub001/pkg/config"
)

func NewContextsCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contexts",
		Aliases: []string{"ctx"},
		Short:   "List and switch kubeconfig contexts",
	}

	cmd.AddCommand(
		newContextsListCmd(args),
		newContextsUseCmd(args),
	)

	return cmd
}

func newContextsListCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the contexts declared in the kubeconfig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := newKubeClient(cfg)

			contexts, err := client.ListContexts(ctx)
			if err != nil {
				return fmt.Errorf("list contexts: %w", err)
			}

			current, err := client.CurrentContext(ctx)
			if err != nil {
				current = ""
			}

			rows := [][]string{{"", "NAME", "CLUSTER", "NAMESPACE"}}
			for _, c := range contexts {
				mark := ""
				if c.Name == current {
					mark = "*"
				}

				rows = append(rows, []string{mark, c.Name, c.Cluster, c.Namespace})
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), renderColumns(rows)))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func newContextsUseCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "use <context>",
		Short:             "Switch the current kubeconfig context",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: contextCompletion(args),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			name := posArgs[0]

			err = newKubeClient(cfg).SetCurrentContext(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("switch context: %w", err)
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "switched to %s\n", name))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

// tryLoadConfig loads the active configuration for shell completion, where
// failures and first-run side effects must stay silent.
func tryLoadConfig(ra *RootArgs) *configs.Config {
	cl, err := config.NewLoaderFromFile(resolveConfigPath(ra), configs.New, configs.DefaultValidator)
	if err != nil {
		return configs.New()
	}

	cfg, err := cl.Load()
	if err != nil {
		return configs.New()
	}

	return cfg
}

// contextCompletion completes context names for the first positional
// argument.
func contextCompletion(args *RootArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, posArgs []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(posArgs) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		contexts, err := newKubeClient(tryLoadConfig(args)).ListContexts(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]cobra.Completion, 0, len(contexts))
		for _, c := range contexts {
			completions = append(completions, cobra.CompletionWithDesc(c.Name, c.Cluster))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}
