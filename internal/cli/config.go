package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	udiff "github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/api/v1beta1/configs"
)

func NewConfigCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the kswitch configuration file",
	}

	cmd.AddCommand(
		newConfigInitCmd(args),
		newConfigShowCmd(args),
		newConfigPathCmd(args),
		newConfigDiffCmd(args),
	)

	return cmd
}

func newConfigInitCmd(args *RootArgs) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Long: `Write the default configuration file.

Without --force an existing file is left untouched. With --force it is
renamed to a timestamped backup first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath := resolveConfigPath(args)

			err := configs.WriteDefault(configPath, force)
			if err != nil {
				return err //nolint:wrapcheck // Error names the file already.
			}

			mustN(fmt.Fprintln(cmd.OutOrStdout(), configPath))

			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Back up an existing configuration file and overwrite it")

	bindEnvVars(cmd)

	return cmd
}

func newConfigShowCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, configPath, err := loadConfig(args)
			if err != nil {
				return err
			}

			slog.Info("active configuration", slog.String("path", configPath))

			yamlBytes, err := cfg.MarshalYAML()
			if err != nil {
				return fmt.Errorf("marshal config yaml: %w", err)
			}

			yamlConfig := string(yamlBytes)

			pretty, err := highlight(yamlConfig, "yaml")
			if err != nil {
				mustN(fmt.Fprintln(cmd.OutOrStdout(), yamlConfig))

				return err
			}

			mustN(fmt.Fprintln(cmd.OutOrStdout(), pretty))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func newConfigPathCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mustN(fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath(args)))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func newConfigDiffCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff the configuration file against the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath := resolveConfigPath(args)

			current, err := os.ReadFile(configPath)
			if errors.Is(err, fs.ErrNotExist) {
				// No file on disk means the defaults are active.
				current = configs.DefaultYAML()
			} else if err != nil {
				return fmt.Errorf("read config: %w", err)
			}

			unified := udiff.Unified("default", configPath, string(configs.DefaultYAML()), string(current))
			if unified == "" {
				mustN(fmt.Fprintln(cmd.OutOrStdout(), "configuration matches the defaults"))

				return nil
			}

			pretty, err := highlight(unified, "diff")
			if err != nil {
				mustN(fmt.Fprint(cmd.OutOrStdout(), unified))

				return err
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), pretty))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func resolveConfigPath(ra *RootArgs) string {
	if ra.ConfigPath != "" {
		return ra.ConfigPath
	}

	return configs.GetPath()
}
