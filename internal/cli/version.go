package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/pkg/version"
)

func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sb strings.Builder

			writeVersionLine(&sb, "version", version.GetVersion())
			writeVersionLine(&sb, "revision", version.Revision)
			writeVersionLine(&sb, "branch", version.Branch)
			writeVersionLine(&sb, "build date", version.BuildDate)
			writeVersionLine(&sb, "go version", version.GoVersion)
			writeVersionLine(&sb, "platform", version.GoOS+"/"+version.GoArch)

			mustN(fmt.Fprint(cmd.OutOrStdout(), sb.String()))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func writeVersionLine(sb *strings.Builder, label, value string) {
	if value == "" {
		value = "unknown"
	}

	fmt.Fprintf(sb, "%-12s%s\n", label+":", value)
}
