package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/pkg/mcp"
)

type MCPArgs struct {
	*RootArgs

	Address string
}

func NewMCPArgs(rootArgs *RootArgs) *MCPArgs {
	return &MCPArgs{
		RootArgs: rootArgs,
	}
}

func (ma *MCPArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ma.Address, "address", "", "Listen address for streamable HTTP (empty serves stdio)")
}

func NewMCPCmd(args *RootArgs) *cobra.Command {
	ma := NewMCPArgs(args)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server without the dashboard",
		Long: `Run the MCP server without the dashboard.

By default the server speaks over stdio, for clients that spawn it as a
subprocess. With --address it serves streamable HTTP instead. Cluster
sweeps and task catalog scans keep running in the background so tool
calls always see fresh state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, ma)
		},
	}
	ma.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runMCP(cmd *cobra.Command, ma *MCPArgs) error {
	cfg, _, err := loadConfig(ma.RootArgs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := shutdownTracing(context.Background())
		if err != nil {
			slog.Error("shutdown tracing", slog.Any("err", err))
		}
	}()

	flt := newFleet(cfg)

	catalog, executor, err := newTaskSystem(cfg)
	if err != nil {
		return err
	}

	_, err = flt.SyncContexts(ctx)
	if err != nil {
		return fmt.Errorf("sync contexts: %w", err)
	}

	_, _, err = catalog.Scan(ctx)
	if err != nil {
		slog.Warn("scan tasks", slog.Any("err", err))
	}

	go func() {
		err := flt.Watch(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("fleet watch failed", slog.Any("err", err))
		}
	}()

	go func() {
		err := catalog.Watch(ctx, nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("task watch failed", slog.Any("err", err))
		}
	}()

	var opts []mcp.ServerOpt

	b, err := cfg.MarshalYAML()
	if err == nil {
		opts = append(opts, mcp.WithConfigYAML(b))
	}

	defer executor.CancelAll()

	err = mcp.NewServer(ma.Address, flt, catalog, executor, opts...).Serve(ctx)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}
