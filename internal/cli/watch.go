package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/log"
	"github.com/stefanprodan/kswitch-sub001/pkg/mcp"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
	"github.com/stefanprodan/kswitch-sub001/pkg/ui"
)

type WatchArgs struct {
	*RootArgs

	ServeMCP string
}

func NewWatchArgs(rootArgs *RootArgs) *WatchArgs {
	return &WatchArgs{
		RootArgs: rootArgs,
	}
}

func (wa *WatchArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&wa.ServeMCP, "serve-mcp", "", "Serve the MCP server at the specified address")
}

func NewWatchCmd(wa *WatchArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the fleet dashboard",
		Long: `Open the fleet dashboard.

Clusters are swept on an interval and re-synced when the kubeconfig
changes. With --serve-mcp, an MCP server runs alongside the dashboard and
task runs triggered through it stream into the output pane.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return watch(cmd, wa)
		},
	}
	wa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func watch(cmd *cobra.Command, wa *WatchArgs) error {
	cfg, _, err := loadConfig(wa.RootArgs)
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

	// If stdout is not a terminal, sweep once and print the table instead.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runStatusTable(ctx, cmd.OutOrStdout(), flt)
	}

	_, _, err = catalog.Scan(ctx)
	if err != nil {
		slog.Warn("scan tasks", slog.Any("err", err))
	}

	// The dashboard owns the terminal, so logs are buffered and flushed
	// after it exits.
	logBuf := log.NewCircularBuffer(100)

	logHandler, err := log.CreateHandlerWithStrings(logBuf, wa.LogLevel, wa.LogFormat)
	if err != nil {
		return fmt.Errorf("create log handler: %w", err)
	}

	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	ctx = log.ContextWithLogger(ctx, logger)

	if wa.ServeMCP != "" {
		var opts []mcp.ServerOpt

		b, err := cfg.MarshalYAML()
		if err == nil {
			opts = append(opts, mcp.WithConfigYAML(b))
		}

		mcpServer := mcp.NewServer(wa.ServeMCP, flt, catalog, executor, opts...)

		go func() {
			err := mcpServer.Serve(ctx)
			if err != nil {
				slog.Error("MCP server failed", slog.Any("err", err))
			}
		}()
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

	err = runDashboard(flt, executor)

	cancel()
	executor.CancelAll()
	flushLogs(cmd.ErrOrStderr(), logBuf)

	if err != nil {
		return fmt.Errorf("ui program failure: %w", err)
	}

	return nil
}

// runDashboard starts the dashboard program and pumps fleet and task events
// into it as messages.
func runDashboard(flt *fleet.Fleet, executor *task.Executor) error {
	p := ui.NewProgram(ui.NewModel(flt))

	fleetCh := make(chan fleet.Event)
	flt.Subscribe(fleetCh)

	taskCh := make(chan task.Event)
	executor.Subscribe(taskCh)

	go func() {
		for evt := range fleetCh {
			p.Send(evt)
		}
	}()

	go func() {
		for evt := range taskCh {
			p.Send(evt)
		}
	}()

	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("tea: %w", err)
	}

	return nil
}

func flushLogs(w io.Writer, buf *log.CircularBuffer) {
	slog.Debug("flush logs to console",
		slog.Int("count", buf.Size()),
		slog.Int("max", buf.Capacity()),
		slog.Bool("truncated", buf.IsFull()),
	)

	_, err := buf.WriteTo(w)
	if err != nil {
		panic(err)
	}
}
