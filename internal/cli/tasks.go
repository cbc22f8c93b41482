package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stefanprodan/kswitch-sub001/pkg/ansis"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

func NewTasksCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, inspect, and run automation tasks",
	}

	cmd.AddCommand(
		newTasksListCmd(args),
		newTasksShowCmd(args),
		newTasksRunCmd(args),
	)

	return cmd
}

func newTasksListCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks discovered in the tasks directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			catalog, _, err := newTaskSystem(cfg)
			if err != nil {
				return err
			}

			tasks, _, err := catalog.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan tasks: %w", err)
			}

			if len(tasks) == 0 {
				mustN(fmt.Fprintf(cmd.OutOrStdout(), "no tasks in %s\n", catalog.Dir()))

				return nil
			}

			rows := [][]string{{"NAME", "INPUTS", "DESCRIPTION"}}
			for _, t := range tasks {
				rows = append(rows, []string{t.Name, inputsText(t), t.Description})
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), renderColumns(rows)))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func newTasksShowCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "show <task>",
		Short:             "Show a task's inputs and script source",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: taskCompletion(args),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			catalog, _, err := newTaskSystem(cfg)
			if err != nil {
				return err
			}

			_, _, err = catalog.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan tasks: %w", err)
			}

			t, ok := catalog.Find(posArgs[0])
			if !ok {
				return fmt.Errorf("unknown task %q in %s", posArgs[0], catalog.Dir())
			}

			w := cmd.OutOrStdout()

			mustN(fmt.Fprintf(w, "task: %s\n", t.Name))
			if t.Description != "" {
				mustN(fmt.Fprintf(w, "%s\n", t.Description))
			}
			mustN(fmt.Fprintf(w, "path: %s\n", t.Path))

			if len(t.Inputs) > 0 {
				mustN(fmt.Fprint(w, "\ninputs:\n"))

				rows := make([][]string, 0, len(t.Inputs))
				for _, in := range t.Inputs {
					requirement := "optional"
					if in.Required {
						requirement = "required"
					}

					rows = append(rows, []string{
						in.Name,
						"$" + task.EnvName(in.Name),
						requirement,
						in.Description,
					})
				}

				mustN(fmt.Fprint(w, indent(renderColumns(rows))))
			}

			source, err := os.ReadFile(t.Path)
			if err != nil {
				return fmt.Errorf("read task script: %w", err)
			}

			mustN(fmt.Fprintln(w))

			pretty, err := highlight(string(source), "bash")
			if err != nil {
				mustN(fmt.Fprintln(w, strings.TrimRight(string(source), "\n")))

				return err
			}

			mustN(fmt.Fprintln(w, strings.TrimRight(pretty, "\n")))

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func newTasksRunCmd(args *RootArgs) *cobra.Command {
	var (
		inputFlags []string
		plain      bool
		copyOutput bool
	)

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a task and stream its output",
		Long: `Run a task and stream its output.

Inputs are passed with repeated --input flags. When stdin is a terminal,
missing required inputs are prompted for interactively; otherwise they are
an error.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: taskCompletion(args),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			catalog, executor, err := newTaskSystem(cfg)
			if err != nil {
				return err
			}

			_, _, err = catalog.Scan(ctx)
			if err != nil {
				return fmt.Errorf("scan tasks: %w", err)
			}

			t, ok := catalog.Find(posArgs[0])
			if !ok {
				return fmt.Errorf("unknown task %q in %s", posArgs[0], catalog.Dir())
			}

			inputs, err := parseInputFlags(t, inputFlags)
			if err != nil {
				return err
			}

			err = promptMissingInputs(ctx, t, inputs)
			if err != nil {
				return err
			}

			// Stream output chunks as the process produces them. The end
			// event arrives before Run returns, so waiting on done never
			// races the summary below.
			ch := make(chan task.Event)
			executor.Subscribe(ch)

			done := make(chan struct{})
			go func() {
				defer close(done)

				for evt := range ch {
					switch e := evt.(type) {
					case task.EventOutput:
						if plain {
							mustN(fmt.Fprint(cmd.OutOrStdout(), ansis.Plain(e.Chunk)))
						} else {
							mustN(fmt.Fprint(cmd.OutOrStdout(), string(e.Chunk)))
						}

					case task.EventEnd, task.EventCancel:
						return
					}
				}
			}()

			run, err := executor.Run(ctx, t, inputs)
			if err != nil {
				return err //nolint:wrapcheck // Executor errors name the task already.
			}

			<-done

			if copyOutput {
				out := ansis.Plain(run.RawOutput)
				// Copy using OSC 52.
				termenv.Copy(out)
				// Copy using native system clipboard.
				_ = clipboard.WriteAll(out) //nolint:errcheck // Can be ignored.
				mustN(fmt.Fprintln(cmd.ErrOrStderr(), "copied task output"))
			}

			switch {
			case run.TimedOut:
				return fmt.Errorf("task %q timed out after %s", t.Name, run.Duration.Round(time.Second))
			case run.Canceled:
				return fmt.Errorf("task %q canceled", t.Name)
			case run.ExitCode != 0:
				return fmt.Errorf("task %q failed with exit code %d", t.Name, run.ExitCode)
			}

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputFlags, "input", nil, "Task input as name=value, repeatable")
	cmd.Flags().BoolVar(&plain, "plain", false, "Strip escape sequences from streamed output")
	cmd.Flags().BoolVar(&copyOutput, "copy", false, "Copy the captured output to the clipboard")

	bindEnvVars(cmd)

	return cmd
}

// parseInputFlags turns repeated name=value flags into an input map. Names
// the task does not declare are rejected to catch typos before anything
// runs.
func parseInputFlags(t task.Task, pairs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid input %q, expected name=value", pair)
		}

		if _, declared := t.Input(name); !declared {
			return nil, fmt.Errorf("task %q does not declare input %q", t.Name, name)
		}

		inputs[name] = value
	}

	return inputs, nil
}

// promptMissingInputs asks for required inputs that were not provided via
// flags. Outside an interactive terminal it leaves the map untouched and
// lets the executor report what is missing.
func promptMissingInputs(ctx context.Context, t task.Task, inputs map[string]string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	values := map[string]*string{}

	var fields []huh.Field

	for _, in := range t.Inputs {
		if !in.Required || inputs[in.Name] != "" {
			continue
		}

		v := new(string)
		values[in.Name] = v

		fields = append(fields, huh.NewInput().
			Title(in.Name).
			Description(in.Description).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("required")
				}

				return nil
			}).
			Value(v))
	}

	if len(fields) == 0 {
		return nil
	}

	form := huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false)

	err := form.RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("prompt inputs: %w", err)
	}

	for name, v := range values {
		inputs[name] = *v
	}

	return nil
}

func inputsText(t task.Task) string {
	if len(t.Inputs) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		name := in.Name
		if in.Required {
			name += "*"
		}

		parts = append(parts, name)
	}

	return strings.Join(parts, ", ")
}

// taskCompletion completes task names for the first positional argument.
func taskCompletion(args *RootArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, posArgs []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(posArgs) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		catalog, _, err := newTaskSystem(tryLoadConfig(args))
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		tasks, _, err := catalog.Scan(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]cobra.Completion, 0, len(tasks))
		for _, t := range tasks {
			completions = append(completions, cobra.CompletionWithDesc(t.Name, t.Description))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}
