package task

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// Catalog maintains the set of tasks discovered in one directory. It detects
// additions, removals and content changes by comparing a path-to-mtime map
// between scans, with mtimes truncated to the second.
type Catalog struct {
	tracer   trace.Tracer
	mtimes   map[string]time.Time
	dir      string
	suffix   string
	tasks    []Task
	interval time.Duration
	mu       sync.Mutex
}

// CatalogOpt configures a [Catalog].
type CatalogOpt func(*Catalog)

// WithSuffix overrides the filename suffix that marks a script as a task.
func WithSuffix(suffix string) CatalogOpt {
	return func(c *Catalog) {
		c.suffix = suffix
	}
}

// WithPollInterval overrides how often [Catalog.Watch] re-scans the
// directory.
func WithPollInterval(d time.Duration) CatalogOpt {
	return func(c *Catalog) {
		c.interval = d
	}
}

// NewCatalog creates a [Catalog] for the given directory. The directory does
// not need to exist; a missing directory yields an empty catalog.
func NewCatalog(dir string, opts ...CatalogOpt) *Catalog {
	c := &Catalog{
		tracer:   otel.Tracer("catalog"),
		dir:      dir,
		suffix:   DefaultSuffix,
		interval: DefaultPollInterval,
		mtimes:   map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dir != "" {
		if abs, err := filepath.Abs(c.dir); err == nil {
			c.dir = abs
		}
	}

	return c
}

// Dir returns the directory this catalog scans.
func (c *Catalog) Dir() string {
	return c.dir
}

// Scan rebuilds the catalog from the directory. The returned list is sorted
// by case-insensitive name, and changed reports whether any script was added,
// removed or modified since the previous scan.
func (c *Catalog) Scan(ctx context.Context) (tasks []Task, changed bool, err error) {
	ctx, span := c.tracer.Start(ctx, "scan", trace.WithAttributes(
		attribute.String("dir", c.dir),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(slog.String("dir", c.dir))

	entries, err := os.ReadDir(c.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.RecordError(err)

		return nil, false, fmt.Errorf("read tasks directory: %w", err)
	}

	mtimes := make(map[string]time.Time, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), c.suffix) {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logger.DebugContext(ctx, "skipping unreadable entry",
				slog.String("file", path),
				slog.Any("error", err),
			)

			continue
		}
		if info.Mode()&0o111 == 0 {
			logger.DebugContext(ctx, "skipping non-executable script",
				slog.String("file", path),
			)

			continue
		}

		t, err := c.load(path)
		if err != nil {
			logger.WarnContext(ctx, "skipping script with invalid header",
				slog.String("file", path),
				slog.Any("error", err),
			)

			continue
		}

		mtimes[path] = info.ModTime().Truncate(time.Second)
		tasks = append(tasks, t)
	}

	slices.SortFunc(tasks, func(a, b Task) int {
		if v := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); v != 0 {
			return v
		}

		return strings.Compare(a.Path, b.Path)
	})

	c.mu.Lock()
	changed = !sameMtimes(c.mtimes, mtimes)
	c.tasks = tasks
	c.mtimes = mtimes
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Int("tasks", len(tasks)),
		attribute.Bool("changed", changed),
	)

	return tasks, changed, nil
}

// Watch polls the directory until ctx is done, invoking onChange with the
// fresh task list whenever a scan detects a difference. The callback runs on
// the polling goroutine.
func (c *Catalog) Watch(ctx context.Context, onChange func([]Task)) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // Plain shutdown signal.
		case <-ticker.C:
			tasks, changed, err := c.Scan(ctx)
			if err != nil {
				log.WithContext(ctx).ErrorContext(ctx, "task scan failed",
					slog.Any("error", err),
				)

				continue
			}

			if changed && onChange != nil {
				onChange(tasks)
			}
		}
	}
}

// Tasks returns the task list from the most recent scan.
func (c *Catalog) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.tasks)
}

// Get returns the task with the given path.
func (c *Catalog) Get(path string) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tasks {
		if t.Path == path {
			return t, true
		}
	}

	return Task{}, false
}

// Find returns the task whose path or name matches ref. Names are matched
// case-insensitively, so `deploy app` finds "Deploy App".
func (c *Catalog) Find(ref string) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tasks {
		if t.Path == ref {
			return t, true
		}
	}

	for _, t := range c.tasks {
		if strings.EqualFold(t.Name, ref) {
			return t, true
		}
	}

	return Task{}, false
}

func (c *Catalog) load(path string) (Task, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Path comes from the scanned directory.
	if err != nil {
		return Task{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only.

	t := Task{Path: path}

	err = parseHeader(&t, f)
	if err != nil {
		return Task{}, err
	}

	return t, nil
}

func sameMtimes(a, b map[string]time.Time) bool {
	if len(a) != len(b) {
		return false
	}

	for path, at := range a {
		bt, ok := b[path]
		if !ok || !at.Equal(bt) {
			return false
		}
	}

	return true
}
