package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// Watch runs the periodic sweep loop until ctx is canceled. When kubeconfig
// paths were configured, edits to those files additionally trigger a context
// re-sync followed by an immediate sweep.
func (f *Fleet) Watch(ctx context.Context) error {
	if _, err := f.SyncContexts(ctx); err != nil {
		log.WithContext(ctx).ErrorContext(ctx, "initial context sync failed",
			slog.Any("error", err),
		)
	}

	f.RefreshAll(ctx)

	var (
		fsEvents chan fsnotify.Event
		fsErrors chan error
		watched  map[string]struct{}
	)

	if len(f.watchPaths) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create kubeconfig watcher: %w", err)
		}

		defer func() {
			if err := watcher.Close(); err != nil {
				log.WithContext(ctx).ErrorContext(ctx, "closing kubeconfig watcher",
					slog.Any("error", err),
				)
			}
		}()

		watched = make(map[string]struct{}, len(f.watchPaths))

		for _, path := range f.watchPaths {
			abs, err := filepath.Abs(path)
			if err != nil {
				continue
			}

			watched[abs] = struct{}{}

			// Watch the parent directory; editors and kubectl replace the
			// file on save, which drops a watch on the file itself.
			if err := watcher.Add(filepath.Dir(abs)); err != nil {
				log.WithContext(ctx).DebugContext(ctx, "cannot watch kubeconfig directory",
					slog.String("path", abs),
					slog.Any("error", err),
				)
			}
		}

		fsEvents = watcher.Events
		fsErrors = watcher.Errors
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck // Marks graceful shutdown.

		case <-ticker.C:
			f.RefreshAll(ctx)

		case evt := <-fsEvents:
			if _, ok := watched[evt.Name]; !ok || evt.Has(fsnotify.Chmod) {
				continue
			}

			log.WithContext(ctx).DebugContext(ctx, "kubeconfig changed",
				slog.String("path", evt.Name),
				slog.String("op", evt.Op.String()),
			)

			if _, err := f.SyncContexts(ctx); err != nil {
				log.WithContext(ctx).ErrorContext(ctx, "context sync failed",
					slog.Any("error", err),
				)

				continue
			}

			f.RefreshAll(ctx)

		case err := <-fsErrors:
			log.WithContext(ctx).ErrorContext(ctx, "kubeconfig watcher error",
				slog.Any("error", err),
			)
		}
	}
}
