package execs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// defaultQueryTimeout bounds the login-shell PATH query. A shell stuck in a
// slow profile must not block resolution indefinitely.
const defaultQueryTimeout = 3 * time.Second

// Resolver locates executables the way the user's interactive shell would.
// The process's inherited PATH cannot be trusted alone: when launched from a
// GUI context it is minimal and misses developer tools. Resolution therefore
// consults the login shell's PATH first and falls back to well-known package
// manager directories.
//
// Successful lookups are memoized for the process lifetime. Misses are not,
// so a tool installed later is picked up by a subsequent lookup.
type Resolver struct {
	env          map[string]string
	probe        func(string) bool
	found        map[string]string
	pathDirs     []string
	deniedDirs   []string
	queryTimeout time.Duration
	pathOnce     sync.Once
	mu           sync.Mutex
}

// ResolverOpt configures a [Resolver].
type ResolverOpt func(*Resolver)

// WithEnviron sets the environment snapshot consulted for SHELL, HOME and
// USER. Defaults to [os.Environ].
func WithEnviron(environ []string) ResolverOpt {
	return func(r *Resolver) {
		r.env = environToMap(environ)
	}
}

// WithProbe replaces the executable-ness test. Used by tests to observe
// which paths are probed.
func WithProbe(probe func(string) bool) ResolverOpt {
	return func(r *Resolver) {
		r.probe = probe
	}
}

// WithQueryTimeout bounds the login-shell PATH query.
func WithQueryTimeout(d time.Duration) ResolverOpt {
	return func(r *Resolver) {
		r.queryTimeout = d
	}
}

// NewResolver creates a [Resolver].
func NewResolver(opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		env:          environToMap(os.Environ()),
		probe:        isExecutable,
		found:        map[string]string{},
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.deniedDirs = protectedDirs(r.env["HOME"])

	return r
}

// Find returns the path of the named executable, or ok=false when it cannot
// be located. Absence is a normal result, not an error.
func (r *Resolver) Find(ctx context.Context, name string) (string, bool) {
	r.mu.Lock()
	if path, ok := r.found[name]; ok {
		r.mu.Unlock()

		return path, true
	}
	r.mu.Unlock()

	logger := log.WithContext(ctx).With(slog.String("executable", name))

	for _, dir := range r.searchDirs(ctx) {
		if r.denied(dir) {
			logger.DebugContext(ctx, "skipping protected directory", slog.String("dir", dir))

			continue
		}

		candidate := filepath.Join(dir, name)
		if r.probe(candidate) {
			logger.DebugContext(ctx, "resolved executable", slog.String("path", candidate))

			r.mu.Lock()
			r.found[name] = candidate
			r.mu.Unlock()

			return candidate, true
		}
	}

	logger.DebugContext(ctx, "executable not found")

	return "", false
}

// searchDirs returns the effective search order: login-shell PATH entries,
// then package manager directories, then system path-list files, deduplicated
// in encounter order.
func (r *Resolver) searchDirs(ctx context.Context) []string {
	r.pathOnce.Do(func() {
		dirs := r.queryLoginPath(ctx)
		dirs = append(dirs, r.packageDirs()...)
		dirs = append(dirs, readPathsFiles()...)

		seen := make(map[string]struct{}, len(dirs))

		for _, dir := range dirs {
			dir = filepath.Clean(dir)
			if _, ok := seen[dir]; ok {
				continue
			}

			seen[dir] = struct{}{}
			r.pathDirs = append(r.pathDirs, dir)
		}
	})

	return r.pathDirs
}

// queryLoginPath asks the user's login shell to print its PATH. Any failure
// (no $SHELL, spawn error, non-zero exit, empty output) falls back to
// [FallbackPath].
func (r *Resolver) queryLoginPath(ctx context.Context) []string {
	logger := log.WithContext(ctx)

	shell := r.env["SHELL"]
	if shell == "" {
		logger.DebugContext(ctx, "SHELL unset, using fallback PATH")

		return parsePathList(FallbackPath)
	}

	flavor := FlavorOf(shell)
	query := shellQueries[flavor]

	cmd := NewCommand(mapToEnviron(r.env))
	cmd.Command = shell
	cmd.Args = query.args

	executor := NewExecutorWith(cmd, nil, WithTimeout(r.queryTimeout))

	res, err := executor.Exec(ctx, "")
	if err != nil || res.ExitCode != 0 || strings.TrimSpace(res.Stdout) == "" {
		logger.WarnContext(ctx, "login shell PATH query failed, using fallback PATH",
			slog.String("shell", shell),
			slog.String("flavor", string(flavor)),
			slog.Any("error", err),
		)

		return parsePathList(FallbackPath)
	}

	dirs := query.parse(res.Stdout)
	if len(dirs) == 0 {
		return parsePathList(FallbackPath)
	}

	logger.DebugContext(ctx, "login shell PATH resolved",
		slog.String("flavor", string(flavor)),
		slog.Int("dirs", len(dirs)),
	)

	return dirs
}

// packageDirs returns well-known install locations in a fixed order:
// Homebrew (Apple Silicon then Intel), MacPorts, asdf and mise shims, Nix
// profiles, and user-local bins.
func (r *Resolver) packageDirs() []string {
	home := r.env["HOME"]
	user := r.env["USER"]

	dirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/opt/local/bin",
	}

	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".asdf", "shims"),
			filepath.Join(home, ".local", "share", "mise", "shims"),
			filepath.Join(home, ".nix-profile", "bin"),
		)
	}

	if user != "" {
		dirs = append(dirs, filepath.Join("/etc/profiles/per-user", user, "bin"))
	}

	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, ".local", "bin"),
			filepath.Join(home, "bin"),
		)
	}

	return dirs
}

// denied reports whether dir lies inside a protected directory, checking the
// raw path first and then its symlink-resolved form. Protected directories
// are never statted for candidates: merely probing them can trigger OS
// permission prompts.
func (r *Resolver) denied(dir string) bool {
	if r.deniedMatch(dir) {
		return true
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}

	return r.deniedMatch(resolved)
}

func (r *Resolver) deniedMatch(dir string) bool {
	dir = filepath.Clean(dir)

	for _, denied := range r.deniedDirs {
		if dir == denied || strings.HasPrefix(dir, denied+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// protectedDirs returns the deny-list of user-sensitive folders.
func protectedDirs(home string) []string {
	if home == "" {
		return nil
	}

	return []string{
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Downloads"),
	}
}

// readPathsFiles collects directories declared in /etc/paths and
// /etc/paths.d/*, one per line.
func readPathsFiles() []string {
	files := []string{"/etc/paths"}

	if entries, err := os.ReadDir("/etc/paths.d"); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, filepath.Join("/etc/paths.d", entry.Name()))
			}
		}
	}

	var dirs []string

	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // G304: Fixed system paths.
		if err != nil {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				dirs = append(dirs, line)
			}
		}
	}

	return dirs
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))

	for _, kv := range environ {
		if eqIdx := strings.Index(kv, "="); eqIdx != -1 {
			m[kv[:eqIdx]] = kv[eqIdx+1:]
		}
	}

	return m
}

func mapToEnviron(m map[string]string) []string {
	environ := make([]string, 0, len(m))

	for k, v := range m {
		environ = append(environ, k+"="+v)
	}

	return environ
}
