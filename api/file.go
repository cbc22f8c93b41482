package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stefanprodan/kswitch-sub001/pkg/yaml"
)

// GetConfigPath returns the path of filename inside the kswitch config
// directory: $XDG_CONFIG_HOME/kswitch when set, else ~/.config/kswitch,
// else a temp directory when no home can be resolved.
func GetConfigPath(filename string) string {
	if xdgHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		return filepath.Join(xdgHome, "kswitch", filename)
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "kswitch", filename)
	}

	tmpPath := filepath.Join(os.TempDir(), "kswitch", filename)

	slog.Warn("could not determine user config directory, using temp path",
		slog.String("path", tmpPath),
		slog.Any("error", err),
	)

	return tmpPath
}

// regularFileError reports why an existing path cannot be treated as a
// regular file.
func regularFileError(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s: path is a directory", path)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: unknown file state", path)
	}

	return nil
}

// ReadFile reads a regular file, rejecting directories and special files.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if err := regularFileError(path, info); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: the path is operator-supplied.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// MarshalYAML serializes an object to YAML bytes.
func MarshalYAML(obj any) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)

	err := enc.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("close encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteIfNotExists writes data to path unless a file is already there.
func WriteIfNotExists(path string, data []byte) error {
	info, err := os.Stat(path)
	if err == nil {
		if ferr := regularFileError(path, info); ferr != nil {
			return ferr
		}

		// Keep what is already there.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// WriteDefaultFile writes default content to path. With force, an existing
// file is renamed to a timestamped .old backup first.
func WriteDefaultFile(path string, defaultData []byte, force bool, kind string) error {
	fileExists := false

	info, err := os.Stat(path)
	if err == nil {
		ferr := regularFileError(path, info)
		if ferr != nil {
			return ferr
		}

		fileExists = true
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if fileExists && force {
		backupName := fmt.Sprintf("%s.%d.old", filepath.Base(path), time.Now().UnixNano())
		backupPath := filepath.Join(filepath.Dir(path), backupName)

		slog.Info("backing up existing file",
			slog.String("type", kind),
			slog.String("path", backupPath),
		)

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing %s file to backup: %w", kind, err)
		}

		fileExists = false
	}

	if fileExists {
		slog.Debug("file already exists, skipping write",
			slog.String("type", kind),
			slog.String("path", path),
		)

		return nil
	}

	slog.Info("write default file",
		slog.String("type", kind),
		slog.String("path", path),
	)

	err = os.WriteFile(path, defaultData, 0o600)
	if err != nil {
		return fmt.Errorf("write %s file: %w", kind, err)
	}

	return nil
}
