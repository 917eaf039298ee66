// Package storage locates the per-user data directory and the files the
// client keeps there.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "framedrive"

// EnvDataDir overrides the data directory.
const EnvDataDir = "FRAMEDRIVE_DATA_DIR"

// DataDir returns the directory for client files: $FRAMEDRIVE_DATA_DIR, else
// framedrive under the OS config directory, else the working directory.
// It is resolved on every call and not created.
func DataDir() string {
	if custom := os.Getenv(EnvDataDir); custom != "" {
		return custom
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, appDir)
	}
	return "."
}

func DataFile(name string) string {
	return filepath.Join(DataDir(), name)
}

// SearchPath lists where Find looks for name, in order.
func SearchPath(name string) []string {
	paths := []string{DataFile(name)}
	if local := filepath.Clean(name); local != paths[0] {
		paths = append(paths, local)
	}
	return paths
}

// Find returns the first existing file on SearchPath(name). A file next to
// the binary still works when the data directory has none. The error wraps
// fs.ErrNotExist when no candidate exists.
func Find(name string) (string, error) {
	paths := SearchPath(name)
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.Mode().IsRegular():
			return p, nil
		case err == nil:
			return "", fmt.Errorf("%s is not a regular file", p)
		case !errors.Is(err, fs.ErrNotExist):
			return "", err
		}
	}
	return "", fmt.Errorf("%s not found in %s: %w", name, strings.Join(paths, ", "), fs.ErrNotExist)
}

// WriteDataFile replaces name in the data directory. The data goes to a
// temporary file first, so a reader never sees a partial file.
func WriteDataFile(name string, data []byte, perm os.FileMode) error {
	path := DataFile(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
