package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HostFS reads pseudo-files from the live host, or from a copy of one
// mounted under Root.
type HostFS struct {
	Root string
}

func (h HostFS) resolve(path string) string {
	if h.Root == "" || h.Root == "/" {
		return path
	}
	return filepath.Join(h.Root, path)
}

// ReadText returns the file contents untrimmed.
func (h HostFS) ReadText(path string) (string, error) {
	data, err := os.ReadFile(h.resolve(path))
	if err != nil {
		return "", classifyFSError(path, err)
	}
	return string(data), nil
}

// ReadDir returns the sorted entry names of a directory.
func (h HostFS) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(h.resolve(path))
	if err != nil {
		return nil, classifyFSError(path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadLink returns the raw target of a symlink.
func (h HostFS) ReadLink(path string) (string, error) {
	target, err := os.Readlink(h.resolve(path))
	if err != nil {
		return "", classifyFSError(path, err)
	}
	return target, nil
}

func classifyFSError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", path, ErrPermission)
	}
	return fmt.Errorf("reading %s: %w", path, err)
}

// ReadTrimmed reads a single-value pseudo-file and trims whitespace.
func ReadTrimmed(fsys FS, path string) (string, error) {
	s, err := fsys.ReadText(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// LinkBase resolves a symlink and returns the last element of its target,
// e.g. the driver name behind /sys/class/net/eth0/device/driver.
func LinkBase(fsys FS, path string) (string, error) {
	target, err := fsys.ReadLink(path)
	if err != nil {
		return "", err
	}
	return filepath.Base(target), nil
}
