// Package filex holds file helpers for the CLI: locating its data directory
// and writing downloads without leaving partial files behind.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic copies r into path through a temp file in the same
// directory. The destination only appears once the copy has fully
// succeeded; an existing file is replaced.
func WriteFileAtomic(path string, r io.Reader) (n int64, err error) {
	if err := EnsureParentDir(path); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if n, err = io.Copy(tmp, r); err != nil {
		return n, err
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}
