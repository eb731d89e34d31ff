// Package jsonfile reads and writes whole JSON documents on disk.
//
// Writes never leave a half-written target: the document is written to a
// temporary sibling, synced, renamed over the target, and then the directory
// is synced. There is no locking; concurrent writers from separate processes
// race and the last rename wins.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tgienger/ruidmap/internal/apperr"
)

// Marshal encodes v with 2-space indentation and a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write pretty-prints v and atomically replaces path with it. If encoding
// fails the existing file is not touched.
func Write(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return WriteBytes(path, data)
}

// WriteBytes atomically replaces path with data.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &apperr.IOError{Op: "create dir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &apperr.IOError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &apperr.IOError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &apperr.IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &apperr.IOError{Op: "chmod", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &apperr.IOError{Op: "rename", Path: path, Err: err}
	}
	if err := syncDir(dir); err != nil {
		return &apperr.IOError{Op: "sync dir", Path: dir, Err: err}
	}
	return nil
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}

// Read returns the file contents. A missing file is reported with an error
// that matches os.ErrNotExist.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperr.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Copy copies src to dst verbatim, replacing dst atomically.
func Copy(src, dst string) error {
	data, err := Read(src)
	if err != nil {
		return err
	}
	return WriteBytes(dst, data)
}
