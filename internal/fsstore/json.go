package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJSON reads a JSON file into out. Returns found=false when the file does
// not exist or is empty.
func ReadJSON(path string, out any) (bool, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(normalized)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read json %s: %w", normalized, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrDecodeFailed, normalized, err)
	}
	return true, nil
}

// WriteJSONAtomic writes v as JSON through a temp file and rename, so readers
// never observe a partial sidecar.
func WriteJSONAtomic(path string, v any, opts FileOptions) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	opts = opts.normalized()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrEncodeFailed, normalized, err)
	}
	data = append(data, '\n')

	parent := filepath.Dir(normalized)
	if err := EnsureDir(parent, opts.DirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(parent, filepath.Base(normalized)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Chmod(opts.FilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	if err := os.Rename(tmpPath, normalized); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrWriteFailed, normalized, err)
	}
	return nil
}
