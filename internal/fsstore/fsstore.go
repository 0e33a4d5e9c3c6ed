// Package fsstore provides the filesystem primitives behind NDJSON export
// artifacts: exclusive append-only NDJSON writers and atomic JSON sidecar
// files for artifact metadata.
package fsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

var (
	ErrInvalidPath  = errors.New("fsstore: invalid path")
	ErrEncodeFailed = errors.New("fsstore: encode failed")
	ErrDecodeFailed = errors.New("fsstore: decode failed")
	ErrWriteFailed  = errors.New("fsstore: write failed")
)

type FileOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func (o FileOptions) normalized() FileOptions {
	if o.DirPerm == 0 {
		o.DirPerm = defaultDirPerm
	}
	if o.FilePerm == 0 {
		o.FilePerm = defaultFilePerm
	}
	return o
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

// EnsureDir creates path (and parents) with perm, defaulting to 0700.
func EnsureDir(path string, perm os.FileMode) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(normalized, perm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", normalized, err)
	}
	return nil
}
