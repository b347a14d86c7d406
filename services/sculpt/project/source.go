// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrOutsideRoot indicates a path escapes the root of a DiskSource.
var ErrOutsideRoot = errors.New("path outside source root")

// Source loads and saves document text. It is the loadText/saveText
// collaborator of the manager.
type Source interface {
	LoadText(ctx context.Context, path string) (string, error)
	SaveText(ctx context.Context, path, text string) error
}

// DiskSource reads and writes files under Root on the local file system.
//
// Relative paths are resolved against Root; an empty Root means the
// working directory. Saves write a temporary file next to the target and
// rename it into place, so readers never see a partial file.
type DiskSource struct {
	Root string
}

// Resolve returns the file system path for path.
func (s DiskSource) Resolve(path string) (string, error) {
	if s.Root == "" {
		return filepath.Abs(path)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || (len(rel) > 3 && rel[:3] == ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return full, nil
}

// LoadText reads the file at path.
func (s DiskSource) LoadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return string(data), nil
}

// SaveText replaces the file at path with text, keeping its permissions.
func (s DiskSource) SaveText(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.Resolve(path)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
