// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is the configuration loaded by Load.
	Global SculptConfig
	once   sync.Once
)

// DefaultPath returns ~/.sculpt/sculpt.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".sculpt", "sculpt.yaml"), nil
}

// Load reads the configuration into Global once. An empty path means
// DefaultPath. A missing file is created with DefaultConfig.
func Load(path string) error {
	var err error
	once.Do(func() {
		Global, err = LoadFile(path)
	})
	return err
}

// LoadFile reads the configuration at path without touching Global.
// Keys absent from the file keep their DefaultConfig values.
func LoadFile(path string) (SculptConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return SculptConfig{}, err
		}
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return SculptConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return SculptConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SculptConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Logging.Dir = ExpandHome(cfg.Logging.Dir)
	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	if err := cfg.Settings.Validate(); err != nil {
		return SculptConfig{}, fmt.Errorf("settings in %s: %w", path, err)
	}
	if err := cfg.Store.Validate(); err != nil {
		return SculptConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
