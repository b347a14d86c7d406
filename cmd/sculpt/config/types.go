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
	"fmt"
	"time"

	"github.com/AleutianAI/sculpt/services/sculpt/store"
	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

// SculptConfig is the layout of sculpt.yaml.
type SculptConfig struct {
	Settings  structure.Settings `yaml:"settings"`
	Matching  MatchingConfig     `yaml:"matching"`
	Logging   LoggingConfig      `yaml:"logging"`
	Store     StoreConfig        `yaml:"store"`
	Telemetry telemetry.Config   `yaml:"telemetry"`
	Server    ServerConfig       `yaml:"server"`
}

// MatchingConfig controls how handles are carried across reparses.
type MatchingConfig struct {
	// Fuzzy enables best-effort matching of nodes whose text changed.
	Fuzzy bool `yaml:"fuzzy"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "", "text" or "json"
	Dir    string `yaml:"dir"`
}

// Document sources served by "sculpt serve".
const (
	SourceDisk   = "disk"
	SourceBadger = "badger"
)

// StoreConfig configures the store database behind the edit journal and
// the badger document source.
type StoreConfig struct {
	// Journal records every applied change when the server runs.
	Journal bool `yaml:"journal"`

	// Source is where the server loads and saves documents: "disk" for
	// files under server.root, "badger" for files imported into the store
	// with "sculpt import".
	Source string `yaml:"source"`

	Path       string        `yaml:"path"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// Validate reports an unknown document source.
func (s StoreConfig) Validate() error {
	switch s.Source {
	case SourceDisk, SourceBadger:
		return nil
	}
	return fmt.Errorf("store.source %q: want %q or %q", s.Source, SourceDisk, SourceBadger)
}

// NeedsDB reports whether the server has to open the store database.
func (s StoreConfig) NeedsDB() bool {
	return s.Journal || s.Source == SourceBadger
}

// DB converts to a store.Config.
func (s StoreConfig) DB() store.Config {
	cfg := store.DefaultConfig()
	cfg.Path = s.Path
	cfg.InMemory = s.InMemory
	cfg.SyncWrites = s.SyncWrites
	if s.GCInterval > 0 {
		cfg.GCInterval = s.GCInterval
	}
	return cfg
}

// ServerConfig configures "sculpt serve".
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// Root confines the files the server may open. Empty means the
	// working directory.
	Root string `yaml:"root"`

	// Watch reloads open documents when their files change.
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period writes to one file are coalesced
	// over before a reload.
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Mode is the gin mode: "release", "debug" or "test".
	Mode string `yaml:"mode"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() SculptConfig {
	return SculptConfig{
		Settings: structure.DefaultSettings(),
		Matching: MatchingConfig{Fuzzy: true},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.sculpt/logs",
		},
		Store: StoreConfig{
			Journal:    true,
			Source:     SourceDisk,
			Path:       "~/.sculpt/journal",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Telemetry: telemetry.DefaultConfig(),
		Server: ServerConfig{
			Addr:          ":8080",
			Watch:         true,
			WatchDebounce: 100 * time.Millisecond,
			Mode:          "release",
		},
	}
}
