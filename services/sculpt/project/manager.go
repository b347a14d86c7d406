// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package project manages the set of open documents of a working tree.
//
// A Manager holds one morph.Document per path, loads and saves text
// through a Source, and keeps documents in step with the file system when
// a Watcher is attached.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

var (
	// ErrNotOpen indicates no document is open for a path.
	ErrNotOpen = errors.New("document not open")

	// ErrManagerClosed indicates the manager has been closed.
	ErrManagerClosed = errors.New("project manager closed")
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Settings are the manipulation settings of every opened document.
	Settings structure.Settings

	// SaveConcurrency bounds the goroutines used by SaveAll.
	// Default: 8.
	SaveConcurrency int

	// Observers are attached to every document on open, e.g. a
	// store.Journal observer.
	Observers []morph.Observer

	// DocumentOptions are passed to morph.Open after the manager's own.
	DocumentOptions []morph.Option

	// Logger is the manager logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultManagerConfig returns gofmt settings and a save concurrency of 8.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Settings:        structure.DefaultSettings(),
		SaveConcurrency: 8,
	}
}

// Manager owns the open documents of a project.
//
// # Description
//
// Documents are keyed by cleaned path. Concurrent Open calls for the same
// path share one load and parse. Each document serialises its own edits.
// On top of that the manager keeps one lock per document: Exclusive and
// Reload hold it, so a caller that looks up handles and then edits
// through them never interleaves with another such caller or with a
// reload from the watcher.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Manager struct {
	cfg    ManagerConfig
	source Source
	parser syntax.Parser
	logger *slog.Logger

	mu     sync.RWMutex
	docs   map[string]*morph.Document
	locks  map[string]*sync.Mutex
	closed bool
	flight singleflight.Group
}

// NewManager creates a manager.
//
// # Inputs
//
//   - source: Where text is loaded from and saved to. Must not be nil.
//   - parser: The front-end for every document. Must not be nil.
//   - cfg: Manager configuration. Use DefaultManagerConfig() for defaults.
//
// # Outputs
//
//   - *Manager: Ready-to-use manager.
//   - error: Non-nil for missing collaborators or invalid settings.
func NewManager(source Source, parser syntax.Parser, cfg ManagerConfig) (*Manager, error) {
	if source == nil || parser == nil {
		return nil, errors.New("source and parser are required")
	}
	if cfg.SaveConcurrency <= 0 {
		cfg.SaveConcurrency = 8
	}
	cfg.Settings = cfg.Settings.WithDefaults()
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		source: source,
		parser: parser,
		logger: cfg.Logger,
		docs:   make(map[string]*morph.Document),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Key returns the map key of path.
func Key(path string) string { return filepath.Clean(path) }

// Open returns the document for path, loading it on first use.
func (m *Manager) Open(ctx context.Context, path string) (*morph.Document, error) {
	key := Key(path)
	m.mu.RLock()
	doc, ok := m.docs[key]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}
	if ok {
		return doc, nil
	}

	v, err, _ := m.flight.Do(key, func() (interface{}, error) {
		m.mu.RLock()
		doc, ok := m.docs[key]
		m.mu.RUnlock()
		if ok {
			return doc, nil
		}

		text, err := m.source.LoadText(ctx, key)
		if err != nil {
			return nil, err
		}
		opts := append([]morph.Option{
			morph.WithPath(key),
			morph.WithSettings(m.cfg.Settings),
			morph.WithLogger(m.logger),
		}, m.cfg.DocumentOptions...)
		doc, err = morph.Open(ctx, m.parser, text, opts...)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", key, err)
		}
		for _, obs := range m.cfg.Observers {
			doc.Observe(obs)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			_ = doc.Close()
			return nil, ErrManagerClosed
		}
		m.docs[key] = doc
		m.locks[key] = &sync.Mutex{}
		m.logger.Info("document opened",
			slog.String("path", key),
			slog.String("document_id", doc.ID()),
			slog.Int("bytes", len(text)))
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*morph.Document), nil
}

// Get returns the open document for path, or nil.
func (m *Manager) Get(path string) *morph.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[Key(path)]
}

// GetOrErr returns the open document for path, or ErrNotOpen.
func (m *Manager) GetOrErr(path string) (*morph.Document, error) {
	if doc := m.Get(path); doc != nil {
		return doc, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotOpen)
}

// Documents returns the open documents ordered by path.
func (m *Manager) Documents() []*morph.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*morph.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// Exclusive runs fn on the open document for path while holding the
// document's manager lock. Lookups and edits made inside fn see no
// concurrent Exclusive or Reload on the same document. fn must not call
// Exclusive or Reload for the same path.
func (m *Manager) Exclusive(path string, fn func(doc *morph.Document) error) error {
	key := Key(path)
	m.mu.RLock()
	doc, ok := m.docs[key]
	lock := m.locks[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotOpen)
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(doc)
}

// Close closes the document for path. Every wrapper of the document is
// forgotten. Closing a path that is not open is a no-op.
func (m *Manager) Close(path string) error {
	key := Key(path)
	m.mu.Lock()
	doc, ok := m.docs[key]
	delete(m.docs, key)
	delete(m.locks, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.logger.Info("document closed", slog.String("path", key))
	return doc.Close()
}

// CloseAll closes every document and rejects further opens.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	docs := m.docs
	m.docs = make(map[string]*morph.Document)
	m.locks = make(map[string]*sync.Mutex)
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, doc := range docs {
		if err := doc.Close(); err != nil && !errors.Is(err, morph.ErrDocumentClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save writes the text of the document for path back to the source.
func (m *Manager) Save(ctx context.Context, path string) error {
	doc, err := m.GetOrErr(path)
	if err != nil {
		return err
	}
	if err := m.source.SaveText(ctx, doc.Path(), doc.Text()); err != nil {
		return err
	}
	m.logger.Debug("document saved",
		slog.String("path", doc.Path()),
		slog.Uint64("generation", doc.Generation()))
	return nil
}

// SaveAll saves every open document concurrently and returns the first
// error.
func (m *Manager) SaveAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.SaveConcurrency)
	for _, doc := range m.Documents() {
		g.Go(func() error {
			return m.source.SaveText(ctx, doc.Path(), doc.Text())
		})
	}
	return g.Wait()
}

// Reload re-reads the text for path and applies the difference to the
// open document as one narrowed edit. Wrappers outside the changed
// region survive.
func (m *Manager) Reload(ctx context.Context, path string) (morph.Change, error) {
	var change morph.Change
	err := m.Exclusive(path, func(doc *morph.Document) error {
		text, err := m.source.LoadText(ctx, doc.Path())
		if err != nil {
			return err
		}
		change, err = doc.ReplaceAll(ctx, text)
		if err != nil {
			return fmt.Errorf("reload %s: %w", doc.Path(), err)
		}
		if len(change.Edits) > 0 {
			m.logger.Info("document reloaded",
				slog.String("path", doc.Path()),
				slog.Uint64("generation", change.Generation),
				slog.Int("forgotten", change.Forgotten))
		}
		return nil
	})
	if err != nil {
		return morph.Change{}, err
	}
	return change, nil
}
