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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType classifies an external change to a watched file.
type ChangeType int

const (
	// ChangeWrite means the file was written or replaced.
	ChangeWrite ChangeType = iota
	// ChangeRemove means the file was deleted or renamed away.
	ChangeRemove
)

func (c ChangeType) String() string {
	switch c {
	case ChangeWrite:
		return "write"
	case ChangeRemove:
		return "remove"
	}
	return fmt.Sprintf("change(%d)", int(c))
}

// WatchEvent reports how the watcher handled one external change.
type WatchEvent struct {
	Path string
	Type ChangeType

	// Err is the reload or close error, if any.
	Err error
}

// DefaultDebounce is how long a watched file must stay quiet after a write
// before its document is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period writes to one file are coalesced
// over. Zero or less reloads on every write event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher keeps open documents in step with the file system.
//
// # Description
//
// Writes to a watched file are coalesced per path: the document is
// reloaded through Manager.Reload once no further write has arrived for
// the debounce period, so one editor save costs one reload. A remove or
// rename closes the document at once and drops its pending reload.
// Parent directories are watched rather than the files themselves so that
// atomic saves (write temp, rename over) are seen as writes.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Watcher struct {
	m       *Manager
	source  DiskSource
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	onEvent  func(WatchEvent)
	timeout  time.Duration
	debounce time.Duration

	mu      sync.Mutex
	paths   map[string]string      // absolute path -> manager key
	dirs    map[string]int         // watched directory -> watched file count
	pending map[string]*time.Timer // manager key -> reload timer
	due     chan string
	done    chan struct{}
}

// NewWatcher starts a watcher for documents of m loaded from source.
// onEvent, when not nil, is called after each handled change.
func NewWatcher(m *Manager, source DiskSource, onEvent func(WatchEvent), opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		m:       m,
		source:  source,
		watcher: fw,
		logger:  m.logger,
		onEvent:  onEvent,
		timeout:  30 * time.Second,
		debounce: DefaultDebounce,
		paths:    make(map[string]string),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
		due:      make(chan string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.loop()
	return w, nil
}

// Add starts watching the file behind the manager key path.
func (w *Watcher) Add(path string) error {
	abs, err := w.source.Resolve(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.paths[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.paths[abs] = Key(path)
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	abs, err := w.source.Resolve(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forget(abs)
	return nil
}

func (w *Watcher) forget(abs string) {
	if _, ok := w.paths[abs]; !ok {
		return
	}
	delete(w.paths, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if err := w.watcher.Remove(dir); err != nil {
			w.logger.Debug("directory was not being watched", slog.String("dir", dir))
		}
	}
}

// Close stops the watcher. Pending reloads are dropped.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	w.mu.Lock()
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case key := <-w.due:
			w.mu.Lock()
			delete(w.pending, key)
			w.mu.Unlock()
			w.apply(key, ChangeWrite)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	var typ ChangeType
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		typ = ChangeWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		typ = ChangeRemove
	default:
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	key, ok := w.paths[abs]
	if ok && typ == ChangeRemove {
		w.forget(abs)
		if t, pending := w.pending[key]; pending {
			t.Stop()
			delete(w.pending, key)
		}
	}
	deferred := ok && typ == ChangeWrite && w.debounce > 0
	if deferred {
		w.schedule(key)
	}
	w.mu.Unlock()
	if !ok || deferred {
		return
	}
	w.apply(key, typ)
}

// schedule arms or pushes back the reload timer of key. The caller holds
// w.mu.
func (w *Watcher) schedule(key string) {
	if t, ok := w.pending[key]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() {
		select {
		case w.due <- key:
		case <-w.done:
		}
	})
}

func (w *Watcher) apply(key string, typ ChangeType) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	ev := WatchEvent{Path: key, Type: typ}
	switch typ {
	case ChangeWrite:
		_, ev.Err = w.m.Reload(ctx, key)
	case ChangeRemove:
		ev.Err = w.m.Close(key)
	}
	if ev.Err != nil {
		w.logger.Warn("external change not applied",
			slog.String("path", key),
			slog.String("event", typ.String()),
			slog.String("error", ev.Err.Error()))
	} else {
		w.logger.Debug("external change applied",
			slog.String("path", key),
			slog.String("event", typ.String()))
	}
	if w.onEvent != nil {
		w.onEvent(ev)
	}
}
