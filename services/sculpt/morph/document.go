// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package morph keeps stable handles on the nodes of an incrementally
// edited Go source document.
//
// # Description
//
// A Document owns the current text, the current parse tree and a cache of
// handles. Every edit reparses the text and remaps each live handle onto
// the node that now stands where its old node stood, or forgets it. A
// handle therefore either points at the right node of the latest tree or
// fails every operation with ErrForgotten; it never silently points at an
// unrelated node.
//
// Typed handles expose capability traits (Named, WithBody, WithMembers,
// ...) and a structure view: ToStructure reads a node into a
// structure.Structure and Set writes a modified structure back as the
// smallest text edit that produces it.
package morph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Change describes one applied edit batch.
type Change struct {
	// Generation is the tree generation the edits produced.
	Generation uint64 `json:"generation"`

	// Edits are the applied edits in ascending position, identity edits
	// removed. Empty when nothing changed.
	Edits []TextEdit `json:"edits"`

	// Remapped counts handles carried over to the new tree.
	Remapped int `json:"remapped"`

	// Forgotten counts handles the remap forgot.
	Forgotten int `json:"forgotten"`
}

// Observer is notified after each applied edit batch. It runs after the
// state lock is released but while the edit lock is still held, so it may
// read the document but must neither edit it nor block.
type Observer func(doc *Document, change Change)

type config struct {
	id         string
	path       string
	settings   structure.Settings
	tieBreaker TieBreaker
	fuzzy      bool
	logger     *slog.Logger
}

// Option configures a Document.
type Option func(*config)

// WithID sets the document ID. Defaults to a random UUID.
func WithID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.id = id
		}
	}
}

// WithPath records the path the text was loaded from.
func WithPath(path string) Option {
	return func(c *config) { c.path = path }
}

// WithSettings sets the rendering settings.
func WithSettings(s structure.Settings) Option {
	return func(c *config) { c.settings = s.WithDefaults() }
}

// WithTieBreaker replaces DefaultTieBreaker for fuzzy remapping.
func WithTieBreaker(tb TieBreaker) Option {
	return func(c *config) {
		if tb != nil {
			c.tieBreaker = tb
		}
	}
}

// WithFuzzyMatching enables or disables the overlap fallback of the remap.
// Enabled by default.
func WithFuzzyMatching(enabled bool) Option {
	return func(c *config) { c.fuzzy = enabled }
}

// WithLogger sets the document logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Document is one open source document with its handle cache.
//
// # Thread Safety
//
// Every mutation, whether a raw edit or a handle operation such as Rename
// or Set, holds the edit lock from the moment it reads the handle's node
// until the new tree is committed. Mutations from any goroutine therefore
// apply one at a time, in lock order, each against the result of the
// previous one. Read-only navigation through handles is not synchronized
// with edits on other goroutines; project.Manager serializes those callers
// per document.
//
// Observers run while the edit lock is still held and must not edit the
// document.
type Document struct {
	cfg      config
	parser   syntax.Parser
	renderer *structure.Renderer
	logger   *slog.Logger

	// editMu is held for a whole mutation. mu guards the committed state;
	// commit takes both.
	editMu sync.Mutex

	mu        sync.Mutex
	text      string
	arena     *arena
	root      *SourceFile
	batches   []*Batch
	observers map[int]Observer
	nextObs   int
	closed    bool
}

// Open parses text and returns a document at generation zero.
//
// # Inputs
//
//   - ctx: Cancels the initial parse.
//   - parser: The parser used for every generation.
//   - text: Initial document text.
//   - opts: Document options.
//
// # Outputs
//
//   - *Document: The document, its root handle already created.
//   - error: Invalid settings or a parse failure.
func Open(ctx context.Context, parser syntax.Parser, text string, opts ...Option) (*Document, error) {
	if parser == nil {
		return nil, fmt.Errorf("open document: parser must not be nil")
	}
	cfg := config{
		id:         uuid.NewString(),
		settings:   structure.DefaultSettings(),
		tieBreaker: DefaultTieBreaker,
		fuzzy:      true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	tree, err := parser.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	d := &Document{
		cfg:       cfg,
		parser:    parser,
		renderer:  structure.NewRenderer(cfg.settings),
		logger:    cfg.logger.With(slog.String("document_id", cfg.id)),
		text:      text,
		arena:     newArena(0, tree),
		observers: make(map[int]Observer),
	}
	d.root = wrapAs[*SourceFile](d, tree.Root())
	if tree.HasError() {
		d.logger.Warn("document has syntax errors", slog.String("path", cfg.path))
	}
	return d, nil
}

// ID returns the document ID.
func (d *Document) ID() string { return d.cfg.id }

// Path returns the path the document was opened from, if any.
func (d *Document) Path() string { return d.cfg.path }

// Settings returns the rendering settings.
func (d *Document) Settings() structure.Settings { return d.renderer.Settings() }

// Root returns the handle of the source file node. The same handle is
// kept across every edit until the document is closed.
func (d *Document) Root() *SourceFile { return d.root }

// Text returns the current text.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Tree returns the current tree. It is replaced, not mutated, by edits.
func (d *Document) Tree() *syntax.Tree {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.arena.tree
}

// Generation returns the number of edit batches that changed the text.
func (d *Document) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.arena.generation
}

// LiveHandles returns the number of handles that are not forgotten.
func (d *Document) LiveHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.arena.live
}

// ApplyTextEdits applies a batch of edits atomically: the text is
// spliced, reparsed once and every live handle is remapped.
//
// # Description
//
// Edits are positioned against the current text and must not overlap.
// Edits whose replacement equals the text they replace are dropped; a
// batch with nothing left is a no-op that keeps the generation. On error
// the document is unchanged.
//
// # Outputs
//
//   - Change: What was applied.
//   - error: *RangeError for invalid ranges, ErrDocumentClosed, or a
//     parse failure.
func (d *Document) ApplyTextEdits(ctx context.Context, edits ...TextEdit) (Change, error) {
	defer d.exclusive()()
	return d.apply(ctx, "ApplyTextEdits", edits, nil)
}

// ApplyTextEditsAsync runs ApplyTextEdits on another goroutine. Edits from
// concurrent calls never interleave.
func (d *Document) ApplyTextEditsAsync(ctx context.Context, edits ...TextEdit) <-chan error {
	out := make(chan error, 1)
	go func() {
		_, err := d.ApplyTextEdits(ctx, edits...)
		out <- err
		close(out)
	}()
	return out
}

// ReplaceText replaces r with text.
func (d *Document) ReplaceText(ctx context.Context, r Range, text string) (Change, error) {
	defer d.exclusive()()
	return d.apply(ctx, "ReplaceText", []TextEdit{{Start: r.Start, End: r.End, Text: text}}, nil)
}

// InsertText inserts text at offset.
func (d *Document) InsertText(ctx context.Context, offset int, text string) (Change, error) {
	defer d.exclusive()()
	return d.apply(ctx, "InsertText", []TextEdit{{Start: offset, End: offset, Text: text}}, nil)
}

// RemoveText deletes r.
func (d *Document) RemoveText(ctx context.Context, r Range) (Change, error) {
	defer d.exclusive()()
	return d.apply(ctx, "RemoveText", []TextEdit{{Start: r.Start, End: r.End}}, nil)
}

// ReplaceAll replaces the whole text, issued as the single narrowest edit
// so handles outside the changed region survive.
func (d *Document) ReplaceAll(ctx context.Context, text string) (Change, error) {
	defer d.exclusive()()
	edit, changed := narrow(0, d.text, text)
	if !changed {
		return Change{Generation: d.Generation()}, nil
	}
	return d.apply(ctx, "ReplaceAll", []TextEdit{edit}, nil)
}

// Preview returns the text edits would produce without applying them.
func (d *Document) Preview(edits ...TextEdit) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sorted, err := prepareEdits(d.text, edits)
	if err != nil {
		return "", err
	}
	return splice(d.text, sorted), nil
}

// Observe registers an observer and returns the function removing it.
func (d *Document) Observe(fn Observer) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

// WrapperFor returns the handle of a concrete node of the current tree,
// creating it on first use. Repeated calls return the same handle.
func (d *Document) WrapperFor(n *syntax.Node) (Wrapper, error) {
	if d.closed {
		return nil, ErrDocumentClosed
	}
	if !d.arena.tree.Owns(n) {
		return nil, ErrStaleNode
	}
	return d.wrap(n), nil
}

// WrapperAt returns the handle of the deepest named node at offset.
func (d *Document) WrapperAt(offset int) (Wrapper, error) {
	if d.closed {
		return nil, ErrDocumentClosed
	}
	if offset < 0 || offset > len(d.text) {
		return nil, &RangeError{Start: offset, End: offset, Length: len(d.text), Reason: "offset out of bounds"}
	}
	return d.wrap(d.arena.tree.DescendantAt(offset)), nil
}

// Forget releases w and every handle inside it.
func (d *Document) Forget(w Wrapper) error {
	h := w.Base()
	if h.doc != d {
		return ErrForeignHandle
	}
	defer d.exclusive()()
	if h.forgotten {
		return nil
	}
	n := len(d.arena.forgetSubtree(h.cur))
	recordForgotten(context.Background(), "forget", n)
	return nil
}

// Close forgets every handle, the root included. Further edits fail with
// ErrDocumentClosed.
func (d *Document) Close() error {
	defer d.exclusive()()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.batches = nil
	n := len(d.arena.forgetSubtree(d.arena.tree.Root()))
	recordForgotten(context.Background(), "close", n)
	d.logger.Debug("document closed", slog.Int("forgotten", n))
	return nil
}

// exclusive takes the edit lock and returns its release:
//
//	defer d.exclusive()()
//
// Offsets computed from handles while it is held stay valid until the
// edit they feed is committed.
func (d *Document) exclusive() (release func()) {
	d.editMu.Lock()
	return d.editMu.Unlock
}

// apply runs one edit batch under the document lock and notifies
// observers after releasing it.
func (d *Document) apply(ctx context.Context, op string, edits []TextEdit, anchors []anchor) (Change, error) {
	d.mu.Lock()
	change, err := d.applyLocked(ctx, op, edits, anchors)
	var observers []Observer
	if err == nil && len(change.Edits) > 0 {
		keys := make([]int, 0, len(d.observers))
		for k := range d.observers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			observers = append(observers, d.observers[k])
		}
	}
	d.mu.Unlock()

	for _, fn := range observers {
		fn(d, change)
	}
	return change, err
}

func (d *Document) applyLocked(ctx context.Context, op string, edits []TextEdit, anchors []anchor) (change Change, err error) {
	if d.closed {
		return Change{}, ErrDocumentClosed
	}
	ctx, span := startEditSpan(ctx, op, len(edits))
	defer func() { endEditSpan(span, change, err) }()
	start := time.Now()

	sorted, err := prepareEdits(d.text, edits)
	if err != nil {
		return Change{}, err
	}
	if len(sorted) == 0 {
		return Change{Generation: d.arena.generation}, nil
	}

	text := splice(d.text, sorted)
	tree, err := d.parser.Parse(ctx, text)
	if err != nil {
		recordEditMetrics(ctx, op, time.Since(start), 0, 0, false)
		return Change{}, fmt.Errorf("%s: reparse: %w", op, err)
	}

	plan := d.planRemap(sorted, tree, anchors)
	d.commit(plan, text)

	change = Change{
		Generation: d.arena.generation,
		Edits:      sorted,
		Remapped:   len(plan.moves),
		Forgotten:  len(plan.forgotten),
	}
	recordEditMetrics(ctx, op, time.Since(start), change.Remapped, change.Forgotten, true)
	d.logger.Debug("edits applied",
		slog.String("op", op),
		slog.Uint64("generation", change.Generation),
		slog.Int("edits", len(sorted)),
		slog.Int("remapped", change.Remapped),
		slog.Int("forgotten", change.Forgotten),
	)
	if tree.HasError() {
		d.logger.Debug("edit left syntax errors", slog.Uint64("generation", change.Generation))
	}
	return change, nil
}

// applyAndLocate applies edits with one anchored handle and returns the
// handle of the node standing at the anchor range afterwards.
func (d *Document) applyAndLocate(ctx context.Context, op string, edits []TextEdit, a anchor) (Wrapper, error) {
	var anchors []anchor
	if a.handle != nil {
		anchors = []anchor{a}
	}
	kind := syntax.KindUnknown
	if a.handle != nil {
		kind = a.handle.kind
	}
	if _, err := d.apply(ctx, op, edits, anchors); err != nil {
		return nil, err
	}
	if a.handle != nil && !a.handle.forgotten {
		return a.handle.self, nil
	}
	return d.locate(a.at, kind), nil
}

// insertAndLocate applies one insertion and returns the handle of the
// node of kind now occupying at.
func (d *Document) insertAndLocate(ctx context.Context, op string, edit TextEdit, at Range, kind syntax.Kind) (Wrapper, error) {
	if _, err := d.apply(ctx, op, []TextEdit{edit}, nil); err != nil {
		return nil, err
	}
	return d.locate(at, kind), nil
}

// locate returns the handle of the outermost named node spanning exactly
// r, preferring kind. Without an exact node it falls back to the deepest
// named node at r.Start.
func (d *Document) locate(r Range, kind syntax.Kind) Wrapper {
	var exact, sameKind *syntax.Node
	d.arena.tree.Walk(func(c *syntax.Node) bool {
		if c.End() < r.Start || c.Start() > r.End {
			return false
		}
		if c.IsNamed() && c.Start() == r.Start && c.End() == r.End {
			if exact == nil {
				exact = c
			}
			if sameKind == nil && c.Kind() == kind {
				sameKind = c
			}
		}
		return true
	})
	switch {
	case sameKind != nil:
		return d.wrap(sameKind)
	case exact != nil:
		return d.wrap(exact)
	default:
		return d.wrap(d.arena.tree.DescendantAt(r.Start))
	}
}

// wrap returns the handle of c, creating it if needed.
func (d *Document) wrap(c *syntax.Node) Wrapper {
	if h := d.arena.get(c); h != nil {
		return h.self
	}
	h := &Node{doc: d, cur: c, kind: c.Kind()}
	h.self = construct(h)
	d.arena.put(h)
	if n := len(d.batches); n > 0 {
		d.batches[n-1].created = append(d.batches[n-1].created, h)
	}
	return h.self
}

func (d *Document) wrapAll(nodes []*syntax.Node) []Wrapper {
	out := make([]Wrapper, 0, len(nodes))
	for _, c := range nodes {
		out = append(out, d.wrap(c))
	}
	return out
}

// wrapAs wraps c and asserts the typed wrapper. It returns the zero T if
// c's kind has another wrapper type.
func wrapAs[T Wrapper](d *Document, c *syntax.Node) T {
	t, _ := d.wrap(c).(T)
	return t
}
