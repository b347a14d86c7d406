// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syntax is the compiler front-end boundary of sculpt.
//
// It turns full document text into an immutable Tree of position-addressed
// Nodes, each carrying a Kind tag. The morph package builds handles, edits
// and remapping on top of it; nothing here knows about handles.
package syntax

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Parser turns full document text into a Tree.
//
// # Description
//
// Parse is the only entry point the manipulation engine needs. It must
// return a complete tree for every valid UTF-8 input, using error
// recovery (KindError nodes, Tree.HasError) for source that does not
// parse cleanly. Incremental parsing is not required.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Parser interface {
	// Parse parses text into a new Tree.
	Parse(ctx context.Context, text string) (*Tree, error)

	// Language returns the grammar name, e.g. "go".
	Language() string
}

// Default limits.
const (
	// DefaultMaxSize is the default maximum text size accepted by GoParser.
	DefaultMaxSize = 10 * 1024 * 1024

	// WarnSize is the size above which a parse logs a warning.
	WarnSize = 1024 * 1024
)

// GoParser parses Go source with tree-sitter.
type GoParser struct {
	maxSize int
	logger  *slog.Logger
}

// GoParserOption configures a GoParser.
type GoParserOption func(*GoParser)

// WithMaxSize sets the maximum accepted text size in bytes.
func WithMaxSize(bytes int) GoParserOption {
	return func(p *GoParser) {
		if bytes > 0 {
			p.maxSize = bytes
		}
	}
}

// WithLogger sets the logger used for parse warnings.
func WithLogger(logger *slog.Logger) GoParserOption {
	return func(p *GoParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewGoParser creates a Go parser.
//
// # Example
//
//	parser := syntax.NewGoParser(syntax.WithMaxSize(1 << 20))
//	tree, err := parser.Parse(ctx, "package main\n\nfunc main() {}\n")
func NewGoParser(opts ...GoParserOption) *GoParser {
	p := &GoParser{
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "go".
func (p *GoParser) Language() string { return "go" }

// Parse parses Go source text.
//
// # Description
//
// Validates size and encoding, parses with a fresh tree-sitter parser
// (parsers are not shared between goroutines), copies the native tree into
// Nodes and releases it. Syntax errors do not fail the parse; they show up
// as KindError nodes and Tree.HasError.
//
// # Outputs
//
//   - *Tree: The parsed tree. Root covers the whole text.
//   - error: ErrFileTooLarge, ErrInvalidContent or ErrParseCanceled wrapped
//     in a ParseError.
func (p *GoParser) Parse(ctx context.Context, text string) (*Tree, error) {
	ctx, span := startParseSpan(ctx, "go", len(text))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, "go", time.Since(start), 0, false)
		return nil, newParseError(-1, "canceled before start", fmt.Errorf("%w: %v", ErrParseCanceled, err))
	}

	if len(text) > p.maxSize {
		recordParseMetrics(ctx, "go", time.Since(start), 0, false)
		return nil, newParseError(-1, fmt.Sprintf("size %d exceeds limit %d", len(text), p.maxSize), ErrFileTooLarge)
	}

	if len(text) > WarnSize {
		p.logger.Warn("parsing large document",
			slog.Int("size_bytes", len(text)))
	}

	if !utf8.ValidString(text) {
		recordParseMetrics(ctx, "go", time.Since(start), 0, false)
		return nil, newParseError(firstInvalidUTF8(text), "content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	content := []byte(text)
	native, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, "go", time.Since(start), 0, false)
		if ctx.Err() != nil {
			return nil, newParseError(-1, "canceled during parse", fmt.Errorf("%w: %v", ErrParseCanceled, err))
		}
		return nil, newParseError(-1, "tree-sitter parse failed", fmt.Errorf("%w: %v", ErrParseFailed, err))
	}
	defer native.Close()

	root := native.RootNode()
	if root == nil {
		recordParseMetrics(ctx, "go", time.Since(start), 0, false)
		return nil, newParseError(-1, "tree-sitter returned nil root node", ErrParseFailed)
	}

	b := NewBuilder(text, "go")
	copyNode(b, root)
	if root.HasError() {
		b.MarkError()
	}
	tree := b.Tree()

	setParseSpanResult(span, tree.Len(), tree.HasError())
	recordParseMetrics(ctx, "go", time.Since(start), tree.Len(), true)

	return tree, nil
}

// copyNode copies a tree-sitter subtree into the builder in preorder. The
// cursor is used because it reports the field name of each child.
func copyNode(b *Builder, root *sitter.Node) {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()
	copyCursor(b, cursor)
}

func copyCursor(b *Builder, c *sitter.TreeCursor) {
	n := c.CurrentNode()
	typ := n.Type()
	b.Open(KindForType(typ, n.IsNamed()), typ, n.IsNamed(), c.CurrentFieldName(), int(n.StartByte()), int(n.EndByte()))
	if c.GoToFirstChild() {
		for {
			copyCursor(b, c)
			if !c.GoToNextSibling() {
				break
			}
		}
		c.GoToParent()
	}
	b.Close()
}

// firstInvalidUTF8 returns the offset of the first invalid byte.
func firstInvalidUTF8(s string) int {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size <= 1 {
				return i
			}
		}
	}
	return -1
}

var _ Parser = (*GoParser)(nil)
