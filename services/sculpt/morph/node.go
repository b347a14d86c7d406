// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package morph

import (
	"context"
	"fmt"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Node is the base handle: a stable reference to one concrete node that
// survives edits as long as the node it points at does.
//
// # Description
//
// Typed wrappers embed *Node, so every handle answers the navigation and
// structure operations below. A handle points at exactly one concrete node
// of the document's current tree until it is forgotten; after that every
// operation returns a *ForgottenHandleError.
//
// # Thread Safety
//
// Handles are not safe for use concurrently with edits of their document.
type Node struct {
	doc       *Document
	cur       *syntax.Node
	kind      syntax.Kind
	traits    Trait
	forgotten bool
	self      Wrapper
}

// Kind returns the kind of the referenced node. It is fixed for the life
// of the handle.
func (n *Node) Kind() syntax.Kind { return n.kind }

// IsForgotten reports whether the handle was forgotten.
func (n *Node) IsForgotten() bool { return n.forgotten }

// Base returns the base handle.
func (n *Node) Base() *Node { return n }

// Wrapper returns the typed wrapper the handle was created as.
func (n *Node) Wrapper() Wrapper { return n.self }

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Traits returns the capability traits of the handle's kind.
func (n *Node) Traits() Trait { return n.traits }

func (n *Node) String() string {
	if n.forgotten {
		return fmt.Sprintf("%s(forgotten)", n.kind)
	}
	return fmt.Sprintf("%s[%d:%d]", n.kind, n.cur.Start(), n.cur.End())
}

func (n *Node) check(op string) error {
	if n.forgotten {
		return &ForgottenHandleError{Kind: n.kind, Op: op}
	}
	return nil
}

// Concrete returns the concrete node the handle points at in the current
// tree. The node is only meaningful until the next edit.
func (n *Node) Concrete() (*syntax.Node, error) {
	if err := n.check("Concrete"); err != nil {
		return nil, err
	}
	return n.cur, nil
}

// Range returns the byte range of the node in the current text.
func (n *Node) Range() (Range, error) {
	if err := n.check("Range"); err != nil {
		return Range{}, err
	}
	return Range{Start: n.cur.Start(), End: n.cur.End()}, nil
}

// Text returns the source text of the node.
func (n *Node) Text() (string, error) {
	if err := n.check("Text"); err != nil {
		return "", err
	}
	return n.cur.Text(), nil
}

// Parent returns the handle of the parent node, nil for the root.
func (n *Node) Parent() (Wrapper, error) {
	if err := n.check("Parent"); err != nil {
		return nil, err
	}
	p := n.cur.Parent()
	if p == nil {
		return nil, nil
	}
	return n.doc.wrap(p), nil
}

// Children returns handles for the named children.
func (n *Node) Children() ([]Wrapper, error) {
	if err := n.check("Children"); err != nil {
		return nil, err
	}
	return n.doc.wrapAll(n.cur.NamedChildren()), nil
}

// ChildAt returns the named child at index.
func (n *Node) ChildAt(index int) (Wrapper, error) {
	if err := n.check("ChildAt"); err != nil {
		return nil, err
	}
	children := n.cur.NamedChildren()
	if index < 0 || index >= len(children) {
		return nil, &NotFoundError{What: "child", Name: fmt.Sprintf("#%d of %s", index, n.kind)}
	}
	return n.doc.wrap(children[index]), nil
}

// FirstDescendant returns the first descendant of kind in document order,
// or nil when there is none.
func (n *Node) FirstDescendant(kind syntax.Kind) (Wrapper, error) {
	return n.firstDescendant(kind, "FirstDescendant").orNil()
}

// FirstDescendantOrErr is FirstDescendant returning a *NotFoundError
// instead of nil.
func (n *Node) FirstDescendantOrErr(kind syntax.Kind) (Wrapper, error) {
	return n.firstDescendant(kind, "FirstDescendantOrErr").orErr()
}

func (n *Node) firstDescendant(kind syntax.Kind, op string) lookup[Wrapper] {
	if err := n.check(op); err != nil {
		return failed[Wrapper](err)
	}
	var hit *syntax.Node
	syntax.WalkFrom(n.cur, func(c *syntax.Node) bool {
		if hit != nil {
			return false
		}
		if c != n.cur && c.Kind() == kind {
			hit = c
			return false
		}
		return true
	})
	if hit == nil {
		return missing[Wrapper]("descendant", kind.String())
	}
	return found(n.doc.wrap(hit))
}

// Descendants returns every descendant of kind in document order.
func (n *Node) Descendants(kind syntax.Kind) ([]Wrapper, error) {
	if err := n.check("Descendants"); err != nil {
		return nil, err
	}
	var hits []*syntax.Node
	syntax.WalkFrom(n.cur, func(c *syntax.Node) bool {
		if c != n.cur && c.Kind() == kind {
			hits = append(hits, c)
		}
		return true
	})
	return n.doc.wrapAll(hits), nil
}

// Path returns the kinds of the ancestors, root first.
func (n *Node) Path() ([]syntax.Kind, error) {
	if err := n.check("Path"); err != nil {
		return nil, err
	}
	return kindPath(n.cur), nil
}

// ToStructure synthesizes the structure of the node from its text.
func (n *Node) ToStructure() (structure.Structure, error) {
	if err := n.check("ToStructure"); err != nil {
		return structure.Structure{}, err
	}
	return synthesize(n.cur), nil
}

// Set merges partial onto the node's structure and rewrites the node.
// See Document.Set.
func (n *Node) Set(ctx context.Context, partial structure.Structure) (Wrapper, error) {
	return n.doc.Set(ctx, n.self, partial)
}

// ReplaceWithText replaces the node's text and returns the handle of the
// node parsed in its place.
func (n *Node) ReplaceWithText(ctx context.Context, text string) (Wrapper, error) {
	defer n.doc.exclusive()()
	if err := n.check("ReplaceWithText"); err != nil {
		return nil, err
	}
	start := n.cur.Start()
	edit := TextEdit{Start: start, End: n.cur.End(), Text: text}
	return n.doc.applyAndLocate(ctx, "ReplaceWithText", []TextEdit{edit},
		anchor{handle: n, at: Range{Start: start, End: start + len(text)}})
}

// Remove deletes the node together with its doc comment. A node alone on
// its lines is removed with those lines; a list element is removed with
// its separating comma.
func (n *Node) Remove(ctx context.Context) error {
	defer n.doc.exclusive()()
	if err := n.check("Remove"); err != nil {
		return err
	}
	if n.cur.Parent() == nil {
		return &UnsupportedKindError{Kind: n.kind, Op: "Remove", Detail: "cannot remove the root"}
	}
	_, err := n.doc.apply(ctx, "Remove", []TextEdit{removalEdit(n.cur)}, nil)
	return err
}

// Forget releases the handle and the handles of every node inside it.
func (n *Node) Forget() {
	_ = n.doc.Forget(n)
}

// removalEdit computes the edit deleting c and what belongs to it.
func removalEdit(c *syntax.Node) TextEdit {
	text := c.Tree().Text()
	if isListElement(c) {
		if next := nextNamedSibling(c); next != nil {
			return TextEdit{Start: c.Start(), End: next.Start()}
		}
		if prev := c.PrevNamedSibling(); prev != nil {
			return TextEdit{Start: prev.End(), End: c.End()}
		}
		return TextEdit{Start: c.Start(), End: c.End()}
	}
	start, end := wholeLines(text, extendedStart(c), c.End())
	return TextEdit{Start: start, End: end}
}

func isListElement(c *syntax.Node) bool {
	p := c.Parent()
	if p == nil {
		return false
	}
	switch p.Kind() {
	case syntax.KindParameterList, syntax.KindArgumentList, syntax.KindExpressionList:
		return true
	}
	return false
}

func nextNamedSibling(c *syntax.Node) *syntax.Node {
	p := c.Parent()
	if p == nil {
		return nil
	}
	siblings := p.Children()
	for i := c.Index() + 1; i < len(siblings); i++ {
		if siblings[i].IsNamed() {
			return siblings[i]
		}
	}
	return nil
}

// kindPath returns the ancestor kinds of c, root first.
func kindPath(c *syntax.Node) []syntax.Kind {
	ancestors := c.Ancestors()
	out := make([]syntax.Kind, len(ancestors))
	for i, a := range ancestors {
		out[len(ancestors)-1-i] = a.Kind()
	}
	return out
}

// samePath reports whether c's ancestors have exactly the kinds in path.
func samePath(c *syntax.Node, path []syntax.Kind) bool {
	i := len(path) - 1
	for p := c.Parent(); p != nil; p = p.Parent() {
		if i < 0 || path[i] != p.Kind() {
			return false
		}
		i--
	}
	return i == -1
}
