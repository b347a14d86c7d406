// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

// Node is one immutable node of a parsed Tree.
//
// # Description
//
// Offsets are byte offsets into the exact text that produced the tree and
// are meaningless against any other text. Nodes from two parses of the
// same text are distinct values; identity is (tree, ID).
//
// # Thread Safety
//
// Node is read-only after construction and safe for concurrent reads.
type Node struct {
	id       int
	kind     Kind
	typ      string
	named    bool
	field    string
	start    int
	end      int
	index    int
	parent   *Node
	children []*Node
	tree     *Tree
}

// ID returns the preorder index of the node within its tree.
func (n *Node) ID() int { return n.id }

// Kind returns the kind tag.
func (n *Node) Kind() Kind { return n.kind }

// Type returns the grammar node type, e.g. "function_declaration".
func (n *Node) Type() string { return n.typ }

// IsNamed reports whether the node is a named grammar node.
func (n *Node) IsNamed() bool { return n.named }

// Field returns the field name under which the parent holds this node.
func (n *Node) Field() string { return n.field }

// Start returns the start byte offset.
func (n *Node) Start() int { return n.start }

// End returns the end byte offset (exclusive).
func (n *Node) End() int { return n.end }

// Len returns the width of the node in bytes.
func (n *Node) Len() int { return n.end - n.start }

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the position of the node among all of its parent's children.
func (n *Node) Index() int { return n.index }

// Tree returns the tree that owns the node.
func (n *Node) Tree() *Tree { return n.tree }

// Children returns all children, named and anonymous.
func (n *Node) Children() []*Node { return n.children }

// Text returns the source text covered by the node.
func (n *Node) Text() string { return n.tree.text[n.start:n.end] }

// NamedChildren returns the named children in order.
func (n *Node) NamedChildren() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

// ChildByField returns the first child held under field, or nil.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.children {
		if c.field == field {
			return c
		}
	}
	return nil
}

// ChildrenByField returns every child held under field.
func (n *Node) ChildrenByField(field string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.field == field {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOfKind returns the direct children of the given kind.
func (n *Node) ChildrenOfKind(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildOfKind returns the first direct child of the given kind, or nil.
func (n *Node) FirstChildOfKind(kind Kind) *Node {
	for _, c := range n.children {
		if c.kind == kind {
			return c
		}
	}
	return nil
}

// PrevNamedSibling returns the named sibling immediately before n, or nil.
func (n *Node) PrevNamedSibling() *Node {
	if n.parent == nil {
		return nil
	}
	for i := n.index - 1; i >= 0; i-- {
		if s := n.parent.children[i]; s.named {
			return s
		}
	}
	return nil
}

// Contains reports whether the offset lies inside [Start, End).
func (n *Node) Contains(offset int) bool {
	return offset >= n.start && offset < n.end
}

// Ancestors returns the chain of ancestors from the parent up to the root.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Tree is the immutable result of one parse.
type Tree struct {
	text     string
	root     *Node
	nodes    []*Node
	hasError bool
	language string
}

// Root returns the root node. Its range always covers the whole text.
func (t *Tree) Root() *Node { return t.root }

// Text returns the text the tree was parsed from.
func (t *Tree) Text() string { return t.text }

// Len returns the number of nodes, anonymous tokens included.
func (t *Tree) Len() int { return len(t.nodes) }

// Language returns the name of the grammar that produced the tree.
func (t *Tree) Language() string { return t.language }

// HasError reports whether the parser had to recover from syntax errors.
func (t *Tree) HasError() bool { return t.hasError }

// NodeByID returns the node with the given preorder index, or nil.
func (t *Tree) NodeByID(id int) *Node {
	if id < 0 || id >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Owns reports whether n belongs to this tree.
func (t *Tree) Owns(n *Node) bool {
	return n != nil && n.tree == t
}

// Walk visits nodes in preorder. Returning false from fn skips the
// node's subtree.
func (t *Tree) Walk(fn func(*Node) bool) {
	walk(t.root, fn)
}

// WalkFrom visits n and its descendants in preorder.
func WalkFrom(n *Node, fn func(*Node) bool) {
	walk(n, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		walk(c, fn)
	}
}

// DescendantAt returns the deepest named node containing offset.
func (t *Tree) DescendantAt(offset int) *Node {
	if offset < 0 || offset > len(t.text) {
		return nil
	}
	cur := t.root
	for {
		var next *Node
		for _, c := range cur.children {
			if c.named && c.Contains(offset) {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// Builder assembles a Tree node by node in preorder. Front-ends other than
// the tree-sitter adapter (and tests) use it to produce trees.
type Builder struct {
	tree  *Tree
	stack []*Node
}

// NewBuilder starts a tree over text.
func NewBuilder(text, language string) *Builder {
	return &Builder{tree: &Tree{text: text, language: language}}
}

// Open starts a node; subsequent Open calls create its children until the
// matching Close.
func (b *Builder) Open(kind Kind, grammarType string, named bool, field string, start, end int) *Node {
	n := &Node{
		id:    len(b.tree.nodes),
		kind:  kind,
		typ:   grammarType,
		named: named,
		field: field,
		start: start,
		end:   end,
		tree:  b.tree,
	}
	if kind == KindError {
		b.tree.hasError = true
	}
	b.tree.nodes = append(b.tree.nodes, n)
	if len(b.stack) == 0 {
		b.tree.root = n
	} else {
		parent := b.stack[len(b.stack)-1]
		n.parent = parent
		n.index = len(parent.children)
		parent.children = append(parent.children, n)
	}
	b.stack = append(b.stack, n)
	return n
}

// Close ends the most recently opened node.
func (b *Builder) Close() {
	if len(b.stack) > 0 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// MarkError flags the tree as recovered from syntax errors.
func (b *Builder) MarkError() {
	b.tree.hasError = true
}

// Tree finishes the build. The root is stretched to cover the whole text.
func (b *Builder) Tree() *Tree {
	if b.tree.root == nil {
		b.Open(KindSourceFile, "source_file", true, "", 0, len(b.tree.text))
		b.Close()
	}
	b.tree.root.start = 0
	b.tree.root.end = len(b.tree.text)
	return b.tree
}
