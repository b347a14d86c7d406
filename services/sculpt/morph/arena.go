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
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// arena is the handle cache of one tree generation: a slot per concrete
// node, indexed by the node's preorder ID.
//
// A slot holds at most one live handle, which makes handle identity per
// concrete node hold by construction. An arena is never mutated after the
// remap that produced it has been committed, except to add handles for
// nodes that had none and to clear forgotten ones.
type arena struct {
	generation uint64
	tree       *syntax.Tree
	slots      []*Node
	live       int
}

func newArena(generation uint64, tree *syntax.Tree) *arena {
	return &arena{
		generation: generation,
		tree:       tree,
		slots:      make([]*Node, tree.Len()),
	}
}

// get returns the live handle of n, or nil.
func (a *arena) get(n *syntax.Node) *Node {
	if n == nil || !a.tree.Owns(n) {
		return nil
	}
	return a.slots[n.ID()]
}

// put stores h in the slot of its current node.
func (a *arena) put(h *Node) {
	id := h.cur.ID()
	if a.slots[id] == nil {
		a.live++
	}
	a.slots[id] = h
}

// forgetSubtree forgets the handle of n and of every descendant of n.
// It returns the handles it forgot.
func (a *arena) forgetSubtree(n *syntax.Node) []*Node {
	var out []*Node
	syntax.WalkFrom(n, func(c *syntax.Node) bool {
		if h := a.slots[c.ID()]; h != nil {
			h.forgotten = true
			a.slots[c.ID()] = nil
			a.live--
			out = append(out, h)
		}
		return true
	})
	return out
}

// forgetOne forgets h alone.
func (a *arena) forgetOne(h *Node) {
	if h.forgotten {
		return
	}
	h.forgotten = true
	if a.slots[h.cur.ID()] == h {
		a.slots[h.cur.ID()] = nil
		a.live--
	}
}

// handles returns the live handles in document (preorder) order.
func (a *arena) handles() []*Node {
	out := make([]*Node, 0, a.live)
	for _, h := range a.slots {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
