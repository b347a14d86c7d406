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
	"slices"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// placement is where an edit lies relative to a node's old range.
type placement int

const (
	placeBefore placement = iota
	placeAfter
	placeContains
	placeAffected
)

// classify places one edit against the old range [s, e).
//
// An insertion at the node's start counts as before it, an insertion at
// its end as after it. A replacement strictly inside the node is
// contained; any other overlap affects the node.
func classify(s, e int, edit TextEdit) placement {
	a, b := edit.Start, edit.End
	if a == b {
		switch {
		case a <= s:
			return placeBefore
		case a >= e:
			return placeAfter
		default:
			return placeContains
		}
	}
	switch {
	case b <= s:
		return placeBefore
	case a >= e:
		return placeAfter
	case s <= a && b <= e && e-s > b-a:
		return placeContains
	default:
		return placeAffected
	}
}

// expectedRange computes where [s, e) lands after edits, or reports that
// some edit affects it.
func expectedRange(s, e int, edits []TextEdit) (Range, bool) {
	ns, ne := s, e
	for _, edit := range edits {
		switch classify(s, e, edit) {
		case placeBefore:
			ns += edit.Delta()
			ne += edit.Delta()
		case placeContains:
			ne += edit.Delta()
		case placeAffected:
			return Range{}, false
		}
	}
	return Range{Start: ns, End: ne}, true
}

// Target describes a handle being remapped.
type Target struct {
	Kind     syntax.Kind
	Expected Range
	Name     string
}

// Candidate is a node of the new tree considered as the new home of a
// handle.
type Candidate struct {
	Node *syntax.Node
	Name string
}

// TieBreaker orders two candidates for a target. Negative prefers a.
// Candidates that compare equal keep document order.
type TieBreaker func(t Target, a, b Candidate) int

// DefaultTieBreaker prefers the narrowest candidate, then one starting
// exactly at the expected start, then one of the target's kind, then one
// whose declared name equals the target's old name.
func DefaultTieBreaker(t Target, a, b Candidate) int {
	if c := a.Node.Len() - b.Node.Len(); c != 0 {
		return c
	}
	if c := preferTrue(a.Node.Start() == t.Expected.Start, b.Node.Start() == t.Expected.Start); c != 0 {
		return c
	}
	if c := preferTrue(a.Node.Kind() == t.Kind, b.Node.Kind() == t.Kind); c != 0 {
		return c
	}
	return preferTrue(t.Name != "" && a.Name == t.Name, t.Name != "" && b.Name == t.Name)
}

func preferTrue(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

// anchor pins a handle to the node that ends up at an exact range of the
// new text, bypassing classification.
type anchor struct {
	handle *Node
	at     Range
}

type move struct {
	handle *Node
	to     *syntax.Node
}

// remapPlan is the full outcome of a remap, computed before anything is
// mutated.
type remapPlan struct {
	next      *arena
	moves     []move
	forgotten []*Node
}

type spanKey struct {
	start, end int
	kind       syntax.Kind
}

// treeIndex groups the named nodes of a new tree for candidate search.
type treeIndex struct {
	bySpan map[spanKey][]*syntax.Node
	byKind map[syntax.Kind][]*syntax.Node
}

func indexTree(t *syntax.Tree) treeIndex {
	idx := treeIndex{
		bySpan: make(map[spanKey][]*syntax.Node),
		byKind: make(map[syntax.Kind][]*syntax.Node),
	}
	t.Walk(func(c *syntax.Node) bool {
		if c.IsNamed() {
			k := spanKey{c.Start(), c.End(), c.Kind()}
			idx.bySpan[k] = append(idx.bySpan[k], c)
			idx.byKind[c.Kind()] = append(idx.byKind[c.Kind()], c)
		}
		return true
	})
	return idx
}

func overlaps(c *syntax.Node, r Range) bool {
	if r.Len() == 0 {
		return c.Start() <= r.Start && r.Start < c.End()
	}
	return c.Start() < r.End && r.Start < c.End()
}

// planRemap decides, for every live handle, the node of tree it moves to
// or that it is forgotten. Nothing is mutated.
//
// Anchored handles are placed first, then the root, then the remaining
// handles in document order. A node is claimed by at most one handle.
func (d *Document) planRemap(edits []TextEdit, tree *syntax.Tree, anchors []anchor) remapPlan {
	old := d.arena
	plan := remapPlan{next: newArena(old.generation+1, tree)}
	idx := indexTree(tree)
	claimed := make([]bool, tree.Len())
	done := make(map[*Node]bool, len(anchors))

	place := func(h *Node, to *syntax.Node) {
		done[h] = true
		if to == nil {
			plan.forgotten = append(plan.forgotten, h)
			return
		}
		claimed[to.ID()] = true
		plan.moves = append(plan.moves, move{handle: h, to: to})
	}

	for _, a := range anchors {
		if a.handle == nil || a.handle.forgotten || done[a.handle] || a.handle.cur == old.tree.Root() {
			continue
		}
		var to *syntax.Node
		for _, c := range idx.bySpan[spanKey{a.at.Start, a.at.End, a.handle.kind}] {
			if !claimed[c.ID()] {
				to = c
				break
			}
		}
		place(a.handle, to)
	}

	if h := old.get(old.tree.Root()); h != nil && !done[h] {
		place(h, tree.Root())
	}

	for _, h := range old.handles() {
		if done[h] {
			continue
		}
		place(h, d.match(h, edits, idx, claimed))
	}
	return plan
}

// match finds the new node for one unanchored handle, or nil.
func (d *Document) match(h *Node, edits []TextEdit, idx treeIndex, claimed []bool) *syntax.Node {
	expected, ok := expectedRange(h.cur.Start(), h.cur.End(), edits)
	if !ok {
		return nil
	}
	path := kindPath(h.cur)
	for _, c := range idx.bySpan[spanKey{expected.Start, expected.End, h.kind}] {
		if !claimed[c.ID()] && samePath(c, path) {
			return c
		}
	}
	if !d.cfg.fuzzy {
		return nil
	}

	named := h.traits.Has(TraitNamed)
	target := Target{Kind: h.kind, Expected: expected}
	if named {
		target.Name = nameText(h.cur)
	}
	var candidates []Candidate
	for _, c := range idx.byKind[h.kind] {
		if claimed[c.ID()] || !overlaps(c, expected) || !samePath(c, path) {
			continue
		}
		cand := Candidate{Node: c}
		if named {
			cand.Name = nameText(c)
		}
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		return nil
	}
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return d.cfg.tieBreaker(target, a, b)
	})
	return candidates[0].Node
}

// commit applies a plan: forgotten handles are marked, surviving handles
// are repointed, and the new arena replaces the old one.
func (d *Document) commit(plan remapPlan, text string) {
	for _, h := range plan.forgotten {
		h.forgotten = true
	}
	for _, m := range plan.moves {
		m.handle.cur = m.to
		plan.next.put(m.handle)
	}
	d.text = text
	d.arena = plan.next
}
