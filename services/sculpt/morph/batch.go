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
	"log/slog"
)

// Batch is a scope collecting every handle created while it is open.
// Closing it forgets those handles. Scopes nest; a handle belongs to the
// innermost open scope.
type Batch struct {
	doc     *Document
	created []*Node
	closed  bool
}

// BeginBatch opens a scope. The caller must Close it.
func (d *Document) BeginBatch() *Batch {
	defer d.exclusive()()
	b := &Batch{doc: d}
	d.batches = append(d.batches, b)
	return b
}

// Close forgets the live handles created inside the scope and returns how
// many it forgot. Scopes opened inside b and still open are closed first.
// Closing twice is a no-op.
func (b *Batch) Close() int {
	d := b.doc
	defer d.exclusive()()
	if b.closed {
		return 0
	}
	n := 0
	for i := len(d.batches) - 1; i >= 0; i-- {
		inner := d.batches[i]
		d.batches = d.batches[:i]
		n += inner.release()
		if inner == b {
			break
		}
	}
	b.closed = true
	if n > 0 {
		recordForgotten(context.Background(), "batch", n)
		d.logger.Debug("batch closed", slog.Int("forgotten", n))
	}
	return n
}

func (b *Batch) release() int {
	b.closed = true
	n := 0
	for _, h := range b.created {
		if !h.forgotten {
			b.doc.arena.forgetOne(h)
			n++
		}
	}
	b.created = nil
	return n
}

// Batch runs fn inside a scope and forgets every handle fn created.
func (d *Document) Batch(fn func() error) error {
	b := d.BeginBatch()
	defer b.Close()
	return fn()
}
