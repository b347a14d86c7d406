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
	"reflect"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
)

// ToStructure returns the structure of the node behind w.
func ToStructure(w Wrapper) (structure.Structure, error) {
	return w.Base().ToStructure()
}

// Set rewrites the node behind w so that its structure becomes partial
// merged onto its current structure.
//
// # Description
//
// The merged structure is validated before any text is produced. When it
// equals the current structure nothing is edited. Otherwise it is rendered
// at the indentation of the node's line, over the node's range extended to
// its doc comment, and issued as one edit trimmed to the differing middle.
//
// A partial naming a different kind converts the node: fields the new
// kind does not accept are dropped first.
//
// # Outputs
//
//   - Wrapper: w itself when it survives, otherwise the handle of the
//     node now standing at the rewritten range. After a kind change w is
//     forgotten.
//   - error: *StructureMismatchError (no edit issued), *ForgottenHandleError,
//     or an edit failure.
func (d *Document) Set(ctx context.Context, w Wrapper, partial structure.Structure) (Wrapper, error) {
	h := w.Base()
	if h.doc != d {
		return nil, ErrForeignHandle
	}
	defer d.exclusive()()
	if err := h.check("Set"); err != nil {
		return nil, err
	}

	current := structure.Normalize(synthesize(h.cur))
	merged := structure.Normalize(structure.Merge(current, partial))
	if err := structure.Validate(merged); err != nil {
		return nil, mismatch(err)
	}
	if reflect.DeepEqual(current, merged) {
		return h.self, nil
	}

	start := extendedStart(h.cur)
	base := lineIndent(d.text, start)
	rendered, err := d.renderer.Render(merged, base)
	if err != nil {
		return nil, mismatch(err)
	}

	edit, changed := narrow(start, d.text[start:h.cur.End()], rendered.Text)
	if !changed {
		return h.self, nil
	}
	at := Range{Start: start + rendered.NodeOffset, End: start + len(rendered.Text)}
	return d.applyAndLocate(ctx, "Set", []TextEdit{edit}, anchor{handle: h, at: at})
}
