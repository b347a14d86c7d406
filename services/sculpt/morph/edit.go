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
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// TextEdit is one atomic change: replace [Start, End) of the current text
// with Text.
type TextEdit struct {
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Text  string `json:"text" yaml:"text"`
}

// Delta is the change in text length the edit causes.
func (e TextEdit) Delta() int {
	return len(e.Text) - (e.End - e.Start)
}

// IsInsertion reports whether the edit replaces nothing.
func (e TextEdit) IsInsertion() bool {
	return e.Start == e.End
}

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the width of the range.
func (r Range) Len() int { return r.End - r.Start }

// prepareEdits validates edits against a text of the given length and
// returns them sorted by position with identity edits removed.
//
// Edits must be in bounds, not inverted, and must not overlap. Two
// insertions at one offset are kept in the order given.
func prepareEdits(text string, edits []TextEdit) ([]TextEdit, error) {
	sorted := make([]TextEdit, 0, len(edits))
	for _, e := range edits {
		switch {
		case e.Start < 0 || e.End > len(text):
			return nil, &RangeError{Start: e.Start, End: e.End, Length: len(text), Reason: "out of bounds"}
		case e.Start > e.End:
			return nil, &RangeError{Start: e.Start, End: e.End, Length: len(text), Reason: "start after end"}
		}
		sorted = append(sorted, e)
	}
	slices.SortStableFunc(sorted, func(a, b TextEdit) int {
		return cmp.Compare(a.Start, b.Start)
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Start < prev.End {
			return nil, &RangeError{Start: cur.Start, End: cur.End, Length: len(text), Reason: "overlaps another edit"}
		}
	}
	out := sorted[:0]
	for _, e := range sorted {
		if text[e.Start:e.End] != e.Text {
			out = append(out, e)
		}
	}
	return out, nil
}

// ApplyEdits applies edits to text without a document. It returns the new
// text and the edits sorted with identity edits removed.
func ApplyEdits(text string, edits ...TextEdit) (string, []TextEdit, error) {
	prepared, err := prepareEdits(text, edits)
	if err != nil {
		return "", nil, err
	}
	return splice(text, prepared), prepared, nil
}

// splice applies sorted, non-overlapping edits to text.
func splice(text string, edits []TextEdit) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, e := range edits {
		b.WriteString(text[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// narrow returns the single edit turning old into new, trimmed to the
// differing middle. ok is false when the texts are equal. Both cuts fall
// on rune boundaries, so the edit text is valid UTF-8 whenever new is.
func narrow(offset int, old, new string) (edit TextEdit, ok bool) {
	if old == new {
		return TextEdit{}, false
	}
	p := commonPrefix(old, new)
	for p > 0 && !(runeBoundary(old, p) && runeBoundary(new, p)) {
		p--
	}
	s := commonSuffix(old[p:], new[p:])
	for s > 0 && !(runeBoundary(old, len(old)-s) && runeBoundary(new, len(new)-s)) {
		s--
	}
	return TextEdit{
		Start: offset + p,
		End:   offset + len(old) - s,
		Text:  new[p : len(new)-s],
	}, true
}

func runeBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// lineStart returns the offset of the first byte of the line holding pos.
func lineStart(text string, pos int) int {
	return strings.LastIndexByte(text[:pos], '\n') + 1
}

// lineIndent returns the leading whitespace of the line holding pos.
func lineIndent(text string, pos int) string {
	start := lineStart(text, pos)
	end := start
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return text[start:end]
}

// onlySpaceBetween reports whether text[from:to] is spaces and tabs only.
func onlySpaceBetween(text string, from, to int) bool {
	for i := from; i < to; i++ {
		if text[i] != ' ' && text[i] != '\t' {
			return false
		}
	}
	return true
}

// wholeLines widens [start, end) to cover its lines, trailing newline
// included, when nothing else shares those lines.
func wholeLines(text string, start, end int) (int, int) {
	ls := lineStart(text, start)
	if !onlySpaceBetween(text, ls, start) {
		return start, end
	}
	le := end
	for le < len(text) && (text[le] == ' ' || text[le] == '\t' || text[le] == '\r') {
		le++
	}
	if le < len(text) && text[le] != '\n' {
		return start, end
	}
	if le < len(text) {
		le++
	}
	return ls, le
}
