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
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

func TestClassify(t *testing.T) {
	// Node at [10, 20).
	tests := []struct {
		name string
		edit TextEdit
		want placement
	}{
		{"insertion before", TextEdit{Start: 5, End: 5, Text: "x"}, placeBefore},
		{"insertion at start", TextEdit{Start: 10, End: 10, Text: "x"}, placeBefore},
		{"insertion inside", TextEdit{Start: 15, End: 15, Text: "x"}, placeContains},
		{"insertion at end", TextEdit{Start: 20, End: 20, Text: "x"}, placeAfter},
		{"replacement before", TextEdit{Start: 2, End: 10, Text: "x"}, placeBefore},
		{"replacement after", TextEdit{Start: 20, End: 25, Text: "x"}, placeAfter},
		{"replacement inside", TextEdit{Start: 12, End: 15, Text: "xyz"}, placeContains},
		{"replacement of the whole node", TextEdit{Start: 10, End: 20, Text: "x"}, placeAffected},
		{"replacement straddling start", TextEdit{Start: 8, End: 12}, placeAffected},
		{"replacement straddling end", TextEdit{Start: 18, End: 22}, placeAffected},
		{"replacement covering the node", TextEdit{Start: 5, End: 25}, placeAffected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(10, 20, tt.edit))
		})
	}
}

func TestExpectedRange(t *testing.T) {
	t.Run("before edits shift both ends", func(t *testing.T) {
		r, ok := expectedRange(10, 20, []TextEdit{
			{Start: 0, End: 0, Text: "abc"},
			{Start: 4, End: 8},
		})
		assert.True(t, ok)
		assert.Equal(t, Range{Start: 9, End: 19}, r)
	})

	t.Run("contained edits move only the end", func(t *testing.T) {
		r, ok := expectedRange(10, 20, []TextEdit{
			{Start: 0, End: 0, Text: "ab"},
			{Start: 12, End: 13, Text: "wxyz"},
			{Start: 25, End: 30},
		})
		assert.True(t, ok)
		assert.Equal(t, Range{Start: 12, End: 25}, r)
	})

	t.Run("an affecting edit forgets", func(t *testing.T) {
		_, ok := expectedRange(10, 20, []TextEdit{{Start: 0, End: 0, Text: "a"}, {Start: 15, End: 22}})
		assert.False(t, ok)
	})
}

func buildCandidates(t *testing.T) (wide, narrow, early, late *syntax.Node) {
	t.Helper()
	text := "0123456789abcdef"
	b := syntax.NewBuilder(text, "test")
	b.Open(syntax.KindSourceFile, "source_file", true, "", 0, len(text))
	wide = b.Open(syntax.KindFieldDecl, "field_declaration", true, "", 0, 10)
	narrow = b.Open(syntax.KindFieldDecl, "field_declaration", true, "", 2, 8)
	b.Close()
	b.Close()
	early = b.Open(syntax.KindFieldDecl, "field_declaration", true, "", 10, 13)
	b.Close()
	late = b.Open(syntax.KindFieldDecl, "field_declaration", true, "", 11, 14)
	b.Close()
	b.Close()
	b.Tree()
	return wide, narrow, early, late
}

func TestDefaultTieBreaker(t *testing.T) {
	wide, narrow, early, late := buildCandidates(t)

	t.Run("narrowest wins", func(t *testing.T) {
		target := Target{Kind: syntax.KindFieldDecl, Expected: Range{Start: 2, End: 8}}
		assert.Positive(t, DefaultTieBreaker(target, Candidate{Node: wide}, Candidate{Node: narrow}))
		assert.Negative(t, DefaultTieBreaker(target, Candidate{Node: narrow}, Candidate{Node: wide}))
	})

	t.Run("identical start wins among equal widths", func(t *testing.T) {
		target := Target{Kind: syntax.KindFieldDecl, Expected: Range{Start: 11, End: 13}}
		assert.Positive(t, DefaultTieBreaker(target, Candidate{Node: early}, Candidate{Node: late}))
	})

	t.Run("old name breaks the remaining tie", func(t *testing.T) {
		target := Target{Kind: syntax.KindFieldDecl, Expected: Range{Start: 0, End: 1}, Name: "port"}
		a := Candidate{Node: early, Name: "addr"}
		b := Candidate{Node: late, Name: "port"}
		assert.Positive(t, DefaultTieBreaker(target, a, b))
		assert.Zero(t, DefaultTieBreaker(Target{Kind: syntax.KindFieldDecl}, a, b))
	})
}

func TestPrepareEdits(t *testing.T) {
	text := "abcdef"

	sorted, err := prepareEdits(text, []TextEdit{
		{Start: 4, End: 5, Text: "E"},
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 1, Text: "+"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []TextEdit{{Start: 1, End: 1, Text: "+"}, {Start: 4, End: 5, Text: "E"}}, sorted)
	assert.Equal(t, "a+bcdEf", splice(text, sorted))
}

func TestNarrow(t *testing.T) {
	e, ok := narrow(100, "func run() error", "func runAll() error")
	assert.True(t, ok)
	assert.Equal(t, TextEdit{Start: 108, End: 108, Text: "All"}, e)

	_, ok = narrow(0, "same", "same")
	assert.False(t, ok)

	t.Run("cuts on rune boundaries", func(t *testing.T) {
		tests := []struct {
			name     string
			old, new string
			want     TextEdit
		}{
			{"shared lead byte", `s := "é"`, `s := "è"`, TextEdit{Start: 6, End: 8, Text: "è"}},
			{"shared continuation byte", "é!", "ũ!", TextEdit{Start: 0, End: 2, Text: "ũ"}},
			{"ascii to rune", `s := "e"`, `s := "é"`, TextEdit{Start: 6, End: 7, Text: "é"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				e, ok := narrow(0, tt.old, tt.new)
				require.True(t, ok)
				assert.Equal(t, tt.want, e)
				assert.True(t, utf8.ValidString(e.Text))
				assert.Equal(t, tt.new, splice(tt.old, []TextEdit{e}))
			})
		}
	})
}

func TestWholeLines(t *testing.T) {
	text := "a\n\tb()\n\tc()\n"
	start, end := wholeLines(text, 3, 6)
	assert.Equal(t, 2, start)
	assert.Equal(t, 7, end)

	start, end = wholeLines("x := f(a, b)\n", 7, 8)
	assert.Equal(t, 7, start)
	assert.Equal(t, 8, end)
}
