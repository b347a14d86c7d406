// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patch renders document edits as unified diffs and applies
// unified diffs back to text.
//
// Diffs are represented with go-diff's FileDiff so that patches produced
// here and patches read from other tools share one model.
package patch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// ErrConflict is returned when a hunk does not match the text it is
// applied to.
var ErrConflict = errors.New("patch does not apply")

// Stats summarizes a set of file diffs.
type Stats struct {
	Files   int `json:"files" yaml:"files"`
	Hunks   int `json:"hunks" yaml:"hunks"`
	Added   int `json:"added" yaml:"added"`
	Removed int `json:"removed" yaml:"removed"`
}

// region is one run of whole old lines [lo, hi) replaced by newLines.
type region struct {
	lo, hi   int
	oldLines []string
	newLines []string
}

// lineIndex maps byte offsets of a text to line indexes.
type lineIndex struct {
	text   string
	starts []int
	lines  []string
}

func newLineIndex(text string) *lineIndex {
	idx := &lineIndex{text: text, lines: splitLines(text)}
	off := 0
	for _, l := range idx.lines {
		idx.starts = append(idx.starts, off)
		off += len(l)
	}
	return idx
}

// lineAt returns the index of the line containing pos. The offset just past
// a trailing newline (or of an empty text) is the virtual line len(lines).
func (li *lineIndex) lineAt(pos int) int {
	n := len(li.lines)
	if pos >= len(li.text) && (n == 0 || strings.HasSuffix(li.text, "\n")) {
		return n
	}
	i := sort.Search(n, func(i int) bool { return li.starts[i] > pos }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// startOf returns the byte offset where line i begins.
func (li *lineIndex) startOf(i int) int {
	if i >= len(li.starts) {
		return len(li.text)
	}
	return li.starts[i]
}

// FromEdits builds the diff of applying edits to text.
//
// # Description
//
// Edits are validated the same way a document validates them: they must
// be in bounds and must not overlap. Edits are grouped into whole-line
// regions, the unchanged lines at each end of a region are trimmed, and
// regions closer than twice the context are joined into one hunk.
//
// # Inputs
//
//   - path: File path written to the diff headers as a/path and b/path.
//   - text: The text the edits apply to.
//   - edits: The edits, in any order.
//   - contextLines: Unchanged lines around each change. Negative means
//     DefaultContext.
//
// # Outputs
//
//   - *diff.FileDiff: The diff. Hunks is empty when the edits change nothing.
//   - error: A *morph.RangeError for invalid edits.
func FromEdits(path, text string, edits []morph.TextEdit, contextLines int) (*diff.FileDiff, error) {
	if contextLines < 0 {
		contextLines = DefaultContext
	}
	_, prepared, err := morph.ApplyEdits(text, edits...)
	if err != nil {
		return nil, err
	}
	fd := &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path}
	if len(prepared) == 0 {
		return fd, nil
	}
	li := newLineIndex(text)
	regions := buildRegions(li, prepared)
	fd.Hunks = buildHunks(li, regions, contextLines)
	return fd, nil
}

// Unified renders the edits as a unified diff. It returns "" when the
// edits change nothing.
func Unified(path, text string, edits []morph.TextEdit) (string, error) {
	fd, err := FromEdits(path, text, edits, DefaultContext)
	if err != nil {
		return "", err
	}
	if len(fd.Hunks) == 0 {
		return "", nil
	}
	return Format(fd)
}

// Between renders the diff from oldText to newText, or "" when they are
// equal. The whole text is treated as one edit, so unchanged lines at the
// ends are trimmed away and only the differing middle forms hunks.
func Between(path, oldText, newText string) (string, error) {
	return Unified(path, oldText, []morph.TextEdit{{Start: 0, End: len(oldText), Text: newText}})
}

// Format prints file diffs in unified format.
func Format(fileDiffs ...*diff.FileDiff) (string, error) {
	var b strings.Builder
	for _, fd := range fileDiffs {
		out, err := diff.PrintFileDiff(fd)
		if err != nil {
			return "", fmt.Errorf("printing diff for %s: %w", fd.NewName, err)
		}
		b.Write(out)
	}
	return b.String(), nil
}

// Parse reads a unified diff that may cover several files.
func Parse(patch string) ([]*diff.FileDiff, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	return fileDiffs, nil
}

// Summarize counts files, hunks and changed lines.
func Summarize(fileDiffs []*diff.FileDiff) Stats {
	stats := Stats{Files: len(fileDiffs)}
	for _, fd := range fileDiffs {
		stats.Hunks += len(fd.Hunks)
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") {
					stats.Added++
				} else if strings.HasPrefix(line, "-") {
					stats.Removed++
				}
			}
		}
	}
	return stats
}

// Path returns the file a diff applies to, with the a/ or b/ prefix
// removed. Deletions report the original name.
func Path(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}

// Apply applies a file diff to text.
//
// # Description
//
// Every context and removed line must match the text exactly; otherwise
// the result is ErrConflict. Hunks must be in order and must not overlap.
// A final line without a newline is expressed the way go-diff does: a
// removed line at OrigNoNewlineAt, and a body that does not end in "\n"
// for the new side.
func Apply(text string, fd *diff.FileDiff) (string, error) {
	lines := splitLines(text)
	var out strings.Builder
	out.Grow(len(text))
	cursor := 0
	for i, hunk := range fd.Hunks {
		start := int(hunk.OrigStartLine)
		if hunk.OrigLines > 0 {
			start--
		}
		if start < cursor || start > len(lines) {
			return "", fmt.Errorf("%w: hunk %d starts at line %d", ErrConflict, i+1, hunk.OrigStartLine)
		}
		for _, l := range lines[cursor:start] {
			out.WriteString(l)
		}
		pos := start
		offset := 0
		for _, raw := range splitLines(string(hunk.Body)) {
			offset += len(raw)
			if raw == "\n" {
				raw = " \n"
			}
			kind, content := raw[0], raw[1:]
			switch kind {
			case ' ', '-':
				want := content
				if kind == '-' && hunk.OrigNoNewlineAt > 0 && offset == int(hunk.OrigNoNewlineAt) {
					want = strings.TrimSuffix(content, "\n")
				}
				if pos >= len(lines) || lines[pos] != want {
					return "", fmt.Errorf("%w: hunk %d line %d differs", ErrConflict, i+1, pos+1)
				}
				if kind == ' ' {
					out.WriteString(content)
				}
				pos++
			case '+':
				out.WriteString(content)
			case '\\':
			default:
				return "", fmt.Errorf("%w: malformed hunk %d line %q", ErrConflict, i+1, raw)
			}
		}
		cursor = pos
	}
	for _, l := range lines[cursor:] {
		out.WriteString(l)
	}
	return out.String(), nil
}

// buildRegions groups sorted edits into whole-line regions.
func buildRegions(li *lineIndex, edits []morph.TextEdit) []region {
	n := len(li.lines)
	span := func(e morph.TextEdit) (int, int) {
		lo := li.lineAt(e.Start)
		if e.End > e.Start {
			return lo, li.lineAt(e.End-1) + 1
		}
		return lo, min(lo+1, n)
	}

	var regions []region
	for i := 0; i < len(edits); {
		lo, hi := span(edits[i])
		group := []morph.TextEdit{edits[i]}
		i++
		var replaced string
		for {
			for i < len(edits) {
				elo, ehi := span(edits[i])
				if elo >= hi {
					break
				}
				group = append(group, edits[i])
				hi = max(hi, ehi)
				i++
			}
			replaced = render(li, lo, hi, group)
			// A replacement ending mid-line swallows the next line.
			if replaced != "" && !strings.HasSuffix(replaced, "\n") && hi < n {
				hi++
				continue
			}
			break
		}
		r := region{lo: lo, hi: hi, oldLines: li.lines[lo:hi], newLines: splitLines(replaced)}
		trim(&r)
		if len(r.oldLines) > 0 || len(r.newLines) > 0 {
			regions = append(regions, r)
		}
	}
	return regions
}

func render(li *lineIndex, lo, hi int, edits []morph.TextEdit) string {
	var b strings.Builder
	last := li.startOf(lo)
	for _, e := range edits {
		b.WriteString(li.text[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(li.text[last:li.startOf(hi)])
	return b.String()
}

// trim drops the lines a region leaves unchanged at either end.
func trim(r *region) {
	for len(r.oldLines) > 0 && len(r.newLines) > 0 && r.oldLines[0] == r.newLines[0] {
		r.oldLines, r.newLines = r.oldLines[1:], r.newLines[1:]
		r.lo++
	}
	for len(r.oldLines) > 0 && len(r.newLines) > 0 &&
		r.oldLines[len(r.oldLines)-1] == r.newLines[len(r.newLines)-1] {
		r.oldLines = r.oldLines[:len(r.oldLines)-1]
		r.newLines = r.newLines[:len(r.newLines)-1]
		r.hi--
	}
}

func buildHunks(li *lineIndex, regions []region, contextLines int) []*diff.Hunk {
	n := len(li.lines)
	var hunks []*diff.Hunk
	delta := 0
	for i := 0; i < len(regions); {
		j := i + 1
		for j < len(regions) && regions[j].lo-regions[j-1].hi <= 2*contextLines {
			j++
		}
		group := regions[i:j]
		i = j

		start := max(0, group[0].lo-contextLines)
		end := min(n, group[len(group)-1].hi+contextLines)

		h := &diff.Hunk{}
		var body strings.Builder
		writeLine := func(prefix byte, line string) {
			body.WriteByte(prefix)
			body.WriteString(line)
			if !strings.HasSuffix(line, "\n") && prefix == '-' {
				body.WriteByte('\n')
				h.OrigNoNewlineAt = int32(body.Len())
			}
		}

		origLines, newLines := end-start, end-start
		cursor := start
		for _, r := range group {
			for _, l := range li.lines[cursor:r.lo] {
				writeLine(' ', l)
			}
			for _, l := range r.oldLines {
				writeLine('-', l)
			}
			for _, l := range r.newLines {
				writeLine('+', l)
			}
			newLines += len(r.newLines) - len(r.oldLines)
			cursor = r.hi
		}
		for _, l := range li.lines[cursor:end] {
			writeLine(' ', l)
		}

		newStart := start + delta
		h.OrigStartLine, h.OrigLines = lineNumber(start, origLines), int32(origLines)
		h.NewStartLine, h.NewLines = lineNumber(newStart, newLines), int32(newLines)
		h.Body = []byte(body.String())
		hunks = append(hunks, h)
		delta += newLines - origLines
	}
	return hunks
}

// lineNumber converts a 0-based line index to the 1-based number used in a
// hunk header. An empty range names the line before it.
func lineNumber(index, count int) int32 {
	if count == 0 {
		return int32(index)
	}
	return int32(index + 1)
}

// splitLines splits text after each newline. The last element lacks a
// newline when text does not end with one.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
