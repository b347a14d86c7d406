// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

func TestColorizeDiff(t *testing.T) {
	diff := "--- a/main.go\n+++ b/main.go\n@@ -1,2 +1,2 @@\n package main\n-func a() {}\n+func b() {}\n"

	got := ColorizeDiff(diff)
	assert.Equal(t, diff, plain(got))
	assert.Equal(t, strings.Count(diff, "\n"), strings.Count(got, "\n"))
	assert.Empty(t, ColorizeDiff(""))

	noNewline := "@@ -1 +1 @@\n-a\n+b"
	assert.Equal(t, noNewline, plain(ColorizeDiff(noNewline)))
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	Status(&buf, IconSuccess, "wrote %s", "main.go")
	assert.Equal(t, "✓ wrote main.go\n", plain(buf.String()))

	buf.Reset()
	Status(&buf, IconArrow, "next")
	assert.Equal(t, "→ next\n", plain(buf.String()))
}

func TestBox(t *testing.T) {
	var buf bytes.Buffer
	Box(&buf, "sculpt", "listen :8080")
	out := plain(buf.String())
	assert.Contains(t, out, "sculpt")
	assert.Contains(t, out, "listen :8080")
	assert.Contains(t, out, "╭")
}
