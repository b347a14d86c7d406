// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux holds the terminal styling of the sculpt command line.
//
// Styles degrade to plain text when the output is not a terminal, so
// everything here is safe to pipe.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette, deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Heading   lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// LineNumber right-aligns line numbers in a five column gutter.
	LineNumber lipgloss.Style
	// Kind pads declaration kinds to a fixed column.
	Kind lipgloss.Style

	Box lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Heading:   lipgloss.NewStyle().Bold(true).Underline(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealPrimary).Bold(true),

	LineNumber: lipgloss.NewStyle().Foreground(ColorSlate).Width(5).Align(lipgloss.Right),
	Kind:       lipgloss.NewStyle().Foreground(ColorWarning).Width(7),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 2),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// Render returns the icon in its status color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Status writes one "icon message" line.
func Status(w io.Writer, icon Icon, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", icon.Render(), fmt.Sprintf(format, args...))
}

// Box writes content in a rounded box under a title.
func Box(w io.Writer, title, content string) {
	body := content
	if title != "" {
		body = Styles.Title.Render(title) + "\n\n" + content
	}
	fmt.Fprintln(w, Styles.Box.Render(body))
}

// ColorizeDiff colors a unified diff: additions green-teal, removals red,
// hunk headers muted. File headers are left plain.
func ColorizeDiff(diff string) string {
	if diff == "" {
		return ""
	}
	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			b.WriteString(Styles.Heading.Render(body))
		case strings.HasPrefix(body, "@@"):
			b.WriteString(Styles.Muted.Render(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(Styles.Success.Render(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(Styles.Error.Render(body))
		default:
			b.WriteString(body)
		}
		b.WriteString(nl)
	}
	return b.String()
}
