// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IndentationUnit selects the text of one indentation level.
type IndentationUnit string

const (
	IndentTwoSpaces   IndentationUnit = "twoSpace"
	IndentFourSpaces  IndentationUnit = "fourSpace"
	IndentEightSpaces IndentationUnit = "eightSpace"
	IndentTab         IndentationUnit = "tab"
)

// Text returns the characters of one indentation level.
func (u IndentationUnit) Text() string {
	switch u {
	case IndentTwoSpaces:
		return "  "
	case IndentFourSpaces:
		return "    "
	case IndentEightSpaces:
		return "        "
	default:
		return "\t"
	}
}

// LineEnding selects the newline sequence of rendered text.
type LineEnding string

const (
	LineEndingLF   LineEnding = "lf"
	LineEndingCRLF LineEnding = "crlf"
)

// Text returns the newline sequence.
func (l LineEnding) Text() string {
	if l == LineEndingCRLF {
		return "\r\n"
	}
	return "\n"
}

// QuoteStyle selects how rendered import paths are quoted.
//
// Go has no single-quoted strings, so QuoteSingle renders raw
// (back-quoted) string literals.
type QuoteStyle string

const (
	QuoteSingle QuoteStyle = "single"
	QuoteDouble QuoteStyle = "double"
)

// Quote renders s as a string literal in this style. Values a raw literal
// cannot hold fall back to an interpreted literal.
func (q QuoteStyle) Quote(s string) string {
	if q == QuoteSingle && !strings.ContainsAny(s, "`\r") {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

// Settings are the manipulation settings consulted when rendering.
//
// They only affect how synthesized text looks, never which handles
// survive an edit.
type Settings struct {
	IndentationUnit          IndentationUnit `yaml:"indentationUnit" json:"indentationUnit" validate:"omitempty,oneof=twoSpace fourSpace eightSpace tab"`
	LineEnding               LineEnding      `yaml:"lineEnding" json:"lineEnding" validate:"omitempty,oneof=lf crlf"`
	QuoteStyle               QuoteStyle      `yaml:"quoteStyle" json:"quoteStyle" validate:"omitempty,oneof=single double"`
	PreferPrefixSuffixRename bool            `yaml:"preferPrefixSuffixRename" json:"preferPrefixSuffixRename"`
}

// DefaultSettings returns gofmt-compatible settings: tabs, LF, double quotes.
func DefaultSettings() Settings {
	return Settings{
		IndentationUnit: IndentTab,
		LineEnding:      LineEndingLF,
		QuoteStyle:      QuoteDouble,
	}
}

// Validate rejects unknown option values.
func (s Settings) Validate() error {
	if err := structureValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid setting %s: %q", verrs[0].Field(), verrs[0].Value())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// WithDefaults fills empty options from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.IndentationUnit == "" {
		s.IndentationUnit = d.IndentationUnit
	}
	if s.LineEnding == "" {
		s.LineEnding = d.LineEnding
	}
	if s.QuoteStyle == "" {
		s.QuoteStyle = d.QuoteStyle
	}
	return s
}
