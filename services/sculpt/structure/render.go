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
	"go/format"
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Rendered is the source text produced for one structure.
type Rendered struct {
	// Text is the full fragment, leading doc comment included.
	Text string

	// NodeOffset is where the node itself starts within Text, i.e. the
	// length of the rendered doc comment prefix.
	NodeOffset int
}

// Renderer turns structures into source text under a set of Settings.
//
// # Description
//
// The first line of the output is not indented; it is spliced in where the
// node starts. Every following line is prefixed with the base indentation
// of the node's line plus one IndentationUnit per nesting level. Top level
// declarations rendered with tab indentation are passed through go/format
// so field and comment alignment matches gofmt.
//
// # Thread Safety
//
// Renderer is immutable and safe for concurrent use.
type Renderer struct {
	settings Settings
}

// NewRenderer creates a renderer. Empty settings fall back to defaults.
func NewRenderer(settings Settings) *Renderer {
	return &Renderer{settings: settings.WithDefaults()}
}

// Settings returns the settings in effect.
func (r *Renderer) Settings() Settings { return r.settings }

// Render validates s and renders it at base indentation.
//
// # Outputs
//
//   - Rendered: The fragment, with the configured line endings.
//   - error: A *MismatchError when s is malformed. No text is produced.
func (r *Renderer) Render(s Structure, base string) (Rendered, error) {
	s = Normalize(s)
	if err := Validate(s); err != nil {
		return Rendered{}, err
	}

	doc := r.docPrefix(s, base)
	text := doc + r.node(s, base)
	offset := len(doc)

	if base == "" && r.settings.IndentationUnit == IndentTab &&
		(s.Kind.IsDeclaration() || s.Kind == syntax.KindSourceFile) {
		if formatted, err := format.Source([]byte(text)); err == nil {
			text = string(formatted)
			offset = docOffset(text, Deref(s.Doc))
		}
	}

	if nl := r.settings.LineEnding.Text(); nl != "\n" {
		offset = len(strings.ReplaceAll(text[:offset], "\n", nl))
		text = strings.ReplaceAll(text, "\n", nl)
	}
	return Rendered{Text: text, NodeOffset: offset}, nil
}

// Blank returns the marker for an empty line inside a list.
func Blank() Structure {
	return Structure{Kind: syntax.KindUnknown, Text: String("")}
}

// IsBlank reports whether s is the empty line marker.
func IsBlank(s Structure) bool {
	return s.Kind == syntax.KindUnknown && s.Text != nil && *s.Text == "" && s.Fields() == FieldText
}

func (r *Renderer) unit() string { return r.settings.IndentationUnit.Text() }

func (r *Renderer) docPrefix(s Structure, base string) string {
	doc := Deref(s.Doc)
	if doc == "" || !Documented(s.Kind) {
		return ""
	}
	lines := strings.Split(normalizeNewlines(doc), "\n")
	return strings.Join(lines, "\n"+base) + "\n" + base
}

func (r *Renderer) full(s Structure, base string) string {
	return r.docPrefix(s, base) + r.node(s, base)
}

func (r *Renderer) node(s Structure, base string) string {
	switch s.Kind {
	case syntax.KindSourceFile:
		return r.sourceFile(s)

	case syntax.KindImportSpec:
		path := r.settings.QuoteStyle.Quote(Deref(s.Path))
		if name := Deref(s.Name); name != "" {
			return name + " " + path
		}
		return path

	case syntax.KindImportDecl:
		return "import" + r.group(s.Specs, base)

	case syntax.KindFunctionDecl:
		return "func " + Deref(s.Name) + Deref(s.TypeParams) + r.signature(s, base) + r.body(s.Statements, base)

	case syntax.KindMethodDecl:
		return "func (" + Deref(s.Receiver) + ") " + Deref(s.Name) + r.signature(s, base) + r.body(s.Statements, base)

	case syntax.KindParameterDecl:
		return joinNonEmpty(" ", Deref(s.Name), Reindent(Deref(s.Type), base))

	case syntax.KindVariadicParameterDecl:
		return joinNonEmpty(" ", Deref(s.Name), "..."+Reindent(Deref(s.Type), base))

	case syntax.KindTypeDecl:
		return "type" + r.group(s.Specs, base)

	case syntax.KindConstDecl:
		return "const" + r.group(s.Specs, base)

	case syntax.KindVarDecl:
		return "var" + r.group(s.Specs, base)

	case syntax.KindTypeSpec:
		typ := Deref(s.Type)
		var body string
		switch typ {
		case TypeStruct:
			body = "struct" + r.members(s.Members, base)
		case TypeInterface:
			body = "interface" + r.members(s.Members, base)
		default:
			body = Reindent(typ, base)
		}
		return Deref(s.Name) + Deref(s.TypeParams) + " " + body

	case syntax.KindTypeAlias:
		return Deref(s.Name) + " = " + Reindent(Deref(s.Type), base)

	case syntax.KindStructType:
		return "struct" + r.members(s.Members, base)

	case syntax.KindInterfaceType:
		return "interface" + r.members(s.Members, base)

	case syntax.KindFieldDecl:
		return joinNonEmpty(" ", Deref(s.Name), Reindent(Deref(s.Type), base), Deref(s.Tag))

	case syntax.KindMethodElem:
		return Deref(s.Name) + r.signature(s, base)

	case syntax.KindConstSpec, syntax.KindVarSpec:
		out := joinNonEmpty(" ", Deref(s.Name), Reindent(Deref(s.Type), base))
		if v := Deref(s.Value); v != "" {
			out += " = " + Reindent(v, base)
		}
		return out

	case syntax.KindCallExpr:
		args := make([]string, 0, len(s.Arguments))
		for _, a := range s.Arguments {
			args = append(args, r.node(a, base))
		}
		return Reindent(Deref(s.Function), base) + "(" + strings.Join(args, ", ") + ")"

	default:
		return Reindent(Deref(s.Text), base)
	}
}

func (r *Renderer) signature(s Structure, base string) string {
	params := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		params = append(params, r.node(p, base))
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if res := Deref(s.Results); res != "" {
		out += " " + Reindent(res, base)
	}
	return out
}

// body renders a function body. A nil statement list means the function
// has no body at all.
func (r *Renderer) body(stmts []Structure, base string) string {
	if stmts == nil {
		return ""
	}
	if len(stmts) == 0 {
		return " {}"
	}
	return " {\n" + r.lines(stmts, base+r.unit()) + "\n" + base + "}"
}

// group renders the specs of a declaration, parenthesized when there is
// more than one line.
func (r *Renderer) group(specs []Structure, base string) string {
	if len(specs) == 1 && !IsBlank(specs[0]) && Deref(specs[0].Doc) == "" {
		return " " + r.node(specs[0], base)
	}
	if len(specs) == 0 {
		return " ()"
	}
	return " (\n" + r.lines(specs, base+r.unit()) + "\n" + base + ")"
}

func (r *Renderer) members(members []Structure, base string) string {
	if len(members) == 0 {
		return "{}"
	}
	return " {\n" + r.lines(members, base+r.unit()) + "\n" + base + "}"
}

// lines renders one item per line at indent. Blank markers become empty
// lines without trailing whitespace.
func (r *Renderer) lines(items []Structure, indent string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if IsBlank(item) {
			out = append(out, "")
			continue
		}
		out = append(out, indent+r.full(item, indent))
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) sourceFile(s Structure) string {
	sections := []string{"package " + Deref(s.Package)}
	if len(s.Imports) > 0 {
		specs := make([]Structure, 0, len(s.Imports))
		for _, imp := range s.Imports {
			if !IsBlank(imp) {
				specs = append(specs, imp)
			}
		}
		if len(specs) == 1 {
			sections = append(sections, "import "+r.node(specs[0], ""))
		} else {
			sections = append(sections, "import (\n"+r.lines(specs, r.unit())+"\n)")
		}
	}
	for _, decl := range s.Declarations {
		if IsBlank(decl) {
			continue
		}
		sections = append(sections, r.full(decl, ""))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// Dedent strips indent from every line after the first and normalizes
// line endings to "\n". It is the inverse of Reindent.
func Dedent(text, indent string) string {
	text = normalizeNewlines(text)
	if indent == "" || !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], indent)
	}
	return strings.Join(lines, "\n")
}

// Reindent prefixes every non-empty line after the first with base.
func Reindent(text, base string) string {
	text = normalizeNewlines(text)
	if base == "" || !strings.Contains(text, "\n") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = base + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// docOffset finds where the node starts in gofmt output whose first lines
// are the doc comment.
func docOffset(text, doc string) int {
	if doc == "" {
		return 0
	}
	n := strings.Count(normalizeNewlines(doc), "\n") + 1
	pos := 0
	for i := 0; i < n; i++ {
		next := strings.IndexByte(text[pos:], '\n')
		if next < 0 {
			return len(text)
		}
		pos += next + 1
	}
	return pos
}
