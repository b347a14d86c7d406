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
	"strconv"
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// synthesize reads the structure of c from the text of the current tree.
//
// Multi-line fragments are dedented by the indentation of the line c
// starts on, so rendering the result at that indentation reproduces the
// original text for canonically formatted source.
func synthesize(c *syntax.Node) structure.Structure {
	indent := lineIndent(c.Tree().Text(), extendedStart(c))
	frag := func(n *syntax.Node) *string {
		if n == nil {
			return structure.String("")
		}
		return structure.String(structure.Dedent(n.Text(), indent))
	}
	s := structure.Structure{Kind: c.Kind()}
	if structure.Documented(c.Kind()) && c.Kind() != syntax.KindSourceFile {
		s.Doc = structure.String(docText(c))
	}

	switch c.Kind() {
	case syntax.KindSourceFile:
		synthesizeSourceFile(c, &s)

	case syntax.KindImportDecl:
		s.Specs = listStructures(specEntries(c), true)

	case syntax.KindImportSpec:
		s.Name = structure.String(nameText(c))
		s.Path = structure.String(importPath(c))

	case syntax.KindFunctionDecl, syntax.KindMethodDecl, syntax.KindMethodElem:
		s.Name = structure.String(nameText(c))
		if c.Kind() == syntax.KindFunctionDecl {
			s.TypeParams = frag(c.ChildByField("type_parameters"))
		}
		if c.Kind() == syntax.KindMethodDecl {
			s.Receiver = structure.String(receiverText(c))
		}
		s.Parameters = parameterStructures(c.ChildByField("parameters"))
		s.Results = frag(c.ChildByField("result"))
		if c.Kind() != syntax.KindMethodElem {
			if body := c.ChildByField("body"); body != nil {
				s.Statements = listStructures(bodyEntries(body), true)
			}
		}

	case syntax.KindParameterDecl, syntax.KindVariadicParameterDecl:
		s.Name = structure.String(nameText(c))
		s.Type = frag(c.ChildByField("type"))

	case syntax.KindTypeDecl, syntax.KindConstDecl, syntax.KindVarDecl:
		s.Specs = listStructures(specEntries(c), true)

	case syntax.KindTypeSpec:
		s.Name = structure.String(nameText(c))
		s.TypeParams = frag(c.ChildByField("type_parameters"))
		typ := c.ChildByField("type")
		switch {
		case typ != nil && typ.Kind() == syntax.KindStructType:
			s.Type = structure.String(structure.TypeStruct)
			s.Members = memberStructures(typ)
		case typ != nil && typ.Kind() == syntax.KindInterfaceType:
			s.Type = structure.String(structure.TypeInterface)
			s.Members = memberStructures(typ)
		default:
			s.Type = frag(typ)
		}

	case syntax.KindTypeAlias:
		s.Name = structure.String(nameText(c))
		s.Type = frag(c.ChildByField("type"))

	case syntax.KindStructType, syntax.KindInterfaceType:
		s.Members = memberStructures(c)

	case syntax.KindFieldDecl:
		s.Name = structure.String(nameText(c))
		s.Type = structure.String(structure.Dedent(fieldTypeText(c), indent))
		s.Tag = frag(c.ChildByField("tag"))

	case syntax.KindConstSpec, syntax.KindVarSpec:
		s.Name = structure.String(nameText(c))
		s.Type = frag(c.ChildByField("type"))
		s.Value = frag(c.ChildByField("value"))

	case syntax.KindCallExpr:
		s.Function = structure.String(structure.Dedent(calleeText(c), indent))
		s.Arguments = []structure.Structure{}
		if args := c.ChildByField("arguments"); args != nil {
			for _, a := range items(entries(args.NamedChildren(), anyNamed)) {
				s.Arguments = append(s.Arguments, entryStructure(a))
			}
		}

	default:
		s = structure.Raw(c.Kind(), structure.Dedent(c.Text(), indent))
	}
	return s
}

func synthesizeSourceFile(c *syntax.Node, s *structure.Structure) {
	s.Imports = []structure.Structure{}
	s.Declarations = []structure.Structure{}
	s.Package = structure.String("")
	for _, child := range c.NamedChildren() {
		switch child.Kind() {
		case syntax.KindPackageClause:
			if id := child.FirstChildOfKind(syntax.KindPackageIdentifier); id != nil {
				s.Package = structure.String(id.Text())
			}
			s.Doc = structure.String(docText(child))
		case syntax.KindImportDecl:
			for _, spec := range items(specEntries(child)) {
				s.Imports = append(s.Imports, synthesize(spec))
			}
		case syntax.KindComment:
			if !isDocOfNext(child) {
				s.Declarations = append(s.Declarations, structure.Raw(syntax.KindComment, child.Text()))
			}
		default:
			s.Declarations = append(s.Declarations, entryStructure(child))
		}
	}
}

// listStructures converts list entries, optionally recording empty lines
// between them as blank markers.
func listStructures(list []*syntax.Node, blanks bool) []structure.Structure {
	out := make([]structure.Structure, 0, len(list))
	var prev *syntax.Node
	for _, c := range list {
		if blanks && blankBefore(prev, c) {
			out = append(out, structure.Blank())
		}
		out = append(out, entryStructure(c))
		prev = c
	}
	return out
}

// entryStructure uses the full shape for supported kinds and the raw
// fallback for everything else.
func entryStructure(c *syntax.Node) structure.Structure {
	if structure.Supported(c.Kind()) {
		return synthesize(c)
	}
	indent := lineIndent(c.Tree().Text(), c.Start())
	return structure.Raw(c.Kind(), structure.Dedent(c.Text(), indent))
}

func parameterStructures(list *syntax.Node) []structure.Structure {
	params := parameterNodes(list)
	out := make([]structure.Structure, 0, len(params))
	for _, p := range params {
		out = append(out, synthesize(p))
	}
	return out
}

func memberStructures(typ *syntax.Node) []structure.Structure {
	container := memberContainer(typ)
	if container == nil {
		return []structure.Structure{}
	}
	return listStructures(memberEntries(container), true)
}

// nameText joins the declared names of c with ", ".
func nameText(c *syntax.Node) string {
	names := nameNodes(c)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n.Text())
	}
	return strings.Join(parts, ", ")
}

// nameNodes returns the nodes holding the declared names of c. An
// identifier is its own name. The grammar also files the "," separators
// of a name list under the name field; only named nodes are kept.
func nameNodes(c *syntax.Node) []*syntax.Node {
	switch c.Kind() {
	case syntax.KindIdentifier, syntax.KindFieldIdentifier, syntax.KindTypeIdentifier, syntax.KindPackageIdentifier:
		return []*syntax.Node{c}
	}
	var out []*syntax.Node
	for _, n := range c.ChildrenByField("name") {
		if n.IsNamed() {
			out = append(out, n)
		}
	}
	return out
}

func importPath(c *syntax.Node) string {
	lit := c.ChildByField("path")
	if lit == nil {
		return ""
	}
	if p, err := strconv.Unquote(lit.Text()); err == nil {
		return p
	}
	return strings.Trim(lit.Text(), "\"`")
}

// receiverText returns the receiver list of a method without parentheses.
func receiverText(c *syntax.Node) string {
	recv := c.ChildByField("receiver")
	if recv == nil {
		return ""
	}
	t := strings.TrimSpace(recv.Text())
	t = strings.TrimPrefix(t, "(")
	t = strings.TrimSuffix(t, ")")
	return strings.TrimSpace(t)
}

// fieldTypeText returns the type of a field, including the "*" of an
// embedded pointer field.
func fieldTypeText(c *syntax.Node) string {
	typ := c.ChildByField("type")
	if typ == nil {
		return ""
	}
	if len(nameNodes(c)) == 0 {
		return c.Tree().Text()[c.Start():typ.End()]
	}
	return typ.Text()
}

// calleeText returns the callee of a call, type arguments included.
func calleeText(c *syntax.Node) string {
	fn := c.ChildByField("function")
	args := c.ChildByField("arguments")
	if fn == nil {
		return ""
	}
	if args == nil {
		return fn.Text()
	}
	return strings.TrimSpace(c.Tree().Text()[fn.Start():args.Start()])
}
