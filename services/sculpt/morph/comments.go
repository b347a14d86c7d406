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
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// attachedDoc returns the comment nodes forming the doc comment of c: a
// run of comments directly above c, each on its own line, with no blank
// line inside the run or between the run and c.
func attachedDoc(c *syntax.Node) []*syntax.Node {
	if !structure.Documented(c.Kind()) && c.Kind() != syntax.KindPackageClause {
		return nil
	}
	p := c.Parent()
	if p == nil {
		return nil
	}
	text := c.Tree().Text()
	siblings := p.Children()
	var out []*syntax.Node
	next := c
	for i := c.Index() - 1; i >= 0; i-- {
		s := siblings[i]
		if s.Kind() != syntax.KindComment {
			break
		}
		gap := text[s.End():next.Start()]
		if strings.Count(gap, "\n") != 1 || strings.TrimSpace(gap) != "" {
			break
		}
		if !onlySpaceBetween(text, lineStart(text, s.Start()), s.Start()) {
			break
		}
		out = append(out, s)
		next = s
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// docText joins the doc comment lines of c, or returns "".
func docText(c *syntax.Node) string {
	comments := attachedDoc(c)
	lines := make([]string, 0, len(comments))
	for _, cm := range comments {
		lines = append(lines, strings.TrimRight(cm.Text(), "\r"))
	}
	return strings.Join(lines, "\n")
}

// extendedStart is where c starts once its doc comment is counted.
func extendedStart(c *syntax.Node) int {
	if doc := attachedDoc(c); len(doc) > 0 {
		return doc[0].Start()
	}
	return c.Start()
}

// isDocOfNext reports whether comment cm is part of the doc comment of
// the next named sibling.
func isDocOfNext(cm *syntax.Node) bool {
	for next := nextNamedSibling(cm); next != nil; next = nextNamedSibling(next) {
		if next.Kind() == syntax.KindComment {
			continue
		}
		for _, d := range attachedDoc(next) {
			if d == cm {
				return true
			}
		}
		return false
	}
	return false
}

// flatten returns the named children of c, descending into transparent
// list nodes such as statement_list and import_spec_list.
func flatten(c *syntax.Node, transparent ...syntax.Kind) []*syntax.Node {
	var out []*syntax.Node
	for _, child := range c.NamedChildren() {
		descend := false
		for _, k := range transparent {
			if child.Kind() == k {
				descend = true
				break
			}
		}
		if descend {
			out = append(out, flatten(child, transparent...)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

// entries filters list children down to items and free-standing
// comments. Doc comments are dropped: they belong to their item.
func entries(children []*syntax.Node, item func(*syntax.Node) bool) []*syntax.Node {
	out := make([]*syntax.Node, 0, len(children))
	for _, c := range children {
		switch {
		case c.Kind() == syntax.KindComment:
			if !isDocOfNext(c) {
				out = append(out, c)
			}
		case item(c):
			out = append(out, c)
		}
	}
	return out
}

// items drops comments from list entries.
func items(list []*syntax.Node) []*syntax.Node {
	out := make([]*syntax.Node, 0, len(list))
	for _, c := range list {
		if c.Kind() != syntax.KindComment {
			out = append(out, c)
		}
	}
	return out
}

// blankBefore reports whether an empty line separates prev from c.
func blankBefore(prev, c *syntax.Node) bool {
	if prev == nil {
		return false
	}
	text := c.Tree().Text()
	start := extendedStart(c)
	if start < prev.End() {
		return false
	}
	return strings.Count(text[prev.End():start], "\n") >= 2
}

func kindIn(kinds ...syntax.Kind) func(*syntax.Node) bool {
	return func(c *syntax.Node) bool {
		for _, k := range kinds {
			if c.Kind() == k {
				return true
			}
		}
		return false
	}
}

func anyNamed(c *syntax.Node) bool { return c.IsNamed() }

// bodyEntries returns the statements and comments of a block.
func bodyEntries(block *syntax.Node) []*syntax.Node {
	return entries(flatten(block, syntax.KindStatementList), anyNamed)
}

// specEntries returns the specs and comments of a grouped declaration.
func specEntries(decl *syntax.Node) []*syntax.Node {
	return entries(flatten(decl, syntax.KindImportSpecList, syntax.KindUnknown),
		kindIn(syntax.KindImportSpec, syntax.KindTypeSpec, syntax.KindTypeAlias,
			syntax.KindConstSpec, syntax.KindVarSpec))
}

// memberContainer returns the node whose children are the members of c:
// the field list of a struct, the interface itself, or the same for the
// type of a type spec. It returns nil for other shapes.
func memberContainer(c *syntax.Node) *syntax.Node {
	switch c.Kind() {
	case syntax.KindTypeSpec:
		if t := c.ChildByField("type"); t != nil {
			return memberContainer(t)
		}
	case syntax.KindStructType:
		return c.FirstChildOfKind(syntax.KindFieldDeclList)
	case syntax.KindInterfaceType:
		return c
	}
	return nil
}

// memberEntries returns the members and comments of a struct or interface.
func memberEntries(container *syntax.Node) []*syntax.Node {
	return entries(container.NamedChildren(),
		kindIn(syntax.KindFieldDecl, syntax.KindMethodElem, syntax.KindTypeElem))
}

// parameterNodes returns the parameter declarations of a list node.
func parameterNodes(list *syntax.Node) []*syntax.Node {
	if list == nil {
		return nil
	}
	return items(entries(list.NamedChildren(),
		kindIn(syntax.KindParameterDecl, syntax.KindVariadicParameterDecl)))
}

// openBrace returns the "{" token among the children of c, or nil.
func openBrace(c *syntax.Node) *syntax.Node {
	for _, child := range c.Children() {
		if !child.IsNamed() && child.Type() == "{" {
			return child
		}
	}
	return nil
}
