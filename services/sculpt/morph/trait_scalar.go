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
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// edit applies edits on behalf of a trait operation.
func (n *Node) edit(ctx context.Context, op string, edits ...TextEdit) error {
	_, err := n.doc.apply(ctx, op, edits, nil)
	return err
}

func (n *Node) newline() string {
	return n.doc.renderer.Settings().LineEnding.Text()
}

// namedTrait implements Named.
type namedTrait struct{ n *Node }

// Name returns the declared name. Declarations of several names at once
// ("a, b int") return them joined by ", ". An absent name is "".
func (t namedTrait) Name() (string, error) {
	if err := t.n.check("Name"); err != nil {
		return "", err
	}
	return nameText(t.n.cur), nil
}

// NameNode returns the handle of the first name identifier, or nil.
func (t namedTrait) NameNode() (Wrapper, error) {
	if err := t.n.check("NameNode"); err != nil {
		return nil, err
	}
	names := nameNodes(t.n.cur)
	if len(names) == 0 {
		return nil, nil
	}
	return t.n.doc.wrap(names[0]), nil
}

// Rename replaces the declared name.
//
// The handle survives the rename. Handles on the old name identifier are
// forgotten unless the renamed handle is that identifier. An empty name
// removes an optional name (import alias, parameter name) and is rejected
// where a name is required.
func (t namedTrait) Rename(ctx context.Context, name string) error {
	defer t.n.doc.exclusive()()
	return t.rename(ctx, name)
}

func (t namedTrait) rename(ctx context.Context, name string) error {
	n := t.n
	if err := n.check("Rename"); err != nil {
		return err
	}
	if name != "" && !isIdentList(name) {
		return &StructureMismatchError{Kind: n.kind, Field: "name", Reason: "not an identifier: " + name}
	}
	c := n.cur
	text := n.doc.text
	names := nameNodes(c)

	if len(names) == 0 {
		if name == "" {
			return nil
		}
		if !optionalName(c.Kind()) {
			return &NotFoundError{What: "name", Name: c.Kind().String()}
		}
		return n.edit(ctx, "Rename", TextEdit{Start: c.Start(), End: c.Start(), Text: name + " "})
	}

	start, end := names[0].Start(), names[len(names)-1].End()
	if name == "" {
		if !optionalName(c.Kind()) {
			return &StructureMismatchError{Kind: n.kind, Field: "name", Reason: "name is required"}
		}
		for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
			end++
		}
		return n.edit(ctx, "Rename", TextEdit{Start: start, End: end})
	}

	e := TextEdit{Start: start, End: end, Text: name}
	if n.doc.renderer.Settings().PreferPrefixSuffixRename {
		var changed bool
		if e, changed = narrow(start, text[start:end], name); !changed {
			return nil
		}
	} else if text[start:end] == name {
		return nil
	}

	var anchors []anchor
	if len(names) == 1 && names[0] == c {
		anchors = []anchor{{handle: n, at: Range{Start: start, End: start + len(name)}}}
	}
	_, err := n.doc.apply(ctx, "Rename", []TextEdit{e}, anchors)
	return err
}

func optionalName(k syntax.Kind) bool {
	switch k {
	case syntax.KindImportSpec, syntax.KindParameterDecl, syntax.KindVariadicParameterDecl, syntax.KindFieldDecl:
		return true
	}
	return false
}

// isIdentList accepts "a" and "a, b".
func isIdentList(s string) bool {
	for _, part := range strings.Split(s, ",") {
		if !token.IsIdentifier(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}

// hasName reports whether c declares name. Embedded fields are named by
// their type without pointer or package qualifier.
func hasName(c *syntax.Node, name string) bool {
	names := nameNodes(c)
	for _, n := range names {
		if n.Text() == name {
			return true
		}
	}
	if len(names) == 0 && c.Kind() == syntax.KindFieldDecl {
		t := strings.TrimPrefix(fieldTypeText(c), "*")
		if i := strings.LastIndexByte(t, '.'); i >= 0 {
			t = t[i+1:]
		}
		return t == name
	}
	return false
}

// exportableTrait implements Exportable.
type exportableTrait struct{ n *Node }

// IsExported reports whether the (first) declared name is exported.
func (t exportableTrait) IsExported() (bool, error) {
	name, err := namedTrait(t).Name()
	if err != nil {
		return false, err
	}
	first, _, _ := strings.Cut(name, ",")
	return token.IsExported(strings.TrimSpace(first)), nil
}

// SetExported changes the case of the first letter of every declared name.
func (t exportableTrait) SetExported(ctx context.Context, exported bool) error {
	defer t.n.doc.exclusive()()
	name, err := namedTrait(t).Name()
	if err != nil {
		return err
	}
	if name == "" {
		return &StructureMismatchError{Kind: t.n.kind, Field: "name", Reason: "no name to export"}
	}
	parts := strings.Split(name, ", ")
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		if r == '_' {
			return &StructureMismatchError{Kind: t.n.kind, Field: "name", Reason: "blank or underscore name cannot change visibility"}
		}
		if exported {
			r = unicode.ToUpper(r)
		} else {
			r = unicode.ToLower(r)
		}
		parts[i] = string(r) + p[size:]
	}
	return namedTrait(t).rename(ctx, strings.Join(parts, ", "))
}

// typedTrait implements Typed.
type typedTrait struct{ n *Node }

// typeSpan returns the range of the type expression, or ok=false.
func typeSpan(c *syntax.Node) (Range, bool) {
	typ := c.ChildByField("type")
	if typ == nil {
		return Range{}, false
	}
	if c.Kind() == syntax.KindFieldDecl && len(nameNodes(c)) == 0 {
		return Range{Start: c.Start(), End: typ.End()}, true
	}
	return Range{Start: typ.Start(), End: typ.End()}, true
}

// TypeText returns the type expression, or "" when there is none.
func (t typedTrait) TypeText() (string, error) {
	if err := t.n.check("TypeText"); err != nil {
		return "", err
	}
	r, ok := typeSpan(t.n.cur)
	if !ok {
		return "", nil
	}
	return t.n.doc.text[r.Start:r.End], nil
}

// SetTypeText replaces the type expression. The type of a const or var
// spec is optional and may be removed with "".
func (t typedTrait) SetTypeText(ctx context.Context, typ string) error {
	n := t.n
	defer n.doc.exclusive()()
	if err := n.check("SetTypeText"); err != nil {
		return err
	}
	c := n.cur
	optional := c.Kind() == syntax.KindConstSpec || c.Kind() == syntax.KindVarSpec
	r, ok := typeSpan(c)
	switch {
	case ok && typ != "":
		return n.edit(ctx, "SetTypeText", TextEdit{Start: r.Start, End: r.End, Text: typ})
	case ok && optional:
		return n.edit(ctx, "SetTypeText", TextEdit{Start: lastNameEnd(c), End: r.End})
	case ok:
		return &StructureMismatchError{Kind: n.kind, Field: "type", Reason: "type is required"}
	case typ == "":
		return nil
	default:
		pos := lastNameEnd(c)
		return n.edit(ctx, "SetTypeText", TextEdit{Start: pos, End: pos, Text: " " + typ})
	}
}

func lastNameEnd(c *syntax.Node) int {
	names := nameNodes(c)
	if len(names) == 0 {
		return c.Start()
	}
	return names[len(names)-1].End()
}

// valuedTrait implements Valued.
type valuedTrait struct{ n *Node }

// ValueText returns the value expression list, or "".
func (t valuedTrait) ValueText() (string, error) {
	if err := t.n.check("ValueText"); err != nil {
		return "", err
	}
	if v := t.n.cur.ChildByField("value"); v != nil {
		return v.Text(), nil
	}
	return "", nil
}

// SetValueText replaces the value. "" removes it together with the "=".
func (t valuedTrait) SetValueText(ctx context.Context, value string) error {
	n := t.n
	defer n.doc.exclusive()()
	if err := n.check("SetValueText"); err != nil {
		return err
	}
	c := n.cur
	prevEnd := lastNameEnd(c)
	if r, ok := typeSpan(c); ok {
		prevEnd = r.End
	}
	v := c.ChildByField("value")
	switch {
	case v != nil && value != "":
		return n.edit(ctx, "SetValueText", TextEdit{Start: v.Start(), End: v.End(), Text: value})
	case v != nil:
		return n.edit(ctx, "SetValueText", TextEdit{Start: prevEnd, End: v.End()})
	case value == "":
		return nil
	default:
		return n.edit(ctx, "SetValueText", TextEdit{Start: prevEnd, End: prevEnd, Text: " = " + value})
	}
}

// taggedTrait implements Tagged.
type taggedTrait struct{ n *Node }

// Tag returns the raw struct tag literal, quotes included, or "".
func (t taggedTrait) Tag() (string, error) {
	if err := t.n.check("Tag"); err != nil {
		return "", err
	}
	if tag := t.n.cur.ChildByField("tag"); tag != nil {
		return tag.Text(), nil
	}
	return "", nil
}

// SetTag replaces the tag literal. "" removes it.
func (t taggedTrait) SetTag(ctx context.Context, tag string) error {
	n := t.n
	defer n.doc.exclusive()()
	if err := n.check("SetTag"); err != nil {
		return err
	}
	c := n.cur
	r, ok := typeSpan(c)
	if !ok {
		return &StructureMismatchError{Kind: n.kind, Field: "tag", Reason: "field has no type"}
	}
	old := c.ChildByField("tag")
	switch {
	case old != nil && tag != "":
		return n.edit(ctx, "SetTag", TextEdit{Start: old.Start(), End: old.End(), Text: tag})
	case old != nil:
		return n.edit(ctx, "SetTag", TextEdit{Start: r.End, End: old.End()})
	case tag == "":
		return nil
	default:
		return n.edit(ctx, "SetTag", TextEdit{Start: r.End, End: r.End, Text: " " + tag})
	}
}

// receiverTrait implements WithReceiver.
type receiverTrait struct{ n *Node }

// ReceiverText returns the receiver without parentheses, e.g. "s *Server".
func (t receiverTrait) ReceiverText() (string, error) {
	if err := t.n.check("ReceiverText"); err != nil {
		return "", err
	}
	return receiverText(t.n.cur), nil
}

// ReceiverType returns the receiver's base type name, e.g. "Server" for
// "s *Server[T]".
func (t receiverTrait) ReceiverType() (string, error) {
	if err := t.n.check("ReceiverType"); err != nil {
		return "", err
	}
	return receiverTypeName(t.n.cur), nil
}

func receiverTypeName(c *syntax.Node) string {
	recv := c.ChildByField("receiver")
	if recv == nil {
		return ""
	}
	params := parameterNodes(recv)
	if len(params) == 0 {
		return ""
	}
	typ := params[0].ChildByField("type")
	for typ != nil {
		switch typ.Kind() {
		case syntax.KindPointerType:
			children := typ.NamedChildren()
			if len(children) == 0 {
				return ""
			}
			typ = children[0]
		case syntax.KindGenericType:
			typ = typ.ChildByField("type")
		default:
			return typ.Text()
		}
	}
	return ""
}
