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
	"fmt"
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// defaultKind fills in the kind of a structure given without one.
func defaultKind(s structure.Structure, kind syntax.Kind) structure.Structure {
	if s.Kind == syntax.KindUnknown && s.Text == nil {
		s.Kind = kind
	}
	return s
}

func checkChildKind(owner syntax.Kind, field string, s structure.Structure, allowed ...syntax.Kind) error {
	for _, k := range allowed {
		if s.Kind == k {
			return nil
		}
	}
	return &StructureMismatchError{Kind: owner, Field: field, Reason: fmt.Sprintf("%s is not allowed here", s.Kind)}
}

func indexError(index, n int) error {
	return &RangeError{Start: index, End: index, Length: n, Reason: "list index out of bounds"}
}

// insertInBraces inserts s as entry index of a brace delimited list, one
// entry per line, and returns the handle of the inserted node.
func (n *Node) insertInBraces(ctx context.Context, op string, container *syntax.Node, list []*syntax.Node, index int, s structure.Structure) (Wrapper, error) {
	if index < 0 || index > len(list) {
		return nil, indexError(index, len(list))
	}
	d := n.doc
	text := d.text
	nl := n.newline()
	closeIndent := lineIndent(text, container.Start())
	indent := closeIndent + d.renderer.Settings().IndentationUnit.Text()
	if len(list) > 0 {
		indent = lineIndent(text, extendedStart(list[0]))
	}
	rendered, err := d.renderer.Render(s, indent)
	if err != nil {
		return nil, mismatch(err)
	}
	r := rendered.Text

	var e TextEdit
	var at Range
	switch {
	case index < len(list):
		pos := extendedStart(list[index])
		e = TextEdit{Start: pos, End: pos, Text: r + nl + indent}
		at = Range{Start: pos + rendered.NodeOffset, End: pos + len(r)}
	case len(list) > 0:
		pos := list[len(list)-1].End()
		prefix := nl + indent
		e = TextEdit{Start: pos, End: pos, Text: prefix + r}
		at = Range{Start: pos + len(prefix) + rendered.NodeOffset, End: pos + len(prefix) + len(r)}
	default:
		brace := openBrace(container)
		if brace == nil {
			return nil, &UnsupportedKindError{Kind: n.kind, Op: op, Detail: "no braces to insert into"}
		}
		pos := brace.End()
		prefix := nl + indent
		suffix := nl + closeIndent
		if strings.HasPrefix(text[pos:], "\n") || strings.HasPrefix(text[pos:], "\r\n") {
			suffix = ""
		}
		e = TextEdit{Start: pos, End: pos, Text: prefix + r + suffix}
		at = Range{Start: pos + len(prefix) + rendered.NodeOffset, End: pos + len(prefix) + len(r)}
	}
	return d.insertAndLocate(ctx, op, e, at, s.Kind)
}

// insertInList inserts s as element index of a comma separated list
// delimited by open.
func (n *Node) insertInList(ctx context.Context, op string, list *syntax.Node, elems []*syntax.Node, index int, s structure.Structure, open string) (Wrapper, error) {
	if index < 0 || index > len(elems) {
		return nil, indexError(index, len(elems))
	}
	d := n.doc
	rendered, err := d.renderer.Render(s, lineIndent(d.text, list.Start()))
	if err != nil {
		return nil, mismatch(err)
	}
	r := rendered.Text

	var e TextEdit
	var at Range
	switch {
	case index < len(elems):
		pos := elems[index].Start()
		e = TextEdit{Start: pos, End: pos, Text: r + ", "}
		at = Range{Start: pos, End: pos + len(r)}
	case len(elems) > 0:
		pos := elems[len(elems)-1].End()
		e = TextEdit{Start: pos, End: pos, Text: ", " + r}
		at = Range{Start: pos + 2, End: pos + 2 + len(r)}
	default:
		pos := -1
		for _, c := range list.Children() {
			if !c.IsNamed() && c.Type() == open {
				pos = c.End()
				break
			}
		}
		if pos < 0 {
			return nil, &UnsupportedKindError{Kind: n.kind, Op: op, Detail: "no " + open + " to insert after"}
		}
		e = TextEdit{Start: pos, End: pos, Text: r}
		at = Range{Start: pos, End: pos + len(r)}
	}
	return d.insertAndLocate(ctx, op, e, at, s.Kind)
}

func (n *Node) removeEntry(ctx context.Context, op string, list []*syntax.Node, index int) error {
	if index < 0 || index >= len(list) {
		return indexError(index, len(list))
	}
	return n.edit(ctx, op, removalEdit(list[index]))
}

// parametersTrait implements WithParameters.
type parametersTrait struct{ n *Node }

func (t parametersTrait) list() *syntax.Node { return t.n.cur.ChildByField("parameters") }

// Parameters returns the parameter declarations in order.
func (t parametersTrait) Parameters() ([]*Parameter, error) {
	if err := t.n.check("Parameters"); err != nil {
		return nil, err
	}
	params := parameterNodes(t.list())
	out := make([]*Parameter, 0, len(params))
	for _, p := range params {
		out = append(out, wrapAs[*Parameter](t.n.doc, p))
	}
	return out, nil
}

func (t parametersTrait) parameter(name, op string) lookup[*Parameter] {
	if err := t.n.check(op); err != nil {
		return failed[*Parameter](err)
	}
	for _, p := range parameterNodes(t.list()) {
		if hasName(p, name) {
			return found(wrapAs[*Parameter](t.n.doc, p))
		}
	}
	return missing[*Parameter]("parameter", name)
}

// Parameter returns the parameter declaring name, or nil.
func (t parametersTrait) Parameter(name string) (*Parameter, error) {
	return t.parameter(name, "Parameter").orNil()
}

// ParameterOrErr returns the parameter declaring name, or a *NotFoundError.
func (t parametersTrait) ParameterOrErr(name string) (*Parameter, error) {
	return t.parameter(name, "ParameterOrErr").orErr()
}

// InsertParameter inserts a parameter at index. A structure without a
// kind is a parameterDecl.
func (t parametersTrait) InsertParameter(ctx context.Context, index int, s structure.Structure) (*Parameter, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("InsertParameter"); err != nil {
		return nil, err
	}
	return t.insertParameter(ctx, index, s)
}

func (t parametersTrait) insertParameter(ctx context.Context, index int, s structure.Structure) (*Parameter, error) {
	s = defaultKind(s, syntax.KindParameterDecl)
	if err := checkChildKind(t.n.kind, "parameters", s, syntax.KindParameterDecl, syntax.KindVariadicParameterDecl); err != nil {
		return nil, err
	}
	w, err := t.n.insertInList(ctx, "InsertParameter", t.list(), parameterNodes(t.list()), index, s, "(")
	if err != nil {
		return nil, err
	}
	p, _ := w.(*Parameter)
	return p, nil
}

// AddParameter appends a parameter.
func (t parametersTrait) AddParameter(ctx context.Context, s structure.Structure) (*Parameter, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("AddParameter"); err != nil {
		return nil, err
	}
	return t.insertParameter(ctx, len(parameterNodes(t.list())), s)
}

// RemoveParameter removes the parameter declaration at index.
func (t parametersTrait) RemoveParameter(ctx context.Context, index int) error {
	defer t.n.doc.exclusive()()
	if err := t.n.check("RemoveParameter"); err != nil {
		return err
	}
	return t.n.removeEntry(ctx, "RemoveParameter", parameterNodes(t.list()), index)
}

// resultsTrait implements WithResults.
type resultsTrait struct{ n *Node }

// ResultsText returns the result list as written, or "".
func (t resultsTrait) ResultsText() (string, error) {
	if err := t.n.check("ResultsText"); err != nil {
		return "", err
	}
	if r := t.n.cur.ChildByField("result"); r != nil {
		return r.Text(), nil
	}
	return "", nil
}

// SetResultsText replaces the result list. "" removes it.
func (t resultsTrait) SetResultsText(ctx context.Context, results string) error {
	n := t.n
	defer n.doc.exclusive()()
	if err := n.check("SetResultsText"); err != nil {
		return err
	}
	params := n.cur.ChildByField("parameters")
	if params == nil {
		return &UnsupportedKindError{Kind: n.kind, Trait: TraitResults, Op: "SetResultsText", Detail: "no parameter list"}
	}
	old := n.cur.ChildByField("result")
	switch {
	case old != nil && results != "":
		return n.edit(ctx, "SetResultsText", TextEdit{Start: old.Start(), End: old.End(), Text: results})
	case old != nil:
		return n.edit(ctx, "SetResultsText", TextEdit{Start: params.End(), End: old.End()})
	case results == "":
		return nil
	default:
		return n.edit(ctx, "SetResultsText", TextEdit{Start: params.End(), End: params.End(), Text: " " + results})
	}
}

// bodyTrait implements WithBody.
type bodyTrait struct{ n *Node }

func (t bodyTrait) block() *syntax.Node {
	if t.n.cur.Kind() == syntax.KindBlock {
		return t.n.cur
	}
	return t.n.cur.ChildByField("body")
}

func (t bodyTrait) statementNodes() []*syntax.Node {
	b := t.block()
	if b == nil {
		return nil
	}
	return items(bodyEntries(b))
}

// HasBody reports whether the declaration has a body. Functions declared
// without one are implemented elsewhere.
func (t bodyTrait) HasBody() (bool, error) {
	if err := t.n.check("HasBody"); err != nil {
		return false, err
	}
	return t.block() != nil, nil
}

// Statements returns the statements of the body, comments excluded.
func (t bodyTrait) Statements() ([]Wrapper, error) {
	if err := t.n.check("Statements"); err != nil {
		return nil, err
	}
	return t.n.doc.wrapAll(t.statementNodes()), nil
}

// InsertStatement inserts a statement at index, on its own line. Use
// structure.Raw for statements without a dedicated shape.
func (t bodyTrait) InsertStatement(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("InsertStatement"); err != nil {
		return nil, err
	}
	return t.insertStatement(ctx, index, s)
}

func (t bodyTrait) insertStatement(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	b := t.block()
	if b == nil {
		return nil, &UnsupportedKindError{Kind: t.n.kind, Trait: TraitBody, Op: "InsertStatement", Detail: "declaration has no body"}
	}
	return t.n.insertInBraces(ctx, "InsertStatement", b, t.statementNodes(), index, s)
}

// AddStatement appends a statement.
func (t bodyTrait) AddStatement(ctx context.Context, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("AddStatement"); err != nil {
		return nil, err
	}
	return t.insertStatement(ctx, len(t.statementNodes()), s)
}

// RemoveStatement removes the statement at index with its line.
func (t bodyTrait) RemoveStatement(ctx context.Context, index int) error {
	defer t.n.doc.exclusive()()
	if err := t.n.check("RemoveStatement"); err != nil {
		return err
	}
	return t.n.removeEntry(ctx, "RemoveStatement", t.statementNodes(), index)
}

// membersTrait implements WithMembers.
type membersTrait struct{ n *Node }

func (t membersTrait) container(op string) (*syntax.Node, error) {
	if err := t.n.check(op); err != nil {
		return nil, err
	}
	c := memberContainer(t.n.cur)
	if c == nil {
		return nil, &UnsupportedKindError{Kind: t.n.kind, Trait: TraitMembers, Op: op, Detail: "type is neither a struct nor an interface"}
	}
	return c, nil
}

// Members returns the fields of a struct or the elements of an interface.
func (t membersTrait) Members() ([]Wrapper, error) {
	c, err := t.container("Members")
	if err != nil {
		return nil, err
	}
	return t.n.doc.wrapAll(items(memberEntries(c))), nil
}

func (t membersTrait) member(name, op string) lookup[Wrapper] {
	c, err := t.container(op)
	if err != nil {
		return failed[Wrapper](err)
	}
	for _, m := range items(memberEntries(c)) {
		if hasName(m, name) {
			return found(t.n.doc.wrap(m))
		}
	}
	return missing[Wrapper]("member", name)
}

// Member returns the member declaring name, or nil.
func (t membersTrait) Member(name string) (Wrapper, error) { return t.member(name, "Member").orNil() }

// MemberOrErr returns the member declaring name, or a *NotFoundError.
func (t membersTrait) MemberOrErr(name string) (Wrapper, error) {
	return t.member(name, "MemberOrErr").orErr()
}

// InsertMember inserts a member at index on its own line. Existing
// members keep their handles. A structure without a kind is a fieldDecl
// in a struct and a methodElem in an interface.
func (t membersTrait) InsertMember(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	c, err := t.container("InsertMember")
	if err != nil {
		return nil, err
	}
	return t.insertMember(ctx, c, index, s)
}

func (t membersTrait) insertMember(ctx context.Context, c *syntax.Node, index int, s structure.Structure) (Wrapper, error) {
	var err error
	if c.Kind() == syntax.KindInterfaceType {
		s = defaultKind(s, syntax.KindMethodElem)
		err = checkChildKind(t.n.kind, "members", s, syntax.KindMethodElem, syntax.KindTypeElem, syntax.KindComment)
	} else {
		s = defaultKind(s, syntax.KindFieldDecl)
		err = checkChildKind(t.n.kind, "members", s, syntax.KindFieldDecl, syntax.KindComment)
	}
	if err != nil {
		return nil, err
	}
	return t.n.insertInBraces(ctx, "InsertMember", c, items(memberEntries(c)), index, s)
}

// AddMember appends a member.
func (t membersTrait) AddMember(ctx context.Context, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	c, err := t.container("AddMember")
	if err != nil {
		return nil, err
	}
	return t.insertMember(ctx, c, len(items(memberEntries(c))), s)
}

// RemoveMember removes the member at index with its doc comment and line.
func (t membersTrait) RemoveMember(ctx context.Context, index int) error {
	defer t.n.doc.exclusive()()
	c, err := t.container("RemoveMember")
	if err != nil {
		return err
	}
	return t.n.removeEntry(ctx, "RemoveMember", items(memberEntries(c)), index)
}

// argumentsTrait implements WithArguments.
type argumentsTrait struct{ n *Node }

func (t argumentsTrait) list() *syntax.Node { return t.n.cur.ChildByField("arguments") }

func (t argumentsTrait) argumentNodes() []*syntax.Node {
	l := t.list()
	if l == nil {
		return nil
	}
	return items(entries(l.NamedChildren(), anyNamed))
}

// FunctionText returns the callee expression.
func (t argumentsTrait) FunctionText() (string, error) {
	if err := t.n.check("FunctionText"); err != nil {
		return "", err
	}
	return calleeText(t.n.cur), nil
}

// Arguments returns the argument expressions.
func (t argumentsTrait) Arguments() ([]Wrapper, error) {
	if err := t.n.check("Arguments"); err != nil {
		return nil, err
	}
	return t.n.doc.wrapAll(t.argumentNodes()), nil
}

// InsertArgument inserts an argument at index.
func (t argumentsTrait) InsertArgument(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("InsertArgument"); err != nil {
		return nil, err
	}
	return t.insertArgument(ctx, index, s)
}

func (t argumentsTrait) insertArgument(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	if s.Kind == syntax.KindUnknown && s.Text == nil {
		return nil, &StructureMismatchError{Kind: t.n.kind, Field: "arguments", Reason: "argument needs a kind or text"}
	}
	return t.n.insertInList(ctx, "InsertArgument", t.list(), t.argumentNodes(), index, s, "(")
}

// AddArgument appends an argument.
func (t argumentsTrait) AddArgument(ctx context.Context, s structure.Structure) (Wrapper, error) {
	defer t.n.doc.exclusive()()
	if err := t.n.check("AddArgument"); err != nil {
		return nil, err
	}
	return t.insertArgument(ctx, len(t.argumentNodes()), s)
}

// RemoveArgument removes the argument at index with its separator.
func (t argumentsTrait) RemoveArgument(ctx context.Context, index int) error {
	defer t.n.doc.exclusive()()
	if err := t.n.check("RemoveArgument"); err != nil {
		return err
	}
	return t.n.removeEntry(ctx, "RemoveArgument", t.argumentNodes(), index)
}

// specsTrait implements WithSpecs.
type specsTrait struct{ n *Node }

// Specs returns the specs of the declaration in order.
func (t specsTrait) Specs() ([]Wrapper, error) {
	if err := t.n.check("Specs"); err != nil {
		return nil, err
	}
	return t.n.doc.wrapAll(items(specEntries(t.n.cur))), nil
}

func (t specsTrait) spec(name, op string) lookup[Wrapper] {
	if err := t.n.check(op); err != nil {
		return failed[Wrapper](err)
	}
	for _, s := range items(specEntries(t.n.cur)) {
		if hasName(s, name) {
			return found(t.n.doc.wrap(s))
		}
	}
	return missing[Wrapper]("spec", name)
}

// Spec returns the spec declaring name, or nil.
func (t specsTrait) Spec(name string) (Wrapper, error) { return t.spec(name, "Spec").orNil() }

// SpecOrErr returns the spec declaring name, or a *NotFoundError.
func (t specsTrait) SpecOrErr(name string) (Wrapper, error) { return t.spec(name, "SpecOrErr").orErr() }

// docTrait implements Documented.
type docTrait struct{ n *Node }

// docOwner is the node carrying the doc comment. A spec sharing its line
// with the declaration keyword ("type T struct") is documented through
// its declaration.
func (t docTrait) docOwner() *syntax.Node {
	c := t.n.cur
	text := t.n.doc.text
	if p := c.Parent(); p != nil && !onlySpaceBetween(text, lineStart(text, c.Start()), c.Start()) {
		switch p.Kind() {
		case syntax.KindTypeDecl, syntax.KindConstDecl, syntax.KindVarDecl:
			return p
		}
	}
	return c
}

// Doc returns the doc comment lines, comment markers included, joined
// by "\n". An undocumented node returns "".
func (t docTrait) Doc() (string, error) {
	if err := t.n.check("Doc"); err != nil {
		return "", err
	}
	return docText(t.docOwner()), nil
}

// SetDoc replaces the doc comment. Lines without a comment marker get
// "// " prepended; "" removes the comment.
func (t docTrait) SetDoc(ctx context.Context, doc string) error {
	n := t.n
	defer n.doc.exclusive()()
	if err := n.check("SetDoc"); err != nil {
		return err
	}
	owner := t.docOwner()
	text := n.doc.text
	comments := attachedDoc(owner)

	var e TextEdit
	switch {
	case len(comments) > 0 && doc == "":
		e = TextEdit{Start: comments[0].Start(), End: owner.Start()}
	case doc == "":
		return nil
	default:
		indent := lineIndent(text, owner.Start())
		nl := n.newline()
		prefix := strings.Join(commentLines(doc), nl+indent) + nl + indent
		start := owner.Start()
		if len(comments) > 0 {
			start = comments[0].Start()
		}
		e = TextEdit{Start: start, End: owner.Start(), Text: prefix}
	}
	return n.edit(ctx, "SetDoc", e)
}

func commentLines(doc string) []string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "/*"):
			lines[i] = trimmed
		case trimmed == "":
			lines[i] = "//"
		default:
			lines[i] = "// " + trimmed
		}
	}
	return lines
}
