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

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// SourceFile is the root handle of a document.
type SourceFile struct {
	*Node
}

// Package returns the package name.
func (f *SourceFile) Package() (string, error) {
	if err := f.check("Package"); err != nil {
		return "", err
	}
	if pc := f.cur.FirstChildOfKind(syntax.KindPackageClause); pc != nil {
		if id := pc.FirstChildOfKind(syntax.KindPackageIdentifier); id != nil {
			return id.Text(), nil
		}
	}
	return "", nil
}

func (f *SourceFile) importNodes() []*syntax.Node {
	var out []*syntax.Node
	for _, decl := range f.cur.ChildrenOfKind(syntax.KindImportDecl) {
		out = append(out, items(specEntries(decl))...)
	}
	return out
}

// Imports returns every import spec across all import declarations.
func (f *SourceFile) Imports() ([]*ImportSpec, error) {
	if err := f.check("Imports"); err != nil {
		return nil, err
	}
	specs := f.importNodes()
	out := make([]*ImportSpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, wrapAs[*ImportSpec](f.doc, s))
	}
	return out, nil
}

func (f *SourceFile) importSpec(path, op string) lookup[*ImportSpec] {
	if err := f.check(op); err != nil {
		return failed[*ImportSpec](err)
	}
	for _, s := range f.importNodes() {
		if importPath(s) == path {
			return found(wrapAs[*ImportSpec](f.doc, s))
		}
	}
	return missing[*ImportSpec]("import", path)
}

// Import returns the spec importing path, or nil.
func (f *SourceFile) Import(path string) (*ImportSpec, error) {
	return f.importSpec(path, "Import").orNil()
}

// ImportOrErr returns the spec importing path, or a *NotFoundError.
func (f *SourceFile) ImportOrErr(path string) (*ImportSpec, error) {
	return f.importSpec(path, "ImportOrErr").orErr()
}

// AddImport imports path, optionally under alias, and returns its spec.
// An existing import of path is returned unchanged.
//
// The spec joins the last grouped import declaration when there is one;
// otherwise a new declaration follows the last import, or the package
// clause.
func (f *SourceFile) AddImport(ctx context.Context, path, alias string) (*ImportSpec, error) {
	defer f.doc.exclusive()()
	existing, err := f.Import(path)
	if err != nil || existing != nil {
		return existing, err
	}
	s := structure.Structure{Kind: syntax.KindImportSpec, Path: structure.String(path)}
	if alias != "" {
		s.Name = structure.String(alias)
	}
	rendered, err := f.doc.renderer.Render(s, "")
	if err != nil {
		return nil, mismatch(err)
	}
	r := rendered.Text
	nl := f.newline()
	text := f.doc.text

	decls := f.cur.ChildrenOfKind(syntax.KindImportDecl)
	var grouped *syntax.Node
	for _, d := range decls {
		if d.FirstChildOfKind(syntax.KindImportSpecList) != nil && len(items(specEntries(d))) > 0 {
			grouped = d
		}
	}

	var pos int
	var prefix string
	switch {
	case grouped != nil:
		specs := items(specEntries(grouped))
		last := specs[len(specs)-1]
		pos = last.End()
		prefix = nl + lineIndent(text, last.Start())
	case len(decls) > 0:
		pos = decls[len(decls)-1].End()
		prefix = nl + "import "
	default:
		pc := f.cur.FirstChildOfKind(syntax.KindPackageClause)
		if pc == nil {
			return nil, &NotFoundError{What: "package clause", Name: f.doc.Path()}
		}
		pos = pc.End()
		prefix = nl + nl + "import "
	}
	e := TextEdit{Start: pos, End: pos, Text: prefix + r}
	at := Range{Start: pos + len(prefix), End: pos + len(prefix) + len(r)}
	w, err := f.doc.insertAndLocate(ctx, "AddImport", e, at, syntax.KindImportSpec)
	if err != nil {
		return nil, err
	}
	spec, ok := w.(*ImportSpec)
	if !ok {
		return nil, fmt.Errorf("AddImport: inserted import did not parse as an import spec")
	}
	return spec, nil
}

// RemoveImport deletes the import of path. A declaration left without
// specs is deleted with it.
func (f *SourceFile) RemoveImport(ctx context.Context, path string) error {
	defer f.doc.exclusive()()
	spec, err := f.ImportOrErr(path)
	if err != nil {
		return err
	}
	target := spec.cur
	if decl := target.Parent(); decl != nil && decl.Kind() == syntax.KindImportDecl {
		target = decl
	} else if list := target.Parent(); list != nil && len(items(specEntries(list.Parent()))) == 1 {
		target = list.Parent()
	}
	return f.edit(ctx, "RemoveImport", removalEdit(target))
}

// declarationNodes returns the top level declarations in order.
func (f *SourceFile) declarationNodes() []*syntax.Node {
	var out []*syntax.Node
	for _, c := range f.cur.NamedChildren() {
		if c.Kind().IsDeclaration() {
			out = append(out, c)
		}
	}
	return out
}

// Declarations returns the top level declarations, imports excluded.
func (f *SourceFile) Declarations() ([]Wrapper, error) {
	if err := f.check("Declarations"); err != nil {
		return nil, err
	}
	return f.doc.wrapAll(f.declarationNodes()), nil
}

// Functions returns the top level functions, methods excluded.
func (f *SourceFile) Functions() ([]*FunctionDecl, error) {
	if err := f.check("Functions"); err != nil {
		return nil, err
	}
	var out []*FunctionDecl
	for _, c := range f.cur.ChildrenOfKind(syntax.KindFunctionDecl) {
		out = append(out, wrapAs[*FunctionDecl](f.doc, c))
	}
	return out, nil
}

func (f *SourceFile) function(name, op string) lookup[*FunctionDecl] {
	if err := f.check(op); err != nil {
		return failed[*FunctionDecl](err)
	}
	for _, c := range f.cur.ChildrenOfKind(syntax.KindFunctionDecl) {
		if hasName(c, name) {
			return found(wrapAs[*FunctionDecl](f.doc, c))
		}
	}
	return missing[*FunctionDecl]("function", name)
}

// Function returns the function called name, or nil.
func (f *SourceFile) Function(name string) (*FunctionDecl, error) {
	return f.function(name, "Function").orNil()
}

// FunctionOrErr returns the function called name, or a *NotFoundError.
func (f *SourceFile) FunctionOrErr(name string) (*FunctionDecl, error) {
	return f.function(name, "FunctionOrErr").orErr()
}

// Methods returns the methods declared on receiver type recv, or every
// method when recv is "".
func (f *SourceFile) Methods(recv string) ([]*MethodDecl, error) {
	if err := f.check("Methods"); err != nil {
		return nil, err
	}
	var out []*MethodDecl
	for _, c := range f.cur.ChildrenOfKind(syntax.KindMethodDecl) {
		if recv == "" || receiverTypeName(c) == recv {
			out = append(out, wrapAs[*MethodDecl](f.doc, c))
		}
	}
	return out, nil
}

func (f *SourceFile) method(recv, name, op string) lookup[*MethodDecl] {
	if err := f.check(op); err != nil {
		return failed[*MethodDecl](err)
	}
	for _, c := range f.cur.ChildrenOfKind(syntax.KindMethodDecl) {
		if receiverTypeName(c) == recv && hasName(c, name) {
			return found(wrapAs[*MethodDecl](f.doc, c))
		}
	}
	return missing[*MethodDecl]("method", recv+"."+name)
}

// Method returns method name of receiver type recv, or nil.
func (f *SourceFile) Method(recv, name string) (*MethodDecl, error) {
	return f.method(recv, name, "Method").orNil()
}

// MethodOrErr returns method name of receiver type recv, or a
// *NotFoundError.
func (f *SourceFile) MethodOrErr(recv, name string) (*MethodDecl, error) {
	return f.method(recv, name, "MethodOrErr").orErr()
}

func (f *SourceFile) typeSpec(name, op string) lookup[*TypeSpec] {
	if err := f.check(op); err != nil {
		return failed[*TypeSpec](err)
	}
	for _, decl := range f.cur.ChildrenOfKind(syntax.KindTypeDecl) {
		for _, s := range items(specEntries(decl)) {
			if s.Kind() == syntax.KindTypeSpec && hasName(s, name) {
				return found(wrapAs[*TypeSpec](f.doc, s))
			}
		}
	}
	return missing[*TypeSpec]("type", name)
}

// TypeSpec returns the defined type called name, or nil.
func (f *SourceFile) TypeSpec(name string) (*TypeSpec, error) {
	return f.typeSpec(name, "TypeSpec").orNil()
}

// TypeSpecOrErr returns the defined type called name, or a *NotFoundError.
func (f *SourceFile) TypeSpecOrErr(name string) (*TypeSpec, error) {
	return f.typeSpec(name, "TypeSpecOrErr").orErr()
}

func (f *SourceFile) value(name, op string) lookup[*ValueSpec] {
	if err := f.check(op); err != nil {
		return failed[*ValueSpec](err)
	}
	for _, c := range f.cur.NamedChildren() {
		if c.Kind() != syntax.KindConstDecl && c.Kind() != syntax.KindVarDecl {
			continue
		}
		for _, s := range items(specEntries(c)) {
			if hasName(s, name) {
				return found(wrapAs[*ValueSpec](f.doc, s))
			}
		}
	}
	return missing[*ValueSpec]("value", name)
}

// Value returns the top level const or var spec declaring name, or nil.
func (f *SourceFile) Value(name string) (*ValueSpec, error) {
	return f.value(name, "Value").orNil()
}

// ValueOrErr returns the const or var spec declaring name, or a
// *NotFoundError.
func (f *SourceFile) ValueOrErr(name string) (*ValueSpec, error) {
	return f.value(name, "ValueOrErr").orErr()
}

// InsertDeclaration inserts a top level declaration before the
// declaration at index, separated by an empty line.
func (f *SourceFile) InsertDeclaration(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	defer f.doc.exclusive()()
	if err := f.check("InsertDeclaration"); err != nil {
		return nil, err
	}
	return f.insertDeclaration(ctx, index, s)
}

func (f *SourceFile) insertDeclaration(ctx context.Context, index int, s structure.Structure) (Wrapper, error) {
	s = defaultKind(s, syntax.KindFunctionDecl)
	if err := checkChildKind(f.kind, "declarations", s,
		syntax.KindFunctionDecl, syntax.KindMethodDecl, syntax.KindTypeDecl,
		syntax.KindConstDecl, syntax.KindVarDecl, syntax.KindComment); err != nil {
		return nil, err
	}
	decls := f.declarationNodes()
	if index < 0 || index > len(decls) {
		return nil, indexError(index, len(decls))
	}
	rendered, err := f.doc.renderer.Render(s, "")
	if err != nil {
		return nil, mismatch(err)
	}
	r := rendered.Text
	nl := f.newline()

	var e TextEdit
	var at Range
	if index < len(decls) {
		pos := extendedStart(decls[index])
		e = TextEdit{Start: pos, End: pos, Text: r + nl + nl}
		at = Range{Start: pos + rendered.NodeOffset, End: pos + len(r)}
	} else {
		pos := 0
		for _, c := range f.cur.NamedChildren() {
			pos = max(pos, c.End())
		}
		prefix := nl + nl
		e = TextEdit{Start: pos, End: pos, Text: prefix + r}
		at = Range{Start: pos + len(prefix) + rendered.NodeOffset, End: pos + len(prefix) + len(r)}
	}
	return f.doc.insertAndLocate(ctx, "InsertDeclaration", e, at, s.Kind)
}

// AddDeclaration appends a top level declaration.
func (f *SourceFile) AddDeclaration(ctx context.Context, s structure.Structure) (Wrapper, error) {
	defer f.doc.exclusive()()
	if err := f.check("AddDeclaration"); err != nil {
		return nil, err
	}
	return f.insertDeclaration(ctx, len(f.declarationNodes()), s)
}
