// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package structure defines the plain, kind-tagged records that describe a
// node's declarative shape, and renders them back to Go source text.
//
// A Structure has no identity and no back-reference into a document. It is
// produced by reading a handle (morph.ToStructure) and consumed when
// authoring or replacing a node (morph.Set). Unset fields are nil: a nil
// pointer or nil slice means "keep what is there", an empty slice means
// "none".
package structure

import (
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Structure is the descriptive record of one node.
//
// # Fields
//
// Which fields a kind accepts is fixed by AllowedFields. Scalar fields hold
// source text fragments except Path (the unquoted import path) and Doc (the
// comment lines, "//" markers included, joined by "\n").
type Structure struct {
	Kind syntax.Kind `yaml:"kind" json:"kind"`

	Doc        *string `yaml:"doc,omitempty" json:"doc,omitempty"`
	Name       *string `yaml:"name,omitempty" json:"name,omitempty" validate:"omitempty,goname"`
	Receiver   *string `yaml:"receiver,omitempty" json:"receiver,omitempty"`
	Package    *string `yaml:"package,omitempty" json:"package,omitempty" validate:"omitempty,goname"`
	Path       *string `yaml:"path,omitempty" json:"path,omitempty" validate:"omitempty,min=1"`
	TypeParams *string `yaml:"typeParams,omitempty" json:"typeParams,omitempty" validate:"omitempty,typeparams"`
	Type       *string `yaml:"type,omitempty" json:"type,omitempty"`
	Results    *string `yaml:"results,omitempty" json:"results,omitempty"`
	Value      *string `yaml:"value,omitempty" json:"value,omitempty"`
	Tag        *string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Function   *string `yaml:"function,omitempty" json:"function,omitempty"`
	Text       *string `yaml:"text,omitempty" json:"text,omitempty"`

	Imports      []Structure `yaml:"imports,omitempty" json:"imports,omitempty" validate:"omitempty,dive"`
	Declarations []Structure `yaml:"declarations,omitempty" json:"declarations,omitempty" validate:"omitempty,dive"`
	Specs        []Structure `yaml:"specs,omitempty" json:"specs,omitempty" validate:"omitempty,dive"`
	Parameters   []Structure `yaml:"parameters,omitempty" json:"parameters,omitempty" validate:"omitempty,dive"`
	Statements   []Structure `yaml:"statements,omitempty" json:"statements,omitempty" validate:"omitempty,dive"`
	Members      []Structure `yaml:"members,omitempty" json:"members,omitempty" validate:"omitempty,dive"`
	Arguments    []Structure `yaml:"arguments,omitempty" json:"arguments,omitempty" validate:"omitempty,dive"`
}

// Type shapes that make a type spec carry Members.
const (
	TypeStruct    = "struct"
	TypeInterface = "interface"
)

// String returns a pointer to s. Handy for building partial structures.
func String(s string) *string { return &s }

// Deref returns *p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Fields reports which fields are set.
func (s Structure) Fields() Field {
	var f Field
	set := func(cond bool, bit Field) {
		if cond {
			f |= bit
		}
	}
	set(s.Doc != nil, FieldDoc)
	set(s.Name != nil, FieldName)
	set(s.Receiver != nil, FieldReceiver)
	set(s.Package != nil, FieldPackage)
	set(s.Path != nil, FieldPath)
	set(s.TypeParams != nil, FieldTypeParams)
	set(s.Type != nil, FieldType)
	set(s.Results != nil, FieldResults)
	set(s.Value != nil, FieldValue)
	set(s.Tag != nil, FieldTag)
	set(s.Function != nil, FieldFunction)
	set(s.Text != nil, FieldText)
	set(s.Imports != nil, FieldImports)
	set(s.Declarations != nil, FieldDeclarations)
	set(s.Specs != nil, FieldSpecs)
	set(s.Parameters != nil, FieldParameters)
	set(s.Statements != nil, FieldStatements)
	set(s.Members != nil, FieldMembers)
	set(s.Arguments != nil, FieldArguments)
	return f
}

// Merge overlays the set fields of partial onto base.
//
// # Description
//
// A partial with KindUnknown keeps the base kind. A partial naming another
// kind switches the result to that kind; base fields the new kind does not
// accept are dropped before the overlay. Slices are replaced whole, never
// merged element by element.
func Merge(base, partial Structure) Structure {
	out := base
	if partial.Kind != syntax.KindUnknown && partial.Kind != base.Kind {
		out = Restrict(base, AllowedFields(partial.Kind))
		out.Kind = partial.Kind
	}
	if partial.Doc != nil {
		out.Doc = partial.Doc
	}
	if partial.Name != nil {
		out.Name = partial.Name
	}
	if partial.Receiver != nil {
		out.Receiver = partial.Receiver
	}
	if partial.Package != nil {
		out.Package = partial.Package
	}
	if partial.Path != nil {
		out.Path = partial.Path
	}
	if partial.TypeParams != nil {
		out.TypeParams = partial.TypeParams
	}
	if partial.Type != nil {
		out.Type = partial.Type
	}
	if partial.Results != nil {
		out.Results = partial.Results
	}
	if partial.Value != nil {
		out.Value = partial.Value
	}
	if partial.Tag != nil {
		out.Tag = partial.Tag
	}
	if partial.Function != nil {
		out.Function = partial.Function
	}
	if partial.Text != nil {
		out.Text = partial.Text
	}
	if partial.Imports != nil {
		out.Imports = partial.Imports
	}
	if partial.Declarations != nil {
		out.Declarations = partial.Declarations
	}
	if partial.Specs != nil {
		out.Specs = partial.Specs
	}
	if partial.Parameters != nil {
		out.Parameters = partial.Parameters
	}
	if partial.Statements != nil {
		out.Statements = partial.Statements
	}
	if partial.Members != nil {
		out.Members = partial.Members
	}
	if partial.Arguments != nil {
		out.Arguments = partial.Arguments
	}
	return out
}

// Restrict clears every field not in allowed.
func Restrict(s Structure, allowed Field) Structure {
	out := Structure{Kind: s.Kind}
	keep := func(bit Field) bool { return allowed&bit != 0 }
	if keep(FieldDoc) {
		out.Doc = s.Doc
	}
	if keep(FieldName) {
		out.Name = s.Name
	}
	if keep(FieldReceiver) {
		out.Receiver = s.Receiver
	}
	if keep(FieldPackage) {
		out.Package = s.Package
	}
	if keep(FieldPath) {
		out.Path = s.Path
	}
	if keep(FieldTypeParams) {
		out.TypeParams = s.TypeParams
	}
	if keep(FieldType) {
		out.Type = s.Type
	}
	if keep(FieldResults) {
		out.Results = s.Results
	}
	if keep(FieldValue) {
		out.Value = s.Value
	}
	if keep(FieldTag) {
		out.Tag = s.Tag
	}
	if keep(FieldFunction) {
		out.Function = s.Function
	}
	if keep(FieldText) {
		out.Text = s.Text
	}
	if keep(FieldImports) {
		out.Imports = s.Imports
	}
	if keep(FieldDeclarations) {
		out.Declarations = s.Declarations
	}
	if keep(FieldSpecs) {
		out.Specs = s.Specs
	}
	if keep(FieldParameters) {
		out.Parameters = s.Parameters
	}
	if keep(FieldStatements) {
		out.Statements = s.Statements
	}
	if keep(FieldMembers) {
		out.Members = s.Members
	}
	if keep(FieldArguments) {
		out.Arguments = s.Arguments
	}
	return out
}

// Empty returns the default shape of a kind: the smallest structure that
// renders to valid source for that kind. Names default to the blank
// identifier.
func Empty(kind syntax.Kind) Structure {
	blank := func() *string { return String("_") }
	switch kind {
	case syntax.KindSourceFile:
		return Structure{Kind: kind, Package: String("main"), Imports: []Structure{}, Declarations: []Structure{}}
	case syntax.KindImportSpec:
		return Structure{Kind: kind, Path: String("fmt")}
	case syntax.KindImportDecl:
		return Structure{Kind: kind, Specs: []Structure{Empty(syntax.KindImportSpec)}}
	case syntax.KindFunctionDecl:
		return Structure{Kind: kind, Name: blank(), Parameters: []Structure{}, Statements: []Structure{}}
	case syntax.KindMethodDecl:
		return Structure{Kind: kind, Receiver: String("_ *T"), Name: blank(), Parameters: []Structure{}, Statements: []Structure{}}
	case syntax.KindParameterDecl, syntax.KindVariadicParameterDecl:
		return Structure{Kind: kind, Name: String(""), Type: String("any")}
	case syntax.KindTypeDecl:
		return Structure{Kind: kind, Specs: []Structure{Empty(syntax.KindTypeSpec)}}
	case syntax.KindTypeSpec:
		return Structure{Kind: kind, Name: blank(), Type: String(TypeStruct), Members: []Structure{}}
	case syntax.KindTypeAlias:
		return Structure{Kind: kind, Name: blank(), Type: String("any")}
	case syntax.KindStructType, syntax.KindInterfaceType:
		return Structure{Kind: kind, Members: []Structure{}}
	case syntax.KindFieldDecl:
		return Structure{Kind: kind, Name: blank(), Type: String("int")}
	case syntax.KindMethodElem:
		return Structure{Kind: kind, Name: String("M"), Parameters: []Structure{}}
	case syntax.KindConstDecl:
		return Structure{Kind: kind, Specs: []Structure{Empty(syntax.KindConstSpec)}}
	case syntax.KindVarDecl:
		return Structure{Kind: kind, Specs: []Structure{Empty(syntax.KindVarSpec)}}
	case syntax.KindConstSpec, syntax.KindVarSpec:
		return Structure{Kind: kind, Name: blank(), Value: String("0")}
	case syntax.KindCallExpr:
		return Structure{Kind: kind, Function: String("f"), Arguments: []Structure{}}
	default:
		return Structure{Kind: kind, Text: String("")}
	}
}

// Raw builds the fallback structure of an unsupported kind.
func Raw(kind syntax.Kind, text string) Structure {
	return Structure{Kind: kind, Text: &text}
}
