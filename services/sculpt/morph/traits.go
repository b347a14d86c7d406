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

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Wrapper is the common interface of every handle: the bare *Node and
// each typed wrapper embedding it.
type Wrapper interface {
	Kind() syntax.Kind
	IsForgotten() bool
	Base() *Node
}

// Named is implemented by handles with a declared name.
type Named interface {
	Wrapper
	Name() (string, error)
	NameNode() (Wrapper, error)
	Rename(ctx context.Context, name string) error
}

// Typed is implemented by handles with a type expression.
type Typed interface {
	Wrapper
	TypeText() (string, error)
	SetTypeText(ctx context.Context, typ string) error
}

// WithParameters is implemented by handles with a parameter list.
type WithParameters interface {
	Wrapper
	Parameters() ([]*Parameter, error)
	Parameter(name string) (*Parameter, error)
	ParameterOrErr(name string) (*Parameter, error)
	InsertParameter(ctx context.Context, index int, s structure.Structure) (*Parameter, error)
	AddParameter(ctx context.Context, s structure.Structure) (*Parameter, error)
	RemoveParameter(ctx context.Context, index int) error
}

// WithResults is implemented by handles with a result list.
type WithResults interface {
	Wrapper
	ResultsText() (string, error)
	SetResultsText(ctx context.Context, results string) error
}

// WithBody is implemented by handles with a statement block.
type WithBody interface {
	Wrapper
	HasBody() (bool, error)
	Statements() ([]Wrapper, error)
	InsertStatement(ctx context.Context, index int, s structure.Structure) (Wrapper, error)
	AddStatement(ctx context.Context, s structure.Structure) (Wrapper, error)
	RemoveStatement(ctx context.Context, index int) error
}

// WithMembers is implemented by struct and interface shaped handles.
type WithMembers interface {
	Wrapper
	Members() ([]Wrapper, error)
	Member(name string) (Wrapper, error)
	MemberOrErr(name string) (Wrapper, error)
	InsertMember(ctx context.Context, index int, s structure.Structure) (Wrapper, error)
	AddMember(ctx context.Context, s structure.Structure) (Wrapper, error)
	RemoveMember(ctx context.Context, index int) error
}

// Documented is implemented by handles that carry a leading doc comment.
type Documented interface {
	Wrapper
	Doc() (string, error)
	SetDoc(ctx context.Context, doc string) error
}

// Exportable is implemented by handles whose name decides visibility.
type Exportable interface {
	Wrapper
	IsExported() (bool, error)
	SetExported(ctx context.Context, exported bool) error
}

// WithArguments is implemented by call expressions.
type WithArguments interface {
	Wrapper
	FunctionText() (string, error)
	Arguments() ([]Wrapper, error)
	InsertArgument(ctx context.Context, index int, s structure.Structure) (Wrapper, error)
	AddArgument(ctx context.Context, s structure.Structure) (Wrapper, error)
	RemoveArgument(ctx context.Context, index int) error
}

// WithSpecs is implemented by grouped declarations.
type WithSpecs interface {
	Wrapper
	Specs() ([]Wrapper, error)
	Spec(name string) (Wrapper, error)
	SpecOrErr(name string) (Wrapper, error)
}

// Valued is implemented by const and var specs.
type Valued interface {
	Wrapper
	ValueText() (string, error)
	SetValueText(ctx context.Context, value string) error
}

// Tagged is implemented by struct fields.
type Tagged interface {
	Wrapper
	Tag() (string, error)
	SetTag(ctx context.Context, tag string) error
}

// WithReceiver is implemented by methods.
type WithReceiver interface {
	Wrapper
	ReceiverText() (string, error)
	ReceiverType() (string, error)
}

// AsNamed returns the Named view of w, or an *UnsupportedKindError.
func AsNamed(w Wrapper) (Named, error) { return as[Named](w, TraitNamed, "AsNamed") }

// AsTyped returns the Typed view of w.
func AsTyped(w Wrapper) (Typed, error) { return as[Typed](w, TraitTyped, "AsTyped") }

// AsParameters returns the WithParameters view of w.
func AsParameters(w Wrapper) (WithParameters, error) {
	return as[WithParameters](w, TraitParameters, "AsParameters")
}

// AsResults returns the WithResults view of w.
func AsResults(w Wrapper) (WithResults, error) { return as[WithResults](w, TraitResults, "AsResults") }

// AsBody returns the WithBody view of w.
func AsBody(w Wrapper) (WithBody, error) { return as[WithBody](w, TraitBody, "AsBody") }

// AsMembers returns the WithMembers view of w.
func AsMembers(w Wrapper) (WithMembers, error) { return as[WithMembers](w, TraitMembers, "AsMembers") }

// AsDocumented returns the Documented view of w.
func AsDocumented(w Wrapper) (Documented, error) { return as[Documented](w, TraitDoc, "AsDocumented") }

// AsExportable returns the Exportable view of w.
func AsExportable(w Wrapper) (Exportable, error) {
	return as[Exportable](w, TraitExportable, "AsExportable")
}

// AsArguments returns the WithArguments view of w.
func AsArguments(w Wrapper) (WithArguments, error) {
	return as[WithArguments](w, TraitArguments, "AsArguments")
}

// AsSpecs returns the WithSpecs view of w.
func AsSpecs(w Wrapper) (WithSpecs, error) { return as[WithSpecs](w, TraitSpecs, "AsSpecs") }

// AsValued returns the Valued view of w.
func AsValued(w Wrapper) (Valued, error) { return as[Valued](w, TraitValued, "AsValued") }

// AsTagged returns the Tagged view of w.
func AsTagged(w Wrapper) (Tagged, error) { return as[Tagged](w, TraitTagged, "AsTagged") }

// AsReceiver returns the WithReceiver view of w.
func AsReceiver(w Wrapper) (WithReceiver, error) {
	return as[WithReceiver](w, TraitReceiver, "AsReceiver")
}
