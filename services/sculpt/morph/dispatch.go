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

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Trait is a capability a handle may carry. A kind's traits are fixed by
// the dispatch table.
type Trait uint32

const (
	TraitNamed Trait = 1 << iota
	TraitTyped
	TraitParameters
	TraitResults
	TraitBody
	TraitMembers
	TraitDoc
	TraitExportable
	TraitArguments
	TraitSpecs
	TraitValued
	TraitTagged
	TraitReceiver
)

var traitNames = []string{
	"named", "typed", "parameters", "results", "body", "members", "doc",
	"exportable", "arguments", "specs", "valued", "tagged", "receiver",
}

// Has reports whether every trait in other is present.
func (t Trait) Has(other Trait) bool { return t&other == other }

func (t Trait) String() string {
	var names []string
	for i, name := range traitNames {
		if t&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// entry is one row of the dispatch table.
type entry struct {
	traits    Trait
	construct func(*Node) Wrapper
}

const (
	signatureTraits = TraitNamed | TraitParameters | TraitResults | TraitDoc | TraitExportable
	specTraits      = TraitNamed | TraitTyped | TraitDoc | TraitExportable
)

// dispatch maps a kind to its typed wrapper. Kinds not listed get a bare
// *Node with no traits.
var dispatch = map[syntax.Kind]entry{
	syntax.KindSourceFile: {0, func(n *Node) Wrapper { return &SourceFile{Node: n} }},
	syntax.KindImportDecl: {TraitSpecs, func(n *Node) Wrapper {
		return &ImportDecl{Node: n, specsTrait: specsTrait{n}}
	}},
	syntax.KindImportSpec: {TraitNamed, func(n *Node) Wrapper {
		return &ImportSpec{Node: n, namedTrait: namedTrait{n}}
	}},
	syntax.KindFunctionDecl: {signatureTraits | TraitBody, func(n *Node) Wrapper {
		return &FunctionDecl{Node: n, namedTrait: namedTrait{n}, parametersTrait: parametersTrait{n},
			resultsTrait: resultsTrait{n}, bodyTrait: bodyTrait{n}, docTrait: docTrait{n}, exportableTrait: exportableTrait{n}}
	}},
	syntax.KindMethodDecl: {signatureTraits | TraitBody | TraitReceiver, func(n *Node) Wrapper {
		return &MethodDecl{Node: n, namedTrait: namedTrait{n}, parametersTrait: parametersTrait{n},
			resultsTrait: resultsTrait{n}, bodyTrait: bodyTrait{n}, docTrait: docTrait{n}, exportableTrait: exportableTrait{n},
			receiverTrait: receiverTrait{n}}
	}},
	syntax.KindParameterDecl:         {TraitNamed | TraitTyped, newParameter},
	syntax.KindVariadicParameterDecl: {TraitNamed | TraitTyped, newParameter},
	syntax.KindTypeDecl: {TraitSpecs | TraitDoc, func(n *Node) Wrapper {
		return &TypeDecl{Node: n, specsTrait: specsTrait{n}, docTrait: docTrait{n}}
	}},
	syntax.KindTypeSpec: {specTraits | TraitMembers, func(n *Node) Wrapper {
		return &TypeSpec{Node: n, namedTrait: namedTrait{n}, typedTrait: typedTrait{n}, membersTrait: membersTrait{n},
			docTrait: docTrait{n}, exportableTrait: exportableTrait{n}}
	}},
	syntax.KindTypeAlias: {specTraits, func(n *Node) Wrapper {
		return &TypeAlias{Node: n, namedTrait: namedTrait{n}, typedTrait: typedTrait{n}, docTrait: docTrait{n},
			exportableTrait: exportableTrait{n}}
	}},
	syntax.KindStructType: {TraitMembers, func(n *Node) Wrapper {
		return &StructType{Node: n, membersTrait: membersTrait{n}}
	}},
	syntax.KindInterfaceType: {TraitMembers, func(n *Node) Wrapper {
		return &InterfaceType{Node: n, membersTrait: membersTrait{n}}
	}},
	syntax.KindFieldDecl: {specTraits | TraitTagged, func(n *Node) Wrapper {
		return &FieldDecl{Node: n, namedTrait: namedTrait{n}, typedTrait: typedTrait{n}, taggedTrait: taggedTrait{n},
			docTrait: docTrait{n}, exportableTrait: exportableTrait{n}}
	}},
	syntax.KindMethodElem: {signatureTraits, func(n *Node) Wrapper {
		return &MethodElem{Node: n, namedTrait: namedTrait{n}, parametersTrait: parametersTrait{n},
			resultsTrait: resultsTrait{n}, docTrait: docTrait{n}, exportableTrait: exportableTrait{n}}
	}},
	syntax.KindConstDecl: {TraitSpecs | TraitDoc, func(n *Node) Wrapper {
		return &ConstDecl{Node: n, specsTrait: specsTrait{n}, docTrait: docTrait{n}}
	}},
	syntax.KindVarDecl: {TraitSpecs | TraitDoc, func(n *Node) Wrapper {
		return &VarDecl{Node: n, specsTrait: specsTrait{n}, docTrait: docTrait{n}}
	}},
	syntax.KindConstSpec: {specTraits | TraitValued, newValueSpec},
	syntax.KindVarSpec:   {specTraits | TraitValued, newValueSpec},
	syntax.KindCallExpr: {TraitArguments, func(n *Node) Wrapper {
		return &CallExpr{Node: n, argumentsTrait: argumentsTrait{n}}
	}},
	syntax.KindBlock: {TraitBody, func(n *Node) Wrapper {
		return &Block{Node: n, bodyTrait: bodyTrait{n}}
	}},
	syntax.KindIdentifier:        {TraitNamed, newIdentifier},
	syntax.KindFieldIdentifier:   {TraitNamed, newIdentifier},
	syntax.KindTypeIdentifier:    {TraitNamed, newIdentifier},
	syntax.KindPackageIdentifier: {TraitNamed, newIdentifier},
}

func newParameter(n *Node) Wrapper {
	return &Parameter{Node: n, namedTrait: namedTrait{n}, typedTrait: typedTrait{n}}
}

func newValueSpec(n *Node) Wrapper {
	return &ValueSpec{Node: n, namedTrait: namedTrait{n}, typedTrait: typedTrait{n}, valuedTrait: valuedTrait{n},
		docTrait: docTrait{n}, exportableTrait: exportableTrait{n}}
}

func newIdentifier(n *Node) Wrapper {
	return &Identifier{Node: n, namedTrait: namedTrait{n}}
}

// TraitsOf returns the traits handles of kind carry.
func TraitsOf(kind syntax.Kind) Trait {
	return dispatch[kind].traits
}

// KindSupports reports whether handles of kind carry trait.
func KindSupports(kind syntax.Kind, trait Trait) bool {
	return trait != 0 && TraitsOf(kind).Has(trait)
}

// construct builds the typed wrapper for a fresh base node.
func construct(n *Node) Wrapper {
	e, ok := dispatch[n.kind]
	if !ok {
		return n
	}
	n.traits = e.traits
	return e.construct(n)
}

// as converts w to the trait view T, checking liveness and the dispatch
// table first.
func as[T any](w Wrapper, trait Trait, op string) (T, error) {
	var zero T
	n := w.Base()
	if n.forgotten {
		return zero, &ForgottenHandleError{Kind: n.kind, Op: op}
	}
	if !n.traits.Has(trait) {
		return zero, &UnsupportedKindError{Kind: n.kind, Trait: trait, Op: op}
	}
	t, ok := n.self.(T)
	if !ok {
		return zero, &UnsupportedKindError{Kind: n.kind, Trait: trait, Op: op}
	}
	return t, nil
}
