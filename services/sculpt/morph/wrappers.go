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
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// ImportDecl is an import declaration, grouped or not.
type ImportDecl struct {
	*Node
	specsTrait
}

// ImportSpec is one imported package.
type ImportSpec struct {
	*Node
	namedTrait
}

// ImportPath returns the unquoted import path.
func (w *ImportSpec) ImportPath() (string, error) {
	if err := w.check("ImportPath"); err != nil {
		return "", err
	}
	return importPath(w.cur), nil
}

// FunctionDecl is a top level function.
type FunctionDecl struct {
	*Node
	namedTrait
	parametersTrait
	resultsTrait
	bodyTrait
	docTrait
	exportableTrait
}

// MethodDecl is a function with a receiver.
type MethodDecl struct {
	*Node
	namedTrait
	parametersTrait
	resultsTrait
	bodyTrait
	docTrait
	exportableTrait
	receiverTrait
}

// Parameter is one parameter declaration. It may declare several names
// sharing a type.
type Parameter struct {
	*Node
	namedTrait
	typedTrait
}

// IsVariadic reports whether the parameter is "...T".
func (w *Parameter) IsVariadic() bool { return w.kind == syntax.KindVariadicParameterDecl }

// TypeDecl is a type declaration, grouped or not.
type TypeDecl struct {
	*Node
	specsTrait
	docTrait
}

// TypeSpec is a defined type.
type TypeSpec struct {
	*Node
	namedTrait
	typedTrait
	membersTrait
	docTrait
	exportableTrait
}

// IsStruct reports whether the type is a struct type.
func (w *TypeSpec) IsStruct() (bool, error) {
	if err := w.check("IsStruct"); err != nil {
		return false, err
	}
	t := w.cur.ChildByField("type")
	return t != nil && t.Kind() == syntax.KindStructType, nil
}

// IsInterface reports whether the type is an interface type.
func (w *TypeSpec) IsInterface() (bool, error) {
	if err := w.check("IsInterface"); err != nil {
		return false, err
	}
	t := w.cur.ChildByField("type")
	return t != nil && t.Kind() == syntax.KindInterfaceType, nil
}

// TypeAlias is "type A = B".
type TypeAlias struct {
	*Node
	namedTrait
	typedTrait
	docTrait
	exportableTrait
}

// StructType is an anonymous or named struct type expression.
type StructType struct {
	*Node
	membersTrait
}

// InterfaceType is an interface type expression.
type InterfaceType struct {
	*Node
	membersTrait
}

// FieldDecl is one struct field line.
type FieldDecl struct {
	*Node
	namedTrait
	typedTrait
	taggedTrait
	docTrait
	exportableTrait
}

// IsEmbedded reports whether the field is embedded.
func (w *FieldDecl) IsEmbedded() (bool, error) {
	if err := w.check("IsEmbedded"); err != nil {
		return false, err
	}
	return len(nameNodes(w.cur)) == 0, nil
}

// MethodElem is a method of an interface.
type MethodElem struct {
	*Node
	namedTrait
	parametersTrait
	resultsTrait
	docTrait
	exportableTrait
}

// ConstDecl is a const declaration.
type ConstDecl struct {
	*Node
	specsTrait
	docTrait
}

// VarDecl is a var declaration.
type VarDecl struct {
	*Node
	specsTrait
	docTrait
}

// ValueSpec is a const or var spec.
type ValueSpec struct {
	*Node
	namedTrait
	typedTrait
	valuedTrait
	docTrait
	exportableTrait
}

// IsConst reports whether the spec belongs to a const declaration.
func (w *ValueSpec) IsConst() bool { return w.kind == syntax.KindConstSpec }

// CallExpr is a call expression.
type CallExpr struct {
	*Node
	argumentsTrait
}

// Block is a brace delimited statement list.
type Block struct {
	*Node
	bodyTrait
}

// Identifier is an identifier of any flavour: plain, field, type or
// package. Its name is its own text.
type Identifier struct {
	*Node
	namedTrait
}

var (
	_ Named          = (*FunctionDecl)(nil)
	_ WithParameters = (*FunctionDecl)(nil)
	_ WithResults    = (*FunctionDecl)(nil)
	_ WithBody       = (*FunctionDecl)(nil)
	_ Documented     = (*FunctionDecl)(nil)
	_ Exportable     = (*FunctionDecl)(nil)
	_ WithReceiver   = (*MethodDecl)(nil)
	_ WithBody       = (*MethodDecl)(nil)
	_ Typed          = (*Parameter)(nil)
	_ WithSpecs      = (*ImportDecl)(nil)
	_ Named          = (*ImportSpec)(nil)
	_ WithSpecs      = (*TypeDecl)(nil)
	_ WithMembers    = (*TypeSpec)(nil)
	_ Typed          = (*TypeAlias)(nil)
	_ WithMembers    = (*StructType)(nil)
	_ WithMembers    = (*InterfaceType)(nil)
	_ Tagged         = (*FieldDecl)(nil)
	_ Exportable     = (*FieldDecl)(nil)
	_ WithParameters = (*MethodElem)(nil)
	_ Documented     = (*ConstDecl)(nil)
	_ WithSpecs      = (*VarDecl)(nil)
	_ Valued         = (*ValueSpec)(nil)
	_ WithArguments  = (*CallExpr)(nil)
	_ WithBody       = (*Block)(nil)
	_ Named          = (*Identifier)(nil)
	_ Wrapper        = (*Node)(nil)
)
