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
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Field is a bit set of Structure fields.
type Field uint32

const (
	FieldDoc Field = 1 << iota
	FieldName
	FieldReceiver
	FieldPackage
	FieldPath
	FieldTypeParams
	FieldType
	FieldResults
	FieldValue
	FieldTag
	FieldFunction
	FieldText
	FieldImports
	FieldDeclarations
	FieldSpecs
	FieldParameters
	FieldStatements
	FieldMembers
	FieldArguments
)

var fieldNames = []struct {
	bit  Field
	name string
}{
	{FieldDoc, "doc"},
	{FieldName, "name"},
	{FieldReceiver, "receiver"},
	{FieldPackage, "package"},
	{FieldPath, "path"},
	{FieldTypeParams, "typeParams"},
	{FieldType, "type"},
	{FieldResults, "results"},
	{FieldValue, "value"},
	{FieldTag, "tag"},
	{FieldFunction, "function"},
	{FieldText, "text"},
	{FieldImports, "imports"},
	{FieldDeclarations, "declarations"},
	{FieldSpecs, "specs"},
	{FieldParameters, "parameters"},
	{FieldStatements, "statements"},
	{FieldMembers, "members"},
	{FieldArguments, "arguments"},
}

// Names lists the field names in the set, in declaration order.
func (f Field) Names() []string {
	var out []string
	for _, fn := range fieldNames {
		if f&fn.bit != 0 {
			out = append(out, fn.name)
		}
	}
	return out
}

// String joins the field names with "|".
func (f Field) String() string {
	return strings.Join(f.Names(), "|")
}

// Has reports whether every bit of other is set in f.
func (f Field) Has(other Field) bool {
	return f&other == other
}

var allowed = map[syntax.Kind]Field{
	syntax.KindSourceFile:            FieldDoc | FieldPackage | FieldImports | FieldDeclarations,
	syntax.KindImportDecl:            FieldSpecs,
	syntax.KindImportSpec:            FieldName | FieldPath,
	syntax.KindFunctionDecl:          FieldDoc | FieldName | FieldTypeParams | FieldParameters | FieldResults | FieldStatements,
	syntax.KindMethodDecl:            FieldDoc | FieldReceiver | FieldName | FieldParameters | FieldResults | FieldStatements,
	syntax.KindParameterDecl:         FieldName | FieldType,
	syntax.KindVariadicParameterDecl: FieldName | FieldType,
	syntax.KindTypeDecl:              FieldDoc | FieldSpecs,
	syntax.KindTypeSpec:              FieldDoc | FieldName | FieldTypeParams | FieldType | FieldMembers,
	syntax.KindTypeAlias:             FieldDoc | FieldName | FieldType,
	syntax.KindStructType:            FieldMembers,
	syntax.KindInterfaceType:         FieldMembers,
	syntax.KindFieldDecl:             FieldDoc | FieldName | FieldType | FieldTag,
	syntax.KindMethodElem:            FieldDoc | FieldName | FieldParameters | FieldResults,
	syntax.KindConstDecl:             FieldDoc | FieldSpecs,
	syntax.KindVarDecl:               FieldDoc | FieldSpecs,
	syntax.KindConstSpec:             FieldDoc | FieldName | FieldType | FieldValue,
	syntax.KindVarSpec:               FieldDoc | FieldName | FieldType | FieldValue,
	syntax.KindCallExpr:              FieldFunction | FieldArguments,
}

// Supported reports whether kind has a dedicated structure shape. Every
// other kind uses the fallback shape {kind, text}.
func Supported(kind syntax.Kind) bool {
	_, ok := allowed[kind]
	return ok
}

// SupportedKinds lists the kinds with a dedicated shape in tag order.
func SupportedKinds() []syntax.Kind {
	var out []syntax.Kind
	for _, k := range syntax.Kinds() {
		if Supported(k) {
			out = append(out, k)
		}
	}
	return out
}

// AllowedFields returns the fields a structure of kind may set.
func AllowedFields(kind syntax.Kind) Field {
	if f, ok := allowed[kind]; ok {
		return f
	}
	return FieldText
}

// Documented reports whether the kind carries a leading doc comment.
func Documented(kind syntax.Kind) bool {
	return AllowedFields(kind)&FieldDoc != 0
}

// childKinds constrains the kinds that may appear in a list field.
// A zero Kind in a child is filled in with the first entry.
var childKinds = map[syntax.Kind]map[Field][]syntax.Kind{
	syntax.KindSourceFile: {
		FieldImports: {syntax.KindImportSpec},
		FieldDeclarations: {
			syntax.KindFunctionDecl, syntax.KindMethodDecl, syntax.KindTypeDecl,
			syntax.KindConstDecl, syntax.KindVarDecl, syntax.KindComment,
		},
	},
	syntax.KindImportDecl:    {FieldSpecs: {syntax.KindImportSpec}},
	syntax.KindFunctionDecl:  {FieldParameters: {syntax.KindParameterDecl, syntax.KindVariadicParameterDecl}},
	syntax.KindMethodDecl:    {FieldParameters: {syntax.KindParameterDecl, syntax.KindVariadicParameterDecl}},
	syntax.KindMethodElem:    {FieldParameters: {syntax.KindParameterDecl, syntax.KindVariadicParameterDecl}},
	syntax.KindTypeDecl:      {FieldSpecs: {syntax.KindTypeSpec, syntax.KindTypeAlias}},
	syntax.KindConstDecl:     {FieldSpecs: {syntax.KindConstSpec}},
	syntax.KindVarDecl:       {FieldSpecs: {syntax.KindVarSpec}},
	syntax.KindStructType:    {FieldMembers: {syntax.KindFieldDecl, syntax.KindComment}},
	syntax.KindInterfaceType: {FieldMembers: {syntax.KindMethodElem, syntax.KindTypeElem, syntax.KindComment}},
}

// memberKinds returns the allowed member kinds for a type spec's shape.
func memberKinds(typeText string) []syntax.Kind {
	switch typeText {
	case TypeStruct:
		return childKinds[syntax.KindStructType][FieldMembers]
	case TypeInterface:
		return childKinds[syntax.KindInterfaceType][FieldMembers]
	}
	return nil
}
