// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"fmt"
)

// Kind is the small integer tag carried by every concrete node.
//
// # Description
//
// Kind is total over the grammar: every tree-sitter node type maps to a
// Kind. Named types without a dedicated tag map to KindUnknown, anonymous
// tokens (punctuation, keywords) map to KindToken and error recovery nodes
// map to KindError.
//
// Kind marshals to its camelCase name so structures read naturally in YAML
// and JSON ("functionDecl", "fieldDecl", ...).
type Kind uint16

const (
	KindUnknown Kind = iota
	KindToken
	KindError
	KindComment

	// Top level
	KindSourceFile
	KindPackageClause
	KindImportDecl
	KindImportSpec
	KindImportSpecList
	KindFunctionDecl
	KindMethodDecl
	KindTypeDecl
	KindTypeSpec
	KindTypeAlias
	KindConstDecl
	KindConstSpec
	KindVarDecl
	KindVarSpec

	// Signatures and members
	KindParameterList
	KindParameterDecl
	KindVariadicParameterDecl
	KindTypeParameterList
	KindStructType
	KindInterfaceType
	KindFieldDeclList
	KindFieldDecl
	KindMethodElem
	KindTypeElem

	// Types
	KindTypeIdentifier
	KindQualifiedType
	KindPointerType
	KindSliceType
	KindArrayType
	KindMapType
	KindChannelType
	KindFunctionType
	KindGenericType

	// Statements
	KindBlock
	KindStatementList
	KindExpressionStatement
	KindReturnStatement
	KindIfStatement
	KindForStatement
	KindShortVarDecl
	KindAssignmentStatement
	KindIncStatement
	KindDecStatement
	KindGoStatement
	KindDeferStatement
	KindSwitchStatement
	KindTypeSwitchStatement
	KindSelectStatement
	KindLabeledStatement
	KindBreakStatement
	KindContinueStatement

	// Expressions
	KindCallExpr
	KindArgumentList
	KindSelectorExpr
	KindIndexExpr
	KindBinaryExpr
	KindUnaryExpr
	KindParenExpr
	KindCompositeLiteral
	KindLiteralValue
	KindFuncLiteral
	KindExpressionList
	KindIdentifier
	KindFieldIdentifier
	KindPackageIdentifier
	KindBlankIdentifier
	KindInterpretedString
	KindRawString
	KindIntLiteral
	KindFloatLiteral
	KindRuneLiteral
	KindTrue
	KindFalse
	KindNil

	kindCount
)

// kindInfo pairs the grammar type name with the marshaled name of a Kind.
type kindInfo struct {
	grammar string
	name    string
}

var kindTable = [kindCount]kindInfo{
	KindUnknown:               {"", "unknown"},
	KindToken:                 {"", "token"},
	KindError:                 {"ERROR", "error"},
	KindComment:               {"comment", "comment"},
	KindSourceFile:            {"source_file", "sourceFile"},
	KindPackageClause:         {"package_clause", "packageClause"},
	KindImportDecl:            {"import_declaration", "importDecl"},
	KindImportSpec:            {"import_spec", "importSpec"},
	KindImportSpecList:        {"import_spec_list", "importSpecList"},
	KindFunctionDecl:          {"function_declaration", "functionDecl"},
	KindMethodDecl:            {"method_declaration", "methodDecl"},
	KindTypeDecl:              {"type_declaration", "typeDecl"},
	KindTypeSpec:              {"type_spec", "typeSpec"},
	KindTypeAlias:             {"type_alias", "typeAlias"},
	KindConstDecl:             {"const_declaration", "constDecl"},
	KindConstSpec:             {"const_spec", "constSpec"},
	KindVarDecl:               {"var_declaration", "varDecl"},
	KindVarSpec:               {"var_spec", "varSpec"},
	KindParameterList:         {"parameter_list", "parameterList"},
	KindParameterDecl:         {"parameter_declaration", "parameterDecl"},
	KindVariadicParameterDecl: {"variadic_parameter_declaration", "variadicParameterDecl"},
	KindTypeParameterList:     {"type_parameter_list", "typeParameterList"},
	KindStructType:            {"struct_type", "structType"},
	KindInterfaceType:         {"interface_type", "interfaceType"},
	KindFieldDeclList:         {"field_declaration_list", "fieldDeclList"},
	KindFieldDecl:             {"field_declaration", "fieldDecl"},
	KindMethodElem:            {"method_elem", "methodElem"},
	KindTypeElem:              {"type_elem", "typeElem"},
	KindTypeIdentifier:        {"type_identifier", "typeIdentifier"},
	KindQualifiedType:         {"qualified_type", "qualifiedType"},
	KindPointerType:           {"pointer_type", "pointerType"},
	KindSliceType:             {"slice_type", "sliceType"},
	KindArrayType:             {"array_type", "arrayType"},
	KindMapType:               {"map_type", "mapType"},
	KindChannelType:           {"channel_type", "channelType"},
	KindFunctionType:          {"function_type", "functionType"},
	KindGenericType:           {"generic_type", "genericType"},
	KindBlock:                 {"block", "block"},
	KindStatementList:         {"statement_list", "statementList"},
	KindExpressionStatement:   {"expression_statement", "expressionStatement"},
	KindReturnStatement:       {"return_statement", "returnStatement"},
	KindIfStatement:           {"if_statement", "ifStatement"},
	KindForStatement:          {"for_statement", "forStatement"},
	KindShortVarDecl:          {"short_var_declaration", "shortVarDecl"},
	KindAssignmentStatement:   {"assignment_statement", "assignmentStatement"},
	KindIncStatement:          {"inc_statement", "incStatement"},
	KindDecStatement:          {"dec_statement", "decStatement"},
	KindGoStatement:           {"go_statement", "goStatement"},
	KindDeferStatement:        {"defer_statement", "deferStatement"},
	KindSwitchStatement:       {"expression_switch_statement", "switchStatement"},
	KindTypeSwitchStatement:   {"type_switch_statement", "typeSwitchStatement"},
	KindSelectStatement:       {"select_statement", "selectStatement"},
	KindLabeledStatement:      {"labeled_statement", "labeledStatement"},
	KindBreakStatement:        {"break_statement", "breakStatement"},
	KindContinueStatement:     {"continue_statement", "continueStatement"},
	KindCallExpr:              {"call_expression", "callExpr"},
	KindArgumentList:          {"argument_list", "argumentList"},
	KindSelectorExpr:          {"selector_expression", "selectorExpr"},
	KindIndexExpr:             {"index_expression", "indexExpr"},
	KindBinaryExpr:            {"binary_expression", "binaryExpr"},
	KindUnaryExpr:             {"unary_expression", "unaryExpr"},
	KindParenExpr:             {"parenthesized_expression", "parenExpr"},
	KindCompositeLiteral:      {"composite_literal", "compositeLiteral"},
	KindLiteralValue:          {"literal_value", "literalValue"},
	KindFuncLiteral:           {"func_literal", "funcLiteral"},
	KindExpressionList:        {"expression_list", "expressionList"},
	KindIdentifier:            {"identifier", "identifier"},
	KindFieldIdentifier:       {"field_identifier", "fieldIdentifier"},
	KindPackageIdentifier:     {"package_identifier", "packageIdentifier"},
	KindBlankIdentifier:       {"blank_identifier", "blankIdentifier"},
	KindInterpretedString:     {"interpreted_string_literal", "interpretedString"},
	KindRawString:             {"raw_string_literal", "rawString"},
	KindIntLiteral:            {"int_literal", "intLiteral"},
	KindFloatLiteral:          {"float_literal", "floatLiteral"},
	KindRuneLiteral:           {"rune_literal", "runeLiteral"},
	KindTrue:                  {"true", "true"},
	KindFalse:                 {"false", "false"},
	KindNil:                   {"nil", "nil"},
}

var (
	kindByGrammar = make(map[string]Kind, kindCount)
	kindByName    = make(map[string]Kind, kindCount)
)

func init() {
	for k := Kind(0); k < kindCount; k++ {
		info := kindTable[k]
		if info.name == "" {
			panic(fmt.Sprintf("syntax: kind %d has no name", k))
		}
		if info.grammar != "" {
			kindByGrammar[info.grammar] = k
		}
		kindByName[info.name] = k
	}
	// Older grammar revisions call interface methods method_spec.
	kindByGrammar["method_spec"] = KindMethodElem
}

// KindForType maps a grammar node type to its Kind.
//
// Anonymous nodes are always KindToken, whatever their type text. Named
// types the table does not know map to KindUnknown.
func KindForType(grammarType string, named bool) Kind {
	if !named {
		return KindToken
	}
	if k, ok := kindByGrammar[grammarType]; ok {
		return k
	}
	return KindUnknown
}

// ParseKind resolves a marshaled kind name such as "functionDecl".
func ParseKind(name string) (Kind, error) {
	if k, ok := kindByName[name]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown kind %q", name)
}

// Kinds returns every defined kind in tag order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the camelCase name of the kind.
func (k Kind) String() string {
	if k < kindCount {
		return kindTable[k].name
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// GrammarType returns the tree-sitter node type the kind was mapped from,
// or "" for the synthetic kinds.
func (k Kind) GrammarType() string {
	if k < kindCount {
		return kindTable[k].grammar
	}
	return ""
}

// IsStatement reports whether nodes of this kind can appear in a block's
// statement list.
func (k Kind) IsStatement() bool {
	switch k {
	case KindExpressionStatement, KindReturnStatement, KindIfStatement,
		KindForStatement, KindShortVarDecl, KindAssignmentStatement,
		KindIncStatement, KindDecStatement, KindGoStatement, KindDeferStatement,
		KindSwitchStatement, KindTypeSwitchStatement, KindSelectStatement,
		KindLabeledStatement, KindBreakStatement, KindContinueStatement,
		KindBlock, KindConstDecl, KindVarDecl, KindTypeDecl:
		return true
	}
	return false
}

// IsDeclaration reports whether the kind is a top level declaration.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindFunctionDecl, KindMethodDecl, KindTypeDecl, KindConstDecl, KindVarDecl:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k >= kindCount {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
