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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

func param(name, typ string) Structure {
	return Structure{Kind: syntax.KindParameterDecl, Name: String(name), Type: String(typ)}
}

func field(name, typ string) Structure {
	return Structure{Kind: syntax.KindFieldDecl, Name: String(name), Type: String(typ)}
}

func TestRenderer_FunctionDecl(t *testing.T) {
	r := NewRenderer(DefaultSettings())
	s := Structure{
		Kind: syntax.KindFunctionDecl,
		Doc:  String("// Run runs."),
		Name: String("Run"),
		Parameters: []Structure{
			param("ctx", "context.Context"),
			{Kind: syntax.KindVariadicParameterDecl, Name: String("args"), Type: String("string")},
		},
		Results:    String("error"),
		Statements: []Structure{Raw(syntax.KindReturnStatement, "return nil")},
	}

	out, err := r.Render(s, "")
	require.NoError(t, err)
	assert.Equal(t, "// Run runs.\nfunc Run(ctx context.Context, args ...string) error {\n\treturn nil\n}", out.Text)
	assert.Equal(t, len("// Run runs.\n"), out.NodeOffset)
}

func TestRenderer_EmptyBodies(t *testing.T) {
	r := NewRenderer(DefaultSettings())

	out, err := r.Render(Structure{Kind: syntax.KindFunctionDecl, Name: String("run"), Parameters: []Structure{}, Statements: []Structure{}}, "")
	require.NoError(t, err)
	assert.Equal(t, "func run() {}", out.Text)
	assert.Equal(t, 0, out.NodeOffset)

	out, err = r.Render(Structure{Kind: syntax.KindFunctionDecl, Name: String("external"), Parameters: []Structure{}}, "")
	require.NoError(t, err)
	assert.Equal(t, "func external()", out.Text)
}

func TestRenderer_SettingsShapeOutput(t *testing.T) {
	decl := Structure{
		Kind: syntax.KindTypeDecl,
		Specs: []Structure{{
			Kind:    syntax.KindTypeSpec,
			Name:    String("T"),
			Type:    String(TypeStruct),
			Members: []Structure{field("A", "int"), field("B", "string")},
		}},
	}

	t.Run("four spaces with crlf", func(t *testing.T) {
		r := NewRenderer(Settings{IndentationUnit: IndentFourSpaces, LineEnding: LineEndingCRLF})
		out, err := r.Render(decl, "")
		require.NoError(t, err)
		assert.Equal(t, "type T struct {\r\n    A int\r\n    B string\r\n}", out.Text)
	})

	t.Run("two spaces nested", func(t *testing.T) {
		r := NewRenderer(Settings{IndentationUnit: IndentTwoSpaces})
		out, err := r.Render(decl, "  ")
		require.NoError(t, err)
		assert.Equal(t, "type T struct {\n    A int\n    B string\n  }", out.Text)
	})

	t.Run("tabs are gofmt aligned", func(t *testing.T) {
		r := NewRenderer(DefaultSettings())
		out, err := r.Render(decl, "")
		require.NoError(t, err)
		assert.Equal(t, "type T struct {\n\tA int\n\tB string\n}", out.Text)
	})

	t.Run("quote style", func(t *testing.T) {
		single := NewRenderer(Settings{QuoteStyle: QuoteSingle})
		out, err := single.Render(Structure{Kind: syntax.KindImportSpec, Name: String("f"), Path: String("fmt")}, "")
		require.NoError(t, err)
		assert.Equal(t, "f `fmt`", out.Text)

		double := NewRenderer(DefaultSettings())
		out, err = double.Render(Structure{Kind: syntax.KindImportSpec, Path: String("fmt")}, "")
		require.NoError(t, err)
		assert.Equal(t, `"fmt"`, out.Text)
	})
}

func TestRenderer_GroupsAndBlankLines(t *testing.T) {
	r := NewRenderer(DefaultSettings())
	decl := Structure{
		Kind: syntax.KindConstDecl,
		Specs: []Structure{
			{Kind: syntax.KindConstSpec, Name: String("A"), Value: String("1")},
			Blank(),
			{Kind: syntax.KindConstSpec, Name: String("B"), Value: String("2")},
		},
	}
	out, err := r.Render(decl, "")
	require.NoError(t, err)
	assert.Equal(t, "const (\n\tA = 1\n\n\tB = 2\n)", out.Text)

	single, err := r.Render(Structure{
		Kind:  syntax.KindVarDecl,
		Specs: []Structure{{Kind: syntax.KindVarSpec, Name: String("x"), Type: String("int")}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "var x int", single.Text)
}

func TestRenderer_NestedDocAndRawText(t *testing.T) {
	r := NewRenderer(DefaultSettings())

	f := field("Addr", "string")
	f.Doc = String("// Addr is where to listen.")
	out, err := r.Render(f, "\t")
	require.NoError(t, err)
	assert.Equal(t, "// Addr is where to listen.\n\tAddr string", out.Text)
	assert.Equal(t, len("// Addr is where to listen.\n\t"), out.NodeOffset)

	fn := Structure{
		Kind:       syntax.KindFunctionDecl,
		Name:       String("f"),
		Parameters: []Structure{},
		Statements: []Structure{Raw(syntax.KindIfStatement, "if x {\n\treturn\n}")},
	}
	out, err = NewRenderer(Settings{IndentationUnit: IndentTwoSpaces}).Render(fn, "")
	require.NoError(t, err)
	assert.Equal(t, "func f() {\n  if x {\n  \treturn\n  }\n}", out.Text)
}

func TestRenderer_SourceFile(t *testing.T) {
	r := NewRenderer(DefaultSettings())
	s := Structure{
		Kind:    syntax.KindSourceFile,
		Package: String("main"),
		Imports: []Structure{
			{Kind: syntax.KindImportSpec, Path: String("fmt")},
			{Kind: syntax.KindImportSpec, Path: String("os")},
		},
		Declarations: []Structure{
			{Kind: syntax.KindFunctionDecl, Name: String("main"), Parameters: []Structure{}, Statements: []Structure{}},
		},
	}
	out, err := r.Render(s, "")
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nimport (\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() {}\n", out.Text)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		s     Structure
		field string
	}{
		{
			name:  "receiver on a function",
			s:     Structure{Kind: syntax.KindFunctionDecl, Receiver: String("s *S")},
			field: "receiver",
		},
		{
			name:  "members on a non struct type",
			s:     Structure{Kind: syntax.KindTypeSpec, Name: String("ID"), Type: String("int"), Members: []Structure{}},
			field: "members",
		},
		{
			name:  "field in a parameter list",
			s:     Structure{Kind: syntax.KindFunctionDecl, Parameters: []Structure{field("x", "int")}},
			field: "parameters[0]",
		},
		{
			name:  "text on a supported kind",
			s:     Structure{Kind: syntax.KindCallExpr, Text: String("f()")},
			field: "text",
		},
		{
			name:  "nested mismatch",
			s:     Structure{Kind: syntax.KindTypeDecl, Specs: []Structure{{Kind: syntax.KindTypeSpec, Value: String("1")}}},
			field: "value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMismatch))

			var me *MismatchError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.field, me.Field)
		})
	}

	t.Run("identifier syntax", func(t *testing.T) {
		err := Validate(Structure{Kind: syntax.KindFunctionDecl, Name: String("1run")})
		assert.True(t, errors.Is(err, ErrMismatch))

		assert.NoError(t, Validate(Structure{Kind: syntax.KindFieldDecl, Name: String("a, b"), Type: String("int")}))
		assert.NoError(t, Validate(param("", "int")))
	})

	t.Run("empty optional parts are absent", func(t *testing.T) {
		assert.NoError(t, Validate(Structure{
			Kind:       syntax.KindFunctionDecl,
			Name:       String("run"),
			TypeParams: String(""),
			Parameters: []Structure{},
			Statements: []Structure{},
		}))
		assert.NoError(t, Validate(Structure{
			Kind:  syntax.KindTypeDecl,
			Specs: []Structure{{Kind: syntax.KindTypeSpec, Name: String("ID"), TypeParams: String(""), Type: String("int")}},
		}))
		assert.NoError(t, Validate(Structure{Kind: syntax.KindImportSpec, Name: String(""), Path: String("fmt")}))

		err := Validate(Structure{Kind: syntax.KindFunctionDecl, Name: String("run"), TypeParams: String("T any")})
		assert.True(t, errors.Is(err, ErrMismatch))
	})

	t.Run("blank lines are allowed in constrained lists", func(t *testing.T) {
		s := Structure{Kind: syntax.KindStructType, Members: []Structure{field("A", "int"), Blank(), field("B", "int")}}
		assert.NoError(t, Validate(s))
	})
}

func TestMerge(t *testing.T) {
	base := Structure{
		Kind:       syntax.KindFunctionDecl,
		Name:       String("run"),
		TypeParams: String("[T any]"),
		Parameters: []Structure{param("x", "T")},
		Statements: []Structure{},
	}

	t.Run("overlay keeps unset fields", func(t *testing.T) {
		merged := Merge(base, Structure{Name: String("execute")})
		assert.Equal(t, syntax.KindFunctionDecl, merged.Kind)
		assert.Equal(t, "execute", Deref(merged.Name))
		assert.Equal(t, base.Parameters, merged.Parameters)
		assert.Equal(t, "run", Deref(base.Name), "base must not change")
	})

	t.Run("kind switch drops foreign fields", func(t *testing.T) {
		merged := Merge(base, Structure{Kind: syntax.KindMethodDecl, Receiver: String("s *S")})
		assert.Equal(t, syntax.KindMethodDecl, merged.Kind)
		assert.Nil(t, merged.TypeParams)
		assert.Equal(t, "s *S", Deref(merged.Receiver))
		assert.Equal(t, "run", Deref(merged.Name))
		assert.NoError(t, Validate(merged))
	})

	t.Run("empty slice clears", func(t *testing.T) {
		merged := Merge(base, Structure{Parameters: []Structure{}})
		assert.NotNil(t, merged.Parameters)
		assert.Empty(t, merged.Parameters)
	})
}

func TestEmpty_RendersForEverySupportedKind(t *testing.T) {
	r := NewRenderer(DefaultSettings())
	for _, kind := range SupportedKinds() {
		out, err := r.Render(Empty(kind), "")
		require.NoError(t, err, kind.String())
		assert.NotEmpty(t, out.Text, kind.String())
	}
}

func TestStructure_YAML(t *testing.T) {
	doc := `
kind: functionDecl
name: Serve
parameters:
  - name: addr
    type: string
results: error
`
	var s Structure
	require.NoError(t, yaml.Unmarshal([]byte(doc), &s))
	assert.Equal(t, syntax.KindFunctionDecl, s.Kind)
	require.Len(t, s.Parameters, 1)
	assert.Nil(t, s.Statements)

	out, err := NewRenderer(DefaultSettings()).Render(s, "")
	require.NoError(t, err)
	assert.Equal(t, "func Serve(addr string) error", out.Text)

	encoded, err := yaml.Marshal(Structure{Kind: syntax.KindImportSpec, Path: String("os")})
	require.NoError(t, err)
	assert.Equal(t, "kind: importSpec\npath: os\n", string(encoded))
}

func TestSettings(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	assert.NoError(t, Settings{}.Validate())
	assert.Error(t, Settings{IndentationUnit: "threeSpace"}.Validate())
	assert.Error(t, Settings{LineEnding: "cr"}.Validate())

	s := Settings{QuoteStyle: QuoteSingle}.WithDefaults()
	assert.Equal(t, IndentTab, s.IndentationUnit)
	assert.Equal(t, LineEndingLF, s.LineEnding)
	assert.Equal(t, QuoteSingle, s.QuoteStyle)

	assert.Equal(t, "\"a`b\"", QuoteSingle.Quote("a`b"))
}

func TestDedentReindent(t *testing.T) {
	text := "if x {\r\n\t\treturn\r\n\t}"
	dedented := Dedent(text, "\t")
	assert.Equal(t, "if x {\n\treturn\n}", dedented)
	assert.Equal(t, "if x {\n\t\treturn\n\t}", Reindent(dedented, "\t"))
	assert.Equal(t, "a\n\n  b", Reindent("a\n\nb", "  "))
}
