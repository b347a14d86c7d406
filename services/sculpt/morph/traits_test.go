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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

func mustField(t *testing.T, doc *Document, typeName, name string) *FieldDecl {
	t.Helper()
	ts, err := doc.Root().TypeSpecOrErr(typeName)
	require.NoError(t, err)
	m, err := ts.MemberOrErr(name)
	require.NoError(t, err)
	f, ok := m.(*FieldDecl)
	require.True(t, ok, "member %s is %T", name, m)
	return f
}

func TestTraits_Parameters(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	p, err := fn.AddParameter(ctx, structure.Structure{Name: structure.String("n"), Type: structure.String("int")})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Contains(t, doc.Text(), "func run(name string, n int) error {")
	name, err := p.Name()
	require.NoError(t, err)
	assert.Equal(t, "n", name)

	params, err := fn.Parameters()
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Same(t, p, params[1])

	require.NoError(t, fn.RemoveParameter(ctx, 0))
	assert.Contains(t, doc.Text(), "func run(n int) error {")
	assert.False(t, p.IsForgotten())

	err = fn.RemoveParameter(ctx, 5)
	var re *RangeError
	assert.ErrorAs(t, err, &re)

	_, err = fn.AddParameter(ctx, structure.Structure{Kind: syntax.KindFieldDecl, Name: structure.String("x")})
	assert.ErrorIs(t, err, ErrStructureMismatch)
}

func TestTraits_Results(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	require.NoError(t, fn.SetResultsText(ctx, "(int, error)"))
	assert.Contains(t, doc.Text(), "func run(name string) (int, error) {")
	res, err := fn.ResultsText()
	require.NoError(t, err)
	assert.Equal(t, "(int, error)", res)

	require.NoError(t, fn.SetResultsText(ctx, ""))
	assert.Contains(t, doc.Text(), "func run(name string) {")

	gen := doc.Generation()
	require.NoError(t, fn.SetResultsText(ctx, ""))
	assert.Equal(t, gen, doc.Generation())
}

func TestTraits_Statements(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	added, err := fn.AddStatement(ctx, structure.Raw(syntax.KindUnknown, "log()"))
	require.NoError(t, err)
	assert.Equal(t, syntax.KindExpressionStatement, added.Kind())
	assert.Contains(t, doc.Text(), "\treturn nil\n\tlog()\n}")

	first, err := fn.InsertStatement(ctx, 0, structure.Raw(syntax.KindUnknown, "defer cleanup()"))
	require.NoError(t, err)
	assert.Equal(t, syntax.KindDeferStatement, first.Kind())
	assert.Contains(t, doc.Text(), "{\n\tdefer cleanup()\n\tfmt.Println")

	stmts, err := fn.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Same(t, first.Base(), stmts[0].Base())
	assert.Same(t, added.Base(), stmts[3].Base())

	has, err := fn.HasBody()
	require.NoError(t, err)
	assert.True(t, has)
}

func TestTraits_Doc(t *testing.T) {
	ctx := context.Background()

	t.Run("replace and remove", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		fn := mustFunction(t, doc, "run")

		require.NoError(t, fn.SetDoc(ctx, "run greets."))
		assert.Contains(t, doc.Text(), "import \"fmt\"\n\n// run greets.\nfunc run(")
		got, err := fn.Doc()
		require.NoError(t, err)
		assert.Equal(t, "// run greets.", got)

		require.NoError(t, fn.SetDoc(ctx, ""))
		assert.Contains(t, doc.Text(), "import \"fmt\"\n\nfunc run(")
		got, err = fn.Doc()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("spec on the keyword line is documented through its declaration", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		ts, err := doc.Root().TypeSpecOrErr("Server")
		require.NoError(t, err)

		require.NoError(t, ts.SetDoc(ctx, "Server serves.\n\nIt is not safe for concurrent use."))
		assert.Contains(t, doc.Text(), "}\n\n// Server serves.\n//\n// It is not safe for concurrent use.\ntype Server struct {")
		got, err := ts.Doc()
		require.NoError(t, err)
		assert.Equal(t, "// Server serves.\n//\n// It is not safe for concurrent use.", got)
	})
}

func TestTraits_Fields(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	port := mustField(t, doc, "Server", "port")

	require.NoError(t, port.SetTag(ctx, "`json:\"port\"`"))
	assert.Contains(t, doc.Text(), "\tport int `json:\"port\"`\n}")
	tag, err := port.Tag()
	require.NoError(t, err)
	assert.Equal(t, "`json:\"port\"`", tag)

	require.NoError(t, port.SetTypeText(ctx, "uint16"))
	assert.Contains(t, doc.Text(), "\tport uint16 `json:\"port\"`\n}")

	exported, err := port.IsExported()
	require.NoError(t, err)
	assert.False(t, exported)
	require.NoError(t, port.SetExported(ctx, true))
	assert.Contains(t, doc.Text(), "\tPort uint16 `json:\"port\"`\n}")
	assert.False(t, port.IsForgotten())

	require.NoError(t, port.SetTag(ctx, ""))
	assert.Contains(t, doc.Text(), "\tPort uint16\n}")

	err = port.SetTypeText(ctx, "")
	assert.ErrorIs(t, err, ErrStructureMismatch)
}

func TestTraits_Rename(t *testing.T) {
	ctx := context.Background()
	nameEnd := strings.Index(serverSource, "func run") + len("func run")

	tests := []struct {
		name     string
		settings structure.Settings
		want     TextEdit
	}{
		{
			name:     "whole name",
			settings: structure.DefaultSettings(),
			want:     TextEdit{Start: nameEnd - 3, End: nameEnd, Text: "runAll"},
		},
		{
			name:     "prefix and suffix kept",
			settings: structure.Settings{PreferPrefixSuffixRename: true},
			want:     TextEdit{Start: nameEnd, End: nameEnd, Text: "All"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := openDoc(t, serverSource, WithSettings(tt.settings))
			fn := mustFunction(t, doc, "run")

			var edits []TextEdit
			doc.Observe(func(_ *Document, c Change) { edits = append(edits, c.Edits...) })

			require.NoError(t, fn.Rename(ctx, "runAll"))
			require.Len(t, edits, 1)
			assert.Equal(t, tt.want, edits[0])

			name, err := fn.Name()
			require.NoError(t, err)
			assert.Equal(t, "runAll", name)
		})
	}

	t.Run("invalid and required names", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		fn := mustFunction(t, doc, "run")
		assert.ErrorIs(t, fn.Rename(ctx, "not valid"), ErrStructureMismatch)
		assert.ErrorIs(t, fn.Rename(ctx, ""), ErrStructureMismatch)
		assert.Equal(t, uint64(0), doc.Generation())
	})

	t.Run("optional name removed", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		fn := mustFunction(t, doc, "run")
		p, err := fn.ParameterOrErr("name")
		require.NoError(t, err)
		require.NoError(t, p.Rename(ctx, ""))
		assert.Contains(t, doc.Text(), "func run(string) error {")
	})
}

func TestTraits_Imports(t *testing.T) {
	ctx := context.Background()

	t.Run("single import gets a sibling declaration", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		root := doc.Root()

		fmtSpec, err := root.ImportOrErr("fmt")
		require.NoError(t, err)
		again, err := root.AddImport(ctx, "fmt", "")
		require.NoError(t, err)
		assert.Same(t, fmtSpec, again)
		assert.Equal(t, uint64(0), doc.Generation())

		os, err := root.AddImport(ctx, "os", "")
		require.NoError(t, err)
		path, err := os.ImportPath()
		require.NoError(t, err)
		assert.Equal(t, "os", path)
		assert.Contains(t, doc.Text(), "import \"fmt\"\nimport \"os\"\n")
		assert.False(t, fmtSpec.IsForgotten())

		require.NoError(t, root.RemoveImport(ctx, "os"))
		assert.Equal(t, serverSource, doc.Text())
	})

	t.Run("grouped imports", func(t *testing.T) {
		doc := openDoc(t, shapesSource)
		root := doc.Root()

		spec, err := root.AddImport(ctx, "io", "stdio")
		require.NoError(t, err)
		name, err := spec.Name()
		require.NoError(t, err)
		assert.Equal(t, "stdio", name)
		assert.Contains(t, doc.Text(), "import (\n\t\"fmt\"\n\tstr \"strings\"\n\tstdio \"io\"\n)")

		imports, err := root.Imports()
		require.NoError(t, err)
		assert.Len(t, imports, 3)

		missing, err := root.Import("net")
		require.NoError(t, err)
		assert.Nil(t, missing)
		_, err = root.ImportOrErr("net")
		assert.True(t, IsNotFound(err))
	})
}

func TestTraits_Declarations(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	root := doc.Root()

	w, err := root.AddDeclaration(ctx, structure.Structure{
		Kind:  syntax.KindConstDecl,
		Specs: []structure.Structure{{Name: structure.String("Version"), Value: structure.String(`"1.0"`)}},
	})
	require.NoError(t, err)
	c, ok := w.(*ConstDecl)
	require.True(t, ok, "got %T", w)
	assert.True(t, strings.HasSuffix(doc.Text(), "}\n\nconst Version = \"1.0\"\n"))

	v, err := root.ValueOrErr("Version")
	require.NoError(t, err)
	assert.True(t, v.IsConst())
	val, err := v.ValueText()
	require.NoError(t, err)
	assert.Equal(t, `"1.0"`, val)

	helper, err := root.InsertDeclaration(ctx, 0, structure.Structure{
		Name:       structure.String("helper"),
		Statements: []structure.Structure{},
	})
	require.NoError(t, err)
	assert.Equal(t, syntax.KindFunctionDecl, helper.Kind())
	assert.Contains(t, doc.Text(), "import \"fmt\"\n\nfunc helper() {}\n\n// run prints a greeting.\nfunc run(")

	decls, err := root.Declarations()
	require.NoError(t, err)
	require.Len(t, decls, 4)
	assert.Same(t, helper.Base(), decls[0].Base())
	assert.Same(t, c.Node, decls[3].Base())

	_, err = root.AddDeclaration(ctx, structure.Structure{Kind: syntax.KindFieldDecl})
	assert.ErrorIs(t, err, ErrStructureMismatch)
}

func TestTraits_Unsupported(t *testing.T) {
	doc := openDoc(t, "package p\n\ntype ID int\n\nfunc f() {}\n")
	fn := mustFunction(t, doc, "f")

	_, err := AsMembers(fn)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	var ue *UnsupportedKindError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, TraitMembers, ue.Trait)

	named, err := AsNamed(fn)
	require.NoError(t, err)
	name, err := named.Name()
	require.NoError(t, err)
	assert.Equal(t, "f", name)

	id, err := doc.Root().TypeSpecOrErr("ID")
	require.NoError(t, err)
	_, err = id.Members()
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	typ, err := id.TypeText()
	require.NoError(t, err)
	assert.Equal(t, "int", typ)
}

func TestDispatch_Traits(t *testing.T) {
	assert.True(t, KindSupports(syntax.KindMethodDecl, TraitReceiver|TraitBody))
	assert.False(t, KindSupports(syntax.KindFunctionDecl, TraitReceiver))
	assert.False(t, KindSupports(syntax.KindFunctionDecl, 0))
	assert.False(t, KindSupports(syntax.KindIfStatement, TraitNamed))
	assert.Equal(t, Trait(0), TraitsOf(syntax.KindSourceFile))
	assert.Equal(t, "named|typed", (TraitNamed | TraitTyped).String())
	assert.Equal(t, "none", Trait(0).String())
}
