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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

const serverSource = `package server

import "fmt"

// run prints a greeting.
func run(name string) error {
	fmt.Println("hello", name)
	return nil
}

type Server struct {
	Addr string
	port int
}
`

func openDoc(t *testing.T, text string, opts ...Option) *Document {
	t.Helper()
	doc, err := Open(context.Background(), syntax.NewGoParser(), text, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func mustFunction(t *testing.T, doc *Document, name string) *FunctionDecl {
	t.Helper()
	fn, err := doc.Root().FunctionOrErr(name)
	require.NoError(t, err)
	return fn
}

func mustRange(t *testing.T, w Wrapper) Range {
	t.Helper()
	r, err := w.Base().Range()
	require.NoError(t, err)
	return r
}

func TestDocument_HandleIdentity(t *testing.T) {
	doc := openDoc(t, serverSource)

	t.Run("repeated lookups return the same handle", func(t *testing.T) {
		a := mustFunction(t, doc, "run")
		b := mustFunction(t, doc, "run")
		assert.Same(t, a, b)

		c, err := a.Concrete()
		require.NoError(t, err)
		w, err := doc.WrapperFor(c)
		require.NoError(t, err)
		assert.Same(t, a, w)
	})

	t.Run("root is a source file", func(t *testing.T) {
		root := doc.Root()
		require.NotNil(t, root)
		assert.Equal(t, syntax.KindSourceFile, root.Kind())
		pkg, err := root.Package()
		require.NoError(t, err)
		assert.Equal(t, "server", pkg)
	})

	t.Run("stale concrete nodes are rejected", func(t *testing.T) {
		other, err := syntax.NewGoParser().Parse(context.Background(), serverSource)
		require.NoError(t, err)
		_, err = doc.WrapperFor(other.Root())
		assert.ErrorIs(t, err, ErrStaleNode)
	})

	t.Run("missing lookups", func(t *testing.T) {
		fn, err := doc.Root().Function("missing")
		require.NoError(t, err)
		assert.Nil(t, fn)

		_, err = doc.Root().FunctionOrErr("missing")
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "missing", nf.Name)
		assert.True(t, IsNotFound(err))
	})
}

func TestDocument_RenameThroughNameRange(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")
	nameNode, err := fn.NameNode()
	require.NoError(t, err)
	r := mustRange(t, nameNode)

	change, err := doc.ApplyTextEdits(context.Background(), TextEdit{Start: r.Start, End: r.End, Text: "execute"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), change.Generation)

	assert.False(t, fn.IsForgotten())
	name, err := fn.Name()
	require.NoError(t, err)
	assert.Equal(t, "execute", name)

	assert.True(t, nameNode.IsForgotten())
	_, err = nameNode.Base().Text()
	assert.ErrorIs(t, err, ErrForgotten)
	var fe *ForgottenHandleError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, syntax.KindIdentifier, fe.Kind)
}

func TestDocument_RemoveStatementShiftsFollowingHandles(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")
	stmts, err := fn.Statements()
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	first := mustRange(t, stmts[0])
	second := mustRange(t, stmts[1])

	_, err = doc.RemoveText(context.Background(), first)
	require.NoError(t, err)

	assert.True(t, stmts[0].IsForgotten())
	require.False(t, stmts[1].IsForgotten())
	moved := mustRange(t, stmts[1])
	assert.Equal(t, second.Start-first.Len(), moved.Start)
	assert.Equal(t, second.Len(), moved.Len())

	text, err := stmts[1].Base().Text()
	require.NoError(t, err)
	assert.Equal(t, "return nil", text)
}

func TestDocument_InsertMemberKeepsExistingMembers(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	ts, err := doc.Root().TypeSpecOrErr("Server")
	require.NoError(t, err)
	members, err := ts.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)
	addr := members[0]

	inserted, err := ts.InsertMember(ctx, 0, structure.Structure{
		Kind: syntax.KindFieldDecl,
		Name: structure.String("ID"),
		Type: structure.String("int"),
	})
	require.NoError(t, err)

	assert.Contains(t, doc.Text(), "type Server struct {\n\tID int\n\tAddr string\n\tport int\n}")
	assert.False(t, ts.IsForgotten())
	require.False(t, addr.IsForgotten())

	addrName, err := addr.(*FieldDecl).Name()
	require.NoError(t, err)
	assert.Equal(t, "Addr", addrName)

	field, ok := inserted.(*FieldDecl)
	require.True(t, ok, "inserted handle is %T", inserted)
	idName, err := field.Name()
	require.NoError(t, err)
	assert.Equal(t, "ID", idName)

	members, err = ts.Members()
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Same(t, inserted, members[0])
	assert.Same(t, addr, members[1])
}

func TestDocument_Batch(t *testing.T) {
	t.Run("closing forgets handles created inside", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		var captured *FunctionDecl
		err := doc.Batch(func() error {
			fn, err := doc.Root().FunctionOrErr("run")
			captured = fn
			return err
		})
		require.NoError(t, err)
		require.NotNil(t, captured)
		assert.True(t, captured.IsForgotten())

		_, err = captured.Name()
		assert.ErrorIs(t, err, ErrForgotten)
		assert.False(t, doc.Root().IsForgotten())
	})

	t.Run("handles created before the scope survive", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		before := mustFunction(t, doc, "run")
		b := doc.BeginBatch()
		again := mustFunction(t, doc, "run")
		params, err := again.Parameters()
		require.NoError(t, err)
		require.Len(t, params, 1)
		assert.Equal(t, 1, b.Close())

		assert.False(t, before.IsForgotten())
		assert.True(t, params[0].IsForgotten())
	})

	t.Run("nested scopes", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		outer := doc.BeginBatch()
		fn := mustFunction(t, doc, "run")

		inner := doc.BeginBatch()
		ts, err := doc.Root().TypeSpecOrErr("Server")
		require.NoError(t, err)
		inner.Close()

		assert.True(t, ts.IsForgotten())
		assert.False(t, fn.IsForgotten())

		outer.Close()
		assert.True(t, fn.IsForgotten())
		assert.Equal(t, 0, outer.Close())
	})

	t.Run("closing the outer scope closes open inner scopes", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		outer := doc.BeginBatch()
		_ = doc.BeginBatch()
		fn := mustFunction(t, doc, "run")
		outer.Close()
		assert.True(t, fn.IsForgotten())
	})
}

func TestDocument_ApplyTextEdits_Errors(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	tests := []struct {
		name  string
		edits []TextEdit
	}{
		{"negative start", []TextEdit{{Start: -1, End: 0}}},
		{"past the end", []TextEdit{{Start: 0, End: len(serverSource) + 1}}},
		{"inverted", []TextEdit{{Start: 5, End: 2}}},
		{"overlapping", []TextEdit{{Start: 0, End: 10, Text: "a"}, {Start: 5, End: 12, Text: "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doc.ApplyTextEdits(ctx, tt.edits...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRange)
			var re *RangeError
			assert.ErrorAs(t, err, &re)
		})
	}

	assert.Equal(t, serverSource, doc.Text())
	assert.Equal(t, uint64(0), doc.Generation())
	assert.False(t, fn.IsForgotten())
}

func TestDocument_IdentityEditsAreNoOps(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	change, err := doc.ApplyTextEdits(context.Background(), TextEdit{Start: 0, End: 7, Text: "package"})
	require.NoError(t, err)
	assert.Empty(t, change.Edits)
	assert.Equal(t, uint64(0), doc.Generation())
	assert.False(t, fn.IsForgotten())

	change, err = doc.ReplaceAll(context.Background(), serverSource)
	require.NoError(t, err)
	assert.Empty(t, change.Edits)
}

func TestDocument_ReplaceAllIsNarrowed(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")
	ts, err := doc.Root().TypeSpecOrErr("Server")
	require.NoError(t, err)

	updated := strings.Replace(serverSource, "port int", "port uint", 1)
	change, err := doc.ReplaceAll(context.Background(), updated)
	require.NoError(t, err)
	require.Len(t, change.Edits, 1)
	assert.Equal(t, "u", change.Edits[0].Text)
	assert.True(t, change.Edits[0].IsInsertion())

	assert.Equal(t, updated, doc.Text())
	assert.False(t, fn.IsForgotten())
	assert.False(t, ts.IsForgotten())
}

func TestDocument_InsertionAtNodeEnd(t *testing.T) {
	insertAfterName := func(t *testing.T, doc *Document) Wrapper {
		t.Helper()
		fn := mustFunction(t, doc, "run")
		nameNode, err := fn.NameNode()
		require.NoError(t, err)
		r := mustRange(t, nameNode)
		_, err = doc.InsertText(context.Background(), r.End, "All")
		require.NoError(t, err)
		return nameNode
	}

	t.Run("fuzzy matching follows the grown identifier", func(t *testing.T) {
		doc := openDoc(t, serverSource)
		nameNode := insertAfterName(t, doc)
		require.False(t, nameNode.IsForgotten())
		text, err := nameNode.Base().Text()
		require.NoError(t, err)
		assert.Equal(t, "runAll", text)
	})

	t.Run("exact matching forgets it", func(t *testing.T) {
		doc := openDoc(t, serverSource, WithFuzzyMatching(false))
		nameNode := insertAfterName(t, doc)
		assert.True(t, nameNode.IsForgotten())
	})
}

func TestDocument_Observe(t *testing.T) {
	doc := openDoc(t, serverSource)
	var got []Change
	cancel := doc.Observe(func(d *Document, c Change) {
		assert.Same(t, doc, d)
		got = append(got, c)
	})

	_, err := doc.InsertText(context.Background(), len(serverSource), "\nvar x int\n")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Generation)
	assert.Equal(t, []TextEdit{{Start: len(serverSource), End: len(serverSource), Text: "\nvar x int\n"}}, got[0].Edits)

	cancel()
	_, err = doc.InsertText(context.Background(), 0, "// header\n")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDocument_Preview(t *testing.T) {
	doc := openDoc(t, serverSource)
	out, err := doc.Preview(TextEdit{Start: 8, End: 14, Text: "client"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "package client\n"))
	assert.Equal(t, serverSource, doc.Text())
}

func TestDocument_Close(t *testing.T) {
	doc, err := Open(context.Background(), syntax.NewGoParser(), serverSource)
	require.NoError(t, err)
	fn := mustFunction(t, doc, "run")

	require.NoError(t, doc.Close())
	assert.True(t, fn.IsForgotten())
	assert.True(t, doc.Root().IsForgotten())
	assert.Equal(t, 0, doc.LiveHandles())

	_, err = doc.InsertText(context.Background(), 0, "x")
	assert.ErrorIs(t, err, ErrDocumentClosed)
	assert.NoError(t, doc.Close())
}

func TestDocument_Forget(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")
	params, err := fn.Parameters()
	require.NoError(t, err)

	require.NoError(t, doc.Forget(fn))
	assert.True(t, fn.IsForgotten())
	assert.True(t, params[0].IsForgotten())

	again := mustFunction(t, doc, "run")
	assert.NotSame(t, fn, again)
	assert.False(t, again.IsForgotten())

	other := openDoc(t, serverSource)
	assert.ErrorIs(t, other.Forget(again), ErrForeignHandle)
}

func TestDocument_ForgottenHandleRejectsEveryOperation(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")
	fn.Forget()

	ops := map[string]func() error{
		"Name":        func() error { _, err := fn.Name(); return err },
		"Rename":      func() error { return fn.Rename(ctx, "x") },
		"Parameters":  func() error { _, err := fn.Parameters(); return err },
		"ResultsText": func() error { _, err := fn.ResultsText(); return err },
		"Statements":  func() error { _, err := fn.Statements(); return err },
		"Doc":         func() error { _, err := fn.Doc(); return err },
		"IsExported":  func() error { _, err := fn.IsExported(); return err },
		"Range":       func() error { _, err := fn.Range(); return err },
		"Children":    func() error { _, err := fn.Children(); return err },
		"ToStructure": func() error { _, err := fn.ToStructure(); return err },
		"Set":         func() error { _, err := fn.Set(ctx, structure.Structure{}); return err },
		"Remove":      func() error { return fn.Remove(ctx) },
		"AsNamed":     func() error { _, err := AsNamed(fn); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrForgotten)
		})
	}
	assert.Equal(t, uint64(0), doc.Generation())
}

func TestDocument_ApplyTextEditsAsync(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- <-doc.ApplyTextEditsAsync(context.Background(), TextEdit{Start: 0, End: 0, Text: "// x\n"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(4), doc.Generation())
	assert.True(t, strings.HasPrefix(doc.Text(), strings.Repeat("// x\n", 4)))
	assert.False(t, fn.IsForgotten())
}

func TestDocument_ConcurrentEditsAndRenames(t *testing.T) {
	ctx := context.Background()
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	const n = 20
	inserts := make([]<-chan error, 0, n)
	renamed := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			name := "execute"
			if i%2 == 1 {
				name = "run"
			}
			if err := fn.Rename(ctx, name); err != nil {
				renamed <- err
				return
			}
		}
		renamed <- nil
	}()
	for i := 0; i < n; i++ {
		inserts = append(inserts, doc.ApplyTextEditsAsync(ctx, TextEdit{Start: 0, End: 0, Text: "// x\n"}))
	}

	for _, errc := range inserts {
		require.NoError(t, <-errc)
	}
	require.NoError(t, <-renamed)

	assert.Equal(t, uint64(2*n), doc.Generation())
	assert.Equal(t, strings.Repeat("// x\n", n)+serverSource, doc.Text())
	require.False(t, fn.IsForgotten())
	name, err := fn.Name()
	require.NoError(t, err)
	assert.Equal(t, "run", name)
}

func TestDocument_ReparseFailureLeavesDocumentUnchanged(t *testing.T) {
	doc := openDoc(t, serverSource)
	fn := mustFunction(t, doc, "run")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := doc.InsertText(ctx, 0, "// x\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, syntax.ErrParseCanceled))

	assert.Equal(t, serverSource, doc.Text())
	assert.False(t, fn.IsForgotten())
}
