// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Run("persistent database requires a path", func(t *testing.T) {
		_, err := Open(Config{})
		require.Error(t, err)
	})

	t.Run("persistent database survives reopen", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Path = t.TempDir()

		db, err := Open(cfg)
		require.NoError(t, err)
		require.NoError(t, NewSource(db).SaveText(context.Background(), "a.go", "package a\n"))
		require.NoError(t, db.Close())

		db, err = Open(cfg)
		require.NoError(t, err)
		defer db.Close()
		text, err := NewSource(db).LoadText(context.Background(), "a.go")
		require.NoError(t, err)
		assert.Equal(t, "package a\n", text)
	})

	t.Run("invalid discard ratio", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Path = t.TempDir()
		cfg.GCDiscardRatio = 2
		_, err := Open(cfg)
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		db := openTestDB(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := db.WithTxn(ctx, func(*badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSource(t *testing.T) {
	ctx := context.Background()
	src := NewSource(openTestDB(t))

	_, err := src.LoadText(ctx, "missing.go")
	assert.ErrorIs(t, err, ErrFileNotFound)

	require.NoError(t, src.SaveText(ctx, "pkg/a.go", "package pkg\n"))
	require.NoError(t, src.SaveText(ctx, "pkg/./b.go", "package pkg\n\nvar B int\n"))
	require.NoError(t, src.SaveText(ctx, "main.go", "package main\n"))

	text, err := src.LoadText(ctx, "pkg/b.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n\nvar B int\n", text)

	paths, err := src.List(ctx, "pkg")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.go", "pkg/b.go"}, paths)

	all, err := src.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/a.go", "pkg/b.go"}, all)

	require.NoError(t, src.Remove(ctx, "pkg/a.go"))
	require.NoError(t, src.Remove(ctx, "pkg/a.go"))
	_, err = src.LoadText(ctx, "pkg/a.go")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	journal := NewJournal(db, nil)

	doc, err := morph.Open(ctx, syntax.NewGoParser(), "package p\n\nfunc f() {}\n",
		morph.WithID("doc-1"), morph.WithPath("p.go"))
	require.NoError(t, err)
	defer doc.Close()
	doc.Observe(journal.Observer())

	_, ok, err := journal.Latest(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	fn, err := doc.Root().FunctionOrErr("f")
	require.NoError(t, err)
	require.NoError(t, fn.Rename(ctx, "g"))
	require.NoError(t, fn.SetResultsText(ctx, "error"))

	// A no-op change is not journaled.
	_, err = doc.ApplyTextEdits(ctx)
	require.NoError(t, err)

	history, err := journal.History(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint64(1), history[0].Generation)
	assert.Equal(t, uint64(2), history[1].Generation)
	assert.Equal(t, "p.go", history[0].Path)
	assert.Equal(t, []morph.TextEdit{{Start: 16, End: 17, Text: "g"}}, history[0].Edits)
	assert.Equal(t, HashText(doc.Text()), history[1].TextHash)
	assert.False(t, history[1].RecordedAt.IsZero())

	latest, ok, err := journal.Latest(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest)

	other, err := journal.History(ctx, "doc-10")
	require.NoError(t, err)
	assert.Empty(t, other)

	n, err := journal.Truncate(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	history, err = journal.History(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestJournal_Corruption(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	journal := NewJournal(db, nil)

	good, err := encodeEntry(Entry{DocumentID: "d", Generation: 1, TextHash: HashText("x")})
	require.NoError(t, err)
	bad := append([]byte{}, good...)
	bad[len(bad)-1] ^= 0xFF

	tests := []struct {
		name  string
		value []byte
	}{
		{"checksum mismatch", bad},
		{"too short", []byte{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
				return txn.Set(journalKey("d", 1), tt.value)
			}))
			_, err := journal.History(ctx, "d")
			assert.ErrorIs(t, err, ErrJournalCorrupted)
		})
	}

	entry, err := decodeEntry(good)
	require.NoError(t, err)
	assert.Equal(t, "d", entry.DocumentID)
}
