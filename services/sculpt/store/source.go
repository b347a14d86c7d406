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
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrFileNotFound indicates the virtual file system has no entry for a path.
var ErrFileNotFound = errors.New("file not found")

const filePrefix = "file/"

// Source is a virtual file system on a store database.
//
// Paths are cleaned with path.Clean, so "a/./b.go" and "a/b.go" name the
// same entry. Source satisfies project.Source.
//
// Thread Safety: Safe for concurrent use.
type Source struct {
	db *DB
}

// NewSource returns a Source on db.
func NewSource(db *DB) *Source {
	return &Source{db: db}
}

func fileKey(p string) []byte {
	return []byte(filePrefix + path.Clean(p))
}

// LoadText returns the text stored at p.
func (s *Source) LoadText(ctx context.Context, p string) (string, error) {
	var text string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(p))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("load %s: %w", p, ErrFileNotFound)
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	return text, err
}

// SaveText stores text at p, replacing any previous text.
func (s *Source) SaveText(ctx context.Context, p, text string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(fileKey(p), []byte(text)); err != nil {
			return fmt.Errorf("save %s: %w", p, err)
		}
		return nil
	})
}

// Remove deletes p. Removing a missing path is not an error.
func (s *Source) Remove(ctx context.Context, p string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(fileKey(p))
	})
}

// List returns the stored paths under dir in key order. An empty dir
// lists everything.
func (s *Source) List(ctx context.Context, dir string) ([]string, error) {
	prefix := filePrefix
	if dir != "" {
		prefix += strings.TrimSuffix(path.Clean(dir), "/") + "/"
	}
	var out []string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			out = append(out, strings.TrimPrefix(string(it.Item().Key()), filePrefix))
		}
		return nil
	})
	return out, err
}
