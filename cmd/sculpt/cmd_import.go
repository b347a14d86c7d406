// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sculpt/pkg/ux"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
)

func newImportCmd(a *app) *cobra.Command {
	var root string
	var list bool
	cmd := &cobra.Command{
		Use:   "import [file]...",
		Short: "Copy files into the store for the badger document source",
		Long: `import copies files into the store database, where "sculpt serve" finds
them when store.source is badger. Files are stored under their path
relative to --root. With --list the stored paths are printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return a.listStored(cmd.Context(), cmd.OutOrStdout())
			}
			if len(args) == 0 {
				return errors.New("no files to import")
			}
			return a.importFiles(cmd.Context(), cmd.OutOrStdout(), root, args)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "directory the stored paths are relative to (default working directory)")
	cmd.Flags().BoolVar(&list, "list", false, "list the stored paths")
	return cmd
}

func (a *app) openStore() (*store.DB, error) {
	cfg := a.cfg.Store.DB()
	cfg.Logger = a.logger.Slog()
	db, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return db, nil
}

// importFiles copies each file under root into the store, keyed by its
// slash separated path relative to root.
func (a *app) importFiles(ctx context.Context, out io.Writer, root string, paths []string) error {
	disk := project.DiskSource{Root: root}
	base, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	dst := store.NewSource(db)

	for _, p := range paths {
		abs, err := disk.Resolve(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%s: %w", p, project.ErrOutsideRoot)
		}
		key := filepath.ToSlash(rel)
		text, err := disk.LoadText(ctx, abs)
		if err != nil {
			return err
		}
		if err := dst.SaveText(ctx, key, text); err != nil {
			return fmt.Errorf("import %s: %w", p, err)
		}
		ux.Status(out, ux.IconSuccess, "%s (%d bytes)", key, len(text))
	}
	return nil
}

func (a *app) listStored(ctx context.Context, out io.Writer) error {
	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	paths, err := store.NewSource(db).List(ctx, "")
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
