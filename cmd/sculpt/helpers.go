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
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sculpt/pkg/logging"
	"github.com/AleutianAI/sculpt/pkg/ux"
	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/patch"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// rootDecl names the source file itself wherever a declaration is expected.
const rootDecl = "."

// managerConfig applies the configured settings and matching mode.
func (a *app) managerConfig() project.ManagerConfig {
	cfg := project.DefaultManagerConfig()
	cfg.Settings = a.cfg.Settings
	cfg.Logger = a.logger.Slog()
	cfg.DocumentOptions = append(cfg.DocumentOptions, morph.WithFuzzyMatching(a.cfg.Matching.Fuzzy))
	return cfg
}

// session is one file opened for a single command.
type session struct {
	manager *project.Manager
	doc     *morph.Document
	before  string
}

func (a *app) open(ctx context.Context, path string) (*session, error) {
	m, err := project.NewManager(project.DiskSource{}, syntax.NewGoParser(), a.managerConfig())
	if err != nil {
		return nil, err
	}
	doc, err := m.Open(ctx, path)
	if err != nil {
		_ = m.CloseAll()
		return nil, err
	}
	if doc.Tree().HasError() {
		a.logger.Warn("file has syntax errors", "path", path)
	}
	return &session{manager: m, doc: doc, before: doc.Text()}, nil
}

func (s *session) close() {
	_ = s.manager.CloseAll()
}

// lookup resolves decl, where "." is the source file.
func (s *session) lookup(decl string) (morph.Wrapper, error) {
	if decl == rootDecl {
		return s.doc.Root(), nil
	}
	return project.Find(s.doc, decl)
}

// outputFlags are shared by the commands that change a file.
type outputFlags struct {
	write bool
	diff  bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write the result back to the file")
	cmd.Flags().BoolVarP(&f.diff, "diff", "d", false, "print a unified diff instead of the new text")
}

// finish reports the session's change. Without --write and --diff the
// new text is printed.
func (a *app) finish(ctx context.Context, out io.Writer, s *session, flags outputFlags) error {
	after := s.doc.Text()
	if flags.diff {
		d, err := patch.Between(s.doc.Path(), s.before, after)
		if err != nil {
			return err
		}
		if logging.IsTerminal(out) {
			d = ux.ColorizeDiff(d)
		}
		if _, err := io.WriteString(out, d); err != nil {
			return err
		}
	}
	if flags.write {
		if after == s.before {
			a.logger.Info("no changes", "path", s.doc.Path())
			return nil
		}
		if err := s.manager.Save(ctx, s.doc.Path()); err != nil {
			return fmt.Errorf("save %s: %w", s.doc.Path(), err)
		}
		a.logger.Info("file written",
			slog.String("path", s.doc.Path()),
			slog.Uint64("generation", s.doc.Generation()))
		return nil
	}
	if !flags.diff {
		_, err := io.WriteString(out, after)
		return err
	}
	return nil
}
