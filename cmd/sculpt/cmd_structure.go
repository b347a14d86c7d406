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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/structure"
)

func newStructureCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "structure <file> [decl]",
		Short: "Print the structure of a declaration",
		Long: `Print the structure of a declaration as YAML or JSON.

decl is a function, type, const or var name, or Recv.Method for a method.
Without decl, or with ".", the whole file is printed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decl := rootDecl
			if len(args) == 2 {
				decl = args[1]
			}
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			w, err := s.lookup(decl)
			if err != nil {
				return err
			}
			st, err := morph.ToStructure(w)
			if err != nil {
				return err
			}
			return encodeStructure(cmd.OutOrStdout(), st, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func encodeStructure(out io.Writer, st structure.Structure, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func newApplyCmd(a *app) *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "apply <file> <decl> <structure.yaml>",
		Short: "Merge a partial structure into a declaration",
		Long: `Merge a partial structure into a declaration and rewrite it.

Fields absent from the structure keep their current value. The structure
file may be YAML or JSON; "-" reads it from standard input. decl "."
targets the whole file.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := readStructure(cmd.InOrStdin(), args[2])
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			w, err := s.lookup(args[1])
			if err != nil {
				return err
			}
			if _, err := s.doc.Set(cmd.Context(), w, partial); err != nil {
				return err
			}
			return a.finish(cmd.Context(), cmd.OutOrStdout(), s, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// readStructure decodes a structure file. YAML is a superset of JSON, so
// one decoder serves both.
func readStructure(stdin io.Reader, path string) (structure.Structure, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return structure.Structure{}, fmt.Errorf("read structure: %w", err)
	}
	var st structure.Structure
	if err := yaml.Unmarshal(data, &st); err != nil {
		return structure.Structure{}, fmt.Errorf("parse structure %s: %w", path, err)
	}
	return st, nil
}
