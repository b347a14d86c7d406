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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
)

func newRenameCmd(a *app) *cobra.Command {
	var flags outputFlags
	cmd := &cobra.Command{
		Use:   "rename <file> <decl> <new-name>",
		Short: "Rename a declaration",
		Long: `Rename a declaration in place. Only the declaring identifier changes;
references elsewhere are left alone.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			w, err := s.lookup(args[1])
			if err != nil {
				return err
			}
			named, err := morph.AsNamed(w)
			if err != nil {
				return err
			}
			if err := named.Rename(cmd.Context(), args[2]); err != nil {
				return err
			}
			return a.finish(cmd.Context(), cmd.OutOrStdout(), s, flags)
		},
	}
	flags.register(cmd)
	return cmd
}
