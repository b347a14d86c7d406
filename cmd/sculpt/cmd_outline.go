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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sculpt/pkg/ux"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

func newOutlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file>",
		Short: "List the declarations of a Go file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			symbols, err := project.Outline(s.doc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ux.Styles.Heading.Render(s.doc.Path()))
			printSymbols(out, symbols, 0)
			return nil
		},
	}
}

func printSymbols(out io.Writer, symbols []project.Symbol, depth int) {
	for _, sym := range symbols {
		name := sym.Name
		if sym.Receiver != "" {
			name = sym.Receiver + "." + name
		}
		if sym.Exported {
			name = ux.Styles.Highlight.Render(name)
		}
		fmt.Fprintf(out, "%s %s%s %s\n",
			ux.Styles.LineNumber.Render(fmt.Sprint(sym.Line)),
			strings.Repeat("  ", depth),
			ux.Styles.Kind.Render(kindLabel(sym.Kind)),
			name)
		printSymbols(out, sym.Children, depth+1)
	}
}

func kindLabel(k syntax.Kind) string {
	switch k {
	case syntax.KindFunctionDecl:
		return "func"
	case syntax.KindMethodDecl, syntax.KindMethodElem:
		return "method"
	case syntax.KindTypeSpec:
		return "type"
	case syntax.KindTypeAlias:
		return "alias"
	case syntax.KindConstSpec:
		return "const"
	case syntax.KindVarSpec:
		return "var"
	case syntax.KindFieldDecl:
		return "field"
	case syntax.KindTypeElem:
		return "embed"
	}
	return k.String()
}
