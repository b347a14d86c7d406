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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sculpt/cmd/sculpt/config"
	"github.com/AleutianAI/sculpt/pkg/logging"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg    config.SculptConfig
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "sculpt",
		Short: "Structural editing of Go source files",
		Long: `sculpt reads Go declarations as structures and rewrites them in place.
Edits go through handles that keep pointing at the same declaration while
the surrounding text changes.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger == nil {
				return nil
			}
			return a.logger.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("SCULPT_CONFIG"),
		"config file (default ~/.sculpt/sculpt.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newOutlineCmd(a),
		newStructureCmd(a),
		newApplyCmd(a),
		newRenameCmd(a),
		newServeCmd(a),
		newImportCmd(a),
	)
	return rootCmd
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(a.configPath); err != nil {
		return err
	}
	a.cfg = config.Global

	levelName := a.cfg.Logging.Level
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(a.cfg.Logging.Format),
		LogDir:  a.cfg.Logging.Dir,
		Service: "sculpt",
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())
	return nil
}
