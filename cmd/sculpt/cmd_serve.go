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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/sculpt/cmd/sculpt/config"
	"github.com/AleutianAI/sculpt/pkg/ux"
	"github.com/AleutianAI/sculpt/services/sculpt/api"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, root string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sculpt HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("root") {
				a.cfg.Server.Root = root
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&root, "root", "", "project root; files outside it are refused")
	return cmd
}

// server is the assembled HTTP service and the resources behind it.
type server struct {
	router  *gin.Engine
	manager *project.Manager
	closers []func(context.Context) error
}

// Close releases resources in reverse order of acquisition.
func (s *server) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newServer wires telemetry, the store, the document source, the document
// manager and the router from the configuration.
func (a *app) newServer(ctx context.Context) (_ *server, err error) {
	logger := a.logger.Slog()
	srv := &server{}
	defer func() {
		if err != nil {
			_ = srv.Close(context.Background())
		}
	}()

	shutdown, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	srv.closers = append(srv.closers, shutdown)

	metrics, err := telemetry.NewMetrics(otel.Meter("github.com/AleutianAI/sculpt/api"))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	if err := a.cfg.Store.Validate(); err != nil {
		return nil, err
	}
	mcfg := a.managerConfig()
	var db *store.DB
	if a.cfg.Store.NeedsDB() {
		dbcfg := a.cfg.Store.DB()
		dbcfg.Logger = logger
		db, err = store.Open(dbcfg)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		srv.closers = append(srv.closers, func(context.Context) error { return db.Close() })
	}
	var journal *store.Journal
	if a.cfg.Store.Journal {
		journal = store.NewJournal(db, logger)
		mcfg.Observers = append(mcfg.Observers, journal.Observer())
	}

	var (
		source project.Source
		disk   *project.DiskSource
	)
	switch a.cfg.Store.Source {
	case config.SourceBadger:
		source = store.NewSource(db)
	default:
		disk = &project.DiskSource{Root: a.cfg.Server.Root}
		source = *disk
	}
	manager, err := project.NewManager(source, syntax.NewGoParser(), mcfg)
	if err != nil {
		return nil, err
	}
	srv.manager = manager
	srv.closers = append(srv.closers, func(context.Context) error { return manager.CloseAll() })

	handlers := api.NewHandlers(manager, logger).WithMetrics(metrics)
	if journal != nil {
		handlers.WithJournal(journal)
	}
	switch {
	case a.cfg.Server.Watch && disk == nil:
		logger.Info("file watching is off for the badger source")
	case a.cfg.Server.Watch:
		watcher, err := project.NewWatcher(manager, *disk, func(ev project.WatchEvent) {
			if ev.Err != nil {
				logger.Warn("external change not applied",
					slog.String("path", ev.Path),
					slog.String("type", ev.Type.String()),
					slog.String("error", ev.Err.Error()))
			}
		}, project.WithDebounce(a.cfg.Server.WatchDebounce))
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, func(context.Context) error { return watcher.Close() })
		handlers.WithWatcher(watcher)
	}

	if a.cfg.Server.Mode != "" {
		gin.SetMode(a.cfg.Server.Mode)
	}
	srv.router = api.NewRouter(handlers, api.RouterConfig{
		ServiceName: a.cfg.Telemetry.ServiceName,
		Metrics:     metrics,
		Logger:      logger,
	})
	return srv, nil
}

func (a *app) serve(ctx context.Context) error {
	srv, err := a.newServer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Close(closeCtx); err != nil {
			a.logger.Error("shutdown incomplete", "error", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	printBanner(a.cfg.Server.Addr, a.cfg.Server.Root, a.cfg.Store)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting sculpt server", "address", a.cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down sculpt server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func printBanner(addr, root string, st config.StoreConfig) {
	if root == "" {
		root = "."
	}
	if st.Source == config.SourceBadger {
		root = st.Path
	}
	body := fmt.Sprintf("listen   %s\nsource   %s %s\njournal  %t\n\n%s curl http://localhost%s/v1/sculpt/health",
		addr, st.Source, root, st.Journal, ux.IconArrow.Render(), addr)
	ux.Box(os.Stderr, "sculpt", body)
}
