// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/patch"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

// Handlers contains the HTTP handlers for the sculpt API.
//
// Thread Safety: Safe for concurrent use. Every request that reads or
// edits a document runs under project.Manager.Exclusive, so requests on
// one document are applied in turn and never see a half-applied edit.
type Handlers struct {
	manager *project.Manager
	journal *store.Journal
	watcher *project.Watcher
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewHandlers creates handlers over manager. A nil logger uses
// slog.Default().
func NewHandlers(manager *project.Manager, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{manager: manager, logger: logger}
}

// WithJournal enables the history endpoint.
func (h *Handlers) WithJournal(journal *store.Journal) *Handlers {
	h.journal = journal
	return h
}

// WithWatcher reloads open documents when their files change on disk.
// Documents are added to the watcher on open and removed on close.
func (h *Handlers) WithWatcher(watcher *project.Watcher) *Handlers {
	h.watcher = watcher
	return h
}

// WithMetrics records service level metrics.
func (h *Handlers) WithMetrics(metrics *telemetry.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	logger := h.logger.With(
		slog.String("request_id", requestID(c)),
		slog.String("handler", handler),
	)
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

func describe(doc *morph.Document) DocumentResponse {
	return DocumentResponse{
		ID:              doc.ID(),
		Path:            doc.Path(),
		Generation:      doc.Generation(),
		Length:          len(doc.Text()),
		HasSyntaxErrors: doc.Tree().HasError(),
	}
}

// HandleHealth handles GET /v1/sculpt/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   ServiceVersion,
		Documents: len(h.manager.Documents()),
	})
}

// HandleListDocuments handles GET /v1/sculpt/documents.
func (h *Handlers) HandleListDocuments(c *gin.Context) {
	docs := h.manager.Documents()
	resp := DocumentListResponse{Documents: make([]DocumentResponse, 0, len(docs))}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, describe(doc))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleOpen handles POST /v1/sculpt/documents.
//
// Description:
//
//	Opens the document at the given path, or returns it when already open.
//
// Request Body:
//
//	OpenRequest
//
// Response:
//
//	200 OK: DocumentResponse
//	400 Bad Request: Missing path or path outside the project
//	404 Not Found: No such file
func (h *Handlers) HandleOpen(c *gin.Context) {
	logger := h.requestLogger(c, "HandleOpen")

	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	wasOpen := h.manager.Get(req.Path) != nil
	doc, err := h.manager.Open(c.Request.Context(), req.Path)
	if err != nil {
		h.abortWithError(c, logger, "Open failed", err)
		return
	}
	if !wasOpen && h.metrics != nil {
		h.metrics.DocumentsOpen.Add(c.Request.Context(), 1)
	}
	if h.watcher != nil {
		if err := h.watcher.Add(req.Path); err != nil {
			logger.Warn("Watch failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		}
	}

	logger.Info("Document open",
		slog.String("path", doc.Path()),
		slog.String("document_id", doc.ID()))
	c.JSON(http.StatusOK, describe(doc))
}

// HandleClose handles DELETE /v1/sculpt/documents?path=.
func (h *Handlers) HandleClose(c *gin.Context) {
	logger := h.requestLogger(c, "HandleClose")

	path := c.Query("path")
	if path == "" {
		badRequest(c, logger, errMissingPath)
		return
	}
	wasOpen := h.manager.Get(path) != nil
	if err := h.manager.Close(path); err != nil {
		h.abortWithError(c, logger, "Close failed", err)
		return
	}
	if wasOpen && h.metrics != nil {
		h.metrics.DocumentsOpen.Add(c.Request.Context(), -1)
	}
	if h.watcher != nil {
		_ = h.watcher.Remove(path)
	}
	c.Status(http.StatusNoContent)
}

// exclusive runs fn on the open document for path under the manager's
// per-document lock and answers 200 with the value fn returns. The
// response is written after the lock is released.
func (h *Handlers) exclusive(c *gin.Context, logger *slog.Logger, path, msg string, fn func(doc *morph.Document) (any, error)) {
	if path == "" {
		badRequest(c, logger, errMissingPath)
		return
	}
	var body any
	err := h.manager.Exclusive(path, func(doc *morph.Document) error {
		var err error
		body, err = fn(doc)
		return err
	})
	if err != nil {
		h.abortWithError(c, logger, msg, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// HandleText handles GET /v1/sculpt/documents/text?path=.
func (h *Handlers) HandleText(c *gin.Context) {
	logger := h.requestLogger(c, "HandleText")
	h.exclusive(c, logger, c.Query("path"), "Text failed", func(doc *morph.Document) (any, error) {
		return TextResponse{
			Path:       doc.Path(),
			Generation: doc.Generation(),
			Text:       doc.Text(),
		}, nil
	})
}

// HandleOutline handles GET /v1/sculpt/documents/outline?path=.
func (h *Handlers) HandleOutline(c *gin.Context) {
	logger := h.requestLogger(c, "HandleOutline")
	h.exclusive(c, logger, c.Query("path"), "Outline failed", func(doc *morph.Document) (any, error) {
		symbols, err := project.Outline(doc)
		if err != nil {
			return nil, err
		}
		return OutlineResponse{
			Path:       doc.Path(),
			Generation: doc.Generation(),
			Symbols:    symbols,
		}, nil
	})
}

// target resolves decl in doc; an empty decl is the source file itself.
func target(doc *morph.Document, decl string) (morph.Wrapper, error) {
	if decl == "" {
		return doc.Root(), nil
	}
	return project.Find(doc, decl)
}

// HandleGetStructure handles GET /v1/sculpt/documents/structure?path=&decl=.
//
// Response:
//
//	200 OK: StructureResponse
//	404 Not Found: Document not open or declaration not found
func (h *Handlers) HandleGetStructure(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetStructure")
	decl := c.Query("decl")
	h.exclusive(c, logger, c.Query("path"), "Structure failed", func(doc *morph.Document) (any, error) {
		w, err := target(doc, decl)
		if err != nil {
			return nil, err
		}
		s, err := morph.ToStructure(w)
		if err != nil {
			return nil, err
		}
		return StructureResponse{Path: doc.Path(), Decl: decl, Structure: s}, nil
	})
}

// HandleSetStructure handles PUT /v1/sculpt/documents/structure.
//
// Description:
//
//	Merges the given partial structure onto the declaration and rewrites
//	it. A structure that does not validate issues no edit.
//
// Request Body:
//
//	SetStructureRequest
//
// Response:
//
//	200 OK: ChangeResponse
//	422 Unprocessable Entity: Structure mismatch or unsupported kind
func (h *Handlers) HandleSetStructure(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSetStructure")

	var req SetStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	h.mutate(c, logger, req.Path, func(ctx context.Context, doc *morph.Document) error {
		w, err := target(doc, req.Decl)
		if err != nil {
			return err
		}
		_, err = doc.Set(ctx, w, req.Structure)
		return err
	})
}

// HandleRename handles POST /v1/sculpt/documents/rename.
func (h *Handlers) HandleRename(c *gin.Context) {
	logger := h.requestLogger(c, "HandleRename")

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	h.mutate(c, logger, req.Path, func(ctx context.Context, doc *morph.Document) error {
		w, err := project.Find(doc, req.Decl)
		if err != nil {
			return err
		}
		named, err := morph.AsNamed(w)
		if err != nil {
			return err
		}
		return named.Rename(ctx, req.Name)
	})
}

// mutate runs fn under the document lock and answers with the diff
// between the text before and after it.
func (h *Handlers) mutate(c *gin.Context, logger *slog.Logger, path string, fn func(context.Context, *morph.Document) error) {
	h.exclusive(c, logger, path, "Edit failed", func(doc *morph.Document) (any, error) {
		before, generation := doc.Text(), doc.Generation()
		if err := fn(c.Request.Context(), doc); err != nil {
			return nil, err
		}
		after := doc.Text()
		diff, err := patch.Between(doc.Path(), before, after)
		if err != nil {
			return nil, err
		}
		logger.Info("Document edited",
			slog.String("path", doc.Path()),
			slog.Uint64("from_generation", generation),
			slog.Uint64("generation", doc.Generation()))
		return ChangeResponse{
			Path:       doc.Path(),
			Generation: doc.Generation(),
			Diff:       diff,
			Applied:    before != after,
		}, nil
	})
}

// HandleEdits handles POST /v1/sculpt/documents/edits.
//
// Description:
//
//	Applies raw text edits as one batch. Handles on nodes the edits
//	overlap are forgotten; all others survive with shifted ranges. With
//	dry_run the edits are validated and diffed but not applied.
//
// Request Body:
//
//	EditsRequest
//
// Response:
//
//	200 OK: ChangeResponse
//	400 Bad Request: Edits out of bounds, inverted or overlapping
func (h *Handlers) HandleEdits(c *gin.Context) {
	logger := h.requestLogger(c, "HandleEdits")

	var req EditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	h.exclusive(c, logger, req.Path, "Edits failed", func(doc *morph.Document) (any, error) {
		before := doc.Text()
		if req.DryRun {
			fd, err := patch.Unified(doc.Path(), before, req.Edits)
			if err != nil {
				return nil, err
			}
			return ChangeResponse{
				Path:       doc.Path(),
				Generation: doc.Generation(),
				Edits:      req.Edits,
				Diff:       fd,
			}, nil
		}

		change, err := doc.ApplyTextEdits(c.Request.Context(), req.Edits...)
		if err != nil {
			return nil, err
		}
		diff, err := patch.Unified(doc.Path(), before, change.Edits)
		if err != nil {
			return nil, err
		}
		return ChangeResponse{
			Path:       doc.Path(),
			Generation: change.Generation,
			Edits:      change.Edits,
			Diff:       diff,
			Applied:    len(change.Edits) > 0,
			Remapped:   change.Remapped,
			Forgotten:  change.Forgotten,
		}, nil
	})
}

// HandleSave handles POST /v1/sculpt/documents/save.
func (h *Handlers) HandleSave(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSave")

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.Path == "" {
		err = h.manager.SaveAll(ctx)
	} else {
		err = h.manager.Save(ctx, req.Path)
	}
	if h.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.SavesTotal.Add(ctx, 1, saveAttrs(status))
	}
	if err != nil {
		h.abortWithError(c, logger, "Save failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHistory handles GET /v1/sculpt/documents/history?path=.
//
// Response:
//
//	200 OK: HistoryResponse
//	501 Not Implemented: No journal configured
func (h *Handlers) HandleHistory(c *gin.Context) {
	logger := h.requestLogger(c, "HandleHistory")
	if h.journal == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error: "edit journal not configured",
			Code:  "NOT_CONFIGURED",
		})
		return
	}
	h.exclusive(c, logger, c.Query("path"), "History failed", func(doc *morph.Document) (any, error) {
		entries, err := h.journal.History(c.Request.Context(), doc.ID())
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []store.Entry{}
		}
		return HistoryResponse{
			Path:       doc.Path(),
			DocumentID: doc.ID(),
			Entries:    entries,
		}, nil
	})
}
