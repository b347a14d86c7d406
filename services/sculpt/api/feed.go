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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
)

const (
	eventSubscribed = "subscribed"
	eventChange     = "change"

	// feedBuffer is the number of changes queued per subscriber before
	// changes are dropped.
	feedBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendJSON(logger *slog.Logger, ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		logger.Warn("Failed to write WebSocket JSON", slog.String("error", err.Error()))
	}
	return err
}

// HandleChanges handles GET /v1/sculpt/documents/changes?path=.
//
// Description:
//
//	Upgrades to a WebSocket and streams a ChangeEvent for every edit batch
//	applied to the document. The first message has type "subscribed" and
//	carries the generation the feed starts from. Messages from the client
//	are ignored; the feed ends when the client disconnects.
//
// Response:
//
//	101 Switching Protocols: ChangeEvent stream
//	404 Not Found: Document not open
func (h *Handlers) HandleChanges(c *gin.Context) {
	logger := h.requestLogger(c, "HandleChanges")
	path := c.Query("path")
	if path == "" {
		badRequest(c, logger, errMissingPath)
		return
	}

	events := make(chan ChangeEvent, feedBuffer)
	var (
		first  ChangeEvent
		cancel func()
	)
	// Subscribing under the document lock keeps the starting generation
	// and the first change event contiguous.
	err := h.manager.Exclusive(path, func(doc *morph.Document) error {
		dropped := 0
		cancel = doc.Observe(func(doc *morph.Document, change morph.Change) {
			ev := ChangeEvent{
				Type:       eventChange,
				Path:       doc.Path(),
				DocumentID: doc.ID(),
				Generation: change.Generation,
				Edits:      change.Edits,
				Remapped:   change.Remapped,
				Forgotten:  change.Forgotten,
				Dropped:    dropped,
			}
			select {
			case events <- ev:
				dropped = 0
			default:
				dropped++
				logger.Warn("Change feed full, dropping change",
					slog.String("path", doc.Path()),
					slog.Uint64("generation", change.Generation))
			}
		})
		first = ChangeEvent{
			Type:       eventSubscribed,
			Path:       doc.Path(),
			DocumentID: doc.ID(),
			Generation: doc.Generation(),
		}
		return nil
	})
	if err != nil {
		h.abortWithError(c, logger, "Subscribe failed", err)
		return
	}
	defer cancel()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	logger.Info("Change feed open", slog.String("path", first.Path), slog.Uint64("generation", first.Generation))
	defer logger.Info("Change feed closed", slog.String("path", first.Path))

	if err := sendJSON(logger, ws, first); err != nil {
		return
	}

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			if err := sendJSON(logger, ws, ev); err != nil {
				return
			}
		case <-disconnected:
			return
		}
	}
}
