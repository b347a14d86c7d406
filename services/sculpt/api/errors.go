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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
)

var errMissingPath = errors.New("path query parameter is required")

// errorStatus maps an error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, project.ErrNotOpen):
		return http.StatusNotFound, "NOT_OPEN"
	case errors.Is(err, store.ErrFileNotFound):
		return http.StatusNotFound, "FILE_NOT_FOUND"
	case errors.Is(err, morph.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, project.ErrOutsideRoot):
		return http.StatusBadRequest, "PATH_TRAVERSAL"
	case errors.Is(err, morph.ErrRange):
		return http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, morph.ErrStructureMismatch):
		return http.StatusUnprocessableEntity, "STRUCTURE_MISMATCH"
	case errors.Is(err, morph.ErrUnsupportedKind):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_KIND"
	case errors.Is(err, morph.ErrForgotten), errors.Is(err, morph.ErrStaleNode):
		return http.StatusConflict, "HANDLE_FORGOTTEN"
	case errors.Is(err, morph.ErrDocumentClosed), errors.Is(err, project.ErrManagerClosed):
		return http.StatusConflict, "CLOSED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// abortWithError writes err as an ErrorResponse. Server errors are logged
// at error level, client errors at warn.
func (h *Handlers) abortWithError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.ErrorsTotal.Add(c.Request.Context(), 1)
		}
	} else {
		logger.Warn(msg, slog.String("error", err.Error()), slog.String("code", code))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

func badRequest(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Invalid request", slog.String("error", err.Error()))
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Code:    "INVALID_REQUEST",
		Details: err.Error(),
	})
}
