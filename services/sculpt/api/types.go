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
	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/project"
	"github.com/AleutianAI/sculpt/services/sculpt/store"
	"github.com/AleutianAI/sculpt/services/sculpt/structure"
)

// ServiceVersion is the API version reported by the health endpoint.
const ServiceVersion = "0.1.0"

// OpenRequest is the request for POST /v1/sculpt/documents.
type OpenRequest struct {
	// Path is the document path, relative to the project source.
	Path string `json:"path" binding:"required"`
}

// DocumentResponse describes an open document.
type DocumentResponse struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Generation uint64 `json:"generation"`
	Length     int    `json:"length"`

	// HasSyntaxErrors reports whether the last parse had to recover.
	HasSyntaxErrors bool `json:"has_syntax_errors"`
}

// DocumentListResponse is the response for GET /v1/sculpt/documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// TextResponse is the response for GET /v1/sculpt/documents/text.
type TextResponse struct {
	Path       string `json:"path"`
	Generation uint64 `json:"generation"`
	Text       string `json:"text"`
}

// OutlineResponse is the response for GET /v1/sculpt/documents/outline.
type OutlineResponse struct {
	Path       string           `json:"path"`
	Generation uint64           `json:"generation"`
	Symbols    []project.Symbol `json:"symbols"`
}

// StructureResponse is the response for GET /v1/sculpt/documents/structure.
type StructureResponse struct {
	Path      string              `json:"path"`
	Decl      string              `json:"decl,omitempty"`
	Structure structure.Structure `json:"structure"`
}

// SetStructureRequest is the request for PUT /v1/sculpt/documents/structure.
type SetStructureRequest struct {
	Path string `json:"path" binding:"required"`

	// Decl names the declaration, "Type.Method" for methods. Empty targets
	// the whole source file.
	Decl string `json:"decl"`

	// Structure is merged onto the declaration's current structure.
	Structure structure.Structure `json:"structure"`
}

// EditsRequest is the request for POST /v1/sculpt/documents/edits.
type EditsRequest struct {
	Path  string           `json:"path" binding:"required"`
	Edits []morph.TextEdit `json:"edits" binding:"required"`

	// DryRun returns the diff without applying the edits.
	DryRun bool `json:"dry_run"`
}

// RenameRequest is the request for POST /v1/sculpt/documents/rename.
type RenameRequest struct {
	Path string `json:"path" binding:"required"`
	Decl string `json:"decl" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// SaveRequest is the request for POST /v1/sculpt/documents/save.
type SaveRequest struct {
	// Path of the document to save. Empty saves every open document.
	Path string `json:"path"`
}

// ChangeResponse reports the outcome of a mutation.
type ChangeResponse struct {
	Path       string           `json:"path"`
	Generation uint64           `json:"generation"`
	Edits      []morph.TextEdit `json:"edits,omitempty"`
	Diff       string           `json:"diff"`
	Applied    bool             `json:"applied"`
	Remapped   int              `json:"remapped"`
	Forgotten  int              `json:"forgotten"`
}

// ChangeEvent is one message of the GET /v1/sculpt/documents/changes feed.
type ChangeEvent struct {
	// Type is "subscribed" for the first message and "change" after.
	Type       string           `json:"type"`
	Path       string           `json:"path"`
	DocumentID string           `json:"document_id"`
	Generation uint64           `json:"generation"`
	Edits      []morph.TextEdit `json:"edits,omitempty"`
	Remapped   int              `json:"remapped,omitempty"`
	Forgotten  int              `json:"forgotten,omitempty"`

	// Dropped counts changes skipped before this one because the client
	// was reading too slowly.
	Dropped int `json:"dropped,omitempty"`
}

// HistoryResponse is the response for GET /v1/sculpt/documents/history.
type HistoryResponse struct {
	Path       string        `json:"path"`
	DocumentID string        `json:"document_id"`
	Entries    []store.Entry `json:"entries"`
}

// HealthResponse is the response for GET /v1/sculpt/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int    `json:"documents"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the machine-readable error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
