// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"errors"
	"fmt"
)

// Sentinel errors for front-end failures.
//
// These can be checked using errors.Is() without inspecting messages.
var (
	// ErrInvalidContent indicates the text is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the text exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrParseCanceled indicates the context was done before parsing finished.
	ErrParseCanceled = errors.New("parse canceled")

	// ErrParseFailed indicates the grammar produced no tree at all.
	ErrParseFailed = errors.New("parse failed")
)

// ParseError describes a parse that could not produce a tree.
//
// # Description
//
// ParseError carries the byte offset the failure relates to (or -1 when
// it is not position specific) and wraps the underlying cause so that
// errors.Is(err, ErrInvalidContent) and friends keep working.
type ParseError struct {
	// Offset is the byte offset of the failure, -1 if unknown.
	Offset int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		if e.Cause != nil {
			return fmt.Sprintf("parse error at byte %d: %s: %v", e.Offset, e.Message, e.Cause)
		}
		return fmt.Sprintf("parse error at byte %d: %s", e.Offset, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// newParseError creates a ParseError wrapping cause.
func newParseError(offset int, message string, cause error) *ParseError {
	return &ParseError{Offset: offset, Message: message, Cause: cause}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
