// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package morph

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/sculpt/services/sculpt/structure"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Sentinel errors. Every typed error below unwraps to exactly one of them,
// so callers can branch with errors.Is.
var (
	// ErrForgotten indicates an operation on a handle that was forgotten.
	ErrForgotten = errors.New("handle forgotten")

	// ErrStructureMismatch indicates a structure field incompatible with
	// the target kind. It is the same value as structure.ErrMismatch.
	ErrStructureMismatch = structure.ErrMismatch

	// ErrNotFound indicates a lookup found nothing.
	ErrNotFound = errors.New("not found")

	// ErrRange indicates an edit range outside the document or overlapping
	// another edit of the same batch.
	ErrRange = errors.New("edit range invalid")

	// ErrUnsupportedKind indicates an operation needs a capability trait
	// the node's kind does not have.
	ErrUnsupportedKind = errors.New("unsupported kind")

	// ErrStaleNode indicates a concrete node from another tree generation
	// was handed to the cache.
	ErrStaleNode = errors.New("node from another tree generation")

	// ErrDocumentClosed indicates an edit on a closed document.
	ErrDocumentClosed = errors.New("document closed")

	// ErrForeignHandle indicates a handle owned by another document.
	ErrForeignHandle = errors.New("handle belongs to another document")
)

// ForgottenHandleError is returned by every operation on a forgotten handle.
type ForgottenHandleError struct {
	Kind syntax.Kind
	Op   string
}

func (e *ForgottenHandleError) Error() string {
	return fmt.Sprintf("%s: %s handle was forgotten", e.Op, e.Kind)
}

func (e *ForgottenHandleError) Unwrap() error { return ErrForgotten }

// StructureMismatchError reports a structure rejected before any text was
// generated.
type StructureMismatchError struct {
	Kind   syntax.Kind
	Field  string
	Reason string
}

func (e *StructureMismatchError) Error() string {
	return fmt.Sprintf("structure mismatch on %s.%s: %s", e.Kind, e.Field, e.Reason)
}

func (e *StructureMismatchError) Unwrap() error { return ErrStructureMismatch }

// NotFoundError reports a lookup that found nothing. Every lookup returning
// it has a sibling that returns a nil result instead.
type NotFoundError struct {
	What string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.What, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RangeError reports an invalid edit range.
type RangeError struct {
	Start  int
	End    int
	Length int
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("edit [%d,%d) on text of length %d: %s", e.Start, e.End, e.Length, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// UnsupportedKindError reports an operation the node's kind cannot perform.
type UnsupportedKindError struct {
	Kind   syntax.Kind
	Trait  Trait
	Op     string
	Detail string
}

func (e *UnsupportedKindError) Error() string {
	msg := fmt.Sprintf("%s: %s does not support %s", e.Op, e.Kind, e.Trait)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedKind }

// mismatch converts a structure package error into the morph taxonomy.
func mismatch(err error) error {
	var me *structure.MismatchError
	if errors.As(err, &me) {
		return &StructureMismatchError{Kind: me.Kind, Field: me.Field, Reason: me.Reason}
	}
	return err
}

// IsForgotten reports whether err was caused by a forgotten handle.
func IsForgotten(err error) bool { return errors.Is(err, ErrForgotten) }

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
