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

// lookup is the result of a navigation query. Each public query comes in
// two flavours built on it: one returning nil for a miss, one returning a
// *NotFoundError. A forgotten handle is an error in both.
type lookup[T any] struct {
	value T
	ok    bool
	err   error
	what  string
	name  string
}

func found[T any](v T) lookup[T] { return lookup[T]{value: v, ok: true} }

func missing[T any](what, name string) lookup[T] {
	return lookup[T]{what: what, name: name}
}

func failed[T any](err error) lookup[T] { return lookup[T]{err: err} }

func (l lookup[T]) orNil() (T, error) {
	var zero T
	if l.err != nil || !l.ok {
		return zero, l.err
	}
	return l.value, nil
}

func (l lookup[T]) orErr() (T, error) {
	var zero T
	if l.err != nil {
		return zero, l.err
	}
	if !l.ok {
		return zero, &NotFoundError{What: l.what, Name: l.name}
	}
	return l.value, nil
}
