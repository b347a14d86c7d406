// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package project

import (
	"strings"

	"github.com/AleutianAI/sculpt/services/sculpt/morph"
	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// Symbol is one entry of a document outline.
//
// Symbol consumes only what the handle layer exposes to semantic
// collaborators: the handle itself, its kind and its range. Handle stays
// valid across edits for as long as the declaration survives them.
type Symbol struct {
	Kind     syntax.Kind   `json:"kind" yaml:"kind"`
	Name     string        `json:"name" yaml:"name"`
	Receiver string        `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	Range    morph.Range   `json:"range" yaml:"range"`
	Line     int           `json:"line" yaml:"line"`
	Exported bool          `json:"exported" yaml:"exported"`
	Children []Symbol      `json:"children,omitempty" yaml:"children,omitempty"`
	Handle   morph.Wrapper `json:"-" yaml:"-"`
}

// Outline lists the top level declarations of doc. Grouped type, const and
// var declarations contribute one symbol per spec; struct and interface
// types list their members as children.
func Outline(doc *morph.Document) ([]Symbol, error) {
	decls, err := doc.Root().Declarations()
	if err != nil {
		return nil, err
	}
	text := doc.Text()

	var out []Symbol
	for _, d := range decls {
		switch w := d.(type) {
		case *morph.FunctionDecl, *morph.MethodDecl:
			sym, err := symbolOf(w, text)
			if err != nil {
				return nil, err
			}
			out = append(out, sym)
		case morph.WithSpecs:
			specs, err := w.Specs()
			if err != nil {
				return nil, err
			}
			for _, s := range specs {
				sym, err := symbolOf(s, text)
				if err != nil {
					return nil, err
				}
				out = append(out, sym)
			}
		}
	}
	return out, nil
}

func symbolOf(w morph.Wrapper, text string) (Symbol, error) {
	r, err := w.Base().Range()
	if err != nil {
		return Symbol{}, err
	}
	sym := Symbol{
		Kind:   w.Kind(),
		Range:  r,
		Line:   strings.Count(text[:r.Start], "\n") + 1,
		Handle: w,
	}
	if named, ok := w.(morph.Named); ok {
		if sym.Name, err = named.Name(); err != nil {
			return Symbol{}, err
		}
	}
	if sym.Name == "" {
		// Embedded fields are known by their type.
		if typed, ok := w.(morph.Typed); ok {
			if sym.Name, err = typed.TypeText(); err != nil {
				return Symbol{}, err
			}
		}
	}
	if exp, ok := w.(morph.Exportable); ok && sym.Name != "" {
		if sym.Exported, err = exp.IsExported(); err != nil {
			return Symbol{}, err
		}
	}
	if m, ok := w.(*morph.MethodDecl); ok {
		if sym.Receiver, err = m.ReceiverType(); err != nil {
			return Symbol{}, err
		}
	}
	if ts, ok := w.(*morph.TypeSpec); ok {
		if sym.Children, err = memberSymbols(ts, text); err != nil {
			return Symbol{}, err
		}
	}
	return sym, nil
}

func memberSymbols(ts *morph.TypeSpec, text string) ([]Symbol, error) {
	isStruct, err := ts.IsStruct()
	if err != nil {
		return nil, err
	}
	isInterface, err := ts.IsInterface()
	if err != nil {
		return nil, err
	}
	if !isStruct && !isInterface {
		return nil, nil
	}
	members, err := ts.Members()
	if err != nil {
		return nil, err
	}
	out := make([]Symbol, 0, len(members))
	for _, m := range members {
		sym, err := symbolOf(m, text)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// Find resolves a top level declaration by name. "Type.Method" names a
// method; a plain name is tried as a function, a type and then a const or
// var. The result is a *morph.NotFoundError when nothing matches.
func Find(doc *morph.Document, name string) (morph.Wrapper, error) {
	root := doc.Root()
	if recv, method, ok := strings.Cut(name, "."); ok {
		return root.MethodOrErr(recv, method)
	}
	fn, err := root.Function(name)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn, nil
	}
	ts, err := root.TypeSpec(name)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		return ts, nil
	}
	vs, err := root.Value(name)
	if err != nil {
		return nil, err
	}
	if vs != nil {
		return vs, nil
	}
	return nil, &morph.NotFoundError{What: "declaration", Name: name}
}
