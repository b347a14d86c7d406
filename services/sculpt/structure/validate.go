// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structure

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/sculpt/services/sculpt/syntax"
)

// ErrMismatch indicates a structure field is incompatible with its kind.
var ErrMismatch = errors.New("structure mismatch")

// MismatchError describes the first incompatible field found.
type MismatchError struct {
	// Kind is the kind of the offending structure.
	Kind syntax.Kind

	// Field is the structure field name, e.g. "receiver".
	Field string

	// Reason explains the incompatibility.
	Reason string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("structure mismatch: %s.%s: %s", e.Kind, e.Field, e.Reason)
}

// Unwrap returns ErrMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// structureValidate is the validator instance for structures.
// Initialized in init() with custom validators.
var structureValidate *validator.Validate

var identList = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*(,\s*[\p{L}_][\p{L}\p{N}_]*)*$`)

func init() {
	structureValidate = validator.New()
	structureValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return yamlName(f.Tag.Get("yaml"))
	})
	_ = structureValidate.RegisterValidation("goname", validateGoName)
	_ = structureValidate.RegisterValidation("typeparams", validateTypeParams)
}

// validateGoName accepts an identifier or a comma separated identifier
// list ("a, b") as used by grouped fields and parameters. An empty string
// means the name is absent (unnamed parameter, unaliased import).
func validateGoName(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || identList.MatchString(v)
}

// validateTypeParams accepts a bracketed type parameter list, or "" for a
// declaration without one.
func validateTypeParams(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || (strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]"))
}

func yamlName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// Normalize fills in omitted child kinds with the default kind for their
// list and returns the result. The input is not modified.
func Normalize(s Structure) Structure {
	out := s
	lists := []struct {
		field Field
		items *[]Structure
	}{
		{FieldImports, &out.Imports},
		{FieldDeclarations, &out.Declarations},
		{FieldSpecs, &out.Specs},
		{FieldParameters, &out.Parameters},
		{FieldStatements, &out.Statements},
		{FieldMembers, &out.Members},
		{FieldArguments, &out.Arguments},
	}
	for _, l := range lists {
		if *l.items == nil {
			continue
		}
		kinds := allowedChildren(out, l.field)
		items := make([]Structure, len(*l.items))
		for i, child := range *l.items {
			if child.Kind == syntax.KindUnknown && len(kinds) > 0 && child.Text == nil {
				child.Kind = kinds[0]
			}
			items[i] = Normalize(child)
		}
		*l.items = items
	}
	return out
}

// Validate checks a structure before any text is generated.
//
// # Description
//
// Rejects fields the kind does not accept, children of kinds their list
// does not accept, members on a type spec that is neither a struct nor an
// interface, and malformed field values (identifier syntax, empty import
// paths). Validation recurses into every child.
//
// # Outputs
//
//   - error: nil, or a *MismatchError (errors.Is(err, ErrMismatch)).
func Validate(s Structure) error {
	if err := validateShape(s); err != nil {
		return err
	}
	if err := structureValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &MismatchError{
				Kind:   s.Kind,
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("fails %q rule", fe.Tag()),
			}
		}
		return &MismatchError{Kind: s.Kind, Field: "", Reason: err.Error()}
	}
	return nil
}

func validateShape(s Structure) error {
	extra := s.Fields() &^ AllowedFields(s.Kind)
	if extra != 0 {
		return &MismatchError{
			Kind:   s.Kind,
			Field:  extra.Names()[0],
			Reason: "field not supported by this kind",
		}
	}
	if s.Kind == syntax.KindTypeSpec && s.Members != nil && memberKinds(Deref(s.Type)) == nil {
		return &MismatchError{
			Kind:   s.Kind,
			Field:  "members",
			Reason: fmt.Sprintf("type %q has no member list", Deref(s.Type)),
		}
	}
	lists := []struct {
		field Field
		items []Structure
	}{
		{FieldImports, s.Imports},
		{FieldDeclarations, s.Declarations},
		{FieldSpecs, s.Specs},
		{FieldParameters, s.Parameters},
		{FieldStatements, s.Statements},
		{FieldMembers, s.Members},
		{FieldArguments, s.Arguments},
	}
	for _, l := range lists {
		kinds := allowedChildren(s, l.field)
		for i, child := range l.items {
			if IsBlank(child) {
				continue
			}
			if kinds != nil && !slices.Contains(kinds, child.Kind) {
				return &MismatchError{
					Kind:   s.Kind,
					Field:  fmt.Sprintf("%s[%d]", l.field, i),
					Reason: fmt.Sprintf("kind %s not allowed here", child.Kind),
				}
			}
			if err := validateShape(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// allowedChildren returns the kinds a list field of s accepts, nil for
// unconstrained lists.
func allowedChildren(s Structure, field Field) []syntax.Kind {
	if s.Kind == syntax.KindTypeSpec && field == FieldMembers {
		return memberKinds(Deref(s.Type))
	}
	if byField, ok := childKinds[s.Kind]; ok {
		return byField[field]
	}
	return nil
}
