// Copyright 2025 go-multiversion Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy is how a dispatcher remembers the selected implementation.
type Strategy int

const (
	// PointerDispatch caches the chosen implementation as a directly
	// callable function value. The default whenever the signature can be
	// named as a concrete function type.
	PointerDispatch Strategy = iota

	// IndexDispatch caches the chosen implementation as a slot number in a
	// jump table. Used for generic reference functions, whose callee cannot
	// be named as a concrete function type.
	IndexDispatch
)

// DispatchPlan is everything the synthesizer needs to know about one
// reference function's signature: how callers see it, how variants implement
// it, and which dispatch strategy is legal for it.
type DispatchPlan struct {
	RefName   string // reference function, e.g. "BaseDot"
	OuterName string // dispatching function, e.g. "Dot"
	Symbol    string // symbol prefix for generated identifiers, e.g. "dot"

	Pure       bool // compile-time-evaluable; engages the purego bridge
	Strategy   Strategy
	NeedsTrust bool // set by the specialization parser when manual overrides appear
	Variadic   bool // last parameter is variadic; forwarding calls expand it

	TypeParams string   // "[T Number]" or ""
	Params     string   // "a, b []float32"
	ParamNames []string // "a", "b"
	Results    string   // "float32", "(int, error)", or ""
	FuncType   string   // "func([]float32, []float32) float32" (pointer strategy only)
}

// HasResults reports whether calls to the function must be returned.
func (p *DispatchPlan) HasResults() bool {
	return p.Results != ""
}

// Args renders the plan's parameters as forwarded call arguments, expanding
// a variadic final parameter.
func (p *DispatchPlan) Args() string {
	args := strings.Join(p.ParamNames, ", ")
	if p.Variadic {
		args += "..."
	}
	return args
}

// Call renders an invocation of the named implementation with the plan's
// parameters forwarded.
func (p *DispatchPlan) Call(ident string) string {
	return ident + "(" + p.Args() + ")"
}

// Signature renders the parameter list and results of the outer and variant
// functions (identical in Go: there is no deferred-result wrapping).
func (p *DispatchPlan) Signature() string {
	sig := "(" + p.Params + ")"
	if p.Results != "" {
		sig += " " + p.Results
	}
	return sig
}

// AnalyzeSignature inspects an annotated reference function and derives its
// DispatchPlan, or a descriptive error pinned to the offending declaration.
func AnalyzeSignature(fset *token.FileSet, decl *ast.FuncDecl, pure bool) (*DispatchPlan, error) {
	if decl.Recv != nil {
		return nil, fmt.Errorf("%s: cannot specialize methods: the generated variants are free functions and cannot capture a receiver",
			fset.Position(decl.Recv.Pos()))
	}
	if decl.Body == nil {
		return nil, fmt.Errorf("%s: reference function %s has no body; a portable reference implementation is mandatory",
			fset.Position(decl.Pos()), decl.Name.Name)
	}

	refName := decl.Name.Name
	outerName, ok := strings.CutPrefix(refName, "Base")
	if !ok {
		if outerName, ok = strings.CutPrefix(refName, "base"); ok {
			outerName = lowerFirst(outerName)
		}
	}
	if !ok || outerName == "" {
		return nil, fmt.Errorf("%s: reference function %s must use the Base name prefix (BaseDot generates Dot)",
			fset.Position(decl.Name.Pos()), refName)
	}

	plan := &DispatchPlan{
		RefName:   refName,
		OuterName: outerName,
		Symbol:    lowerFirst(outerName),
		Pure:      pure,
		Strategy:  PointerDispatch,
	}

	// A generic function value cannot be stored in a concretely typed cell,
	// so any type parameter forces the jump table.
	if decl.Type.TypeParams != nil && len(decl.Type.TypeParams.List) > 0 {
		plan.Strategy = IndexDispatch
		plan.TypeParams = "[" + renderFieldList(fset, decl.Type.TypeParams) + "]"
	}

	var params []string
	var paramTypes []string
	if decl.Type.Params != nil {
		for _, field := range decl.Type.Params.List {
			typ := renderExpr(fset, field.Type)
			if _, ok := field.Type.(*ast.Ellipsis); ok {
				plan.Variadic = true
			}
			if len(field.Names) == 0 {
				return nil, fmt.Errorf("%s: parameters of a specialized function must be named so variants can forward them",
					fset.Position(field.Pos()))
			}
			var names []string
			for _, name := range field.Names {
				if name.Name == "_" {
					return nil, fmt.Errorf("%s: parameters of a specialized function must be named so variants can forward them",
						fset.Position(name.Pos()))
				}
				names = append(names, name.Name)
				plan.ParamNames = append(plan.ParamNames, name.Name)
				paramTypes = append(paramTypes, typ)
			}
			params = append(params, strings.Join(names, ", ")+" "+typ)
		}
	}
	plan.Params = strings.Join(params, ", ")

	if decl.Type.Results != nil && len(decl.Type.Results.List) > 0 {
		var results []string
		for _, field := range decl.Type.Results.List {
			typ := renderExpr(fset, field.Type)
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			// Result names are dropped; only the types matter to callers.
			for i := 0; i < n; i++ {
				results = append(results, typ)
			}
		}
		if len(results) == 1 {
			plan.Results = results[0]
		} else {
			plan.Results = "(" + strings.Join(results, ", ") + ")"
		}
	}

	if plan.Strategy == PointerDispatch {
		plan.FuncType = "func(" + strings.Join(paramTypes, ", ") + ")"
		if plan.Results != "" {
			plan.FuncType += " " + plan.Results
		}
	}

	return plan, nil
}

// renderExpr prints an AST expression as source text.
func renderExpr(fset *token.FileSet, expr ast.Expr) string {
	var buf bytes.Buffer
	printer.Fprint(&buf, fset, expr)
	return buf.String()
}

// renderFieldList prints a field list ("T Number, U any") as source text.
func renderFieldList(fset *token.FileSet, fields *ast.FieldList) string {
	var parts []string
	for _, field := range fields.List {
		var names []string
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
		parts = append(parts, strings.Join(names, ", ")+" "+renderExpr(fset, field.Type))
	}
	return strings.Join(parts, ", ")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
