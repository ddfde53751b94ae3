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
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

const (
	directiveSpecialize = "//mvgen:specialize"
	directivePure       = "//mvgen:pure"
)

// AnnotatedFunc is one reference function carrying a specialize directive,
// fully analyzed and ready for synthesis.
type AnnotatedFunc struct {
	Decl   *ast.FuncDecl
	Plan   *DispatchPlan
	Groups []ArchGroup
}

// ParsedFile is the result of scanning one input file for directives.
type ParsedFile struct {
	Path    string
	Package string
	Fset    *token.FileSet
	Funcs   []*AnnotatedFunc
}

// ParseInput scans a Go source file for //mvgen: directives and analyzes
// every annotated reference function. Any malformed directive, or a directive
// attached to a declaration that cannot be specialized, fails the whole file.
func ParseInput(path string) (*ParsedFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return scanFile(fset, path, file)
}

// ParseInputSource is ParseInput over in-memory source.
func ParseInputSource(path, src string) (*ParsedFile, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return scanFile(fset, path, file)
}

func scanFile(fset *token.FileSet, path string, file *ast.File) (*ParsedFile, error) {
	result := &ParsedFile{
		Path:    path,
		Package: file.Name.Name,
		Fset:    fset,
	}

	// Every directive comment must end up attached to a function it
	// annotates; a stray directive is a silent no-op waiting to happen, so
	// it is an error instead.
	consumed := make(map[*ast.Comment]bool)

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}

		var specialize *ast.Comment
		pure := false
		for _, c := range fn.Doc.List {
			switch {
			case isDirective(c.Text, directiveSpecialize):
				if specialize != nil {
					return nil, fmt.Errorf("%s: duplicate specialize directive for %s (first at %s)",
						fset.Position(c.Pos()), fn.Name.Name, fset.Position(specialize.Pos()))
				}
				specialize = c
				consumed[c] = true
			case isDirective(c.Text, directivePure):
				if pure {
					return nil, fmt.Errorf("%s: duplicate pure directive for %s",
						fset.Position(c.Pos()), fn.Name.Name)
				}
				pure = true
				consumed[c] = true
			}
		}

		if specialize == nil {
			if pure {
				return nil, fmt.Errorf("%s: %s is marked pure but has no specialize directive",
					fset.Position(fn.Pos()), fn.Name.Name)
			}
			continue
		}

		plan, err := AnalyzeSignature(fset, fn, pure)
		if err != nil {
			return nil, err
		}

		payload := specialize.Text[len(directiveSpecialize):]
		base := specialize.Pos() + token.Pos(len(directiveSpecialize))
		groups, err := ParseSpecializations(fset, base, payload, plan)
		if err != nil {
			return nil, err
		}

		result.Funcs = append(result.Funcs, &AnnotatedFunc{
			Decl:   fn,
			Plan:   plan,
			Groups: groups,
		})
	}

	for _, group := range file.Comments {
		for _, c := range group.List {
			if consumed[c] {
				continue
			}
			if isDirective(c.Text, directiveSpecialize) || isDirective(c.Text, directivePure) {
				return nil, fmt.Errorf("%s: directive is not attached to a function declaration (it must be part of the function's doc comment)",
					fset.Position(c.Pos()))
			}
		}
	}

	return result, nil
}

// isDirective reports whether a comment line is the given directive. The
// marker must be followed by whitespace or end of line, so that
// //mvgen:purely is not mistaken for //mvgen:pure.
func isDirective(text, marker string) bool {
	rest, ok := strings.CutPrefix(text, marker)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}
