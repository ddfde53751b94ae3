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
	"go/token"
	"strconv"
	"strings"
	"unicode"
)

// Specialization is one parsed entry of a //mvgen:specialize directive:
// an architecture, the feature set the CPU must support for this entry to be
// selected, and either a generated or a manually supplied implementation.
type Specialization struct {
	Arch     Architecture
	Features []string // unique, in declaration order
	IsStatic bool     // eligible for build-time short-circuiting
	IsManual bool     // implementation supplied by the user, not generated
	Ident    string   // variant identifier (generated, or the manual name)
}

// ArchGroup collects the specializations of one architecture, preserving
// their declaration order. That order is the selection priority: the first
// declared specialization whose features are all present wins.
type ArchGroup struct {
	Arch  Architecture
	Specs []*Specialization
}

// Features returns the union of all feature names in this group, ordered by
// first appearance. The resolver detects each exactly once.
func (g *ArchGroup) Features() []string {
	var union []string
	seen := make(map[string]bool)
	for _, spec := range g.Specs {
		for _, f := range spec.Features {
			if !seen[f] {
				seen[f] = true
				union = append(union, f)
			}
		}
	}
	return union
}

// ParseSpecializations parses the directive text at base according to the
// grammar
//
//	["static"] arch "=" "[" feature {"," feature} "]" ["=>" "unsafe" ident]
//
// with entries separated by commas. It groups the result by architecture,
// preserving per-architecture declaration order, and marks the plan as
// needing trust when any manual override appears.
func ParseSpecializations(fset *token.FileSet, base token.Pos, text string, plan *DispatchPlan) ([]ArchGroup, error) {
	lex := &specLexer{fset: fset, base: base, src: text}
	used := make(map[string]int)

	var groups []ArchGroup
	byArch := make(map[string]int)

	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}

		isStatic := false
		if tok.kind == tokIdent && tok.text == "static" {
			isStatic = true
			if tok, err = lex.next(); err != nil {
				return nil, err
			}
		}
		if tok.kind != tokIdent {
			return nil, lex.errorf(tok, "expected an architecture but %s", tok.describe())
		}
		arch, err := LookupArch(tok.text)
		if err != nil {
			return nil, lex.errorf(tok, "%s", err)
		}

		if err := lex.expectPunct("="); err != nil {
			return nil, err
		}
		if err := lex.expectPunct("["); err != nil {
			return nil, err
		}

		features, err := lex.parseFeatures()
		if err != nil {
			return nil, err
		}

		spec := &Specialization{
			Arch:     arch,
			Features: features,
			IsStatic: isStatic,
		}

		// A manual override replaces the generated variant body; its
		// behavioral equivalence to the reference is the caller's unchecked
		// responsibility.
		tok, err = lex.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.kind == tokPunct && tok.text == "=>":
			kw, err := lex.next()
			if err != nil {
				return nil, err
			}
			if kw.kind != tokIdent || kw.text != "unsafe" {
				return nil, lex.errorf(kw, "manual implementations must be prefixed with unsafe")
			}
			name, err := lex.next()
			if err != nil {
				return nil, err
			}
			if name.kind != tokIdent {
				return nil, lex.errorf(name, "expected an identifier but %s", name.describe())
			}
			spec.IsManual = true
			spec.Ident = name.text

			tok, err = lex.next()
			if err != nil {
				return nil, err
			}
			fallthrough
		default:
			if tok.kind != tokEOF && !(tok.kind == tokPunct && tok.text == ",") {
				return nil, lex.errorf(tok, "expected , but %s", tok.describe())
			}
			lex.push(tok)
		}

		if !spec.IsManual {
			spec.Ident = autoIdent(plan.Symbol, arch, features, used)
		} else {
			plan.NeedsTrust = true
		}

		idx, ok := byArch[arch.Name]
		if !ok {
			idx = len(groups)
			byArch[arch.Name] = idx
			groups = append(groups, ArchGroup{Arch: arch})
		}
		groups[idx].Specs = append(groups[idx].Specs, spec)

		// Consume the separator, if any.
		tok, err = lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
	}

	if len(groups) == 0 {
		return nil, lex.errorf(specToken{off: 0}, "expected at least one specialization but found nothing")
	}
	return groups, nil
}

// autoIdent derives a variant identifier from the outer symbol, the
// architecture and the sanitized feature names, e.g. dot_x86_avx2.
// Collisions within one function get a numeric suffix; no uniqueness beyond
// the function's scope is attempted.
func autoIdent(symbol string, arch Architecture, features []string, used map[string]int) string {
	var b strings.Builder
	b.WriteString(symbol)
	b.WriteByte('_')
	b.WriteString(arch.Name)
	for _, f := range features {
		b.WriteByte('_')
		for _, r := range f {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				b.WriteRune(r)
			}
		}
	}
	name := b.String()
	used[name]++
	if n := used[name]; n > 1 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	return name
}

// Directive lexer. Tokens carry their byte offset into the directive text so
// diagnostics can be pinned to the exact source location.

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokPunct
)

type specToken struct {
	kind tokKind
	text string // identifier, decoded string value, or punctuation
	off  int
}

func (t specToken) describe() string {
	switch t.kind {
	case tokEOF:
		return "found nothing"
	case tokString:
		return fmt.Sprintf("got %q", t.text)
	default:
		return fmt.Sprintf("got %s", t.text)
	}
}

type specLexer struct {
	fset   *token.FileSet
	base   token.Pos
	src    string
	pos    int
	pushed *specToken
}

func (l *specLexer) errorf(tok specToken, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if l.fset != nil && l.base.IsValid() {
		return fmt.Errorf("%s: %s", l.fset.Position(l.base+token.Pos(tok.off)), msg)
	}
	return fmt.Errorf("%s", msg)
}

func (l *specLexer) push(tok specToken) {
	if tok.kind != tokEOF {
		l.pushed = &tok
	}
}

func (l *specLexer) next() (specToken, error) {
	if l.pushed != nil {
		tok := *l.pushed
		l.pushed = nil
		return tok, nil
	}

	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return specToken{kind: tokEOF, off: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return specToken{kind: tokIdent, text: l.src[start:l.pos], off: start}, nil

	case c == '"':
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\\' {
				l.pos++
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return specToken{}, l.errorf(specToken{off: start}, "unterminated feature string literal")
		}
		l.pos++
		value, err := strconv.Unquote(l.src[start:l.pos])
		if err != nil {
			return specToken{}, l.errorf(specToken{off: start}, "malformed feature string literal %s", l.src[start:l.pos])
		}
		return specToken{kind: tokString, text: value, off: start}, nil

	case c == '=':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '>' {
			l.pos += 2
			return specToken{kind: tokPunct, text: "=>", off: start}, nil
		}
		l.pos++
		return specToken{kind: tokPunct, text: "=", off: start}, nil

	case c == ',' || c == '[' || c == ']':
		l.pos++
		return specToken{kind: tokPunct, text: string(c), off: start}, nil
	}

	return specToken{}, l.errorf(specToken{off: start}, "unexpected character %q", c)
}

func (l *specLexer) expectPunct(want string) error {
	tok, err := l.next()
	if err != nil {
		return err
	}
	if tok.kind != tokPunct || tok.text != want {
		return l.errorf(tok, "expected %s but %s", want, tok.describe())
	}
	return nil
}

// parseFeatures consumes the body of a feature list after the opening
// bracket. Duplicate names within one list collapse to the first occurrence.
func (l *specLexer) parseFeatures() ([]string, error) {
	var features []string
	seen := make(map[string]bool)

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPunct && tok.text == "]" {
			if len(features) == 0 {
				return nil, l.errorf(tok, "expected features but found nothing")
			}
			return features, nil
		}
		if tok.kind != tokString {
			return nil, l.errorf(tok, "expected a feature string literal but %s", tok.describe())
		}
		if !seen[tok.text] {
			seen[tok.text] = true
			features = append(features, tok.text)
		}

		tok, err = l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPunct && tok.text == "]" {
			if len(features) == 0 {
				return nil, l.errorf(tok, "expected features but found nothing")
			}
			return features, nil
		}
		if !(tok.kind == tokPunct && tok.text == ",") {
			return nil, l.errorf(tok, "expected , or ] but %s", tok.describe())
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}
