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
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownArch reports an architecture name outside the closed set.
var ErrUnknownArch = errors.New("unknown architecture")

// Architecture describes one member of the closed set of CPU architectures
// that specializations may target. Each architecture knows which GOARCH
// build targets it subsumes, which mv detection entry point generated
// resolvers must call, and which build configurations statically guarantee
// feature sets.
type Architecture struct {
	Name     string   // canonical name, e.g. "x86"
	GoArches []string // GOARCH values this architecture subsumes
	Detect   string   // mv package detection entry point, e.g. "DetectX86"
	Levels   []StaticLevel
}

// StaticLevel is one build configuration under which the toolchain
// guarantees a feature set without any runtime check. Tag is the build
// constraint satisfied by that configuration ("amd64.v3"), or "" for the
// unconditional baseline of GoArch. Features are cumulative: each level
// repeats everything guaranteed by weaker levels of the same GOARCH.
type StaticLevel struct {
	GoArch   string
	Tag      string
	Features []string
}

// Guarantees reports whether this level statically guarantees every feature
// in the given set.
func (l StaticLevel) Guarantees(features []string) bool {
	for _, f := range features {
		found := false
		for _, g := range l.Features {
			if f == g {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// architectures is the closed set. Declaration order here is irrelevant;
// per-function emission order follows the declaration order of the
// specialization list.
var architectures = []Architecture{
	{
		Name:     "x86",
		GoArches: []string{"amd64", "386"},
		Detect:   "DetectX86",
		Levels: []StaticLevel{
			{GoArch: "amd64", Tag: "", Features: []string{
				"sse", "sse2",
			}},
			{GoArch: "amd64", Tag: "amd64.v2", Features: []string{
				"sse", "sse2", "sse3", "ssse3", "sse4.1", "sse4.2", "popcnt",
			}},
			{GoArch: "amd64", Tag: "amd64.v3", Features: []string{
				"sse", "sse2", "sse3", "ssse3", "sse4.1", "sse4.2", "popcnt",
				"avx", "avx2", "bmi1", "bmi2", "f16c", "fma", "lzcnt", "movbe", "osxsave",
			}},
			{GoArch: "amd64", Tag: "amd64.v4", Features: []string{
				"sse", "sse2", "sse3", "ssse3", "sse4.1", "sse4.2", "popcnt",
				"avx", "avx2", "bmi1", "bmi2", "f16c", "fma", "lzcnt", "movbe", "osxsave",
				"avx512f", "avx512bw", "avx512cd", "avx512dq", "avx512vl",
			}},
		},
	},
	{
		Name:     "aarch64",
		GoArches: []string{"arm64"},
		Detect:   "DetectARM64",
		Levels: []StaticLevel{
			{GoArch: "arm64", Tag: "", Features: []string{"neon", "fp"}},
		},
	},
	{
		Name:     "arm",
		GoArches: []string{"arm"},
		Detect:   "DetectARM",
	},
	{
		Name:     "riscv",
		GoArches: []string{"riscv64"},
		Detect:   "DetectRISCV64",
	},
	{
		Name:     "loongarch",
		GoArches: []string{"loong64"},
		Detect:   "DetectLoong64",
	},
	{
		Name:     "mips32",
		GoArches: []string{"mips", "mipsle"},
		Detect:   "DetectMIPS32",
	},
	{
		Name:     "mips64",
		GoArches: []string{"mips64", "mips64le"},
		Detect:   "DetectMIPS64",
	},
	{
		Name:     "powerpc64",
		GoArches: []string{"ppc64", "ppc64le"},
		Detect:   "DetectPPC64",
	},
	{
		Name:     "s390x",
		GoArches: []string{"s390x"},
		Detect:   "DetectS390X",
	},
}

// archAliases maps accepted spellings onto canonical names.
var archAliases = map[string]string{
	"x86_64":  "x86",
	"amd64":   "x86",
	"arm64":   "aarch64",
	"mips":    "mips32",
	"riscv64": "riscv",
	"loong64": "loongarch",
	"ppc64":   "powerpc64",
	"powerpc": "powerpc64",
}

// LookupArch resolves an architecture name, case-insensitively and through
// aliases. Unknown names return an error naming the offending input.
func LookupArch(name string) (Architecture, error) {
	canonical := strings.ToLower(name)
	if alias, ok := archAliases[canonical]; ok {
		canonical = alias
	}
	for _, arch := range architectures {
		if arch.Name == canonical {
			return arch, nil
		}
	}
	return Architecture{}, fmt.Errorf("%s is not a supported architecture: %w", name, ErrUnknownArch)
}

// BuildExpr returns the build constraint expression matching every GOARCH
// of this architecture, e.g. "amd64 || 386".
func (a Architecture) BuildExpr() string {
	return strings.Join(a.GoArches, " || ")
}

// LevelsFor returns the static levels applying to one GOARCH, weakest first.
func (a Architecture) LevelsFor(goarch string) []StaticLevel {
	var levels []StaticLevel
	for _, l := range a.Levels {
		if l.GoArch == goarch {
			levels = append(levels, l)
		}
	}
	return levels
}

// Generated identifier templates. fn is the outer function name with its
// first rune lowered, e.g. "dot" for BaseDot.

// CellIdent names the per-architecture cache cell.
func (a Architecture) CellIdent(fn string) string {
	return fn + "_cell_" + a.Name
}

// ResolveIdent names the one-time resolver.
func (a Architecture) ResolveIdent(fn string) string {
	return fn + "_resolve_" + a.Name
}

// DispatchIdent names the per-architecture dispatch function.
func (a Architecture) DispatchIdent(fn string) string {
	return fn + "_dispatch_" + a.Name
}
