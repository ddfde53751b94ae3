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
	"go/format"
	"strings"

	"golang.org/x/tools/imports"
)

const mvImportPath = "github.com/ajroetker/go-multiversion/mv"

// GeneratedFile is one emitted source file, not yet written to disk.
// Generation is all-or-nothing: files are only written once every annotated
// function of an input file synthesized without error.
type GeneratedFile struct {
	Name string
	Data []byte
}

// staticFile is one build configuration under which dispatch collapses to a
// direct call, with no cache cell and no detection.
type staticFile struct {
	expr   string // build expression, e.g. "amd64 && amd64.v2 && !amd64.v3"
	slug   string // filename fragment, e.g. "amd64v2"
	callee string // identifier called directly by the outer function
}

// Synthesize turns one analyzed function and its parsed specializations into
// the full set of dispatch source files:
//
//   - one dynamic file per declared architecture, holding the variant
//     bodies, the cache cell, the resolver, the dispatch function and the
//     outer routing for that architecture;
//   - zero or more statically short-circuited files, for build
//     configurations that guarantee a specialization's features;
//   - a routing file for build targets matching no declared architecture;
//   - for pure functions, an untagged file with the safe generic wrapper.
func Synthesize(pkg string, plan *DispatchPlan, groups []ArchGroup) ([]GeneratedFile, error) {
	prefix := strings.ToLower(plan.OuterName) + "_dispatch"
	var files []GeneratedFile

	emit := func(name string, body func(*bytes.Buffer)) error {
		var buf bytes.Buffer
		body(&buf)
		data, err := finish(name, buf.Bytes())
		if err != nil {
			return fmt.Errorf("synthesize %s for %s: %w", name, plan.RefName, err)
		}
		files = append(files, GeneratedFile{Name: name, Data: data})
		return nil
	}

	if plan.Pure {
		name := prefix + ".gen.go"
		if err := emit(name, func(buf *bytes.Buffer) {
			writeHeader(buf, pkg, "")
			writePureWrapper(buf, plan)
		}); err != nil {
			return nil, err
		}
	}

	for i := range groups {
		group := &groups[i]
		statics, dynExpr := planStatics(plan, group)

		if dynExpr != "" {
			name := prefix + "_" + group.Arch.Name + ".gen.go"
			if err := emit(name, func(buf *bytes.Buffer) {
				writeHeader(buf, pkg, gateExpr(dynExpr, plan.Pure))
				writeDynamicSection(buf, plan, group)
			}); err != nil {
				return nil, err
			}
		}

		for _, sf := range statics {
			name := prefix + "_" + group.Arch.Name + "_" + sf.slug + ".gen.go"
			callee := sf.callee
			expr := sf.expr
			if err := emit(name, func(buf *bytes.Buffer) {
				writeHeader(buf, pkg, gateExpr(expr, plan.Pure))
				writeStaticOuter(buf, plan, callee)
			}); err != nil {
				return nil, err
			}
		}
	}

	name := prefix + "_other.gen.go"
	if err := emit(name, func(buf *bytes.Buffer) {
		writeHeader(buf, pkg, otherExpr(groups, plan.Pure))
		writeGenericOuter(buf, plan)
	}); err != nil {
		return nil, err
	}

	return files, nil
}

// planStatics evaluates the architecture's static feature levels against the
// section's specializations, producing the statically short-circuited files
// and the build expression left for the dynamic path ("" when every build
// target of the architecture short-circuits).
//
// Evaluation order per level follows the dispatch function's own order:
// first the whole section's feature union (the generic body is optimal when
// every feature it could use is guaranteed), then each static-flagged
// specialization in declaration order.
func planStatics(plan *DispatchPlan, group *ArchGroup) ([]staticFile, string) {
	union := group.Features()

	choose := func(level StaticLevel) string {
		if level.Guarantees(union) {
			return plan.RefName
		}
		for _, spec := range group.Specs {
			if !spec.IsStatic || !level.Guarantees(spec.Features) {
				continue
			}
			if spec.IsManual {
				return spec.Ident
			}
			// A generated variant is the reference body; under guaranteed
			// features the direct call is identical.
			return plan.RefName
		}
		return ""
	}

	var statics []staticFile
	var dynTerms []string

	for _, goarch := range group.Arch.GoArches {
		levels := group.Arch.LevelsFor(goarch)

		callees := make([]string, len(levels))
		first := -1
		for i, level := range levels {
			callees[i] = choose(level)
			if first < 0 && callees[i] != "" {
				first = i
			}
		}

		if first < 0 {
			dynTerms = append(dynTerms, goarch)
			continue
		}

		if tag := levels[first].Tag; tag != "" {
			dynTerms = append(dynTerms, fmt.Sprintf("(%s && !%s)", goarch, tag))
		}

		// Coalesce consecutive levels with the same choice; a weaker tag
		// subsumes every stronger one, so each run is gated on its weakest
		// tag and excludes the start of the next run.
		for i := first; i < len(levels); {
			j := i
			for j+1 < len(levels) && callees[j+1] == callees[i] {
				j++
			}

			expr := goarch
			slug := goarch
			if tag := levels[i].Tag; tag != "" {
				expr += " && " + tag
				slug = strings.ReplaceAll(tag, ".", "v")
				slug = strings.ReplaceAll(slug, "vv", "v")
			}
			if j+1 < len(levels) {
				expr += " && !" + levels[j+1].Tag
			}

			statics = append(statics, staticFile{expr: expr, slug: slug, callee: callees[i]})
			i = j + 1
		}
	}

	return statics, strings.Join(dynTerms, " || ")
}

// gateExpr appends the purego exclusion for pure functions, whose fallback
// path must be selectable entirely at build time.
func gateExpr(expr string, pure bool) string {
	if !pure {
		return expr
	}
	if strings.Contains(expr, "||") {
		return "(" + expr + ") && !purego"
	}
	return expr + " && !purego"
}

// otherExpr is the build expression of the routing file for targets matching
// no declared architecture.
func otherExpr(groups []ArchGroup, pure bool) string {
	var terms []string
	for i := range groups {
		arch := groups[i].Arch
		if len(arch.GoArches) == 1 {
			terms = append(terms, "!"+arch.GoArches[0])
		} else {
			terms = append(terms, "!("+arch.BuildExpr()+")")
		}
	}
	expr := strings.Join(terms, " && ")
	if pure {
		expr = "(" + expr + ") || purego"
	}
	return expr
}

func writeHeader(buf *bytes.Buffer, pkg, buildExpr string) {
	fmt.Fprintf(buf, "// Code generated by mvgen. DO NOT EDIT.\n")
	if buildExpr != "" {
		fmt.Fprintf(buf, "\n//go:build %s\n", buildExpr)
	}
	fmt.Fprintf(buf, "\npackage %s\n\n", pkg)
}

// writeDynamicSection emits one architecture's full dispatch machinery.
func writeDynamicSection(buf *bytes.Buffer, plan *DispatchPlan, group *ArchGroup) {
	fmt.Fprintf(buf, "import %q\n\n", mvImportPath)

	arch := group.Arch
	cell := arch.CellIdent(plan.Symbol)
	resolve := arch.ResolveIdent(plan.Symbol)
	dispatch := arch.DispatchIdent(plan.Symbol)

	ret := ""
	if plan.HasResults() {
		ret = "return "
	}

	// Variant bodies: one per generated specialization, each implementing
	// the reference body. Manual specializations resolve to the externally
	// supplied identifier and get no body.
	for _, spec := range group.Specs {
		if spec.IsManual {
			continue
		}
		fmt.Fprintf(buf, "func %s%s%s {\n\t%s%s\n}\n\n",
			spec.Ident, plan.TypeParams, plan.Signature(), ret, plan.Call(plan.RefName))
	}

	if plan.Strategy == PointerDispatch {
		writePointerDispatch(buf, plan, group, cell, resolve, dispatch, ret)
	} else {
		writeIndexDispatch(buf, plan, group, cell, resolve, dispatch, ret)
	}

	writeOuterDoc(buf, plan, group)
	fmt.Fprintf(buf, "func %s%s%s {\n\t%s%s\n}\n",
		plan.OuterName, plan.TypeParams, plan.Signature(), ret, plan.Call(dispatch))
}

// writePointerDispatch emits the function-value cell, its resolver, and the
// dispatch function for concretely typed reference functions.
func writePointerDispatch(buf *bytes.Buffer, plan *DispatchPlan, group *ArchGroup, cell, resolve, dispatch, ret string) {
	fnType := plan.Symbol + "Fn"

	fmt.Fprintf(buf, "type %s %s\n\n", fnType, plan.FuncType)
	fmt.Fprintf(buf, "var %s mv.Cell[%s]\n\n", cell, fnType)

	vars := featureVars(group.Features())

	fmt.Fprintf(buf, "func %s%s {\n", resolve, plan.Signature())
	fmt.Fprintf(buf, "\tvar fn %s = %s\n", fnType, plan.RefName)
	fmt.Fprintf(buf, "\tif !mv.Disabled() {\n")
	writeDetection(buf, group, vars, "\t\t")
	fmt.Fprintf(buf, "\t\tswitch {\n")
	for _, spec := range group.Specs {
		fmt.Fprintf(buf, "\t\tcase %s:\n\t\t\tfn = %s\n", featureCond(spec, vars), spec.Ident)
	}
	fmt.Fprintf(buf, "\t\t}\n")
	fmt.Fprintf(buf, "\t}\n")
	fmt.Fprintf(buf, "\t%s.Store(fn)\n", cell)
	fmt.Fprintf(buf, "\t%sfn(%s)\n", ret, plan.Args())
	fmt.Fprintf(buf, "}\n\n")

	fmt.Fprintf(buf, "func %s%s {\n", dispatch, plan.Signature())
	fmt.Fprintf(buf, "\tif fn, ok := %s.Get(); ok {\n", cell)
	if plan.HasResults() {
		fmt.Fprintf(buf, "\t\treturn fn(%s)\n", plan.Args())
	} else {
		fmt.Fprintf(buf, "\t\tfn(%s)\n\t\treturn\n", plan.Args())
	}
	fmt.Fprintf(buf, "\t}\n")
	fmt.Fprintf(buf, "\t%s%s\n", ret, plan.Call(resolve))
	fmt.Fprintf(buf, "}\n\n")
}

// writeIndexDispatch emits the slot cell, its resolver, and the switching
// dispatch function for generic reference functions, whose implementations
// cannot be stored as a concretely typed function value.
func writeIndexDispatch(buf *bytes.Buffer, plan *DispatchPlan, group *ArchGroup, cell, resolve, dispatch, ret string) {
	fmt.Fprintf(buf, "var %s mv.Index\n\n", cell)

	// The resolver only computes the slot; the dispatch function performs
	// the call, so the freshly written cell is never re-read.
	vars := featureVars(group.Features())

	fmt.Fprintf(buf, "func %s() uint32 {\n", resolve)
	fmt.Fprintf(buf, "\tslot := uint32(1)\n")
	fmt.Fprintf(buf, "\tif !mv.Disabled() {\n")
	writeDetection(buf, group, vars, "\t\t")
	fmt.Fprintf(buf, "\t\tswitch {\n")
	for i, spec := range group.Specs {
		fmt.Fprintf(buf, "\t\tcase %s:\n\t\t\tslot = %d\n", featureCond(spec, vars), i+2)
	}
	fmt.Fprintf(buf, "\t\t}\n")
	fmt.Fprintf(buf, "\t}\n")
	fmt.Fprintf(buf, "\t%s.Store(slot)\n", cell)
	fmt.Fprintf(buf, "\treturn slot\n")
	fmt.Fprintf(buf, "}\n\n")

	fmt.Fprintf(buf, "func %s%s%s {\n", dispatch, plan.TypeParams, plan.Signature())
	fmt.Fprintf(buf, "\tslot := %s.Load()\n", cell)
	fmt.Fprintf(buf, "\tif slot == 0 {\n\t\tslot = %s()\n\t}\n", resolve)
	fmt.Fprintf(buf, "\tswitch slot {\n")
	fmt.Fprintf(buf, "\tcase 1:\n\t\t%s%s\n", ret, plan.Call(plan.RefName))
	for i, spec := range group.Specs {
		fmt.Fprintf(buf, "\tcase %d:\n\t\t%s%s\n", i+2, ret, plan.Call(spec.Ident))
	}
	fmt.Fprintf(buf, "\tdefault:\n\t\tpanic(\"unreachable\")\n")
	fmt.Fprintf(buf, "\t}\n")
	fmt.Fprintf(buf, "}\n\n")
}

// writeDetection emits one oracle query per distinct feature of the section,
// in first-appearance order.
func writeDetection(buf *bytes.Buffer, group *ArchGroup, vars map[string]string, indent string) {
	for _, feature := range group.Features() {
		fmt.Fprintf(buf, "%s%s := mv.%s(%q)\n", indent, vars[feature], group.Arch.Detect, feature)
	}
}

// featureVars maps each feature of a section onto a unique local variable
// name. Distinct spellings can sanitize identically ("sse4.1" and "sse41"),
// so collisions get a numeric suffix.
func featureVars(features []string) map[string]string {
	vars := make(map[string]string, len(features))
	used := make(map[string]int)
	for _, f := range features {
		name := featureVar(f)
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		vars[f] = name
	}
	return vars
}

// featureCond renders the selection criterion of one specialization: every
// one of its required features is present.
func featureCond(spec *Specialization, vars map[string]string) string {
	conds := make([]string, len(spec.Features))
	for i, f := range spec.Features {
		conds[i] = vars[f]
	}
	return strings.Join(conds, " && ")
}

// featureVar maps a feature name onto a local variable ("sse4.1" → hasSse41).
func featureVar(feature string) string {
	var b strings.Builder
	b.WriteString("has")
	upper := true
	for _, r := range feature {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				r = r - 'a' + 'A'
			}
			b.WriteRune(r)
			upper = false
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			upper = false
		default:
			upper = true
		}
	}
	return b.String()
}

func writeOuterDoc(buf *bytes.Buffer, plan *DispatchPlan, group *ArchGroup) {
	fmt.Fprintf(buf, "// %s dispatches %s to the fastest declared implementation the running\n", plan.OuterName, plan.RefName)
	fmt.Fprintf(buf, "// CPU supports. The selection is resolved on first call and cached.\n")
	if plan.NeedsTrust {
		fmt.Fprintf(buf, "//\n// Manually supplied implementations are trusted, unchecked, to return the\n")
		fmt.Fprintf(buf, "// same result as %s for every input.\n", plan.RefName)
	}
}

// writeStaticOuter emits the outer function for a build configuration whose
// guaranteed features make runtime detection unnecessary.
func writeStaticOuter(buf *bytes.Buffer, plan *DispatchPlan, callee string) {
	ret := ""
	if plan.HasResults() {
		ret = "return "
	}
	fmt.Fprintf(buf, "// %s calls %s directly: this build configuration guarantees the\n", plan.OuterName, callee)
	fmt.Fprintf(buf, "// required CPU features, so no runtime detection is needed.\n")
	fmt.Fprintf(buf, "func %s%s%s {\n\t%s%s\n}\n",
		plan.OuterName, plan.TypeParams, plan.Signature(), ret, plan.Call(callee))
}

// writeGenericOuter emits the outer function for build targets matching no
// declared architecture.
func writeGenericOuter(buf *bytes.Buffer, plan *DispatchPlan) {
	ret := ""
	if plan.HasResults() {
		ret = "return "
	}
	fmt.Fprintf(buf, "// %s uses the portable reference implementation: no specialization\n", plan.OuterName)
	fmt.Fprintf(buf, "// targets this build's architecture.\n")
	fmt.Fprintf(buf, "func %s%s%s {\n\t%s%s\n}\n",
		plan.OuterName, plan.TypeParams, plan.Signature(), ret, plan.Call(plan.RefName))
}

// writePureWrapper emits the always-portable entry point of a pure function.
func writePureWrapper(buf *bytes.Buffer, plan *DispatchPlan) {
	ret := ""
	if plan.HasResults() {
		ret = "return "
	}
	fmt.Fprintf(buf, "// %sGeneric always uses the portable reference implementation,\n", plan.OuterName)
	fmt.Fprintf(buf, "// regardless of CPU capabilities. It never consults the running CPU, so\n")
	fmt.Fprintf(buf, "// it is safe wherever dispatch must not depend on the executing machine.\n")
	fmt.Fprintf(buf, "func %sGeneric%s%s {\n\t%s%s\n}\n",
		plan.OuterName, plan.TypeParams, plan.Signature(), ret, plan.Call(plan.RefName))
}

// finish formats the emitted source and normalizes its imports.
func finish(filename string, src []byte) ([]byte, error) {
	formatted, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}
	out, err := imports.Process(filename, formatted, nil)
	if err != nil {
		return nil, fmt.Errorf("fix imports: %w", err)
	}
	return out, nil
}
