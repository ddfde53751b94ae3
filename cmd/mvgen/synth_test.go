package main

import (
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// synthFile runs the full pipeline over one annotated source file and returns
// the generated files keyed by name.
func synthFile(t *testing.T, src string) map[string]string {
	t.Helper()
	parsed, err := ParseInputSource("input.go", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Funcs) != 1 {
		t.Fatalf("got %d annotated functions, want 1", len(parsed.Funcs))
	}
	fn := parsed.Funcs[0]
	files, err := Synthesize("p", fn.Plan, fn.Groups)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Name] = string(f.Data)
	}
	return out
}

func fileNames(files map[string]string) []string {
	var names []string
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustContain(t *testing.T, name, content string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(content, want) {
			t.Errorf("%s missing %q:\n%s", name, want, content)
		}
	}
}

const dotSource = `package p

//mvgen:specialize x86=["avx2","fma"], static x86=["sse4.1"], arm64=["neon"]
func BaseDot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
`

func TestSynthesizeFileSet(t *testing.T) {
	files := synthFile(t, dotSource)

	want := []string{
		"dot_dispatch_aarch64_arm64.gen.go",
		"dot_dispatch_other.gen.go",
		"dot_dispatch_x86.gen.go",
		"dot_dispatch_x86_amd64v2.gen.go",
	}
	if diff := cmp.Diff(want, fileNames(files)); diff != "" {
		t.Fatalf("file set mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeDynamicSection(t *testing.T) {
	files := synthFile(t, dotSource)
	content := files["dot_dispatch_x86.gen.go"]

	mustContain(t, "x86 dynamic file", content,
		"// Code generated by mvgen. DO NOT EDIT.",
		"//go:build (amd64 && !amd64.v2) || 386",
		"func dot_x86_avx2_fma(a, b []float32) float32 {",
		"func dot_x86_sse41(a, b []float32) float32 {",
		"return BaseDot(a, b)",
		"type dotFn func([]float32, []float32) float32",
		"var dot_cell_x86 mv.Cell[dotFn]",
		"func dot_resolve_x86(a, b []float32) float32 {",
		"if !mv.Disabled() {",
		`hasAvx2 := mv.DetectX86("avx2")`,
		`hasFma := mv.DetectX86("fma")`,
		`hasSse41 := mv.DetectX86("sse4.1")`,
		"case hasAvx2 && hasFma:",
		"case hasSse41:",
		"dot_cell_x86.Store(fn)",
		"if fn, ok := dot_cell_x86.Get(); ok {",
		"func Dot(a, b []float32) float32 {",
		"return dot_dispatch_x86(a, b)",
	)

	// Declaration order is the selection priority.
	if strings.Index(content, "case hasAvx2 && hasFma:") > strings.Index(content, "case hasSse41:") {
		t.Error("selection cases are not in declaration order")
	}
	// Each feature is detected exactly once.
	if strings.Count(content, `mv.DetectX86("sse4.1")`) != 1 {
		t.Error("sse4.1 should be detected exactly once")
	}
}

func TestSynthesizeStaticShortCircuit(t *testing.T) {
	files := synthFile(t, dotSource)

	v2 := files["dot_dispatch_x86_amd64v2.gen.go"]
	mustContain(t, "amd64.v2 static file", v2,
		"//go:build amd64 && amd64.v2",
		"func Dot(a, b []float32) float32 {",
		"return BaseDot(a, b)",
	)
	if strings.Contains(v2, "mv.") {
		t.Error("static file must not perform runtime detection")
	}

	// The arm64 baseline guarantees neon, so the whole architecture
	// short-circuits and no dynamic aarch64 file exists.
	arm := files["dot_dispatch_aarch64_arm64.gen.go"]
	mustContain(t, "arm64 static file", arm,
		"//go:build arm64",
		"return BaseDot(a, b)",
	)
	if _, ok := files["dot_dispatch_aarch64.gen.go"]; ok {
		t.Error("arm64 should have no dynamic dispatch file")
	}
}

func TestSynthesizeOtherFile(t *testing.T) {
	files := synthFile(t, dotSource)
	content := files["dot_dispatch_other.gen.go"]

	mustContain(t, "fallback file", content,
		"//go:build !(amd64 || 386) && !arm64",
		"func Dot(a, b []float32) float32 {",
		"return BaseDot(a, b)",
	)
}

func TestSynthesizeIndexDispatch(t *testing.T) {
	files := synthFile(t, `package p

type Number interface {
	~int32 | ~float64
}

//mvgen:specialize x86=["avx2"]
func BaseSum[T Number](xs []T) T {
	var s T
	for _, x := range xs {
		s += x
	}
	return s
}
`)

	want := []string{
		"sum_dispatch_other.gen.go",
		"sum_dispatch_x86.gen.go",
		"sum_dispatch_x86_amd64v3.gen.go",
	}
	if diff := cmp.Diff(want, fileNames(files)); diff != "" {
		t.Fatalf("file set mismatch (-want +got):\n%s", diff)
	}

	content := files["sum_dispatch_x86.gen.go"]
	mustContain(t, "generic dynamic file", content,
		"//go:build (amd64 && !amd64.v3) || 386",
		"var sum_cell_x86 mv.Index",
		"func sum_resolve_x86() uint32 {",
		"slot := uint32(1)",
		"case hasAvx2:",
		"slot = 2",
		"sum_cell_x86.Store(slot)",
		"func sum_dispatch_x86[T Number](xs []T) T {",
		"slot := sum_cell_x86.Load()",
		"case 1:",
		"return BaseSum(xs)",
		"case 2:",
		"return sum_x86_avx2(xs)",
		`panic("unreachable")`,
		"func Sum[T Number](xs []T) T {",
	)

	// The variant is itself generic so the jump table can instantiate it at
	// any type argument.
	mustContain(t, "generic variant", content,
		"func sum_x86_avx2[T Number](xs []T) T {",
	)

	// avx2 becomes statically guaranteed at GOAMD64=v3.
	v3 := files["sum_dispatch_x86_amd64v3.gen.go"]
	mustContain(t, "amd64.v3 static file", v3,
		"//go:build amd64 && amd64.v3",
		"return BaseSum(xs)",
	)
}

func TestSynthesizePureManual(t *testing.T) {
	files := synthFile(t, `package p

//mvgen:specialize x86=["avx512f"], static x86=["sse4.1"] => unsafe dotSSE41
//mvgen:pure
func BaseDot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
`)

	want := []string{
		"dot_dispatch.gen.go",
		"dot_dispatch_other.gen.go",
		"dot_dispatch_x86.gen.go",
		"dot_dispatch_x86_amd64v2.gen.go",
		"dot_dispatch_x86_amd64v4.gen.go",
	}
	if diff := cmp.Diff(want, fileNames(files)); diff != "" {
		t.Fatalf("file set mismatch (-want +got):\n%s", diff)
	}

	// The always-portable wrapper has no build constraint at all.
	wrapper := files["dot_dispatch.gen.go"]
	mustContain(t, "pure wrapper", wrapper,
		"func DotGeneric(a, b []float32) float32 {",
		"return BaseDot(a, b)",
	)
	if strings.Contains(wrapper, "//go:build") {
		t.Error("the pure wrapper must not be build-constrained")
	}

	// Every dispatching file excludes purego; the fallback includes it.
	dynamic := files["dot_dispatch_x86.gen.go"]
	mustContain(t, "dynamic file", dynamic,
		"//go:build ((amd64 && !amd64.v2) || 386) && !purego",
		"fn = dotSSE41",
		"// Manually supplied implementations are trusted, unchecked",
	)
	if strings.Contains(dynamic, "func dotSSE41") {
		t.Error("manual implementations must not get a generated body")
	}

	// The manual implementation is statically selected from v2 up to, but
	// not including, v4, where the whole feature union becomes guaranteed.
	v2 := files["dot_dispatch_x86_amd64v2.gen.go"]
	mustContain(t, "amd64.v2 static file", v2,
		"//go:build amd64 && amd64.v2 && !amd64.v4 && !purego",
		"return dotSSE41(a, b)",
	)
	v4 := files["dot_dispatch_x86_amd64v4.gen.go"]
	mustContain(t, "amd64.v4 static file", v4,
		"//go:build amd64 && amd64.v4 && !purego",
		"return BaseDot(a, b)",
	)

	other := files["dot_dispatch_other.gen.go"]
	mustContain(t, "fallback file", other,
		"//go:build (!(amd64 || 386)) || purego",
	)
}

func TestSynthesizeVariadic(t *testing.T) {
	files := synthFile(t, `package p

//mvgen:specialize x86=["avx2"]
func BaseMax(xs ...float32) float32 {
	m := float32(0)
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}
`)

	content := files["max_dispatch_x86.gen.go"]
	mustContain(t, "variadic dynamic file", content,
		"func max_x86_avx2(xs ...float32) float32 {",
		"return BaseMax(xs...)",
		"return fn(xs...)",
		"func Max(xs ...float32) float32 {",
		"return max_dispatch_x86(xs...)",
	)
	if strings.Contains(content, "BaseMax(xs)\n") {
		t.Error("variadic argument forwarded without expansion")
	}

	v3 := files["max_dispatch_x86_amd64v3.gen.go"]
	mustContain(t, "variadic static file", v3, "return BaseMax(xs...)")
}

func TestSynthesizeFeatureVarCollision(t *testing.T) {
	// Distinct feature spellings can sanitize to the same local name.
	files := synthFile(t, `package p

//mvgen:specialize x86=["sse4.1"], x86=["sse41"]
func BaseDot(a, b []float32) float32 { return 0 }
`)

	content := files["dot_dispatch_x86.gen.go"]
	mustContain(t, "colliding features", content,
		`hasSse41 := mv.DetectX86("sse4.1")`,
		`hasSse41_2 := mv.DetectX86("sse41")`,
		"case hasSse41:",
		"case hasSse41_2:",
	)
	if strings.Count(content, "hasSse41 :=") != 1 {
		t.Error("colliding feature variables must be declared exactly once each")
	}
}

func TestSynthesizeNoResults(t *testing.T) {
	files := synthFile(t, `package p

//mvgen:specialize arm64=["sve"]
func BaseScale(xs []float32, f float32) {
	for i := range xs {
		xs[i] *= f
	}
}
`)

	content := files["scale_dispatch_aarch64.gen.go"]
	mustContain(t, "void dispatch file", content,
		"//go:build arm64",
		"func scale_resolve_aarch64(xs []float32, f float32) {",
		"fn(xs, f)",
		"func Scale(xs []float32, f float32) {",
		"scale_dispatch_aarch64(xs, f)",
	)
	if strings.Contains(content, "return fn(") {
		t.Error("void functions must not return call results")
	}
}
