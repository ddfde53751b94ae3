package main

import (
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parseSpecs(t *testing.T, text string) ([]ArchGroup, *DispatchPlan) {
	t.Helper()
	plan := &DispatchPlan{RefName: "BaseDot", OuterName: "Dot", Symbol: "dot"}
	groups, err := ParseSpecializations(nil, token.NoPos, text, plan)
	if err != nil {
		t.Fatalf("ParseSpecializations(%q): %v", text, err)
	}
	return groups, plan
}

func TestParseSingleSpecialization(t *testing.T) {
	groups, plan := parseSpecs(t, ` x86=["avx2","fma"]`)

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Arch.Name != "x86" {
		t.Errorf("arch = %q, want x86", g.Arch.Name)
	}
	if len(g.Specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(g.Specs))
	}
	spec := g.Specs[0]
	if diff := cmp.Diff([]string{"avx2", "fma"}, spec.Features); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	if spec.IsStatic || spec.IsManual {
		t.Errorf("spec flags = static:%v manual:%v, want neither", spec.IsStatic, spec.IsManual)
	}
	if spec.Ident != "dot_x86_avx2_fma" {
		t.Errorf("ident = %q, want dot_x86_avx2_fma", spec.Ident)
	}
	if plan.NeedsTrust {
		t.Error("NeedsTrust set without any manual override")
	}
}

func TestParseGroupsByArchPreservingOrder(t *testing.T) {
	groups, _ := parseSpecs(t, `x86=["avx2"], arm64=["neon"], x86=["sse2"]`)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Arch.Name != "x86" || groups[1].Arch.Name != "aarch64" {
		t.Fatalf("group order = %s, %s; want x86 then aarch64", groups[0].Arch.Name, groups[1].Arch.Name)
	}

	// Declaration order within the architecture is the selection priority.
	x86 := groups[0]
	if len(x86.Specs) != 2 {
		t.Fatalf("x86 got %d specs, want 2", len(x86.Specs))
	}
	if x86.Specs[0].Features[0] != "avx2" || x86.Specs[1].Features[0] != "sse2" {
		t.Error("x86 specs are not in declaration order")
	}
}

func TestParseStaticFlag(t *testing.T) {
	groups, _ := parseSpecs(t, `static x86=["sse4.1"], x86=["avx2"]`)

	specs := groups[0].Specs
	if !specs[0].IsStatic {
		t.Error("first spec should be static")
	}
	if specs[1].IsStatic {
		t.Error("second spec should not be static")
	}
	if specs[0].Ident != "dot_x86_sse41" {
		t.Errorf("ident = %q, want dot_x86_sse41 (punctuation stripped)", specs[0].Ident)
	}
}

func TestParseManualOverride(t *testing.T) {
	groups, plan := parseSpecs(t, `x86=["avx2"] => unsafe dotAVX2Asm`)

	spec := groups[0].Specs[0]
	if !spec.IsManual {
		t.Fatal("spec should be manual")
	}
	if spec.Ident != "dotAVX2Asm" {
		t.Errorf("ident = %q, want dotAVX2Asm", spec.Ident)
	}
	if !plan.NeedsTrust {
		t.Error("a manual override must set NeedsTrust")
	}
}

func TestParseFeatureUnion(t *testing.T) {
	groups, _ := parseSpecs(t, `x86=["avx2","fma"], x86=["fma","sse4.2"]`)

	got := groups[0].Features()
	want := []string{"avx2", "fma", "sse4.2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDuplicateFeatureCollapses(t *testing.T) {
	groups, _ := parseSpecs(t, `x86=["avx2","avx2"]`)
	if got := groups[0].Specs[0].Features; len(got) != 1 || got[0] != "avx2" {
		t.Errorf("features = %v, want [avx2]", got)
	}
}

func TestParseIdentCollision(t *testing.T) {
	groups, _ := parseSpecs(t, `x86=["avx2"], x86=["avx2","avx2"]`)

	specs := groups[0].Specs
	if specs[0].Ident != "dot_x86_avx2" {
		t.Errorf("first ident = %q", specs[0].Ident)
	}
	if specs[1].Ident != "dot_x86_avx2_2" {
		t.Errorf("second ident = %q, want numeric suffix on collision", specs[1].Ident)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "  ", "expected at least one specialization but found nothing"},
		{"unknown arch", `sparc=["vis"]`, "sparc is not a supported architecture"},
		{"missing equals", `x86 ["avx2"]`, "expected = but got ["},
		{"missing bracket", `x86="avx2"`, `expected [ but got "avx2"`},
		{"empty features", `x86=[]`, "expected features but found nothing"},
		{"bare feature", `x86=[avx2]`, "expected a feature string literal but got avx2"},
		{"missing unsafe", `x86=["avx2"] => dotAsm`, "manual implementations must be prefixed with unsafe"},
		{"manual without name", `x86=["avx2"] => unsafe`, "expected an identifier but found nothing"},
		{"trailing garbage", `x86=["avx2"] extra`, "expected , but got extra"},
		{"unterminated string", `x86=["avx2`, "unterminated feature string literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &DispatchPlan{Symbol: "dot"}
			_, err := ParseSpecializations(nil, token.NoPos, tt.text, plan)
			if err == nil {
				t.Fatalf("ParseSpecializations(%q) succeeded, want error", tt.text)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseTrailingComma(t *testing.T) {
	groups, _ := parseSpecs(t, `x86=["avx2"],`)
	if len(groups) != 1 || len(groups[0].Specs) != 1 {
		t.Fatalf("trailing comma should be tolerated, got %+v", groups)
	}
}
