package main

import (
	"strings"
	"testing"
)

func TestLookupArch(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"x86", "x86"},
		{"x86_64", "x86"},
		{"amd64", "x86"},
		{"X86", "x86"},
		{"arm64", "aarch64"},
		{"aarch64", "aarch64"},
		{"mips", "mips32"},
		{"riscv64", "riscv"},
		{"loong64", "loongarch"},
		{"powerpc", "powerpc64"},
		{"PPC64", "powerpc64"},
		{"s390x", "s390x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arch, err := LookupArch(tt.name)
			if err != nil {
				t.Fatalf("LookupArch(%q): %v", tt.name, err)
			}
			if arch.Name != tt.want {
				t.Errorf("LookupArch(%q) = %q, want %q", tt.name, arch.Name, tt.want)
			}
		})
	}
}

func TestLookupArchUnknown(t *testing.T) {
	_, err := LookupArch("sparc")
	if err == nil {
		t.Fatal("LookupArch(sparc) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "sparc is not a supported architecture") {
		t.Errorf("error = %q, want it to name the offending input", err)
	}
}

func TestStaticLevelGuarantees(t *testing.T) {
	x86, err := LookupArch("x86")
	if err != nil {
		t.Fatal(err)
	}
	levels := x86.LevelsFor("amd64")
	if len(levels) != 4 {
		t.Fatalf("amd64 has %d static levels, want 4", len(levels))
	}

	// Levels are cumulative: the baseline guarantee survives at every
	// stronger level.
	for _, l := range levels {
		if !l.Guarantees([]string{"sse2"}) {
			t.Errorf("level %q does not guarantee sse2", l.Tag)
		}
	}

	v2 := levels[1]
	if v2.Tag != "amd64.v2" {
		t.Fatalf("second level tag = %q, want amd64.v2", v2.Tag)
	}
	if !v2.Guarantees([]string{"sse4.1", "popcnt"}) {
		t.Error("amd64.v2 should guarantee sse4.1 and popcnt")
	}
	if v2.Guarantees([]string{"sse4.1", "avx2"}) {
		t.Error("amd64.v2 must not guarantee avx2")
	}

	v3 := levels[2]
	if !v3.Guarantees([]string{"avx2", "fma", "sse4.1"}) {
		t.Error("amd64.v3 should guarantee avx2, fma and sse4.1")
	}
	if v3.Guarantees([]string{"avx512f"}) {
		t.Error("amd64.v3 must not guarantee avx512f")
	}
}

func TestArm64Baseline(t *testing.T) {
	arch, err := LookupArch("arm64")
	if err != nil {
		t.Fatal(err)
	}
	levels := arch.LevelsFor("arm64")
	if len(levels) != 1 || levels[0].Tag != "" {
		t.Fatalf("arm64 levels = %+v, want a single unconditional baseline", levels)
	}
	if !levels[0].Guarantees([]string{"neon", "fp"}) {
		t.Error("arm64 baseline should guarantee neon and fp")
	}
	if levels[0].Guarantees([]string{"sve"}) {
		t.Error("arm64 baseline must not guarantee sve")
	}
}

func TestBuildExpr(t *testing.T) {
	x86, _ := LookupArch("x86")
	if got := x86.BuildExpr(); got != "amd64 || 386" {
		t.Errorf("x86 BuildExpr = %q", got)
	}
	s390x, _ := LookupArch("s390x")
	if got := s390x.BuildExpr(); got != "s390x" {
		t.Errorf("s390x BuildExpr = %q", got)
	}
}

func TestIdentTemplates(t *testing.T) {
	arch, _ := LookupArch("x86")
	if got := arch.CellIdent("dot"); got != "dot_cell_x86" {
		t.Errorf("CellIdent = %q", got)
	}
	if got := arch.ResolveIdent("dot"); got != "dot_resolve_x86" {
		t.Errorf("ResolveIdent = %q", got)
	}
	if got := arch.DispatchIdent("dot"); got != "dot_dispatch_x86" {
		t.Errorf("DispatchIdent = %q", got)
	}
}
