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

//go:build amd64 || 386

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "x86"
	features = map[string]bool{
		// x/sys/cpu has no dedicated SSE flag; SSE2 implies SSE, so this
		// is conservative only on pre-SSE2 386 hardware.
		"sse":        cpu.X86.HasSSE2,
		"sse2":       cpu.X86.HasSSE2,
		"sse3":       cpu.X86.HasSSE3,
		"ssse3":      cpu.X86.HasSSSE3,
		"sse4.1":     cpu.X86.HasSSE41,
		"sse4.2":     cpu.X86.HasSSE42,
		"popcnt":     cpu.X86.HasPOPCNT,
		"aes":        cpu.X86.HasAES,
		"pclmulqdq":  cpu.X86.HasPCLMULQDQ,
		"rdrand":     cpu.X86.HasRDRAND,
		"rdseed":     cpu.X86.HasRDSEED,
		"adx":        cpu.X86.HasADX,
		"erms":       cpu.X86.HasERMS,
		"avx":        cpu.X86.HasAVX,
		"avx2":       cpu.X86.HasAVX2,
		"fma":        cpu.X86.HasFMA,
		"bmi1":       cpu.X86.HasBMI1,
		"bmi2":       cpu.X86.HasBMI2,
		"osxsave":    cpu.X86.HasOSXSAVE,
		"avx512f":    cpu.X86.HasAVX512F,
		"avx512bw":   cpu.X86.HasAVX512BW,
		"avx512cd":   cpu.X86.HasAVX512CD,
		"avx512dq":   cpu.X86.HasAVX512DQ,
		"avx512vl":   cpu.X86.HasAVX512VL,
		"avx512vbmi": cpu.X86.HasAVX512VBMI,
		"avx512vnni": cpu.X86.HasAVX512VNNI,
		"avx512bf16": cpu.X86.HasAVX512BF16,
	}
}
