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

package mv

import (
	"os"
	"strconv"
)

// currentArch is the canonical architecture name of the build target
// ("x86", "aarch64", ...). Set by init() in detect_*.go for architectures
// with feature detection support; empty elsewhere.
var currentArch string

// features maps canonical feature names to detected CPU capabilities for
// the architecture this binary was built for. Nil on architectures without
// detection support, so every lookup reports false.
var features map[string]bool

// Arch returns the canonical name of the running architecture, or "" when
// the build target has no feature detection support.
func Arch() string {
	return currentArch
}

// Detect reports whether the running CPU supports the named feature of the
// named architecture. Foreign architectures and unknown feature names report
// false. Detection is pure: for a fixed machine the answer never changes.
func Detect(arch, feature string) bool {
	return arch == currentArch && features[feature]
}

// Per-architecture entry points called by generated resolvers. Each is the
// curried form of Detect for one architecture, so calls compiled into an
// architecture section that does not match the build target report false.

// DetectX86 reports x86 feature support (amd64 and 386 builds).
func DetectX86(feature string) bool { return Detect("x86", feature) }

// DetectARM64 reports 64-bit ARM feature support.
func DetectARM64(feature string) bool { return Detect("aarch64", feature) }

// DetectARM reports 32-bit ARM feature support.
func DetectARM(feature string) bool { return Detect("arm", feature) }

// DetectRISCV64 reports RISC-V feature support.
func DetectRISCV64(feature string) bool { return Detect("riscv", feature) }

// DetectLoong64 reports LoongArch feature support.
func DetectLoong64(feature string) bool { return Detect("loongarch", feature) }

// DetectMIPS32 reports 32-bit MIPS feature support. There is no detection
// backend for mips/mipsle, so this currently always reports false and
// dispatch falls back to the generic implementation.
func DetectMIPS32(feature string) bool { return Detect("mips32", feature) }

// DetectMIPS64 reports 64-bit MIPS feature support.
func DetectMIPS64(feature string) bool { return Detect("mips64", feature) }

// DetectPPC64 reports 64-bit PowerPC feature support.
func DetectPPC64(feature string) bool { return Detect("powerpc64", feature) }

// DetectS390X reports IBM Z feature support.
func DetectS390X(feature string) bool { return Detect("s390x", feature) }

// Disabled checks the MV_NO_SPECIALIZE environment variable. When set,
// generated resolvers select the generic implementation regardless of CPU
// capabilities. This is useful for testing and debugging.
func Disabled() bool {
	val := os.Getenv("MV_NO_SPECIALIZE")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
