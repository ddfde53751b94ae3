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

// Package mv is the runtime support library for code generated by mvgen.
//
// Generated dispatchers use two pieces of this package: the per-architecture
// feature detection entry points (DetectX86, DetectARM64, ...) and the lazily
// resolved cache cells (Cell, Index) that remember which implementation was
// selected for the running CPU.
//
// Feature detection is a pure function of the running CPU, so concurrent
// redundant resolution always computes the same answer; the cells therefore
// need no mutual exclusion, only atomic access.
package mv
