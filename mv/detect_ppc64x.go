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

//go:build ppc64 || ppc64le

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "powerpc64"
	features = map[string]bool{
		"power8": cpu.PPC64.IsPOWER8,
		"power9": cpu.PPC64.IsPOWER9,
		"darn":   cpu.PPC64.HasDARN,
		"scv":    cpu.PPC64.HasSCV,
	}
}
