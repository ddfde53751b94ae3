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

//go:build s390x

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "s390x"
	features = map[string]bool{
		"vx":  cpu.S390X.HasVX,
		"vxe": cpu.S390X.HasVXE,
		"dfp": cpu.S390X.HasDFP,
		"msa": cpu.S390X.HasMSA,
		"aes": cpu.S390X.HasAES,
	}
}
