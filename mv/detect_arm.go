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

//go:build arm

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "arm"
	features = map[string]bool{
		"neon":  cpu.ARM.HasNEON,
		"vfp3":  cpu.ARM.HasVFPv3,
		"vfp4":  cpu.ARM.HasVFPv4,
		"aes":   cpu.ARM.HasAES,
		"pmull": cpu.ARM.HasPMULL,
		"sha2":  cpu.ARM.HasSHA2,
		"crc":   cpu.ARM.HasCRC32,
	}
}
