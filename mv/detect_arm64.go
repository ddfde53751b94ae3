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

//go:build arm64

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "aarch64"
	features = map[string]bool{
		"fp":      cpu.ARM64.HasFP,
		"neon":    cpu.ARM64.HasASIMD,
		"aes":     cpu.ARM64.HasAES,
		"pmull":   cpu.ARM64.HasPMULL,
		"sha2":    cpu.ARM64.HasSHA2,
		"sha3":    cpu.ARM64.HasSHA3,
		"sha512":  cpu.ARM64.HasSHA512,
		"crc":     cpu.ARM64.HasCRC32,
		"lse":     cpu.ARM64.HasATOMICS,
		"rdm":     cpu.ARM64.HasASIMDRDM,
		"dotprod": cpu.ARM64.HasASIMDDP,
		"fp16":    cpu.ARM64.HasFPHP,
		"fhm":     cpu.ARM64.HasASIMDFHM,
		"jsconv":  cpu.ARM64.HasJSCVT,
		"fcma":    cpu.ARM64.HasFCMA,
		"dit":     cpu.ARM64.HasDIT,
		"i8mm":    cpu.ARM64.HasI8MM,
		"sve":     cpu.ARM64.HasSVE,
		"sve2":    cpu.ARM64.HasSVE2,
	}
}
