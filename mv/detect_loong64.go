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

//go:build loong64

package mv

import "golang.org/x/sys/cpu"

func init() {
	currentArch = "loongarch"
	features = map[string]bool{
		"lsx":   cpu.Loong64.HasLSX,
		"lasx":  cpu.Loong64.HasLASX,
		"crc32": cpu.Loong64.HasCRC32,
	}
}
