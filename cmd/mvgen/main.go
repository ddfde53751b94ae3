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

// Command mvgen synthesizes runtime multiversioning dispatchers from
// annotated portable Go functions.
//
// Usage:
//
//	mvgen -input dot.go -output .
//	mvgen -input dot.go,sum.go -output . -pkg dotprod
//
// Or via go:generate:
//
//	//go:generate mvgen -input $GOFILE -output .
//
// A reference function named with the Base prefix and carrying a specialize
// directive in its doc comment
//
//	//mvgen:specialize x86=["avx2","fma"], static x86=["sse4.1"], arm64=["neon"]
//	func BaseDot(a, b []float32) float32 { ... }
//
// produces Dot, which resolves the fastest supported implementation for the
// running CPU on first call and caches the choice. Build configurations that
// already guarantee a specialization's features (GOAMD64 levels, the arm64
// baseline) skip runtime detection entirely. An entry's "=> unsafe ident"
// clause substitutes a hand-written implementation, trusted without any
// equivalence check. Functions additionally marked //mvgen:pure also get
// DotGeneric, a wrapper that never consults the running CPU, and honor the
// purego build tag.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

var (
	inputFiles = flag.String("input", "", "Comma-separated annotated Go source files (required)")
	outputDir  = flag.String("output", ".", "Output directory (default: current directory)")
	packageOut = flag.String("pkg", "", "Output package name (default: same as input)")
	verbose    = flag.Bool("v", false, "Print each generated file")
)

func main() {
	flag.Parse()

	if *inputFiles == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	var inputs []string
	for _, p := range strings.Split(*inputFiles, ",") {
		if p = strings.TrimSpace(p); p != "" {
			inputs = append(inputs, p)
		}
	}
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no input files specified\n")
		os.Exit(1)
	}

	gen := &Generator{
		InputFiles: inputs,
		OutputDir:  *outputDir,
		PackageOut: *packageOut,
		Verbose:    *verbose,
	}

	if err := gen.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully %s\n", gen.Summary())
}
