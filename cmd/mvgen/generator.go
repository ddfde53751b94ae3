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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Generator orchestrates the dispatch synthesis pipeline.
type Generator struct {
	InputFiles []string // annotated Go source files
	OutputDir  string   // output directory
	PackageOut string   // output package name (defaults to input package)
	Verbose    bool

	mu        sync.Mutex
	generated []string // paths written, for the summary
}

// Run processes every input file. Files are independent and run in parallel;
// within one file, generation is all-or-nothing: nothing is written to disk
// until every annotated function of that file synthesized cleanly.
func (g *Generator) Run() error {
	var eg errgroup.Group
	for _, input := range g.InputFiles {
		input := input
		eg.Go(func() error {
			return g.runFile(input)
		})
	}
	return eg.Wait()
}

func (g *Generator) runFile(input string) error {
	parsed, err := ParseInput(input)
	if err != nil {
		return err
	}
	if len(parsed.Funcs) == 0 {
		return fmt.Errorf("%s: no specialize directives found", input)
	}

	pkg := g.PackageOut
	if pkg == "" {
		pkg = parsed.Package
	}

	var files []GeneratedFile
	for _, fn := range parsed.Funcs {
		out, err := Synthesize(pkg, fn.Plan, fn.Groups)
		if err != nil {
			return err
		}
		files = append(files, out...)
	}

	for _, f := range files {
		path := filepath.Join(g.OutputDir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		g.mu.Lock()
		g.generated = append(g.generated, path)
		g.mu.Unlock()
		if g.Verbose {
			fmt.Printf("  %s\n", path)
		}
	}
	return nil
}

// Generated returns the paths written so far.
func (g *Generator) Generated() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.generated...)
}

// Summary describes a completed run in one line.
func (g *Generator) Summary() string {
	return fmt.Sprintf("generated %d dispatch files from %s",
		len(g.Generated()), strings.Join(g.InputFiles, ", "))
}
