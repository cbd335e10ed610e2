//go:build stave

package main

import (
	"cmp"
	"fmt"
	"os"
	"strings"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

// Default target runs build.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]any{
	"b": Build,
	"t": Test.Default,
	"c": Check,
	"g": Grammar,
}

type (
	Test st.Namespace
	Lint st.Namespace
)

// Build compiles the kestrel binary.
func Build() error {
	rebuild, err := target.Dir("bin/kestrel", "cmd/", "driver/", "grammar/", "grammars/", "language/", "tree/", "go.mod")
	if err != nil {
		return err
	}
	if !rebuild {
		fmt.Println("bin/kestrel is up to date")
		return nil
	}
	fmt.Println("Building kestrel...")
	return sh.RunV("go", "build", "-o", "bin/kestrel", "./cmd/kestrel")
}

// Grammar compiles the ets grammar and writes its conflict report next to it.
func Grammar() error {
	st.Deps(Build)

	rebuild, err := target.Path("bin/ets.json", "grammars/ets/grammar.yaml")
	if err != nil {
		return err
	}
	if !rebuild {
		fmt.Println("bin/ets.json is up to date")
		return nil
	}
	return sh.RunV("bin/kestrel", "compile", "grammars/ets/grammar.yaml", "--output", "bin/ets.json")
}

// Check runs format, vet, and every test sequentially.
func Check() {
	st.SerialDeps(Lint.Fmt, Lint.Vet, Test.Default, Test.Corpus)
}

// Clean removes build artifacts.
func Clean() error {
	if err := sh.Rm("bin"); err != nil {
		return err
	}
	return sh.Rm("coverage.out")
}

// Default runs all tests using gotestsum with race detection and coverage.
func (Test) Default() error {
	fmt.Println("Running tests...")
	nCores := cmp.Or(os.Getenv("STAVE_NUM_PROCESSORS"), "4")
	return sh.RunV("go",
		"tool", "gotestsum",
		"-f", "pkgname-and-test-fails",
		"--",
		"-race",
		"-p", nCores,
		"./...",
		"-coverprofile=coverage.out",
		"-covermode=atomic",
	)
}

// Corpus runs the ets corpus through the CLI.
func (Test) Corpus() error {
	st.Deps(Build)
	return sh.RunV("bin/kestrel", "test", "grammars/ets/testdata/corpus", "--language", "ets")
}

// Fuzz runs the parser fuzz target for a short while.
func (Test) Fuzz() error {
	fuzzTime := cmp.Or(os.Getenv("KESTREL_FUZZ_TIME"), "30s")
	return sh.RunV("go", "test", "./driver/parser", "-run", "^$", "-fuzz", "^FuzzParser_Parse$", "-fuzztime", fuzzTime)
}

// sourceDirs leaves out the vendored reference trees.
var sourceDirs = []string{"cmd", "compressor", "driver", "error", "grammar", "grammars", "internal", "language", "spec", "tester", "tree"}

// Fmt formats the sources.
func (Lint) Fmt() error {
	return sh.RunV("gofmt", append([]string{"-w"}, sourceDirs...)...)
}

// FmtCheck fails when a source is not formatted.
func (Lint) FmtCheck() error {
	out, err := sh.Output("gofmt", append([]string{"-l"}, sourceDirs...)...)
	if err != nil {
		return err
	}
	if files := strings.TrimSpace(out); files != "" {
		return fmt.Errorf("unformatted files:\n%v", files)
	}
	return nil
}

// Vet runs go vet.
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}
