// Package ets bundles the grammar of ArkTS (ETS), the TypeScript dialect used by HarmonyOS
// applications, and registers it as the "ets" language.
package ets

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
)

// Name is the name the language is registered under.
const Name = "ets"

//go:embed grammar.yaml
var definition []byte

var (
	loadOnce sync.Once
	lang     *language.Language
	loadErr  error
)

func init() {
	err := language.Register(Name, Load)
	if err != nil {
		panic(err)
	}
}

// Definition returns the grammar definition in its YAML form.
func Definition() []byte {
	return bytes.Clone(definition)
}

// Load compiles the bundled grammar on first use and returns the same handle afterwards.
func Load() (*language.Language, error) {
	loadOnce.Do(func() {
		lang, loadErr = build()
	})
	return lang, loadErr
}

// Language is like Load but panics when the bundled grammar cannot be compiled.
func Language() *language.Language {
	l, err := Load()
	if err != nil {
		panic(err)
	}
	return l
}

func build() (*language.Language, error) {
	def, err := grammar.ParseDefinition(bytes.NewReader(definition))
	if err != nil {
		return nil, fmt.Errorf("cannot read the %v grammar: %w", Name, err)
	}
	b := grammar.GrammarBuilder{
		Definition: def,
		SourceName: "grammar.yaml",
	}
	gram, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("cannot build the %v grammar: %w", Name, err)
	}
	cg, _, err := grammar.Compile(gram)
	if err != nil {
		return nil, fmt.Errorf("cannot compile the %v grammar: %w", Name, err)
	}
	return language.New(cg, Scanner{})
}
