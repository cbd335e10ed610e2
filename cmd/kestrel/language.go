package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
	"github.com/go-enry/go-enry/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// enryAliases maps go-enry language names to registered languages that can parse them.
var enryAliases = map[string]string{
	"TypeScript": "ets",
}

var (
	errNoInput      = errors.New("no input; pass a file or pipe the text into stdin")
	errBinarySource = errors.New("the source looks like a binary file")
)

type languageFlags struct {
	language *string
	grammar  *string
}

func addLanguageFlags(cmd *cobra.Command) *languageFlags {
	return &languageFlags{
		language: cmd.Flags().StringP("language", "l", "", "registered language name (default from the configuration)"),
		grammar:  cmd.Flags().StringP("grammar", "g", "", "grammar definition (.yaml) or compiled grammar (.json) to parse with instead of a registered language"),
	}
}

// resolve returns the language the flags select. Without flags, the language is detected
// from the source path, falling back to the configured one.
func (f *languageFlags) resolve(path string) (*language.Language, error) {
	if *f.grammar != "" {
		return loadGrammarFile(*f.grammar)
	}
	name := *f.language
	if name == "" {
		name = detectLanguage(path, language.Names())
	}
	if name == "" {
		name = cfg.Language
	}
	lang, err := language.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, strings.Join(language.Names(), ", "))
	}
	return lang, nil
}

// detectLanguage picks a registered language by the file extension, then by the language
// go-enry associates with it. It returns an empty string when nothing matches.
func detectLanguage(path string, registered []string) string {
	if path == "" || path == "-" {
		return ""
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, name := range registered {
		if name == ext {
			return name
		}
	}
	for _, lang := range enry.GetLanguagesByExtension(path, nil, nil) {
		alias, ok := enryAliases[lang]
		if !ok {
			continue
		}
		for _, name := range registered {
			if name == alias {
				return name
			}
		}
	}
	return ""
}

// loadGrammarFile compiles a grammar definition or reads a compiled grammar. Grammars with
// external terminals need a scanner and therefore a registered language.
func loadGrammarFile(path string) (*language.Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		gram, err := readGrammar(path)
		if err != nil {
			return nil, err
		}
		cg, _, err := grammar.Compile(gram)
		if err != nil {
			return nil, err
		}
		return language.New(cg, nil)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open the compiled grammar %v: %w", path, err)
		}
		defer f.Close()
		return language.Load(f, nil)
	}
}

func readGrammar(path string) (*grammar.Grammar, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the grammar file %v: %w", path, err)
	}
	def, err := grammar.ParseDefinition(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	b := grammar.GrammarBuilder{
		Definition: def,
		SourceName: path,
		FilePath:   path,
	}
	return b.Build()
}

// readSource reads a file, or stdin when path is empty or "-". An interactive stdin is an
// error rather than a silent wait.
func readSource(path string) ([]byte, error) {
	var src []byte
	var err error
	if path == "" || path == "-" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errNoInput
		}
		src, err = io.ReadAll(os.Stdin)
		path = "stdin"
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read the source %v: %w", path, err)
	}
	if err := checkSource(path, src); err != nil {
		return nil, err
	}
	return src, nil
}

func checkSource(path string, src []byte) error {
	if enry.IsBinary(src) {
		return fmt.Errorf("%v: %w", path, errBinarySource)
	}
	return nil
}
