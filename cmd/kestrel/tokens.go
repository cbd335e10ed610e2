package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tree"
	"github.com/spf13/cobra"
)

var tokensFlags = struct {
	lang   *languageFlags
	hidden *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "tokens [source file path]",
		Short:   "Print the tokens of a text as the parser read them",
		Example: `  kestrel tokens app.ets --hidden`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runTokens,
	}
	tokensFlags.lang = addLanguageFlags(cmd)
	tokensFlags.hidden = cmd.Flags().Bool("hidden", false, "also print hidden tokens such as white spaces")
	rootCmd.AddCommand(cmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	lang, err := tokensFlags.lang.resolve(path)
	if err != nil {
		return err
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}

	// The lexer depends on the parse state, so the tokens are the leaves of a parse.
	tr, err := parser.Parse(cmd.Context(), lang, src, cfg.parserOptions()...)
	if err != nil {
		return err
	}
	defer tr.Close()

	styles := NewStyles(IsColorEnabled(cfg.Color, cmd.OutOrStdout()))
	writeTokens(cmd.OutOrStdout(), lang, tr.Root(), src, *tokensFlags.hidden, styles)
	return nil
}

func writeTokens(w io.Writer, lang *language.Language, root *tree.Subtree, src []byte, hidden bool, s *Styles) {
	var walk func(sub *tree.Subtree, start int)
	walk = func(sub *tree.Subtree, start int) {
		if !sub.IsLeaf() {
			pos := start
			for _, c := range sub.Children() {
				walk(c, pos)
				pos += c.Size()
			}
			return
		}
		if !hidden && !sub.IsLexError() && !sub.IsMissing() && !lang.IsVisible(sub.Symbol()) {
			return
		}

		name := lang.SymbolName(sub.Symbol())
		if !lang.IsNamed(sub.Symbol()) {
			name = strconv.Quote(name)
		}
		style := s.Named
		switch {
		case sub.IsLexError():
			name = "!UNEXPECTED"
			style = s.Error
		case sub.IsMissing():
			name = "MISSING " + name
			style = s.Missing
		case sub.IsExtra():
			style = s.Dim
		}

		row, col := position(src, start)
		end := start + sub.Size()
		fmt.Fprintf(w, "%v %v %q\n", s.Dim.Render(fmt.Sprintf("%4v:%-3v %5v..%-5v", row+1, col+1, start, end)), style.Render(name), src[start:end])
	}
	walk(root, 0)
}
