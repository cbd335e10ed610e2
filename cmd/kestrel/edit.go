package main

import (
	"errors"
	"fmt"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/internal/logging"
	"github.com/etslang/kestrel/tree"
	"github.com/spf13/cobra"
)

var editFlags = struct {
	lang   *languageFlags
	start  *int
	end    *int
	text   *string
	sexp   *bool
	verify *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "edit <source file path> [new source file path]",
		Short: "Reparse a text after an edit, reusing the previous tree",
		Long: `edit parses a text, applies an edit, and reparses the result incrementally.
The edit either replaces the bytes [--start, --end) with --text, or turns the first
file into the second one.`,
		Example: `  kestrel edit app.ets --start 10 --end 15 --text 'count'
  kestrel edit old.ets new.ets --verify`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runEdit,
	}
	editFlags.lang = addLanguageFlags(cmd)
	editFlags.start = cmd.Flags().Int("start", -1, "byte offset where the replaced range starts")
	editFlags.end = cmd.Flags().Int("end", -1, "byte offset where the replaced range ends (default --start)")
	editFlags.text = cmd.Flags().String("text", "", "replacement text")
	editFlags.sexp = cmd.Flags().Bool("sexp", false, "print the tree as an S-expression")
	editFlags.verify = cmd.Flags().Bool("verify", false, "check that the result equals a parse from scratch")
	rootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	logger := loggerOf(cmd)
	ctx := cmd.Context()

	lang, err := editFlags.lang.resolve(args[0])
	if err != nil {
		return err
	}
	oldSrc, err := readSource(args[0])
	if err != nil {
		return err
	}

	var newSrc []byte
	var e tree.Edit
	if len(args) == 2 {
		newSrc, err = readSource(args[1])
		if err != nil {
			return err
		}
		e = diffEdit(oldSrc, newSrc)
	} else {
		if *editFlags.start < 0 {
			return errors.New("either a new source file or --start is required")
		}
		end := *editFlags.end
		if end < 0 {
			end = *editFlags.start
		}
		e, newSrc, err = applyEdit(oldSrc, *editFlags.start, end, []byte(*editFlags.text))
		if err != nil {
			return err
		}
	}

	p, err := parser.NewParser(lang, cfg.parserOptions()...)
	if err != nil {
		return err
	}
	old, err := p.Parse(ctx, oldSrc)
	if err != nil {
		return err
	}
	defer old.Close()

	tr, err := p.Reparse(ctx, old, e, newSrc)
	if err != nil {
		return err
	}
	defer tr.Close()

	styles := NewStyles(IsColorEnabled(cfg.Color, cmd.OutOrStdout()))
	if *editFlags.sexp {
		fmt.Fprintln(cmd.OutOrStdout(), tr.String())
	} else {
		tree.PrintNode(cmd.OutOrStdout(), tr.RootNode(), newSrc, styles.Decorator())
	}

	st := tr.Stats()
	logger.Info("reparsed",
		"edit", fmt.Sprintf("[%v, %v) -> [%v, %v)", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte),
		logging.FieldReused, st.Reused,
		logging.FieldCreated, st.Created,
	)

	if *editFlags.verify {
		fresh, err := parser.Parse(ctx, lang, newSrc, cfg.parserOptions()...)
		if err != nil {
			return err
		}
		defer fresh.Close()
		if !tree.Equal(fresh.Root(), tr.Root()) {
			return fmt.Errorf("the reparsed tree differs from a parse from scratch:\nreparsed: %v\nfresh:    %v", tr, fresh)
		}
		fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render("the reparsed tree equals a parse from scratch"))
	}
	return nil
}

// applyEdit replaces src[start:end] with text.
func applyEdit(src []byte, start, end int, text []byte) (tree.Edit, []byte, error) {
	e := tree.Edit{
		StartByte:  start,
		OldEndByte: end,
		NewEndByte: start + len(text),
	}
	if err := e.Validate(len(src)); err != nil {
		return tree.Edit{}, nil, err
	}
	newSrc := make([]byte, 0, len(src)+e.Delta())
	newSrc = append(newSrc, src[:start]...)
	newSrc = append(newSrc, text...)
	newSrc = append(newSrc, src[end:]...)
	return e, newSrc, nil
}

// diffEdit returns the single edit turning old into new: everything between their common
// prefix and common suffix.
func diffEdit(old, new []byte) tree.Edit {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix && old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	return tree.Edit{
		StartByte:  prefix,
		OldEndByte: len(old) - suffix,
		NewEndByte: len(new) - suffix,
	}
}
