package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/internal/logging"
	"github.com/etslang/kestrel/tree"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	lang    *languageFlags
	sexp    *bool
	stats   *bool
	trace   *bool
	timeout *time.Duration
	step    *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "parse [source file path]",
		Short: "Parse a text and print its syntax tree",
		Example: `  kestrel parse app.ets
  cat src | kestrel parse --grammar grammar.json --sexp`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParse,
	}
	parseFlags.lang = addLanguageFlags(cmd)
	parseFlags.sexp = cmd.Flags().Bool("sexp", false, "print the tree as an S-expression")
	parseFlags.stats = cmd.Flags().Bool("stats", false, "log the number of nodes and the elapsed time")
	parseFlags.trace = cmd.Flags().Bool("trace", false, "log every parser action at the debug level")
	parseFlags.timeout = cmd.Flags().Duration("timeout", 0, "cancel the parse after this duration and print the partial tree")
	parseFlags.step = cmd.Flags().Int("step", 0, "parse this many tokens at a time, logging the progress in between")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	logger := loggerOf(cmd)

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	lang, err := parseFlags.lang.resolve(path)
	if err != nil {
		return err
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}

	opts := cfg.parserOptions()
	if *parseFlags.trace {
		logger.SetLevel(log.DebugLevel)
		opts = append(opts, parser.Logger(logger))
	}
	p, err := parser.NewParser(lang, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if *parseFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *parseFlags.timeout)
		defer cancel()
	}

	begin := time.Now()
	var tr *tree.Tree
	if *parseFlags.step > 0 {
		tr, err = parseInSteps(ctx, cmd, p, src, *parseFlags.step)
	} else {
		tr, err = p.Parse(ctx, src)
	}
	elapsed := time.Since(begin)
	if tr == nil {
		return err
	}
	defer tr.Close()
	if err != nil {
		logger.Warn("the parse was cancelled; the rest of the text is an error node", logging.FieldError, err)
	}

	styles := NewStyles(IsColorEnabled(cfg.Color, cmd.OutOrStdout()))
	if *parseFlags.sexp {
		fmt.Fprintln(cmd.OutOrStdout(), tr.String())
	} else {
		tree.PrintNode(cmd.OutOrStdout(), tr.RootNode(), src, styles.Decorator())
	}

	if *parseFlags.stats {
		st := tr.Stats()
		logger.Info("parsed",
			logging.FieldLanguage, lang.Name(),
			logging.FieldNodes, st.Created,
			logging.FieldElapsed, elapsed,
		)
	}

	if tr.RootNode().HasError() {
		name := displayName(path)
		errStyles := NewStyles(IsColorEnabled(cfg.Color, cmd.ErrOrStderr()))
		synErrs := collectSyntaxErrors(tr, src)
		writeSyntaxErrors(cmd.ErrOrStderr(), name, synErrs, errStyles)
		return fmt.Errorf("%v: %v syntax errors", name, len(synErrs))
	}
	return nil
}

// parseInSteps drives a session a few tokens at a time.
func parseInSteps(ctx context.Context, cmd *cobra.Command, p *parser.Parser, src []byte, n int) (*tree.Tree, error) {
	logger := loggerOf(cmd)
	s := p.Start(src)
	for steps := 1; ; steps++ {
		done, err := s.Step(ctx, n)
		if err != nil {
			return s.Finish(ctx)
		}
		if done {
			break
		}
		logger.Debug("step", "steps", steps)
	}
	return s.Finish(ctx)
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}
