package main

import (
	"errors"
	"fmt"

	"github.com/etslang/kestrel/internal/logging"
	"github.com/etslang/kestrel/tester"
	"github.com/spf13/cobra"
)

var testFlags = struct {
	lang *languageFlags
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "test <test file path>|<test directory path>",
		Short: "Run corpus tests against a language",
		Example: `  kestrel test grammars/ets/testdata/corpus
  kestrel test --grammar grammar.yaml corpus`,
		Args: cobra.ExactArgs(1),
		RunE: runTest,
	}
	testFlags.lang = addLanguageFlags(cmd)
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	logger := loggerOf(cmd)

	lang, err := testFlags.lang.resolve("")
	if err != nil {
		return err
	}

	var cs []*tester.TestCaseWithMetadata
	{
		cs = tester.ListTestCases(args[0])
		errOccurred := false
		for _, c := range cs {
			if c.Error != nil {
				logger.Error("cannot read a test case", logging.FieldPath, c.FilePath, logging.FieldError, c.Error)
				errOccurred = true
			}
		}
		if errOccurred {
			return errors.New("cannot run the tests")
		}
	}

	t := &tester.Tester{
		Language: lang,
		Cases:    cs,
		Options:  cfg.parserOptions(),
	}
	rs := t.Run(cmd.Context())

	styles := NewStyles(IsColorEnabled(cfg.Color, cmd.OutOrStdout()))
	failed := 0
	for _, r := range rs {
		if r.Error != nil {
			failed++
			fmt.Fprintln(cmd.OutOrStdout(), styles.Failure.Render(r.String()))
			if r.Actual != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "    actual:\n%s\n", indent(r.Actual.Format(), "        "))
			}
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render(r.String()))
	}
	logger.Info("tested", logging.FieldLanguage, lang.Name(), logging.FieldCases, len(rs), logging.FieldFailed, failed)
	if failed > 0 {
		return fmt.Errorf("%v of %v tests failed", failed, len(rs))
	}
	return nil
}

func indent(b []byte, prefix string) []byte {
	out := make([]byte, 0, len(b)+len(prefix))
	out = append(out, prefix...)
	for _, c := range b {
		out = append(out, c)
		if c == '\n' {
			out = append(out, prefix...)
		}
	}
	return out
}
