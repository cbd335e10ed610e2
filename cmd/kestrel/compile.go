package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/internal/logging"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile [grammar file path]",
		Short:   "Compile a grammar definition into a grammar table",
		Example: `  kestrel compile grammar.yaml -o grammar.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger := loggerOf(cmd)

	var gram *grammar.Grammar
	if len(args) > 0 {
		var err error
		gram, err = readGrammar(args[0])
		if err != nil {
			return err
		}
	} else {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		def, err := grammar.ParseDefinition(bytes.NewReader(src))
		if err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		b := grammar.GrammarBuilder{
			Definition: def,
			SourceName: "stdin",
		}
		gram, err = b.Build()
		if err != nil {
			return err
		}
	}

	cgram, report, err := grammar.Compile(gram, grammar.EnableReporting())
	if err != nil {
		return err
	}

	cgramPath, reportPath, err := writeCompiledGrammarAndReport(cmd.OutOrStdout(), cgram, report, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("cannot write the output files: %w", err)
	}

	logger.Info("compiled",
		logging.FieldLanguage, cgram.Name,
		logging.FieldStates, cgram.Syntactic.StateCount,
		logging.FieldOutput, cgramPath,
	)
	if n := report.ImplicitlyResolved(); n > 0 {
		logger.Warn("conflicts resolved implicitly; see the report", logging.FieldConflict, n, logging.FieldPath, reportPath)
	}
	return nil
}

// writeCompiledGrammarAndReport writes a compiled grammar and a report to files located at a specified path.
// This function selects one of the following output methods depending on how the path is specified.
//
//  1. When the path is a directory path, this function writes the compiled grammar and the report to
//     <path>/<grammar-name>.json and <path>/<grammar-name>-report.json files, respectively.
//  2. When the path is a file path or a non-existent path, this function assumes that the path represents a file
//     path for the compiled grammar. Then it also writes the report in the same directory as the compiled grammar.
//  3. When the path is an empty string, this function writes the compiled grammar to w and writes
//     the report to a file named <current-directory>/<grammar-name>-report.json.
func writeCompiledGrammarAndReport(w io.Writer, cgram *spec.CompiledGrammar, report *grammar.Report, path string) (string, string, error) {
	cgramPath, reportPath, err := makeOutputFilePaths(cgram.Name, path)
	if err != nil {
		return "", "", err
	}

	{
		cgramW := w
		if cgramPath != "" {
			cgramFile, err := os.OpenFile(cgramPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return "", "", err
			}
			defer cgramFile.Close()
			cgramW = cgramFile
		}
		if err := cgram.Save(cgramW); err != nil {
			return "", "", err
		}
	}

	{
		reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return "", "", err
		}
		defer reportFile.Close()

		b, err := json.Marshal(report)
		if err != nil {
			return "", "", err
		}
		fmt.Fprintf(reportFile, "%v\n", string(b))
	}

	if cgramPath == "" {
		cgramPath = "stdout"
	}
	return cgramPath, reportPath, nil
}

func makeOutputFilePaths(gramName string, path string) (string, string, error) {
	reportFileName := gramName + "-report.json"

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		return "", filepath.Join(wd, reportFileName), nil
	}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", err
	}
	if os.IsNotExist(err) || !fi.IsDir() {
		dir, _ := filepath.Split(path)
		return path, filepath.Join(dir, reportFileName), nil
	}

	return filepath.Join(path, gramName+".json"), filepath.Join(path, reportFileName), nil
}
