package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/etslang/kestrel/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "describe <report file path>",
		Short:   "Print a grammar report in readable format",
		Example: `  kestrel describe grammar-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runDescribe,
	}
	rootCmd.AddCommand(cmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}
	grammar.WriteReport(cmd.OutOrStdout(), report)
	return nil
}

func readReport(path string) (*grammar.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the report file %v: %w", path, err)
	}
	report := &grammar.Report{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("cannot read the report file %v: %w", path, err)
	}
	return report, nil
}
