package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/etslang/kestrel/internal/logging"
	"github.com/spf13/cobra"

	// Bundled languages register themselves.
	_ "github.com/etslang/kestrel/grammars/ets"
)

var rootFlags = struct {
	config   *string
	logLevel *string
	color    *string
}{}

// cfg is the configuration resolved before any command runs.
var cfg = defaultConfig()

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Compile grammars and parse text incrementally",
	Long: `kestrel provides the following features:
- Compiles a grammar written in YAML into a grammar table.
- Parses a text with a bundled or compiled language and prints the syntax tree.
- Applies an edit to a text and reparses it, reusing the unchanged parts of the previous tree.
- Runs corpus tests against a language.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setUp,
}

func init() {
	rootFlags.config = rootCmd.PersistentFlags().String("config", "", "configuration file path (default ./kestrel.yaml when it exists)")
	rootFlags.logLevel = rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootFlags.color = rootCmd.PersistentFlags().String("color", "", "color mode: auto, always, or never")
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
}

func setUp(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(*rootFlags.config)
	if err != nil {
		return err
	}
	if *rootFlags.logLevel != "" {
		c.LogLevel = *rootFlags.logLevel
	}
	if *rootFlags.color != "" {
		c.Color = *rootFlags.color
	}
	cfg = c

	logger := logging.New(cfg.LogLevel)
	logging.SetDefault(logger)
	cmd.SetContext(logging.WithLogger(contextOf(cmd), logger))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loggerOf(cmd *cobra.Command) *log.Logger {
	return logging.FromContext(cmd.Context())
}

// Execute runs the command line and logs the error it ends with, if any.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		logging.Default().Error(err)
		return err
	}
	return nil
}
