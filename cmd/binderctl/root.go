package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"binderflow/backend/internal/config"
	"binderflow/backend/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configFile string
	logLevel   string
}

// fs backs every file the commands read and write.
var fs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "binderctl",
	Short: "Design and score protein binders from the command line",
	Long: `binderctl drives the binder design pipeline locally: predict a target
structure, generate a scaffold, design sequences, predict the complex and
score the interface. Sessions are stored in the configured database.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configFile, "config", "", "Path to config file (default: ./config.yaml)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and a stderr logger for a command.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadConfig(rootFlags.configFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	logger := logging.NewLogger(level, cfg.Log.Format, os.Stderr)
	logger.SetDefault()
	return cfg, logger, nil
}

func readText(path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
