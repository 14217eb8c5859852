package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/qa-harvest/internal/config"
	"github.com/vrsandeep/qa-harvest/internal/core"
	"github.com/vrsandeep/qa-harvest/internal/logging"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "qa-cli",
	Short: "Harvest model and QA numbers from PDF documents",
	Long: `qa-cli runs a batch of PDF documents (or archives of them) through the
extraction pipeline and writes the results into a copy of a spreadsheet template.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory containing config.yml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openApp loads configuration and opens the database the server uses.
func openApp() (*core.App, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Init(level)
	return core.Open(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
