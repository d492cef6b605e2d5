package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"esteira/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	headless   bool
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "esteira",
	Short: "esteira - consulta de fase de contratos na esteira de propostas",
	Long: `esteira automates pipeline-status lookups on the proposals portal.

The portal has no API, so status is read the way an analyst would read it:
search the contract, open the record, and pull the phase and the approval
date from the registration history. Results land in a styled Excel report.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "esteira.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run Chrome headless")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 4*time.Hour, "Overall run timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(reportCmd)
}

// buildLogger builds the process logger from the logging config. --verbose
// forces debug regardless of the configured level.
func buildLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if cfg.Logging.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.Logging.File)
	}
	return zc.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
