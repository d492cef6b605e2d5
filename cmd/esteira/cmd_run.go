// Package main implements the esteira CLI commands.
// This file contains the batch run command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"esteira/internal/batch"
	"esteira/internal/browser"
	"esteira/internal/config"
	"esteira/internal/contracts"
	"esteira/internal/lookup"
	"esteira/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run [input-file]",
	Short: "Look up every contract in a file and save the Excel report",
	Long: `Reads contract numbers from the input file (the regulator's delimited
export or plain one-per-line, optionally gzip compressed or Latin-1 encoded),
logs into the portal, resolves each contract's pipeline phase and approval
date, and saves the report workbook.

Credentials come from ESTEIRA_USER and ESTEIRA_PASS.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if headless {
		cfg.Browser.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	numbers, skipped, err := contracts.Read(args[0], cfg.Batch.InputEncoding)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		return fmt.Errorf("no contract numbers in %s", args[0])
	}
	logger.Info("input loaded",
		zap.String("file", args[0]),
		zap.Int("contracts", len(numbers)),
		zap.Int("skipped_lines", skipped))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// First Ctrl+C stops after the current contract; the report still saves.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\nStopping after the current contract...")
			cancel()
		case <-ctx.Done():
		}
	}()

	eng, shutdown, err := connectEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	runner := batch.New(eng, batch.Options{
		PartialSaveEvery: cfg.Batch.PartialSaveEvery,
		OutputDir:        cfg.Batch.OutputDir,
	}, logger)

	res, err := runner.Run(ctx, numbers)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary(res.Outcomes))
	fmt.Printf("Relatório salvo em: %s\n", res.ReportPath)
	if res.Interrupted {
		fmt.Printf("Execução interrompida: %d de %d contratos consultados\n",
			len(res.Outcomes), res.Total)
	}
	return nil
}

// connectEngine launches Chrome, authenticates, and wires the lookup engine.
func connectEngine(ctx context.Context, cfg *config.Config) (*lookup.Engine, func(), error) {
	bcfg := browser.DefaultConfig()
	bcfg.DebuggerURL = cfg.Browser.DebuggerURL
	bcfg.Bin = cfg.Browser.Bin
	bcfg.Flags = cfg.Browser.Flags
	bcfg.Headless = cfg.Browser.Headless
	bcfg.ViewportWidth = cfg.Browser.ViewportWidth
	bcfg.ViewportHeight = cfg.Browser.ViewportHeight
	bcfg.NavigationTimeout = cfg.NavigationTimeout()
	bcfg.PortalURL = cfg.Portal.URL

	sess := browser.NewSession(bcfg, logger)
	if err := sess.Connect(ctx); err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		if err := sess.Shutdown(); err != nil {
			logger.Warn("browser shutdown failed", zap.Error(err))
		}
	}

	if err := sess.Login(ctx, cfg.Portal.Username, cfg.Portal.Password); err != nil {
		shutdown()
		return nil, nil, err
	}

	screen := browser.NewProposalsScreen(sess.Page(), cfg.DefaultTimeout(), cfg.HistoryWaitTimeout(), logger)
	eng := lookup.New(screen, lookup.Options{
		DefaultTimeout:     cfg.DefaultTimeout(),
		HistoryWaitTimeout: cfg.HistoryWaitTimeout(),
		SettleDelay:        cfg.SettleDelay(),
		PacingDelay:        cfg.PacingDelay(),
	}, logger)
	return eng, shutdown, nil
}
