// This file contains the single-contract lookup command.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"esteira/internal/config"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [contract-number]",
	Short: "Look up a single contract and print its phase",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	eng, shutdown, err := connectEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	out := eng.Lookup(ctx, 1, args[0])
	fmt.Printf("Contrato:  %s\n", out.Contract)
	fmt.Printf("Fase:      %s\n", out.Phase)
	if out.ApprovalDate != "" {
		fmt.Printf("Averbação: %s\n", out.ApprovalDate)
	}
	return nil
}
