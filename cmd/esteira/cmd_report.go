// This file contains the report regeneration command.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"esteira/internal/batch"
	"esteira/internal/report"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report [run-sidecar.json]",
	Short: "Regenerate the Excel workbook from a saved run",
	Long: `Every run saves a JSON sidecar next to the workbook. This command
rebuilds the workbook from that sidecar, useful after tweaking a crashed
run's partial data by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "Workbook path (default: derived from the sidecar)")
}

func runReport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}

	var res batch.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("parse sidecar: %w", err)
	}
	if len(res.Outcomes) == 0 {
		return fmt.Errorf("sidecar has no outcomes")
	}

	out := reportOut
	if out == "" {
		out = res.ReportPath
	}
	if err := report.Save(out, res.Outcomes, time.Now()); err != nil {
		return err
	}

	fmt.Println(report.Summary(res.Outcomes))
	fmt.Printf("Relatório salvo em: %s\n", out)
	return nil
}
