// Package batch walks a list of contract numbers through the lookup engine,
// saving intermediate reports so a crash mid-run never loses finished work.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esteira/internal/lookup"
	"esteira/internal/report"
)

// Looker resolves one contract. The lookup engine implements it; tests stub it.
type Looker interface {
	Lookup(ctx context.Context, seq int, contract string) lookup.Outcome
	Pace(ctx context.Context)
}

// Options configures a batch run.
type Options struct {
	// PartialSaveEvery writes an intermediate workbook after this many
	// contracts. Zero disables partial saves.
	PartialSaveEvery int
	// OutputDir receives the workbook and the JSON sidecar.
	OutputDir string
}

// Result summarizes a finished run.
type Result struct {
	RunID       string           `json:"run_id"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Total       int              `json:"total"`
	Interrupted bool             `json:"interrupted,omitempty"`
	Outcomes    []lookup.Outcome `json:"outcomes"`

	ReportPath  string `json:"report_path"`
	SidecarPath string `json:"sidecar_path"`
}

// Runner executes batches.
type Runner struct {
	looker Looker
	opt    Options
	log    *zap.Logger

	save func(path string, outcomes []lookup.Outcome, now time.Time) error
	now  func() time.Time
}

// New wires a runner. A nil logger falls back to zap.NewNop.
func New(looker Looker, opt Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.OutputDir == "" {
		opt.OutputDir = "."
	}
	return &Runner{
		looker: looker,
		opt:    opt,
		log:    log,
		save:   report.Save,
		now:    time.Now,
	}
}

// Run looks up every contract in order. Cancelling ctx stops the walk after
// the current contract; everything finished so far is still reported.
func (r *Runner) Run(ctx context.Context, contracts []string) (*Result, error) {
	started := r.now()
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Total:     len(contracts),
	}
	res.ReportPath = filepath.Join(r.opt.OutputDir,
		fmt.Sprintf("relatorio_esteira_%s.xlsx", started.Format("20060102_1504")))
	res.SidecarPath = filepath.Join(r.opt.OutputDir,
		fmt.Sprintf("relatorio_esteira_%s.json", started.Format("20060102_1504")))

	log := r.log.With(zap.String("run_id", res.RunID))
	log.Info("batch started", zap.Int("contracts", len(contracts)))

	for i, contract := range contracts {
		if err := ctx.Err(); err != nil {
			log.Warn("batch interrupted", zap.Int("done", i), zap.Error(err))
			res.Interrupted = true
			break
		}
		if i > 0 {
			r.looker.Pace(ctx)
		}

		out := r.looker.Lookup(ctx, i+1, contract)
		res.Outcomes = append(res.Outcomes, out)

		done := i + 1
		if r.opt.PartialSaveEvery > 0 && done%r.opt.PartialSaveEvery == 0 && done < len(contracts) {
			partial := report.PartialPath(res.ReportPath)
			if err := r.save(partial, res.Outcomes, r.now()); err != nil {
				log.Warn("partial save failed", zap.String("path", partial), zap.Error(err))
			} else {
				log.Info("partial report saved", zap.String("path", partial), zap.Int("done", done))
			}
		}
	}

	res.FinishedAt = r.now()
	if err := r.save(res.ReportPath, res.Outcomes, res.FinishedAt); err != nil {
		return res, fmt.Errorf("save report: %w", err)
	}
	if err := r.writeSidecar(res); err != nil {
		log.Warn("sidecar write failed", zap.Error(err))
	}
	var notFound, withDate int
	for _, out := range res.Outcomes {
		if out.Phase == lookup.PhaseNotFound {
			notFound++
		}
		if out.ApprovalDate != "" {
			withDate++
		}
	}
	log.Info("batch finished",
		zap.Int("done", len(res.Outcomes)),
		zap.Int("not_found", notFound),
		zap.Int("with_approval_date", withDate),
		zap.Duration("elapsed", res.FinishedAt.Sub(started)),
		zap.String("report", res.ReportPath))
	return res, nil
}

// writeSidecar stores the raw outcomes as JSON next to the workbook so other
// tooling can consume the run without parsing xlsx.
func (r *Runner) writeSidecar(res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(res.SidecarPath, data, 0644)
}
