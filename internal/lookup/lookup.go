package lookup

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Screen queries when no locator strategy
// produced an element within the timeout. It marks an expected UI state,
// not a fault.
var ErrNotFound = errors.New("element not found")

// Screen is the slice of the proposals page the engine drives. The browser
// package implements it over a live page; tests substitute a fake.
type Screen interface {
	// Reset returns the page to a clean state before a new search: closes
	// any modal left open and clears the search field.
	Reset(ctx context.Context) error
	// Search types the contract number into the search field and submits.
	Search(ctx context.Context, contract string) error
	// Filter applies the pipeline filter that narrows results to proposals.
	Filter(ctx context.Context) error
	// NoResultsIndicator reports whether the explicit empty-result marker
	// is present on the page.
	NoResultsIndicator(ctx context.Context) bool
	// WaitRows blocks until at least one result row renders.
	WaitRows(ctx context.Context) error
	// PhaseCell returns the raw text of the first row's phase cell.
	PhaseCell(ctx context.Context) (string, error)
	// ExpandRow opens the first result row's detail view.
	ExpandRow(ctx context.Context) error
	// OpenApprovalStep navigates the detail view to the registration step's
	// history listing.
	OpenApprovalStep(ctx context.Context) error
	// ApprovalRow returns the text of the history row recording approval,
	// or ErrNotFound when no such row rendered in time.
	ApprovalRow(ctx context.Context) (string, error)
	// Close dismisses the detail view.
	Close(ctx context.Context) error
}

// Options bound the engine's waits.
type Options struct {
	// DefaultTimeout caps each locator query.
	DefaultTimeout time.Duration
	// HistoryWaitTimeout caps the wait for the lazily-loaded history rows.
	HistoryWaitTimeout time.Duration
	// SettleDelay is how long the engine waits after applying the filter
	// before probing for results. Zero disables the settle.
	SettleDelay time.Duration
	// PacingDelay is the idle gap Pace sleeps between consecutive lookups.
	PacingDelay time.Duration
}

// Outcome is the result of a single contract lookup. ApprovalDate is only
// ever set when Phase is a real phase, never alongside a sentinel.
type Outcome struct {
	Sequence     int    `json:"sequence"`
	Contract     string `json:"contract"`
	Phase        string `json:"phase"`
	ApprovalDate string `json:"approval_date,omitempty"`
}

// NotFoundOutcome builds the sentinel outcome for a contract with no record.
func NotFoundOutcome(seq int, contract string) Outcome {
	return Outcome{Sequence: seq, Contract: contract, Phase: PhaseNotFound}
}

// Engine runs the staged lookup sequence against a Screen.
type Engine struct {
	screen Screen
	opt    Options
	log    *zap.Logger
}

// New wires an engine. A nil logger falls back to zap.NewNop.
func New(screen Screen, opt Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.DefaultTimeout <= 0 {
		opt.DefaultTimeout = 10 * time.Second
	}
	if opt.HistoryWaitTimeout <= 0 {
		opt.HistoryWaitTimeout = 15 * time.Second
	}
	return &Engine{screen: screen, opt: opt, log: log}
}

// Lookup resolves one contract number to an Outcome. It never returns an
// error: every failure mode degrades to a sentinel or partial outcome so a
// batch caller can keep going. seq is the 1-based position in the batch,
// carried through for ordering the report.
func (e *Engine) Lookup(ctx context.Context, seq int, contract string) (out Outcome) {
	contract = strings.TrimSpace(contract)
	out = NotFoundOutcome(seq, contract)
	log := e.log.With(zap.Int("seq", seq), zap.String("contract", contract))

	defer func() {
		if r := recover(); r != nil {
			log.Error("lookup panicked, recording as not found", zap.Any("panic", r))
			out = NotFoundOutcome(seq, contract)
		}
	}()

	if err := e.screen.Reset(ctx); err != nil {
		log.Warn("page reset failed", zap.Error(err))
	}

	opened := false
	defer func() {
		if !opened {
			return
		}
		if err := e.screen.Close(ctx); err != nil {
			log.Warn("detail close failed", zap.Error(err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return out
	}
	if err := e.screen.Search(ctx, contract); err != nil {
		log.Warn("search field unavailable", zap.Error(err))
		return out
	}
	if err := e.screen.Filter(ctx); err != nil {
		log.Debug("filter not applied", zap.Error(err))
	}

	// The filter click starts a server round-trip and the previous search's
	// rows stay in the DOM until the response lands. Probing too early would
	// attribute the stale rows to this contract.
	e.settle(ctx)

	if e.screen.NoResultsIndicator(ctx) {
		log.Info("no record", zap.String("reason", "empty indicator"))
		return out
	}
	if err := e.screen.WaitRows(ctx); err != nil {
		log.Info("no record", zap.String("reason", "rows never rendered"), zap.Error(err))
		return out
	}

	cell, err := e.screen.PhaseCell(ctx)
	if err != nil {
		log.Warn("phase cell unreadable", zap.Error(err))
		out.Phase = PhaseUnknown
	} else {
		phase, tier := MatchPhase(cell)
		out.Phase = phase
		log.Info("phase extracted", zap.String("phase", phase), zap.Stringer("tier", tier))
	}

	if err := ctx.Err(); err != nil {
		return out
	}
	if err := e.screen.ExpandRow(ctx); err != nil {
		log.Warn("row expand failed, keeping phase without date", zap.Error(err))
		return out
	}
	opened = true

	if err := e.screen.OpenApprovalStep(ctx); err != nil {
		log.Warn("registration step unavailable", zap.Error(err))
		return out
	}
	row, err := e.screen.ApprovalRow(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info("no approval entry in history")
		} else {
			log.Warn("history read failed", zap.Error(err))
		}
		return out
	}
	if d := DateToken(row); d != "" {
		out.ApprovalDate = d
		log.Info("approval date extracted", zap.String("date", d))
	}
	return out
}

// settle sleeps the configured settle delay or until ctx is done.
func (e *Engine) settle(ctx context.Context) {
	if e.opt.SettleDelay <= 0 {
		return
	}
	t := time.NewTimer(e.opt.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Pace sleeps the configured pacing delay or until ctx is done.
func (e *Engine) Pace(ctx context.Context) {
	if e.opt.PacingDelay <= 0 {
		return
	}
	t := time.NewTimer(e.opt.PacingDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
