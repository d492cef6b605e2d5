package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"go.uber.org/zap"

	"esteira/internal/lookup"
)

// ProposalsScreen implements lookup.Screen over the live proposals page.
type ProposalsScreen struct {
	page           *rod.Page
	defaultTimeout time.Duration
	historyTimeout time.Duration
	log            *zap.Logger
}

// NewProposalsScreen binds the screen driver to an authenticated page.
func NewProposalsScreen(page *rod.Page, defaultTimeout, historyTimeout time.Duration, log *zap.Logger) *ProposalsScreen {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	if historyTimeout <= 0 {
		historyTimeout = 15 * time.Second
	}
	return &ProposalsScreen{
		page:           page,
		defaultTimeout: defaultTimeout,
		historyTimeout: historyTimeout,
		log:            log,
	}
}

// Reset dismisses any leftover modal and clears the search field.
func (s *ProposalsScreen) Reset(ctx context.Context) error {
	page := s.page.Context(ctx)
	if existsNow(page, closeButtonStrategies) {
		_ = s.Close(ctx)
	}
	_ = pressEscape(page)
	if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		s.log.Debug("scroll to top failed", zap.Error(err))
	}

	el, err := query(page, s.defaultTimeout, searchFieldStrategies)
	if err != nil {
		return fmt.Errorf("search field: %w", err)
	}
	if v, perr := el.Property("value"); perr == nil && v.Str() != "" {
		if cerr := clearAndType(el, ""); cerr != nil {
			return fmt.Errorf("clear search field: %w", cerr)
		}
	}
	return nil
}

// Search types the contract number into the search field and submits.
func (s *ProposalsScreen) Search(ctx context.Context, contract string) error {
	page := s.page.Context(ctx)
	el, err := query(page, s.defaultTimeout, searchFieldStrategies)
	if err != nil {
		return fmt.Errorf("search field: %w", err)
	}
	if err := clearAndType(el, contract); err != nil {
		return fmt.Errorf("type contract: %w", err)
	}
	return el.Type(input.Enter)
}

// Filter clicks the proposals filter button when present.
func (s *ProposalsScreen) Filter(ctx context.Context) error {
	page := s.page.Context(ctx)
	el, err := query(page, s.defaultTimeout, filterButtonStrategies)
	if err != nil {
		return err
	}
	return click(el)
}

// NoResultsIndicator reports whether the empty-result marker is on screen.
// It does not wait: the caller decides how long to give the page to settle.
func (s *ProposalsScreen) NoResultsIndicator(ctx context.Context) bool {
	return existsNow(s.page.Context(ctx), noResultsStrategies)
}

// WaitRows blocks until a result row renders.
func (s *ProposalsScreen) WaitRows(ctx context.Context) error {
	_, err := query(s.page.Context(ctx), s.defaultTimeout, resultRowStrategies)
	return err
}

// PhaseCell returns the raw text of the first row's phase cell.
func (s *ProposalsScreen) PhaseCell(ctx context.Context) (string, error) {
	el, err := query(s.page.Context(ctx), s.defaultTimeout, phaseCellStrategies)
	if err != nil {
		return "", err
	}
	return el.Text()
}

// ExpandRow opens the first result row's detail view.
func (s *ProposalsScreen) ExpandRow(ctx context.Context) error {
	el, err := query(s.page.Context(ctx), s.defaultTimeout, expandRowStrategies)
	if err != nil {
		return err
	}
	return click(el)
}

// OpenApprovalStep navigates the detail view to the registration step and
// surfaces its history listing.
func (s *ProposalsScreen) OpenApprovalStep(ctx context.Context) error {
	page := s.page.Context(ctx)
	el, err := query(page, s.defaultTimeout, approvalStepStrategies)
	if err != nil {
		return err
	}
	if err := click(el); err != nil {
		return err
	}
	// Some revisions render the history inline, some behind a tab.
	if tab, terr := query(page, s.defaultTimeout, historyHeadingStrategies); terr == nil {
		if cerr := click(tab); cerr != nil {
			s.log.Debug("history heading not clickable", zap.Error(cerr))
		}
	}
	return nil
}

// ApprovalRow returns the text of the leading cell of the history row that
// records the approval, waiting up to the history timeout for the lazily
// loaded listing.
func (s *ProposalsScreen) ApprovalRow(ctx context.Context) (string, error) {
	el, err := query(s.page.Context(ctx), s.historyTimeout, approvalRowStrategies)
	if err != nil {
		return "", err
	}
	markup, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("read history row: %w", err)
	}
	cell, err := FirstCellText(markup)
	if err != nil || cell == "" {
		// Rows without td children still carry the date in their text.
		return el.Text()
	}
	return cell, nil
}

// Close dismisses the detail view, trying the close buttons then Escape.
func (s *ProposalsScreen) Close(ctx context.Context) error {
	page := s.page.Context(ctx)
	if el, err := query(page, s.defaultTimeout, closeButtonStrategies); err == nil {
		if cerr := click(el); cerr == nil {
			return nil
		}
	}
	if err := pressEscape(page); err != nil {
		return fmt.Errorf("dismiss detail view: %w", err)
	}
	return nil
}

var _ lookup.Screen = (*ProposalsScreen)(nil)
