package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeScreen scripts every stage of a lookup.
type fakeScreen struct {
	searchErr       error
	filterErr       error
	noResults       bool
	waitRowsErr     error
	phaseCell       string
	phaseCellErr    error
	expandErr       error
	approvalStepErr error
	approvalRow     string
	approvalRowErr  error
	closeErr        error

	// indicatorAfter makes the no-results marker render only this long
	// after the filter click, like the portal's server round-trip.
	indicatorAfter time.Duration
	filteredAt     time.Time

	panicIn string

	resets   int
	searches []string
	expands  int
	closes   int
}

func (f *fakeScreen) maybePanic(stage string) {
	if f.panicIn == stage {
		panic("boom in " + stage)
	}
}

func (f *fakeScreen) Reset(ctx context.Context) error {
	f.resets++
	f.maybePanic("reset")
	return nil
}

func (f *fakeScreen) Search(ctx context.Context, contract string) error {
	f.searches = append(f.searches, contract)
	f.maybePanic("search")
	return f.searchErr
}

func (f *fakeScreen) Filter(ctx context.Context) error {
	f.filteredAt = time.Now()
	return f.filterErr
}

func (f *fakeScreen) NoResultsIndicator(ctx context.Context) bool {
	if f.indicatorAfter > 0 {
		return !f.filteredAt.IsZero() && time.Since(f.filteredAt) >= f.indicatorAfter
	}
	return f.noResults
}

func (f *fakeScreen) WaitRows(ctx context.Context) error { return f.waitRowsErr }

func (f *fakeScreen) PhaseCell(ctx context.Context) (string, error) {
	f.maybePanic("phaseCell")
	return f.phaseCell, f.phaseCellErr
}

func (f *fakeScreen) ExpandRow(ctx context.Context) error {
	if f.expandErr == nil {
		f.expands++
	}
	return f.expandErr
}

func (f *fakeScreen) OpenApprovalStep(ctx context.Context) error { return f.approvalStepErr }

func (f *fakeScreen) ApprovalRow(ctx context.Context) (string, error) {
	f.maybePanic("approvalRow")
	return f.approvalRow, f.approvalRowErr
}

func (f *fakeScreen) Close(ctx context.Context) error {
	f.closes++
	return f.closeErr
}

func newEngine(t *testing.T, screen Screen) *Engine {
	t.Helper()
	return New(screen, Options{
		DefaultTimeout:     time.Second,
		HistoryWaitTimeout: time.Second,
	}, zaptest.NewLogger(t))
}

func TestLookup_FullSuccess(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:   "Em Andamento\nAverbação",
		approvalRow: "12/05/2025 10:33",
	}
	eng := newEngine(t, screen)

	out := eng.Lookup(context.Background(), 1, " 90001234 ")

	want := Outcome{Sequence: 1, Contract: "90001234", Phase: "averbação", ApprovalDate: "12/05/2025"}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, screen.resets)
	assert.Equal(t, []string{"90001234"}, screen.searches)
	assert.Equal(t, 1, screen.closes, "detail view closed exactly once")
}

func TestLookup_HeuristicPhase(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:   "Pendente\nConferência Cartorial",
		approvalRow: "02/01/2025",
	}
	out := newEngine(t, screen).Lookup(context.Background(), 3, "777")

	assert.Equal(t, "Conferência Cartorial", out.Phase)
	assert.Equal(t, "02/01/2025", out.ApprovalDate)
}

func TestLookup_NoResultsIndicator(t *testing.T) {
	screen := &fakeScreen{noResults: true}
	out := newEngine(t, screen).Lookup(context.Background(), 2, "555")

	want := NotFoundOutcome(2, "555")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, out.ApprovalDate)
	assert.Zero(t, screen.expands)
	assert.Zero(t, screen.closes, "nothing opened, nothing to close")
}

func TestLookup_SettleOutwaitsSlowEmptyIndicator(t *testing.T) {
	// The previous search's row is still rendered when the filter fires,
	// so the phase cell reads as a real phase until the response lands.
	screen := &fakeScreen{
		indicatorAfter: 20 * time.Millisecond,
		phaseCell:      "Averbação",
		approvalRow:    "12/05/2025",
	}
	eng := New(screen, Options{
		DefaultTimeout:     time.Second,
		HistoryWaitTimeout: time.Second,
		SettleDelay:        200 * time.Millisecond,
	}, zaptest.NewLogger(t))

	out := eng.Lookup(context.Background(), 2, "555")

	want := NotFoundOutcome(2, "555")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, screen.expands, "stale row must not be opened")
}

func TestLookup_RowsNeverRender(t *testing.T) {
	screen := &fakeScreen{waitRowsErr: ErrNotFound}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "555")

	assert.Equal(t, PhaseNotFound, out.Phase)
	assert.Empty(t, out.ApprovalDate)
}

func TestLookup_SearchFieldMissing(t *testing.T) {
	screen := &fakeScreen{searchErr: ErrNotFound}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "555")

	assert.Equal(t, PhaseNotFound, out.Phase)
	assert.Zero(t, screen.closes)
}

func TestLookup_FilterFailureIsTolerated(t *testing.T) {
	screen := &fakeScreen{
		filterErr:   errors.New("filter button gone"),
		phaseCell:   "Integrado",
		approvalRow: "01/04/2025 09:00",
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	assert.Equal(t, "integrado", out.Phase)
	assert.Equal(t, "01/04/2025", out.ApprovalDate)
}

func TestLookup_PhaseCellUnreadable(t *testing.T) {
	screen := &fakeScreen{
		phaseCellErr: errors.New("stale element"),
		approvalRow:  "01/04/2025",
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	// The record exists, so its history is still worth reading.
	assert.Equal(t, PhaseUnknown, out.Phase)
	assert.Equal(t, "01/04/2025", out.ApprovalDate)
}

func TestLookup_ExpandFails_KeepsPhase(t *testing.T) {
	screen := &fakeScreen{
		phaseCell: "Averbação",
		expandErr: errors.New("row not clickable"),
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	assert.Equal(t, "averbação", out.Phase)
	assert.Empty(t, out.ApprovalDate)
	assert.Zero(t, screen.closes, "expand failed, detail never opened")
}

func TestLookup_ApprovalStepFails_KeepsPhase(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:       "Averbação",
		approvalStepErr: ErrNotFound,
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	assert.Equal(t, "averbação", out.Phase)
	assert.Empty(t, out.ApprovalDate)
	assert.Equal(t, 1, screen.closes, "detail opened, must be closed")
}

func TestLookup_NoApprovalEntry(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:      "Crédito",
		approvalRowErr: ErrNotFound,
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	assert.Equal(t, "crédito", out.Phase)
	assert.Empty(t, out.ApprovalDate)
	assert.Equal(t, 1, screen.closes)
}

func TestLookup_CloseFailureDoesNotChangeOutcome(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:   "Pago",
		approvalRow: "03/03/2025",
		closeErr:    errors.New("modal stuck"),
	}
	out := newEngine(t, screen).Lookup(context.Background(), 1, "123")

	assert.Equal(t, "pago", out.Phase)
	assert.Equal(t, "03/03/2025", out.ApprovalDate)
}

func TestLookup_PanicBecomesNotFound(t *testing.T) {
	for _, stage := range []string{"reset", "search", "phaseCell", "approvalRow"} {
		t.Run(stage, func(t *testing.T) {
			screen := &fakeScreen{
				phaseCell:   "Averbação",
				approvalRow: "12/05/2025",
				panicIn:     stage,
			}
			out := newEngine(t, screen).Lookup(context.Background(), 7, "999")

			want := NotFoundOutcome(7, "999")
			if diff := cmp.Diff(want, out); diff != "" {
				t.Errorf("outcome mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookup_PanicAfterOpenStillCloses(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:   "Averbação",
		approvalRow: "12/05/2025",
		panicIn:     "approvalRow",
	}
	_ = newEngine(t, screen).Lookup(context.Background(), 1, "999")
	assert.Equal(t, 1, screen.closes)
}

func TestLookup_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	screen := &fakeScreen{phaseCell: "Averbação"}
	out := newEngine(t, screen).Lookup(ctx, 1, "123")

	assert.Equal(t, PhaseNotFound, out.Phase)
	assert.Empty(t, screen.searches, "no search after cancellation")
}

func TestLookup_Repeatable(t *testing.T) {
	screen := &fakeScreen{
		phaseCell:   "Integrado",
		approvalRow: "20/04/2025 08:12",
	}
	eng := newEngine(t, screen)

	first := eng.Lookup(context.Background(), 1, "123")
	second := eng.Lookup(context.Background(), 1, "123")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeat lookup diverged (-first +second):\n%s", diff)
	}
	assert.Equal(t, 2, screen.resets, "every lookup starts with a reset")
}

func TestPace(t *testing.T) {
	eng := New(&fakeScreen{}, Options{PacingDelay: 10 * time.Millisecond}, zaptest.NewLogger(t))

	start := time.Now()
	eng.Pace(context.Background())
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestPace_CancelledContextReturnsFast(t *testing.T) {
	eng := New(&fakeScreen{}, Options{PacingDelay: time.Minute}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	eng.Pace(ctx)
	require.Less(t, time.Since(start), time.Second)
}
