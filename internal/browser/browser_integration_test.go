//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"esteira/internal/browser"
	"esteira/internal/lookup"
)

const portalFixture = `
<html>
<body>
	<input placeholder="Pesquisa" type="text" />
	<table>
		<tbody>
			<tr>
				<td><button class="expand">+</button></td>
				<td>Averbação</td>
			</tr>
		</tbody>
	</table>
	<div class="step">Averbação</div>
	<div class="hist">
		<table>
			<tbody>
				<tr>
					<td>12/05/2025 10:33</td>
					<td>Proposta aprovada ao realizar averba&ccedil;&atilde;o</td>
				</tr>
			</tbody>
		</table>
	</div>
</body>
</html>
`

func TestLookupAgainstStubPortal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, portalFixture)
	}))
	defer ts.Close()

	log := zaptest.NewLogger(t)
	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.PortalURL = ts.URL
	cfg.NavigationTimeout = 10 * time.Second

	sess := browser.NewSession(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, sess.Connect(ctx), "failed to start browser")
	defer func() {
		if err := sess.Shutdown(); err != nil {
			t.Logf("shutdown error: %v", err)
		}
	}()

	screen := browser.NewProposalsScreen(sess.Page(), 5*time.Second, 5*time.Second, log)
	eng := lookup.New(screen, lookup.Options{
		DefaultTimeout:     5 * time.Second,
		HistoryWaitTimeout: 5 * time.Second,
	}, log)

	out := eng.Lookup(ctx, 1, "90001234")
	require.Equal(t, "averbação", out.Phase)
	require.Equal(t, "12/05/2025", out.ApprovalDate)
	require.Equal(t, 1, out.Sequence)
}

func TestLookupNoRecordAgainstStubPortal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
			<input placeholder="Pesquisa" type="text" />
			<p>Nenhum registro encontrado</p>
		</body></html>`)
	}))
	defer ts.Close()

	log := zaptest.NewLogger(t)
	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.PortalURL = ts.URL

	sess := browser.NewSession(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, sess.Connect(ctx), "failed to start browser")
	defer func() { _ = sess.Shutdown() }()

	screen := browser.NewProposalsScreen(sess.Page(), 3*time.Second, 3*time.Second, log)
	eng := lookup.New(screen, lookup.Options{
		DefaultTimeout:     3 * time.Second,
		HistoryWaitTimeout: 3 * time.Second,
	}, log)

	out := eng.Lookup(ctx, 1, "00000000")
	require.Equal(t, lookup.PhaseNotFound, out.Phase)
	require.Empty(t, out.ApprovalDate)
}
