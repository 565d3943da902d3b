package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/config"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/client/store"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/dmitrijs2005/finnysync/internal/remotesim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dsn     string
	url     string
	grace   time.Duration
	backend *remotesim.Backend
}

// newOnlineEnv serves a fresh backend without authentication.
func newOnlineEnv(t *testing.T) *cliEnv {
	t.Helper()
	b := remotesim.NewBackend(0, "", nil)
	srv := httptest.NewServer(remotesim.NewHTTPHandler("/api", b, nil, nil))
	t.Cleanup(srv.Close)
	return &cliEnv{dsn: filepath.Join(t.TempDir(), "data", "finny.db"), url: srv.URL, grace: 5 * time.Second, backend: b}
}

// newOfflineEnv points at a server that is already gone, so queued syncs
// never run and local ids stay stable.
func newOfflineEnv(t *testing.T) *cliEnv {
	t.Helper()
	srv := httptest.NewServer(nil)
	srv.Close()
	return &cliEnv{dsn: filepath.Join(t.TempDir(), "finny.db"), url: srv.URL, grace: 50 * time.Millisecond}
}

func (e *cliEnv) runIn(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	r := &runner{newApp: func(ctx context.Context, cfg *config.Config) (*App, error) {
		app, err := NewApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.DrainGrace = e.grace
		return app, nil
	}}

	args = append(args,
		"--db-dsn="+e.dsn,
		"--server-url="+e.url+"/api",
		"--request-timeout=2s",
		"--log-level=error",
	)
	var out, errOut bytes.Buffer
	err := r.execute(ctx, args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func (e *cliEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.runIn(t, context.Background(), "", args...)
	require.NoError(t, err, "finny %s", strings.Join(args, " "))
	return out
}

func (e *cliEnv) openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), dbx.SQLite, e.dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func matches(t *testing.T, pattern, s string) {
	t.Helper()
	assert.Regexp(t, regexp.MustCompile(pattern), s)
}

func TestCLI_OfflineBudgetsAndTransactions(t *testing.T) {
	e := newOfflineEnv(t)

	budgetID := strings.TrimSpace(e.run(t, "budget", "add", "--name", "Food", "--limit", "100"))
	require.True(t, models.IsLocalID(budgetID), budgetID)

	txID := strings.TrimSpace(e.run(t, "tx", "add",
		"--budget", budgetID, "--name", "Bread", "--amount", "2.40", "--category", "food",
		"--at", "2024-05-02T08:30:00Z"))
	require.True(t, models.IsLocalID(txID), txID)

	list := e.run(t, "tx", "list")
	assert.Contains(t, list, "Bread")
	assert.Contains(t, list, "2.40")
	assert.Contains(t, list, "OUTCOME")
	assert.Contains(t, list, "FOOD")

	assert.Contains(t, e.run(t, "tx", "list", "--type", "income"), "no transactions")

	details := e.run(t, "budget", "details", budgetID)
	assert.Contains(t, details, "97.60")
	assert.Contains(t, details, "2.4%")

	status := e.run(t, "status")
	matches(t, `pending budgets:\s+1`, status)
	matches(t, `pending transactions:\s+1`, status)
	matches(t, `last sync:\s+never`, status)
	matches(t, `remote:\s+offline`, status)
	matches(t, `login:\s+logged out`, status)

	e.run(t, "budget", "update", budgetID, "--name", "Groceries")
	assert.Contains(t, e.run(t, "budget", "list", "--name", "Groc"), "Groceries")

	e.run(t, "tx", "rm", txID)
	assert.Contains(t, e.run(t, "tx", "list"), "no transactions")

	e.run(t, "budget", "rm", budgetID)
	assert.Contains(t, e.run(t, "budget", "list"), "no budgets")
}

func TestCLI_OnlineSync(t *testing.T) {
	e := newOnlineEnv(t)

	e.run(t, "budget", "add", "--name", "Rent", "--limit", "900", "--period", "1_month")

	out := e.run(t, "sync")
	assert.Contains(t, out, "budgets")
	assert.Contains(t, out, "finished in")
	assert.Len(t, e.backend.Budgets(remotesim.DefaultUser), 1)

	list := e.run(t, "budget", "list")
	assert.Contains(t, list, "Rent")
	assert.Contains(t, list, "900.00")

	status := e.run(t, "status")
	matches(t, `pending budgets:\s+0`, status)
	matches(t, `remote:\s+online`, status)
	assert.NotContains(t, status, "never")
}

func TestCLI_SyncFailureIsReported(t *testing.T) {
	e := newOfflineEnv(t)
	e.run(t, "budget", "add", "--name", "Fun", "--limit", "10")

	out, err := e.runIn(t, context.Background(), "", "sync")
	require.Error(t, err)
	assert.True(t, remote.IsRetryable(err))
	assert.Contains(t, out, "pull failed")

	status := e.run(t, "status")
	matches(t, `last sync:.*failed`, status)
}

func TestCLI_Validation(t *testing.T) {
	e := newOfflineEnv(t)

	_, err := e.runIn(t, context.Background(), "", "budget", "add", "--limit", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	_, err = e.runIn(t, context.Background(), "", "budget", "add", "--name", "x", "--limit", "5", "--period", "fortnight")
	assert.ErrorIs(t, err, common.ErrValidation)

	id := strings.TrimSpace(e.run(t, "budget", "add", "--name", "x", "--limit", "5"))
	_, err = e.runIn(t, context.Background(), "", "tx", "add", "--budget", id, "--name", "y", "--amount", "1", "--type", "sideways")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = e.runIn(t, context.Background(), "", "budget", "update", "missing-id", "--name", "z")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCLI_LoginWithFlags(t *testing.T) {
	e := newOfflineEnv(t)

	assert.Contains(t, e.run(t, "login", "--token", "abc", "--refresh-token", "def"), "logged in")
	matches(t, `login:\s+logged in`, e.run(t, "status"))

	tokens, err := remote.NewTokenStore(e.openStore(t).Metadata).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.Tokens{AccessToken: "abc", RefreshToken: "def"}, tokens)
}

func TestCLI_LoginPrompts(t *testing.T) {
	e := newOfflineEnv(t)

	out, err := e.runIn(t, context.Background(), "tok\nref\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Access token: ")
	assert.Contains(t, out, "Refresh token")

	tokens := remote.NewTokenStore(e.openStore(t).Metadata)
	got, err := tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.Tokens{AccessToken: "tok", RefreshToken: "ref"}, got)

	assert.Contains(t, e.run(t, "logout"), "logged out")
	got, err = tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.AccessToken)
}

func TestCLI_DaemonStopsWithContext(t *testing.T) {
	e := newOfflineEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	stop := time.AfterFunc(500*time.Millisecond, cancel)
	defer stop.Stop()

	done := make(chan error, 1)
	go func() {
		_, err := e.runIn(t, ctx, "", "daemon", "--sync-interval", "15m")
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
}

func TestCLI_HelpDoesNotOpenTheStore(t *testing.T) {
	r := &runner{newApp: func(context.Context, *config.Config) (*App, error) {
		t.Fatal("app opened for --help")
		return nil, nil
	}}
	var out bytes.Buffer
	require.NoError(t, r.execute(context.Background(), []string{"--help"}, strings.NewReader(""), &out, &out))
	assert.Contains(t, out.String(), "budget")
	assert.Contains(t, out.String(), "daemon")
}
