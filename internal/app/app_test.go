package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/config"
)

func newBackend(t *testing.T, lists *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  api.User{ID: 1, Name: "Sam", Email: "sam@example.com", Role: "student"},
		})
	})
	mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid token."}`)
			return
		}
		_ = json.NewEncoder(w).Encode(api.User{ID: 1, Name: "Sam", Role: "student"})
	})
	mux.HandleFunc("/messages/conversations/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(lists, 1)
		_, _ = io.WriteString(w, `[{"id":3,"unread_count":2}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 2 * time.Second
	cfg.API.VerifyTimeout = time.Second
	cfg.Messaging.PollInterval = time.Hour
	cfg.Paths.Data = dir
	cfg.Paths.Database = filepath.Join(dir, "hostelhub.db")
	cfg.Paths.KeyFile = filepath.Join(dir, "session.key")
	cfg.Paths.Locales = filepath.Join(dir, "locales")
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollingFollowsSession(t *testing.T) {
	var lists int32
	srv := newBackend(t, &lists)
	a, cleanup, err := Build(testConfig(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer cleanup()

	if err := a.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if a.Poller.Running() {
		t.Fatalf("poller must not run while anonymous")
	}

	if _, err := a.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !a.Poller.Running() {
		t.Fatalf("poller must start on sign-in")
	}
	waitFor(t, func() bool { return a.Messages.Unread() == 2 })

	a.Session.Logout()
	if a.Poller.Running() {
		t.Fatalf("poller must stop on sign-out")
	}
	if a.Messages.Unread() != 0 || len(a.Messages.Conversations()) != 0 {
		t.Fatalf("inbox must be cleared on sign-out")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	var lists int32
	srv := newBackend(t, &lists)
	cfg := testConfig(t, srv.URL)

	a, cleanup, err := Build(cfg, nil, WithoutPolling())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_ = a.Restore(context.Background())
	if _, err := a.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if a.Poller.Running() {
		t.Fatalf("WithoutPolling must keep the poller stopped")
	}
	cleanup()

	b, cleanup, err := Build(cfg, nil, WithoutPolling())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer cleanup()
	if err := b.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	st := b.Session.Snapshot()
	if !st.Authenticated() || !st.Confirmed || st.User.Name != "Sam" {
		t.Fatalf("expected restored confirmed session, got %+v", st)
	}
	if b.Session.Token() != "tok" {
		t.Fatalf("token not restored")
	}
}

// offlineAtStartup signs in against a healthy backend, takes /auth/user/
// down and rebuilds the App as a fresh launch would. The returned flag brings
// the endpoint back.
func offlineAtStartup(t *testing.T) (*App, *atomic.Bool, *atomic.Int32) {
	t.Helper()
	var lists int32
	srv := newBackend(t, &lists)

	var online atomic.Bool
	var verifies atomic.Int32
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/user/" {
			verifies.Add(1)
			if !online.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
		}
		srv.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(flaky.Close)

	cfg := testConfig(t, flaky.URL)
	cfg.API.VerifyRetries = 0
	cfg.Messaging.PollInterval = 20 * time.Millisecond

	first, cleanup, err := Build(cfg, nil, WithoutPolling())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_ = first.Restore(context.Background())
	if _, err := first.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cleanup()

	a, cleanup, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(cleanup)

	if err := a.Restore(context.Background()); err == nil {
		t.Fatalf("expected verification error while the server is down")
	}
	if st := a.Session.Snapshot(); !st.Authenticated() || st.Confirmed {
		t.Fatalf("expected unconfirmed session, got %+v", st)
	}
	return a, &online, &verifies
}

func TestOfflineSessionConfirmedWhenServerReturns(t *testing.T) {
	a, online, _ := offlineAtStartup(t)
	if a.Poller.Running() {
		t.Fatalf("poller must wait for a confirmed session")
	}

	online.Store(true)
	waitFor(t, func() bool { return a.Session.Snapshot().Confirmed })
	waitFor(t, a.Poller.Running)
	waitFor(t, func() bool { return a.Messages.Unread() == 2 })
}

func TestOfflineRecheckStopsOnSignOut(t *testing.T) {
	a, _, verifies := offlineAtStartup(t)
	waitFor(t, func() bool { return verifies.Load() >= 2 })

	a.Session.Logout()
	time.Sleep(60 * time.Millisecond)
	settled := verifies.Load()
	time.Sleep(200 * time.Millisecond)
	if n := verifies.Load(); n != settled {
		t.Fatalf("recheck kept running after sign-out: %d -> %d calls", settled, n)
	}
	if a.Poller.Running() {
		t.Fatalf("poller must stay stopped")
	}
}
