package ui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/config"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/notify"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	return newTestAppAs(t, "student")
}

func newTestAppAs(t *testing.T, role string) *app.App {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  api.User{ID: 1, Name: "Sam", Role: role},
		})
	})
	mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.User{ID: 1, Name: "Sam", Role: role})
	})
	mux.HandleFunc("/messages/conversations/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":3,"other_user":{"id":2,"name":"Kim"},"unread_count":2}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Paths.Data = dir
	cfg.Paths.Database = filepath.Join(dir, "hostelhub.db")
	cfg.Paths.KeyFile = filepath.Join(dir, "session.key")
	cfg.Paths.Locales = filepath.Join(dir, "locales")
	cfg.Notifications.Duration = time.Minute

	a, cleanup, err := app.Build(cfg, nil, app.WithoutPolling())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(cleanup)
	return a
}

func newTestRoot(t *testing.T, a *app.App) *rootModel {
	t.Helper()
	m := NewRootModel(a).(*rootModel)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestLoadingUntilSessionResolves(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)

	if !m.loading || m.active != nil {
		t.Fatalf("expected loading placeholder before restore")
	}
	if !strings.Contains(m.View(), a.Locales.T("app.loading")) {
		t.Fatalf("loading view missing placeholder text")
	}

	if err := a.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	m.Update(restoredMsg{})

	if m.loading {
		t.Fatalf("still loading after restore")
	}
	if m.path != guard.LoginPath {
		t.Fatalf("expected the login page, got %q", m.path)
	}
	if _, ok := m.active.(*loginModel); !ok {
		t.Fatalf("expected login screen, got %T", m.active)
	}
}

func TestSignInReturnsToPermittedPage(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	m.Update(restoredMsg{})

	m.Update(navigateMsg{path: "/messages"})
	if m.path != guard.LoginURL("/messages") {
		t.Fatalf("anonymous visit must redirect to login, got %q", m.path)
	}

	if _, err := a.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	m.Update(sessionChangedMsg{})
	if m.path != "/messages" {
		t.Fatalf("expected return to /messages after sign-in, got %q", m.path)
	}
	if _, ok := m.active.(*messagesModel); !ok {
		t.Fatalf("expected messages screen, got %T", m.active)
	}

	m.Update(navigateMsg{path: "/admin/users"})
	if m.path != "/dashboard" {
		t.Fatalf("student must be sent to their dashboard, got %q", m.path)
	}

	a.Session.Logout()
	m.Update(sessionChangedMsg{})
	if m.path != guard.LoginURL("/dashboard") {
		t.Fatalf("sign-out must leave protected page, got %q", m.path)
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	m.Update(restoredMsg{})

	m.Update(navigateMsg{path: "/nowhere"})
	if _, ok := m.active.(*notFoundModel); !ok {
		t.Fatalf("expected not-found screen, got %T", m.active)
	}
}

func TestPageChangeFlushesToasts(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	m.Update(restoredMsg{})

	a.Notify.Info("saved")
	a.Notify.Warning("still here", notify.Pinned())
	if !strings.Contains(m.View(), "saved") {
		t.Fatalf("toast not rendered")
	}

	m.Update(navigateMsg{path: "/settings"})
	items := a.Notify.List()
	if len(items) != 1 || items[0].Message != "still here" {
		t.Fatalf("page change must flush only auto-closing toasts, got %+v", items)
	}
}

func TestHeaderShowsUnreadBadge(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	if _, err := a.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	m.Update(sessionChangedMsg{})

	if err := a.Messages.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	m.Update(inboxChangedMsg{})
	if !strings.Contains(m.headerView(), "✉ 2") {
		t.Fatalf("header missing unread badge: %q", m.headerView())
	}
}

func TestRestoredManagerLandsOnOwnHome(t *testing.T) {
	a := newTestAppAs(t, "manager")
	if _, err := a.Session.Login(context.Background(), api.Credentials{Email: "kim@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m := newTestRoot(t, a)
	if err := a.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	m.Update(restoredMsg{})
	if m.path != "/manager" {
		t.Fatalf("expected manager home, got %q", m.path)
	}

	m.Update(navigateMsg{path: "/dashboard"})
	m.Update(sessionChangedMsg{})
	if m.path != "/dashboard" {
		t.Fatalf("an explicit page must not be replaced by the home page, got %q", m.path)
	}
}

func TestRegisterConfirmationSurvivesRedirect(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	m.Update(restoredMsg{})

	m.Update(navigateMsg{path: guard.RegisterPath})
	if _, ok := m.active.(*registerModel); !ok {
		t.Fatalf("expected register screen, got %T", m.active)
	}

	_, cmd := m.Update(registerResultMsg{})
	if cmd == nil {
		t.Fatalf("expected navigation after registering")
	}
	m.Update(cmd())

	if m.path != guard.LoginPath {
		t.Fatalf("expected login page, got %q", m.path)
	}
	items := a.Notify.List()
	if len(items) != 1 || items[0].Type != notify.Success || items[0].Message != a.Locales.T("register.done") {
		t.Fatalf("expected account-created toast, got %+v", items)
	}
	if !strings.Contains(m.View(), a.Locales.T("register.done")) {
		t.Fatalf("toast not rendered")
	}
}

func TestSettingsSavedToastSurvivesRedirect(t *testing.T) {
	a := newTestApp(t)
	m := newTestRoot(t, a)
	_ = a.Restore(context.Background())
	m.Update(restoredMsg{})

	m.Update(navigateMsg{path: "/settings"})
	s, ok := m.active.(*settingsModel)
	if !ok {
		t.Fatalf("expected settings screen, got %T", m.active)
	}
	s.theme = "light"
	m.Update(s.save()())

	if a.Themes.Current() != "light" {
		t.Fatalf("theme not applied")
	}
	if m.path != guard.LoginPath {
		t.Fatalf("expected home page, got %q", m.path)
	}
	items := a.Notify.List()
	if len(items) != 1 || items[0].Message != a.Locales.T("settings.saved") {
		t.Fatalf("expected settings-saved toast, got %+v", items)
	}
}

func TestWelcomeShownWhicheverArrivesFirst(t *testing.T) {
	for _, sessionFirst := range []bool{true, false} {
		a := newTestApp(t)
		m := newTestRoot(t, a)
		_ = a.Restore(context.Background())
		m.Update(restoredMsg{})

		u, err := a.Session.Login(context.Background(), api.Credentials{Email: "sam@example.com", Password: "pw"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if sessionFirst {
			m.Update(sessionChangedMsg{})
			m.Update(loginResultMsg{user: u})
		} else {
			_, cmd := m.Update(loginResultMsg{user: u})
			m.Update(sessionChangedMsg{})
			m.Update(cmd())
		}

		if m.path != "/dashboard" {
			t.Fatalf("sessionFirst=%v: expected dashboard, got %q", sessionFirst, m.path)
		}
		items := a.Notify.List()
		if len(items) != 1 || !strings.Contains(items[0].Message, "Sam") {
			t.Fatalf("sessionFirst=%v: expected welcome toast, got %+v", sessionFirst, items)
		}
	}
}
