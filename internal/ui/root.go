// Package ui is the terminal front end. Every screen is reached through the
// route table, so access rules are enforced in one place.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/notify"
	"github.com/notepid/hostelhub/internal/prefs"
	"github.com/notepid/hostelhub/internal/session"
)

// screen is one page of the client.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(w, h int)
}

type (
	sessionChangedMsg struct{}
	inboxChangedMsg   struct{}
	toastsChangedMsg  struct{}
	restoredMsg       struct{ err error }
	navigateMsg       struct {
		path  string
		toast *toast
	}
)

// toast is a notification raised once the next page is showing.
type toast struct {
	kind notify.Type
	text string
}

// navigate asks the root model to show path.
func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

// navigateWithToast is navigate followed by a notification. Page changes
// flush auto-closing notifications, so one raised before leaving the old
// page would never be seen.
func navigateWithToast(path string, kind notify.Type, text string) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{path: path, toast: &toast{kind: kind, text: text}}
	}
}

// Wire forwards store changes into the program. Send is called from its own
// goroutine because listeners may fire inside Update.
func Wire(p *tea.Program, a *app.App) {
	a.Session.OnChange(func(session.State) { go p.Send(sessionChangedMsg{}) })
	a.Messages.OnChange(func() { go p.Send(inboxChangedMsg{}) })
	a.Notify.OnChange(func() { go p.Send(toastsChangedMsg{}) })
}

const maxRedirects = 5

type rootModel struct {
	app *app.App

	width  int
	height int

	path    string
	landing bool
	loading bool
	active  screen

	spinner spinner.Model
	st      styles
}

// NewRootModel builds the root model. The session is restored from Init,
// so the first screen is the loading placeholder.
func NewRootModel(a *app.App) tea.Model {
	m := &rootModel{
		app:     a,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		st:      newStyles(a.Themes.Palette()),
	}
	m.spinner.Style = m.st.spinner

	// Theme changes apply before Set returns; the settings screen calls Set
	// from Update, so this runs on the program goroutine.
	a.Themes.OnChange(func(p prefs.Palette) {
		m.st = newStyles(p)
		m.spinner.Style = m.st.spinner
	})

	// Until the session resolves the target is unknown; revalidate sends
	// the user to their role's home.
	m.landing = true
	m.navigate("/dashboard", 0)
	return m
}

func (m *rootModel) Init() tea.Cmd {
	a := m.app
	restore := func() tea.Msg {
		return restoredMsg{err: a.Restore(a.Context())}
	}
	return tea.Batch(m.spinner.Tick, restore)
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case navigateMsg:
		m.landing = false
		cmd := m.navigate(msg.path, 0)
		if msg.toast != nil {
			m.app.Notify.Notify(msg.toast.kind, msg.toast.text)
			m.resize()
		}
		return m, cmd
	case loginResultMsg:
		if _, ok := m.active.(*loginModel); !ok && msg.err == nil {
			// The session change already took the user off the login page.
			m.app.Notify.Success(welcome(m.app, msg.user))
			m.resize()
			return m, nil
		}
	case sessionChangedMsg:
		if cmd, handled := m.revalidate(); handled {
			return m, cmd
		}
	case restoredMsg:
		// Verification failures are already surfaced by the session store.
		return m, m.revalidateCmd()
	case toastsChangedMsg:
		m.resize()
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.active == nil {
		return m, nil
	}
	return m, m.active.Update(msg)
}

func (m *rootModel) revalidateCmd() tea.Cmd {
	cmd, _ := m.revalidate()
	return cmd
}

// revalidate re-runs the guard for the current page after a session change.
// It reports false when the page stays and should see the message itself.
func (m *rootModel) revalidate() (tea.Cmd, bool) {
	if m.landing && !m.app.Session.Snapshot().Pending() {
		m.landing = false
		return m.navigate(homePath(m.app), 0), true
	}
	_, d := m.app.Routes.Resolve(m.path, m.app.Session.Snapshot())
	if d.Outcome == guard.Admit && m.active != nil && !m.loading {
		return nil, false
	}
	return m.navigate(m.path, 0), true
}

// navigate evaluates path against the route table and mounts the screen it
// resolves to.
func (m *rootModel) navigate(path string, depth int) tea.Cmd {
	if depth > maxRedirects {
		m.app.Log.Sugar().Warnw("redirect loop", "path", path)
		return nil
	}

	st := m.app.Session.Snapshot()
	route, d := m.app.Routes.Resolve(path, st)

	switch d.Outcome {
	case guard.Loading:
		m.setPath(path)
		m.loading = true
		m.active = nil
		return m.spinner.Tick
	case guard.RedirectLogin:
		return m.navigate(guard.LoginURL(d.Next), depth+1)
	case guard.RedirectHome:
		if next := guard.NextFrom(path); next != "" {
			return m.navigate(next, depth+1)
		}
		return m.navigate(d.Target, depth+1)
	case guard.NotFound:
		m.setPath(path)
		m.loading = false
		m.mount(newNotFoundModel(m.app, path))
		return nil
	}

	if m.active != nil && !m.loading && m.path == path {
		return nil
	}
	m.setPath(path)
	m.loading = false
	return m.mount(m.build(route, path))
}

func (m *rootModel) setPath(path string) {
	if path != m.path {
		m.app.Notify.PageChanged()
	}
	m.path = path
}

func (m *rootModel) mount(s screen) tea.Cmd {
	m.active = s
	m.resize()
	return s.Init()
}

func (m *rootModel) build(route guard.Route, path string) screen {
	switch route.Path {
	case guard.LoginPath:
		return newLoginModel(m.app, guard.NextFrom(path))
	case guard.RegisterPath:
		return newRegisterModel(m.app)
	case "/listings":
		return newListingsModel(m.app)
	case "/dashboard", "/manager", "/admin":
		return newDashboardModel(m.app, route.Path)
	case "/bookings", "/manager/bookings":
		return newBookingsModel(m.app, route)
	case "/messages":
		return newMessagesModel(m.app)
	case "/admin/users":
		return newUsersModel(m.app)
	case "/settings":
		return newSettingsModel(m.app)
	default:
		return newNotFoundModel(m.app, path)
	}
}

func (m *rootModel) resize() {
	if m.active == nil {
		return
	}
	h := m.height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.toastsView()) - 1
	if h < 3 {
		h = 3
	}
	m.active.SetSize(m.width, h)
}

func (m *rootModel) View() string {
	var body string
	if m.loading || m.active == nil {
		body = "\n  " + m.spinner.View() + " " + m.app.Locales.T("app.loading")
	} else {
		body = m.active.View()
	}

	parts := []string{m.headerView(), body}
	if t := m.toastsView(); t != "" {
		parts = append(parts, t)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *rootModel) headerView() string {
	l := m.app.Locales
	st := m.app.Session.Snapshot()

	left := m.st.title.Render(l.T("app.title"))
	var right []string
	if st.Authenticated() {
		who := fmt.Sprintf("%s (%s)", displayName(st), st.Role())
		if !st.Confirmed {
			who += " " + m.st.muted.Render("· "+l.T("app.offline"))
		}
		right = append(right, who)
		if st.Can(session.PermMessage) {
			if n := m.app.Messages.Unread(); n > 0 {
				right = append(right, m.st.badge.Render(fmt.Sprintf("✉ %d", n)))
			}
		}
	}

	line := left
	if len(right) > 0 {
		line += "  " + strings.Join(right, "  ")
	}
	return m.st.header.Width(max(m.width-2, 0)).Render(line)
}

func (m *rootModel) toastsView() string {
	items := m.app.Notify.List()
	if len(items) == 0 {
		return ""
	}
	out := make([]string, 0, len(items))
	for _, n := range items {
		text := n.Message
		if n.Title != "" {
			text = lipgloss.NewStyle().Bold(true).Render(n.Title) + "  " + text
		}
		out = append(out, m.st.toasts[n.Type].Render(text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func displayName(st session.State) string {
	if st.User == nil {
		return ""
	}
	if st.User.Name != "" {
		return st.User.Name
	}
	return st.User.Email
}

// homePath is where esc leads: the role's dashboard, or sign-in.
func homePath(a *app.App) string {
	st := a.Session.Snapshot()
	if !st.Authenticated() {
		return guard.LoginPath
	}
	return guard.HomeFor(st.Role())
}

// request runs fn with a deadline derived from the app context.
func request(a *app.App, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.Context(), a.Config.API.Timeout+5*time.Second)
		defer cancel()
		return fn(ctx)
	}
}
