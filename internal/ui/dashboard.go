package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/session"
)

type menuAction int

const (
	actionGo menuAction = iota
	actionLogout
	actionQuit
)

type menuItem struct {
	title  string
	desc   string
	to     string
	action menuAction
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// dashboardModel is the landing page of each role: a summary line and a
// menu of every route the user may open.
type dashboardModel struct {
	app  *app.App
	path string

	width  int
	height int

	list list.Model
}

func newDashboardModel(a *app.App, path string) *dashboardModel {
	m := &dashboardModel{app: a, path: path}
	m.reload()
	return m
}

func (m *dashboardModel) Init() tea.Cmd { return nil }

func (m *dashboardModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-3)
}

func (m *dashboardModel) reload() {
	l := m.app.Locales
	st := m.app.Session.Snapshot()

	var items []list.Item
	for _, r := range m.app.Routes.Visible(st) {
		if r.Path == m.path || r.Access == guard.GuestOnly {
			continue
		}
		items = append(items, menuItem{title: routeTitle(m.app, r), desc: r.Path, to: r.Path})
	}
	items = append(items,
		menuItem{title: l.T("nav.logout"), action: actionLogout},
		menuItem{title: "Quit", action: actionQuit},
	)

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-3)
	m.list.Title = routeTitle(m.app, guard.Route{Path: m.path})
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowHelp(true)
}

func (m *dashboardModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sessionChangedMsg:
		m.reload()
		return nil
	case tea.KeyMsg:
		if msg.String() == "enter" {
			it, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return nil
			}
			switch it.action {
			case actionQuit:
				return tea.Quit
			case actionLogout:
				m.app.Session.Logout()
				return navigate(guard.LoginPath)
			default:
				return navigate(it.to)
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *dashboardModel) View() string {
	l := m.app.Locales
	st := m.app.Session.Snapshot()

	var summary string
	switch {
	case st.IsAdmin():
		summary = l.T("dashboard.admin")
	case st.IsManager():
		summary = l.T("dashboard.manager")
	default:
		summary = l.T("dashboard.student")
	}
	if st.Can(session.PermMessage) {
		summary += fmt.Sprintf("  %s: %d", l.T("dashboard.unread"), m.app.Messages.Unread())
	}

	return " " + summary + "\n\n" + m.list.View()
}

// routeTitle is the localized title of a route, falling back to its table
// title.
func routeTitle(a *app.App, r guard.Route) string {
	keys := map[string]string{
		"/dashboard":        "nav.dashboard",
		"/listings":         "nav.listings",
		"/bookings":         "nav.bookings",
		"/messages":         "nav.messages",
		"/manager":          "nav.manager",
		"/manager/bookings": "nav.manager_bookings",
		"/admin":            "nav.admin",
		"/admin/users":      "nav.admin_users",
		"/settings":         "nav.settings",
		guard.LoginPath:     "nav.login",
		guard.RegisterPath:  "nav.register",
	}
	if k, ok := keys[r.Path]; ok {
		return a.Locales.T(k)
	}
	if r.Title != "" {
		return r.Title
	}
	return r.Path
}

type notFoundModel struct {
	app  *app.App
	path string
}

func newNotFoundModel(a *app.App, path string) *notFoundModel {
	return &notFoundModel{app: a, path: path}
}

func (m *notFoundModel) Init() tea.Cmd    { return nil }
func (m *notFoundModel) SetSize(w, h int) {}

func (m *notFoundModel) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "enter", "q":
			return navigate(homePath(m.app))
		}
	}
	return nil
}

func (m *notFoundModel) View() string {
	return fmt.Sprintf("\n  %s: %s\n\n  (%s)", m.app.Locales.T("nav.not_found"), m.path, m.app.Locales.T("help.back"))
}
