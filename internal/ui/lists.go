package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/notify"
	"github.com/notepid/hostelhub/internal/session"
)

type rowItem struct {
	id    int
	title string
	desc  string
}

func (i rowItem) Title() string       { return i.title }
func (i rowItem) Description() string { return i.desc }
func (i rowItem) FilterValue() string { return i.title }

func newList(title string, items []list.Item, w, h int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), w, h)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)
	return l
}

type hostelsLoadedMsg struct {
	hostels []api.Hostel
	err     error
}

type conversationStartedMsg struct {
	msg *api.Message
	err error
}

// listingsModel browses hostels and starts conversations with managers.
type listingsModel struct {
	app *app.App

	width  int
	height int

	list    list.Model
	hostels map[int]api.Hostel
	loaded  bool
	err     error

	composing *api.Hostel
	form      *huh.Form
	text      string
	busy      bool
}

func newListingsModel(a *app.App) *listingsModel {
	m := &listingsModel{app: a}
	m.list = newList(a.Locales.T("listings.title"), nil, 0, 0)
	return m
}

func (m *listingsModel) Init() tea.Cmd {
	a := m.app
	token := a.Session.Token()
	return request(a, func(ctx context.Context) tea.Msg {
		hs, err := a.API.ListHostels(ctx, token)
		return hostelsLoadedMsg{hostels: hs, err: err}
	})
}

func (m *listingsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
	if m.form != nil {
		m.form = m.form.WithWidth(min(w, 70))
	}
}

func (m *listingsModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case hostelsLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			m.app.Notify.Error(msg.err.Error())
			return nil
		}
		m.err = nil
		m.hostels = make(map[int]api.Hostel, len(msg.hostels))
		items := make([]list.Item, 0, len(msg.hostels))
		for _, h := range msg.hostels {
			m.hostels[h.ID] = h
			desc := fmt.Sprintf("%s • %.2f • %d %s", h.Location, h.Price, h.RoomsAvailable, m.app.Locales.T("listings.rooms"))
			items = append(items, rowItem{id: h.ID, title: h.Name, desc: desc})
		}
		m.list = newList(m.app.Locales.T("listings.title"), items, m.width, m.height-2)
		return nil
	case conversationStartedMsg:
		m.busy = false
		m.composing, m.form = nil, nil
		if msg.err != nil {
			// The inbox store has already raised a notification.
			return nil
		}
		return navigateWithToast("/messages", notify.Success, m.app.Locales.T("messages.sent"))
	}

	if m.composing != nil {
		return m.updateCompose(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "esc":
			return navigate(homePath(m.app))
		case "m", "enter":
			it, ok := m.list.SelectedItem().(rowItem)
			if !ok {
				return nil
			}
			return m.startCompose(m.hostels[it.id])
		case "r":
			return m.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *listingsModel) startCompose(h api.Hostel) tea.Cmd {
	st := m.app.Session.Snapshot()
	if !st.Authenticated() {
		return navigate(guard.LoginURL("/listings"))
	}
	if !st.Can(session.PermMessage) || h.ManagerID == 0 || h.ManagerID == st.User.ID {
		return nil
	}
	m.composing = &h
	m.text = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().Title(fmt.Sprintf("%s: %s", m.app.Locales.T("messages.start"), h.Name)).Value(&m.text).Validate(nonEmpty("message")),
		),
	).WithShowHelp(false).WithWidth(min(m.width, 70))
	return m.form.Init()
}

func (m *listingsModel) updateCompose(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.composing, m.form = nil, nil
		return nil
	}
	if m.busy {
		return nil
	}
	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.busy = true
		a, h, text := m.app, *m.composing, m.text
		return request(a, func(ctx context.Context) tea.Msg {
			sent, err := a.Messages.Start(ctx, h.ManagerID, text, h.ID)
			return conversationStartedMsg{msg: sent, err: err}
		})
	}
	return cmd
}

func (m *listingsModel) View() string {
	l := m.app.Locales
	if m.composing != nil {
		return m.form.View() + "\n\n  (" + l.T("help.back") + ")"
	}
	if !m.loaded {
		return "\n  " + l.T("app.loading")
	}
	if m.err != nil {
		return fmt.Sprintf("\n  %v\n\n  (r retry · %s)", m.err, l.T("help.back"))
	}
	if len(m.list.Items()) == 0 {
		return "\n  " + l.T("listings.empty") + "\n\n  (" + l.T("help.back") + ")"
	}
	return m.list.View() + "\n  (enter/m " + strings.ToLower(l.T("messages.start")) + " · " + l.T("help.refresh") + ")"
}

type bookingsLoadedMsg struct {
	bookings []api.Booking
	err      error
}

// bookingsModel lists bookings: a student's own, or those of a manager's
// hostels. The backend scopes the list by token.
type bookingsModel struct {
	app   *app.App
	title string

	width  int
	height int

	list   list.Model
	loaded bool
	err    error
}

func newBookingsModel(a *app.App, r guard.Route) *bookingsModel {
	m := &bookingsModel{app: a, title: routeTitle(a, r)}
	m.list = newList(m.title, nil, 0, 0)
	return m
}

func (m *bookingsModel) Init() tea.Cmd {
	a := m.app
	token := a.Session.Token()
	return request(a, func(ctx context.Context) tea.Msg {
		bs, err := a.API.ListBookings(ctx, token)
		return bookingsLoadedMsg{bookings: bs, err: err}
	})
}

func (m *bookingsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *bookingsModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case bookingsLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			m.app.Notify.Error(msg.err.Error())
			return nil
		}
		m.err = nil
		items := make([]list.Item, 0, len(msg.bookings))
		for _, b := range msg.bookings {
			desc := fmt.Sprintf("%s • %s • %.2f", b.Status, b.CheckIn, b.Amount)
			items = append(items, rowItem{id: b.ID, title: b.HostelName, desc: desc})
		}
		m.list = newList(m.title, items, m.width, m.height-2)
		return nil
	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "esc":
				return navigate(homePath(m.app))
			case "r":
				return m.Init()
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *bookingsModel) View() string {
	l := m.app.Locales
	switch {
	case !m.loaded:
		return "\n  " + l.T("app.loading")
	case m.err != nil:
		return fmt.Sprintf("\n  %v\n\n  (r retry · %s)", m.err, l.T("help.back"))
	case len(m.list.Items()) == 0:
		return "\n  " + l.T("bookings.empty") + "\n\n  (" + l.T("help.back") + ")"
	}
	return m.list.View() + "\n  (" + l.T("help.refresh") + " · " + l.T("help.back") + ")"
}

type usersLoadedMsg struct {
	users []api.User
	err   error
}

// usersModel is the admin account list.
type usersModel struct {
	app *app.App

	width  int
	height int

	list   list.Model
	loaded bool
	err    error
}

func newUsersModel(a *app.App) *usersModel {
	m := &usersModel{app: a}
	m.list = newList(a.Locales.T("users.title"), nil, 0, 0)
	return m
}

func (m *usersModel) Init() tea.Cmd {
	a := m.app
	token := a.Session.Token()
	return request(a, func(ctx context.Context) tea.Msg {
		us, err := a.API.ListUsers(ctx, token)
		return usersLoadedMsg{users: us, err: err}
	})
}

func (m *usersModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *usersModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			m.app.Notify.Error(msg.err.Error())
			return nil
		}
		m.err = nil
		items := make([]list.Item, 0, len(msg.users))
		for _, u := range msg.users {
			desc := fmt.Sprintf("%s • %s", u.Email, session.ParseRole(u.Role))
			items = append(items, rowItem{id: u.ID, title: u.Name, desc: desc})
		}
		m.list = newList(m.app.Locales.T("users.title"), items, m.width, m.height-2)
		return nil
	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "esc":
				return navigate(homePath(m.app))
			case "r":
				return m.Init()
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *usersModel) View() string {
	l := m.app.Locales
	switch {
	case !m.loaded:
		return "\n  " + l.T("app.loading")
	case m.err != nil:
		return fmt.Sprintf("\n  %v\n\n  (r retry · %s)", m.err, l.T("help.back"))
	case len(m.list.Items()) == 0:
		return "\n  " + l.T("users.empty") + "\n\n  (" + l.T("help.back") + ")"
	}
	return m.list.View() + "\n  (" + l.T("help.refresh") + " · " + l.T("help.back") + ")"
}
