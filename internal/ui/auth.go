package ui

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/notify"
)

type loginResultMsg struct {
	user api.User
	err  error
}

type registerResultMsg struct{ err error }

type loginModel struct {
	app  *app.App
	next string

	width  int
	height int

	form *huh.Form
	busy bool
	err  error

	email    string
	password string
}

func newLoginModel(a *app.App, next string) *loginModel {
	m := &loginModel{app: a, next: next}
	m.form = m.buildForm()
	return m
}

func (m *loginModel) buildForm() *huh.Form {
	l := m.app.Locales
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(l.T("login.email")).Value(&m.email).Validate(validEmail),
			huh.NewInput().Title(l.T("login.password")).EchoMode(huh.EchoModePassword).Value(&m.password).Validate(nonEmpty("password")),
		).Title(l.T("login.title")),
	).WithShowHelp(false)
}

func (m *loginModel) Init() tea.Cmd { return m.form.Init() }

func (m *loginModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.form = m.form.WithWidth(min(w, 60))
}

func (m *loginModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.password = ""
			m.form = m.buildForm()
			return m.form.Init()
		}
		next := m.next
		if next == "" {
			next = homePath(m.app)
		}
		return navigateWithToast(next, notify.Success, welcome(m.app, msg.user))
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+n":
			return navigate(guard.RegisterPath)
		case "ctrl+b":
			return navigate("/listings")
		case "ctrl+s":
			return navigate("/settings")
		}
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
		m.err = nil
		creds := api.Credentials{Email: m.email, Password: m.password}
		a := m.app
		return request(a, func(ctx context.Context) tea.Msg {
			u, err := a.Session.Login(ctx, creds)
			return loginResultMsg{user: u, err: err}
		})
	}
	return cmd
}

func welcome(a *app.App, u api.User) string {
	return fmt.Sprintf("%s, %s", a.Locales.T("login.welcome"), u.Name)
}

func (m *loginModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.View())
	b.WriteString("\n")
	if m.busy {
		b.WriteString("\n  " + m.app.Locales.T("app.loading"))
	}
	if m.err != nil {
		b.WriteString("\n  " + m.err.Error())
	}
	fmt.Fprintf(&b, "\n\n  ctrl+n %s · ctrl+b %s · ctrl+s %s",
		m.app.Locales.T("nav.register"), m.app.Locales.T("nav.listings"), m.app.Locales.T("nav.settings"))
	return b.String()
}

type registerModel struct {
	app *app.App

	width  int
	height int

	form *huh.Form
	busy bool
	err  error

	name     string
	email    string
	password string
	confirm  string
	role     string
}

func newRegisterModel(a *app.App) *registerModel {
	m := &registerModel{app: a, role: "student"}
	m.form = m.buildForm()
	return m
}

func (m *registerModel) buildForm() *huh.Form {
	l := m.app.Locales
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(l.T("register.name")).Value(&m.name).Validate(nonEmpty("name")),
			huh.NewInput().Title(l.T("login.email")).Value(&m.email).Validate(validEmail),
			huh.NewSelect[string]().Title(l.T("register.role")).Options(
				huh.NewOption(l.T("register.role_student"), "student"),
				huh.NewOption(l.T("register.role_manager"), "manager"),
			).Value(&m.role),
		).Title(l.T("register.title")),
		huh.NewGroup(
			huh.NewInput().Title(l.T("login.password")).EchoMode(huh.EchoModePassword).Value(&m.password).Validate(nonEmpty("password")),
			huh.NewInput().Title(l.T("register.password_confirm")).EchoMode(huh.EchoModePassword).Value(&m.confirm).Validate(func(s string) error {
				if s != m.password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
	).WithShowHelp(false)
}

func (m *registerModel) Init() tea.Cmd { return m.form.Init() }

func (m *registerModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.form = m.form.WithWidth(min(w, 60))
}

func (m *registerModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case registerResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.password, m.confirm = "", ""
			m.form = m.buildForm()
			return m.form.Init()
		}
		return navigateWithToast(guard.LoginPath, notify.Success, m.app.Locales.T("register.done"))
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return navigate(guard.LoginPath)
		}
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
		m.err = nil
		reg := api.Registration{
			Name:            m.name,
			Email:           m.email,
			Password:        m.password,
			PasswordConfirm: m.confirm,
			Role:            m.role,
		}
		a := m.app
		return request(a, func(ctx context.Context) tea.Msg {
			return registerResultMsg{err: a.Session.Register(ctx, reg)}
		})
	}
	return cmd
}

func (m *registerModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.View())
	b.WriteString("\n")
	if m.busy {
		b.WriteString("\n  " + m.app.Locales.T("app.loading"))
	}
	if m.err != nil {
		b.WriteString("\n  " + m.err.Error())
	}
	b.WriteString("\n\n  (" + m.app.Locales.T("help.back") + ")")
	return b.String()
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func validEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
