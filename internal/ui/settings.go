package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/notify"
	"github.com/notepid/hostelhub/internal/prefs"
)

type settingsModel struct {
	app *app.App

	width  int
	height int

	form  *huh.Form
	err   error
	saved bool

	theme  string
	locale string
}

func newSettingsModel(a *app.App) *settingsModel {
	m := &settingsModel{
		app:    a,
		theme:  a.Themes.Current(),
		locale: a.Locales.Current(),
	}
	m.form = m.buildForm()
	return m
}

func (m *settingsModel) buildForm() *huh.Form {
	l := m.app.Locales

	themes := make([]huh.Option[string], 0, 2)
	for _, name := range prefs.ThemeNames() {
		themes = append(themes, huh.NewOption(strings.ToUpper(name[:1])+name[1:], name))
	}
	locales := make([]huh.Option[string], 0, 2)
	for _, code := range l.Available() {
		locales = append(locales, huh.NewOption(l.Name(code), code))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title(l.T("settings.theme")).Options(themes...).Value(&m.theme),
			huh.NewSelect[string]().Title(l.T("settings.locale")).Options(locales...).Value(&m.locale),
		).Title(l.T("settings.title")),
	).WithShowHelp(false)
}

func (m *settingsModel) Init() tea.Cmd { return m.form.Init() }

func (m *settingsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.form = m.form.WithWidth(min(w, 60))
}

func (m *settingsModel) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		return navigate(homePath(m.app))
	}

	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted || m.saved {
		return cmd
	}
	return m.save()
}

// save applies both choices. The stores apply the new value before
// returning, so the next render already uses it.
func (m *settingsModel) save() tea.Cmd {
	m.saved = true
	var errs []string
	if err := m.app.Themes.Set(m.theme); err != nil {
		errs = append(errs, err.Error())
	}
	if err := m.app.Locales.Set(m.locale); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return navigateWithToast(homePath(m.app), notify.Error, strings.Join(errs, "; "))
	}
	return navigateWithToast(homePath(m.app), notify.Success, m.app.Locales.T("settings.saved"))
}

func (m *settingsModel) View() string {
	return m.form.View() + "\n\n  (" + m.app.Locales.T("help.back") + ")"
}
