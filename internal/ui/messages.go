package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/app"
)

type threadLoadedMsg struct {
	id  int
	err error
}

type messageSentMsg struct{ err error }

type refreshedMsg struct{ err error }

type messagesState int

const (
	messagesStateList messagesState = iota
	messagesStateThread
	messagesStateCompose
)

// messagesModel shows the inbox, one conversation at a time.
type messagesModel struct {
	app *app.App

	width  int
	height int

	state  messagesState
	list   list.Model
	thread viewport.Model

	openID int
	busy   bool

	form  *huh.Form
	text  string
	files string
}

func newMessagesModel(a *app.App) *messagesModel {
	m := &messagesModel{app: a, state: messagesStateList}
	m.thread = viewport.New(0, 0)
	m.reloadList()
	return m
}

// Init refreshes immediately rather than waiting for the next poll.
func (m *messagesModel) Init() tea.Cmd {
	a := m.app
	return request(a, func(ctx context.Context) tea.Msg {
		return refreshedMsg{err: a.Messages.Refresh(ctx)}
	})
}

func (m *messagesModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
	m.thread.Width = w
	m.thread.Height = max(h-4, 1)
	m.renderThread()
	if m.form != nil {
		m.form = m.form.WithWidth(min(w, 80))
	}
}

func (m *messagesModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case inboxChangedMsg:
		if m.list.FilterState() != list.Filtering {
			m.reloadList()
		}
		m.renderThread()
		return nil
	case refreshedMsg:
		return nil
	case threadLoadedMsg:
		m.busy = false
		if msg.err == nil {
			m.openID = msg.id
			m.state = messagesStateThread
			m.renderThread()
			m.thread.GotoBottom()
		}
		return nil
	case messageSentMsg:
		// A failed send has already raised a notification; the thread is
		// unchanged either way until the server accepts the message.
		m.busy = false
		m.form = nil
		m.state = messagesStateThread
		m.renderThread()
		m.thread.GotoBottom()
		return nil
	}

	switch m.state {
	case messagesStateThread:
		return m.updateThread(msg)
	case messagesStateCompose:
		return m.updateCompose(msg)
	default:
		return m.updateList(msg)
	}
}

func (m *messagesModel) updateList(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "esc":
			return navigate(homePath(m.app))
		case "r":
			return m.Init()
		case "enter":
			it, ok := m.list.SelectedItem().(rowItem)
			if !ok || m.busy {
				return nil
			}
			m.busy = true
			a, id := m.app, it.id
			return request(a, func(ctx context.Context) tea.Msg {
				_, err := a.Messages.Open(ctx, id)
				return threadLoadedMsg{id: id, err: err}
			})
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *messagesModel) updateThread(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.state = messagesStateList
			m.reloadList()
			return nil
		case "c":
			return m.startCompose()
		}
	}

	var cmd tea.Cmd
	m.thread, cmd = m.thread.Update(msg)
	return cmd
}

func (m *messagesModel) startCompose() tea.Cmd {
	l := m.app.Locales
	m.state = messagesStateCompose
	m.text, m.files = "", ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().Title(l.T("messages.compose")).Value(&m.text),
			huh.NewInput().Title(l.T("messages.attachments")).Value(&m.files),
		),
	).WithShowHelp(false).WithWidth(min(m.width, 80))
	return m.form.Init()
}

func (m *messagesModel) updateCompose(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" && !m.busy {
		m.state = messagesStateThread
		m.form = nil
		return nil
	}
	if m.busy {
		return nil
	}

	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return cmd
	}

	a, id, text, files := m.app, m.openID, m.text, splitPaths(m.files)
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		m.state = messagesStateThread
		m.form = nil
		return nil
	}
	m.busy = true
	return request(a, func(ctx context.Context) tea.Msg {
		_, err := a.Messages.Send(ctx, id, text, files)
		return messageSentMsg{err: err}
	})
}

func (m *messagesModel) reloadList() {
	convs := m.app.Messages.Conversations()
	items := make([]list.Item, 0, len(convs))
	for _, c := range convs {
		items = append(items, conversationItem(c))
	}

	title := m.app.Locales.T("messages.title")
	if n := m.app.Messages.Unread(); n > 0 {
		title = fmt.Sprintf("%s (%d)", title, n)
	}

	idx := m.list.Index()
	m.list = newList(title, items, m.width, m.height-2)
	if idx < len(items) {
		m.list.Select(idx)
	}
}

func conversationItem(c api.Conversation) rowItem {
	title := c.OtherParty.Name
	if title == "" {
		title = fmt.Sprintf("#%d", c.ID)
	}
	if c.UnreadCount > 0 {
		title = fmt.Sprintf("● %s (%d)", title, c.UnreadCount)
	}
	var desc []string
	if c.Listing != nil && c.Listing.Name != "" {
		desc = append(desc, c.Listing.Name)
	}
	if c.LastMessage != "" {
		desc = append(desc, truncate(c.LastMessage, 60))
	}
	if !c.LastMessageAt.IsZero() {
		desc = append(desc, c.LastMessageAt.Local().Format("2006-01-02 15:04"))
	}
	return rowItem{id: c.ID, title: title, desc: strings.Join(desc, " • ")}
}

func (m *messagesModel) renderThread() {
	if m.openID == 0 || m.app.Messages.ActiveID() != m.openID {
		m.thread.SetContent("")
		return
	}
	msgs := m.app.Messages.Thread()
	if len(msgs) == 0 {
		m.thread.SetContent("  " + m.app.Locales.T("messages.thread_empty"))
		return
	}

	st := newStyles(m.app.Themes.Palette())
	self := 0
	if s := m.app.Session.Snapshot(); s.User != nil {
		self = s.User.ID
	}

	var b strings.Builder
	for _, msg := range msgs {
		style := st.theirs
		if msg.SenderID == self {
			style = st.mine
		}
		when := ""
		if !msg.CreatedAt.IsZero() {
			when = msg.CreatedAt.Local().Format("Jan 2 15:04")
		}
		b.WriteString(st.muted.Render(when) + "\n")
		b.WriteString(style.Render(msg.Content) + "\n")
		for _, att := range msg.Attachments {
			b.WriteString(st.muted.Render("  📎 "+att.Name) + "\n")
		}
		b.WriteString("\n")
	}
	m.thread.SetContent(b.String())
}

func (m *messagesModel) View() string {
	l := m.app.Locales
	switch m.state {
	case messagesStateThread:
		title := ""
		for _, c := range m.app.Messages.Conversations() {
			if c.ID == m.openID {
				title = conversationItem(c).title
			}
		}
		return " " + title + "\n\n" + m.thread.View() + "\n  (" + l.T("help.compose") + " · " + l.T("help.back") + ")"
	case messagesStateCompose:
		v := m.form.View()
		if m.busy {
			v += "\n  " + l.T("app.loading")
		}
		return v + "\n\n  (" + l.T("help.back") + ")"
	default:
		if len(m.list.Items()) == 0 {
			return "\n  " + l.T("messages.empty") + "\n\n  (" + l.T("help.refresh") + " · " + l.T("help.back") + ")"
		}
		return m.list.View() + "\n  (" + l.T("help.refresh") + " · " + l.T("help.back") + ")"
	}
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
