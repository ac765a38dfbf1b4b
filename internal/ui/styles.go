package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/hostelhub/internal/notify"
	"github.com/notepid/hostelhub/internal/prefs"
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
	badge   lipgloss.Style
	err     lipgloss.Style
	body    lipgloss.Style
	mine    lipgloss.Style
	theirs  lipgloss.Style
	toasts  map[notify.Type]lipgloss.Style
	spinner lipgloss.Style
}

func newStyles(p prefs.Palette) styles {
	toast := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c).
			Foreground(p.Text).
			Padding(0, 1)
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		header: lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(p.Border).Padding(0, 1),
		muted:  lipgloss.NewStyle().Foreground(p.Muted),
		accent: lipgloss.NewStyle().Foreground(p.Accent),
		badge:  lipgloss.NewStyle().Bold(true).Foreground(p.Background).Background(p.Accent).Padding(0, 1),
		err:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		body:   lipgloss.NewStyle().Foreground(p.Text).Padding(0, 1),
		mine:   lipgloss.NewStyle().Foreground(p.Accent),
		theirs: lipgloss.NewStyle().Foreground(p.Text),
		toasts: map[notify.Type]lipgloss.Style{
			notify.Success: toast(p.Success),
			notify.Error:   toast(p.Error),
			notify.Warning: toast(p.Warning),
			notify.Info:    toast(p.Info),
		},
		spinner: lipgloss.NewStyle().Foreground(p.Accent),
	}
}
