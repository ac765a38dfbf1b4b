// Package prefs holds the user's display preferences: colour theme and
// locale. Both persist across restarts and apply synchronously on change.
package prefs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// ErrUnknownTheme is returned by Themes.Set for a name with no palette.
var ErrUnknownTheme = errors.New("unknown theme")

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	keyTheme  = "theme"
	keyLocale = "locale"
)

// Preferences is durable storage for single-valued settings.
type Preferences interface {
	GetPreference(key string) (string, bool, error)
	SetPreference(key, value string) error
}

// Palette is the set of colours a theme applies to every screen.
type Palette struct {
	Name       string
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color
	Background lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Warning    lipgloss.Color
	Info       lipgloss.Color
}

var palettes = map[string]Palette{
	ThemeLight: {
		Name:       ThemeLight,
		Text:       lipgloss.Color("235"),
		Muted:      lipgloss.Color("244"),
		Accent:     lipgloss.Color("25"),
		Border:     lipgloss.Color("250"),
		Background: lipgloss.Color("255"),
		Success:    lipgloss.Color("28"),
		Error:      lipgloss.Color("160"),
		Warning:    lipgloss.Color("136"),
		Info:       lipgloss.Color("31"),
	},
	ThemeDark: {
		Name:       ThemeDark,
		Text:       lipgloss.Color("252"),
		Muted:      lipgloss.Color("241"),
		Accent:     lipgloss.Color("205"),
		Border:     lipgloss.Color("62"),
		Background: lipgloss.Color("235"),
		Success:    lipgloss.Color("42"),
		Error:      lipgloss.Color("196"),
		Warning:    lipgloss.Color("214"),
		Info:       lipgloss.Color("39"),
	},
}

// ThemeNames lists the available themes in a stable order.
func ThemeNames() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Themes is the current-theme store.
type Themes struct {
	prefs Preferences
	log   *zap.Logger

	mu        sync.RWMutex
	current   Palette
	listeners []func(Palette)
}

// NewThemes loads the persisted theme, falling back to def (and then to
// dark) when nothing valid is stored.
func NewThemes(p Preferences, def string, log *zap.Logger) *Themes {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Themes{prefs: p, log: log.Named("theme")}

	name := def
	if v, ok, err := p.GetPreference(keyTheme); err != nil {
		t.log.Warn("read theme preference", zap.Error(err))
	} else if ok {
		name = v
	}
	pal, ok := palettes[name]
	if !ok {
		if pal, ok = palettes[def]; !ok {
			pal = palettes[ThemeDark]
		}
	}
	t.current = pal
	return t
}

// Current returns the active theme name.
func (t *Themes) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current.Name
}

// Palette returns the active palette.
func (t *Themes) Palette() Palette {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// OnChange registers fn to run, without the lock held, after every Set.
func (t *Themes) OnChange(fn func(Palette)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Set switches theme, persists it and applies it before returning. The
// in-memory theme changes even if persisting fails.
func (t *Themes) Set(name string) error {
	pal, ok := palettes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}

	t.mu.Lock()
	t.current = pal
	listeners := make([]func(Palette), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(pal)
	}

	if err := t.prefs.SetPreference(keyTheme, name); err != nil {
		t.log.Error("persist theme", zap.Error(err))
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips between light and dark.
func (t *Themes) Toggle() error {
	if t.Current() == ThemeDark {
		return t.Set(ThemeLight)
	}
	return t.Set(ThemeDark)
}
