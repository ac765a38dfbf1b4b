package prefs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownLocale is returned by Locales.Set for a code with no catalog.
var ErrUnknownLocale = errors.New("unknown locale")

// DefaultLocale is the catalog every lookup falls back to.
const DefaultLocale = "en"

// Locales is the current-locale store and string lookup table.
type Locales struct {
	prefs Preferences
	log   *zap.Logger

	mu        sync.RWMutex
	catalogs  map[string]map[string]string
	current   string
	listeners []func(string)
}

// NewLocales builds the catalogs from the built-in tables plus any Lua packs
// in dir, then selects the persisted locale (or def). A broken pack is
// logged and skipped.
func NewLocales(p Preferences, dir, def string, log *zap.Logger) *Locales {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Locales{
		prefs:    p,
		log:      log.Named("locale"),
		catalogs: make(map[string]map[string]string, len(builtinCatalogs)),
	}
	for code, cat := range builtinCatalogs {
		c := make(map[string]string, len(cat))
		for k, v := range cat {
			c[k] = v
		}
		l.catalogs[code] = c
	}

	files, err := packFiles(dir)
	if err != nil {
		l.log.Warn("scan locale packs", zap.Error(err))
	}
	for code, path := range files {
		strs, err := loadPack(path)
		if err != nil {
			l.log.Warn("skip locale pack", zap.String("locale", code), zap.Error(err))
			continue
		}
		cat, ok := l.catalogs[code]
		if !ok {
			cat = make(map[string]string, len(strs))
			l.catalogs[code] = cat
		}
		for k, v := range strs {
			cat[k] = v
		}
		l.log.Debug("loaded locale pack", zap.String("locale", code), zap.Int("strings", len(strs)))
	}

	code := def
	if v, ok, err := p.GetPreference(keyLocale); err != nil {
		l.log.Warn("read locale preference", zap.Error(err))
	} else if ok {
		code = v
	}
	if _, ok := l.catalogs[code]; !ok {
		code = def
		if _, ok := l.catalogs[code]; !ok {
			code = DefaultLocale
		}
	}
	l.current = code
	return l
}

// Current returns the active locale code.
func (l *Locales) Current() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Available lists the locale codes with a catalog, sorted.
func (l *Locales) Available() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.catalogs))
	for code := range l.catalogs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Name returns the display name of code, or code itself.
func (l *Locales) Name(code string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n, ok := l.catalogs[code]["locale.name"]; ok {
		return n
	}
	return code
}

// T looks key up in the active locale, then in English, then returns key.
func (l *Locales) T(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.catalogs[l.current][key]; ok {
		return s
	}
	if s, ok := l.catalogs[DefaultLocale][key]; ok {
		return s
	}
	return key
}

// Tf is T followed by fmt.Sprintf.
func (l *Locales) Tf(key string, args ...any) string {
	return fmt.Sprintf(l.T(key), args...)
}

// OnChange registers fn to run, without the lock held, after every Set.
func (l *Locales) OnChange(fn func(string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Set switches locale, persists it and applies it before returning.
func (l *Locales) Set(code string) error {
	l.mu.Lock()
	if _, ok := l.catalogs[code]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownLocale, code)
	}
	l.current = code
	listeners := make([]func(string), len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(code)
	}

	if err := l.prefs.SetPreference(keyLocale, code); err != nil {
		l.log.Error("persist locale", zap.Error(err))
		return fmt.Errorf("save locale: %w", err)
	}
	return nil
}
