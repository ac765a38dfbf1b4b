// Package notify holds transient user-facing status messages.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is the severity of a notification.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Info    Type = "info"
	Warning Type = "warning"
)

// DefaultDuration is how long an auto-closing notification stays visible.
const DefaultDuration = 5 * time.Second

// Notification is one toast.
type Notification struct {
	ID        string
	Type      Type
	Title     string
	Message   string
	AutoClose bool
	CreatedAt time.Time
}

// Option customises a notification at creation.
type Option func(*Notification)

// WithTitle sets a title shown above the message.
func WithTitle(title string) Option {
	return func(n *Notification) { n.Title = title }
}

// Pinned disables auto-close; the notification survives page changes.
func Pinned() Option {
	return func(n *Notification) { n.AutoClose = false }
}

// Bus is an insertion-ordered queue of notifications.
type Bus struct {
	mu        sync.Mutex
	items     []Notification
	timers    map[string]*time.Timer
	duration  time.Duration
	listeners []func()
	closed    bool
}

// NewBus creates a bus whose auto-closing notifications expire after d.
func NewBus(d time.Duration) *Bus {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Bus{
		timers:   make(map[string]*time.Timer),
		duration: d,
	}
}

// OnChange registers fn to run after every change. fn runs without the
// bus lock held and may be called from timer goroutines.
func (b *Bus) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Notify appends a notification and returns its id.
func (b *Bus) Notify(t Type, message string, opts ...Option) string {
	n := Notification{
		ID:        uuid.NewString(),
		Type:      t,
		Message:   message,
		AutoClose: true,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&n)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return n.ID
	}
	b.items = append(b.items, n)
	if n.AutoClose {
		id := n.ID
		b.timers[id] = time.AfterFunc(b.duration, func() { b.Remove(id) })
	}
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	fire(listeners)
	return n.ID
}

// Success is Notify(Success, ...).
func (b *Bus) Success(message string, opts ...Option) string {
	return b.Notify(Success, message, opts...)
}

// Error is Notify(Error, ...).
func (b *Bus) Error(message string, opts ...Option) string {
	return b.Notify(Error, message, opts...)
}

// Info is Notify(Info, ...).
func (b *Bus) Info(message string, opts ...Option) string {
	return b.Notify(Info, message, opts...)
}

// Warning is Notify(Warning, ...).
func (b *Bus) Warning(message string, opts ...Option) string {
	return b.Notify(Warning, message, opts...)
}

// Remove deletes a notification. Unknown ids are ignored.
func (b *Bus) Remove(id string) {
	b.mu.Lock()
	removed := b.removeLocked(func(n Notification) bool { return n.ID == id })
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	if removed > 0 {
		fire(listeners)
	}
}

// PageChanged flushes every auto-closing notification. Pinned ones stay.
func (b *Bus) PageChanged() {
	b.mu.Lock()
	removed := b.removeLocked(func(n Notification) bool { return n.AutoClose })
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	if removed > 0 {
		fire(listeners)
	}
}

// List returns the current notifications, oldest first.
func (b *Bus) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Close stops all pending timers. Later notifications are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
}

func (b *Bus) removeLocked(match func(Notification) bool) int {
	kept := b.items[:0:0]
	removed := 0
	for _, n := range b.items {
		if !match(n) {
			kept = append(kept, n)
			continue
		}
		removed++
		if t, ok := b.timers[n.ID]; ok {
			t.Stop()
			delete(b.timers, n.ID)
		}
	}
	b.items = kept
	return removed
}

func (b *Bus) snapshotListeners() []func() {
	out := make([]func(), len(b.listeners))
	copy(out, b.listeners)
	return out
}

func fire(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
