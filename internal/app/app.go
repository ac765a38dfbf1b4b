// Package app wires the client's stores together. Screens and commands get
// everything they need from an *App; there are no package-level singletons.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/config"
	"github.com/notepid/hostelhub/internal/db"
	"github.com/notepid/hostelhub/internal/guard"
	"github.com/notepid/hostelhub/internal/logging"
	"github.com/notepid/hostelhub/internal/message"
	"github.com/notepid/hostelhub/internal/notify"
	"github.com/notepid/hostelhub/internal/prefs"
	"github.com/notepid/hostelhub/internal/secret"
	"github.com/notepid/hostelhub/internal/session"
)

// App holds the configuration and every store of one running client. It is
// built once by New or Build and shared by the screens and commands.
type App struct {
	ConfigPath string
	Config     *config.Config
	Log        *zap.Logger
	DB         *db.DB

	API      *api.Client
	Notify   *notify.Bus
	Session  *session.Store
	Messages *message.Store
	Poller   *message.Poller
	Themes   *prefs.Themes
	Locales  *prefs.Locales
	Routes   *guard.Table

	ctx        context.Context
	cancel     context.CancelFunc
	poll       bool
	wg         sync.WaitGroup
	rechecking atomic.Bool
}

// maxRecheckDelay caps the backoff between attempts to confirm an offline
// session.
const maxRecheckDelay = 5 * time.Minute

// Option adjusts how New builds the App.
type Option func(*App)

// WithoutPolling disables background work: inbox polling and confirming an
// offline session. One-shot commands use it.
func WithoutPolling() Option {
	return func(a *App) { a.poll = false }
}

// New loads configuration from configPath and builds the App. The returned
// cleanup stops background work and closes the database.
func New(configPath string, opts ...Option) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Paths.Log)
	if err != nil {
		return nil, nil, err
	}

	a, cleanup, err := Build(cfg, log, opts...)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	a.ConfigPath = configPath

	return a, func() {
		cleanup()
		_ = log.Sync()
	}, nil
}

// Build assembles the App from an already loaded configuration.
func Build(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	database, err := db.Open(cfg.Paths.Database, log.Named("db"))
	if err != nil {
		return nil, nil, err
	}

	sealer, err := secret.LoadOrCreate(cfg.Paths.KeyFile)
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config: cfg,
		Log:    log,
		DB:     database,
		API:    api.NewClient(cfg.API.BaseURL, cfg.API.Timeout),
		Notify: notify.NewBus(cfg.Notifications.Duration),
		Routes: guard.DefaultTable(),
		ctx:    ctx,
		cancel: cancel,
		poll:   true,
	}
	for _, o := range opts {
		o(a)
	}

	a.Session = session.NewStore(a.API, database, sealer, session.Options{
		VerifyTimeout: cfg.API.VerifyTimeout,
		VerifyRetries: cfg.API.VerifyRetries,
		Notifier:      a.Notify,
		Logger:        log,
	})
	a.Messages = message.NewStore(a.API, a.Session, a.Notify, log)
	a.Poller = message.NewPoller(a.Messages, cfg.Messaging.PollInterval, log)
	a.Themes = prefs.NewThemes(database, cfg.UI.Theme, log)
	a.Locales = prefs.NewLocales(database, cfg.Paths.Locales, cfg.UI.Locale, log)

	a.Session.OnChange(a.sessionChanged)

	cleanup := func() {
		cancel()
		a.wg.Wait()
		a.Poller.Stop()
		a.Notify.Close()
		_ = database.Close()
	}
	return a, cleanup, nil
}

// Context is cancelled by cleanup. Background requests should derive from it.
func (a *App) Context() context.Context {
	return a.ctx
}

// Restore brings back the previous session, if any. When the server could not
// be reached the session stays unconfirmed and is rechecked in the background
// until it is confirmed or rejected.
func (a *App) Restore(ctx context.Context) error {
	err := a.Session.Restore(ctx)
	if st := a.Session.Snapshot(); st.Authenticated() && !st.Confirmed && ctx.Err() == nil {
		a.startRecheck()
	}
	return err
}

func (a *App) startRecheck() {
	if !a.poll || !a.rechecking.CompareAndSwap(false, true) {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.rechecking.Store(false)
		a.recheck()
	}()
}

// recheck retries verification with exponential backoff starting at the poll
// interval. It stops once the session is confirmed, rejected or replaced.
func (a *App) recheck() {
	log := a.Log.Named("recheck")
	delay := a.Config.Messaging.PollInterval
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(delay):
		}

		st := a.Session.Snapshot()
		if !st.Authenticated() || st.Confirmed {
			return
		}
		err := a.Session.Recheck(a.ctx)
		if err == nil {
			log.Info("session confirmed")
			return
		}
		if !api.IsTransient(err) || a.ctx.Err() != nil {
			return
		}
		log.Debug("server still unreachable", zap.Duration("retry_in", delay), zap.Error(err))
		if delay *= 2; delay > maxRecheckDelay {
			delay = maxRecheckDelay
		}
	}
}

// sessionChanged ties the inbox lifetime to the session: polling runs only
// while a confirmed session exists, and the previous user's inbox is dropped
// on sign-out.
func (a *App) sessionChanged(st session.State) {
	switch {
	case st.Authenticated() && st.Confirmed:
		if a.poll && st.Can(session.PermMessage) {
			a.Poller.Start(a.ctx)
		}
	case st.Status == session.StatusAnonymous:
		a.Poller.Stop()
		a.Messages.Reset()
	}
}
