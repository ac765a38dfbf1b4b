package message

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller refreshes a Store on a fixed interval until stopped.
type Poller struct {
	store    *Store
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(store *Store, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{store: store, interval: interval, log: log.Named("poller")}
}

// Start refreshes immediately and then every interval. Starting a running
// poller does nothing.
func (p *Poller) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	p.log.Debug("started", zap.Duration("interval", p.interval))
}

// Stop cancels polling and waits for an in-flight refresh to return. Safe to
// call on a stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Debug("stopped")
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	_ = p.store.Refresh(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = p.store.Refresh(ctx)
		}
	}
}
