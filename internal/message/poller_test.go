package message

import (
	"context"
	"testing"
	"time"

	"github.com/notepid/hostelhub/internal/api"
)

func TestPollerRefreshesUntilStopped(t *testing.T) {
	f := &fakeAPI{list: fixedList(api.Conversation{ID: 1, UnreadCount: 1})}
	s := NewStore(f, staticToken("t"), nil, nil)
	p := NewPoller(s, 10*time.Millisecond, nil)

	p.Start(context.Background())
	p.Start(context.Background())
	if !p.Running() {
		t.Fatalf("expected running poller")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.listCalls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.listCalls() < 3 {
		t.Fatalf("expected repeated polls, got %d", f.listCalls())
	}
	if s.Unread() != 1 {
		t.Fatalf("expected polled unread count, got %d", s.Unread())
	}

	p.Stop()
	p.Stop()
	if p.Running() {
		t.Fatalf("poller still running after Stop")
	}
	after := f.listCalls()
	time.Sleep(50 * time.Millisecond)
	if f.listCalls() != after {
		t.Fatalf("poller kept calling after Stop: %d -> %d", after, f.listCalls())
	}
}

func TestPollerStopCancelsInFlightRequest(t *testing.T) {
	started := make(chan struct{}, 1)
	f := &blockingAPI{fakeAPI: fakeAPI{}, started: started}
	s := NewStore(f, staticToken("t"), nil, nil)
	p := NewPoller(s, time.Hour, nil)

	p.Start(context.Background())
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("initial refresh never issued")
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not cancel the in-flight request")
	}
}

// blockingAPI blocks list requests until their context is cancelled.
type blockingAPI struct {
	fakeAPI
	started chan struct{}
}

func (b *blockingAPI) ListConversations(ctx context.Context, token string) ([]api.Conversation, error) {
	b.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}
