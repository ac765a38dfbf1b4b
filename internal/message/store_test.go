package message

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/notify"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type switchToken struct {
	mu    sync.Mutex
	value string
}

func (s *switchToken) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *switchToken) set(v string) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

type fakeAPI struct {
	mu        sync.Mutex
	lists     int
	markReads []int
	sends     []api.SendRequest

	list    func(call int) ([]api.Conversation, error)
	threads map[int][]api.Message
	sendErr error
	nextID  int
}

func (f *fakeAPI) ListConversations(ctx context.Context, token string) ([]api.Conversation, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	fn := f.list
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeAPI) GetConversation(ctx context.Context, token string, id int) (api.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.threads[id]
	if !ok {
		return api.ConversationDetail{}, &api.Error{Status: 404, Message: "Not found."}
	}
	return api.ConversationDetail{Conversation: api.Conversation{ID: id}, Messages: msgs}, nil
}

func (f *fakeAPI) MarkRead(ctx context.Context, token string, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, id)
	return nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, token string, req api.SendRequest) (api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, req)
	if f.sendErr != nil {
		return api.Message{}, f.sendErr
	}
	f.nextID++
	conv := req.ConversationID
	if conv == 0 {
		conv = 100
	}
	return api.Message{ID: f.nextID, ConversationID: conv, Content: req.Content}, nil
}

func (f *fakeAPI) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func fixedList(convs ...api.Conversation) func(int) ([]api.Conversation, error) {
	return func(int) ([]api.Conversation, error) {
		out := make([]api.Conversation, len(convs))
		copy(out, convs)
		return out, nil
	}
}

func sumUnread(convs []api.Conversation) int {
	n := 0
	for _, c := range convs {
		n += c.UnreadCount
	}
	return n
}

func TestUnreadCounterConservation(t *testing.T) {
	f := &fakeAPI{
		list: fixedList(
			api.Conversation{ID: 1, UnreadCount: 3},
			api.Conversation{ID: 2, UnreadCount: 0},
			api.Conversation{ID: 3, UnreadCount: 2},
		),
		threads: map[int][]api.Message{1: {{ID: 1}}, 2: {{ID: 2}}, 3: {{ID: 3}}},
	}
	s := NewStore(f, staticToken("t"), nil, nil)
	ctx := context.Background()

	check := func(step string) {
		t.Helper()
		if got, want := s.Unread(), sumUnread(s.Conversations()); got != want {
			t.Fatalf("%s: aggregate %d != sum %d", step, got, want)
		}
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	check("after list")
	if s.Unread() != 5 {
		t.Fatalf("expected 5 unread, got %d", s.Unread())
	}

	if _, err := s.Open(ctx, 1); err != nil {
		t.Fatalf("Open: %v", err)
	}
	check("after open 1")
	if s.Unread() != 2 {
		t.Fatalf("expected 2 unread after opening conversation 1, got %d", s.Unread())
	}

	if _, err := s.Open(ctx, 2); err != nil {
		t.Fatalf("Open: %v", err)
	}
	check("after open 2")

	f.mu.Lock()
	f.list = fixedList(api.Conversation{ID: 1, UnreadCount: 1}, api.Conversation{ID: 3, UnreadCount: 2})
	f.mu.Unlock()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	check("after second list")
	if s.Unread() != 3 {
		t.Fatalf("expected 3 unread, got %d", s.Unread())
	}
}

func TestOpenMarksReadExactlyOnce(t *testing.T) {
	f := &fakeAPI{
		list:    fixedList(api.Conversation{ID: 7, UnreadCount: 4}),
		threads: map[int][]api.Message{7: {{ID: 1, Content: "hi"}, {ID: 2, Content: "there"}}},
	}
	s := NewStore(f, staticToken("t"), nil, nil)
	ctx := context.Background()
	_ = s.Refresh(ctx)

	msgs, err := s.Open(ctx, 7)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(msgs) != 2 || s.ActiveID() != 7 {
		t.Fatalf("expected active thread of 2, got %d msgs active=%d", len(msgs), s.ActiveID())
	}
	if _, err := s.Open(ctx, 7); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if len(f.markReads) != 1 || f.markReads[0] != 7 {
		t.Fatalf("expected exactly one mark-read for 7, got %v", f.markReads)
	}
	if s.Unread() != 0 {
		t.Fatalf("expected unread 0, got %d", s.Unread())
	}
}

func TestStalePollIsDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	f := &fakeAPI{list: func(call int) ([]api.Conversation, error) {
		if call == 1 {
			close(startedA)
			<-releaseA
			return []api.Conversation{{ID: 1, LastMessage: "from A", UnreadCount: 9}}, nil
		}
		return []api.Conversation{{ID: 1, LastMessage: "from B", UnreadCount: 1}}, nil
	}}
	s := NewStore(f, staticToken("t"), nil, nil)
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- s.Refresh(ctx) }()
	<-startedA

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh B: %v", err)
	}
	close(releaseA)
	if err := <-doneA; err != nil {
		t.Fatalf("Refresh A: %v", err)
	}

	convs := s.Conversations()
	if len(convs) != 1 || convs[0].LastMessage != "from B" {
		t.Fatalf("later-issued poll must win, got %+v", convs)
	}
	if s.Unread() != 1 {
		t.Fatalf("aggregate must reflect B, got %d", s.Unread())
	}
}

func TestPollIssuedBeforeMarkReadIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	f := &fakeAPI{
		threads: map[int][]api.Message{1: {{ID: 1}}},
		list: func(call int) ([]api.Conversation, error) {
			if atomic.AddInt32(&calls, 1) == 2 {
				close(started)
				<-release
			}
			return []api.Conversation{{ID: 1, UnreadCount: 2}}, nil
		},
	}
	s := NewStore(f, staticToken("t"), nil, nil)
	ctx := context.Background()
	_ = s.Refresh(ctx)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(ctx) }()
	<-started

	if _, err := s.Open(ctx, 1); err != nil {
		t.Fatalf("Open: %v", err)
	}
	close(release)
	<-done

	if s.Unread() != 0 {
		t.Fatalf("poll issued before mark-read resurrected unread count: %d", s.Unread())
	}
}

func TestSendEmptyMakesNoRequest(t *testing.T) {
	f := &fakeAPI{list: fixedList()}
	s := NewStore(f, staticToken("t"), nil, nil)

	msg, err := s.Send(context.Background(), 1, "   ", nil)
	if !errors.Is(err, ErrEmptyMessage) || msg != nil {
		t.Fatalf("expected ErrEmptyMessage, got %v %v", msg, err)
	}
	if len(f.sends) != 0 || f.listCalls() != 0 {
		t.Fatalf("no network call expected, sends=%d lists=%d", len(f.sends), f.listCalls())
	}
}

func TestSendAppendsAfterConfirmationAndRelists(t *testing.T) {
	f := &fakeAPI{
		list:    fixedList(api.Conversation{ID: 4, LastMessage: "old"}),
		threads: map[int][]api.Message{4: {{ID: 1, Content: "old"}}},
	}
	s := NewStore(f, staticToken("t"), nil, nil)
	ctx := context.Background()
	_ = s.Refresh(ctx)
	_, _ = s.Open(ctx, 4)

	f.mu.Lock()
	f.list = fixedList(api.Conversation{ID: 4, LastMessage: "new one"})
	f.mu.Unlock()

	msg, err := s.Send(ctx, 4, "new one", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	thread := s.Thread()
	if len(thread) != 2 || thread[1].ID != msg.ID {
		t.Fatalf("confirmed message not appended: %+v", thread)
	}
	if s.Conversations()[0].LastMessage != "new one" {
		t.Fatalf("list not refreshed after send")
	}
}

func TestSendFailureNotifiesAndKeepsState(t *testing.T) {
	bus := notify.NewBus(time.Minute)
	defer bus.Close()
	f := &fakeAPI{
		list:    fixedList(api.Conversation{ID: 4, LastMessage: "old"}),
		threads: map[int][]api.Message{4: {{ID: 1}}},
		sendErr: &api.Error{Status: 500, Message: "Internal Server Error"},
	}
	s := NewStore(f, staticToken("t"), bus, nil)
	ctx := context.Background()
	_ = s.Refresh(ctx)
	_, _ = s.Open(ctx, 4)
	listsBefore := f.listCalls()

	msg, err := s.Send(ctx, 4, "hello", nil)
	if err == nil || msg != nil {
		t.Fatalf("expected failure, got %v %v", msg, err)
	}
	if len(s.Thread()) != 1 || f.listCalls() != listsBefore {
		t.Fatalf("failed send must not touch thread or list")
	}
	items := bus.List()
	if len(items) != 1 || items[0].Type != notify.Error {
		t.Fatalf("expected one error notification, got %+v", items)
	}
}

func TestStartConversation(t *testing.T) {
	f := &fakeAPI{list: fixedList(api.Conversation{ID: 100})}
	s := NewStore(f, staticToken("t"), nil, nil)

	if _, err := s.Start(context.Background(), 0, "hi", 0); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	msg, err := s.Start(context.Background(), 12, "Is room 3 free?", 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if msg.ConversationID != 100 {
		t.Fatalf("expected server-allocated conversation, got %+v", msg)
	}
	req := f.sends[0]
	if req.RecipientID != 12 || req.ListingID != 5 || req.ConversationID != 0 {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(s.Conversations()) != 1 {
		t.Fatalf("expected re-list after start")
	}
}

func TestSignedOutMakesNoRequests(t *testing.T) {
	f := &fakeAPI{list: fixedList(api.Conversation{ID: 1})}
	s := NewStore(f, staticToken(""), nil, nil)

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if f.listCalls() != 0 {
		t.Fatalf("no request expected without a token")
	}
}

func TestResponseAfterSignOutIsDiscarded(t *testing.T) {
	tok := &switchToken{value: "t"}
	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeAPI{list: func(int) ([]api.Conversation, error) {
		close(started)
		<-release
		return []api.Conversation{{ID: 1, UnreadCount: 3}}, nil
	}}
	s := NewStore(f, tok, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started
	tok.set("")
	s.Reset()
	close(release)
	<-done

	if len(s.Conversations()) != 0 || s.Unread() != 0 {
		t.Fatalf("previous user's inbox leaked after sign-out")
	}
}

func TestRepeatedListFailuresNotifyOnce(t *testing.T) {
	bus := notify.NewBus(time.Minute)
	defer bus.Close()
	f := &fakeAPI{list: func(int) ([]api.Conversation, error) {
		return nil, errors.New("connection refused")
	}}
	s := NewStore(f, staticToken("t"), bus, nil)

	for i := 0; i < 3; i++ {
		if err := s.Refresh(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	}
	if n := len(bus.List()); n != 1 {
		t.Fatalf("expected a single notification for a failure streak, got %d", n)
	}
}
