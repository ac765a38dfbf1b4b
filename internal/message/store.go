// Package message keeps the signed-in user's inbox in sync with the backend.
package message

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/notepid/hostelhub/internal/api"
	"github.com/notepid/hostelhub/internal/notify"
)

var (
	// ErrEmptyMessage is returned before any request when there is nothing to send.
	ErrEmptyMessage = errors.New("message needs text or an attachment")
	// ErrNotAuthenticated is returned when there is no session token.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrNoRecipient is returned by Start without a recipient.
	ErrNoRecipient = errors.New("recipient is required")
)

// API is the subset of the backend client the inbox needs.
type API interface {
	ListConversations(ctx context.Context, token string) ([]api.Conversation, error)
	GetConversation(ctx context.Context, token string, id int) (api.ConversationDetail, error)
	MarkRead(ctx context.Context, token string, id int) error
	SendMessage(ctx context.Context, token string, req api.SendRequest) (api.Message, error)
}

// TokenSource yields the current session token, "" when signed out.
type TokenSource interface {
	Token() string
}

// Store holds the conversation list, the active thread and the unread
// total. The total always equals the sum of the per-conversation counts.
type Store struct {
	api      API
	tokens   TokenSource
	notifier *notify.Bus
	log      *zap.Logger

	mu            sync.Mutex
	conversations []api.Conversation
	unread        int
	activeID      int
	thread        []api.Message
	// issued is the sequence of the latest list request; applied is the
	// newest sequence whose response was applied or made obsolete.
	issued      uint64
	applied     uint64
	listFailing bool
	listeners   []func()
}

// NewStore creates an empty inbox. notifier and log may be nil.
func NewStore(a API, tokens TokenSource, notifier *notify.Bus, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:      a,
		tokens:   tokens,
		notifier: notifier,
		log:      log.Named("message"),
	}
}

// OnChange registers fn to run after every change, without the lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Conversations returns a copy of the conversation list.
func (s *Store) Conversations() []api.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Unread returns the total unread count across conversations.
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// ActiveID returns the selected conversation, 0 if none.
func (s *Store) ActiveID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Thread returns a copy of the active conversation's messages.
func (s *Store) Thread() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Message, len(s.thread))
	copy(out, s.thread)
	return out
}

// Refresh re-lists conversations. A response is applied only if no newer
// list request (or local read-state change) has been applied meanwhile.
func (s *Store) Refresh(ctx context.Context) error {
	token := s.tokens.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	convs, err := s.api.ListConversations(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.mu.Lock()
		first := !s.listFailing
		s.listFailing = true
		s.mu.Unlock()
		if first {
			s.fail("Could not load conversations", err)
		} else {
			s.log.Debug("list conversations still failing", zap.Error(err))
		}
		return err
	}

	s.mu.Lock()
	if seq <= s.applied || s.tokens.Token() != token {
		s.mu.Unlock()
		s.log.Debug("discarding stale conversation list", zap.Uint64("seq", seq))
		return nil
	}
	s.applied = seq
	s.listFailing = false
	s.conversations = convs
	s.recountLocked()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	fire(listeners)
	return nil
}

// Open loads a conversation's history and makes it active. If the cached
// unread count is positive, one mark-read request is sent and the count is
// zeroed.
func (s *Store) Open(ctx context.Context, id int) ([]api.Message, error) {
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	detail, err := s.api.GetConversation(ctx, token, id)
	if err != nil {
		s.fail("Could not open conversation", err)
		return nil, err
	}

	s.mu.Lock()
	s.activeID = id
	s.thread = detail.Messages
	unread := 0
	if i := s.indexLocked(id); i >= 0 {
		unread = s.conversations[i].UnreadCount
	}
	thread := append([]api.Message(nil), s.thread...)
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	fire(listeners)

	if unread > 0 {
		if err := s.api.MarkRead(ctx, token, id); err != nil {
			s.fail("Could not mark conversation as read", err)
			return thread, nil
		}
		s.mu.Lock()
		if i := s.indexLocked(id); i >= 0 {
			s.conversations[i].UnreadCount = 0
		}
		s.recountLocked()
		// Polls issued before the read may still report the old count.
		s.applied = s.issued
		listeners := s.snapshotListeners()
		s.mu.Unlock()
		fire(listeners)
	}

	return thread, nil
}

// Send posts to an existing conversation. The message is shown only after
// the server accepts it, then the list is refreshed.
func (s *Store) Send(ctx context.Context, conversationID int, text string, files []string) (*api.Message, error) {
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return nil, ErrEmptyMessage
	}
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	msg, err := s.api.SendMessage(ctx, token, api.SendRequest{
		ConversationID: conversationID,
		Content:        strings.TrimSpace(text),
		Files:          files,
	})
	if err != nil {
		s.fail("Message not sent", err)
		return nil, err
	}
	if msg.ConversationID == 0 {
		msg.ConversationID = conversationID
	}

	s.mu.Lock()
	if s.activeID == conversationID {
		s.thread = append(s.thread, msg)
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	fire(listeners)

	_ = s.Refresh(ctx)
	return &msg, nil
}

// Start sends the first message to recipientID, optionally about a listing.
// The server allocates the conversation; its id is on the returned message.
func (s *Store) Start(ctx context.Context, recipientID int, text string, listingID int) (*api.Message, error) {
	if recipientID <= 0 {
		return nil, ErrNoRecipient
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	msg, err := s.api.SendMessage(ctx, token, api.SendRequest{
		RecipientID: recipientID,
		ListingID:   listingID,
		Content:     strings.TrimSpace(text),
	})
	if err != nil {
		s.fail("Could not start conversation", err)
		return nil, err
	}

	_ = s.Refresh(ctx)
	return &msg, nil
}

// Reset forgets everything, e.g. after sign-out. In-flight list responses
// are discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	s.conversations = nil
	s.thread = nil
	s.activeID = 0
	s.unread = 0
	s.listFailing = false
	s.applied = s.issued
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	fire(listeners)
}

func (s *Store) fail(title string, err error) {
	s.log.Warn(strings.ToLower(title), zap.Error(err))
	if s.notifier != nil {
		s.notifier.Error(err.Error(), notify.WithTitle(title))
	}
}

func (s *Store) indexLocked(id int) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) recountLocked() {
	total := 0
	for i := range s.conversations {
		if s.conversations[i].UnreadCount < 0 {
			s.conversations[i].UnreadCount = 0
		}
		total += s.conversations[i].UnreadCount
	}
	s.unread = total
}

func (s *Store) snapshotListeners() []func() {
	out := make([]func(), len(s.listeners))
	copy(out, s.listeners)
	return out
}

func fire(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
