package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Session holds the ordered messages of one chat.
type Session struct {
	ChatID    string    `yaml:"chat_id"`
	Messages  []Message `yaml:"messages"`
	Step      int       `yaml:"step"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

func newSession(chatID string) *Session {
	now := time.Now()
	return &Session{ChatID: chatID, CreatedAt: now, UpdatedAt: now}
}

type StoreOption func(*Store)

// WithMaxMessages bounds each session to the n most recent messages.
// 0 disables the bound.
func WithMaxMessages(n int) StoreOption {
	return func(s *Store) { s.maxMessages = n }
}

func WithCheckpointer(c Checkpointer) StoreOption {
	return func(s *Store) { s.checkpointer = c }
}

// Store maps chat ids to sessions. All methods are safe for concurrent use.
// Unknown chat ids get an empty session on first access.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	maxMessages  int
	checkpointer Checkpointer
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{sessions: map[string]*Session{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) MaxMessages() int {
	return s.maxMessages
}

// getOrCreateLocked must be called with s.mu held.
func (s *Store) getOrCreateLocked(chatID string) *Session {
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}
	sess := s.loadCheckpoint(chatID)
	if sess == nil {
		sess = newSession(chatID)
		log.Debug().Str("chat_id", chatID).Msg("conversation: new session")
	}
	s.sessions[chatID] = sess
	return sess
}

func (s *Store) loadCheckpoint(chatID string) *Session {
	if s.checkpointer == nil {
		return nil
	}
	sess, err := s.checkpointer.Load(context.Background(), chatID)
	if err != nil {
		if !errors.Is(err, ErrNoCheckpoint) {
			log.Warn().Err(err).Str("chat_id", chatID).Msg("conversation: could not load checkpoint")
		}
		return nil
	}
	if err := ValidatePairing(sess.Messages); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("conversation: discarding invalid checkpoint")
		return nil
	}
	sess.ChatID = chatID
	return sess
}

func (s *Store) saveCheckpoint(sess *Session) {
	if s.checkpointer == nil {
		return
	}
	if err := s.checkpointer.Save(context.Background(), sess); err != nil {
		log.Warn().Err(err).Str("chat_id", sess.ChatID).Msg("conversation: could not save checkpoint")
	}
}

// GetOrCreate returns a copy of the session for chatID, creating it if needed.
// Concurrent first calls for the same id observe the same session.
func (s *Store) GetOrCreate(chatID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone.Clone(s.getOrCreateLocked(chatID)).(*Session)
}

// Append adds msgs to the end of the session. The whole batch is rejected if
// it contains a tool result that does not answer a pending tool call.
func (s *Store) Append(chatID string, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID)
	next := make([]Message, 0, len(sess.Messages)+len(msgs))
	next = append(next, sess.Messages...)
	next = append(next, msgs...)
	if err := ValidatePairing(next); err != nil {
		return errors.Wrapf(err, "append to chat %s", chatID)
	}

	sess.Messages = trimWindow(next, s.maxMessages)
	sess.Step += len(msgs)
	sess.UpdatedAt = time.Now()
	s.saveCheckpoint(sess)
	return nil
}

// Clear empties the session. Clearing an empty or unknown session is a no-op.
func (s *Store) Clear(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID)
	if len(sess.Messages) == 0 {
		return
	}
	sess.Messages = nil
	sess.UpdatedAt = time.Now()
	s.saveCheckpoint(sess)
	log.Debug().Str("chat_id", chatID).Msg("conversation: cleared")
}

// History returns a deep copy of the session's messages in order.
func (s *Store) History(chatID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(chatID)
	if len(sess.Messages) == 0 {
		return []Message{}
	}
	return clone.Clone(sess.Messages).([]Message)
}

func (s *Store) Len(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.getOrCreateLocked(chatID).Messages)
}

// Sessions lists the chat ids known to this store, sorted.
func (s *Store) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}
