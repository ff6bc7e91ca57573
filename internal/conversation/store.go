// Package conversation implements the bounded in-memory conversation
// store: ordered multi-turn message lists keyed by id, with a per-
// conversation message cap and least-recently-updated eviction under a
// store-wide capacity bound. State is volatile; Export/Import exist so a
// caller can persist conversations externally.
//
// Reads may run concurrently. Concurrent writers mutating the same
// conversation id must be serialized by the caller; the store does not
// arbitrate between them.
package conversation

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/core"
	"chatcore/internal/observability"
)

const (
	// DefaultMaxConversations bounds the number of live conversations.
	DefaultMaxConversations = 100

	// DefaultMaxMessages bounds the message history per conversation.
	DefaultMaxMessages = 100

	// titleMaxRunes is the display length a derived title is truncated to.
	titleMaxRunes = 50

	titleEllipsis = "..."
)

// Conversation is one chat session: an ordered, bounded list of messages.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	ModelID   string         `json:"model_id"`
	Messages  []core.Message `json:"messages"`
	UserID    string         `json:"user_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// Update is a partial conversation change. Nil fields are left untouched;
// ID and CreatedAt are immutable.
type Update struct {
	Title   *string
	ModelID *string
	UserID  *string
}

// Summary is a per-conversation digest.
type Summary struct {
	MessageCount      int        `json:"message_count"`
	UserMessages      int        `json:"user_messages"`
	AssistantMessages int        `json:"assistant_messages"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
}

// Config bounds the store. Non-positive values fall back to the defaults.
type Config struct {
	MaxConversations int
	MaxMessages      int
}

// Store owns the in-memory conversation collection.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	cfg           Config
	logger        *slog.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

// New creates an empty store. A nil logger uses slog.Default(); metrics
// may be nil.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = DefaultMaxConversations
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		conversations: make(map[string]*Conversation),
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Create adds a new conversation with a generated id and empty message
// list, then evicts least-recently-updated conversations if the store is
// over capacity. Eviction runs only here, not on every mutation.
func (s *Store) Create(modelID, userID, title string) *Conversation {
	c := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		ModelID:   modelID,
		Messages:  []core.Message{},
		UserID:    userID,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.conversations[c.ID] = c
	s.evictLocked()
	s.mu.Unlock()

	return c.clone()
}

// Get returns the conversation with the given id.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

// GetAll returns every conversation, most recently updated first.
func (s *Store) GetAll() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*Conversation) bool { return true })
}

// GetByUser returns one user's conversations, most recently updated first.
func (s *Store) GetByUser(userID string) []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *Conversation) bool { return c.UserID == userID })
}

// AddMessage appends a message, stamping UpdatedAt. The first user
// message titles an untitled conversation. History over the configured
// cap drops the oldest messages silently: the cap is a ring, not an
// error condition. Returns false if the id is unknown.
func (s *Store) AddMessage(id string, msg core.Message) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}

	c.Messages = append(c.Messages, msg)
	if len(c.Messages) == 1 && msg.Role == core.RoleUser && c.Title == "" {
		c.Title = deriveTitle(msg.Content)
	}
	if len(c.Messages) > s.cfg.MaxMessages {
		c.Messages = append([]core.Message(nil), c.Messages[len(c.Messages)-s.cfg.MaxMessages:]...)
	}
	updated := s.now()
	c.UpdatedAt = &updated

	return c.clone(), true
}

// GetMessages returns the full message list for a conversation.
func (s *Store) GetMessages(id string) ([]core.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	return append([]core.Message(nil), c.Messages...), true
}

// GetRecentMessages returns at most the last count messages, in original
// order.
func (s *Store) GetRecentMessages(id string, count int) ([]core.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	msgs := c.Messages
	if count >= 0 && len(msgs) > count {
		msgs = msgs[len(msgs)-count:]
	}
	return append([]core.Message(nil), msgs...), true
}

// ClearMessages empties the message list, stamping UpdatedAt. Returns
// false if the id is unknown.
func (s *Store) ClearMessages(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return false
	}
	c.Messages = []core.Message{}
	updated := s.now()
	c.UpdatedAt = &updated
	return true
}

// Update merges the partial change, stamping UpdatedAt. Returns false if
// the id is unknown.
func (s *Store) Update(id string, upd Update) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.ModelID != nil {
		c.ModelID = *upd.ModelID
	}
	if upd.UserID != nil {
		c.UserID = *upd.UserID
	}
	updated := s.now()
	c.UpdatedAt = &updated

	return c.clone(), true
}

// Delete removes a conversation, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	return true
}

// Search returns conversations whose title or any message content
// contains the query, case-insensitively. A non-empty userID restricts
// the search to that user.
func (s *Store) Search(query, userID string) []*Conversation {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *Conversation) bool {
		if userID != "" && c.UserID != userID {
			return false
		}
		if strings.Contains(strings.ToLower(c.Title), q) {
			return true
		}
		for _, msg := range c.Messages {
			if strings.Contains(strings.ToLower(msg.Content), q) {
				return true
			}
		}
		return false
	})
}

// GetSummary returns message counts and the last activity timestamp.
func (s *Store) GetSummary(id string) (*Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	sum := &Summary{MessageCount: len(c.Messages)}
	for _, msg := range c.Messages {
		switch msg.Role {
		case core.RoleUser:
			sum.UserMessages++
		case core.RoleAssistant:
			sum.AssistantMessages++
		}
	}
	if len(c.Messages) > 0 && c.UpdatedAt != nil {
		last := *c.UpdatedAt
		sum.LastMessageAt = &last
	}
	return sum, true
}

// Export serializes a conversation with all fields. Returns false if the
// id is unknown.
func (s *Store) Export(id string) (string, bool) {
	c, ok := s.Get(id)
	if !ok {
		return "", false
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		s.logger.Warn("conversation export failed", "id", id, "error", err)
		return "", false
	}
	return string(data), true
}

// Import deserializes a conversation, preserving its id, and stores it.
// Import is best-effort: a malformed payload logs a diagnostic and
// returns false rather than failing hard.
func (s *Store) Import(data string) (*Conversation, bool) {
	var c Conversation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		s.logger.Warn("conversation import failed", "error", err)
		return nil, false
	}
	if c.ID == "" {
		s.logger.Warn("conversation import rejected", "reason", "missing id")
		return nil, false
	}
	if c.Messages == nil {
		c.Messages = []core.Message{}
	}

	s.mu.Lock()
	s.conversations[c.ID] = &c
	s.evictLocked()
	s.mu.Unlock()

	return c.clone(), true
}

// evictLocked removes least-recently-updated conversations until the
// store is back at capacity. Caller holds s.mu.
func (s *Store) evictLocked() {
	for len(s.conversations) > s.cfg.MaxConversations {
		var victim *Conversation
		for _, c := range s.conversations {
			if victim == nil || lastActivity(c).Before(lastActivity(victim)) {
				victim = c
			}
		}
		if victim == nil {
			return
		}
		delete(s.conversations, victim.ID)
		s.metrics.Eviction()
		s.logger.Debug("evicted conversation", "id", victim.ID, "title", victim.Title)
	}
}

// collect gathers matching conversations, most recently active first.
// Caller holds s.mu.
func (s *Store) collect(match func(*Conversation) bool) []*Conversation {
	var result []*Conversation
	for _, c := range s.conversations {
		if match(c) {
			result = append(result, c.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return lastActivity(result[i]).After(lastActivity(result[j]))
	})
	return result
}

// lastActivity is UpdatedAt when set, otherwise CreatedAt.
func lastActivity(c *Conversation) time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// deriveTitle builds a display title from the first user message:
// whitespace collapsed, truncated to titleMaxRunes with an ellipsis.
func deriveTitle(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if len(runes) <= titleMaxRunes {
		return collapsed
	}
	return string(runes[:titleMaxRunes]) + titleEllipsis
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Messages = append([]core.Message(nil), c.Messages...)
	if c.UpdatedAt != nil {
		u := *c.UpdatedAt
		cp.UpdatedAt = &u
	}
	return &cp
}
