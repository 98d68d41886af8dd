package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parley-ai/parley/internal/observability"
	"github.com/parley-ai/parley/pkg/llm"
	"github.com/rs/zerolog/log"
)

// MemoryStore is an in-process Store. It backs the test suite and
// single-process hosts; durable deployments supply their own Store.
//
// Writes to the same conversation are serialized by a per-record mutex.
// Concurrent appends from two callers to the same conversation can still
// interleave at the turn level; the store orders them but does not merge.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*record
}

type recordKey struct {
	userID         string
	conversationID string
}

type record struct {
	mu       sync.Mutex
	meta     *llm.Metadata
	messages []llm.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	observability.EnsureRegistered()
	return &MemoryStore{records: make(map[recordKey]*record)}
}

func validateKey(userID, conversationID string) error {
	if userID == "" {
		return fmt.Errorf("history: user id cannot be empty")
	}
	if conversationID == "" {
		return fmt.Errorf("history: conversation id cannot be empty")
	}
	if strings.ContainsAny(conversationID, "/\\\x00") {
		return fmt.Errorf("history: conversation id contains invalid characters")
	}
	return nil
}

// Resolve returns a handle over the conversation's history. Unknown
// conversations resolve to an empty handle; when meta is supplied it is
// recorded so later resolves see how the conversation was configured.
func (s *MemoryStore) Resolve(ctx context.Context, userID, conversationID string, meta *llm.Metadata) (Handle, error) {
	if err := validateKey(userID, conversationID); err != nil {
		return nil, err
	}

	key := recordKey{userID: userID, conversationID: conversationID}

	if meta != nil {
		if err := meta.Validate(); err != nil {
			return nil, err
		}
		s.mu.Lock()
		rec, ok := s.records[key]
		if !ok {
			rec = &record{}
			s.records[key] = rec
		}
		rec.mu.Lock()
		if rec.meta == nil {
			m := *meta
			rec.meta = &m
		}
		rec.mu.Unlock()
		s.mu.Unlock()
		s.updateActiveMetric()
	}

	return &memoryHandle{store: s, key: key}, nil
}

func (s *MemoryStore) lookup(key recordKey) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key]
}

func (s *MemoryStore) updateActiveMetric() {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()
	observability.SetActiveConversations(n)
}

type memoryHandle struct {
	store *MemoryStore
	key   recordKey
}

func (h *memoryHandle) Messages(ctx context.Context) ([]llm.Message, error) {
	start := time.Now()
	defer func() {
		observability.RecordHistoryLoad(time.Since(start))
	}()

	rec := h.store.lookup(h.key)
	if rec == nil {
		return nil, nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]llm.Message, len(rec.messages))
	copy(out, rec.messages)
	return out, nil
}

func (h *memoryHandle) Append(ctx context.Context, msg llm.Message) error {
	if msg.Role == "" {
		return fmt.Errorf("history: message role cannot be empty")
	}
	if msg.Content == "" {
		return fmt.Errorf("history: message content cannot be empty")
	}

	start := time.Now()
	defer func() {
		observability.RecordHistorySave(time.Since(start))
	}()

	h.store.mu.Lock()
	rec, ok := h.store.records[h.key]
	if !ok {
		rec = &record{}
		h.store.records[h.key] = rec
	}
	h.store.mu.Unlock()

	rec.mu.Lock()
	rec.messages = append(rec.messages, msg)
	rec.mu.Unlock()

	h.store.updateActiveMetric()

	log.Debug().
		Str("conversation_id", h.key.conversationID).
		Str("role", string(msg.Role)).
		Msg("Turn appended")

	return nil
}

func (h *memoryHandle) Clear(ctx context.Context) error {
	h.store.mu.Lock()
	delete(h.store.records, h.key)
	h.store.mu.Unlock()

	h.store.updateActiveMetric()
	observability.RecordConversationCleared()

	log.Info().
		Str("conversation_id", h.key.conversationID).
		Msg("Conversation cleared")

	return nil
}

func (h *memoryHandle) Delete(ctx context.Context, index int) error {
	rec := h.store.lookup(h.key)
	if rec == nil {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if index < 0 || index >= len(rec.messages) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	rec.messages = append(rec.messages[:index], rec.messages[index+1:]...)

	observability.RecordTurnDeleted()

	log.Debug().
		Str("conversation_id", h.key.conversationID).
		Int("index", index).
		Msg("Turn deleted")

	return nil
}

func (h *memoryHandle) Metadata() *llm.Metadata {
	rec := h.store.lookup(h.key)
	if rec == nil {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.meta == nil {
		return nil
	}
	m := *rec.meta
	return &m
}
