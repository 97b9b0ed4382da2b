package memory

import (
	"context"
	"sync"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/ports"
)

// MemoryHistoryRepository keeps capped in-memory chat and mic logs, newest
// first. Used when Redis is disabled or unreachable.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	chat    []domain.ChatMessage
	mic     []domain.MicEvent
	maxChat int
	maxMic  int
}

func NewMemoryHistoryRepository(maxChat, maxMic int) ports.HistoryRepository {
	return &MemoryHistoryRepository{
		maxChat: maxChat,
		maxMic:  maxMic,
	}
}

func (r *MemoryHistoryRepository) AppendChat(ctx context.Context, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chat = append([]domain.ChatMessage{msg}, r.chat...)
	if len(r.chat) > r.maxChat {
		r.chat = r.chat[:r.maxChat]
	}
	return nil
}

func (r *MemoryHistoryRepository) RecentChat(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.chat) {
		limit = len(r.chat)
	}
	out := make([]domain.ChatMessage, limit)
	copy(out, r.chat[:limit])
	return out, nil
}

func (r *MemoryHistoryRepository) AppendMicEvent(ctx context.Context, event domain.MicEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mic = append([]domain.MicEvent{event}, r.mic...)
	if len(r.mic) > r.maxMic {
		r.mic = r.mic[:r.maxMic]
	}
	return nil
}

func (r *MemoryHistoryRepository) RecentMicEvents(ctx context.Context, limit int) ([]domain.MicEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.mic) {
		limit = len(r.mic)
	}
	out := make([]domain.MicEvent, limit)
	copy(out, r.mic[:limit])
	return out, nil
}
