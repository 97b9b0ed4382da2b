package ports

import (
	"context"

	"campuslive/internal/core/domain"
)

// HistoryRepository stores post-hoc chat and mic-decision logs. Writes happen
// off the relay path and are best-effort.
type HistoryRepository interface {
	AppendChat(ctx context.Context, msg domain.ChatMessage) error
	RecentChat(ctx context.Context, limit int) ([]domain.ChatMessage, error)
	AppendMicEvent(ctx context.Context, event domain.MicEvent) error
	RecentMicEvents(ctx context.Context, limit int) ([]domain.MicEvent, error)
}
