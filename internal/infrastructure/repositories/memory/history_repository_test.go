package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campuslive/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_ChatNewestFirst(t *testing.T) {
	repo := NewMemoryHistoryRepository(10, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendChat(ctx, domain.ChatMessage{
			SenderLabel: "alice",
			Text:        fmt.Sprintf("message %d", i),
			SentAt:      time.Now(),
		}))
	}

	messages, err := repo.RecentChat(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 2", messages[0].Text)
	assert.Equal(t, "message 0", messages[2].Text)
}

func TestHistoryRepository_ChatRespectsLimit(t *testing.T) {
	repo := NewMemoryHistoryRepository(10, 10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendChat(ctx, domain.ChatMessage{Text: fmt.Sprintf("m%d", i)}))
	}

	messages, err := repo.RecentChat(ctx, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m4", messages[0].Text)
}

func TestHistoryRepository_ChatCapEvictsOldest(t *testing.T) {
	repo := NewMemoryHistoryRepository(3, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendChat(ctx, domain.ChatMessage{Text: fmt.Sprintf("m%d", i)}))
	}

	messages, err := repo.RecentChat(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "m4", messages[0].Text)
	assert.Equal(t, "m2", messages[2].Text)
}

func TestHistoryRepository_EmptyRead(t *testing.T) {
	repo := NewMemoryHistoryRepository(10, 10)

	messages, err := repo.RecentChat(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHistoryRepository_MicEvents(t *testing.T) {
	repo := NewMemoryHistoryRepository(10, 10)
	ctx := context.Background()

	require.NoError(t, repo.AppendMicEvent(ctx, domain.MicEvent{
		RequesterID: "v1",
		Decision:    domain.MicApproved,
		DecidedBy:   "b1",
		At:          time.Now(),
	}))
	require.NoError(t, repo.AppendMicEvent(ctx, domain.MicEvent{
		RequesterID: "v2",
		Decision:    domain.MicDenied,
		DecidedBy:   "b1",
		At:          time.Now(),
	}))

	events, err := repo.RecentMicEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ParticipantID("v2"), events[0].RequesterID)
	assert.Equal(t, domain.MicDenied, events[0].Decision)
}
