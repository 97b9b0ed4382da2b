package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/ports"
	"campuslive/internal/core/services"
	"campuslive/internal/infrastructure/middleware"
	"campuslive/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	router   *gin.Engine
	registry ports.SessionRegistry
	history  ports.HistoryRepository
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := services.NewSessionRegistry()
	history := memory.NewMemoryHistoryRepository(100, 100)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	NewSessionHandler(registry, history).SetupRoutes(router)

	return &sessionFixture{router: router, registry: registry, history: history}
}

func (f *sessionFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetSession_Idle(t *testing.T) {
	f := newSessionFixture(t)

	w := f.get(t, "/api/v1/session")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot domain.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.False(t, snapshot.Live)
	assert.Equal(t, 0, snapshot.ViewerCount)
}

func TestGetSession_Live(t *testing.T) {
	f := newSessionFixture(t)

	f.registry.Admit("b1", "teacher")
	require.NoError(t, f.registry.PromoteToBroadcaster("b1"))
	require.NoError(t, f.registry.StartStream("b1"))
	f.registry.Admit("v1", "student")

	w := f.get(t, "/api/v1/session")
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot domain.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.Live)
	assert.Equal(t, domain.ParticipantID("b1"), snapshot.Broadcaster)
	assert.Equal(t, 1, snapshot.ViewerCount)
	assert.Equal(t, 2, snapshot.ParticipantCount)
}

func TestGetParticipants(t *testing.T) {
	f := newSessionFixture(t)

	f.registry.Admit("v1", "student-1")
	f.registry.Admit("v2", "student-2")

	w := f.get(t, "/api/v1/session/participants")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Participants []domain.Participant `json:"participants"`
		Count        int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Participants, 2)
}

func TestGetChatHistory(t *testing.T) {
	f := newSessionFixture(t)

	ctx := context.Background()
	require.NoError(t, f.history.AppendChat(ctx, domain.ChatMessage{
		SenderLabel: "alice",
		Text:        "first",
		SentAt:      time.Now(),
	}))
	require.NoError(t, f.history.AppendChat(ctx, domain.ChatMessage{
		SenderLabel: "bob",
		Text:        "second",
		SentAt:      time.Now(),
	}))

	w := f.get(t, "/api/v1/history/chat?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []domain.ChatMessage `json:"messages"`
		Count    int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "second", body.Messages[0].Text)
}

func TestGetChatHistory_InvalidLimit(t *testing.T) {
	f := newSessionFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/history/chat?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/history/chat?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/history/chat?limit=100000").Code)
}

func TestGetMicEvents(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.history.AppendMicEvent(context.Background(), domain.MicEvent{
		RequesterID: "v1",
		Decision:    domain.MicApproved,
		DecidedBy:   "b1",
		At:          time.Now(),
	}))

	w := f.get(t, "/api/v1/history/mic-events")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Events []domain.MicEvent `json:"events"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, domain.MicApproved, body.Events[0].Decision)
}
