package http

import (
	"net/http"
	"strconv"

	"campuslive/internal/core/ports"
	"campuslive/pkg/errors"
	"campuslive/pkg/validation"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 50

// SessionHandler exposes read-only views of the live session and its history.
type SessionHandler struct {
	registry ports.SessionRegistry
	history  ports.HistoryRepository
}

func NewSessionHandler(registry ports.SessionRegistry, history ports.HistoryRepository) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		history:  history,
	}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/session", h.GetSession)
		api.GET("/session/participants", h.GetParticipants)
		api.GET("/history/chat", h.GetChatHistory)
		api.GET("/history/mic-events", h.GetMicEvents)
	}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Snapshot())
}

func (h *SessionHandler) GetParticipants(c *gin.Context) {
	participants := h.registry.Participants()
	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"count":        len(participants),
	})
}

func (h *SessionHandler) GetChatHistory(c *gin.Context) {
	limit, err := historyLimit(c)
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	messages, err := h.history.RecentChat(c.Request.Context(), limit)
	if err != nil {
		c.Error(errors.NewInternalError("failed to load chat history"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

func (h *SessionHandler) GetMicEvents(c *gin.Context) {
	limit, err := historyLimit(c)
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	events, err := h.history.RecentMicEvents(c.Request.Context(), limit)
	if err != nil {
		c.Error(errors.NewInternalError("failed to load mic events"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func historyLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if err := validation.ValidateHistoryLimit(limit); err != nil {
		return 0, err
	}
	return limit, nil
}
