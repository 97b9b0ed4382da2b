package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/ports"
	"campuslive/internal/core/services"
	"campuslive/internal/infrastructure/monitoring"
	"campuslive/pkg/retry"
	"campuslive/pkg/tracing"
	"campuslive/pkg/validation"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options carries the tunables the server takes from configuration.
type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	OutboundBuffer    int
	AllowedOrigins    []string
	MessagesPerSecond float64
	MessageBurst      int
	MaxMessageSize    int64
}

func DefaultOptions() Options {
	return Options{
		PingInterval:      30 * time.Second,
		PongTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		OutboundBuffer:    32,
		AllowedOrigins:    []string{"*"},
		MessagesPerSecond: 100,
		MessageBurst:      200,
		MaxMessageSize:    64 * 1024,
	}
}

// WebSocketServer is the relay: it admits participants into the session
// registry, routes signaling point-to-point, and fans out presence, chat and
// mic-floor events.
type WebSocketServer struct {
	registry ports.SessionRegistry
	history  ports.HistoryRepository
	auth     services.AuthService
	metrics  *monitoring.PrometheusCollector

	clients map[domain.ParticipantID]*client
	mu      sync.RWMutex

	opts         Options
	historyRetry retry.Config

	logger *zap.SugaredLogger
}

type relayError struct {
	code    string
	message string
}

func NewWebSocketServer(
	registry ports.SessionRegistry,
	history ports.HistoryRepository,
	auth services.AuthService,
	metrics *monitoring.PrometheusCollector,
	opts Options,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	return &WebSocketServer{
		registry: registry,
		history:  history,
		auth:     auth,
		metrics:  metrics,
		clients:  make(map[domain.ParticipantID]*client),
		opts:     opts,
		historyRetry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		logger: logger,
	}
}

func (s *WebSocketServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.opts.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	id := domain.ParticipantID(uuid.New().String())
	s.registry.Admit(id, claims.Username)

	// Role promotion comes from the token, not from anything the client
	// sends over the socket.
	role := domain.RoleViewer
	var promoteErr error
	if claims.Role == domain.RoleBroadcaster {
		promoteErr = s.registry.PromoteToBroadcaster(id)
		if promoteErr == nil {
			role = domain.RoleBroadcaster
		}
	}

	c := newClient(id, claims.Username, conn, s.opts.OutboundBuffer)

	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()

	go c.writePump(s.opts.PingInterval, s.opts.WriteTimeout)

	s.metrics.RecordParticipantConnected(string(role))
	s.logger.Infow("participant connected",
		"participant_id", id,
		"label", claims.Username,
		"role", role,
	)

	c.enqueue(mustEnvelope(EventWelcome, WelcomePayload{
		ParticipantID: id,
		Role:          role,
		Live:          s.registry.IsLive(),
		ViewerCount:   s.registry.ViewerCount(),
	}))

	if promoteErr == domain.ErrBroadcasterActive {
		c.enqueue(errorEnvelope(CodeBroadcasterActive, "another broadcaster is already connected, joined as viewer"))
	}

	s.broadcastViewerCount()

	s.readLoop(c)

	// Cleanup on disconnect. An abrupt network drop takes exactly the same
	// path as a clean close.
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	c.close()

	result := s.registry.Evict(id)
	s.metrics.RecordParticipantDisconnected(string(role))
	if result.StreamStopped {
		s.metrics.SetStreamLive(false)
		s.broadcast(mustEnvelope(EventStreamStopped, nil))
	}
	// The evict result carries the post-removal count, so the broadcast
	// matches the state this disconnect produced even if another join or
	// leave lands in between.
	s.publishViewerCount(result.ViewerCount)

	s.logger.Infow("participant disconnected",
		"participant_id", id,
		"was_broadcaster", result.WasBroadcaster,
		"stream_stopped", result.StreamStopped,
	)
}

func (s *WebSocketServer) readLoop(c *client) {
	if s.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst)

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading message", "participant_id", c.id, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if !limiter.Allow() {
			c.enqueue(errorEnvelope(CodeRateLimited, "message rate limit exceeded"))
			continue
		}

		if relayErr := s.handleMessage(c, env); relayErr != nil {
			s.metrics.RecordDeliveryFailure(relayErr.code)
			c.enqueue(errorEnvelope(relayErr.code, relayErr.message))
		}
	}
}

func (s *WebSocketServer) handleMessage(c *client, env Envelope) *relayError {
	_, span := tracing.TraceRelayEvent(context.Background(), env.Type, string(c.id))
	defer span.End()

	switch env.Type {
	case EventStartStream:
		return s.handleStartStream(c)
	case EventStopStream:
		return s.handleStopStream(c)
	case EventViewerJoin:
		return s.handleViewerJoin(c)
	case EventOffer, EventAnswer:
		return s.handleSDP(c, env)
	case EventCandidate:
		return s.handleCandidate(c, env)
	case EventChatMessage:
		return s.handleChat(c, env)
	case EventMicRequest:
		return s.handleMicRequest(c)
	case EventMicDecision:
		return s.handleMicDecision(c, env)
	default:
		return &relayError{CodeUnknownType, "unknown message type: " + env.Type}
	}
}

func (s *WebSocketServer) handleStartStream(c *client) *relayError {
	if err := s.registry.StartStream(c.id); err != nil {
		return &relayError{CodeUnauthorizedRole, "only the broadcaster can start the stream"}
	}
	s.metrics.SetStreamLive(true)
	s.broadcast(mustEnvelope(EventStreamStarted, nil))
	s.logger.Infow("stream started", "participant_id", c.id)
	return nil
}

func (s *WebSocketServer) handleStopStream(c *client) *relayError {
	if err := s.registry.StopStream(c.id); err != nil {
		return &relayError{CodeUnauthorizedRole, "only the broadcaster can stop the stream"}
	}
	s.metrics.SetStreamLive(false)
	s.broadcast(mustEnvelope(EventStreamStopped, nil))
	s.logger.Infow("stream stopped", "participant_id", c.id)
	return nil
}

func (s *WebSocketServer) handleViewerJoin(c *client) *relayError {
	broadcasterID, ok := s.registry.Broadcaster()
	if !ok {
		// Nothing to announce to; not an error for the viewer.
		return nil
	}
	s.deliver(broadcasterID, mustEnvelope(EventViewerJoined, ViewerJoinedPayload{
		ViewerID: c.id,
		Label:    c.label,
	}))
	return nil
}

func (s *WebSocketServer) handleSDP(c *client, env Envelope) *relayError {
	var payload SDPPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return &relayError{CodeInvalidPayload, "invalid " + env.Type + " payload"}
	}
	if err := validation.ValidateParticipantID(string(payload.TargetID)); err != nil {
		return &relayError{CodeInvalidPayload, env.Type + ": " + err.Error()}
	}
	if payload.SDP.SDP == "" {
		return &relayError{CodeInvalidPayload, env.Type + " requires an sdp"}
	}

	if _, connected := s.registry.Lookup(payload.TargetID); !connected {
		return &relayError{CodeTargetNotFound, "target participant " + string(payload.TargetID) + " is not connected"}
	}

	forwarded := mustEnvelope(env.Type, ForwardedSDP{
		FromID: c.id,
		SDP:    payload.SDP,
	})
	if !s.deliver(payload.TargetID, forwarded) {
		return &relayError{CodeDeliveryFailed, "could not deliver " + env.Type + " to target"}
	}

	s.metrics.RecordMessageRelayed(env.Type)
	s.logger.Debugw("routed signaling message",
		"kind", env.Type,
		"from", c.id,
		"to", payload.TargetID,
		"sdp_length", len(payload.SDP.SDP),
	)
	return nil
}

func (s *WebSocketServer) handleCandidate(c *client, env Envelope) *relayError {
	var payload CandidatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return &relayError{CodeInvalidPayload, "invalid candidate payload"}
	}
	if err := validation.ValidateParticipantID(string(payload.TargetID)); err != nil {
		return &relayError{CodeInvalidPayload, "candidate: " + err.Error()}
	}
	if payload.Candidate.Candidate == "" {
		return &relayError{CodeInvalidPayload, "candidate requires a candidate line"}
	}

	if _, connected := s.registry.Lookup(payload.TargetID); !connected {
		return &relayError{CodeTargetNotFound, "target participant " + string(payload.TargetID) + " is not connected"}
	}

	forwarded := mustEnvelope(EventCandidate, ForwardedCandidate{
		FromID:    c.id,
		Candidate: payload.Candidate,
	})
	if !s.deliver(payload.TargetID, forwarded) {
		return &relayError{CodeDeliveryFailed, "could not deliver candidate to target"}
	}

	s.metrics.RecordMessageRelayed(EventCandidate)
	return nil
}

func (s *WebSocketServer) handleChat(c *client, env Envelope) *relayError {
	var payload ChatPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return &relayError{CodeInvalidPayload, "invalid chat payload"}
	}
	if payload.Text == "" {
		return &relayError{CodeInvalidPayload, "chat text must not be empty"}
	}

	sentAt := time.Now()
	recipients := s.broadcastExcept(c.id, chatBroadcast(c.label, payload.Text, sentAt))

	s.metrics.RecordChatMessage()
	s.metrics.RecordBroadcastFanout(recipients)

	// History write happens off the relay path and never delays fan-out.
	s.persistAsync("chat", func(ctx context.Context) error {
		return s.history.AppendChat(ctx, domain.ChatMessage{
			SenderLabel: c.label,
			Text:        payload.Text,
			SentAt:      sentAt,
		})
	})
	return nil
}

func (s *WebSocketServer) handleMicRequest(c *client) *relayError {
	participant, ok := s.registry.Lookup(c.id)
	if !ok || participant.IsBroadcaster() {
		return &relayError{CodeUnauthorizedRole, "only viewers can request the mic"}
	}

	broadcasterID, ok := s.registry.Broadcaster()
	if !ok {
		return &relayError{CodeNoBroadcaster, "no broadcaster connected to decide the request"}
	}

	if !s.deliver(broadcasterID, mustEnvelope(EventMicRequest, MicRequestNotice{
		RequesterID:    c.id,
		RequesterLabel: c.label,
	})) {
		return &relayError{CodeDeliveryFailed, "could not deliver mic request to broadcaster"}
	}

	s.metrics.RecordMicRequest()
	return nil
}

func (s *WebSocketServer) handleMicDecision(c *client, env Envelope) *relayError {
	broadcasterID, ok := s.registry.Broadcaster()
	if !ok || broadcasterID != c.id {
		return &relayError{CodeUnauthorizedRole, "only the broadcaster can decide mic requests"}
	}

	var payload MicDecisionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return &relayError{CodeInvalidPayload, "invalid mic decision payload"}
	}
	if err := validation.ValidateParticipantID(string(payload.RequesterID)); err != nil {
		return &relayError{CodeInvalidPayload, "mic decision: " + err.Error()}
	}

	if _, connected := s.registry.Lookup(payload.RequesterID); !connected {
		return &relayError{CodeTargetNotFound, "requester " + string(payload.RequesterID) + " is not connected"}
	}

	eventType := EventMicDenied
	decision := domain.MicDenied
	if payload.Approve {
		eventType = EventMicApproved
		decision = domain.MicApproved
	}

	if !s.deliver(payload.RequesterID, mustEnvelope(eventType, nil)) {
		return &relayError{CodeDeliveryFailed, "could not deliver mic decision to requester"}
	}

	s.metrics.RecordMicDecision(string(decision))

	s.persistAsync("mic", func(ctx context.Context) error {
		return s.history.AppendMicEvent(ctx, domain.MicEvent{
			RequesterID: payload.RequesterID,
			Decision:    decision,
			DecidedBy:   c.id,
			At:          time.Now(),
		})
	})
	return nil
}

// deliver enqueues a message for one participant. A stalled consumer gets its
// connection closed; its read loop then runs the normal cleanup path.
func (s *WebSocketServer) deliver(targetID domain.ParticipantID, env Envelope) bool {
	s.mu.RLock()
	target, exists := s.clients[targetID]
	s.mu.RUnlock()

	if !exists {
		return false
	}
	if !target.enqueue(env) {
		s.logger.Warnw("outbound queue full, dropping connection", "participant_id", targetID)
		target.conn.Close()
		return false
	}
	return true
}

// broadcast fans a message out to every connected participant.
func (s *WebSocketServer) broadcast(env Envelope) int {
	return s.broadcastExcept("", env)
}

// broadcastExcept fans a message out to everyone but the given participant.
func (s *WebSocketServer) broadcastExcept(exclude domain.ParticipantID, env Envelope) int {
	s.mu.RLock()
	targets := make([]*client, 0, len(s.clients))
	for id, c := range s.clients {
		if id == exclude {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(env) {
			delivered++
		}
	}
	return delivered
}

func (s *WebSocketServer) broadcastViewerCount() {
	s.publishViewerCount(s.registry.ViewerCount())
}

func (s *WebSocketServer) publishViewerCount(count int) {
	s.metrics.SetViewerCount(count)
	s.broadcast(mustEnvelope(EventViewerCount, ViewerCountPayload{ViewerCount: count}))
}

func (s *WebSocketServer) persistAsync(kind string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ctx, span := tracing.TraceHistoryWrite(ctx, kind)
		defer span.End()

		if err := retry.Do(ctx, s.historyRetry, func() error { return fn(ctx) }); err != nil {
			tracing.RecordError(ctx, err)
			s.logger.Warnw("failed to persist history entry", "kind", kind, "error", err)
		}
	}()
}

// ConnectedParticipants returns the ids of everyone with an open socket.
func (s *WebSocketServer) ConnectedParticipants() []domain.ParticipantID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.ParticipantID, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *WebSocketServer) IsConnected(id domain.ParticipantID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.clients[id]
	return exists
}

func (s *WebSocketServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	connectionCount := len(s.clients)
	s.mu.RUnlock()

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"connections": connectionCount,
		"live":        s.registry.IsLive(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
