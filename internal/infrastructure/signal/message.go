package signal

import (
	"encoding/json"
	"time"

	"campuslive/internal/core/domain"

	"github.com/pion/webrtc/v3"
)

// Envelope is the wire format for every WebSocket message in both directions.
// Payload shape is fixed per Type and validated at the boundary before any
// state is touched.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server event types.
const (
	EventStartStream = "start-stream"
	EventStopStream  = "stop-stream"
	EventViewerJoin  = "viewer-join"
	EventOffer       = "offer"
	EventAnswer      = "answer"
	EventCandidate   = "candidate"
	EventChatMessage = "chat-message"
	EventMicRequest  = "mic-request"
	EventMicDecision = "mic-decision"
)

// Server to client event types. Offer/answer/candidate and chat-message keep
// their inbound names when forwarded.
const (
	EventWelcome       = "welcome"
	EventStreamStarted = "stream-started"
	EventStreamStopped = "stream-stopped"
	EventViewerCount   = "viewer-count"
	EventViewerJoined  = "viewer-joined"
	EventMicApproved   = "mic-approved"
	EventMicDenied     = "mic-denied"
	EventError         = "error"
)

// Error codes carried by EventError payloads.
const (
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
	CodeDeliveryFailed    = "DELIVERY_FAILED"
	CodeInvalidPayload    = "INVALID_PAYLOAD"
	CodeUnauthorizedRole  = "UNAUTHORIZED_ROLE"
	CodeBroadcasterActive = "BROADCASTER_ACTIVE"
	CodeNoBroadcaster     = "MIC_NO_BROADCASTER"
	CodeUnknownType       = "UNKNOWN_TYPE"
	CodeRateLimited       = "RATE_LIMITED"
)

// SDPPayload addresses an offer or answer at a specific participant. The SDP
// is decoded for shape only; its contents are opaque to the relay.
type SDPPayload struct {
	TargetID domain.ParticipantID      `json:"target_id"`
	SDP      webrtc.SessionDescription `json:"sdp"`
}

// CandidatePayload addresses an ICE candidate at a specific participant.
type CandidatePayload struct {
	TargetID  domain.ParticipantID    `json:"target_id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// ForwardedSDP is an offer or answer as delivered to its target. FromID is
// attached by the server, never taken from the client payload.
type ForwardedSDP struct {
	FromID domain.ParticipantID      `json:"from_id"`
	SDP    webrtc.SessionDescription `json:"sdp"`
}

type ForwardedCandidate struct {
	FromID    domain.ParticipantID    `json:"from_id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

type MicDecisionPayload struct {
	RequesterID domain.ParticipantID `json:"requester_id"`
	Approve     bool                 `json:"approve"`
}

type MicRequestNotice struct {
	RequesterID    domain.ParticipantID `json:"requester_id"`
	RequesterLabel string               `json:"requester_label"`
}

type WelcomePayload struct {
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Role          domain.Role          `json:"role"`
	Live          bool                 `json:"live"`
	ViewerCount   int                  `json:"viewer_count"`
}

type ViewerCountPayload struct {
	ViewerCount int `json:"viewer_count"`
}

type ViewerJoinedPayload struct {
	ViewerID domain.ParticipantID `json:"viewer_id"`
	Label    string               `json:"label"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustEnvelope(eventType string, payload interface{}) Envelope {
	if payload == nil {
		return Envelope{Type: eventType}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload types are all local structs; marshalling cannot fail at
		// runtime with well-formed inputs.
		return Envelope{Type: eventType}
	}
	return Envelope{Type: eventType, Payload: data}
}

func errorEnvelope(code, message string) Envelope {
	return mustEnvelope(EventError, ErrorPayload{Code: code, Message: message})
}

func chatBroadcast(senderLabel, text string, at time.Time) Envelope {
	return mustEnvelope(EventChatMessage, domain.ChatMessage{
		SenderLabel: senderLabel,
		Text:        text,
		SentAt:      at,
	})
}
