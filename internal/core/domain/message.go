package domain

import "time"

type ChatMessage struct {
	SenderLabel string    `json:"sender_label"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

type MicDecision string

const (
	MicApproved MicDecision = "approved"
	MicDenied   MicDecision = "denied"
)

type MicEvent struct {
	RequesterID ParticipantID `json:"requester_id"`
	Decision    MicDecision   `json:"decision"`
	DecidedBy   ParticipantID `json:"decided_by"`
	At          time.Time     `json:"at"`
}
