package ports

import "campuslive/internal/core/domain"

// SessionRegistry owns the set of connected participants and the stream
// session state. All mutation goes through these operations.
type SessionRegistry interface {
	Admit(id domain.ParticipantID, label string) *domain.Participant
	PromoteToBroadcaster(id domain.ParticipantID) error
	Evict(id domain.ParticipantID) domain.EvictResult
	Lookup(id domain.ParticipantID) (*domain.Participant, bool)
	Participants() []domain.Participant
	ViewerCount() int

	StartStream(id domain.ParticipantID) error
	StopStream(id domain.ParticipantID) error
	IsLive() bool
	Broadcaster() (domain.ParticipantID, bool)
	Snapshot() domain.SessionSnapshot
}
