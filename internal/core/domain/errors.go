package domain

import "errors"

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrBroadcasterActive   = errors.New("another broadcaster is already active")
	ErrNotBroadcaster      = errors.New("participant is not the broadcaster")
)
