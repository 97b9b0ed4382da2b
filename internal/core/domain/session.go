package domain

import "time"

// Session is the state of the single stream session: whether it is live and
// who currently holds the broadcaster role. The zero value is an idle session
// with no broadcaster.
type Session struct {
	Live        bool
	Broadcaster ParticipantID
	StartedAt   time.Time
}

// SessionSnapshot is a read-only view of the session exposed over HTTP.
type SessionSnapshot struct {
	Live             bool          `json:"live"`
	Broadcaster      ParticipantID `json:"broadcaster,omitempty"`
	ViewerCount      int           `json:"viewer_count"`
	ParticipantCount int           `json:"participant_count"`
	StartedAt        time.Time     `json:"started_at,omitempty"`
}

// EvictResult reports what happened when a participant was removed.
type EvictResult struct {
	Removed        bool
	WasBroadcaster bool
	StreamStopped  bool
	ViewerCount    int
}
