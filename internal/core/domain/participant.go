package domain

import "time"

type ParticipantID string

type Role string

const (
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

type Participant struct {
	ID       ParticipantID `json:"id"`
	Role     Role          `json:"role"`
	Label    string        `json:"label"`
	JoinedAt time.Time     `json:"joined_at"`
}

func (p *Participant) IsBroadcaster() bool {
	return p.Role == RoleBroadcaster
}
