package services

import (
	"sync"
	"time"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/ports"
)

type sessionRegistry struct {
	mu           sync.RWMutex
	participants map[domain.ParticipantID]*domain.Participant
	session      domain.Session
}

func NewSessionRegistry() ports.SessionRegistry {
	return &sessionRegistry{
		participants: make(map[domain.ParticipantID]*domain.Participant),
	}
}

func (r *sessionRegistry) Admit(id domain.ParticipantID, label string) *domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &domain.Participant{
		ID:       id,
		Role:     domain.RoleViewer,
		Label:    label,
		JoinedAt: time.Now(),
	}
	r.participants[id] = p
	return p
}

// PromoteToBroadcaster rejects promotion while another connected participant
// holds the broadcaster role. Promoting the current broadcaster again is a
// no-op.
func (r *sessionRegistry) PromoteToBroadcaster(id domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[id]
	if !exists {
		return domain.ErrParticipantNotFound
	}

	if r.session.Broadcaster != "" && r.session.Broadcaster != id {
		if _, connected := r.participants[r.session.Broadcaster]; connected {
			return domain.ErrBroadcasterActive
		}
		// Stale pointer from a broadcaster that vanished without cleanup.
		r.session.Broadcaster = ""
	}

	p.Role = domain.RoleBroadcaster
	r.session.Broadcaster = id
	return nil
}

func (r *sessionRegistry) Evict(id domain.ParticipantID) domain.EvictResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.participants[id]
	if !exists {
		// Duplicate disconnect events take this path; the count stays floored.
		return domain.EvictResult{Removed: false, ViewerCount: r.viewerCountLocked()}
	}

	delete(r.participants, id)

	result := domain.EvictResult{Removed: true}
	if p.IsBroadcaster() && r.session.Broadcaster == id {
		result.WasBroadcaster = true
		result.StreamStopped = r.session.Live
		r.session.Live = false
		r.session.Broadcaster = ""
	}
	result.ViewerCount = r.viewerCountLocked()
	return result
}

func (r *sessionRegistry) Lookup(id domain.ParticipantID) (*domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.participants[id]
	if !exists {
		return nil, false
	}
	clone := *p
	return &clone, true
}

func (r *sessionRegistry) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}

func (r *sessionRegistry) ViewerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewerCountLocked()
}

func (r *sessionRegistry) viewerCountLocked() int {
	count := 0
	for _, p := range r.participants {
		if !p.IsBroadcaster() {
			count++
		}
	}
	return count
}

func (r *sessionRegistry) StartStream(id domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireBroadcasterLocked(id); err != nil {
		return err
	}
	r.session.Live = true
	r.session.StartedAt = time.Now()
	return nil
}

func (r *sessionRegistry) StopStream(id domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireBroadcasterLocked(id); err != nil {
		return err
	}
	r.session.Live = false
	return nil
}

func (r *sessionRegistry) requireBroadcasterLocked(id domain.ParticipantID) error {
	p, exists := r.participants[id]
	if !exists {
		return domain.ErrParticipantNotFound
	}
	if !p.IsBroadcaster() || r.session.Broadcaster != id {
		return domain.ErrNotBroadcaster
	}
	return nil
}

func (r *sessionRegistry) IsLive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.Live
}

func (r *sessionRegistry) Broadcaster() (domain.ParticipantID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.session.Broadcaster == "" {
		return "", false
	}
	return r.session.Broadcaster, true
}

func (r *sessionRegistry) Snapshot() domain.SessionSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := domain.SessionSnapshot{
		Live:             r.session.Live,
		Broadcaster:      r.session.Broadcaster,
		ViewerCount:      r.viewerCountLocked(),
		ParticipantCount: len(r.participants),
	}
	if r.session.Live {
		snapshot.StartedAt = r.session.StartedAt
	}
	return snapshot
}
