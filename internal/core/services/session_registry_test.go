package services

import (
	"testing"

	"campuslive/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry_AdmitAndLookup(t *testing.T) {
	registry := NewSessionRegistry()

	p := registry.Admit("p1", "alice")
	assert.Equal(t, domain.ParticipantID("p1"), p.ID)
	assert.Equal(t, domain.RoleViewer, p.Role)
	assert.Equal(t, "alice", p.Label)
	assert.False(t, p.JoinedAt.IsZero())

	found, ok := registry.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, "alice", found.Label)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}

func TestSessionRegistry_PromoteToBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")

	require.NoError(t, registry.PromoteToBroadcaster("b1"))

	id, ok := registry.Broadcaster()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("b1"), id)

	p, _ := registry.Lookup("b1")
	assert.True(t, p.IsBroadcaster())
}

func TestSessionRegistry_PromoteRejectsSecondBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher-a")
	registry.Admit("b2", "teacher-b")

	require.NoError(t, registry.PromoteToBroadcaster("b1"))
	assert.ErrorIs(t, registry.PromoteToBroadcaster("b2"), domain.ErrBroadcasterActive)

	// Promoting the current broadcaster again is a no-op.
	assert.NoError(t, registry.PromoteToBroadcaster("b1"))
}

func TestSessionRegistry_PromoteClearsStaleBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher-a")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))

	registry.Evict("b1")

	registry.Admit("b2", "teacher-b")
	assert.NoError(t, registry.PromoteToBroadcaster("b2"))

	id, ok := registry.Broadcaster()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("b2"), id)
}

func TestSessionRegistry_PromoteUnknownParticipant(t *testing.T) {
	registry := NewSessionRegistry()
	assert.ErrorIs(t, registry.PromoteToBroadcaster("ghost"), domain.ErrParticipantNotFound)
}

func TestSessionRegistry_ViewerCountExcludesBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))
	registry.Admit("v1", "student-1")
	registry.Admit("v2", "student-2")

	assert.Equal(t, 2, registry.ViewerCount())
	assert.Len(t, registry.Participants(), 3)
}

func TestSessionRegistry_StartStopStream(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")
	registry.Admit("v1", "student")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))

	assert.ErrorIs(t, registry.StartStream("v1"), domain.ErrNotBroadcaster)
	assert.False(t, registry.IsLive())

	require.NoError(t, registry.StartStream("b1"))
	assert.True(t, registry.IsLive())

	assert.ErrorIs(t, registry.StopStream("v1"), domain.ErrNotBroadcaster)
	require.NoError(t, registry.StopStream("b1"))
	assert.False(t, registry.IsLive())
}

func TestSessionRegistry_StartStreamWithoutBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("v1", "student")

	assert.Error(t, registry.StartStream("v1"))
}

func TestSessionRegistry_EvictViewer(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("v1", "student-1")
	registry.Admit("v2", "student-2")

	result := registry.Evict("v1")
	assert.True(t, result.Removed)
	assert.False(t, result.WasBroadcaster)
	assert.False(t, result.StreamStopped)
	assert.Equal(t, 1, result.ViewerCount)
}

func TestSessionRegistry_EvictBroadcasterStopsLiveStream(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")
	registry.Admit("v1", "student")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))
	require.NoError(t, registry.StartStream("b1"))

	result := registry.Evict("b1")
	assert.True(t, result.Removed)
	assert.True(t, result.WasBroadcaster)
	assert.True(t, result.StreamStopped)
	assert.False(t, registry.IsLive())

	_, ok := registry.Broadcaster()
	assert.False(t, ok)
}

func TestSessionRegistry_EvictIdleBroadcaster(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))

	result := registry.Evict("b1")
	assert.True(t, result.WasBroadcaster)
	assert.False(t, result.StreamStopped)
}

func TestSessionRegistry_DuplicateEvictFloorsCount(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("v1", "student")

	first := registry.Evict("v1")
	assert.True(t, first.Removed)
	assert.Equal(t, 0, first.ViewerCount)

	second := registry.Evict("v1")
	assert.False(t, second.Removed)
	assert.Equal(t, 0, second.ViewerCount)
	assert.Equal(t, 0, registry.ViewerCount())
}

func TestSessionRegistry_Snapshot(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Admit("b1", "teacher")
	registry.Admit("v1", "student")
	require.NoError(t, registry.PromoteToBroadcaster("b1"))
	require.NoError(t, registry.StartStream("b1"))

	snapshot := registry.Snapshot()
	assert.True(t, snapshot.Live)
	assert.Equal(t, domain.ParticipantID("b1"), snapshot.Broadcaster)
	assert.Equal(t, 1, snapshot.ViewerCount)
	assert.Equal(t, 2, snapshot.ParticipantCount)
	assert.False(t, snapshot.StartedAt.IsZero())
}
