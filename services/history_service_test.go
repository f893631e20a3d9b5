package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roomserver/models"
	"github.com/wfunc/roomserver/room"
)

type fakeRecorder struct {
	mutex    sync.Mutex
	rooms    []models.RoomRecord
	sessions []models.SessionRecord
	closed   bool
	err      error
}

func (f *fakeRecorder) SaveRoomRecord(_ context.Context, r models.RoomRecord) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.rooms = append(f.rooms, r)
	return f.err
}

func (f *fakeRecorder) SaveSessionRecord(_ context.Context, r models.SessionRecord) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sessions = append(f.sessions, r)
	return f.err
}

func (f *fakeRecorder) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	mutex  sync.Mutex
	events []models.LifecycleEvent
}

func (f *fakePublisher) Publish(_ context.Context, e models.LifecycleEvent) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) kinds() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestHistoryService_RoomLifetime(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	s := NewHistoryService(rec, pub, 16)

	alice := room.Player{ID: "alice", Username: "Alice", Sprite: "hero", CurrentScene: "lobby"}
	bob := room.Player{ID: "bob", Username: "Bob", Sprite: "ruler", CurrentScene: "lobby"}
	carol := room.Player{ID: "carol", Username: "Carol", Sprite: "wizard", CurrentScene: "lobby"}

	s.RoomCreated("ABC234", alice)
	s.PlayerJoined("ABC234", bob)
	bob.CurrentScene = "forest"
	s.PlayerLeft("ABC234", bob, false)
	s.PlayerJoined("ABC234", carol)
	s.PlayerLeft("ABC234", carol, false)
	s.PlayerLeft("ABC234", alice, true)

	require.NoError(t, s.Stop())
	assert.True(t, rec.closed)

	require.Len(t, rec.sessions, 3)
	assert.Equal(t, "bob", rec.sessions[0].ConnectionID)
	assert.Equal(t, "forest", rec.sessions[0].LastScene)
	assert.False(t, rec.sessions[0].LeftAt.Before(rec.sessions[0].JoinedAt))

	require.Len(t, rec.rooms, 1)
	assert.Equal(t, "ABC234", rec.rooms[0].RoomID)
	assert.Equal(t, 2, rec.rooms[0].PeakPlayers)
	assert.Equal(t, 3, rec.rooms[0].TotalJoins)

	assert.Equal(t, []string{
		models.EventRoomCreated,
		models.EventPlayerJoined,
		models.EventPlayerLeft,
		models.EventPlayerJoined,
		models.EventPlayerLeft,
		models.EventPlayerLeft,
		models.EventRoomClosed,
	}, pub.kinds())
	assert.Empty(t, pub.events[len(pub.events)-1].PlayerID)
}

func TestHistoryService_RecorderErrorsAreLogged(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	s := NewHistoryService(rec, nil, 4)

	p := room.Player{ID: "alice"}
	s.RoomCreated("ABC234", p)
	s.PlayerLeft("ABC234", p, true)

	require.NoError(t, s.Stop())
	assert.Len(t, rec.sessions, 1)
	assert.Len(t, rec.rooms, 1)
}

func TestHistoryService_StopIsIdempotent(t *testing.T) {
	s := NewHistoryService(&fakeRecorder{}, nil, 1)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	// Events after Stop are ignored.
	s.RoomCreated("ABC234", room.Player{ID: "late"})
}
