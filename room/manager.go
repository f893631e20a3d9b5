package room

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wfunc/roomserver/sprite"
)

type Options struct {
	Catalog           sprite.Catalog
	SpawnX            float64
	SpawnY            float64
	DefaultDirection  string
	LobbyScene        string
	MaxUsernameLength int
	Codes             CodeSource
	Rand              *rand.Rand
}

// Manager is the room store. It owns every room and the secondary index from
// connection id to room id; all membership changes go through it.
type Manager struct {
	opts   Options
	rooms  map[string]*Room
	byConn map[string]string
	mutex  sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts Options) *Manager {
	if opts.LobbyScene == "" {
		opts.LobbyScene = "lobby"
	}
	if !ValidDirection(opts.DefaultDirection) {
		opts.DefaultDirection = DirDown
	}
	if opts.Codes == nil {
		opts.Codes = RandomCodes("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", 6)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Manager{
		opts:   opts,
		rooms:  make(map[string]*Room),
		byConn: make(map[string]string),
	}
}

func (m *Manager) cleanUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: username required", ErrMalformedEvent)
	}
	if limit := m.opts.MaxUsernameLength; limit > 0 && utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name, nil
}

func (m *Manager) newPlayer(connID, username, spriteID string) *Player {
	return &Player{
		ID:           connID,
		Username:     username,
		X:            m.opts.SpawnX,
		Y:            m.opts.SpawnY,
		Direction:    m.opts.DefaultDirection,
		Sprite:       spriteID,
		CurrentScene: m.opts.LobbyScene,
	}
}

// CreateResult describes a freshly created room.
type CreateResult struct {
	RoomID string
	Player Player
}

// CreateRoom opens a room under a fresh code and seats connID in it with a
// randomly chosen sprite.
func (m *Manager) CreateRoom(connID, username string) (CreateResult, error) {
	name, err := m.cleanUsername(username)
	if err != nil {
		return CreateResult{}, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, in := m.byConn[connID]; in {
		return CreateResult{}, ErrAlreadyInRoom
	}

	code, err := m.uniqueCode()
	if err != nil {
		return CreateResult{}, err
	}

	r := newRoom(code, m.opts.Catalog)
	s, err := r.sprites.AllocateRandom(m.opts.Rand)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrRoomFull, err)
	}
	p := m.newPlayer(connID, name, s)
	r.Players[connID] = p
	r.joins++

	m.rooms[code] = r
	m.byConn[connID] = code
	return CreateResult{RoomID: code, Player: *p}, nil
}

// uniqueCode rejection-samples codes until one is free. Caller holds the lock.
func (m *Manager) uniqueCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := m.opts.Codes()
		if err != nil {
			return "", err
		}
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", errCodeSpace
}

// JoinResult is what a joining client needs to render the room.
type JoinResult struct {
	RoomID  string
	Player  Player
	Players map[string]Player
}

// JoinRoom seats connID in an existing room. A missing room or an empty sprite
// pool rejects the join without touching any state.
func (m *Manager) JoinRoom(roomID, connID, username string) (JoinResult, error) {
	if roomID == "" {
		return JoinResult{}, fmt.Errorf("%w: roomId required", ErrMalformedEvent)
	}
	name, err := m.cleanUsername(username)
	if err != nil {
		return JoinResult{}, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, in := m.byConn[connID]; in {
		return JoinResult{}, ErrAlreadyInRoom
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	s, err := r.sprites.Allocate()
	if errors.Is(err, sprite.ErrExhausted) {
		return JoinResult{}, ErrRoomFull
	}
	if err != nil {
		return JoinResult{}, err
	}

	p := m.newPlayer(connID, name, s)
	r.Players[connID] = p
	r.joins++
	m.byConn[connID] = roomID

	return JoinResult{RoomID: roomID, Player: *p, Players: r.snapshot()}, nil
}

// CheckRoomJoinable reports why a join would fail, or nil if it would succeed.
func (m *Manager) CheckRoomJoinable(roomID string) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.sprites.Len() == 0 {
		return ErrRoomFull
	}
	return nil
}

// DisconnectResult describes what a departing connection left behind.
type DisconnectResult struct {
	RoomID      string
	Player      Player
	RoomDeleted bool
	Remaining   []string
}

// HandleDisconnect removes connID from its room, returns its sprite to the
// pool and deletes the room once empty. The index entry is removed in the same
// step, so a repeated call finds nothing and releases nothing.
func (m *Manager) HandleDisconnect(connID string) (DisconnectResult, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	roomID, ok := m.byConn[connID]
	if !ok {
		return DisconnectResult{}, false
	}
	delete(m.byConn, connID)

	r, ok := m.rooms[roomID]
	if !ok {
		return DisconnectResult{}, false
	}
	p, ok := r.Players[connID]
	if !ok {
		return DisconnectResult{}, false
	}

	r.sprites.Release(p.Sprite)
	delete(r.Players, connID)

	res := DisconnectResult{RoomID: roomID, Player: *p}
	if len(r.Players) == 0 {
		delete(m.rooms, roomID)
		res.RoomDeleted = true
		return res, true
	}
	res.Remaining = r.othersWhere(connID, func(*Player) bool { return true })
	return res, true
}

// locate finds the sender's room and player. Caller holds the lock.
func (m *Manager) locate(connID string) (*Room, *Player, error) {
	roomID, ok := m.byConn[connID]
	if !ok {
		return nil, nil, ErrUnknownSender
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, nil, ErrUnknownSender
	}
	p, ok := r.Players[connID]
	if !ok {
		return nil, nil, ErrUnknownSender
	}
	return r, p, nil
}

// Locate returns the room id and player record of a connection.
func (m *Manager) Locate(connID string) (string, Player, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, p, err := m.locate(connID)
	if err != nil {
		return "", Player{}, err
	}
	return r.ID, *p, nil
}

// PositionResult carries the moved player and the scene-mates to notify.
type PositionResult struct {
	RoomID     string
	Player     Player
	SceneMates []string
}

// UpdatePosition stores the sender's reported position and facing, and lists
// the other players sharing its scene. Positions are not range checked.
func (m *Manager) UpdatePosition(connID string, x, y float64, direction string) (PositionResult, error) {
	if !ValidDirection(direction) {
		return PositionResult{}, fmt.Errorf("%w: direction %q", ErrMalformedEvent, direction)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, p, err := m.locate(connID)
	if err != nil {
		return PositionResult{}, err
	}
	p.X, p.Y, p.Direction = x, y, direction

	scene := p.CurrentScene
	mates := r.othersWhere(connID, func(o *Player) bool { return o.CurrentScene == scene })
	return PositionResult{RoomID: r.ID, Player: *p, SceneMates: mates}, nil
}

// TransitionResult describes a scene change.
type TransitionResult struct {
	RoomID        string
	PreviousScene string
	Player        Player
	Others        []string
}

// TransitionPlayerScene moves the sender into newScene. The destination is
// trusted as long as it is non-empty.
func (m *Manager) TransitionPlayerScene(connID, newScene string) (TransitionResult, error) {
	if newScene == "" {
		return TransitionResult{}, fmt.Errorf("%w: sceneName required", ErrMalformedEvent)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, p, err := m.locate(connID)
	if err != nil {
		return TransitionResult{}, err
	}
	prev := p.CurrentScene
	p.CurrentScene = newScene

	return TransitionResult{
		RoomID:        r.ID,
		PreviousScene: prev,
		Player:        *p,
		Others:        r.othersWhere(connID, func(*Player) bool { return true }),
	}, nil
}

// EnterResult is the snapshot returned to a player that finished entering a scene.
type EnterResult struct {
	RoomID  string
	Player  Player
	InScene []Player
	Others  []string
}

// EnterScene lists the other players whose current scene is sceneName. It does
// not change the sender's own scene.
func (m *Manager) EnterScene(connID, sceneName string) (EnterResult, error) {
	if sceneName == "" {
		return EnterResult{}, fmt.Errorf("%w: sceneName required", ErrMalformedEvent)
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, p, err := m.locate(connID)
	if err != nil {
		return EnterResult{}, err
	}
	ids := r.othersWhere(connID, func(o *Player) bool { return o.CurrentScene == sceneName })
	in := make([]Player, 0, len(ids))
	for _, id := range ids {
		in = append(in, *r.Players[id])
	}
	return EnterResult{
		RoomID:  r.ID,
		Player:  *p,
		InScene: in,
		Others:  r.othersWhere(connID, func(*Player) bool { return true }),
	}, nil
}

// PlayersInScene lists every player of a room in the given scene. ok is
// false when the room does not exist.
func (m *Manager) PlayersInScene(roomID, sceneName string) ([]Player, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, false
	}
	ids := r.othersWhere("", func(o *Player) bool { return o.CurrentScene == sceneName })
	out := make([]Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.Players[id])
	}
	return out, true
}

// Members returns the connection ids in a room, minus except.
func (m *Manager) Members(roomID, except string) ([]string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, false
	}
	return r.othersWhere(except, func(*Player) bool { return true }), true
}

// GetRoom returns a detailed snapshot of one room.
func (m *Manager) GetRoom(id string) (Detail, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return Detail{}, false
	}
	return Detail{Summary: r.summary(), Members: r.snapshot()}, true
}

// Rooms lists every room, oldest first.
func (m *Manager) Rooms() []Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Summary, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Counts returns the number of rooms and seated players.
func (m *Manager) Counts() (rooms, players int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms), len(m.byConn)
}
