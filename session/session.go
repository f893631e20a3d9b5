// session/session.go
package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/roomserver/network"
	"github.com/wfunc/roomserver/state"
)

// Lifecycle phases of a connection.
const (
	PhaseConnected = "connected"
	PhaseInRoom    = "in_room"
	PhaseClosed    = "closed"
)

// NewID returns a connection id without hyphens, since proximity chat group
// ids join player ids with "-".
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

type Session struct {
	ID         string
	Conn       network.Connection
	RoomID     string
	CreatedAt  time.Time
	LastActive time.Time
	machine    *state.BaseStateMachine
	phases     map[string]state.State
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}

	connected := &state.Simple{ID: PhaseConnected}
	inRoom := &state.Simple{ID: PhaseInRoom}
	closed := &state.Simple{ID: PhaseClosed}
	s.phases = map[string]state.State{
		PhaseConnected: connected,
		PhaseInRoom:    inRoom,
		PhaseClosed:    closed,
	}

	s.machine = state.NewStrictStateMachine(connected)
	s.machine.AddTransition(connected, inRoom, nil)
	s.machine.AddTransition(connected, closed, nil)
	s.machine.AddTransition(inRoom, closed, nil)
	return s
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Phase() string {
	return s.machine.GetCurrentState().GetID()
}

// EnterRoom records room membership. A session joins at most one room in its
// lifetime; the only way out is Close.
func (s *Session) EnterRoom(roomID string) error {
	if err := s.machine.ChangeState(s.phases[PhaseInRoom]); err != nil {
		return err
	}
	s.mutex.Lock()
	s.RoomID = roomID
	s.mutex.Unlock()
	return nil
}

func (s *Session) Room() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.RoomID
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.LastActive
}

// Send enqueues a frame unless the session is closed.
func (s *Session) Send(frame []byte) error {
	if s.Phase() == PhaseClosed {
		return network.ErrClosed
	}
	return s.Conn.Send(frame)
}

// Close is idempotent.
func (s *Session) Close() error {
	if s.Phase() == PhaseClosed {
		return nil
	}
	if err := s.machine.ChangeState(s.phases[PhaseClosed]); err != nil {
		if s.Phase() == PhaseClosed {
			return nil
		}
		return err
	}
	return s.Conn.Close()
}

// Info is a diagnostics snapshot of a session.
type Info struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remoteAddr"`
	RoomID     string    `json:"roomId,omitempty"`
	Phase      string    `json:"phase"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

func (s *Session) Info() Info {
	info := Info{
		ID:         s.ID,
		RoomID:     s.Room(),
		Phase:      s.Phase(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActivity(),
	}
	if addr := s.Conn.RemoteAddr(); addr != nil {
		info.RemoteAddr = addr.String()
	}
	return info
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// Exists reports whether a live (not closed) session has the given id.
func (m *Manager) Exists(sessionID string) bool {
	s, ok := m.Get(sessionID)
	return ok && s.Phase() != PhaseClosed
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// List returns diagnostics for every tracked session, oldest first.
func (m *Manager) List() []Info {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
