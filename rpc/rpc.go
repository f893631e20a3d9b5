package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/room"
	"github.com/wfunc/roomserver/session"
)

// ErrRoomNotFound is returned by Diagnostics.Room for an unknown code.
var ErrRoomNotFound = errors.New("room not found")

// RoomSource is the read side of the room manager.
type RoomSource interface {
	Rooms() []room.Summary
	GetRoom(id string) (room.Detail, bool)
}

// SessionSource is the read side of the session manager.
type SessionSource interface {
	List() []session.Info
}

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers the diagnostics service. Each
// Server owns its own rpc.Server so several can coexist in one process.
func NewServer(addr string, diag *Diagnostics) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Diagnostics", diag); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once the listener is
// closed.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Diagnostics exposes read-only views of live rooms and connections.
// Methods follow the net/rpc signature: exported args, pointer reply, error.
type Diagnostics struct {
	rooms    RoomSource
	sessions SessionSource
}

func NewDiagnostics(rooms RoomSource, sessions SessionSource) *Diagnostics {
	return &Diagnostics{rooms: rooms, sessions: sessions}
}

type RoomsArgs struct{}

type RoomsReply struct {
	Rooms []room.Summary
}

func (d *Diagnostics) Rooms(_ *RoomsArgs, reply *RoomsReply) error {
	reply.Rooms = d.rooms.Rooms()
	return nil
}

type RoomArgs struct {
	RoomID string
}

type RoomReply struct {
	Room room.Detail
}

func (d *Diagnostics) Room(args *RoomArgs, reply *RoomReply) error {
	detail, ok := d.rooms.GetRoom(args.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	reply.Room = detail
	return nil
}

type ConnectionsArgs struct{}

type ConnectionsReply struct {
	Connections []session.Info
}

func (d *Diagnostics) Connections(_ *ConnectionsArgs, reply *ConnectionsReply) error {
	reply.Connections = d.sessions.List()
	return nil
}
