package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/roomserver/room"
	"github.com/wfunc/roomserver/session"
	"github.com/wfunc/roomserver/sprite"
)

type fakeSessions []session.Info

func (f fakeSessions) List() []session.Info { return f }

func startDiagnostics(t *testing.T) (*room.Manager, *rpc.Client) {
	t.Helper()
	rooms := room.NewRoomManager(room.Options{Catalog: sprite.Catalog{"wizard", "hero"}})
	sessions := fakeSessions{{ID: "alice", Phase: "in_room"}}

	srv, err := NewServer("127.0.0.1:0", NewDiagnostics(rooms, sessions))
	require.NoError(t, err)
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return rooms, client
}

func TestDiagnostics_Rooms(t *testing.T) {
	rooms, client := startDiagnostics(t)
	created, err := rooms.CreateRoom("alice", "Alice")
	require.NoError(t, err)

	var list RoomsReply
	require.NoError(t, client.Call("Diagnostics.Rooms", &RoomsArgs{}, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.RoomID, list.Rooms[0].ID)
	assert.Equal(t, 1, list.Rooms[0].Players)

	var one RoomReply
	require.NoError(t, client.Call("Diagnostics.Room", &RoomArgs{RoomID: created.RoomID}, &one))
	assert.Contains(t, one.Room.Members, "alice")
	assert.Equal(t, "Alice", one.Room.Members["alice"].Username)
}

func TestDiagnostics_RoomNotFound(t *testing.T) {
	_, client := startDiagnostics(t)

	var one RoomReply
	err := client.Call("Diagnostics.Room", &RoomArgs{RoomID: "NOPE00"}, &one)
	require.Error(t, err)
	assert.Equal(t, ErrRoomNotFound.Error(), err.Error())
}

func TestDiagnostics_Connections(t *testing.T) {
	_, client := startDiagnostics(t)

	var reply ConnectionsReply
	require.NoError(t, client.Call("Diagnostics.Connections", &ConnectionsArgs{}, &reply))
	require.Len(t, reply.Connections, 1)
	assert.Equal(t, "alice", reply.Connections[0].ID)
}

func TestServers_Coexist(t *testing.T) {
	rooms := room.NewRoomManager(room.Options{Catalog: sprite.Catalog{"wizard"}})
	a, err := NewServer("127.0.0.1:0", NewDiagnostics(rooms, fakeSessions{}))
	require.NoError(t, err)
	defer a.Stop()
	b, err := NewServer("127.0.0.1:0", NewDiagnostics(rooms, fakeSessions{}))
	require.NoError(t, err)
	defer b.Stop()
	assert.NotEqual(t, a.Addr(), b.Addr())
}

func TestHealthServer_FollowsServingState(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0")
	require.NoError(t, err)
	go hs.Start()
	t.Cleanup(hs.Stop)

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
	hs.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())
	hs.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
}
