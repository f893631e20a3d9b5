package monitor

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("test")

	m.IncMessagesReceived("chatMessage")
	m.IncMessagesReceived("chatMessage")
	m.IncMessagesReceived("playerPosition")
	m.IncJoinRejections(ReasonFull)
	m.AddChatDeliveries(3)
	m.AddPositionRelays(2)
	m.AddFramesDropped(1)

	met := m.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(met.MessagesReceived.WithLabelValues("chatMessage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.MessagesReceived.WithLabelValues("playerPosition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.JoinRejections.WithLabelValues(ReasonFull)))
	assert.Equal(t, 3.0, testutil.ToFloat64(met.ChatDeliveries))
	assert.Equal(t, 2.0, testutil.ToFloat64(met.PositionRelays))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.FramesDropped))
	assert.Equal(t, int64(3), m.Requests())
}

func TestMonitor_Gauges(t *testing.T) {
	m := NewMonitor("test")

	m.IncOnlineConnections()
	m.IncOnlineConnections()
	m.DecOnlineConnections()
	m.SetActiveRooms(4)
	m.SetPlayers(9)

	met := m.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(met.OnlineConnections))
	assert.Equal(t, 4.0, testutil.ToFloat64(met.ActiveRooms))
	assert.Equal(t, 9.0, testutil.ToFloat64(met.Players))
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	a := NewMonitor("test")
	b := NewMonitor("test")

	a.SetActiveRooms(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Metrics().ActiveRooms))
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("roomserver")
	m.SetActiveRooms(2)
	m.ObserveMessageLatency(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "roomserver_active_rooms 2"), body)
	assert.Contains(t, body, "roomserver_message_latency_seconds_count 1")
}

func TestMonitor_Vars(t *testing.T) {
	m := NewMonitor("test")
	m.IncMessagesReceived("checkRoom")

	var vars map[string]float64
	require.NoError(t, json.Unmarshal([]byte(m.Vars().String()), &vars))
	assert.Equal(t, 1.0, vars["requests"])
	assert.Contains(t, vars, "uptime_seconds")
}
