// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Join rejection reasons.
const (
	ReasonNotFound      = "not_found"
	ReasonFull          = "full"
	ReasonAlreadyInRoom = "already_in_room"
	ReasonMalformed     = "malformed"
)

type Metrics struct {
	OnlineConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	Players           prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	JoinRejections    *prometheus.CounterVec
	ChatDeliveries    prometheus.Counter
	PositionRelays    prometheus.Counter
	FramesDropped     prometheus.Counter
	MessageLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Number of open client connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Number of players seated in a room",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received, by event",
		}, []string{"event"}),
		JoinRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_rejections_total",
			Help:      "Rejected create or join requests, by reason",
		}, []string{"reason"}),
		ChatDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_deliveries_total",
			Help:      "Chat messages delivered to a group member",
		}),
		PositionRelays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_relays_total",
			Help:      "Position updates relayed to a scene-mate",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because a send queue was full or closed",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlineConnections,
		m.ActiveRooms,
		m.Players,
		m.MessagesReceived,
		m.JoinRejections,
		m.ChatDeliveries,
		m.PositionRelays,
		m.FramesDropped,
		m.MessageLatency,
	}
}

// Monitor owns a private registry so several servers can run in one process.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Vars is published under /debug/vars. Publish it once per process.
func (m *Monitor) Vars() expvar.Func {
	return expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return map[string]interface{}{
			"uptime_seconds": time.Since(m.startTime).Seconds(),
			"requests":       m.requestCount,
		}
	})
}

func (m *Monitor) IncOnlineConnections() {
	m.metrics.OnlineConnections.Inc()
}

func (m *Monitor) DecOnlineConnections() {
	m.metrics.OnlineConnections.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) SetPlayers(count int) {
	m.metrics.Players.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(event string) {
	m.metrics.MessagesReceived.WithLabelValues(event).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncJoinRejections(reason string) {
	m.metrics.JoinRejections.WithLabelValues(reason).Inc()
}

func (m *Monitor) AddChatDeliveries(n int) {
	m.metrics.ChatDeliveries.Add(float64(n))
}

func (m *Monitor) AddPositionRelays(n int) {
	m.metrics.PositionRelays.Add(float64(n))
}

func (m *Monitor) AddFramesDropped(n int) {
	m.metrics.FramesDropped.Add(float64(n))
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Monitor) Requests() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}
