package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/roomserver/broadcast"
	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/monitor"
	"github.com/wfunc/roomserver/network"
	"github.com/wfunc/roomserver/room"
	"github.com/wfunc/roomserver/session"
	"github.com/wfunc/roomserver/sprite"
	"github.com/wfunc/roomserver/timer"
)

// HealthReporter is told when the dispatch loop starts and stops serving.
type HealthReporter interface {
	SetServing(serving bool)
}

// inbound is one unit of work for the dispatch loop.
type inbound struct {
	sessionID  string
	packet     *network.Packet
	disconnect bool
	received   time.Time
}

type GameServer struct {
	cfg            config.ServerConfig
	reportInterval time.Duration
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	dispatcher     *Dispatcher
	broadcaster    broadcast.Broadcaster
	monitor        *monitor.Monitor
	timers         *timer.TimerManager
	health         HealthReporter
	httpServer     *http.Server

	inbox        chan inbound
	serving      atomic.Bool
	startOnce    sync.Once
	stopOnce     sync.Once
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

func NewGameServer(cfg *config.Config, history HistoryObserver, mon *monitor.Monitor) *GameServer {
	if mon == nil {
		mon = monitor.NewMonitor(cfg.Monitor.Namespace)
	}
	inboxSize := cfg.Server.InboxSize
	if inboxSize <= 0 {
		inboxSize = 1024
	}

	s := &GameServer{
		cfg:            cfg.Server,
		reportInterval: cfg.Monitor.ReportInterval,
		sessionManager: session.NewManager(),
		monitor:        mon,
		inbox:          make(chan inbound, inboxSize),
		shutdownChan:   make(chan struct{}),
	}
	s.roomManager = room.NewRoomManager(room.Options{
		Catalog:           sprite.Catalog(cfg.Game.Sprites),
		SpawnX:            cfg.Game.SpawnX,
		SpawnY:            cfg.Game.SpawnY,
		DefaultDirection:  cfg.Game.DefaultDirection,
		LobbyScene:        cfg.Game.LobbyScene,
		MaxUsernameLength: cfg.Game.MaxUsernameLength,
		Codes:             room.RandomCodes(cfg.Game.CodeAlphabet, cfg.Game.CodeLength),
	})
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.dispatcher = NewDispatcher(s.roomManager, s.sessionManager, history, mon)
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (s *GameServer) Rooms() *room.Manager       { return s.roomManager }
func (s *GameServer) Sessions() *session.Manager { return s.sessionManager }
func (s *GameServer) Monitor() *monitor.Monitor  { return s.monitor }

// SetHealthReporter must be called before Start.
func (s *GameServer) SetHealthReporter(h HealthReporter) {
	s.health = h
}

// Start launches the dispatch loop and the periodic stats report. It does not
// listen on any address; see ListenAndServe.
func (s *GameServer) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop()

		if s.reportInterval > 0 {
			s.timers = timer.NewTimerManager()
			s.timers.AddTimer(s.reportInterval, s.reportInterval, s.report)
		}
		s.serving.Store(true)
		if s.health != nil {
			s.health.SetServing(true)
		}
	})
}

// ListenAndServe starts the loop and serves HTTP until Shutdown.
func (s *GameServer) ListenAndServe() error {
	s.Start()
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log.Infof("Room server listening on %s", s.cfg.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, stops the dispatch loop, then
// disconnects every remaining session as if it had left.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.serving.Store(false)
		if s.health != nil {
			s.health.SetServing(false)
		}
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		close(s.shutdownChan)
		s.wg.Wait()
		if s.timers != nil {
			s.timers.Stop()
		}
		// The loop has stopped, so the dispatcher is ours. Departures are
		// recorded for history; nobody is left to receive playerLeft.
		for _, info := range s.sessionManager.List() {
			s.dispatcher.Disconnect(info.ID)
			if sess, ok := s.sessionManager.Get(info.ID); ok {
				sess.Close()
				s.sessionManager.Remove(info.ID)
				s.monitor.DecOnlineConnections()
			}
		}
	})
	return err
}

func (s *GameServer) Serving() bool {
	return s.serving.Load()
}

func (s *GameServer) report() {
	rooms, players := s.roomManager.Counts()
	conns := s.sessionManager.Count()
	s.monitor.SetActiveRooms(rooms)
	s.monitor.SetPlayers(players)
	logger.Log.Infow("stats", "rooms", rooms, "players", players, "connections", conns,
		"requests", s.monitor.Requests(), "uptime", s.monitor.Uptime().Round(time.Second).String())
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, network.Options{
		ReadLimit: s.cfg.ReadLimit,
		PongWait:  s.cfg.PongWait,
		WriteWait: s.cfg.WriteWait,
		SendQueue: s.cfg.SendQueue,
	})
	sess := session.NewSession(session.NewID(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineConnections()
	go wsConn.WritePump()

	logger.Log.Infow("connection opened", "remote", wsConn.RemoteAddr().String(), "session", sess.GetID())

	defer func() {
		logger.Log.Infow("connection closed", "remote", wsConn.RemoteAddr().String(), "session", sess.GetID())
		s.enqueue(inbound{sessionID: sess.GetID(), disconnect: true})
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			return
		}
		if !s.enqueue(inbound{sessionID: sess.GetID(), packet: packet}) {
			return
		}
	}
}

// enqueue blocks while the inbox is full, so a flooding client slows down its
// own reader. It gives up once the server shuts down.
func (s *GameServer) enqueue(in inbound) bool {
	in.received = time.Now()
	select {
	case s.inbox <- in:
		return true
	case <-s.shutdownChan:
		return false
	}
}

func (s *GameServer) loop() {
	defer s.wg.Done()
	for {
		select {
		case in := <-s.inbox:
			s.process(in)
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *GameServer) process(in inbound) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorw("dispatch panic", "session", in.sessionID, "panic", r)
		}
	}()

	var msgs []broadcast.Message
	if in.disconnect {
		msgs = s.dispatcher.Disconnect(in.sessionID)
		if sess, ok := s.sessionManager.Get(in.sessionID); ok {
			sess.Close()
			s.sessionManager.Remove(in.sessionID)
			s.monitor.DecOnlineConnections()
		}
	} else {
		msgs = s.dispatcher.Dispatch(in.sessionID, in.packet)
	}

	st := s.broadcaster.Deliver(msgs...)
	s.monitor.AddFramesDropped(st.Dropped)
	s.monitor.ObserveMessageLatency(time.Since(in.received))
}
