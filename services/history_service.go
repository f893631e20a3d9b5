// services/history_service.go
package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/models"
	"github.com/wfunc/roomserver/persistence"
	"github.com/wfunc/roomserver/room"
)

// Publisher receives lifecycle events for external consumers.
type Publisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

type historyEvent struct {
	kind       string
	roomID     string
	player     room.Player
	roomClosed bool
	at         time.Time
}

type roomStats struct {
	createdAt time.Time
	current   int
	peak      int
	joins     int
}

// HistoryService 记录房间历史。调用方只做入队，写库在后台协程完成，
// 所以分发循环不会被数据库或 Redis 阻塞。
type HistoryService struct {
	recorder  persistence.Recorder
	publisher Publisher
	timeout   time.Duration

	events chan historyEvent
	closed bool
	mutex  sync.Mutex
	wg     sync.WaitGroup

	// owned by the worker goroutine
	rooms  map[string]*roomStats
	joined map[string]time.Time
}

// NewHistoryService starts the background writer. publisher may be nil.
func NewHistoryService(recorder persistence.Recorder, publisher Publisher, buffer int) *HistoryService {
	if buffer <= 0 {
		buffer = 256
	}
	s := &HistoryService{
		recorder:  recorder,
		publisher: publisher,
		timeout:   5 * time.Second,
		events:    make(chan historyEvent, buffer),
		rooms:     make(map[string]*roomStats),
		joined:    make(map[string]time.Time),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *HistoryService) RoomCreated(roomID string, creator room.Player) {
	s.enqueue(historyEvent{kind: models.EventRoomCreated, roomID: roomID, player: creator})
}

func (s *HistoryService) PlayerJoined(roomID string, p room.Player) {
	s.enqueue(historyEvent{kind: models.EventPlayerJoined, roomID: roomID, player: p})
}

// PlayerLeft records a departure; roomClosed marks the last player leaving.
func (s *HistoryService) PlayerLeft(roomID string, p room.Player, roomClosed bool) {
	s.enqueue(historyEvent{kind: models.EventPlayerLeft, roomID: roomID, player: p, roomClosed: roomClosed})
}

func (s *HistoryService) enqueue(ev historyEvent) {
	ev.at = time.Now()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		logger.Log.Warnw("history queue full, event dropped", "kind", ev.kind, "room", ev.roomID)
	}
}

// Stop drains queued events, then closes the recorder.
func (s *HistoryService) Stop() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mutex.Unlock()

	s.wg.Wait()
	return s.recorder.Close()
}

func (s *HistoryService) run() {
	defer s.wg.Done()
	for ev := range s.events {
		s.handle(ev)
	}
}

func (s *HistoryService) handle(ev historyEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch ev.kind {
	case models.EventRoomCreated:
		s.rooms[ev.roomID] = &roomStats{createdAt: ev.at, current: 1, peak: 1, joins: 1}
		s.joined[ev.player.ID] = ev.at
		s.publish(ctx, ev.kind, ev)

	case models.EventPlayerJoined:
		st, ok := s.rooms[ev.roomID]
		if !ok {
			st = &roomStats{createdAt: ev.at}
			s.rooms[ev.roomID] = st
		}
		st.current++
		st.joins++
		if st.current > st.peak {
			st.peak = st.current
		}
		s.joined[ev.player.ID] = ev.at
		s.publish(ctx, ev.kind, ev)

	case models.EventPlayerLeft:
		joinedAt, ok := s.joined[ev.player.ID]
		if !ok {
			joinedAt = ev.at
		}
		delete(s.joined, ev.player.ID)

		rec := models.SessionRecord{
			ConnectionID: ev.player.ID,
			RoomID:       ev.roomID,
			Username:     ev.player.Username,
			Sprite:       ev.player.Sprite,
			LastScene:    ev.player.CurrentScene,
			JoinedAt:     joinedAt,
			LeftAt:       ev.at,
		}
		if err := s.recorder.SaveSessionRecord(ctx, rec); err != nil {
			logger.Log.Warnw("save session record", "room", ev.roomID, "player", ev.player.ID, "error", err)
		}
		s.publish(ctx, ev.kind, ev)

		st, ok := s.rooms[ev.roomID]
		if ok {
			st.current--
		}
		if !ev.roomClosed {
			return
		}
		delete(s.rooms, ev.roomID)
		if ok {
			rec := models.RoomRecord{
				RoomID:      ev.roomID,
				CreatedAt:   st.createdAt,
				ClosedAt:    ev.at,
				PeakPlayers: st.peak,
				TotalJoins:  st.joins,
			}
			if err := s.recorder.SaveRoomRecord(ctx, rec); err != nil {
				logger.Log.Warnw("save room record", "room", ev.roomID, "error", err)
			}
		}
		s.publish(ctx, models.EventRoomClosed, ev)
	}
}

func (s *HistoryService) publish(ctx context.Context, kind string, ev historyEvent) {
	if s.publisher == nil {
		return
	}
	out := models.LifecycleEvent{
		Kind:      kind,
		RoomID:    ev.roomID,
		Timestamp: ev.at.UnixMilli(),
	}
	if kind != models.EventRoomClosed {
		out.PlayerID = ev.player.ID
		out.Username = ev.player.Username
		out.Sprite = ev.player.Sprite
	}
	if err := s.publisher.Publish(ctx, out); err != nil {
		logger.Log.Warnw("publish lifecycle event", "kind", kind, "room", ev.roomID, "error", err)
	}
}
