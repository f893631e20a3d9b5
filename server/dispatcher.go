package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/roomserver/broadcast"
	"github.com/wfunc/roomserver/chat"
	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/monitor"
	"github.com/wfunc/roomserver/network"
	"github.com/wfunc/roomserver/room"
	"github.com/wfunc/roomserver/session"
)

// HistoryObserver is told about membership changes after they happen.
type HistoryObserver interface {
	RoomCreated(roomID string, creator room.Player)
	PlayerJoined(roomID string, p room.Player)
	PlayerLeft(roomID string, p room.Player, roomClosed bool)
}

type noHistory struct{}

func (noHistory) RoomCreated(string, room.Player)      {}
func (noHistory) PlayerJoined(string, room.Player)     {}
func (noHistory) PlayerLeft(string, room.Player, bool) {}

type handlerFunc func(d *Dispatcher, sender *session.Session, p *network.Packet) ([]broadcast.Message, error)

// Dispatcher turns one inbound event into the outbound messages it causes.
// It never writes to a connection itself; callers hand the result to a
// broadcaster. Dispatch is not safe for concurrent use: the server calls it
// from a single goroutine, which is what orders room mutations.
type Dispatcher struct {
	rooms     *room.Manager
	sessions  *session.Manager
	history   HistoryObserver
	monitor   *monitor.Monitor
	messageID func() string
	now       func() time.Time
	handlers  map[string]handlerFunc
}

func NewDispatcher(rooms *room.Manager, sessions *session.Manager, history HistoryObserver, mon *monitor.Monitor) *Dispatcher {
	if history == nil {
		history = noHistory{}
	}
	return &Dispatcher{
		rooms:     rooms,
		sessions:  sessions,
		history:   history,
		monitor:   mon,
		messageID: uuid.NewString,
		now:       time.Now,
		handlers: map[string]handlerFunc{
			network.EventCreateRoom:         (*Dispatcher).handleCreateRoom,
			network.EventCreateOrJoinRoom:   (*Dispatcher).handleCreateRoom,
			network.EventCheckRoom:          (*Dispatcher).handleCheckRoom,
			network.EventJoinRoom:           (*Dispatcher).handleJoinRoom,
			network.EventPlayerPosition:     (*Dispatcher).handlePlayerPosition,
			network.EventPlayerMovement:     (*Dispatcher).handlePlayerMovement,
			network.EventSceneTransition:    (*Dispatcher).handleSceneTransition,
			network.EventPlayerEnteredScene: (*Dispatcher).handlePlayerEnteredScene,
			network.EventChatMessage:        (*Dispatcher).handleChatMessage,
		},
	}
}

// Dispatch handles one packet from senderID. Unknown senders, unknown events
// and rejected payloads produce no messages. A panicking handler is logged
// and treated the same way.
func (d *Dispatcher) Dispatch(senderID string, p *network.Packet) (out []broadcast.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorw("handler panic", "event", p.Event, "session", senderID, "panic", r)
			out = nil
		}
	}()

	sender, ok := d.sessions.Get(senderID)
	if !ok || sender.Phase() == session.PhaseClosed {
		return nil
	}
	sender.Touch()

	handler, ok := d.handlers[p.Event]
	if !ok {
		logger.Log.Warnw("unknown event", "event", p.Event, "session", senderID)
		return nil
	}
	d.monitor.IncMessagesReceived(p.Event)

	msgs, err := handler(d, sender, p)
	if err != nil {
		if errors.Is(err, room.ErrUnknownSender) {
			logger.Log.Debugw("event from sender outside any room", "event", p.Event, "session", senderID)
		} else {
			logger.Log.Warnw("event rejected", "event", p.Event, "session", senderID, "error", err)
		}
	}
	return msgs
}

// Disconnect releases everything the connection held in its room.
func (d *Dispatcher) Disconnect(connID string) []broadcast.Message {
	res, ok := d.rooms.HandleDisconnect(connID)
	if !ok {
		return nil
	}
	d.history.PlayerLeft(res.RoomID, res.Player, res.RoomDeleted)

	if res.RoomDeleted {
		logger.Log.Infow("room deleted", "room", res.RoomID)
	} else {
		logger.Log.Infow("player left", "room", res.RoomID, "player", connID, "sprite", res.Player.Sprite)
	}
	if len(res.Remaining) == 0 {
		return nil
	}
	return []broadcast.Message{
		broadcast.To(network.EventPlayerLeft, playerLeftPayload{PlayerID: connID}, res.Remaining...),
	}
}

func decode(p *network.Packet, v any) error {
	if len(p.Data) == 0 {
		return fmt.Errorf("%w: missing data", room.ErrMalformedEvent)
	}
	if err := json.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("%w: %v", room.ErrMalformedEvent, err)
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return monitor.ReasonNotFound
	case errors.Is(err, room.ErrRoomFull):
		return monitor.ReasonFull
	case errors.Is(err, room.ErrAlreadyInRoom):
		return monitor.ReasonAlreadyInRoom
	default:
		return monitor.ReasonMalformed
	}
}

// roomError reports a rejected room request to the sender. Malformed requests
// are dropped silently.
func (d *Dispatcher) roomError(sender *session.Session, err error) []broadcast.Message {
	d.monitor.IncJoinRejections(rejectionReason(err))
	if errors.Is(err, room.ErrMalformedEvent) {
		return nil
	}
	return []broadcast.Message{
		broadcast.To(network.EventRoomError, roomErrorPayload{Message: room.UserMessage(err)}, sender.GetID()),
	}
}

// checkSender rejects payloads that name another player or another room.
func (d *Dispatcher) checkSender(sender *session.Session, playerID, roomID string) error {
	if playerID != "" && playerID != sender.GetID() {
		return fmt.Errorf("%w: playerId %q does not match sender", room.ErrMalformedEvent, playerID)
	}
	if roomID != "" && roomID != sender.Room() {
		return fmt.Errorf("%w: roomId %q does not match sender", room.ErrMalformedEvent, roomID)
	}
	return nil
}

func (d *Dispatcher) handleCreateRoom(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req createRoomRequest
	if err := decode(p, &req); err != nil {
		return d.roomError(sender, err), err
	}

	res, err := d.rooms.CreateRoom(sender.GetID(), req.Username)
	if err != nil {
		return d.roomError(sender, err), err
	}
	if err := sender.EnterRoom(res.RoomID); err != nil {
		logger.Log.Errorw("session phase", "session", sender.GetID(), "error", err)
	}
	d.history.RoomCreated(res.RoomID, res.Player)
	logger.Log.Infow("room created", "room", res.RoomID, "player", sender.GetID(), "sprite", res.Player.Sprite)

	return []broadcast.Message{
		broadcast.To(network.EventRoomCreated, roomCreatedPayload{
			RoomID:   res.RoomID,
			PlayerID: sender.GetID(),
			Sprite:   res.Player.Sprite,
		}, sender.GetID()),
	}, nil
}

func (d *Dispatcher) handleCheckRoom(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req checkRoomRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}

	ack := broadcast.To(network.EventAck, ackPayload{Success: true}, sender.GetID())
	ack.Ack = p.Ack

	if err := d.rooms.CheckRoomJoinable(req.RoomID); err != nil {
		ack.Payload = ackPayload{Success: false}
		return []broadcast.Message{
			broadcast.To(network.EventRoomError, roomErrorPayload{Message: room.UserMessage(err)}, sender.GetID()),
			ack,
		}, nil
	}
	return []broadcast.Message{ack}, nil
}

func (d *Dispatcher) handleJoinRoom(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req joinRoomRequest
	if err := decode(p, &req); err != nil {
		return d.roomError(sender, err), err
	}

	res, err := d.rooms.JoinRoom(req.RoomID, sender.GetID(), req.Username)
	if err != nil {
		return d.roomError(sender, err), err
	}
	if err := sender.EnterRoom(res.RoomID); err != nil {
		logger.Log.Errorw("session phase", "session", sender.GetID(), "error", err)
	}
	d.history.PlayerJoined(res.RoomID, res.Player)
	logger.Log.Infow("player joined", "room", res.RoomID, "player", sender.GetID(), "sprite", res.Player.Sprite)

	id := sender.GetID()
	out := []broadcast.Message{
		broadcast.To(network.EventRoomJoined, roomJoinedPayload{
			RoomID:   res.RoomID,
			PlayerID: id,
			Players:  res.Players,
			Sprite:   res.Player.Sprite,
		}, id),
		broadcast.ToRoom(res.RoomID, id, network.EventPlayerJoined, playerJoinedPayload{
			PlayerID: id,
			Player:   res.Player,
		}),
	}

	// Bring the newcomer up to date with where everyone already stands.
	others := make([]string, 0, len(res.Players))
	for pid := range res.Players {
		if pid != id {
			others = append(others, pid)
		}
	}
	sort.Strings(others)
	for _, pid := range others {
		existing := res.Players[pid]
		out = append(out, broadcast.To(network.EventPlayerPosition, playerPositionPayload{
			PlayerID:        pid,
			Position:        position{X: existing.X, Y: existing.Y},
			FacingDirection: existing.Direction,
		}, id))
	}
	return out, nil
}

func (d *Dispatcher) handlePlayerPosition(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req playerPositionRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}
	if req.Position == nil {
		return nil, fmt.Errorf("%w: position required", room.ErrMalformedEvent)
	}
	if err := d.checkSender(sender, req.PlayerID, ""); err != nil {
		return nil, err
	}

	res, err := d.rooms.UpdatePosition(sender.GetID(), req.Position.X, req.Position.Y, req.FacingDirection)
	if err != nil {
		return nil, err
	}
	d.monitor.AddPositionRelays(len(res.SceneMates))
	if len(res.SceneMates) == 0 {
		return nil, nil
	}
	return []broadcast.Message{
		broadcast.To(network.EventPlayerPosition, playerPositionPayload{
			PlayerID:        sender.GetID(),
			Position:        *req.Position,
			FacingDirection: req.FacingDirection,
		}, res.SceneMates...),
	}, nil
}

func (d *Dispatcher) handlePlayerMovement(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req playerMovementRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}
	if req.Movement == nil {
		return nil, fmt.Errorf("%w: movement required", room.ErrMalformedEvent)
	}
	if err := d.checkSender(sender, "", req.RoomID); err != nil {
		return nil, err
	}

	res, err := d.rooms.UpdatePosition(sender.GetID(), req.Movement.X, req.Movement.Y, req.Movement.Direction)
	if err != nil {
		return nil, err
	}
	d.monitor.AddPositionRelays(len(res.SceneMates))
	if len(res.SceneMates) == 0 {
		return nil, nil
	}
	return []broadcast.Message{
		broadcast.To(network.EventPlayerMoved, playerMovedPayload{
			PlayerID: sender.GetID(),
			Movement: *req.Movement,
		}, res.SceneMates...),
	}, nil
}

func (d *Dispatcher) handleSceneTransition(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req sceneRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}
	if err := d.checkSender(sender, req.PlayerID, req.RoomID); err != nil {
		return nil, err
	}

	res, err := d.rooms.TransitionPlayerScene(sender.GetID(), req.SceneName)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("scene transition", "room", res.RoomID, "player", sender.GetID(),
		"from", res.PreviousScene, "to", req.SceneName)

	if len(res.Others) == 0 {
		return nil, nil
	}
	id := sender.GetID()
	return []broadcast.Message{
		broadcast.To(network.EventPlayerSceneChanged, playerSceneChangedPayload{
			PlayerID:      id,
			PreviousScene: res.PreviousScene,
			NewScene:      req.SceneName,
			Player: scenePlayer{
				ID:           res.Player.ID,
				Username:     res.Player.Username,
				Sprite:       res.Player.Sprite,
				CurrentScene: res.Player.CurrentScene,
			},
		}, res.Others...),
		broadcast.To(network.EventSceneTransition, sceneTransitionPayload{
			RoomID:    res.RoomID,
			SceneName: req.SceneName,
			PlayerID:  id,
		}, res.Others...),
	}, nil
}

func (d *Dispatcher) handlePlayerEnteredScene(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req sceneRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}
	if err := d.checkSender(sender, req.PlayerID, req.RoomID); err != nil {
		return nil, err
	}

	res, err := d.rooms.EnterScene(sender.GetID(), req.SceneName)
	if err != nil {
		return nil, err
	}
	logger.Log.Debugw("entered scene", "room", res.RoomID, "player", sender.GetID(),
		"scene", req.SceneName, "others", len(res.InScene))

	out := []broadcast.Message{
		broadcast.To(network.EventPlayersInScene, playersInScenePayload{
			SceneName: req.SceneName,
			Players:   res.InScene,
		}, sender.GetID()),
	}
	if len(res.Others) > 0 {
		out = append(out, broadcast.To(network.EventPlayerEnteredScene, playerEnteredScenePayload{
			SceneName: req.SceneName,
			Player:    res.Player,
		}, res.Others...))
	}
	return out, nil
}

func (d *Dispatcher) handleChatMessage(sender *session.Session, p *network.Packet) ([]broadcast.Message, error) {
	var req chatRequest
	if err := decode(p, &req); err != nil {
		return nil, err
	}
	if req.GroupID == "" || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: groupId and message required", room.ErrMalformedEvent)
	}
	if err := d.checkSender(sender, req.PlayerID, req.RoomID); err != nil {
		return nil, err
	}

	_, player, err := d.rooms.Locate(sender.GetID())
	if err != nil {
		return nil, err
	}

	id := d.messageID()
	targets := chat.Targets(req.GroupID, sender.GetID(), d.sessions.Exists)
	d.monitor.AddChatDeliveries(len(targets))

	var out []broadcast.Message
	if len(targets) > 0 {
		out = append(out, broadcast.To(network.EventChatMessage, chatDeliveredPayload{
			ID:        id,
			PlayerID:  sender.GetID(),
			Username:  player.Username,
			Message:   req.Message,
			GroupID:   req.GroupID,
			Sprite:    player.Sprite,
			Timestamp: d.now().UnixMilli(),
		}, targets...))
	}
	out = append(out, broadcast.To(network.EventChatMessageSent, chatSentPayload{
		Success:   true,
		MessageID: id,
		GroupID:   req.GroupID,
	}, sender.GetID()))
	return out, nil
}
