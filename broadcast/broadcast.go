// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/network"
	"github.com/wfunc/roomserver/session"
)

// Message is one outbound event. It goes either to the sessions listed in To,
// or, when RoomID is set, to every member of that room except Except.
type Message struct {
	Event   string
	Ack     uint64
	Payload any
	To      []string
	RoomID  string
	Except  string
}

// To addresses a message to specific sessions.
func To(event string, payload any, ids ...string) Message {
	return Message{Event: event, Payload: payload, To: ids}
}

// ToRoom addresses a message to a whole room minus one member.
func ToRoom(roomID, except, event string, payload any) Message {
	return Message{Event: event, Payload: payload, RoomID: roomID, Except: except}
}

// Rooms resolves room membership at delivery time.
type Rooms interface {
	Members(roomID, except string) ([]string, bool)
}

// 广播接口
type Broadcaster interface {
	Deliver(msgs ...Message) Stats
}

// Stats counts the outcome of a Deliver call.
type Stats struct {
	Sent    int
	Dropped int
}

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    Rooms
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager Rooms, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// Deliver encodes each message once and enqueues it on every recipient.
// Recipients that are gone or whose queue is full are skipped.
func (b *RoomBroadcaster) Deliver(msgs ...Message) Stats {
	var st Stats
	for _, msg := range msgs {
		ids := msg.To
		if msg.RoomID != "" {
			members, ok := b.roomManager.Members(msg.RoomID, msg.Except)
			if !ok {
				continue
			}
			ids = members
		}
		if len(ids) == 0 {
			continue
		}

		frame, err := network.Encode(msg.Event, msg.Ack, msg.Payload)
		if err != nil {
			logger.Log.Errorw("encode outbound event", "event", msg.Event, "error", err)
			st.Dropped += len(ids)
			continue
		}
		sent, dropped := b.sendAll(ids, frame)
		st.Sent += sent
		st.Dropped += dropped
	}
	return st
}

// sendAll skips ids with no session; only failed enqueues count as dropped.
func (b *RoomBroadcaster) sendAll(ids []string, frame []byte) (sent, dropped int) {
	for _, id := range ids {
		s, ok := b.sessionManager.Get(id)
		if !ok {
			continue
		}
		if err := s.Send(frame); err != nil {
			// 处理发送错误
			logger.Log.Debugw("drop outbound frame", "session", id, "error", err)
			dropped++
			continue
		}
		sent++
	}
	return sent, dropped
}
