package network

import "encoding/json"

// Client -> server events.
const (
	EventCreateRoom         = "createRoom"
	EventCreateOrJoinRoom   = "createOrJoinRoom"
	EventCheckRoom          = "checkRoom"
	EventJoinRoom           = "joinRoom"
	EventPlayerPosition     = "playerPosition"
	EventPlayerMovement     = "playerMovement"
	EventSceneTransition    = "sceneTransition"
	EventPlayerEnteredScene = "playerEnteredScene"
	EventChatMessage        = "chatMessage"
)

// Server -> client events. Some names are shared with the inbound set.
const (
	EventAck                = "ack"
	EventRoomCreated        = "roomCreated"
	EventRoomJoined         = "roomJoined"
	EventRoomError          = "roomError"
	EventPlayerJoined       = "playerJoined"
	EventPlayerLeft         = "playerLeft"
	EventPlayerMoved        = "playerMoved"
	EventPlayerSceneChanged = "playerSceneChanged"
	EventPlayersInScene     = "playersInScene"
	EventChatMessageSent    = "chatMessageSent"
)

// Packet is the JSON envelope carried in every text frame. Ack is a
// client-chosen correlation id, echoed back on the matching "ack" event.
type Packet struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   uint64          `json:"ack,omitempty"`
}

// Encode builds the wire form of an outbound event.
func Encode(event string, ack uint64, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Packet{Event: event, Data: data, Ack: ack})
}

// Decode parses one inbound frame.
func Decode(frame []byte) (*Packet, error) {
	var p Packet
	if err := json.Unmarshal(frame, &p); err != nil {
		return nil, err
	}
	if p.Event == "" {
		return nil, ErrMissingEvent
	}
	return &p, nil
}
