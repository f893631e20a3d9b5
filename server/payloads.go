package server

import "github.com/wfunc/roomserver/room"

// Inbound payloads.

type createRoomRequest struct {
	Username string `json:"username"`
}

type checkRoomRequest struct {
	RoomID string `json:"roomId"`
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type playerPositionRequest struct {
	PlayerID        string    `json:"playerId"`
	Position        *position `json:"position"`
	FacingDirection string    `json:"facingDirection"`
}

type movement struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type playerMovementRequest struct {
	RoomID   string    `json:"roomId"`
	Movement *movement `json:"movement"`
}

type sceneRequest struct {
	RoomID    string `json:"roomId"`
	SceneName string `json:"sceneName"`
	PlayerID  string `json:"playerId"`
}

type chatRequest struct {
	RoomID   string `json:"roomId"`
	GroupID  string `json:"groupId"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

// Outbound payloads.

type roomCreatedPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Sprite   string `json:"sprite"`
}

type roomJoinedPayload struct {
	RoomID   string                 `json:"roomId"`
	PlayerID string                 `json:"playerId"`
	Players  map[string]room.Player `json:"players"`
	Sprite   string                 `json:"sprite"`
}

type roomErrorPayload struct {
	Message string `json:"message"`
}

type ackPayload struct {
	Success bool `json:"success"`
}

type playerJoinedPayload struct {
	PlayerID string      `json:"playerId"`
	Player   room.Player `json:"player"`
}

type playerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type playerPositionPayload struct {
	PlayerID        string   `json:"playerId"`
	Position        position `json:"position"`
	FacingDirection string   `json:"facingDirection"`
}

type playerMovedPayload struct {
	PlayerID string   `json:"playerId"`
	Movement movement `json:"movement"`
}

// scenePlayer is the trimmed player view sent with scene changes.
type scenePlayer struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Sprite       string `json:"sprite"`
	CurrentScene string `json:"currentScene"`
}

type playerSceneChangedPayload struct {
	PlayerID      string      `json:"playerId"`
	PreviousScene string      `json:"previousScene"`
	NewScene      string      `json:"newScene"`
	Player        scenePlayer `json:"player"`
}

type sceneTransitionPayload struct {
	RoomID    string `json:"roomId"`
	SceneName string `json:"sceneName"`
	PlayerID  string `json:"playerId"`
}

type playersInScenePayload struct {
	SceneName string        `json:"sceneName"`
	Players   []room.Player `json:"players"`
}

type playerEnteredScenePayload struct {
	SceneName string      `json:"sceneName"`
	Player    room.Player `json:"player"`
}

type chatDeliveredPayload struct {
	ID        string `json:"id"`
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	GroupID   string `json:"groupId"`
	Sprite    string `json:"sprite"`
	Timestamp int64  `json:"timestamp"`
}

type chatSentPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	GroupID   string `json:"groupId"`
}
