// models/models.go
package models

import (
	"time"
)

// RoomRecord 房间历史记录，在房间关闭时写入
type RoomRecord struct {
	RoomID      string    `json:"room_id"`
	CreatedAt   time.Time `json:"created_at"`
	ClosedAt    time.Time `json:"closed_at"`
	PeakPlayers int       `json:"peak_players"`
	TotalJoins  int       `json:"total_joins"`
}

// SessionRecord 玩家在一个房间内的停留记录
type SessionRecord struct {
	ConnectionID string    `json:"connection_id"`
	RoomID       string    `json:"room_id"`
	Username     string    `json:"username"`
	Sprite       string    `json:"sprite"`
	LastScene    string    `json:"last_scene"`
	JoinedAt     time.Time `json:"joined_at"`
	LeftAt       time.Time `json:"left_at"`
}

// Lifecycle event kinds.
const (
	EventRoomCreated  = "room_created"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventRoomClosed   = "room_closed"
)

// LifecycleEvent is pushed to the event queue for external consumers.
type LifecycleEvent struct {
	Kind      string `json:"kind"`
	RoomID    string `json:"room_id"`
	PlayerID  string `json:"player_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Sprite    string `json:"sprite,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
