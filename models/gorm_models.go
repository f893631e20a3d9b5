// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoomRecord 房间历史表
type GormRoomRecord struct {
	gorm.Model
	RoomID      string    `gorm:"index;not null"`
	OpenedAt    time.Time `gorm:"not null"`
	ClosedAt    time.Time `gorm:"not null"`
	PeakPlayers int       `gorm:"default:0"`
	TotalJoins  int       `gorm:"default:0"`
}

func (GormRoomRecord) TableName() string { return "room_records" }

// GormSessionRecord 玩家停留记录表
type GormSessionRecord struct {
	gorm.Model
	ConnectionID string    `gorm:"index;not null"`
	RoomID       string    `gorm:"index;not null"`
	Username     string    `gorm:"not null"`
	Sprite       string    `gorm:"not null"`
	LastScene    string
	JoinedAt     time.Time `gorm:"not null"`
	LeftAt       time.Time `gorm:"not null"`
}

func (GormSessionRecord) TableName() string { return "session_records" }

func NewGormRoomRecord(r RoomRecord) GormRoomRecord {
	return GormRoomRecord{
		RoomID:      r.RoomID,
		OpenedAt:    r.CreatedAt,
		ClosedAt:    r.ClosedAt,
		PeakPlayers: r.PeakPlayers,
		TotalJoins:  r.TotalJoins,
	}
}

func NewGormSessionRecord(r SessionRecord) GormSessionRecord {
	return GormSessionRecord{
		ConnectionID: r.ConnectionID,
		RoomID:       r.RoomID,
		Username:     r.Username,
		Sprite:       r.Sprite,
		LastScene:    r.LastScene,
		JoinedAt:     r.JoinedAt,
		LeftAt:       r.LeftAt,
	}
}
