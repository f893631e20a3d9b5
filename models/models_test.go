package models

import (
	"testing"
	"time"
)

func TestNewGormRoomRecord(t *testing.T) {
	opened := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewGormRoomRecord(RoomRecord{
		RoomID:      "ABC234",
		CreatedAt:   opened,
		ClosedAt:    opened.Add(time.Hour),
		PeakPlayers: 3,
		TotalJoins:  5,
	})

	if r.RoomID != "ABC234" || !r.OpenedAt.Equal(opened) {
		t.Errorf("Unexpected room record %+v", r)
	}
	if r.PeakPlayers != 3 || r.TotalJoins != 5 {
		t.Errorf("Expected peak 3 and joins 5, got %d and %d", r.PeakPlayers, r.TotalJoins)
	}
	if r.TableName() != "room_records" {
		t.Errorf("Unexpected table %s", r.TableName())
	}
}

func TestNewGormSessionRecord(t *testing.T) {
	r := NewGormSessionRecord(SessionRecord{
		ConnectionID: "c1",
		RoomID:       "ABC234",
		Username:     "alice",
		Sprite:       "hero",
		LastScene:    "forest",
	})

	if r.ConnectionID != "c1" || r.Sprite != "hero" || r.LastScene != "forest" {
		t.Errorf("Unexpected session record %+v", r)
	}
	if r.TableName() != "session_records" {
		t.Errorf("Unexpected table %s", r.TableName())
	}
}
