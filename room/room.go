// room/room.go
package room

import (
	"sort"
	"time"

	"github.com/wfunc/roomserver/sprite"
)

// Facing directions a player can report.
const (
	DirUp    = "up"
	DirDown  = "down"
	DirLeft  = "left"
	DirRight = "right"
)

func ValidDirection(d string) bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// Player is one connection's avatar. ID is the connection id.
type Player struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Direction    string  `json:"direction"`
	Sprite       string  `json:"sprite"`
	CurrentScene string  `json:"currentScene"`
}

// Room 是一个多人会话
type Room struct {
	ID        string
	Players   map[string]*Player
	CreatedAt time.Time
	sprites   *sprite.Pool
	// joins counts every admission, including the creator.
	joins int
}

func newRoom(id string, catalog sprite.Catalog) *Room {
	return &Room{
		ID:        id,
		Players:   make(map[string]*Player),
		CreatedAt: time.Now(),
		sprites:   sprite.NewPool(catalog),
	}
}

// snapshot copies every player so callers never share pointers with the store.
func (r *Room) snapshot() map[string]Player {
	out := make(map[string]Player, len(r.Players))
	for id, p := range r.Players {
		out[id] = *p
	}
	return out
}

// othersWhere lists ids of players other than self that match keep, sorted
// for stable delivery order.
func (r *Room) othersWhere(self string, keep func(*Player) bool) []string {
	ids := make([]string, 0, len(r.Players))
	for id, p := range r.Players {
		if id != self && keep(p) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Summary is the diagnostics view of a room.
type Summary struct {
	ID               string    `json:"roomId"`
	Players          int       `json:"players"`
	AvailableSprites []string  `json:"availableSprites"`
	CreatedAt        time.Time `json:"createdAt"`
	Joins            int       `json:"joins"`
}

// Detail adds the player list to Summary.
type Detail struct {
	Summary
	Members map[string]Player `json:"members"`
}

func (r *Room) summary() Summary {
	return Summary{
		ID:               r.ID,
		Players:          len(r.Players),
		AvailableSprites: r.sprites.Available(),
		CreatedAt:        r.CreatedAt,
		Joins:            r.joins,
	}
}
