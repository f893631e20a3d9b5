package room

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room full")
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownSender  = errors.New("unknown sender")
	ErrAlreadyInRoom  = errors.New("connection already in a room")
)

// UserMessage is the text shown to a player for a rejected room request.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Game is full. No more characters available."
	case errors.Is(err, ErrAlreadyInRoom):
		return "Already in a room"
	default:
		return "Request rejected"
	}
}
