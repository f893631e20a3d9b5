package room

import (
	"crypto/rand"
	"errors"
)

// CodeSource produces candidate room codes.
type CodeSource func() (string, error)

// RandomCodes draws codes of the given length uniformly from alphabet.
func RandomCodes(alphabet string, length int) CodeSource {
	chars := []byte(alphabet)
	// Bytes at or above limit would bias the modulo; they are redrawn.
	limit := 256 - 256%len(chars)
	return func() (string, error) {
		code := make([]byte, 0, length)
		buf := make([]byte, length)
		for len(code) < length {
			if _, err := rand.Read(buf); err != nil {
				return "", err
			}
			for _, b := range buf {
				if int(b) >= limit {
					continue
				}
				code = append(code, chars[int(b)%len(chars)])
				if len(code) == length {
					break
				}
			}
		}
		return string(code), nil
	}
}

// errCodeSpace is returned when rejection sampling keeps colliding, which
// only happens when the code space is nearly full.
var errCodeSpace = errors.New("room code space exhausted")

const maxCodeAttempts = 1000
