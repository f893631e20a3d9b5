// Package sprite hands out character sprites from a closed per-room pool.
package sprite

import (
	"errors"
	"math/rand/v2"
	"slices"
)

var ErrExhausted = errors.New("sprite pool exhausted")

// Catalog is the full, ordered set of sprite names a room starts with.
type Catalog []string

// Pool holds the sprites of one room that nobody has claimed yet. Every sprite
// of the catalog is either in the pool or held by exactly one player.
type Pool struct {
	available []string
}

// NewPool returns a pool holding the whole catalog.
func NewPool(catalog Catalog) *Pool {
	return &Pool{available: slices.Clone(catalog)}
}

// Allocate removes and returns the last available sprite.
func (p *Pool) Allocate() (string, error) {
	n := len(p.available)
	if n == 0 {
		return "", ErrExhausted
	}
	s := p.available[n-1]
	p.available = p.available[:n-1]
	return s, nil
}

// AllocateRandom removes and returns a uniformly chosen sprite.
func (p *Pool) AllocateRandom(rng *rand.Rand) (string, error) {
	n := len(p.available)
	if n == 0 {
		return "", ErrExhausted
	}
	i := rng.IntN(n)
	s := p.available[i]
	p.available = slices.Delete(p.available, i, i+1)
	return s, nil
}

// Release returns a sprite to the pool. Callers release each allocated sprite
// exactly once.
func (p *Pool) Release(s string) {
	p.available = append(p.available, s)
}

func (p *Pool) Len() int {
	return len(p.available)
}

// Available returns a copy of the unclaimed sprites.
func (p *Pool) Available() []string {
	return slices.Clone(p.available)
}
