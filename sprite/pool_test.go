package sprite

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = Catalog{"wizard", "explorer", "hero", "ruler"}

func TestPool_AllocateUntilExhausted(t *testing.T) {
	p := NewPool(testCatalog)
	seen := map[string]bool{}

	for range testCatalog {
		s, err := p.Allocate()
		require.NoError(t, err)
		assert.False(t, seen[s], "sprite %s handed out twice", s)
		seen[s] = true
	}

	assert.Equal(t, 0, p.Len())
	_, err := p.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
	_, err = p.AllocateRandom(rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPool_AllocatePopsLast(t *testing.T) {
	p := NewPool(testCatalog)
	s, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "ruler", s)
	assert.Equal(t, []string{"wizard", "explorer", "hero"}, p.Available())
}

func TestPool_AllocateRandomRemovesChosen(t *testing.T) {
	p := NewPool(testCatalog)
	s, err := p.AllocateRandom(rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	assert.Contains(t, testCatalog, s)
	assert.NotContains(t, p.Available(), s)
	assert.Equal(t, len(testCatalog)-1, p.Len())
}

func TestPool_ReleaseRestoresCatalog(t *testing.T) {
	p := NewPool(testCatalog)
	a, _ := p.Allocate()
	b, _ := p.Allocate()

	p.Release(a)
	p.Release(b)

	assert.ElementsMatch(t, testCatalog, p.Available())
}

func TestNewPool_DoesNotAliasCatalog(t *testing.T) {
	catalog := Catalog{"a", "b"}
	p := NewPool(catalog)
	_, _ = p.Allocate()
	p.Release("z")

	assert.Equal(t, Catalog{"a", "b"}, catalog)
}
