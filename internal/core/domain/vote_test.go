package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVibe(t *testing.T) {
	for _, v := range Vibes {
		parsed, err := ParseVibe(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	for _, raw := range []string{"", "FIRE", "angry", "fire ", "default"} {
		_, err := ParseVibe(raw)
		assert.ErrorIs(t, err, ErrInvalidVibe, "raw=%q", raw)
	}
}

func TestNewCountsHasExplicitZeros(t *testing.T) {
	c := NewCounts()
	require.Len(t, c, 3)
	for _, v := range Vibes {
		assert.Equal(t, 0, c[v])
	}
	assert.Equal(t, 0, c.Total())
}

func TestTally(t *testing.T) {
	votes := []Vote{
		{ID: uuid.New(), EventID: "concert1", Vibe: VibeFire},
		{ID: uuid.New(), EventID: "concert1", Vibe: VibeFire},
		{ID: uuid.New(), EventID: "concert1", Vibe: VibeSleep},
		{ID: uuid.New(), EventID: "concert1", Vibe: "bogus"},
	}

	c := Tally(votes)
	assert.Equal(t, 2, c[VibeFire])
	assert.Equal(t, 0, c[VibeMeh])
	assert.Equal(t, 1, c[VibeSleep])
	assert.Equal(t, 3, c.Total(), "unrecognized vibes are never counted")
}

func TestCountsClone(t *testing.T) {
	c := NewCounts()
	c[VibeFire] = 5

	snapshot := c.Clone()
	c[VibeFire]++

	assert.Equal(t, 5, snapshot[VibeFire])
	assert.Equal(t, 6, c[VibeFire])
}
