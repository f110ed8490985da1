package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultEvent is the event scope used when a client does not select one.
const DefaultEvent = "default"

// Vibe is one of the three fixed vote choices.
type Vibe string

const (
	VibeFire  Vibe = "fire"
	VibeMeh   Vibe = "meh"
	VibeSleep Vibe = "sleep"
)

// Vibes lists every valid choice in display order.
var Vibes = []Vibe{VibeFire, VibeMeh, VibeSleep}

func (v Vibe) Valid() bool {
	switch v {
	case VibeFire, VibeMeh, VibeSleep:
		return true
	}
	return false
}

func (v Vibe) String() string {
	return string(v)
}

// ParseVibe validates a raw category value coming from a request or a feed
// payload. Unrecognized values are rejected, never counted.
func ParseVibe(s string) (Vibe, error) {
	v := Vibe(s)
	if !v.Valid() {
		return "", ErrInvalidVibe
	}
	return v, nil
}

type Vote struct {
	ID        uuid.UUID `json:"id"`
	EventID   string    `json:"event_id"`
	Vibe      Vibe      `json:"vibe"`
	CreatedAt time.Time `json:"created_at"`
}

// Counts maps each vibe to the number of votes observed for one event.
type Counts map[Vibe]int

// NewCounts returns a zero tally with every vibe present, so an empty event
// still renders explicit zeros.
func NewCounts() Counts {
	c := make(Counts, len(Vibes))
	for _, v := range Vibes {
		c[v] = 0
	}
	return c
}

// Tally reduces a set of vote rows into per-vibe counts. Rows carrying an
// unrecognized vibe are skipped.
func Tally(votes []Vote) Counts {
	c := NewCounts()
	for _, v := range votes {
		if !v.Vibe.Valid() {
			continue
		}
		c[v.Vibe]++
	}
	return c
}

// Clone returns an independent copy, so callers can hold a snapshot while the
// live tally keeps moving.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total is the number of votes across all vibes.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
