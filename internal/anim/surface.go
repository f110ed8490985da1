// Package anim renders the vote stream as falling, bouncing glyphs on top of
// a 2D rigid-body engine. The engine is a black box here: the surface only
// creates a world, adds and removes circle bodies, and steps the simulation.
package anim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jakecoffman/cp/v2"

	"github.com/vibecheck/api/internal/core/domain"
)

const (
	// MaxBodies caps the live population; the oldest bodies beyond it are
	// retired to keep the simulation cheap.
	MaxBodies = 150

	// BulkPerVibe bounds how many bodies the bulk loader stages per vibe.
	BulkPerVibe = 30

	// DefaultStagger is the delay between bulk-loaded spawns.
	DefaultStagger = 40 * time.Millisecond

	minRadius = 12.0
	maxRadius = 28.0

	gravity        = 900.0
	wallElasticity = 0.8
	bodyElasticity = 0.6
	bodyFriction   = 0.7
)

var glyphs = map[domain.Vibe]rune{
	domain.VibeFire:  '🔥',
	domain.VibeMeh:   '😐',
	domain.VibeSleep: '😴',
}

// Glyph is one frame's view of a body: where to draw which emoji.
type Glyph struct {
	X      float64
	Y      float64
	Angle  float64
	Radius float64
	Vibe   domain.Vibe
	Rune   rune
}

// body pairs an engine body with the metadata the engine must not carry
// itself. The surface owns this mapping; engine objects stay untagged.
type body struct {
	b      *cp.Body
	shape  *cp.Shape
	vibe   domain.Vibe
	radius float64
	mass   float64
}

type Surface struct {
	width  float64
	height float64

	mu      sync.Mutex
	space   *cp.Space
	bodies  []*body // oldest first
	rng     *rand.Rand
	stagger time.Duration
}

// NewSurface builds a gravity world of the given size with bouncy walls and
// floor. Coordinates grow rightward and downward, matching screen space.
func NewSurface(width, height float64) *Surface {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{X: 0, Y: gravity})

	walls := []struct{ a, b cp.Vector }{
		{cp.Vector{X: 0, Y: height}, cp.Vector{X: width, Y: height}},
		{cp.Vector{X: 0, Y: -height}, cp.Vector{X: 0, Y: height}},
		{cp.Vector{X: width, Y: -height}, cp.Vector{X: width, Y: height}},
	}
	for _, w := range walls {
		seg := cp.NewSegment(space.StaticBody, w.a, w.b, 1)
		seg.SetElasticity(wallElasticity)
		seg.SetFriction(bodyFriction)
		space.AddShape(seg)
	}

	return &Surface{
		width:   width,
		height:  height,
		space:   space,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		stagger: DefaultStagger,
	}
}

// Spawn drops one glyph body for the given vibe: random horizontal position
// and radius within fixed bands, a small random spin, falling in from above
// the view. Beyond MaxBodies the oldest bodies are retired first.
func (s *Surface) Spawn(vibe domain.Vibe) {
	if !vibe.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	radius := minRadius + s.rng.Float64()*(maxRadius-minRadius)
	x := radius + s.rng.Float64()*(s.width-2*radius)

	mass := radius * radius / 100
	b := cp.NewBody(mass, cp.MomentForCircle(mass, 0, radius, cp.Vector{}))
	b.SetPosition(cp.Vector{X: x, Y: -2 * radius})
	b.SetAngularVelocity((s.rng.Float64() - 0.5) * 4)

	shape := cp.NewCircle(b, radius, cp.Vector{})
	shape.SetElasticity(bodyElasticity)
	shape.SetFriction(bodyFriction)

	s.space.AddBody(b)
	s.space.AddShape(shape)

	s.bodies = append(s.bodies, &body{b: b, shape: shape, vibe: vibe, radius: radius, mass: mass})

	for len(s.bodies) > MaxBodies {
		oldest := s.bodies[0]
		s.bodies = s.bodies[1:]
		s.space.RemoveShape(oldest.shape)
		s.space.RemoveBody(oldest.b)
	}
}

// BulkLoad stages up to BulkPerVibe bodies per vibe from an initial tally,
// shuffled for visual variety and spawned with a stagger delay between each.
// It blocks for the duration of the staggering; run it on its own goroutine
// when driving a live view.
func (s *Surface) BulkLoad(counts domain.Counts) {
	var staged []domain.Vibe
	for _, vibe := range domain.Vibes {
		n := counts[vibe]
		if n > BulkPerVibe {
			n = BulkPerVibe
		}
		for i := 0; i < n; i++ {
			staged = append(staged, vibe)
		}
	}

	s.mu.Lock()
	s.rng.Shuffle(len(staged), func(i, j int) {
		staged[i], staged[j] = staged[j], staged[i]
	})
	stagger := s.stagger
	s.mu.Unlock()

	for i, vibe := range staged {
		if i > 0 && stagger > 0 {
			time.Sleep(stagger)
		}
		s.Spawn(vibe)
	}
}

// Shake kicks every live body with a random upward impulse.
func (s *Surface) Shake() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gb := range s.bodies {
		impulse := cp.Vector{
			X: (s.rng.Float64() - 0.5) * 400 * gb.mass,
			Y: -(200 + s.rng.Float64()*300) * gb.mass,
		}
		gb.b.ApplyImpulseAtLocalPoint(impulse, cp.Vector{})
	}
}

// Step advances the simulation by dt and returns the frame's glyphs in one
// call, making the simulate and draw phases of a frame explicit and ordered.
func (s *Surface) Step(dt float64) []Glyph {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.space.Step(dt)

	frame := make([]Glyph, 0, len(s.bodies))
	for _, gb := range s.bodies {
		pos := gb.b.Position()
		frame = append(frame, Glyph{
			X:      pos.X,
			Y:      pos.Y,
			Angle:  gb.b.Angle(),
			Radius: gb.radius,
			Vibe:   gb.vibe,
			Rune:   glyphs[gb.vibe],
		})
	}
	return frame
}

// Len reports the live body population.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}
