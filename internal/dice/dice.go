// Package dice supplies the random numbers battles are resolved with.
package dice

import "errors"

// ErrInvalidSides indicates a die with fewer than one side.
var ErrInvalidSides = errors.New("dice must have at least one side")

// ErrScriptExhausted is raised by Scripted when more rolls are requested
// than were provided.
var ErrScriptExhausted = errors.New("scripted dice exhausted")

// Source supplies uniformly distributed integers. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Roll returns one die result in [1, sides].
func Roll(src Source, sides int) int {
	return src.Intn(sides) + 1
}

// RollN rolls count dice and returns every result in order.
func RollN(src Source, sides, count int) []int {
	if count <= 0 {
		return nil
	}
	out := make([]int, count)
	for i := range out {
		out[i] = Roll(src, sides)
	}
	return out
}

// CountHits rolls count dice and reports how many land at or below strength.
func CountHits(src Source, sides, strength, count int) int {
	if strength <= 0 || count <= 0 {
		return 0
	}
	hits := 0
	for i := 0; i < count; i++ {
		if Roll(src, sides) <= strength {
			hits++
		}
	}
	return hits
}

// Scripted replays fixed die faces (1-based) in order. It is meant for
// tests that need an exact dice sequence.
type Scripted struct {
	faces []int
	pos   int
}

// NewScripted returns a source that yields the given faces.
func NewScripted(faces ...int) *Scripted {
	return &Scripted{faces: append([]int(nil), faces...)}
}

// Intn converts the next face back to the [0, n) range Roll expects.
func (s *Scripted) Intn(n int) int {
	if s.pos >= len(s.faces) {
		panic(ErrScriptExhausted)
	}
	face := s.faces[s.pos]
	s.pos++
	if face < 1 {
		face = 1
	}
	if face > n {
		face = n
	}
	return face - 1
}

// Remaining reports how many faces have not been consumed yet.
func (s *Scripted) Remaining() int { return len(s.faces) - s.pos }

// Validate checks a die size.
func Validate(sides int) error {
	if sides < 1 {
		return ErrInvalidSides
	}
	return nil
}
