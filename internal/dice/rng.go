package dice

import (
	"math/rand"
	"time"
)

// New returns a seeded source. Seed 0 is mapped to 1 so a zero-valued
// setting still yields a reproducible sequence.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

// NewUnseeded returns a source seeded from the clock, for callers that do
// not need reproducible rolls.
func NewUnseeded() *rand.Rand {
	return New(time.Now().UnixNano())
}
