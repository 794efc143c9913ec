package markov

import (
	"math/rand/v2"
	"sync"
)

// Chooser supplies the random draws used during generation. Choose returns an
// index in [0, n), uniformly distributed; n is always positive.
type Chooser interface {
	Choose(n int) int
}

// ChooserFunc adapts a plain function to the Chooser interface.
type ChooserFunc func(n int) int

// Choose calls f(n).
func (f ChooserFunc) Choose(n int) int {
	return f(n)
}

// DefaultChooser draws from the global math/rand/v2 source. It is safe for
// concurrent use.
func DefaultChooser() Chooser {
	return ChooserFunc(rand.IntN)
}

type seededChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededChooser returns a Chooser backed by a PCG source seeded with seed,
// giving reproducible output for single-threaded generation. It is safe for
// concurrent use, although the interleaving of draws then depends on
// scheduling.
func NewSeededChooser(seed uint64) Chooser {
	return &seededChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededChooser) Choose(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// choose returns a uniformly drawn element of a non-empty slice.
func choose[T any](c Chooser, items []T) T {
	return items[c.Choose(len(items))]
}
