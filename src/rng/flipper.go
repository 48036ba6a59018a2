package rng

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxGenerators caps how many per-probability generators a Flipper keeps.
// Requests may name arbitrary probabilities, so the cache would otherwise
// grow without bound; when full it is reset, which only discards recycled
// interval state, never correctness.
const maxGenerators = 64

// Flipper serves biased words for request-supplied probabilities. It keeps
// one Bernoulli per exact probability so the narrowed-interval entropy each
// generator carries survives across HTTP requests instead of being reset
// every call. Generators mutate their state in place and are not safe for
// concurrent use, so a single mutex serializes all flips.
type Flipper struct {
	mu     sync.Mutex
	device io.Reader
	health *Health
	gens   map[string]*Bernoulli
}

// NewFlipper builds a Flipper over the shared entropy device. The device
// should already be wrapped in a LockedReader if anything else reads it.
func NewFlipper(device io.Reader, h *Health) *Flipper {
	return &Flipper{
		device: device,
		health: h,
		gens:   make(map[string]*Bernoulli),
	}
}

// generator returns the cached generator for num/den, creating it on first
// use. Each generator owns a private ReaderSource over the shared device.
func (f *Flipper) generator(num, den int) (*Bernoulli, error) {
	key := fmt.Sprintf("%d/%d", num, den)
	if g, ok := f.gens[key]; ok {
		return g, nil
	}

	if len(f.gens) >= maxGenerators {
		f.gens = make(map[string]*Bernoulli)
	}

	g, err := New(NewReaderSource(f.device, f.health), float64(num)/float64(den))
	if err != nil {
		return nil, err
	}
	f.gens[key] = g
	return g, nil
}

// Flip returns `words` 32-bit words, each bit independently 1 with
// probability num/den.
func (f *Flipper) Flip(num, den, words int) ([]uint32, error) {
	if den < 1 {
		return nil, errors.New("invalid probability denominator")
	}
	if num < 0 || num > den {
		return nil, ErrInvalidProbability
	}
	if words < 1 {
		return nil, errors.New("word count should not be smaller than 1")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	g, err := f.generator(num, den)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, words)
	for i := range out {
		out[i] = g.Uint32()
	}
	return out, nil
}
