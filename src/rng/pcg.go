package rng

import "math/bits"

// PCG is the pcg32 generator from pcg-random.org. It serves as the software
// Source: seedable, so generator output is replayable in tests and usable
// when no hardware device is configured for deterministic tooling.
type PCG struct {
	state uint64
	inc   uint64
}

const pcgMul = 6364136223846793005

// NewPCG constructs a PCG with the given state and stream.
func NewPCG(state, inc uint64) *PCG {
	// equivalent to seeding a zero-state pcg with the updated inc and
	// stepping it once around the state injection, which is how the
	// reference implementation warms up
	inc = inc<<1 | 1
	return &PCG{
		state: (inc+state)*pcgMul + inc,
		inc:   inc,
	}
}

// Uint32 returns a uniform uint32.
func (p *PCG) Uint32() uint32 {
	oldstate := p.state
	p.state = oldstate*pcgMul + p.inc

	// output permutation over the pre-step state
	xorshifted := uint32(((oldstate >> 18) ^ oldstate) >> 27)
	return bits.RotateLeft32(xorshifted, -int(oldstate>>59))
}

// Uint64 glues two 32-bit outputs together so a PCG satisfies Source.
func (p *PCG) Uint64() uint64 {
	return uint64(p.Uint32())<<32 | uint64(p.Uint32())
}
