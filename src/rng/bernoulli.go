package rng

import (
	"errors"
	"math"
)

// Source produces uniform 64-bit words on demand. Calls are synchronous and
// never fail; each bit is assumed unbiased and independent across calls.
type Source interface {
	Uint64() uint64
}

var ErrInvalidProbability = errors.New("invalid probability specified")

// Bernoulli generates independent biased bits, each 1 with probability p,
// packed 32 to a word. It wraps a uniform Source and draws a fresh uniform
// bit only when the entropy consumed so far does not already decide the next
// outcome: undecided entropy lives as a sub-interval [low, high) of [0, 1),
// each fresh bit halves the interval, and once the interval sits entirely on
// one side of p the next output bit comes for free. The narrowed interval is
// kept between calls, so leftover fractional entropy carries across words
// instead of being thrown away.
//
// A Bernoulli exclusively owns its Source. It mutates its interval and bit
// reservoir in place on every call and is not safe for concurrent use.
type Bernoulli struct {
	p    float64
	low  float64
	high float64
	src  Source

	// reservoir of unconsumed uniform bits
	bits  uint64
	shift uint8
}

// New returns a generator whose bits are 1 with the given probability.
// It fails with ErrInvalidProbability when the probability is negative
// (the sign bit is checked, so -0.0 is rejected) or greater than 1.
// Exactly 0 and 1 are accepted and produce the degenerate all-zeros and
// all-ones streams.
func New(src Source, probability float64) (*Bernoulli, error) {
	if math.Signbit(probability) || probability > 1.0 {
		return nil, ErrInvalidProbability
	}
	return &Bernoulli{
		p:    probability,
		low:  0.0,
		high: 1.0,
		src:  src,
	}, nil
}

// nextBit takes one uniform bit from the reservoir, refilling it with a
// fresh word from the Source when empty. Bits are consumed LSB first.
func (b *Bernoulli) nextBit() bool {
	if b.shift == 0 {
		b.bits = b.src.Uint64()
		b.shift = 64
	}
	bit := b.bits&1 == 1
	b.bits >>= 1
	b.shift--
	return bit
}

// Uint32 returns 32 independent Bernoulli(p) bits, most significant first.
//
// p == 0 and p == 1 are answered before entering the narrowing loop: their
// outcomes are certain, the reciprocal rescaling is undefined for them, and
// the loop would otherwise spend entropy deciding nothing. The constant
// words consume no entropy and leave the interval untouched.
func (b *Bernoulli) Uint32() uint32 {
	if b.p == 0 {
		return 0
	}
	if b.p == 1 {
		return ^uint32(0)
	}

	ret, emitted := uint32(0), 0
	low, high := b.low, b.high
	p, pRecip, qRecip := b.p, 1/b.p, 1/(1-b.p)

	for emitted != 32 {
		switch {
		case high < p:
			// the whole interval is below the threshold: success,
			// decided without fresh entropy. Rescale [0,p) back to [0,1).
			ret = ret<<1 | 1
			emitted++
			low *= pRecip
			high *= pRecip
		case low > p:
			// the whole interval is above the threshold: failure.
			// Rescale [p,1) back to [0,1).
			ret = ret << 1
			emitted++
			low = (low - p) * qRecip
			high = (high - p) * qRecip
		default:
			// the interval straddles p; halve it with one fresh uniform
			// bit and re-examine the same output position.
			mid := 0.5 * (low + high)
			if b.nextBit() {
				low = mid
			} else {
				high = mid
			}
		}
	}

	b.low, b.high = low, high
	return ret
}

// Probability reports the success probability the generator was built with.
func (b *Bernoulli) Probability() float64 { return b.p }
