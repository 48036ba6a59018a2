package rng

import (
	"encoding/binary"
	"io"
)

// ReaderSource adapts a byte-oriented entropy device (typically the serial
// TRNG behind a LockedReader) into a Source. Each Bernoulli gets its own
// ReaderSource so that it owns its Source exclusively; serializing access to
// the shared device is the LockedReader's job, not this type's.
//
// Source has no error path. A failed read marks the health monitor unhealthy
// and yields the zero-filled remainder of the word; the API layer gates every
// request on health, so output produced after a failure is never served.
type ReaderSource struct {
	r      io.Reader
	health *Health
}

func NewReaderSource(r io.Reader, h *Health) *ReaderSource {
	return &ReaderSource{r: r, health: h}
}

func (s *ReaderSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil && s.health != nil {
		s.health.Set(false, "error fetching random bytes: "+err.Error())
	}
	return binary.BigEndian.Uint64(buf[:])
}
