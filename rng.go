package kernel

import (
	"crypto/rand"
	"encoding/binary"
	rnd "math/rand/v2"
)

// RNG is a per-Timeline random source. Each Timeline/ParallelTimeline
// worker owns one, seeded independently so two ranks never draw from
// correlated streams — the Go replacement for the original's
// numpy.random.seed(rank)-per-process convention.
type RNG struct {
	r *rnd.Rand
}

// NewRNG returns an RNG seeded with seed. A zero seed is a valid,
// reproducible seed by design (PCG accepts it); callers that want a
// non-reproducible run should obtain one from randomSeed() first and
// pass it in explicitly so the chosen seed can be logged.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rnd.New(rnd.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

// randomSeed draws a seed from crypto/rand. NewTimeline uses it when
// Config.RandomSeed is left at zero, giving a fresh non-deterministic run
// rather than reusing seed 0 every time; the drawn seed is not logged.
func randomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Int64N returns a pseudo-random int64 in [0, n).
func (g *RNG) Int64N(n int64) int64 { return g.r.Int64N(n) }

// Float64 returns a pseudo-random float64 in [0, 1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// Uint64 returns a pseudo-random uint64, useful for building other
// distributions in domain code without that code importing math/rand
// itself.
func (g *RNG) Uint64() uint64 { return g.r.Uint64() }
