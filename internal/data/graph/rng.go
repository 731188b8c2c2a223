package graph

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
	mathrand "math/rand"
)

// walkRNG is a thin wrapper so WalkForVideos depends on a type this
// package owns rather than math/rand directly, keeping the door open for a
// deterministic source in tests.
type walkRNG struct {
	r *mathrand.Rand
}

func newWalkRNG() *walkRNG {
	seed, err := rand.Int(rand.Reader, big.NewInt(0).SetUint64(^uint64(0)>>1))
	var s int64
	if err != nil {
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		s = int64(binary.BigEndian.Uint64(buf[:]))
	} else {
		s = seed.Int64()
	}
	return &walkRNG{r: mathrand.New(mathrand.NewSource(s))}
}

func (w *walkRNG) Float64() float64 { return w.r.Float64() }
