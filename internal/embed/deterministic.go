package embed

import (
	"crypto/md5"
	"encoding/binary"
	"math/rand"
)

// Deterministic produces a reproducible pseudo-random vector from the text
// content alone. It seeds a PRNG with the md5 hash of the text modulo 2^32
// and draws dim uniform values in [-1, 1].
//
// The same text always yields the same vector, across processes and runs.
// These vectors carry no semantic signal; they exist so ingestion can proceed
// when no real embedding provider is usable.
func Deterministic(text string, dim int) []float32 {
	sum := md5.Sum([]byte(text))
	// The 128-bit digest modulo 2^32 is its low four bytes (big-endian).
	seed := int64(binary.BigEndian.Uint32(sum[12:16]))

	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	return vec
}
