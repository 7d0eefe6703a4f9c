// Package mhash implements the 64-bit MurmurHash2A variant (component A)
// used to remix a request's key_hash before it is fed into an HLL/HLL-TTL
// register. Remixing here — rather than relying on whatever scrambling the
// upstream trace reader already did to key_hash — keeps HLL register
// selection and rank independent of the upstream hash's bit distribution.
package mhash

const (
	seedDefault uint64 = 0xe17a1465

	mulConst uint64 = 0xc6a4a7935bd1e995
	shiftR          = 47
)

// Hash64 mixes x (an already-hashed 64-bit key) through the MurmurHash64A
// core round exactly once, as if x were the sole 8-byte little-endian block
// of input. This is the single point of truth for "the HLL input hash";
// every HLL/HLL-TTL register index and rank is derived from its output.
func Hash64(x uint64) uint64 {
	return mix(x, seedDefault)
}

// Hash64Seed is Hash64 with an explicit seed, used when an estimator wants
// independent, decorrelated substreams over the same key space (e.g. two
// WSS block-size banks sharing one trace).
func Hash64Seed(x, seed uint64) uint64 {
	return mix(x, seed)
}

func mix(x, seed uint64) uint64 {
	m := mulConst
	h := seed ^ (8 * m)

	k := x
	k *= mulConst
	k ^= k >> shiftR
	k *= mulConst

	h ^= k
	h *= mulConst

	h ^= h >> shiftR
	h *= mulConst
	h ^= h >> shiftR

	return h
}
