package hll

import "github.com/klauspost/compress/s2"

// CompressSerialized wraps the §6 wire bytes with S2 compression for disk
// checkpoints. The wire format itself never changes — compression is
// opt-in. No caller in this module applies it: mrc.Checkpoint stores the
// uncompressed wire bytes.
func CompressSerialized(wire []byte) []byte {
	return s2.Encode(nil, wire)
}

// DecompressSerialized reverses CompressSerialized.
func DecompressSerialized(compressed []byte) ([]byte, error) {
	return s2.Decode(nil, compressed)
}
