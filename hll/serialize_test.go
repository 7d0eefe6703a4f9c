package hll

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func buildDenseTTL(t *testing.T, n int) *TTL {
	t.Helper()
	sk, err := NewTTL(6) // small precision; sparse capacity is 1237 here, so promote explicitly
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		sk.Add(uint64(i), uint32(1000+i))
	}
	sk.promote()
	require.False(t, sk.IsSparse())
	return sk
}

func TestStaticRoundTrip(t *testing.T) {
	sk := buildDenseTTL(t, 500)
	wire := SerializeStatic(sk, 4096)

	got, blockSize, err := DeserializeTTL(wire)
	require.NoError(t, err)
	require.EqualValues(t, 4096, blockSize)

	for _, now := range []uint32{0, 1000, 1200, 1500, 2000} {
		require.Equal(t, sk.CountAt(now), got.CountAt(now), "mismatch at now=%d", now)
	}
}

func TestDynamicRoundTrip(t *testing.T) {
	sk := buildDenseTTL(t, 500)
	wire, err := SerializeDynamic(sk, 4096)
	require.NoError(t, err)

	got, blockSize, err := DeserializeTTL(wire)
	require.NoError(t, err)
	require.EqualValues(t, 4096, blockSize)

	for _, now := range []uint32{0, 1000, 1200, 1500, 2000} {
		require.Equal(t, sk.CountAt(now), got.CountAt(now), "mismatch at now=%d", now)
	}
}

func TestStaticAndDynamicProduceEquivalentSketches(t *testing.T) {
	sk := buildDenseTTL(t, 200)

	static := SerializeStatic(sk, 1)
	dynamic, err := SerializeDynamic(sk, 1)
	require.NoError(t, err)

	fromStatic, _, err := DeserializeTTL(static)
	require.NoError(t, err)
	fromDynamic, _, err := DeserializeTTL(dynamic)
	require.NoError(t, err)

	diff := cmp.Diff(fromStatic.buckets, fromDynamic.buckets, cmpopts.EquateEmpty())
	require.Empty(t, diff, "static and dynamic encodings must decode to the same cell matrix")
	require.Equal(t, fromStatic.top, fromDynamic.top)
}

func TestSparseRoundTrip(t *testing.T) {
	sk, err := NewTTL(12)
	require.NoError(t, err)
	sk.Add(1, 100)
	sk.Add(2, 200)
	sk.Add(3, 300)
	require.True(t, sk.IsSparse())

	wire := SerializeStatic(sk, 64)
	got, _, err := DeserializeTTL(wire)
	require.NoError(t, err)
	require.True(t, got.IsSparse())
	require.Equal(t, sk.CountAt(150), got.CountAt(150))
}

func TestPlainHLLRoundTripDense(t *testing.T) {
	h, err := New(6)
	require.NoError(t, err)
	for i := uint64(0); i < 400; i++ {
		h.Add(i)
	}
	require.False(t, h.IsSparse())

	wire := SerializePlain(h, 4096)
	got, blockSize, err := DeserializePlain(wire)
	require.NoError(t, err)
	require.EqualValues(t, 4096, blockSize)
	require.Equal(t, h.Count(), got.Count())
}

func TestPlainHLLRoundTripSparse(t *testing.T) {
	h, err := New(12)
	require.NoError(t, err)
	h.Add(1)
	h.Add(2)
	h.Add(3)
	require.True(t, h.IsSparse())

	wire := SerializePlain(h, 4096)
	got, _, err := DeserializePlain(wire)
	require.NoError(t, err)
	require.True(t, got.IsSparse())
	require.EqualValues(t, 3, got.Count())
}

func TestCompressRoundTrip(t *testing.T) {
	sk := buildDenseTTL(t, 1000)
	wire := SerializeStatic(sk, 4096)

	compressed := CompressSerialized(wire)
	decompressed, err := DecompressSerialized(compressed)
	require.NoError(t, err)
	require.True(t, cmp.Equal(wire, decompressed))
}
