package mrc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cachesight/wssmrc/hll"
)

// CounterStacksCheckpoint is a restartable snapshot of a CounterStacks
// generator: enough to resume accumulating without replaying the trace
// from the start. This is not part of the wire formats spec.md §6 fixes
// (those cover individual HLL/HLL-TTL sketches); it wraps them in a CBOR
// envelope so a whole generator's state travels as one blob.
type CounterStacksCheckpoint struct {
	Precision    uint8    `cbor:"1,keyasint"`
	Capacity     int      `cbor:"2,keyasint"`
	Fidelity     Fidelity `cbor:"3,keyasint"`
	BucketWidth  uint64   `cbor:"4,keyasint"`
	FixedBlock   uint32   `cbor:"5,keyasint"`
	MergeSN      int64    `cbor:"6,keyasint"`
	NSeen        uint64   `cbor:"7,keyasint"`
	RunningMean  float64  `cbor:"8,keyasint"`
	Cur          []uint64 `cbor:"9,keyasint"`
	Prev         []uint64 `cbor:"10,keyasint"`
	Retired      [][]byte `cbor:"11,keyasint"` // each a SerializeStatic(counter) blob
	RetiredBlock []uint32 `cbor:"12,keyasint"`
	NewCounter   []byte   `cbor:"13,keyasint"`
	NewBlock     uint32   `cbor:"14,keyasint"`
}

// Checkpoint snapshots cs into a CounterStacksCheckpoint. The open
// accumulator and every retired counter are serialized via hll's static
// wire format (spec.md §6), so the checkpoint's embedded sketches remain
// byte-auditable independent of the CBOR wrapper.
func (cs *CounterStacks) Checkpoint() CounterStacksCheckpoint {
	ck := CounterStacksCheckpoint{
		Precision:   cs.cfg.Precision,
		Capacity:    cs.cfg.Capacity,
		Fidelity:    cs.cfg.Fidelity,
		BucketWidth: cs.cfg.BucketWidth,
		FixedBlock:  cs.cfg.FixedBlock,
		MergeSN:     cs.mergeSN,
		NSeen:       cs.nSeen,
		RunningMean: cs.runningMean,
		Cur:         append([]uint64(nil), cs.cur...),
		Prev:        append([]uint64(nil), cs.prev...),
		NewCounter:  hll.SerializeStatic(cs.newCounter, cs.block()),
		NewBlock:    cs.block(),
	}
	for i := 0; i < cs.used; i++ {
		ck.Retired = append(ck.Retired, hll.SerializeStatic(cs.retired[i], cs.block()))
		ck.RetiredBlock = append(ck.RetiredBlock, cs.block())
	}
	return ck
}

// EncodeCheckpoint marshals a checkpoint to CBOR bytes.
func EncodeCheckpoint(ck CounterStacksCheckpoint) ([]byte, error) {
	return cbor.Marshal(ck)
}

// DecodeCheckpoint rebuilds a CounterStacks generator from CBOR bytes
// produced by EncodeCheckpoint(Checkpoint()). It restores the configuration
// fields stored in the checkpoint, the merge sequence number, the request
// count, the running mean block size, prev/cur and every counter. The MRC
// histogram, the eviction index, the trigger state, MergeWorkers and
// MaxCache are not restored: they start as NewCounterStacks leaves them.
func DecodeCheckpoint(data []byte) (*CounterStacks, error) {
	var ck CounterStacksCheckpoint
	if err := cbor.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("mrc: decode checkpoint: %w", err)
	}

	cs, err := NewCounterStacks(CounterStacksConfig{
		Precision:   ck.Precision,
		Capacity:    ck.Capacity,
		Fidelity:    ck.Fidelity,
		BucketWidth: ck.BucketWidth,
		FixedBlock:  ck.FixedBlock,
	})
	if err != nil {
		return nil, err
	}

	cs.mergeSN = ck.MergeSN
	cs.nSeen = ck.NSeen
	cs.runningMean = ck.RunningMean
	cs.cur = append([]uint64(nil), ck.Cur...)
	cs.prev = append([]uint64(nil), ck.Prev...)

	newCounter, _, err := hll.DeserializeTTL(ck.NewCounter)
	if err != nil {
		return nil, fmt.Errorf("mrc: decode checkpoint accumulator: %w", err)
	}
	cs.newCounter = newCounter

	cs.retired = make([]*hll.TTL, ck.Capacity)
	for i, blob := range ck.Retired {
		sk, _, err := hll.DeserializeTTL(blob)
		if err != nil {
			return nil, fmt.Errorf("mrc: decode checkpoint retired[%d]: %w", i, err)
		}
		cs.retired[i] = sk
	}
	cs.used = len(ck.Retired)

	return cs, nil
}
