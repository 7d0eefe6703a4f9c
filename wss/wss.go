// Package wss implements the working-set-size estimator (component F): a
// geometric bank of HLL/HLL-TTL sketches, one per power-of-two block-size
// class, plus a fixed-block mode, a running-mean-block mode, and an exact
// calculator bounded by MAX_DISTINCT_OBJECTS.
package wss

import (
	"errors"

	"github.com/cachesight/wssmrc/hll"
	"github.com/cachesight/wssmrc/internal/mathutil"
)

// Mode selects how block size maps onto the sketch bank.
type Mode int

const (
	// FixedBlock: a single sketch counts all keys; WSS = count * FixedBlockBytes.
	FixedBlock Mode = iota
	// VariableBlock: one sketch per power-of-two block-size class; WSS =
	// sum over classes of count_i * 2^(i+1).
	VariableBlock
	// RunningAverage: a single sketch plus an online mean block size; WSS
	// = cardinality * running mean.
	RunningAverage
)

// Config is the immutable construction-time configuration for an Estimator.
type Config struct {
	Precision       uint8
	MinBlock        uint32
	MaxBlock        uint32
	FixedBlockBytes uint32
	TTLAware        bool
	Mode            Mode
}

var errBadConfig = errors.New("wss: min_block must be <= max_block and > 0")

// Estimator is the approximate working-set-size engine (component F).
type Estimator struct {
	cfg Config

	minClass int
	bankTTL  []*hll.TTL // VariableBlock + TTLAware
	bankHLL  []*hll.HLL // VariableBlock + !TTLAware

	singleTTL *hll.TTL // FixedBlock/RunningAverage + TTLAware
	singleHLL *hll.HLL // FixedBlock/RunningAverage + !TTLAware

	runningMean float64
	nObserved   uint64
}

// New builds an Estimator per cfg.
func New(cfg Config) (*Estimator, error) {
	if cfg.MinBlock == 0 || cfg.MinBlock > cfg.MaxBlock {
		return nil, errBadConfig
	}

	e := &Estimator{cfg: cfg}

	switch cfg.Mode {
	case VariableBlock:
		e.minClass = classOf(cfg.MinBlock)
		maxClass := classOf(cfg.MaxBlock)
		n := maxClass - e.minClass + 1
		if cfg.TTLAware {
			e.bankTTL = make([]*hll.TTL, n)
			for i := range e.bankTTL {
				sk, err := hll.NewTTL(cfg.Precision)
				if err != nil {
					return nil, err
				}
				e.bankTTL[i] = sk
			}
		} else {
			e.bankHLL = make([]*hll.HLL, n)
			for i := range e.bankHLL {
				sk, err := hll.New(cfg.Precision)
				if err != nil {
					return nil, err
				}
				e.bankHLL[i] = sk
			}
		}
	default: // FixedBlock, RunningAverage
		if cfg.TTLAware {
			sk, err := hll.NewTTL(cfg.Precision)
			if err != nil {
				return nil, err
			}
			e.singleTTL = sk
		} else {
			sk, err := hll.New(cfg.Precision)
			if err != nil {
				return nil, err
			}
			e.singleHLL = sk
		}
	}
	return e, nil
}

// classOf returns i = log2(next_pow2(block)) - 1, per spec.md §4.2.
func classOf(block uint32) int {
	p := mathutil.NextPowerOf2U32(block)
	i := mathutil.Log2U32(p) - 1
	if i < 0 {
		i = 0
	}
	return i
}

func clampBlock(block, min, max uint32) uint32 {
	if block < min {
		return min
	}
	if block > max {
		return max
	}
	return block
}

// Add records one access with the given key hash, raw block size, and
// absolute eviction time (ignored unless the estimator is TTL-aware).
func (e *Estimator) Add(keyHash uint64, block, expiry uint32) {
	block = clampBlock(block, e.cfg.MinBlock, e.cfg.MaxBlock)
	e.nObserved++
	e.runningMean += (float64(block) - e.runningMean) / float64(e.nObserved)

	switch e.cfg.Mode {
	case VariableBlock:
		idx := classOf(block) - e.minClass
		if e.cfg.TTLAware {
			e.bankTTL[idx].Add(keyHash, expiry)
		} else {
			e.bankHLL[idx].Add(keyHash)
		}
	default:
		if e.cfg.TTLAware {
			e.singleTTL.Add(keyHash, expiry)
		} else {
			e.singleHLL.Add(keyHash)
		}
	}
}

// WSS returns the current working-set-size estimate in bytes, without
// performing any TTL eviction first.
func (e *Estimator) WSS() uint64 {
	switch e.cfg.Mode {
	case VariableBlock:
		counts := e.classCounts()
		var total uint64
		for i, c := range counts {
			weight := uint64(1) << uint(e.minClass+i+1)
			total += c * weight
		}
		return total
	case RunningAverage:
		return uint64(float64(e.cardinality()) * e.runningMean)
	default: // FixedBlock
		return e.cardinality() * uint64(e.cfg.FixedBlockBytes)
	}
}

// EvictExpiredAndWSS TTL-evicts every sketch in the bank (a no-op when the
// estimator was built with TTLAware=false) and returns the resulting WSS.
func (e *Estimator) EvictExpiredAndWSS(now uint32) uint64 {
	if !e.cfg.TTLAware {
		return e.WSS()
	}
	switch e.cfg.Mode {
	case VariableBlock:
		for _, sk := range e.bankTTL {
			sk.EvictExpiredAndCount(now)
		}
	default:
		e.singleTTL.EvictExpiredAndCount(now)
	}
	return e.WSS()
}

func (e *Estimator) classCounts() []uint64 {
	if e.cfg.TTLAware {
		out := make([]uint64, len(e.bankTTL))
		for i, sk := range e.bankTTL {
			out[i] = sk.Count()
		}
		return out
	}
	out := make([]uint64, len(e.bankHLL))
	for i, sk := range e.bankHLL {
		out[i] = sk.Count()
	}
	return out
}

func (e *Estimator) cardinality() uint64 {
	switch e.cfg.Mode {
	case VariableBlock:
		var total uint64
		for _, c := range e.classCounts() {
			total += c
		}
		return total
	default:
		if e.cfg.TTLAware {
			return e.singleTTL.Count()
		}
		return e.singleHLL.Count()
	}
}

// Cardinality exposes the distinct-key estimate directly.
func (e *Estimator) Cardinality() uint64 { return e.cardinality() }
