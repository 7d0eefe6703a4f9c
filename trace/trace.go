// Package trace reads the fixed 20-byte binary trace record format
// (spec.md §6) from an io.Reader, batch by batch.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/cachesight/wssmrc"
)

// RecordSize is the fixed on-disk size of one trace record, per spec.md §6.
const RecordSize = 20

// Reader decodes batches of trace records from an underlying io.Reader. The
// wire format carries no request type, so every decoded Request gets
// Type=wssmrc.Get — the upstream trace producer has already filtered to
// Get-only accesses (spec.md §3's "only Get participates in analytics").
type Reader struct {
	r      io.Reader
	digest *xxhash.Digest
	buf    []byte
}

// New wraps r. batchRecords sizes the internal decode buffer; it does not
// bound how many records ReadBatch may eventually be asked for.
func New(r io.Reader, batchRecords int) *Reader {
	if batchRecords <= 0 {
		batchRecords = 4096
	}
	return &Reader{
		r:      r,
		digest: xxhash.New(),
		buf:    make([]byte, batchRecords*RecordSize),
	}
}

// ReadBatch decodes up to n records into a freshly allocated slice. It
// returns fewer than n records only at end of file (io.EOF, not wrapped as
// an error — the caller is expected to treat a short final batch as
// normal). Any other read failure, or a read that stops mid-record, is a
// short read per spec.md §7 and is fatal: the caller should abort
// processing this file and move on to the next.
func (r *Reader) ReadBatch(n int) ([]wssmrc.Request, error) {
	if n <= 0 {
		return nil, nil
	}
	need := n * RecordSize
	if len(r.buf) < need {
		r.buf = make([]byte, need)
	}
	buf := r.buf[:need]

	read, err := io.ReadFull(r.r, buf)
	if err == io.EOF && read == 0 {
		return nil, io.EOF
	}
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	if read%RecordSize != 0 {
		return nil, fmt.Errorf("trace: %w: got %d bytes, not a multiple of %d",
			wssmrc.ErrShortRead, read, RecordSize)
	}

	buf = buf[:read]
	r.digest.Write(buf)

	count := read / RecordSize
	out := make([]wssmrc.Request, count)
	for i := 0; i < count; i++ {
		rec := buf[i*RecordSize : (i+1)*RecordSize]
		out[i] = wssmrc.Request{
			Timestamp:    binary.LittleEndian.Uint32(rec[0:4]),
			KeyHash:      binary.LittleEndian.Uint64(rec[4:12]),
			ValueSize:    binary.LittleEndian.Uint32(rec[12:16]),
			EvictionTime: binary.LittleEndian.Uint32(rec[16:20]),
			Type:         wssmrc.Get,
		}
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return out, io.EOF
	}
	return out, nil
}

// Digest returns the running xxhash64 over every byte successfully decoded
// so far — a fingerprint of the trace that the CLI logs in its run
// summary. The short-read error does not include it.
func (r *Reader) Digest() uint64 { return r.digest.Sum64() }

// ClampBlock applies spec.md §3's ingestion-time clamp: min_block <=
// effective_size <= max_block.
func ClampBlock(size, minBlock, maxBlock uint32) uint32 {
	if size < minBlock {
		return minBlock
	}
	if size > maxBlock {
		return maxBlock
	}
	return size
}
