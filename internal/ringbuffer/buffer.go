// Package ringbuffer implements the RAM ring buffer connecting the
// sniffer producer to one or more consumers: gap coalescing, per-reader
// underflow detection, backlog metering, frame-rate estimation and a
// reserved-reader back-pressure mechanism.
package ringbuffer

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type frameInfo struct {
	gap bool
	ts  time.Time
}

// Buffer is a page-aligned array of blockCount contiguous blocks plus a
// parallel array of frame metadata, a single write index, and the set of
// live readers. A single mutex and condition variable guard all of it
// except the block payloads themselves, whose ownership passes by index.
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	blockSize  int
	blockCount int
	payload    []byte
	frames     []frameInfo

	in    int
	inGap bool

	readers map[*Reader]struct{}

	rate rateEstimator
}

// Reader is one consumer's position in the buffer: its own read index,
// running/underflow state and backlog high-water mark. Reserved readers
// additionally participate in producer back-pressure.
type Reader struct {
	buf         *Buffer
	reserved    bool
	out         int
	running     bool
	underflowed bool
	backlog     int
}

// NewBuffer allocates a ring of blockCount page-aligned blocks of blockSize
// bytes each, ready for direct I/O. frameSize is the size in bytes of one
// FA frame, used only to convert the frame-rate estimator's block-per-
// second observations into a frame rate; blockSize must be a multiple of
// it.
func NewBuffer(blockSize, blockCount, frameSize int) (*Buffer, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, errors.New("block size and block count must be positive")
	}
	if frameSize <= 0 || blockSize%frameSize != 0 {
		return nil, errors.New("block size must be a multiple of frame size")
	}
	payload, err := allocPageAligned(blockSize * blockCount)
	if err != nil {
		return nil, err
	}
	b := &Buffer{
		blockSize:  blockSize,
		blockCount: blockCount,
		payload:    payload,
		frames:     make([]frameInfo, blockCount),
		inGap:      false, // a gap run at start-up is recorded like any other
		readers:    make(map[*Reader]struct{}),
		rate:       newRateEstimator(blockSize / frameSize),
	}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Close releases the buffer's backing memory. The caller must ensure no
// reader or writer is still active.
func (b *Buffer) Close() error {
	return freePageAligned(b.payload)
}

// BlockSize returns the fixed size in bytes of each block in the buffer.
func (b *Buffer) BlockSize() int {
	return b.blockSize
}

// MeanFrameRate returns the current IIR-smoothed frame rate estimate.
func (b *Buffer) MeanFrameRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate.mean
}

func (b *Buffer) blockAt(index int) []byte {
	start := index * b.blockSize
	return b.payload[start : start+b.blockSize]
}

func advance(index, count int) int {
	index++
	if index >= count {
		index -= count
	}
	return index
}

// OpenReader registers a new reader starting at the buffer's current write
// position. A reserved reader additionally participates in producer
// back-pressure; only the on-disk writer should ever pass reserved=true.
func (b *Buffer) OpenReader(reserved bool) *Reader {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := &Reader{
		buf:      b,
		reserved: reserved,
		out:      b.in,
		running:  true,
	}
	b.readers[r] = struct{}{}
	return r
}

// CloseReader removes a reader from the buffer. The reader must already be
// stopped.
func (b *Buffer) CloseReader(r *Reader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.readers, r)
}

// blockingReaders reports whether a reserved reader is both underflowed and
// pinned at the next write slot, in which case the producer must stall
// rather than clobber it.
func (b *Buffer) blockingReaders() bool {
	for r := range b.readers {
		if r.reserved && r.underflowed && r.out == b.in {
			return true
		}
	}
	return false
}

// GetWriteBlock returns the payload buffer the producer should fill next,
// or nil if a reserved reader is blocking the current slot (the caller
// should retry). This is a back-pressure hint, not an error.
func (b *Buffer) GetWriteBlock() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blockingReaders() {
		return nil
	}
	return b.blockAt(b.in)
}

// ReleaseWriteBlock commits the block the producer just filled (or marks it
// as a gap placeholder) and wakes all waiting readers. Repeated gap
// releases while already in a gap run are coalesced to a single
// observation, per reader, until a non-gap release.
func (b *Buffer) ReleaseWriteBlock(gap bool, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gap && b.inGap {
		return
	}
	b.inGap = gap
	b.rate.update(gap, ts)

	b.frames[b.in] = frameInfo{gap: gap, ts: ts}
	b.in = advance(b.in, b.blockCount)

	for r := range b.readers {
		if b.in == r.out {
			r.underflowed = true
		} else {
			r.updateBacklog(b.in, b.blockCount)
		}
	}
	b.cond.Broadcast()
}

func (r *Reader) updateBacklog(in, count int) {
	backlog := in - r.out
	if backlog < 0 {
		backlog += count
	}
	if backlog > r.backlog {
		r.backlog = backlog
	}
}

// GetReadBlock returns the next block for this reader, or nil if the block
// is a gap placeholder, the reader was resynchronised after an underflow,
// or the reader was stopped. backlog is the maximum unread depth (in
// bytes) observed since the last call, then reset to zero.
func (r *Reader) GetReadBlock() (block []byte, backlog int, ts time.Time) {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.underflowed {
		// The producer lapped us: resynchronise to the current write
		// position and report a synthetic gap so the caller knows the
		// stream was discontinuous.
		r.out = b.in
		r.underflowed = false
		block = nil
	} else {
		for r.running && r.out == b.in {
			b.cond.Wait()
		}
		switch {
		case !r.running:
			block = nil
		case b.frames[r.out].gap:
			block = nil
			r.out = advance(r.out, b.blockCount)
		default:
			block = b.blockAt(r.out)
			ts = b.frames[r.out].ts
		}
	}

	backlog = r.backlog * b.blockSize
	r.backlog = 0
	return block, backlog, ts
}

// ReleaseReadBlock advances the reader past the block it just consumed and
// reports whether it remained synchronised (false iff the producer lapped
// it between acquisition and release).
func (r *Reader) ReleaseReadBlock() bool {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	r.out = advance(r.out, b.blockCount)
	return !r.underflowed
}

// Stop halts the reader: any blocked GetReadBlock call returns nil.
func (r *Reader) Stop() {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	r.running = false
	b.cond.Broadcast()
}
