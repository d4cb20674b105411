// Package transform supplies the C5 reader-loop glue that drives a
// reserved ring-buffer reader into an external decimation/archival
// collaborator. The collaborator's own logic (decimation maths, on-disk
// scheduling) is out of scope here; this package only owns the loop that
// feeds it.
package transform

import (
	"context"
	"time"

	"github.com/Araneidae/fa-archiver/internal/ringbuffer"
)

// Transformer receives successive blocks from the ring buffer. A nil
// block signals a gap or a reader resynchronisation rather than data;
// implementations must treat that as a discontinuity marker, not an
// error.
type Transformer interface {
	ProcessBlock(block []byte, ts time.Time) error
}

// Run drives reader, handing every block (or gap/resync marker) to t,
// until ctx is cancelled. Shutdown is cooperative: the caller must both
// cancel ctx and call reader.Stop() so a blocked GetReadBlock call
// returns promptly rather than waiting for the next write. Run returns
// the first error t returns, if any.
func Run(ctx context.Context, reader *ringbuffer.Reader, t Transformer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		block, _, ts := reader.GetReadBlock()
		if err := t.ProcessBlock(block, ts); err != nil {
			return err
		}
		if block != nil {
			reader.ReleaseReadBlock()
		}
	}
}
