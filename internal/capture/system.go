// Package capture bundles the ring buffer, disk writer, sniffer device
// and transformer into one supervised system (C7): fixed start-up order,
// fixed shutdown order, three long-lived workers joined via errgroup.
package capture

import (
	"context"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Araneidae/fa-archiver/internal/diskformat"
	"github.com/Araneidae/fa-archiver/internal/diskwriter"
	"github.com/Araneidae/fa-archiver/internal/ringbuffer"
	"github.com/Araneidae/fa-archiver/internal/sniffer"
	"github.com/Araneidae/fa-archiver/internal/transform"
)

// System owns every long-lived resource of a running capture pipeline.
type System struct {
	buffer        *ringbuffer.Buffer
	writer        *diskwriter.Writer
	device        sniffer.Device
	transformer   transform.Transformer
	reader        *ringbuffer.Reader
	logger        *log.Logger
	boostPriority bool

	cancel context.CancelFunc
}

// NewSystem opens the archive via diskwriter, allocates the RAM ring
// buffer sized from the archive header's input block size, and opens a
// reserved reader for the disk-writing pipeline. The sniffer device and
// transformer are supplied by the caller: the former because it differs
// between live and replay runs, the latter because its decimation logic
// is outside this system's scope.
func NewSystem(
	archivePath string, ringBlockCount int, dev sniffer.Device, t transform.Transformer,
	boostPriority bool, logger *log.Logger,
) (*System, error) {
	if logger == nil {
		logger = log.Default()
	}

	writer, err := diskwriter.Open(archivePath)
	if err != nil {
		return nil, err
	}

	buf, err := ringbuffer.NewBuffer(int(writer.Header().InputBlockSize), ringBlockCount, diskformat.FAFrameSize)
	if err != nil {
		writer.Close()
		return nil, err
	}

	reader := buf.OpenReader(true)

	return &System{
		buffer:        buf,
		writer:        writer,
		device:        dev,
		transformer:   t,
		reader:        reader,
		logger:        logger,
		boostPriority: boostPriority,
	}, nil
}

// Buffer returns the RAM ring buffer backing this system, for tests and
// for additional (non-reserved) consumers such as a network read-out
// server.
func (s *System) Buffer() *ringbuffer.Buffer { return s.buffer }

// Writer returns the disk writer backing this system.
func (s *System) Writer() *diskwriter.Writer { return s.writer }

// Run starts the sniffer, transform and disk-writer workers under one
// errgroup and blocks until all three have exited, then performs the
// fixed-order resource teardown (close reader, close disk) regardless of
// whether shutdown was triggered by Stop or by a worker error. It returns
// the first error any worker reported.
func (s *System) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.boostPriority {
			// SCHED_FIFO is a per-thread attribute; lock this goroutine
			// to its OS thread before asking to boost it.
			runtime.LockOSThread()
		}
		return sniffer.Run(gctx, s.logger, s.device, s.buffer, s.boostPriority)
	})
	g.Go(func() error {
		return transform.Run(gctx, s.reader, s.transformer)
	})
	g.Go(func() error {
		return s.writer.Run(gctx)
	})

	err := g.Wait()

	s.buffer.CloseReader(s.reader)
	if closeErr := s.writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.logger.Print("Disk writer done")

	return err
}

// Stop performs the fixed shutdown sequence of the original system,
// translated into Go's cooperative-cancellation idiom: log, flip the
// writer's running flag, stop the transform reader, then interrupt and
// cancel the sniffer. context.Context cancellation alone only stops the
// loop between reads; the device's blocking Read call is the one
// suspension point pthread_cancel reached directly in the original, so
// Stop also calls Interrupt to abort it asynchronously. A device that
// cannot support that (ErrInterruptUnsupported) falls back on the
// context cancellation unblocking the loop the next time Read returns.
// Run still has to be waited on by the caller; Stop only requests the
// shutdown.
func (s *System) Stop() {
	s.logger.Print("Waiting for writer")
	s.writer.Stop()
	s.reader.Stop()
	s.logger.Print("Waiting for sniffer...")
	if err := s.device.Interrupt(); err != nil && err != sniffer.ErrInterruptUnsupported {
		s.logger.Printf("Sniffer interrupt failed: %s", err)
	}
	if s.cancel != nil {
		s.cancel()
	}
}
