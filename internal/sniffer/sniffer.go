// Package sniffer adapts the external FA sniffer device to the capture
// pipeline: a small capability interface any driver backend must satisfy,
// and the producer thread loop that drives it into the ring buffer.
package sniffer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Araneidae/fa-archiver/internal/ringbuffer"
)

// Status is a snapshot of the device's health counters, as returned by
// FASNIF_IOCTL_GET_STATUS. Its fields are reported verbatim in Run's
// failure-case "Unable to read block" log line.
type Status struct {
	Status      uint32
	FrameErrors uint32
	SoftErrors  uint32
	HardErrors  uint32
	Overrun     bool
}

func (s Status) String() string {
	return fmt.Sprintf(
		"status=%#x frame_errors=%d soft_errors=%d hard_errors=%d overrun=%v",
		s.Status, s.FrameErrors, s.SoftErrors, s.HardErrors, s.Overrun)
}

// ErrStatusUnavailable is returned by Device implementations (such as
// ReplayDevice) that have no underlying hardware to report on.
var ErrStatusUnavailable = fmt.Errorf("sniffer status unavailable")

// ErrInterruptUnsupported is returned by Interrupt when the device backend
// cannot asynchronously abort an in-flight read.
var ErrInterruptUnsupported = fmt.Errorf("sniffer device does not support interrupt")

// Device is the capability set required of any sniffer driver backend: a
// real Linux character device, a replay-from-file stand-in for tests, or
// anything else that can produce blocks of FA frame data.
type Device interface {
	// Reset re-arms the device after a failed read.
	Reset() error
	// Read fills buf completely, blocking until it can, or returns an
	// error. Read is the sole operation Interrupt can abort.
	Read(ctx context.Context, buf []byte) error
	// Status reports a snapshot of the device's health counters.
	Status() (Status, error)
	// Interrupt asynchronously aborts an in-flight Read.
	Interrupt() error
}

// fifoPriority is the fixed real-time priority used when boosting, as in
// the original implementation.
const fifoPriority = 1

// Run is the C4 thread loop: acquire a write block, read into it, stamp
// and release it, and log on every ok/gap transition using the strings
// this system's log-watching tooling greps for. On a failed read it
// sleeps for a second and resets the device before retrying.
//
// If boostPriorityRequested is set, Run switches its calling goroutine's
// OS thread to SCHED_FIFO before entering the loop and fails immediately,
// without retry, if the OS refuses — matching the original's behaviour of
// failing sniffer thread start-up outright rather than silently running
// at normal priority.
func Run(ctx context.Context, logger *log.Logger, dev Device, buf *ringbuffer.Buffer, boostPriorityRequested bool) error {
	if logger == nil {
		logger = log.Default()
	}
	if boostPriorityRequested {
		if err := boostPriority(fifoPriority); err != nil {
			return err
		}
	}
	inGap := false
	for {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			block := buf.GetWriteBlock()
			if block == nil {
				logger.Print("Sniffer unable to write block")
				break
			}

			err := dev.Read(ctx, block)
			gap := err != nil
			ts := time.Now()
			buf.ReleaseWriteBlock(gap, ts)

			if gap {
				if !inGap {
					logger.Printf("Unable to read block: %s", readFailureDetail(dev, err))
				}
				inGap = true
				break
			} else if inGap {
				logger.Print("Block read successfully")
				inGap = false
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		if err := dev.Reset(); err != nil {
			logger.Printf("Sniffer reset failed: %s", err)
		}
	}
}

// readFailureDetail quotes the device's status fields alongside the read
// error when the backend can report them, matching the original sniffer's
// practice of logging fa_status on failure.
func readFailureDetail(dev Device, readErr error) string {
	status, err := dev.Status()
	if err != nil {
		return readErr.Error()
	}
	return fmt.Sprintf("%s (%s)", readErr, status)
}
