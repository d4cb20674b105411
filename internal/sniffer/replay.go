package sniffer

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ReplayDevice plays back a fixed block of pre-recorded frame data from a
// reader, looping indefinitely, standing in for the real hardware in
// tests and offline replay. It has no status to report and cannot be
// reset to a different position, mirroring the original dummy replay
// sniffer context.
type ReplayDevice struct {
	r io.ReadSeeker
}

// NewReplayDevice wraps r as a looping frame source.
func NewReplayDevice(r io.ReadSeeker) *ReplayDevice {
	return &ReplayDevice{r: r}
}

// Reset rewinds the replay source to its start.
func (d *ReplayDevice) Reset() error {
	_, err := d.r.Seek(0, io.SeekStart)
	return errors.Wrap(err, "rewinding replay source")
}

// Read fills buf from the replay source, rewinding and continuing when it
// runs out, so a replay device never itself reports a gap.
func (d *ReplayDevice) Read(ctx context.Context, buf []byte) error {
	for len(buf) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := d.r.Read(buf)
		if err == io.EOF {
			if _, serr := d.r.Seek(0, io.SeekStart); serr != nil {
				return errors.Wrap(serr, "rewinding replay source at end of data")
			}
			continue
		}
		if err != nil {
			return errors.Wrap(err, "reading replay source")
		}
		buf = buf[n:]
	}
	return nil
}

// Status always fails: replay has no device health counters to report.
func (d *ReplayDevice) Status() (Status, error) {
	return Status{}, ErrStatusUnavailable
}

// Interrupt is unsupported in replay mode: there is no blocking read to
// abort, only in-memory copies.
func (d *ReplayDevice) Interrupt() error {
	return ErrInterruptUnsupported
}
