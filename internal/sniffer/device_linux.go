//go:build linux

package sniffer

import (
	"context"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// The FA sniffer character device's ioctl contract: a version probe, a
// status snapshot, and two control operations. Numbers mirror the
// driver's fa_sniffer.h.
const (
	fasnifIoctlGetVersion = 0x40046601
	fasnifIoctlGetStatus  = 0xc0186602
	fasnifIoctlRestart    = 0x6603
	fasnifIoctlHalt       = 0x6604

	fasnifIoctlVersion = 1
)

// LinuxDevice drives a real FA sniffer character device via its ioctl
// interface, falling back to close+reopen for reset and disabling
// Interrupt when the device predates the GET_VERSION ioctl.
type LinuxDevice struct {
	path    string
	file    *os.File
	ioctlOK bool
}

// OpenLinuxDevice opens the sniffer character device at path and probes
// its ioctl version, matching initialise_sniffer_device.
func OpenLinuxDevice(path string) (*LinuxDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open sniffer device %s", path)
	}
	d := &LinuxDevice{path: path, file: f}
	version, err := unix.IoctlGetInt(int(f.Fd()), fasnifIoctlGetVersion)
	if err != nil {
		// Backwards compatible: older devices have no ioctl interface at
		// all, only raw reads.
		d.ioctlOK = false
		return d, nil
	}
	if version != fasnifIoctlVersion {
		f.Close()
		return nil, errors.Errorf("sniffer device ioctl version mismatch: got %d, want %d", version, fasnifIoctlVersion)
	}
	d.ioctlOK = true
	return d, nil
}

// Reset re-arms the device: the restart ioctl if the device supports it,
// otherwise a close and reopen of the character device.
func (d *LinuxDevice) Reset() error {
	if d.ioctlOK {
		_, err := unix.IoctlGetInt(int(d.file.Fd()), fasnifIoctlRestart)
		return errors.Wrap(err, "sniffer restart")
	}
	if err := d.file.Close(); err != nil {
		return errors.Wrap(err, "closing sniffer device")
	}
	f, err := os.OpenFile(d.path, os.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "reopening sniffer device %s", d.path)
	}
	d.file = f
	return nil
}

// Read fills buf completely, retrying on short reads; a zero or negative
// read, or a read that fails with ctx already cancelled, is reported as
// an error.
func (d *LinuxDevice) Read(ctx context.Context, buf []byte) error {
	for len(buf) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := d.file.Read(buf)
		if err != nil {
			return errors.Wrap(err, "reading sniffer device")
		}
		if n <= 0 {
			return errors.New("sniffer device read returned no data")
		}
		buf = buf[n:]
	}
	return nil
}

// rawStatus mirrors struct fa_status from the driver's fa_sniffer.h.
type rawStatus struct {
	Status      uint32
	FrameErrors uint32
	SoftErrors  uint32
	HardErrors  uint32
	Overrun     uint32
}

// Status reports the device's health counters via GET_STATUS.
func (d *LinuxDevice) Status() (Status, error) {
	if !d.ioctlOK {
		return Status{}, ErrStatusUnavailable
	}
	var raw rawStatus
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		d.file.Fd(),
		uintptr(fasnifIoctlGetStatus),
		uintptr(unsafe.Pointer(&raw)))
	if errno != 0 {
		return Status{}, errors.Wrap(errno, "unable to read sniffer status")
	}
	return Status{
		Status:      raw.Status,
		FrameErrors: raw.FrameErrors,
		SoftErrors:  raw.SoftErrors,
		HardErrors:  raw.HardErrors,
		Overrun:     raw.Overrun != 0,
	}, nil
}

// Interrupt asynchronously aborts an in-flight Read via the HALT ioctl.
// Devices without the ioctl interface cannot be interrupted; the caller
// must then rely on process shutdown to unblock the underlying read.
func (d *LinuxDevice) Interrupt() error {
	if !d.ioctlOK {
		return ErrInterruptUnsupported
	}
	_, err := unix.IoctlGetInt(int(d.file.Fd()), fasnifIoctlHalt)
	return errors.Wrap(err, "sniffer halt")
}

// Close releases the underlying file descriptor.
func (d *LinuxDevice) Close() error {
	return d.file.Close()
}
