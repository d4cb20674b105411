// Package config holds the validated, parsed command-line configuration
// for fa-archiverd, kept separate from the flag package itself so it can
// be unit tested without touching process-global flag state.
package config

import (
	"github.com/pkg/errors"

	"github.com/Araneidae/fa-archiver/internal/mask"
)

// Config is the fully parsed and validated set of parameters needed to
// start a capture system.
type Config struct {
	// ArchivePath is the on-disk archive file, already laid out by
	// InitialiseHeader (fa-archiverd does not create archives itself).
	ArchivePath string
	// SnifferDevice is the path to the sniffer character device, or
	// ignored entirely when Replay is set.
	SnifferDevice string
	// Replay selects the replay-from-file sniffer backend instead of the
	// real hardware, reading frames from ReplayPath.
	Replay     bool
	ReplayPath string

	// ArchiveMask selects which of the FA_ENTRY_COUNT ids this archiver
	// records; it must match the mask the archive's header was
	// initialised with.
	ArchiveMask mask.Mask

	// RingBlockCount is the number of RAM ring buffer slots (C3); the
	// block size itself comes from the archive header's input block
	// size, not from configuration.
	RingBlockCount int

	// BoostPriority requests SCHED_FIFO scheduling for the sniffer
	// thread; start-up fails outright if the OS refuses.
	BoostPriority bool
}

// Validate checks the fields that can be checked without touching the
// filesystem or a live device; callers still encounter I/O errors when
// they actually open the archive or sniffer device.
func (c Config) Validate() error {
	if c.ArchivePath == "" {
		return errors.New("archive path must be set")
	}
	if !c.Replay && c.SnifferDevice == "" {
		return errors.New("sniffer device must be set unless running in replay mode")
	}
	if c.Replay && c.ReplayPath == "" {
		return errors.New("replay path must be set when running in replay mode")
	}
	if c.ArchiveMask.Count() == 0 {
		return errors.New("archive mask must select at least one id")
	}
	if c.RingBlockCount <= 0 {
		return errors.New("ring block count must be positive")
	}
	return nil
}
