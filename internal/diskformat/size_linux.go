//go:build linux

package diskformat

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// fileSize tries BLKGETSIZE64 first (block device), falling back to
// fstat.st_size (regular file), matching the archive's get_filesize.
func fileSize(f *os.File) (uint64, error) {
	if size, err := unix.IoctlGetUint64(int(f.Fd()), unix.BLKGETSIZE64); err == nil {
		return size, nil
	}

	st, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat archive file")
	}
	size := uint64(st.Size())
	if size == 0 {
		return 0, errors.New("zero file size. Maybe stat failed?")
	}
	return size, nil
}
