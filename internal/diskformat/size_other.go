//go:build !linux

package diskformat

import (
	"os"

	"github.com/pkg/errors"
)

// fileSize falls back to fstat.st_size on platforms without BLKGETSIZE64.
func fileSize(f *os.File) (uint64, error) {
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
