//go:build !linux

package diskwriter

import (
	"os"

	"github.com/pkg/errors"
)

// openDirect falls back to a plain buffered open on platforms without
// O_DIRECT; the archive semantics still hold, just without the direct-I/O
// performance characteristic. Intended for tests on non-Linux development
// machines only.
func openDirect(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// lockArchive is a best-effort stand-in: without F_SETLK this platform
// cannot actually detect a second concurrent archiver, so it always
// succeeds.
func lockArchive(f *os.File) error {
	return nil
}

// mmapRegion reads the region into an ordinary heap buffer rather than a
// true shared mapping; writes made through it will not be reflected back
// to the file. Adequate for exercising the header/index/DD decode paths
// in tests, not for production use.
func mmapRegion(f *os.File, offset int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n != size {
		return nil, errors.Wrap(err, "reading mapped region")
	}
	return buf, nil
}

func munmapRegion(region []byte) error { return nil }

func msyncRegion(region []byte) error { return nil }
