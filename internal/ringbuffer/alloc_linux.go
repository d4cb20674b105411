//go:build linux

package ringbuffer

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// allocPageAligned returns a zeroed, page-aligned buffer of size bytes,
// backed by an anonymous mmap so it can be handed straight to direct I/O
// without a bounce buffer.
func allocPageAligned(size int) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "allocating page-aligned ring buffer")
	}
	return buf, nil
}

func freePageAligned(buf []byte) error {
	if buf == nil {
		return nil
	}
	return unix.Munmap(buf)
}
