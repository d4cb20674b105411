// Package diskwriter owns the three memory-mapped archive regions
// (header, index, decimated-data) and the single-slot write/read
// interlock (C6) that serialises major-block writes against readers that
// need a consistent snapshot of the mmapped regions.
package diskwriter

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Araneidae/fa-archiver/internal/diskformat"
)

// Writer owns an open archive file: its header, index and DD regions
// mapped directly into memory, and the major-block region written
// through explicit positioned writes over the raw file descriptor.
type Writer struct {
	file   *os.File
	header *diskformat.Header

	headerRegion []byte
	indexRegion  []byte
	ddRegion     []byte

	mu            sync.Mutex
	cond          *sync.Cond
	running       bool
	writingActive bool
	writingOffset int64
	writingBlock  []byte
}

// Open opens the archive file at path for direct I/O, takes an advisory
// whole-file write lock, validates and maps its header, and maps the
// index and DD regions described by it. The major-block region is
// deliberately left unmapped: it is written only through ScheduleWrite,
// via positioned writes over the raw descriptor, per the header's own
// O_DIRECT requirement.
func Open(path string) (*Writer, error) {
	f, err := openDirect(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open archive file %q", path)
	}

	if err := lockArchive(f); err != nil {
		f.Close()
		return nil, err
	}

	headerRegion, err := mmapRegion(f, 0, diskformat.DiskHeaderSize)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "mapping archive header")
	}

	fileSize, err := diskformat.FileSize(f)
	if err != nil {
		munmapRegion(headerRegion)
		f.Close()
		return nil, err
	}

	header, err := diskformat.Decode(headerRegion)
	if err != nil {
		munmapRegion(headerRegion)
		f.Close()
		return nil, err
	}
	if err := diskformat.ValidateHeader(header, fileSize); err != nil {
		munmapRegion(headerRegion)
		f.Close()
		return nil, err
	}

	indexRegion, err := mmapRegion(f, int64(header.IndexDataStart), int(header.IndexDataSize))
	if err != nil {
		munmapRegion(headerRegion)
		f.Close()
		return nil, errors.Wrap(err, "mapping index region")
	}
	ddRegion, err := mmapRegion(f, int64(header.DDDataStart), int(header.DDDataSize))
	if err != nil {
		munmapRegion(indexRegion)
		munmapRegion(headerRegion)
		f.Close()
		return nil, errors.Wrap(err, "mapping dd region")
	}

	w := &Writer{
		file:         f,
		header:       header,
		headerRegion: headerRegion,
		indexRegion:  indexRegion,
		ddRegion:     ddRegion,
		running:      true,
	}
	w.cond = sync.NewCond(&w.mu)
	return w, nil
}

// Header returns the archive's decoded, mmap-backed header. Mutating the
// returned struct does not write through to the mapping; use the index
// and DD regions or ScheduleWrite for that.
func (w *Writer) Header() *diskformat.Header { return w.header }

// IndexRegion returns the mmapped index-of-blocks region.
func (w *Writer) IndexRegion() []byte { return w.indexRegion }

// DDRegion returns the mmapped double-decimated-data region.
func (w *Writer) DDRegion() []byte { return w.ddRegion }

// ScheduleWrite blocks until any prior scheduled write has completed,
// then records this one and wakes the worker loop. It does not itself
// block until the new write completes; callers needing that guarantee
// should follow up with RequestRead.
func (w *Writer) ScheduleWrite(offset int64, block []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.writingActive {
		w.cond.Wait()
	}
	w.writingOffset = offset
	w.writingBlock = block
	w.writingActive = true
	w.cond.Broadcast()
}

// RequestRead blocks until any in-flight write completes, giving the
// caller a consistent snapshot of the mmapped regions alongside the
// on-disk major-block data.
func (w *Writer) RequestRead() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.writingActive {
		w.cond.Wait()
	}
}

// Run is the C6 worker loop: it waits for a scheduled write, performs a
// short-write-safe positioned write over the raw file descriptor, clears
// the slot and wakes anyone waiting on ScheduleWrite or RequestRead. It
// returns when Stop is called and no write is outstanding.
func (w *Writer) Run(ctx context.Context) error {
	for {
		w.mu.Lock()
		for w.running && !w.writingActive {
			w.cond.Wait()
		}
		if !w.running && !w.writingActive {
			w.mu.Unlock()
			return nil
		}
		offset, block := w.writingOffset, w.writingBlock
		w.mu.Unlock()

		err := pwriteAll(w.file, offset, block)

		w.mu.Lock()
		w.writingActive = false
		w.cond.Broadcast()
		w.mu.Unlock()

		if err != nil {
			return errors.Wrap(err, "writing major block")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Stop flags the worker loop to exit once any in-flight write drains and
// wakes it so it notices.
func (w *Writer) Stop() {
	w.mu.Lock()
	w.running = false
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Close syncs and unmaps the three regions in the fixed order {DD, index,
// header} and closes the file descriptor. Sync is asynchronous: the
// archive does not promise strict consistency to outside readers across
// a crash, only that the filesystem eventually carries the data.
func (w *Writer) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(msyncRegion(w.ddRegion))
	record(msyncRegion(w.indexRegion))
	record(msyncRegion(w.headerRegion))

	record(munmapRegion(w.ddRegion))
	record(munmapRegion(w.indexRegion))
	record(munmapRegion(w.headerRegion))

	record(w.file.Close())
	return firstErr
}

// pwriteAll writes the whole of block at offset, retrying on short
// writes, matching the original's do_write drain loop adapted to
// positioned writes so concurrent readers elsewhere in the file are
// unaffected.
func pwriteAll(f *os.File, offset int64, block []byte) error {
	for len(block) > 0 {
		n, err := unix.Pwrite(int(f.Fd()), block, offset)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("pwrite returned no progress")
		}
		block = block[n:]
		offset += int64(n)
	}
	return nil
}
