// Package diskformat owns the on-disk archive layout: the fixed header,
// index table, double-decimated region and major-block data area described
// in the archive's binary format, plus the planner that computes a layout
// satisfying all of its invariants for a given file size.
package diskformat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/Araneidae/fa-archiver/internal/mask"
)

// FAEntrySize is the byte size of one (x,y) int32 entry pair.
const FAEntrySize = 8

// FAFrameSize is the byte size of one complete FA frame: one (x,y) pair per
// BPM id in the fixed entry set.
const FAFrameSize = mask.EntryCount * FAEntrySize

// DiskHeaderSize is the fixed, page-aligned size reserved for the header at
// the start of the archive file. The encoded header is zero-padded out to
// this size.
const DiskHeaderSize = 4096

// DiskSignature identifies a valid archive file. Mismatches are rejected by
// ValidateHeader.
const DiskSignature = "FAArch3"

// DiskVersion is the binary layout version this package reads and writes.
const DiskVersion uint32 = 2

const signatureSize = 7

// DataIndex is one index record per major block. Its shape is owned by the
// external transform layer; this package only relies on its size to size
// the index region and never interprets its contents.
type DataIndex struct {
	Timestamp  int64  // completion time of the last sample in the block, ns
	Duration   int64  // wall-clock duration spanned by the block, ns
	ID         uint32 // major block sequence number
	SampleCount uint32
}

// DecimatedData is one first-decimation sample record: per-axis min/max
// over the decimation window. Like DataIndex, its contents are owned by
// the external transform layer; this package only relies on its size.
type DecimatedData struct {
	MinX, MaxX int32
	MinY, MaxY int32
}

var dataIndexSize = uint32(unsafe.Sizeof(DataIndex{}))
var decimatedDataSize = uint32(unsafe.Sizeof(DecimatedData{}))

// Header is the fixed binary header at offset 0 of the archive file. All
// multi-byte integers are little-endian. Field order matches the on-disk
// layout exactly; do not reorder without bumping DiskVersion.
type Header struct {
	Signature [signatureSize]byte
	Version   uint32

	ArchiveMask      mask.Mask
	ArchiveMaskCount uint32

	FirstDecimation  uint32
	SecondDecimation uint32
	InputBlockSize   uint32

	MajorSampleCount uint32
	DSampleCount     uint32
	DDSampleCount    uint32
	MajorBlockSize   uint32

	IndexDataStart uint64
	IndexDataSize  uint32

	DDDataStart uint64
	DDDataSize  uint32
	DDTotalCount uint32

	MajorDataStart    uint64
	MajorBlockCount   uint32
	TotalDataSize     uint64
	CurrentMajorBlock uint32
}

// Encode serialises the header into a DiskHeaderSize-byte, zero-padded
// buffer suitable for writing at offset 0 of the archive file.
func (h *Header) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, errors.Wrap(err, "encoding disk header")
	}
	if buf.Len() > DiskHeaderSize {
		return nil, errors.Errorf("encoded header (%d bytes) exceeds DiskHeaderSize (%d)", buf.Len(), DiskHeaderSize)
	}
	out := make([]byte, DiskHeaderSize)
	copy(out, buf.Bytes())
	return out, nil
}

// Decode parses a Header out of a DiskHeaderSize-byte buffer written by
// Encode.
func Decode(buf []byte) (*Header, error) {
	if len(buf) < DiskHeaderSize {
		return nil, errors.Errorf("header buffer too small: %d bytes, want %d", len(buf), DiskHeaderSize)
	}
	var h Header
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "decoding disk header")
	}
	return &h, nil
}

// String renders the header the way the archive's diagnostic tooling does:
// signature, decimation chain, block sizes, region offsets and the current
// write position.
func (h *Header) String() string {
	return fmt.Sprintf(
		"FA sniffer archive: %.7s, v%d.\n"+
			"Archiving: %s\n"+
			"Decimation %d, %d => %d, recording %d BPMs\n"+
			"Input block size = %d bytes, %d frames\n"+
			"Output block size = %d bytes, %d samples\n"+
			"Total size = %d major blocks = %d samples = %d bytes\n"+
			"Index data from %d for %d bytes\n"+
			"DD data starts %d for %d bytes, %d samples\n"+
			"FA+D data from %d, %d decimated samples per block\n"+
			"Current index: %d\n",
		h.Signature, h.Version,
		h.ArchiveMask.FormatRaw(),
		h.FirstDecimation, h.SecondDecimation, h.FirstDecimation*h.SecondDecimation, h.ArchiveMaskCount,
		h.InputBlockSize, h.InputBlockSize/FAFrameSize,
		h.MajorBlockSize, h.MajorSampleCount,
		h.MajorBlockCount, uint64(h.MajorBlockCount)*uint64(h.MajorSampleCount), h.TotalDataSize,
		h.IndexDataStart, h.IndexDataSize,
		h.DDDataStart, h.DDDataSize, h.DDTotalCount,
		h.MajorDataStart, h.DSampleCount,
		h.CurrentMajorBlock,
	)
}

// FileSize returns the usable size of the archive's backing file: the
// block-device size via BLKGETSIZE64 when f is a block device, otherwise
// the regular file size via fstat.
func FileSize(f *os.File) (uint64, error) {
	return fileSize(f)
}
