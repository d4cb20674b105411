package diskformat

import (
	"os"

	"github.com/pkg/errors"
)

func pageAligned(offset uint64, description string) error {
	page := uint64(os.Getpagesize())
	if offset%page != 0 {
		return errors.Errorf("bad page alignment for %s", description)
	}
	return nil
}

// ValidateHeader enforces every invariant of the archive's binary format,
// returning the first violated invariant as a distinct, human-readable
// error.
func ValidateHeader(h *Header, fileSize uint64) error {
	var sig [signatureSize]byte
	copy(sig[:], DiskSignature)
	if h.Signature != sig {
		return errors.New("invalid header signature")
	}
	if h.Version != DiskVersion {
		return errors.Errorf("invalid header version %d", h.Version)
	}

	if uint32(h.ArchiveMask.Count()) != h.ArchiveMaskCount {
		return errors.New("inconsistent archive mask")
	}
	if h.ArchiveMaskCount == 0 {
		return errors.New("empty capture mask")
	}
	if h.TotalDataSize > fileSize {
		return errors.New("data size in header larger than file size")
	}

	if h.DSampleCount*h.FirstDecimation != h.MajorSampleCount {
		return errors.New("invalid first decimation")
	}
	if h.DDSampleCount*h.SecondDecimation != h.DSampleCount {
		return errors.New("invalid second decimation")
	}
	if h.ArchiveMaskCount*(h.MajorSampleCount*FAEntrySize+h.DSampleCount*decimatedDataSize) != h.MajorBlockSize {
		return errors.New("invalid major block size")
	}
	if uint64(h.MajorBlockCount)*uint64(dataIndexSize) > uint64(h.IndexDataSize) {
		return errors.New("invalid index block size")
	}
	if h.DDSampleCount*h.MajorBlockCount != h.DDTotalCount {
		return errors.New("invalid total DD count")
	}
	if uint64(h.DDTotalCount)*uint64(h.ArchiveMaskCount)*uint64(decimatedDataSize) > uint64(h.DDDataSize) {
		return errors.New("DD area too small")
	}

	if err := pageAligned(uint64(h.IndexDataSize), "index size"); err != nil {
		return err
	}
	if err := pageAligned(uint64(h.DDDataSize), "DD size"); err != nil {
		return err
	}
	if err := pageAligned(uint64(h.MajorBlockSize), "major block"); err != nil {
		return err
	}
	if err := pageAligned(h.IndexDataStart, "index area"); err != nil {
		return err
	}
	if err := pageAligned(h.DDDataStart, "DD data area"); err != nil {
		return err
	}
	if err := pageAligned(h.MajorDataStart, "major data area"); err != nil {
		return err
	}

	if h.IndexDataStart < DiskHeaderSize {
		return errors.New("unexpected index data start")
	}
	if h.DDDataStart < h.IndexDataStart+uint64(h.IndexDataSize) {
		return errors.New("unexpected DD data start")
	}
	if h.MajorDataStart < h.DDDataStart+uint64(h.DDDataSize) {
		return errors.New("unexpected major data start")
	}
	if h.TotalDataSize < h.MajorDataStart+uint64(h.MajorBlockCount)*uint64(h.MajorBlockSize) {
		return errors.New("data area too small for data")
	}
	if uint64(h.IndexDataSize) < uint64(h.MajorBlockCount)*uint64(dataIndexSize) {
		return errors.New("index area too small")
	}

	if !(h.FirstDecimation > 1 && h.SecondDecimation > 1) {
		return errors.New("decimation too small")
	}
	if h.MajorSampleCount <= 1 {
		return errors.New("output block size too small")
	}
	if h.MajorBlockCount <= 1 {
		return errors.New("data file too small")
	}
	if h.InputBlockSize%FAFrameSize != 0 {
		return errors.New("input block size must be a multiple of FA frame size")
	}
	inputSampleCount := h.InputBlockSize / FAFrameSize
	if inputSampleCount == 0 || h.MajorSampleCount%inputSampleCount != 0 {
		return errors.New("input and output block sizes don't match properly")
	}
	if h.MajorSampleCount%h.FirstDecimation != 0 {
		return errors.New("invalid first decimation")
	}
	if h.MajorSampleCount%(h.FirstDecimation*h.SecondDecimation) != 0 {
		return errors.New("decimation must fit into a complete major block")
	}

	if h.CurrentMajorBlock >= h.MajorBlockCount {
		return errors.New("invalid current index")
	}

	return nil
}
