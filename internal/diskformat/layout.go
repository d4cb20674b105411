package diskformat

import (
	"os"

	"github.com/pkg/errors"

	"github.com/Araneidae/fa-archiver/internal/mask"
)

func roundToPage(size uint32) uint32 {
	page := uint32(os.Getpagesize())
	return page * ((size + page - 1) / page)
}

// InitialiseHeader computes a layout satisfying every invariant in the
// archive's header format and maximising the number of major blocks that
// fit in fileSize-DiskHeaderSize, for the given archive mask, input/output
// block sizes and decimation factors. It returns the populated header with
// CurrentMajorBlock reset to 0, already passed through ValidateHeader.
func InitialiseHeader(
	archiveMask mask.Mask,
	fileSize uint64,
	inputBlockSize, outputBlockSize uint32,
	firstDecimation, secondDecimation uint32,
) (*Header, error) {
	pageSize := uint32(os.Getpagesize())
	if outputBlockSize%pageSize != 0 {
		return nil, errors.New("output block size must be a multiple of page size")
	}
	if outputBlockSize%FAEntrySize != 0 {
		return nil, errors.New("output block size must be a multiple of FA entry size")
	}

	h := &Header{Version: DiskVersion}
	copy(h.Signature[:], DiskSignature)
	h.ArchiveMask = archiveMask
	h.ArchiveMaskCount = uint32(archiveMask.Count())
	h.FirstDecimation = firstDecimation
	h.SecondDecimation = secondDecimation
	h.InputBlockSize = inputBlockSize

	h.MajorSampleCount = outputBlockSize / FAEntrySize
	h.DSampleCount = h.MajorSampleCount / firstDecimation
	h.DDSampleCount = h.DSampleCount / secondDecimation
	h.MajorBlockSize = h.ArchiveMaskCount * (h.MajorSampleCount*FAEntrySize + h.DSampleCount*decimatedDataSize)

	if fileSize <= DiskHeaderSize {
		return nil, errors.New("archive file too small for header")
	}
	dataSize := fileSize - DiskHeaderSize
	indexBlockSize := dataIndexSize
	ddBlockSize := h.DDSampleCount * h.ArchiveMaskCount * decimatedDataSize

	majorBlockCount := uint32(dataSize / uint64(indexBlockSize+ddBlockSize+h.MajorBlockSize))
	indexDataSize := roundToPage(majorBlockCount * indexBlockSize)
	ddDataSize := roundToPage(majorBlockCount * ddBlockSize)

	// In practice this loop runs at most once: the page-rounding of the
	// index and DD regions can only ever overshoot the initial division
	// estimate by a fraction of a major block.
	for uint64(indexDataSize)+uint64(ddDataSize)+uint64(majorBlockCount)*uint64(h.MajorBlockSize) > dataSize {
		if majorBlockCount == 0 {
			return nil, errors.New("archive file too small to hold any major blocks")
		}
		majorBlockCount--
		indexDataSize = roundToPage(majorBlockCount * indexBlockSize)
		ddDataSize = roundToPage(majorBlockCount * ddBlockSize)
	}

	h.IndexDataStart = DiskHeaderSize
	h.IndexDataSize = indexDataSize
	h.DDDataStart = h.IndexDataStart + uint64(indexDataSize)
	h.DDDataSize = ddDataSize
	h.DDTotalCount = h.DDSampleCount * majorBlockCount
	h.MajorDataStart = h.DDDataStart + uint64(ddDataSize)
	h.MajorBlockCount = majorBlockCount
	h.TotalDataSize = h.MajorDataStart + uint64(majorBlockCount)*uint64(h.MajorBlockSize)

	h.CurrentMajorBlock = 0

	if err := ValidateHeader(h, fileSize); err != nil {
		return nil, err
	}
	return h, nil
}
