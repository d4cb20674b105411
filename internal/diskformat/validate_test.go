package diskformat

import (
	"os"
	"testing"
)

func validHeader(t *testing.T) (*Header, uint64) {
	t.Helper()
	pageSize := uint32(os.Getpagesize())
	m := fullMask(t)
	fileSize := uint64(DiskHeaderSize) + 2048*uint64(pageSize)
	h, err := InitialiseHeader(m, fileSize, FAFrameSize, pageSize, 2, 2)
	if err != nil {
		t.Fatalf("InitialiseHeader: %v", err)
	}
	return h, fileSize
}

func TestValidateHeaderClauses(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(h *Header)
	}{
		{"bad signature", func(h *Header) { h.Signature[0] = 'X' }},
		{"bad version", func(h *Header) { h.Version++ }},
		{"inconsistent mask count", func(h *Header) { h.ArchiveMaskCount++ }},
		{"empty mask", func(h *Header) { h.ArchiveMask = [8]uint32{}; h.ArchiveMaskCount = 0 }},
		{"oversize total", func(h *Header) { h.TotalDataSize = ^uint64(0) }},
		{"bad first decimation", func(h *Header) { h.FirstDecimation++ }},
		{"bad second decimation", func(h *Header) { h.SecondDecimation++ }},
		{"bad major block size", func(h *Header) { h.MajorBlockSize++ }},
		{"bad index size", func(h *Header) { h.IndexDataSize = 0 }},
		{"bad dd total", func(h *Header) { h.DDTotalCount++ }},
		{"current index out of range", func(h *Header) { h.CurrentMajorBlock = h.MajorBlockCount }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fileSize := validHeader(t)
			tt.corrupt(h)
			if err := ValidateHeader(h, fileSize); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestValidateHeaderAccepted(t *testing.T) {
	h, fileSize := validHeader(t)
	if err := ValidateHeader(h, fileSize); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
