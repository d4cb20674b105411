package diskformat

import (
	"os"
	"testing"

	"github.com/Araneidae/fa-archiver/internal/mask"
)

func fullMask(t *testing.T) mask.Mask {
	t.Helper()
	m, err := mask.Parse("0-255")
	if err != nil {
		t.Fatalf("mask.Parse: %v", err)
	}
	return m
}

func TestInitialiseHeaderRoundTrip(t *testing.T) {
	pageSize := uint32(os.Getpagesize())
	m := fullMask(t)

	fileSize := uint64(DiskHeaderSize) + 2048*uint64(pageSize)
	h, err := InitialiseHeader(m, fileSize, FAFrameSize, pageSize, 2, 2)
	if err != nil {
		t.Fatalf("InitialiseHeader: %v", err)
	}
	if err := ValidateHeader(h, fileSize); err != nil {
		t.Fatalf("ValidateHeader: %v", err)
	}
	if h.MajorBlockCount == 0 {
		t.Fatal("expected at least one major block")
	}
}

func TestInitialiseHeaderMaximality(t *testing.T) {
	pageSize := uint32(os.Getpagesize())
	m := fullMask(t)
	fileSize := uint64(DiskHeaderSize) + 4096*uint64(pageSize)

	h, err := InitialiseHeader(m, fileSize, FAFrameSize, pageSize, 2, 2)
	if err != nil {
		t.Fatalf("InitialiseHeader: %v", err)
	}

	probe := *h
	probe.MajorBlockCount++
	probe.DDTotalCount = probe.DDSampleCount * probe.MajorBlockCount
	probe.TotalDataSize = probe.MajorDataStart + uint64(probe.MajorBlockCount)*uint64(probe.MajorBlockSize)
	if err := ValidateHeader(&probe, fileSize); err == nil {
		t.Error("expected one more major block to violate an invariant (maximality)")
	}
}

func TestInitialiseHeaderBadAlignment(t *testing.T) {
	m := fullMask(t)
	if _, err := InitialiseHeader(m, 1<<20, FAFrameSize, 123, 2, 2); err == nil {
		t.Error("expected error for non-page-aligned output block size")
	}
	if _, err := InitialiseHeader(m, 1<<20, FAFrameSize, uint32(os.Getpagesize())+1, 2, 2); err == nil {
		t.Error("expected error for output block size not a multiple of page size")
	}
}

func TestInitialiseHeaderTooSmall(t *testing.T) {
	m := fullMask(t)
	if _, err := InitialiseHeader(m, DiskHeaderSize+1, FAFrameSize, uint32(os.Getpagesize()), 2, 2); err == nil {
		t.Error("expected error for file too small to hold any major blocks")
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	pageSize := uint32(os.Getpagesize())
	m := fullMask(t)
	fileSize := uint64(DiskHeaderSize) + 2048*uint64(pageSize)
	h, err := InitialiseHeader(m, fileSize, FAFrameSize, pageSize, 2, 2)
	if err != nil {
		t.Fatalf("InitialiseHeader: %v", err)
	}

	buf, err := h.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != DiskHeaderSize {
		t.Fatalf("Encode length = %d, want %d", len(buf), DiskHeaderSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if *got != *h {
		t.Errorf("decoded header mismatch:\ngot  %+v\nwant %+v", got, h)
	}
}

func TestHeaderString(t *testing.T) {
	pageSize := uint32(os.Getpagesize())
	m := fullMask(t)
	fileSize := uint64(DiskHeaderSize) + 2048*uint64(pageSize)
	h, err := InitialiseHeader(m, fileSize, FAFrameSize, pageSize, 2, 2)
	if err != nil {
		t.Fatalf("InitialiseHeader: %v", err)
	}
	if s := h.String(); s == "" {
		t.Error("String() returned empty output")
	}
}
