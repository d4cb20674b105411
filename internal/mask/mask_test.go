package mask

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"0", []int{0}},
		{"0,1,2", []int{0, 1, 2}},
		{"0-3", []int{0, 1, 2, 3}},
		{"0-3,5", []int{0, 1, 2, 3, 5}},
		{"5,0-3", []int{0, 1, 2, 3, 5}},
		{"1-1", []int{1}},
		{"255", []int{255}},
	}
	for _, tt := range tests {
		m, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		var want Mask
		for _, id := range tt.want {
			want.Set(id)
		}
		if m != want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, m, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "256", "-1", "3-1", "abc", "1,", "1-"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		var m Mask
		for j := range m {
			m[j] = rng.Uint32()
		}
		raw := m.FormatRaw()
		if len(raw) != RawBytes {
			t.Fatalf("FormatRaw length = %d, want %d", len(raw), RawBytes)
		}
		got, err := ParseRaw(raw)
		if err != nil {
			t.Fatalf("ParseRaw(%q): %v", raw, err)
		}
		if got != m {
			t.Errorf("round trip mismatch: got %v, want %v", got, m)
		}
	}
}

func TestParseRawErrors(t *testing.T) {
	if _, err := ParseRaw("short"); err == nil {
		t.Error("expected error for short raw mask")
	}
	bad := make([]byte, RawBytes)
	for i := range bad {
		bad[i] = 'Z'
	}
	if _, err := ParseRaw(string(bad)); err == nil {
		t.Error("expected error for invalid hex character")
	}
}

func TestCount(t *testing.T) {
	m, _ := Parse("0-255")
	if got := m.Count(); got != EntryCount {
		t.Errorf("Count() = %d, want %d", got, EntryCount)
	}
	var empty Mask
	if got := empty.Count(); got != 0 {
		t.Errorf("Count() of empty mask = %d, want 0", got)
	}
}

func TestCopyFrame(t *testing.T) {
	from := make([]byte, EntryCount*entrySize)
	for i := range from {
		from[i] = byte(i)
	}

	m, _ := Parse("0,2,255")
	to := make([]byte, m.Count()*entrySize)
	n := m.CopyFrame(to, from)
	if n != 3*entrySize {
		t.Fatalf("CopyFrame returned %d, want %d", n, 3*entrySize)
	}
	if !bytes.Equal(to[0:entrySize], from[0:entrySize]) {
		t.Error("id 0 not copied first")
	}
	if !bytes.Equal(to[entrySize:2*entrySize], from[2*entrySize:3*entrySize]) {
		t.Error("id 2 not copied second")
	}
	if !bytes.Equal(to[2*entrySize:3*entrySize], from[255*entrySize:256*entrySize]) {
		t.Error("id 255 not copied third")
	}
}

func TestCopyFrameBytesWritten(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	from := make([]byte, EntryCount*entrySize)
	for i := 0; i < 50; i++ {
		var m Mask
		for j := range m {
			m[j] = rng.Uint32()
		}
		to := make([]byte, m.Count()*entrySize)
		if n := m.CopyFrame(to, from); n != m.Count()*entrySize {
			t.Errorf("CopyFrame wrote %d bytes, want %d", n, m.Count()*entrySize)
		}
	}
}
