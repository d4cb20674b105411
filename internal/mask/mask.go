// Package mask implements the fixed-width BPM filter mask: a 256-bit set
// identifying which fast-acquisition entries participate in a capture or
// archive.
package mask

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EntryCount is the number of BPM ids a Mask can represent (FA_ENTRY_COUNT).
const EntryCount = 256

// wordCount is the number of uint32 words backing a Mask.
const wordCount = EntryCount / 32

// RawBytes is the length of the raw hex encoding produced by FormatRaw.
const RawBytes = EntryCount / 4

// entrySize is the byte size of one (x,y) int32 pair.
const entrySize = 8

// Mask is a fixed bit-set of EntryCount ids, 8 uint32 words wide.
type Mask [wordCount]uint32

// Set marks id as present in the mask.
func (m *Mask) Set(id int) {
	m[id>>5] |= 1 << uint(id&0x1f)
}

// Test reports whether id is present in the mask.
func (m Mask) Test(id int) bool {
	return m[id>>5]&(1<<uint(id&0x1f)) != 0
}

// Count returns the number of ids set in the mask.
func (m Mask) Count() int {
	count := 0
	for _, w := range m {
		for w != 0 {
			count += int(w & 1)
			w >>= 1
		}
	}
	return count
}

// Parse parses a human mask specification: id[-id](,id[-id])*, each id in
// [0, EntryCount). Ranges may overlap or repeat; the result is their union.
func Parse(s string) (Mask, error) {
	var m Mask
	for _, part := range strings.Split(s, ",") {
		lo, hi, err := parseRange(part)
		if err != nil {
			return Mask{}, err
		}
		for id := lo; id <= hi; id++ {
			m.Set(id)
		}
	}
	return m, nil
}

func parseRange(part string) (lo, hi int, err error) {
	if part == "" {
		return 0, 0, errors.New("empty id in mask")
	}
	dash := strings.IndexByte(part, '-')
	if dash < 0 {
		id, err := parseID(part)
		return id, id, err
	}
	lo, err = parseID(part[:dash])
	if err != nil {
		return 0, 0, err
	}
	hi, err = parseID(part[dash+1:])
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, errors.Errorf("range %d-%d is empty", lo, hi)
	}
	return lo, hi, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid id %q", s)
	}
	if id < 0 || id >= EntryCount {
		return 0, errors.Errorf("id %d out of range", id)
	}
	return id, nil
}

// ParseRaw parses a mask in the form produced by FormatRaw: exactly
// RawBytes uppercase hex nibbles. Nibble i (0 = first character read) maps
// to the top nibble of word (count-1-i)/8 at position 4*((count-1-i)%8).
func ParseRaw(s string) (Mask, error) {
	if len(s) != RawBytes {
		return Mask{}, errors.Errorf("raw mask must be %d hex characters, got %d", RawBytes, len(s))
	}
	var m Mask
	for i := 0; i < RawBytes; i++ {
		nibble, err := hexNibble(s[i])
		if err != nil {
			return Mask{}, err
		}
		pos := RawBytes - 1 - i
		m[pos/8] |= uint32(nibble) << uint(4*(pos%8))
	}
	return m, nil
}

func hexNibble(ch byte) (uint32, error) {
	switch {
	case '0' <= ch && ch <= '9':
		return uint32(ch - '0'), nil
	case 'A' <= ch && ch <= 'F':
		return uint32(ch-'A') + 10, nil
	default:
		return 0, errors.Errorf("unexpected character %q in raw mask", ch)
	}
}

// FormatRaw renders the mask as RawBytes uppercase hex nibbles, inverse of
// ParseRaw.
func (m Mask) FormatRaw() string {
	var sb strings.Builder
	sb.Grow(RawBytes)
	for i := RawBytes - 1; i >= 0; i-- {
		nibble := (m[i/8] >> uint(4*(i%8))) & 0xf
		fmt.Fprintf(&sb, "%X", nibble)
	}
	return sb.String()
}

// CopyFrame copies one FA frame from "from" into "to", taking the mask into
// account. "from" must contain a full EntryCount (x,y) int32 pairs; "to"
// receives the selected pairs in ascending id order. Returns the number of
// bytes written, always 8*m.Count().
func (m Mask) CopyFrame(to, from []byte) int {
	written := 0
	for id := 0; id < EntryCount; id++ {
		if !m.Test(id) {
			continue
		}
		off := id * entrySize
		copy(to[written:written+entrySize], from[off:off+entrySize])
		written += entrySize
	}
	return written
}
