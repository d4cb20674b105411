package mask

import (
	"io"

	"github.com/pkg/errors"
)

// writeBufferSize bounds how much masked frame data WriteFrames buffers
// before issuing a write, matching the original WRITE_BUFFER_SIZE of 64KiB.
const writeBufferSize = 1 << 16

// WriteFrames writes count consecutive frames from buf (each FA_FRAME_SIZE
// bytes) through the mask to w, buffering up to 64KiB of masked output
// before issuing each write and retrying on short writes. Output order is
// frame-major, id-minor, identical to repeated calls to CopyFrame.
func (m Mask) WriteFrames(w io.Writer, buf []byte, frameSize, count int) error {
	outFrameSize := m.Count() * entrySize
	if outFrameSize == 0 {
		return nil
	}

	chunk := make([]byte, 0, writeBufferSize)
	pos := 0
	for count > 0 {
		chunk = chunk[:0]
		n := 0
		for count > 0 && len(chunk)+outFrameSize <= writeBufferSize {
			chunk = chunk[:len(chunk)+outFrameSize]
			m.CopyFrame(chunk[len(chunk)-outFrameSize:], buf[pos:pos+frameSize])
			pos += frameSize
			count--
			n++
		}
		if err := writeAll(w, chunk); err != nil {
			return errors.Wrap(err, "writing masked frames")
		}
	}
	return nil
}

// writeAll drains buf to w, retrying on short writes.
func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// DumpBinary writes a hex+ASCII dump of buf to w, 16 bytes per line, for
// diagnostics. Mirrors the original dump_binary helper.
func DumpBinary(w io.Writer, buf []byte) error {
	for a := 0; a < len(buf); a += 16 {
		if _, err := io.WriteString(w, hexLine(buf, a)); err != nil {
			return err
		}
	}
	return nil
}

func hexLine(buf []byte, a int) string {
	line := make([]byte, 0, 80)
	line = append(line, []byte(hexOffset(a))...)
	for i := 0; i < 16; i++ {
		if a+i < len(buf) {
			line = append(line, ' ')
			line = append(line, hexByte(buf[a+i])...)
		} else {
			line = append(line, "   "...)
		}
	}
	line = append(line, "  "...)
	for i := 0; i < 16; i++ {
		if a+i < len(buf) {
			c := buf[a+i]
			if c < 32 || c >= 127 {
				c = '.'
			}
			line = append(line, c)
		} else {
			line = append(line, ' ')
		}
	}
	line = append(line, '\n')
	return string(line)
}

func hexOffset(a int) string {
	const hexdigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexdigits[a&0xf]
		a >>= 4
	}
	return string(b) + ": "
}

func hexByte(c byte) string {
	const hexdigits = "0123456789abcdef"
	return string([]byte{hexdigits[c>>4], hexdigits[c&0xf]})
}
