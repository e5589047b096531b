// Package link turns the byte stream from the radio link into command lines.
package link

// FrameSize is the framer buffer size, one byte is reserved for the terminator.
const FrameSize = 24

// MaxLineLen is the longest line the framer accepts.
const MaxLineLen = FrameSize - 1

// Framer splits a byte stream into lines terminated by '\n'.
// '\r' is dropped. A line longer than MaxLineLen is discarded up to and
// including its terminator.
type Framer struct {
	buf       [FrameSize]byte
	n         int
	overflows int
	skipping  bool
}

// Feed consumes one byte. When it completes a line, the line is returned
// and ok is true. The returned slice is only valid until the next Feed.
func (f *Framer) Feed(b byte) (line []byte, ok bool) {
	switch {
	case b == '\n':
		if f.skipping {
			f.skipping = false
			return nil, false
		}
		line, f.n = f.buf[:f.n], 0
		return line, true
	case b == '\r' || f.skipping:
		return nil, false
	case f.n >= MaxLineLen:
		f.n = 0
		f.overflows++
		f.skipping = true
		return nil, false
	}
	f.buf[f.n] = b
	f.n++
	return nil, false
}

// Pending returns the number of buffered bytes of the current line.
func (f *Framer) Pending() int {
	return f.n
}

// Overflows counts discarded over-long lines.
func (f *Framer) Overflows() int {
	return f.overflows
}

// Reset drops the partial line.
func (f *Framer) Reset() {
	f.n = 0
	f.skipping = false
}
