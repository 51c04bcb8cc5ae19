package classfile

import (
	"encoding/binary"
	"fmt"
)

// reader is a big-endian cursor. The first out-of-range read sets err and every later read
// returns zero.
type reader struct {
	b   []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || r.off+n > len(r.b) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d of %d", ErrTruncated, n, r.off, len(r.b))
		return nil
	}

	out := r.b[r.off : r.off+n]
	r.off += n

	return out
}

func (r *reader) u1() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint32(b)
}

func (r *reader) u8() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}

func (r *reader) rest() int {
	return len(r.b) - r.off
}

// done returns the first read error, or ErrMalformed when bytes are left over.
func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}

	if r.off != len(r.b) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.b)-r.off)
	}

	return nil
}

func appendU2(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU4(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}
