// Package gdiff applies and writes deltas in the GDIFF format (W3C NOTE-gdiff-19970901), version
// 4, as used by legacy binary patch archives.
//
// A delta is the magic 0xD1FFD1FF, a version byte and a stream of commands. Commands 1 to 246
// append that many literal bytes; 247 and 248 append literal runs with a 16-bit or 32-bit
// length; 249 to 255 copy a range of the source with 16, 32 or 64-bit offsets and 8, 16 or
// 32-bit lengths; 0 ends the delta.
package gdiff

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Magic starts every GDIFF delta.
const Magic = 0xD1FFD1FF

// Version is the only supported format version.
const Version = 4

const (
	cmdEOF            = 0
	maxInlineData     = 246
	cmdDataUshort     = 247
	cmdDataInt        = 248
	cmdCopyUshortByte = 249
	cmdCopyUshortUs   = 250
	cmdCopyUshortInt  = 251
	cmdCopyIntUbyte   = 252
	cmdCopyIntUshort  = 253
	cmdCopyIntInt     = 254
	cmdCopyLongInt    = 255
)

var (
	// ErrFormat is returned for deltas that are not GDIFF version 4.
	ErrFormat = errors.New("not a gdiff v4 delta")
	// ErrCorrupt is returned for deltas whose commands do not fit the source or end early.
	ErrCorrupt = errors.New("corrupt gdiff delta")
)

// Apply reconstructs the target of a delta from its source.
func Apply(source, delta []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := ApplyTo(&out, source, bytes.NewReader(delta)); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// ApplyTo streams the target of a delta into w.
func ApplyTo(w io.Writer, source []byte, delta io.Reader) error {
	r := bufio.NewReader(delta)

	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("%w: short header", ErrFormat)
	}

	if binary.BigEndian.Uint32(header[:4]) != Magic || header[4] != Version {
		return fmt.Errorf("%w: header %x", ErrFormat, header)
	}

	for {
		cmd, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: missing end of delta", ErrCorrupt)
		}

		switch {
		case cmd == cmdEOF:
			return nil
		case cmd <= maxInlineData:
			err = copyData(w, r, int64(cmd))
		case cmd == cmdDataUshort:
			err = dataCommand(w, r, 2)
		case cmd == cmdDataInt:
			err = dataCommand(w, r, 4)
		default:
			err = copyCommand(w, r, source, cmd)
		}

		if err != nil {
			return err
		}
	}
}

func dataCommand(w io.Writer, r io.Reader, width int) error {
	n, err := readUint(r, width)
	if err != nil {
		return err
	}

	return copyData(w, r, int64(n))
}

func copyData(w io.Writer, r io.Reader, n int64) error {
	copied, err := io.CopyN(w, r, n)
	if err != nil && copied < n {
		return fmt.Errorf("%w: literal run of %d bytes ends after %d", ErrCorrupt, n, copied)
	}

	return err
}

var copyWidths = map[byte][2]int{
	cmdCopyUshortByte: {2, 1},
	cmdCopyUshortUs:   {2, 2},
	cmdCopyUshortInt:  {2, 4},
	cmdCopyIntUbyte:   {4, 1},
	cmdCopyIntUshort:  {4, 2},
	cmdCopyIntInt:     {4, 4},
	cmdCopyLongInt:    {8, 4},
}

func copyCommand(w io.Writer, r io.Reader, source []byte, cmd byte) error {
	widths := copyWidths[cmd]

	offset, err := readUint(r, widths[0])
	if err != nil {
		return err
	}

	length, err := readUint(r, widths[1])
	if err != nil {
		return err
	}

	if offset > uint64(len(source)) || length > uint64(len(source))-offset {
		return fmt.Errorf("%w: copy of %d bytes at %d from a %d-byte source", ErrCorrupt, length, offset, len(source))
	}

	_, err = w.Write(source[offset : offset+length])

	return err
}

func readUint(r io.Reader, width int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:width]); err != nil {
		return 0, fmt.Errorf("%w: truncated command", ErrCorrupt)
	}

	switch width {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf[:2])), nil
	case 4:
		// Java writes these as signed ints; negative values are invalid.
		v := int32(binary.BigEndian.Uint32(buf[:4]))
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrCorrupt, v)
		}

		return uint64(v), nil
	default:
		v := int64(binary.BigEndian.Uint64(buf[:8]))
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrCorrupt, v)
		}

		return uint64(v), nil
	}
}

// Writer encodes a delta command by command, choosing the smallest encoding for each.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns a writer with the header already written.
func NewWriter() *Writer {
	w := &Writer{}
	w.buf.Write(binary.BigEndian.AppendUint32(nil, Magic))
	w.buf.WriteByte(Version)

	return w
}

// Data appends literal bytes.
func (w *Writer) Data(p []byte) {
	for len(p) > 0 {
		chunk := p
		if len(chunk) > math.MaxInt32 {
			chunk = chunk[:math.MaxInt32]
		}

		switch n := len(chunk); {
		case n <= maxInlineData:
			w.buf.WriteByte(byte(n))
		case n <= math.MaxUint16:
			w.buf.WriteByte(cmdDataUshort)
			w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(n)))
		default:
			w.buf.WriteByte(cmdDataInt)
			w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(n)))
		}

		w.buf.Write(chunk)
		p = p[len(chunk):]
	}
}

// Copy appends a copy of length source bytes starting at offset.
func (w *Writer) Copy(offset int64, length int32) {
	switch {
	case offset <= math.MaxUint16 && length <= math.MaxUint8:
		w.buf.WriteByte(cmdCopyUshortByte)
		w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(offset)))
		w.buf.WriteByte(byte(length))
	case offset <= math.MaxUint16 && length <= math.MaxUint16:
		w.buf.WriteByte(cmdCopyUshortUs)
		w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(offset)))
		w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(length)))
	case offset <= math.MaxUint16:
		w.buf.WriteByte(cmdCopyUshortInt)
		w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(offset)))
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(length)))
	case offset <= math.MaxInt32 && length <= math.MaxUint8:
		w.buf.WriteByte(cmdCopyIntUbyte)
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(offset)))
		w.buf.WriteByte(byte(length))
	case offset <= math.MaxInt32 && length <= math.MaxUint16:
		w.buf.WriteByte(cmdCopyIntUshort)
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(offset)))
		w.buf.Write(binary.BigEndian.AppendUint16(nil, uint16(length)))
	case offset <= math.MaxInt32:
		w.buf.WriteByte(cmdCopyIntInt)
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(offset)))
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(length)))
	default:
		w.buf.WriteByte(cmdCopyLongInt)
		w.buf.Write(binary.BigEndian.AppendUint64(nil, uint64(offset)))
		w.buf.Write(binary.BigEndian.AppendUint32(nil, uint32(length)))
	}
}

// Bytes terminates the delta and returns it. The writer must not be used afterwards.
func (w *Writer) Bytes() []byte {
	w.buf.WriteByte(cmdEOF)

	return w.buf.Bytes()
}
