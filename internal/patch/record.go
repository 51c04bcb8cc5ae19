package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"
	"math"

	"jarsmith/internal/classfile"
	"jarsmith/internal/common"
	"jarsmith/internal/patch/gdiff"
)

// Record is one legacy class patch.
type Record struct {
	// Name is the class name as written in the patched jar.
	Name string
	// Source is the dotted name of the class the patch applies to.
	Source string
	// Target is the dotted name of the class the patch produces.
	Target string
	// Exists is false for classes the patch creates from nothing.
	Exists bool
	// Checksum is the Adler-32 of the clean class bytes. Only meaningful when Exists is set.
	Checksum uint32
	// Delta is the GDIFF delta.
	Delta []byte
}

// Entry returns the class file entry the record produces ("a/b/C.class").
func (r *Record) Entry() string {
	return common.ClassFilePath(common.InternalName(r.Target))
}

// SourceEntry returns the class file entry the record reads. Records without a source read
// their target.
func (r *Record) SourceEntry() string {
	if r.Source == "" {
		return r.Entry()
	}

	return common.ClassFilePath(common.InternalName(r.Source))
}

// Checksum returns the Adler-32 checksum used by the checksum gate.
func Checksum(data []byte) uint32 {
	return adler32.Checksum(data)
}

// Apply verifies the clean bytes against the recorded checksum and applies the delta. Records
// for new classes are applied to an empty source and skip the gate.
func (r *Record) Apply(clean []byte) ([]byte, error) {
	if !r.Exists {
		clean = nil
	} else if sum := Checksum(clean); sum != r.Checksum {
		return nil, &ChecksumMismatchError{Class: r.Entry(), Expected: r.Checksum, Actual: sum}
	}

	out, err := gdiff.Apply(clean, r.Delta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Entry(), err)
	}

	return out, nil
}

// DecodeRecord parses a record in the Java data stream layout: UTF name, source and target,
// boolean exists, int checksum (present iff exists), int length and the delta bytes.
func DecodeRecord(data []byte) (*Record, error) {
	d := decoder{r: bytes.NewReader(data)}

	rec := &Record{
		Name:   d.utf(),
		Source: d.utf(),
		Target: d.utf(),
		Exists: d.bool(),
	}

	if rec.Exists {
		rec.Checksum = uint32(d.int32())
	}

	n := d.int32()
	if d.err == nil && n < 0 {
		d.err = fmt.Errorf("%w: negative delta length %d", ErrMalformed, n)
	}

	rec.Delta = d.bytes(int(n))

	if d.err != nil {
		return nil, d.err
	}

	return rec, nil
}

// Encode serializes the record in the layout read by DecodeRecord.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer

	for _, s := range []string{r.Name, r.Source, r.Target} {
		enc := classfile.EncodeModifiedUTF8(s)
		if len(enc) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: name too long", ErrMalformed)
		}

		buf.Write(binary.BigEndian.AppendUint16(nil, uint16(len(enc))))
		buf.Write(enc)
	}

	if r.Exists {
		buf.WriteByte(1)
		buf.Write(binary.BigEndian.AppendUint32(nil, r.Checksum))
	} else {
		buf.WriteByte(0)
	}

	buf.Write(binary.BigEndian.AppendUint32(nil, uint32(len(r.Delta))))
	buf.Write(r.Delta)

	return buf.Bytes(), nil
}

type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n > d.r.Len() {
		d.err = fmt.Errorf("%w: %d bytes wanted, %d left", ErrMalformed, n, d.r.Len())
		return nil
	}

	out := make([]byte, n)
	_, _ = io.ReadFull(d.r, out)

	return out
}

func (d *decoder) utf() string {
	b := d.bytes(2)
	if d.err != nil {
		return ""
	}

	s, err := classfile.DecodeModifiedUTF8(d.bytes(int(binary.BigEndian.Uint16(b))))
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return s
}

func (d *decoder) bool() bool {
	b := d.bytes(1)

	return d.err == nil && b[0] != 0
}

func (d *decoder) int32() int32 {
	b := d.bytes(4)
	if d.err != nil {
		return 0
	}

	return int32(binary.BigEndian.Uint32(b))
}
