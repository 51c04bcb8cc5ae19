package patch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ulikunitz/xz/lzma"

	"jarsmith/internal/common"
	"jarsmith/internal/jar"
)

// Sides of a legacy patch archive.
const (
	SideClient = "client"
	SideServer = "server"
)

const recordSuffix = ".binpatch"

// Set is the records of one side of a patch archive, keyed by the class file entry they
// produce.
type Set struct {
	Side    string
	records map[string]*Record
}

// NewSet returns an empty set.
func NewSet(side string) *Set {
	return &Set{Side: side, records: make(map[string]*Record)}
}

// Add stores a record under its target entry, replacing any previous one.
func (s *Set) Add(r *Record) {
	s.records[r.Entry()] = r
}

// Get returns the record producing entry.
func (s *Set) Get(entry string) (*Record, bool) {
	r, ok := s.records[entry]

	return r, ok
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.records)
}

// Entries returns the target entries of all records in sorted order.
func (s *Set) Entries() []string {
	return common.SortedKeys(s.records)
}

// LoadArchive reads one side of a legacy patch archive from disk.
func LoadArchive(path, side string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open patch archive: %w", err)
	}
	defer f.Close()

	set, err := ReadArchive(f, side)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return set, nil
}

// ReadArchive reads the records of one side of a legacy patch archive. The archive is a zip,
// optionally wrapped in an LZMA stream; records live at "binpatch/<side>/<name>.binpatch".
func ReadArchive(r io.Reader, side string) (*Set, error) {
	data, err := decompress(r)
	if err != nil {
		return nil, err
	}

	a, err := jar.ReadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch archive: %w", err)
	}

	set := NewSet(side)
	prefix := "binpatch/" + side + "/"

	for _, name := range a.Names() {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}

		body, _ := a.Get(name)

		rec, err := DecodeRecord(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		set.Add(rec)
	}

	return set, nil
}

// decompress returns the zip bytes of an archive, unwrapping LZMA when the stream does not
// start with a zip local file header.
func decompress(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(4)
	if err != nil && len(head) == 0 {
		return nil, fmt.Errorf("failed to read patch archive: %w", err)
	}

	if bytes.Equal(head, []byte("PK\x03\x04")) {
		return io.ReadAll(br)
	}

	lr, err := lzma.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to open lzma stream: %w", err)
	}

	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress patch archive: %w", err)
	}

	return data, nil
}

// WriteArchive writes sets as a legacy patch archive, LZMA-compressed when compress is set.
// Record file names are the record names.
func WriteArchive(w io.Writer, compress bool, sets ...*Set) error {
	a := jar.New()

	for _, set := range sets {
		for _, entry := range set.Entries() {
			rec := set.records[entry]

			data, err := rec.Encode()
			if err != nil {
				return fmt.Errorf("%s: %w", entry, err)
			}

			a.Put(path.Join("binpatch", set.Side, rec.Name+recordSuffix), data)
		}
	}

	if !compress {
		_, err := a.WriteTo(w)
		return err
	}

	lw, err := lzma.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to open lzma stream: %w", err)
	}

	if _, err := a.WriteTo(lw); err != nil {
		return err
	}

	if err := lw.Close(); err != nil {
		return fmt.Errorf("failed to finish lzma stream: %w", err)
	}

	return nil
}
