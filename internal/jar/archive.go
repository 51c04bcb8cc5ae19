package jar

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"jarsmith/internal/common"
)

// ManifestPath is the entry name of the jar manifest.
const ManifestPath = "META-INF/MANIFEST.MF"

// ClassSuffix is the file extension of compiled classes.
const ClassSuffix = ".class"

// epoch is the modification time stamped on every written entry.
var epoch = time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)

// Archive is the content of a jar: entry names mapped to their uncompressed bytes. Directory
// entries are not kept.
type Archive struct {
	entries map[string][]byte
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{entries: make(map[string][]byte)}
}

// Read loads a jar from disk.
func Read(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat jar: %w", err)
	}

	a, err := ReadFrom(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return a, nil
}

// ReadFrom loads a jar from a reader.
func ReadFrom(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}

	a := New()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		a.entries[f.Name] = data
	}

	return a, nil
}

// ReadBytes loads a jar held in memory.
func ReadBytes(data []byte) (*Archive, error) {
	return ReadFrom(bytes.NewReader(data), int64(len(data)))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Names returns all entry names in sorted order.
func (a *Archive) Names() []string {
	return common.SortedKeys(a.entries)
}

// Classes returns the names of all class file entries in sorted order.
func (a *Archive) Classes() []string {
	var names []string

	for n := range a.entries {
		if IsClass(n) {
			names = append(names, n)
		}
	}

	slices.Sort(names)

	return names
}

// IsClass reports whether an entry name denotes a class file.
func IsClass(name string) bool {
	return strings.HasSuffix(name, ClassSuffix) && !strings.HasPrefix(name, "META-INF/")
}

// ClassName returns the internal class name of a class file entry.
func ClassName(entry string) string {
	if name, ok := common.ClassNameFromPath(entry); ok {
		return name
	}

	return entry
}

// EntryName returns the class file entry of an internal class name.
func EntryName(class string) string {
	return common.ClassFilePath(class)
}

// Get returns the bytes of an entry.
func (a *Archive) Get(name string) ([]byte, bool) {
	data, ok := a.entries[name]

	return data, ok
}

// Has reports whether an entry exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]

	return ok
}

// Put adds or replaces an entry.
func (a *Archive) Put(name string, data []byte) {
	a.entries[name] = data
}

// Delete removes an entry.
func (a *Archive) Delete(name string) {
	delete(a.entries, name)
}

// Clone returns a shallow copy; entry bytes are shared and must not be mutated.
func (a *Archive) Clone() *Archive {
	out := New()
	for n, d := range a.entries {
		out.entries[n] = d
	}

	return out
}

// WriteTo writes the archive as a zip stream.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	names := a.Names()
	if i := slices.Index(names, ManifestPath); i > 0 {
		names = append([]string{ManifestPath}, slices.Delete(names, i, i+1)...)
	}

	for _, name := range names {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: epoch}

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return cw.n, fmt.Errorf("failed to add %s: %w", name, err)
		}

		if _, err := fw.Write(a.entries[name]); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish zip: %w", err)
	}

	return cw.n, nil
}

// Write stores the archive at path. The file is written next to its destination and renamed
// into place, so path either keeps its previous content or holds the complete new archive.
func (a *Archive) Write(path string) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := a.WriteTo(w)
		return err
	})
}

// WriteAtomic creates the parent directory of path, streams fn's output into a temporary file
// and renames it to path.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
