package patch

import (
	"fmt"
	"io"
	"strings"

	"jarsmith/internal/jar"
)

// RepackForConsole writes the records of set as a plain zip with one "<class path>.binpatch"
// entry per record, the layout the console patcher reads.
func RepackForConsole(w io.Writer, set *Set) error {
	a := jar.New()

	for _, entry := range set.Entries() {
		data, err := set.records[entry].Encode()
		if err != nil {
			return fmt.Errorf("%s: %w", entry, err)
		}

		a.Put(strings.TrimSuffix(entry, jar.ClassSuffix)+recordSuffix, data)
	}

	_, err := a.WriteTo(w)

	return err
}

// ReadConsoleBundle reads a bundle written by RepackForConsole.
func ReadConsoleBundle(data []byte, side string) (*Set, error) {
	a, err := jar.ReadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch bundle: %w", err)
	}

	set := NewSet(side)

	for _, name := range a.Names() {
		if !strings.HasSuffix(name, recordSuffix) {
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
