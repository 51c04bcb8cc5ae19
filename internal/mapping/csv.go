package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// NameEntry is one row of a searge-name to readable-name table.
type NameEntry struct {
	Key  string
	Name string
	Side string
	Desc string
}

// ReadNameTable parses a CSV name table ("searge,name,side,desc" for members,
// "param,name,side" for parameters). The first column is the lookup key.
func ReadNameTable(r io.Reader) ([]NameEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read name table header: %w", err)
	}

	nameCol := slices.Index(header, "name")
	if len(header) < 2 || nameCol < 1 {
		return nil, fmt.Errorf("%w: name table header %v", ErrUnsupportedFormat, header)
	}

	sideCol := slices.Index(header, "side")
	descCol := slices.Index(header, "desc")

	var out []NameEntry

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read name table: %w", err)
		}

		if len(rec) <= nameCol {
			continue
		}

		e := NameEntry{Key: rec[0], Name: rec[nameCol]}
		if sideCol >= 0 && sideCol < len(rec) {
			e.Side = rec[sideCol]
		}

		if descCol >= 0 && descCol < len(rec) {
			e.Desc = rec[descCol]
		}

		out = append(out, e)
	}
}
