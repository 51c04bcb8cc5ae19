package mapping

import (
	"bytes"
	"fmt"
	"os"
)

// LoadFile loads and parses a tiny v2 mapping file from the given path.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	t, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	return t, nil
}

// LoadTSRGFile loads a tsrg file, naming the namespaces of headerless (v1) documents.
func LoadTSRGFile(path, fromNs, toNs string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadTSRG(f, fromNs, toNs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	return t, nil
}

// LoadNameTableFile loads a CSV name table.
func LoadNameTableFile(path string) ([]NameEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read name table %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadNameTable(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse name table %s: %w", path, err)
	}

	return entries, nil
}

// Marshal serializes a tree to tiny v2 bytes.
func Marshal(t *Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile writes a tree to the given path in tiny v2 format.
func WriteFile(t *Tree, path string) error {
	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal mappings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mapping file %s: %w", path, err)
	}

	return nil
}
