package merge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"jarsmith/internal/diagnostic"
	"jarsmith/internal/mapping"
)

// Migration declares the new source-namespace descriptor of a field whose type changed.
type Migration struct {
	Owner string
	Name  string
	Desc  string
}

// MigrateFieldDescriptors rewrites the namespace-ns descriptor of every migrated field by
// translating each class name in the new descriptor through the tree. Field names are untouched.
// Migrations for fields the tree does not know are reported as warnings.
func MigrateFieldDescriptors(t *mapping.Tree, ns string, table []Migration) (int, *diagnostic.Diagnostics, error) {
	diags := &diagnostic.Diagnostics{}

	id := t.NamespaceID(ns)
	if id <= 0 {
		return 0, diags, fmt.Errorf("%w: %q is not a destination namespace of %v",
			ErrMissingNamespace, ns, t.Namespaces())
	}

	mapper := t.ClassMapper(0, id)
	migrated := 0

	for _, m := range table {
		f := t.Field(m.Owner, m.Name, "")
		if f == nil {
			diags.AddWarning(CodeUnknownField, "migrated field not in mappings", m.Owner, m.Name)
			continue
		}

		f.SetDesc(id, mapping.MapDesc(m.Desc, mapper))
		migrated++
	}

	return migrated, diags, nil
}

// ReadMigrationTable parses "owner name descriptor" lines. Blank lines and '#' comments are
// ignored.
func ReadMigrationTable(r io.Reader) ([]Migration, error) {
	sc := bufio.NewScanner(r)

	var (
		out    []Migration
		lineNo int
	)

	for sc.Scan() {
		lineNo++

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.Fields(line)
		if len(cols) != 3 {
			return nil, fmt.Errorf("line %d: %w: want owner, name and descriptor", lineNo, mapping.ErrUnsupportedFormat)
		}

		out = append(out, Migration{Owner: cols[0], Name: cols[1], Desc: cols[2]})
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migration table: %w", err)
	}

	return out, nil
}

// LoadMigrationTable reads a migration table file.
func LoadMigrationTable(path string) ([]Migration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration table %s: %w", path, err)
	}
	defer f.Close()

	return ReadMigrationTable(f)
}
