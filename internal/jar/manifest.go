package jar

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Manifest attribute names.
const (
	AttrManifestVersion = "Manifest-Version"
	// AttrVersionTag carries the fingerprint of the pipeline stage that produced the jar.
	AttrVersionTag = "Version-Tag"
)

const manifestLineLength = 72

// Attribute is one "Name: value" manifest line.
type Attribute struct {
	Name  string
	Value string
}

// Manifest holds the main section of a jar manifest. Per-entry sections are kept verbatim.
type Manifest struct {
	Main     []Attribute
	Sections string
}

// NewManifest returns a manifest with only the manifest version set.
func NewManifest() *Manifest {
	return &Manifest{Main: []Attribute{{Name: AttrManifestVersion, Value: "1.0"}}}
}

// ParseManifest parses manifest bytes. Continuation lines (starting with a space) are joined.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	main, rest, _ := strings.Cut(text, "\n\n")
	m.Sections = strings.TrimLeft(rest, "\n")

	sc := bufio.NewScanner(strings.NewReader(main))

	for sc.Scan() {
		line := sc.Text()

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, " "):
			if len(m.Main) == 0 {
				return nil, fmt.Errorf("manifest continuation without attribute: %q", line)
			}

			m.Main[len(m.Main)-1].Value += line[1:]
		default:
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("malformed manifest line: %q", line)
			}

			m.Main = append(m.Main, Attribute{Name: name, Value: strings.TrimPrefix(value, " ")})
		}
	}

	return m, sc.Err()
}

// Get returns the value of a main attribute.
func (m *Manifest) Get(name string) (string, bool) {
	for _, a := range m.Main {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}

	return "", false
}

// Set replaces or appends a main attribute.
func (m *Manifest) Set(name, value string) {
	for i := range m.Main {
		if strings.EqualFold(m.Main[i].Name, name) {
			m.Main[i].Value = value
			return
		}
	}

	m.Main = append(m.Main, Attribute{Name: name, Value: value})
}

// Bytes serializes the manifest with CRLF line endings and 72-byte line wrapping.
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer

	for _, a := range m.Main {
		writeWrapped(&buf, a.Name+": "+a.Value)
	}

	buf.WriteString("\r\n")

	if m.Sections != "" {
		buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Sections, "\r\n", "\n"), "\n", "\r\n"))
	}

	return buf.Bytes()
}

func writeWrapped(buf *bytes.Buffer, line string) {
	limit := manifestLineLength

	for len(line) > limit {
		buf.WriteString(line[:limit])
		buf.WriteString("\r\n ")
		line = line[limit:]
		limit = manifestLineLength - 1
	}

	buf.WriteString(line)
	buf.WriteString("\r\n")
}

// Manifest returns the parsed manifest, or a fresh one when the archive has none.
func (a *Archive) Manifest() (*Manifest, error) {
	data, ok := a.entries[ManifestPath]
	if !ok {
		return NewManifest(), nil
	}

	return ParseManifest(data)
}

// SetManifest stores m as the archive's manifest.
func (a *Archive) SetManifest(m *Manifest) {
	a.entries[ManifestPath] = m.Bytes()
}

// Tag returns the Version-Tag attribute of the manifest.
func (a *Archive) Tag() (string, error) {
	m, err := a.Manifest()
	if err != nil {
		return "", err
	}

	tag, _ := m.Get(AttrVersionTag)

	return tag, nil
}

// SetTag stores a Version-Tag attribute in the manifest.
func (a *Archive) SetTag(tag string) error {
	m, err := a.Manifest()
	if err != nil {
		return err
	}

	m.Set(AttrVersionTag, tag)
	a.SetManifest(m)

	return nil
}

// ReadTag returns the Version-Tag of the jar at path without loading any other entry.
func ReadTag(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open jar: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != ManifestPath {
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			return "", fmt.Errorf("failed to read manifest: %w", err)
		}

		m, err := ParseManifest(data)
		if err != nil {
			return "", err
		}

		tag, _ := m.Get(AttrVersionTag)

		return tag, nil
	}

	return "", nil
}
