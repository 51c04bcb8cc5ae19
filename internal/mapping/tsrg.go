package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadTSRG parses a tsrg (v1 or v2) document. For v1 documents, which carry no header,
// fromNs and toNs name the two namespaces; v2 documents declare their own namespaces.
func ReadTSRG(r io.Reader, fromNs, toNs string) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxTinyLineLength)

	var (
		t      *Tree
		width  = 2
		class  *Class
		method *Method
		lineNo int
	)

	for sc.Scan() {
		lineNo++

		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if t == nil {
			var err error

			if rest, ok := strings.CutPrefix(line, "tsrg2 "); ok {
				ns := strings.Fields(rest)
				width = len(ns)

				if t, err = NewTree(ns...); err != nil {
					return nil, err
				}

				continue
			}

			if t, err = NewTree(fromNs, toNs); err != nil {
				return nil, err
			}
		}

		indent := 0
		for indent < len(line) && line[indent] == '\t' {
			indent++
		}

		cols := strings.Fields(line[indent:])

		switch indent {
		case 0:
			method = nil
			class = nil

			if len(cols) != width {
				return nil, fmt.Errorf("line %d: %w: class line needs %d names", lineNo, ErrUnsupportedFormat, width)
			}

			if strings.HasSuffix(cols[0], "/") {
				continue // package line
			}

			c, err := t.AddClass(cols[0], cols[1:]...)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}

			class = c
		case 1:
			method = nil

			if class == nil {
				return nil, fmt.Errorf("line %d: %w: member outside class", lineNo, ErrUnsupportedFormat)
			}

			switch {
			case len(cols) == width+1 && strings.HasPrefix(cols[1], "("):
				method = class.AddMethod(cols[0], cols[1], cols[2:]...)
			case len(cols) == width+1:
				class.AddField(cols[0], cols[1], cols[2:]...)
			case len(cols) == width:
				class.AddField(cols[0], "", cols[1:]...)
			default:
				return nil, fmt.Errorf("line %d: %w: malformed member line", lineNo, ErrUnsupportedFormat)
			}
		case 2:
			if method == nil || len(cols) != width+1 {
				continue // "static" markers and orphan parameters
			}

			idx, err := strconv.Atoi(cols[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: parameter index: %w", lineNo, err)
			}

			method.AddArg(idx, cols[1], cols[2:]...)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tsrg: %w", err)
	}

	if t == nil {
		return NewTree(fromNs, toNs)
	}

	return t, nil
}
