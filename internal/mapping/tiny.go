package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	tinyMagic         = "tiny"
	tinyMajor         = "2"
	propEscapedNames  = "escaped-names"
	descOverrideLine  = "d"
	maxTinyLineLength = 16 << 20
)

// Read parses a tiny v2 mapping document.
func Read(r io.Reader) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxTinyLineLength)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read mapping header: %w", err)
		}

		return nil, fmt.Errorf("%w: empty document", ErrUnsupportedFormat)
	}

	header := strings.Split(strings.TrimSuffix(sc.Text(), "\r"), "\t")
	if len(header) < 5 || header[0] != tinyMagic {
		return nil, fmt.Errorf("%w: not a tiny header: %q", ErrUnsupportedFormat, sc.Text())
	}

	if header[1] != tinyMajor {
		return nil, fmt.Errorf("%w: tiny version %s.%s", ErrUnsupportedFormat, header[1], header[2])
	}

	t := &Tree{}
	if err := t.SetNamespaces(header[3:]); err != nil {
		return nil, err
	}

	p := tinyParser{tree: t, width: len(header) - 3}

	lineNo := 1
	for sc.Scan() {
		lineNo++

		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}

		if err := p.line(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}

	return t, nil
}

type tinyParser struct {
	tree    *Tree
	width   int
	escaped bool
	inBody  bool

	class  *Class
	member *member
	method *Method
	arg    *MethodArg
	mvar   *MethodVar
}

func (p *tinyParser) line(line string) error {
	indent := 0
	for indent < len(line) && line[indent] == '\t' {
		indent++
	}

	cols := strings.Split(line[indent:], "\t")

	if !p.inBody && indent == 1 {
		value := ""
		if len(cols) > 1 {
			value = cols[1]
		}

		p.tree.SetProperty(cols[0], value)
		p.escaped = p.escaped || cols[0] == propEscapedNames

		return nil
	}

	p.inBody = true

	switch indent {
	case 0:
		return p.classLine(cols)
	case 1:
		return p.memberLine(cols)
	case 2:
		return p.innerLine(cols)
	case 3:
		if cols[0] == "c" && len(cols) > 1 {
			comment := unescape(cols[1])
			switch {
			case p.arg != nil:
				p.arg.Comment = comment
			case p.mvar != nil:
				p.mvar.Comment = comment
			}
		}

		return nil
	default:
		return nil
	}
}

func (p *tinyParser) classLine(cols []string) error {
	p.class, p.member, p.method, p.arg, p.mvar = nil, nil, nil, nil, nil

	if cols[0] != "c" {
		return nil // unknown top-level section
	}

	names, err := p.names(cols[1:])
	if err != nil {
		return fmt.Errorf("class: %w", err)
	}

	c, err := p.tree.AddClass(names[0], names[1:]...)
	if err != nil {
		return err
	}

	p.class = c

	return nil
}

func (p *tinyParser) memberLine(cols []string) error {
	p.member, p.method, p.arg, p.mvar = nil, nil, nil, nil

	if p.class == nil {
		return nil
	}

	switch cols[0] {
	case "f", "m":
		if len(cols) < 3 {
			return fmt.Errorf("%w: short member line", ErrUnsupportedFormat)
		}

		names, err := p.names(cols[2:])
		if err != nil {
			return fmt.Errorf("member: %w", err)
		}

		if cols[0] == "f" {
			f := p.class.AddField(names[0], cols[1], names[1:]...)
			p.member = &f.member
		} else {
			m := p.class.AddMethod(names[0], cols[1], names[1:]...)
			p.member = &m.member
			p.method = m
		}
	case "c":
		if len(cols) > 1 {
			p.class.Comment = unescape(cols[1])
		}
	}

	return nil
}

func (p *tinyParser) innerLine(cols []string) error {
	p.arg, p.mvar = nil, nil

	switch cols[0] {
	case "c":
		if p.member != nil && len(cols) > 1 {
			p.member.Comment = unescape(cols[1])
		}
	case descOverrideLine:
		if p.member == nil {
			return nil
		}

		if len(cols) < 3 {
			return fmt.Errorf("%w: short descriptor line", ErrUnsupportedFormat)
		}

		ns, err := p.tree.Namespace(cols[1])
		if err != nil {
			return fmt.Errorf("descriptor: %w", err)
		}

		if ns == 0 {
			return fmt.Errorf("%w: descriptor override for the source namespace", ErrUnsupportedFormat)
		}

		p.member.SetDesc(ns, cols[2])
	case "p":
		if p.method == nil {
			return nil
		}

		if len(cols) < 3 {
			return fmt.Errorf("%w: short parameter line", ErrUnsupportedFormat)
		}

		lv, err := strconv.Atoi(cols[1])
		if err != nil {
			return fmt.Errorf("parameter index: %w", err)
		}

		names, err := p.names(cols[2:])
		if err != nil {
			return fmt.Errorf("parameter: %w", err)
		}

		p.arg = p.method.AddArg(lv, names[0], names[1:]...)
	case "v":
		if p.method == nil {
			return nil
		}

		if len(cols) < 5 {
			return fmt.Errorf("%w: short variable line", ErrUnsupportedFormat)
		}

		nums := make([]int, 3)
		for i := range nums {
			n, err := strconv.Atoi(cols[1+i])
			if err != nil {
				return fmt.Errorf("variable: %w", err)
			}

			nums[i] = n
		}

		names, err := p.names(cols[4:])
		if err != nil {
			return fmt.Errorf("variable: %w", err)
		}

		p.mvar = p.method.AddVar(nums[0], nums[1], nums[2], names[0], names[1:]...)
	}

	return nil
}

// names pads or validates a namespace column group.
func (p *tinyParser) names(cols []string) ([]string, error) {
	if len(cols) > p.width {
		return nil, fmt.Errorf("%w: %d names for %d namespaces", ErrUnsupportedFormat, len(cols), p.width)
	}

	out := make([]string, p.width)
	for i, c := range cols {
		if p.escaped {
			c = unescape(c)
		}

		out[i] = c
	}

	return out, nil
}

// Write serializes a tree as a tiny v2 document.
func Write(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	_, escaped := t.Property(propEscapedNames)

	name := func(s string) string {
		if escaped {
			return escape(s)
		}

		return s
	}

	row := func(n *names) string {
		parts := make([]string, len(t.namespaces))
		parts[0] = name(n.src)

		for ns := 1; ns < len(t.namespaces); ns++ {
			parts[ns] = name(n.DstName(ns))
		}

		return strings.Join(parts, "\t")
	}

	// Explicit descriptors, one "d <namespace> <desc>" line each; other tiny readers skip them.
	overrides := func(m *member) {
		for ns := 1; ns < len(t.namespaces); ns++ {
			if d := m.descOverride(ns); d != "" {
				fmt.Fprintf(bw, "\t\t%s\t%s\t%s\n", descOverrideLine, t.namespaces[ns], d)
			}
		}
	}

	fmt.Fprintf(bw, "%s\t%s\t0\t%s\n", tinyMagic, tinyMajor, strings.Join(t.namespaces, "\t"))

	for _, prop := range t.properties {
		if prop.Value == "" {
			fmt.Fprintf(bw, "\t%s\n", prop.Key)
		} else {
			fmt.Fprintf(bw, "\t%s\t%s\n", prop.Key, prop.Value)
		}
	}

	for _, c := range t.classes {
		fmt.Fprintf(bw, "c\t%s\n", row(&c.names))

		if c.Comment != "" {
			fmt.Fprintf(bw, "\tc\t%s\n", escape(c.Comment))
		}

		for _, f := range c.fields {
			fmt.Fprintf(bw, "\tf\t%s\t%s\n", f.srcDesc, row(&f.names))

			if f.Comment != "" {
				fmt.Fprintf(bw, "\t\tc\t%s\n", escape(f.Comment))
			}

			overrides(&f.member)
		}

		for _, m := range c.methods {
			fmt.Fprintf(bw, "\tm\t%s\t%s\n", m.srcDesc, row(&m.names))

			if m.Comment != "" {
				fmt.Fprintf(bw, "\t\tc\t%s\n", escape(m.Comment))
			}

			overrides(&m.member)

			for _, a := range m.args {
				fmt.Fprintf(bw, "\t\tp\t%d\t%s\n", a.LvIndex, row(&a.names))

				if a.Comment != "" {
					fmt.Fprintf(bw, "\t\t\tc\t%s\n", escape(a.Comment))
				}
			}

			for _, v := range m.vars {
				fmt.Fprintf(bw, "\t\tv\t%d\t%d\t%d\t%s\n", v.LvIndex, v.StartOffset, v.LvtIndex, row(&v.names))

				if v.Comment != "" {
					fmt.Fprintf(bw, "\t\t\tc\t%s\n", escape(v.Comment))
				}
			}
		}
	}

	return bw.Flush()
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "\x00", `\0`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t", `\0`, "\x00")
)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	return unescaper.Replace(s)
}
