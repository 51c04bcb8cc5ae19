package mapping

import (
	"fmt"
	"strings"
)

// MapDesc rewrites every class name inside a field or method descriptor through fn,
// preserving primitive and array markers. Malformed class tokens are copied unchanged.
func MapDesc(desc string, fn func(string) string) string {
	if !strings.ContainsRune(desc, 'L') {
		return desc
	}

	var b strings.Builder

	b.Grow(len(desc))

	for i := 0; i < len(desc); i++ {
		c := desc[i]
		if c != 'L' {
			b.WriteByte(c)
			continue
		}

		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			b.WriteString(desc[i:])
			break
		}

		b.WriteByte('L')
		b.WriteString(fn(desc[i+1 : i+end]))
		b.WriteByte(';')
		i += end
	}

	return b.String()
}

// MapType maps an internal class name or, for array types, an array descriptor.
// It is the right function for CONSTANT_Class values.
func MapType(name string, fn func(string) string) string {
	if strings.HasPrefix(name, "[") {
		return MapDesc(name, fn)
	}

	return fn(name)
}

// ParseMethodDesc splits a method descriptor into parameter descriptors and return descriptor.
func ParseMethodDesc(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("invalid method descriptor %q", desc)
	}

	var args []string

	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("invalid method descriptor %q: %w", desc, err)
		}

		args = append(args, desc[i:i+n])
		i += n
	}

	if i >= len(desc) {
		return nil, "", fmt.Errorf("invalid method descriptor %q: missing ')'", desc)
	}

	ret := desc[i+1:]
	if ret == "" {
		return nil, "", fmt.Errorf("invalid method descriptor %q: missing return type", desc)
	}

	return args, ret, nil
}

// ArgSlots returns the number of local variable slots used by the parameters of a method
// descriptor, excluding the receiver.
func ArgSlots(desc string) (int, error) {
	args, _, err := ParseMethodDesc(desc)
	if err != nil {
		return 0, err
	}

	slots := 0
	for _, a := range args {
		slots += SlotSize(a)
	}

	return slots, nil
}

// SlotSize returns 2 for long and double descriptors and 1 otherwise.
func SlotSize(fieldDesc string) int {
	if fieldDesc == "J" || fieldDesc == "D" {
		return 2
	}

	return 1
}

func fieldDescLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}

	if i >= len(s) {
		return 0, fmt.Errorf("truncated array type")
	}

	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("unterminated class type")
		}

		return i + end + 1, nil
	default:
		return 0, fmt.Errorf("unexpected %q", s[i])
	}
}

// MapSignature rewrites class names inside a generic signature (class, method or field).
// Nested class suffixes ("Outer<TT;>.Inner") are mapped through their full binary name.
// A signature that cannot be parsed is returned unchanged.
func MapSignature(sig string, fn func(string) string) string {
	if !strings.ContainsRune(sig, 'L') {
		return sig
	}

	s := &sigScanner{src: sig, fn: fn}
	if s.signature() {
		return s.out.String()
	}

	return sig
}

type sigScanner struct {
	src string
	pos int
	out strings.Builder
	fn  func(string) string
}

func (s *sigScanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}

	return s.src[s.pos]
}

func (s *sigScanner) copyByte() {
	s.out.WriteByte(s.src[s.pos])
	s.pos++
}

func (s *sigScanner) signature() bool {
	if s.peek() == '<' && !s.formalTypeParams() {
		return false
	}

	for s.pos < len(s.src) {
		switch s.peek() {
		case '(', ')', '^':
			s.copyByte()
		default:
			if !s.typeSig() {
				return false
			}
		}
	}

	return true
}

func (s *sigScanner) formalTypeParams() bool {
	s.copyByte() // '<'

	for s.peek() != '>' {
		colon := strings.IndexByte(s.src[s.pos:], ':')
		if colon <= 0 {
			return false
		}

		s.out.WriteString(s.src[s.pos : s.pos+colon])
		s.pos += colon

		for s.peek() == ':' {
			s.copyByte()

			if c := s.peek(); c != ':' && c != '>' && c != 0 {
				if !s.typeSig() {
					return false
				}
			}
		}

		if s.pos >= len(s.src) {
			return false
		}
	}

	s.copyByte() // '>'

	return true
}

func (s *sigScanner) typeSig() bool {
	switch s.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V', '*':
		s.copyByte()
		return true
	case '[', '+', '-':
		s.copyByte()
		return s.typeSig()
	case 'T':
		end := strings.IndexByte(s.src[s.pos:], ';')
		if end < 0 {
			return false
		}

		s.out.WriteString(s.src[s.pos : s.pos+end+1])
		s.pos += end + 1

		return true
	case 'L':
		return s.classTypeSig()
	default:
		return false
	}
}

func (s *sigScanner) classTypeSig() bool {
	s.copyByte() // 'L'

	name := s.ident()
	if name == "" {
		return false
	}

	full := name
	mapped := s.fn(full)
	s.out.WriteString(mapped)

	for {
		switch s.peek() {
		case '<':
			if !s.typeArgs() {
				return false
			}
		case '.':
			s.copyByte()

			simple := s.ident()
			if simple == "" {
				return false
			}

			full += InnerClassSeparator + simple
			inner := s.fn(full)

			if prefix := mapped + InnerClassSeparator; strings.HasPrefix(inner, prefix) {
				s.out.WriteString(inner[len(prefix):])
			} else {
				s.out.WriteString(simple)
			}

			mapped = inner
		case ';':
			s.copyByte()
			return true
		default:
			return false
		}
	}
}

func (s *sigScanner) typeArgs() bool {
	s.copyByte() // '<'

	for s.peek() != '>' {
		if s.pos >= len(s.src) || !s.typeSig() {
			return false
		}
	}

	s.copyByte() // '>'

	return true
}

func (s *sigScanner) ident() string {
	start := s.pos
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '<', '.', ';':
			return s.src[start:s.pos]
		}

		s.pos++
	}

	return s.src[start:s.pos]
}
