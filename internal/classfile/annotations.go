package classfile

import "fmt"

// Annotation is a runtime annotation. Type indexes a UTF8 field descriptor.
type Annotation struct {
	Type     uint16
	Elements []ElementPair
}

// ElementPair is a named annotation element.
type ElementPair struct {
	Name  uint16
	Value ElementValue
}

// ElementValue is an annotation element value. Which fields are set depends on Tag:
//
//	B C D F I J S Z s   Const (pool constant)
//	c                   Const (UTF8 return descriptor)
//	e                   EnumType (UTF8 descriptor), EnumName (UTF8)
//	@                   Annotation
//	[                   Values
type ElementValue struct {
	Tag        byte
	Const      uint16
	EnumType   uint16
	EnumName   uint16
	Annotation *Annotation
	Values     []ElementValue
}

// DecodeAnnotations decodes a Runtime{Visible,Invisible}Annotations attribute.
func DecodeAnnotations(info []byte) ([]Annotation, error) {
	r := newReader(info)
	out := readAnnotations(r, int(r.u2()))

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}

	return out, nil
}

// EncodeAnnotations serializes a Runtime{Visible,Invisible}Annotations attribute.
func EncodeAnnotations(anns []Annotation) []byte {
	return appendAnnotations(appendU2(nil, uint16(len(anns))), anns)
}

// DecodeParameterAnnotations decodes a Runtime{Visible,Invisible}ParameterAnnotations
// attribute. The outer slice length is the stored num_parameters.
func DecodeParameterAnnotations(info []byte) ([][]Annotation, error) {
	r := newReader(info)

	out := make([][]Annotation, r.u1())
	for i := range out {
		out[i] = readAnnotations(r, int(r.u2()))
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("parameter annotations: %w", err)
	}

	return out, nil
}

// EncodeParameterAnnotations serializes a parameter annotations attribute.
func EncodeParameterAnnotations(params [][]Annotation) []byte {
	b := []byte{byte(len(params))}
	for _, anns := range params {
		b = appendAnnotations(appendU2(b, uint16(len(anns))), anns)
	}

	return b
}

// DecodeElementValue decodes an AnnotationDefault attribute.
func DecodeElementValue(info []byte) (ElementValue, error) {
	r := newReader(info)
	v := readElementValue(r, 0)

	if err := r.done(); err != nil {
		return ElementValue{}, fmt.Errorf("annotation default: %w", err)
	}

	return v, nil
}

// EncodeElementValue serializes an AnnotationDefault attribute.
func EncodeElementValue(v ElementValue) []byte {
	return appendElementValue(nil, v)
}

const maxAnnotationDepth = 64

func readAnnotations(r *reader, n int) []Annotation {
	if r.err != nil {
		return nil
	}

	out := make([]Annotation, 0, min(n, r.rest()/4))
	for range n {
		a := readAnnotation(r, 0)
		if r.err != nil {
			return nil
		}

		out = append(out, a)
	}

	return out
}

func readAnnotation(r *reader, depth int) Annotation {
	a := Annotation{Type: r.u2()}
	n := int(r.u2())

	for range n {
		if r.err != nil {
			break
		}

		a.Elements = append(a.Elements, ElementPair{Name: r.u2(), Value: readElementValue(r, depth+1)})
	}

	return a
}

func readElementValue(r *reader, depth int) ElementValue {
	if depth > maxAnnotationDepth && r.err == nil {
		r.err = fmt.Errorf("%w: annotation nesting deeper than %d", ErrMalformed, maxAnnotationDepth)
	}

	v := ElementValue{Tag: r.u1()}
	if r.err != nil {
		return v
	}

	switch v.Tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		v.Const = r.u2()
	case 'e':
		v.EnumType = r.u2()
		v.EnumName = r.u2()
	case '@':
		a := readAnnotation(r, depth)
		v.Annotation = &a
	case '[':
		n := int(r.u2())
		for range n {
			if r.err != nil {
				break
			}

			v.Values = append(v.Values, readElementValue(r, depth+1))
		}
	default:
		r.err = fmt.Errorf("%w: unknown element value tag %q", ErrMalformed, v.Tag)
	}

	return v
}

func appendAnnotations(b []byte, anns []Annotation) []byte {
	for i := range anns {
		b = appendAnnotation(b, &anns[i])
	}

	return b
}

func appendAnnotation(b []byte, a *Annotation) []byte {
	b = appendU2(b, a.Type)
	b = appendU2(b, uint16(len(a.Elements)))

	for _, e := range a.Elements {
		b = appendU2(b, e.Name)
		b = appendElementValue(b, e.Value)
	}

	return b
}

func appendElementValue(b []byte, v ElementValue) []byte {
	b = append(b, v.Tag)

	switch v.Tag {
	case 'e':
		b = appendU2(b, v.EnumType)
		b = appendU2(b, v.EnumName)
	case '@':
		b = appendAnnotation(b, v.Annotation)
	case '[':
		b = appendU2(b, uint16(len(v.Values)))
		for _, x := range v.Values {
			b = appendElementValue(b, x)
		}
	default:
		b = appendU2(b, v.Const)
	}

	return b
}
