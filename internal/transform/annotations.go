package transform

import (
	"fmt"
	"strings"

	"jarsmith/internal/classfile"
	"jarsmith/internal/mapping"
)

var parameterAnnotationAttrs = []string{
	classfile.AttrRuntimeVisibleParameterAnnotations,
	classfile.AttrRuntimeInvisibleParameterAnnotations,
}

// FixConstructorParameterAnnotations recomputes the annotated parameter count of every
// constructor from its descriptor. When annotations are missing for leading synthetic
// parameters (enum name and ordinal, or the outer instance of an inner class) empty entries
// are inserted in front; other differences are padded or truncated at the end.
func FixConstructorParameterAnnotations() Transform {
	return func(c *classfile.Class, ctx *Context) (bool, error) {
		changed := false

		for _, m := range c.Methods {
			if c.MemberName(m) != "<init>" {
				continue
			}

			args, _, err := mapping.ParseMethodDesc(c.MemberDesc(m))
			if err != nil {
				return false, err
			}

			for _, attr := range parameterAnnotationAttrs {
				info, ok := m.Attributes.Get(c.Pool, attr)
				if !ok {
					continue
				}

				params, err := classfile.DecodeParameterAnnotations(info)
				if err != nil {
					return false, fmt.Errorf("constructor %s: %w", c.MemberDesc(m), err)
				}

				if len(params) == len(args) {
					continue
				}

				fixed := resizeParameterAnnotations(params, len(args), syntheticLeading(c, args))
				m.Attributes.Set(c.Pool, attr, classfile.EncodeParameterAnnotations(fixed))
				changed = true
			}
		}

		return changed, nil
	}
}

func resizeParameterAnnotations(params [][]classfile.Annotation, want, leading int) [][]classfile.Annotation {
	if missing := want - len(params); missing > 0 {
		out := make([][]classfile.Annotation, want)
		if missing == leading {
			copy(out[missing:], params)
		} else {
			copy(out, params)
		}

		return out
	}

	return params[:want]
}

// syntheticLeading returns the number of compiler-added leading constructor parameters.
func syntheticLeading(c *classfile.Class, args []string) int {
	if c.Access&classfile.AccEnum != 0 && len(args) >= 2 && args[0] == "Ljava/lang/String;" && args[1] == "I" {
		return 2
	}

	name := c.Name()
	if i := strings.LastIndex(name, mapping.InnerClassSeparator); i > 0 && len(args) >= 1 && args[0] == "L"+name[:i]+";" {
		return 1
	}

	return 0
}

// Side is the platform side a class or member is restricted to.
type Side int

const (
	SideClient Side = iota
	SideServer
)

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}

	return "client"
}

// SideVocabulary describes one side marker annotation: its type, the enum type of its value
// element and the enum constants naming each side.
type SideVocabulary struct {
	Annotation string
	Enum       string
	Client     string
	Server     string
}

// Known side annotation vocabularies.
var (
	FabricSides = SideVocabulary{
		Annotation: "Lnet/fabricmc/api/Environment;",
		Enum:       "Lnet/fabricmc/api/EnvType;",
		Client:     "CLIENT",
		Server:     "SERVER",
	}
	ForgeSides = SideVocabulary{
		Annotation: "Lnet/minecraftforge/api/distmarker/OnlyIn;",
		Enum:       "Lnet/minecraftforge/api/distmarker/Dist;",
		Client:     "CLIENT",
		Server:     "DEDICATED_SERVER",
	}
	LegacyForgeSides = SideVocabulary{
		Annotation: "Lnet/minecraftforge/fml/relauncher/SideOnly;",
		Enum:       "Lnet/minecraftforge/fml/relauncher/Side;",
		Client:     "CLIENT",
		Server:     "SERVER",
	}
)

func (v SideVocabulary) constant(s Side) string {
	if s == SideServer {
		return v.Server
	}

	return v.Client
}

// side returns the side named by an annotation of this vocabulary.
func (v SideVocabulary) side(cp *classfile.ConstantPool, a *classfile.Annotation) (Side, bool) {
	for _, e := range a.Elements {
		if cp.UTF8(e.Name) != "value" || e.Value.Tag != 'e' {
			continue
		}

		switch cp.UTF8(e.Value.EnumName) {
		case v.Client:
			return SideClient, true
		case v.Server:
			return SideServer, true
		}
	}

	return SideClient, false
}

func (v SideVocabulary) annotation(cp *classfile.ConstantPool, s Side) classfile.Annotation {
	return classfile.Annotation{
		Type: cp.AddUTF8(v.Annotation),
		Elements: []classfile.ElementPair{{
			Name: cp.AddUTF8("value"),
			Value: classfile.ElementValue{
				Tag:      'e',
				EnumType: cp.AddUTF8(v.Enum),
				EnumName: cp.AddUTF8(v.constant(s)),
			},
		}},
	}
}

// MergeSideAnnotations keeps the first side annotation of a class, field or method from any of
// the vocabularies, rewrites it into the canonical vocabulary and drops the others. Running it
// twice yields the same single annotation.
func MergeSideAnnotations(canonical SideVocabulary, alternates ...SideVocabulary) Transform {
	vocabs := append([]SideVocabulary{canonical}, alternates...)

	return func(c *classfile.Class, _ *Context) (bool, error) {
		changed, err := mergeSides(c, &c.Attributes, canonical, vocabs)
		if err != nil {
			return false, fmt.Errorf("class %s: %w", c.Name(), err)
		}

		membersChanged, err := eachMember(c, func(m *classfile.Member, _ bool) (bool, error) {
			return mergeSides(c, &m.Attributes, canonical, vocabs)
		})

		return changed || membersChanged, err
	}
}

func mergeSides(c *classfile.Class, attrs *classfile.Attributes, canonical SideVocabulary, vocabs []SideVocabulary) (bool, error) {
	found := false
	changed := false

	// Runtime-visible annotations are visited first, so a visible marker wins over an
	// invisible one.
	for _, attr := range []string{classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations} {
		info, ok := attrs.Get(c.Pool, attr)
		if !ok {
			continue
		}

		anns, err := classfile.DecodeAnnotations(info)
		if err != nil {
			return false, err
		}

		kept := anns[:0]
		edited := false

		for _, a := range anns {
			typ := c.Pool.UTF8(a.Type)

			i := vocabIndex(vocabs, typ)
			if i < 0 {
				kept = append(kept, a)
				continue
			}

			if found {
				edited = true
				continue
			}

			found = true

			side, ok := vocabs[i].side(c.Pool, &a)
			if !ok {
				kept = append(kept, a)
				continue
			}

			if i == 0 && attr == classfile.AttrRuntimeVisibleAnnotations {
				kept = append(kept, a)
				continue
			}

			if attr == classfile.AttrRuntimeVisibleAnnotations {
				kept = append(kept, canonical.annotation(c.Pool, side))
			} else {
				addVisible(c, attrs, canonical.annotation(c.Pool, side))
			}

			edited = true
		}

		if !edited {
			continue
		}

		changed = true

		if len(kept) == 0 {
			attrs.Remove(c.Pool, attr)
		} else {
			attrs.Set(c.Pool, attr, classfile.EncodeAnnotations(kept))
		}
	}

	return changed, nil
}

func vocabIndex(vocabs []SideVocabulary, typ string) int {
	for i, v := range vocabs {
		if v.Annotation == typ {
			return i
		}
	}

	return -1
}

func addVisible(c *classfile.Class, attrs *classfile.Attributes, a classfile.Annotation) {
	var anns []classfile.Annotation

	if info, ok := attrs.Get(c.Pool, classfile.AttrRuntimeVisibleAnnotations); ok {
		// attributes written by this package decode cleanly
		anns, _ = classfile.DecodeAnnotations(info)
	}

	attrs.Set(c.Pool, classfile.AttrRuntimeVisibleAnnotations, classfile.EncodeAnnotations(append(anns, a)))
}

// AddSideAnnotation marks a class or member as restricted to one side, unless it already
// carries a side annotation of the vocabulary.
func AddSideAnnotation(c *classfile.Class, attrs *classfile.Attributes, v SideVocabulary, s Side) error {
	if info, ok := attrs.Get(c.Pool, classfile.AttrRuntimeVisibleAnnotations); ok {
		anns, err := classfile.DecodeAnnotations(info)
		if err != nil {
			return err
		}

		for _, a := range anns {
			if c.Pool.UTF8(a.Type) == v.Annotation {
				return nil
			}
		}
	}

	addVisible(c, attrs, v.annotation(c.Pool, s))

	return nil
}

// SideOf returns the side named by a side annotation of the vocabulary, if any.
func SideOf(c *classfile.Class, attrs classfile.Attributes, v SideVocabulary) (Side, bool) {
	info, ok := attrs.Get(c.Pool, classfile.AttrRuntimeVisibleAnnotations)
	if !ok {
		return SideClient, false
	}

	anns, err := classfile.DecodeAnnotations(info)
	if err != nil {
		return SideClient, false
	}

	for i := range anns {
		if c.Pool.UTF8(anns[i].Type) == v.Annotation {
			return v.side(c.Pool, &anns[i])
		}
	}

	return SideClient, false
}
