package classfile

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Relocator copies members and attributes from one class into another, interning every
// constant they reference in the destination pool and appending the bootstrap methods they
// need. Attributes that cannot be relocated safely (type annotations and unknown attributes)
// are dropped.
type Relocator struct {
	// RenameMethod, when set, may redirect method references. It receives a reference as it
	// appears in the source class and returns a replacement name, or "" to keep the name.
	RenameMethod func(owner, name, desc string) string

	src *Class
	dst *Class

	memo       map[uint16]uint16
	srcBSM     []BootstrapMethod
	dstBSM     []BootstrapMethod
	bsmMemo    map[uint16]uint16
	bsmChanged bool
}

// NewRelocator prepares relocation from src into dst.
func NewRelocator(src, dst *Class) (*Relocator, error) {
	r := &Relocator{
		src:     src,
		dst:     dst,
		memo:    make(map[uint16]uint16),
		bsmMemo: make(map[uint16]uint16),
	}

	var err error

	if info, ok := src.Attributes.Get(src.Pool, AttrBootstrapMethods); ok {
		if r.srcBSM, err = DecodeBootstrapMethods(info); err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name(), err)
		}
	}

	if info, ok := dst.Attributes.Get(dst.Pool, AttrBootstrapMethods); ok {
		if r.dstBSM, err = DecodeBootstrapMethods(info); err != nil {
			return nil, fmt.Errorf("destination %s: %w", dst.Name(), err)
		}
	}

	return r, nil
}

// Constant returns the destination index of source constant i. Index 0 maps to 0.
func (r *Relocator) Constant(i uint16) (uint16, error) {
	if i == 0 {
		return 0, nil
	}

	if j, ok := r.memo[i]; ok {
		return j, nil
	}

	c := r.src.Pool.Get(i)

	var err error

	switch c.Tag {
	case TagUTF8, TagInteger, TagFloat, TagLong, TagDouble:
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		c.A, err = r.Constant(c.A)
	case TagMethodref, TagInterfaceMethodref:
		if r.RenameMethod != nil {
			owner, name, desc := r.src.Pool.MemberRef(i)
			if renamed := r.RenameMethod(owner, name, desc); renamed != "" && renamed != name {
				return r.intern(i, r.dst.Pool.AddMemberRef(c.Tag, owner, renamed, desc))
			}
		}

		c, err = r.pair(c)
	case TagFieldref, TagNameAndType:
		c, err = r.pair(c)
	case TagMethodHandle:
		c.A, err = r.Constant(c.A)
	case TagDynamic, TagInvokeDynamic:
		if c.A, err = r.bootstrap(c.A); err == nil {
			c.B, err = r.Constant(c.B)
		}
	default:
		err = fmt.Errorf("%w: pool index %d has tag %d", ErrMalformed, i, c.Tag)
	}

	if err != nil {
		return 0, err
	}

	return r.intern(i, r.dst.Pool.Add(c))
}

func (r *Relocator) intern(i, j uint16) (uint16, error) {
	if j == 0 {
		return 0, fmt.Errorf("%w: relocating into %s", ErrPoolOverflow, r.dst.Name())
	}

	r.memo[i] = j

	return j, nil
}

func (r *Relocator) pair(c Constant) (Constant, error) {
	var err error

	if c.A, err = r.Constant(c.A); err != nil {
		return c, err
	}

	c.B, err = r.Constant(c.B)

	return c, err
}

func (r *Relocator) bootstrap(idx uint16) (uint16, error) {
	if j, ok := r.bsmMemo[idx]; ok {
		return j, nil
	}

	if int(idx) >= len(r.srcBSM) {
		return 0, fmt.Errorf("%w: bootstrap method %d of %d", ErrMalformed, idx, len(r.srcBSM))
	}

	bm := r.srcBSM[idx]

	ref, err := r.Constant(bm.MethodRef)
	if err != nil {
		return 0, err
	}

	args := make([]uint16, len(bm.Args))
	for k, a := range bm.Args {
		if args[k], err = r.Constant(a); err != nil {
			return 0, err
		}
	}

	j := slices.IndexFunc(r.dstBSM, func(have BootstrapMethod) bool {
		return have.MethodRef == ref && slices.Equal(have.Args, args)
	})

	if j < 0 {
		j = len(r.dstBSM)
		r.dstBSM = append(r.dstBSM, BootstrapMethod{MethodRef: ref, Args: args})
		r.bsmChanged = true
	}

	r.bsmMemo[idx] = uint16(j)

	return uint16(j), nil
}

// Member relocates a field or method declaration under a new name. An empty name keeps the
// source name.
func (r *Relocator) Member(m *Member, name string) (*Member, error) {
	if name == "" {
		name = r.src.MemberName(m)
	}

	attrs, err := r.Attributes(m.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", r.src.Name(), name, err)
	}

	return &Member{
		Access:     m.Access,
		NameIndex:  r.dst.Pool.AddUTF8(name),
		DescIndex:  r.dst.Pool.AddUTF8(r.src.MemberDesc(m)),
		Attributes: attrs,
	}, nil
}

// Attributes relocates an attribute table.
func (r *Relocator) Attributes(as Attributes) (Attributes, error) {
	out := make(Attributes, 0, len(as))

	for _, a := range as {
		name := r.src.Pool.UTF8(a.NameIndex)

		info, keep, err := r.attribute(name, a.Info)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}

		if keep {
			out = append(out, Attribute{NameIndex: r.dst.Pool.AddUTF8(name), Info: info})
		}
	}

	return out, nil
}

// Finish stores bootstrap methods added during relocation in the destination class.
func (r *Relocator) Finish() {
	if r.bsmChanged {
		r.dst.Attributes.Set(r.dst.Pool, AttrBootstrapMethods, EncodeBootstrapMethods(r.dstBSM))
		r.bsmChanged = false
	}
}

func (r *Relocator) attribute(name string, info []byte) ([]byte, bool, error) {
	switch name {
	case AttrCode:
		out, err := r.code(info)
		return out, true, err
	case AttrConstantValue, AttrSignature:
		v, err := DecodeU2(info)
		if err == nil {
			v, err = r.Constant(v)
		}

		return EncodeU2(v), true, err
	case AttrExceptions:
		list, err := DecodeU2List(info)
		if err != nil {
			return nil, false, err
		}

		for i := range list {
			if list[i], err = r.Constant(list[i]); err != nil {
				return nil, false, err
			}
		}

		return EncodeU2List(list), true, nil
	case AttrMethodParameters:
		params, err := DecodeMethodParameters(info)
		if err != nil {
			return nil, false, err
		}

		for i := range params {
			if params[i].NameIndex, err = r.Constant(params[i].NameIndex); err != nil {
				return nil, false, err
			}
		}

		return EncodeMethodParameters(params), true, nil
	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
		anns, err := DecodeAnnotations(info)
		if err != nil {
			return nil, false, err
		}

		if err := r.annotations(anns); err != nil {
			return nil, false, err
		}

		return EncodeAnnotations(anns), true, nil
	case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
		params, err := DecodeParameterAnnotations(info)
		if err != nil {
			return nil, false, err
		}

		for _, anns := range params {
			if err := r.annotations(anns); err != nil {
				return nil, false, err
			}
		}

		return EncodeParameterAnnotations(params), true, nil
	case AttrAnnotationDefault:
		v, err := DecodeElementValue(info)
		if err == nil {
			err = r.elementValue(&v)
		}

		return EncodeElementValue(v), true, err
	case AttrDeprecated, AttrSynthetic:
		return info, true, nil
	default:
		return nil, false, nil
	}
}

func (r *Relocator) code(info []byte) ([]byte, error) {
	code, err := DecodeCode(info)
	if err != nil {
		return nil, err
	}

	insns, err := Instructions(code.Code)
	if err != nil {
		return nil, err
	}

	// ldc operands are one byte wide, so their constants are interned before anything else.
	for _, in := range insns {
		if in.Op == OpLdc {
			if _, err := r.Constant(in.PoolIndex); err != nil {
				return nil, err
			}
		}
	}

	body := slices.Clone(code.Code)

	for _, in := range insns {
		if !in.HasPool {
			continue
		}

		j, err := r.Constant(in.PoolIndex)
		if err != nil {
			return nil, err
		}

		if in.Op == OpLdc {
			if j > 0xff {
				return nil, fmt.Errorf("%w: ldc at %d needs index %d", ErrLdcRange, in.PC, j)
			}

			body[in.PC+1] = byte(j)

			continue
		}

		binary.BigEndian.PutUint16(body[in.PC+1:], j)
	}

	code.Code = body

	for i := range code.Exceptions {
		if code.Exceptions[i].CatchType, err = r.Constant(code.Exceptions[i].CatchType); err != nil {
			return nil, err
		}
	}

	nested := make(Attributes, 0, len(code.Attributes))

	for _, a := range code.Attributes {
		name := r.src.Pool.UTF8(a.NameIndex)

		var out []byte

		switch name {
		case AttrLineNumberTable:
			out = a.Info
		case AttrLocalVariableTable, AttrLocalVariableTypeTable:
			vars, err := DecodeLocalVars(a.Info)
			if err != nil {
				return nil, err
			}

			for i := range vars {
				if vars[i].NameIndex, err = r.Constant(vars[i].NameIndex); err != nil {
					return nil, err
				}

				if vars[i].DescIndex, err = r.Constant(vars[i].DescIndex); err != nil {
					return nil, err
				}
			}

			out = EncodeLocalVars(vars)
		case AttrStackMapTable:
			if out, err = rewriteStackMap(a.Info, r.Constant); err != nil {
				return nil, err
			}
		default:
			continue
		}

		nested = append(nested, Attribute{NameIndex: r.dst.Pool.AddUTF8(name), Info: out})
	}

	code.Attributes = nested

	return code.Encode(), nil
}

func (r *Relocator) annotations(anns []Annotation) error {
	for i := range anns {
		if err := r.annotation(&anns[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *Relocator) annotation(a *Annotation) error {
	var err error

	if a.Type, err = r.Constant(a.Type); err != nil {
		return err
	}

	for i := range a.Elements {
		if a.Elements[i].Name, err = r.Constant(a.Elements[i].Name); err != nil {
			return err
		}

		if err := r.elementValue(&a.Elements[i].Value); err != nil {
			return err
		}
	}

	return nil
}

func (r *Relocator) elementValue(v *ElementValue) error {
	var err error

	switch v.Tag {
	case 'e':
		if v.EnumType, err = r.Constant(v.EnumType); err == nil {
			v.EnumName, err = r.Constant(v.EnumName)
		}
	case '@':
		err = r.annotation(v.Annotation)
	case '[':
		for i := range v.Values {
			if err = r.elementValue(&v.Values[i]); err != nil {
				break
			}
		}
	default:
		v.Const, err = r.Constant(v.Const)
	}

	return err
}
