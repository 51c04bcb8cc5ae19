package classfile

import (
	"fmt"
	"math"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

// Constant pool tags.
const (
	TagUTF8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// Wide reports whether the constant occupies two pool slots.
func (t Tag) Wide() bool {
	return t == TagLong || t == TagDouble
}

// IsMemberRef reports whether the tag is a field, method or interface method reference.
func (t Tag) IsMemberRef() bool {
	return t == TagFieldref || t == TagMethodref || t == TagInterfaceMethodref
}

// Constant is one constant pool entry. Only the fields relevant to Tag are set:
//
//	UTF8                                   Str
//	Integer, Float, Long, Double           Bits (raw big-endian value)
//	Class, String, MethodType, Module, Package   A
//	Field/Method/InterfaceMethod refs      A (class), B (name and type)
//	NameAndType                            A (name), B (descriptor)
//	MethodHandle                           Kind, A (reference)
//	Dynamic, InvokeDynamic                 A (bootstrap method), B (name and type)
type Constant struct {
	Tag  Tag
	Str  string
	Bits uint64
	Kind uint8
	A    uint16
	B    uint16
}

// ConstantPool is a class file constant pool. Index 0 and the slot following each long or
// double are unusable and hold zero constants.
type ConstantPool struct {
	entries  []Constant
	index    map[Constant]uint16
	overflow bool
}

// NewConstantPool returns an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: make([]Constant, 1)}
}

// Len returns the constant_pool_count value: one more than the highest index.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Get returns the entry at index i, or a zero Constant when i is out of range.
func (p *ConstantPool) Get(i uint16) Constant {
	if int(i) >= len(p.entries) {
		return Constant{}
	}

	return p.entries[i]
}

// Set replaces the entry at index i. The caller must know the entry is not shared.
func (p *ConstantPool) Set(i uint16, c Constant) {
	if i == 0 || int(i) >= len(p.entries) {
		panic(fmt.Sprintf("classfile: pool index %d out of range", i))
	}

	if p.entries[i].Tag.Wide() != c.Tag.Wide() {
		panic(fmt.Sprintf("classfile: cannot change slot width at pool index %d", i))
	}

	if p.index != nil {
		if old := p.entries[i]; p.index[old] == i {
			delete(p.index, old)
		}

		if _, ok := p.index[c]; !ok {
			p.index[c] = i
		}
	}

	p.entries[i] = c
}

// UTF8 returns the string at index i, or "" when the entry is not a UTF8 constant.
func (p *ConstantPool) UTF8(i uint16) string {
	c := p.Get(i)
	if c.Tag != TagUTF8 {
		return ""
	}

	return c.Str
}

// ClassName returns the internal name of the Class constant at index i.
func (p *ConstantPool) ClassName(i uint16) string {
	c := p.Get(i)
	if c.Tag != TagClass {
		return ""
	}

	return p.UTF8(c.A)
}

// NameAndType returns the name and descriptor of the NameAndType constant at index i.
func (p *ConstantPool) NameAndType(i uint16) (name, desc string) {
	c := p.Get(i)
	if c.Tag != TagNameAndType {
		return "", ""
	}

	return p.UTF8(c.A), p.UTF8(c.B)
}

// MemberRef returns the owner, name and descriptor of the member reference at index i.
func (p *ConstantPool) MemberRef(i uint16) (owner, name, desc string) {
	c := p.Get(i)
	if !c.Tag.IsMemberRef() {
		return "", "", ""
	}

	name, desc = p.NameAndType(c.B)

	return p.ClassName(c.A), name, desc
}

// Add interns c and returns its index. Equal constants share one slot.
func (p *ConstantPool) Add(c Constant) uint16 {
	if p.index == nil {
		p.reindex()
	}

	if i, ok := p.index[c]; ok {
		return i
	}

	if len(p.entries) >= math.MaxUint16 || c.Tag.Wide() && len(p.entries)+1 >= math.MaxUint16 {
		p.overflow = true
		return 0
	}

	i := uint16(len(p.entries))
	p.entries = append(p.entries, c)

	if c.Tag.Wide() {
		p.entries = append(p.entries, Constant{})
	}

	p.index[c] = i

	return i
}

func (p *ConstantPool) reindex() {
	p.index = make(map[Constant]uint16, len(p.entries))

	for i := len(p.entries) - 1; i > 0; i-- {
		if p.entries[i].Tag != 0 {
			p.index[p.entries[i]] = uint16(i)
		}
	}
}

// AddUTF8 interns a UTF8 constant.
func (p *ConstantPool) AddUTF8(s string) uint16 {
	return p.Add(Constant{Tag: TagUTF8, Str: s})
}

// AddClass interns a Class constant for an internal name or array descriptor.
func (p *ConstantPool) AddClass(name string) uint16 {
	return p.Add(Constant{Tag: TagClass, A: p.AddUTF8(name)})
}

// AddString interns a String constant.
func (p *ConstantPool) AddString(s string) uint16 {
	return p.Add(Constant{Tag: TagString, A: p.AddUTF8(s)})
}

// AddNameAndType interns a NameAndType constant.
func (p *ConstantPool) AddNameAndType(name, desc string) uint16 {
	return p.Add(Constant{Tag: TagNameAndType, A: p.AddUTF8(name), B: p.AddUTF8(desc)})
}

// AddMemberRef interns a field, method or interface method reference.
func (p *ConstantPool) AddMemberRef(tag Tag, owner, name, desc string) uint16 {
	return p.Add(Constant{Tag: tag, A: p.AddClass(owner), B: p.AddNameAndType(name, desc)})
}

// AddMethodType interns a MethodType constant.
func (p *ConstantPool) AddMethodType(desc string) uint16 {
	return p.Add(Constant{Tag: TagMethodType, A: p.AddUTF8(desc)})
}

// AddInteger interns an Integer constant.
func (p *ConstantPool) AddInteger(v int32) uint16 {
	return p.Add(Constant{Tag: TagInteger, Bits: uint64(uint32(v))})
}

func (p *ConstantPool) parse(r *reader) error {
	count := int(r.u2())
	if r.err == nil && count == 0 {
		return fmt.Errorf("%w: constant_pool_count is 0", ErrMalformed)
	}

	p.entries = make([]Constant, 1, count)

	for len(p.entries) < count && r.err == nil {
		c := Constant{Tag: Tag(r.u1())}

		switch c.Tag {
		case TagUTF8:
			s, err := DecodeModifiedUTF8(r.take(int(r.u2())))
			if err != nil {
				return fmt.Errorf("pool entry %d: %w", len(p.entries), err)
			}

			c.Str = s
		case TagInteger, TagFloat:
			c.Bits = uint64(r.u4())
		case TagLong, TagDouble:
			c.Bits = r.u8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.Kind = r.u1()
			c.A = r.u2()
		default:
			if r.err != nil {
				break
			}

			return fmt.Errorf("%w: unknown constant tag %d at index %d", ErrMalformed, c.Tag, len(p.entries))
		}

		p.entries = append(p.entries, c)
		if c.Tag.Wide() {
			p.entries = append(p.entries, Constant{})
		}
	}

	if len(p.entries) > count && r.err == nil {
		return fmt.Errorf("%w: wide constant overruns the pool", ErrMalformed)
	}

	return r.err
}

func (p *ConstantPool) appendTo(b []byte) ([]byte, error) {
	if p.overflow || len(p.entries) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries", ErrPoolOverflow, len(p.entries))
	}

	b = appendU2(b, uint16(len(p.entries)))

	for i := 1; i < len(p.entries); i++ {
		c := p.entries[i]
		b = append(b, byte(c.Tag))

		switch c.Tag {
		case TagUTF8:
			s := EncodeModifiedUTF8(c.Str)
			if len(s) > math.MaxUint16 {
				return nil, fmt.Errorf("%w: UTF8 constant %d is %d bytes", ErrMalformed, i, len(s))
			}

			b = appendU2(b, uint16(len(s)))
			b = append(b, s...)
		case TagInteger, TagFloat:
			b = appendU4(b, uint32(c.Bits))
		case TagLong, TagDouble:
			b = appendU4(b, uint32(c.Bits>>32))
			b = appendU4(b, uint32(c.Bits))
			i++
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			b = appendU2(b, c.A)
		case TagMethodHandle:
			b = append(b, c.Kind)
			b = appendU2(b, c.A)
		case 0:
			return nil, fmt.Errorf("%w: empty pool slot %d", ErrMalformed, i)
		default:
			b = appendU2(b, c.A)
			b = appendU2(b, c.B)
		}
	}

	return b, nil
}
