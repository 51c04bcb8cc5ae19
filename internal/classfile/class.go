package classfile

import (
	"fmt"
)

// Magic is the class file signature.
const Magic = 0xCAFEBABE

// Access flags.
const (
	AccPublic     uint16 = 0x0001
	AccPrivate    uint16 = 0x0002
	AccProtected  uint16 = 0x0004
	AccStatic     uint16 = 0x0008
	AccFinal      uint16 = 0x0010
	AccSuper      uint16 = 0x0020
	AccBridge     uint16 = 0x0040
	AccVarargs    uint16 = 0x0080
	AccNative     uint16 = 0x0100
	AccInterface  uint16 = 0x0200
	AccAbstract   uint16 = 0x0400
	AccSynthetic  uint16 = 0x1000
	AccAnnotation uint16 = 0x2000
	AccEnum       uint16 = 0x4000
	AccMandated   uint16 = 0x8000

	// AccVisibility masks the three visibility bits.
	AccVisibility = AccPublic | AccPrivate | AccProtected
)

// Class is a parsed class file.
type Class struct {
	Minor      uint16
	Major      uint16
	Pool       *ConstantPool
	Access     uint16
	ThisClass  uint16
	SuperClass uint16
	Interfaces []uint16
	Fields     []*Member
	Methods    []*Member
	Attributes Attributes
}

// Member is a field or method declaration.
type Member struct {
	Access     uint16
	NameIndex  uint16
	DescIndex  uint16
	Attributes Attributes
}

// New returns an empty class with the given internal name and super class. An empty super
// name leaves super_class at 0.
func New(name, super string) *Class {
	c := &Class{
		Major:  52,
		Pool:   NewConstantPool(),
		Access: AccPublic | AccSuper,
	}

	c.ThisClass = c.Pool.AddClass(name)
	if super != "" {
		c.SuperClass = c.Pool.AddClass(super)
	}

	return c
}

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	r := newReader(data)

	if magic := r.u4(); r.err != nil || magic != Magic {
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotClassFile, r.err)
		}

		return nil, fmt.Errorf("%w: magic 0x%08x", ErrNotClassFile, magic)
	}

	c := &Class{Pool: &ConstantPool{}}
	c.Minor = r.u2()
	c.Major = r.u2()

	if err := c.Pool.parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse constant pool: %w", err)
	}

	c.Access = r.u2()
	c.ThisClass = r.u2()
	c.SuperClass = r.u2()

	c.Interfaces = make([]uint16, r.u2())
	for i := range c.Interfaces {
		c.Interfaces[i] = r.u2()
	}

	c.Fields = parseMembers(r)
	c.Methods = parseMembers(r)
	c.Attributes = parseAttributes(r)

	if err := r.done(); err != nil {
		return nil, err
	}

	if c.Pool.Get(c.ThisClass).Tag != TagClass {
		return nil, fmt.Errorf("%w: this_class %d is not a Class constant", ErrMalformed, c.ThisClass)
	}

	return c, nil
}

func parseMembers(r *reader) []*Member {
	n := int(r.u2())
	if r.err != nil {
		return nil
	}

	out := make([]*Member, 0, min(n, r.rest()/8))

	for range n {
		m := &Member{Access: r.u2(), NameIndex: r.u2(), DescIndex: r.u2()}
		m.Attributes = parseAttributes(r)

		if r.err != nil {
			return nil
		}

		out = append(out, m)
	}

	return out
}

func parseAttributes(r *reader) Attributes {
	n := int(r.u2())
	if r.err != nil || n == 0 {
		return nil
	}

	out := make(Attributes, 0, min(n, r.rest()/6))

	for range n {
		name := r.u2()
		info := r.take(int(r.u4()))

		if r.err != nil {
			return nil
		}

		out = append(out, Attribute{NameIndex: name, Info: info})
	}

	return out
}

// Bytes serializes the class.
func (c *Class) Bytes() ([]byte, error) {
	b := appendU4(make([]byte, 0, 4096), Magic)
	b = appendU2(b, c.Minor)
	b = appendU2(b, c.Major)

	b, err := c.Pool.appendTo(b)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", c.Name(), err)
	}

	b = appendU2(b, c.Access)
	b = appendU2(b, c.ThisClass)
	b = appendU2(b, c.SuperClass)

	b = appendU2(b, uint16(len(c.Interfaces)))
	for _, i := range c.Interfaces {
		b = appendU2(b, i)
	}

	for _, members := range [][]*Member{c.Fields, c.Methods} {
		b = appendU2(b, uint16(len(members)))

		for _, m := range members {
			b = appendU2(b, m.Access)
			b = appendU2(b, m.NameIndex)
			b = appendU2(b, m.DescIndex)
			b = m.Attributes.appendTo(b)
		}
	}

	return c.Attributes.appendTo(b), nil
}

// Name returns the internal name of this class.
func (c *Class) Name() string {
	return c.Pool.ClassName(c.ThisClass)
}

// SuperName returns the internal name of the super class, or "" for java/lang/Object and
// module-info.
func (c *Class) SuperName() string {
	if c.SuperClass == 0 {
		return ""
	}

	return c.Pool.ClassName(c.SuperClass)
}

// InterfaceNames returns the internal names of the direct super interfaces.
func (c *Class) InterfaceNames() []string {
	out := make([]string, len(c.Interfaces))
	for i, idx := range c.Interfaces {
		out[i] = c.Pool.ClassName(idx)
	}

	return out
}

// MemberName returns the name of a field or method of this class.
func (c *Class) MemberName(m *Member) string {
	return c.Pool.UTF8(m.NameIndex)
}

// MemberDesc returns the descriptor of a field or method of this class.
func (c *Class) MemberDesc(m *Member) string {
	return c.Pool.UTF8(m.DescIndex)
}

// Field finds a field by name and descriptor.
func (c *Class) Field(name, desc string) *Member {
	return c.find(c.Fields, name, desc)
}

// Method finds a method by name and descriptor.
func (c *Class) Method(name, desc string) *Member {
	return c.find(c.Methods, name, desc)
}

func (c *Class) find(members []*Member, name, desc string) *Member {
	for _, m := range members {
		if c.MemberName(m) == name && c.MemberDesc(m) == desc {
			return m
		}
	}

	return nil
}

// AddField appends a field declaration.
func (c *Class) AddField(access uint16, name, desc string) *Member {
	m := &Member{Access: access, NameIndex: c.Pool.AddUTF8(name), DescIndex: c.Pool.AddUTF8(desc)}
	c.Fields = append(c.Fields, m)

	return m
}

// AddMethod appends a method declaration.
func (c *Class) AddMethod(access uint16, name, desc string) *Member {
	m := &Member{Access: access, NameIndex: c.Pool.AddUTF8(name), DescIndex: c.Pool.AddUTF8(desc)}
	c.Methods = append(c.Methods, m)

	return m
}

// Attribute is a raw attribute: a pool index naming it and its undecoded content.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// Attributes is an ordered attribute table.
type Attributes []Attribute

// Index returns the position of the first attribute with the given name, or -1.
func (as Attributes) Index(cp *ConstantPool, name string) int {
	for i, a := range as {
		if cp.UTF8(a.NameIndex) == name {
			return i
		}
	}

	return -1
}

// Get returns the content of the first attribute with the given name.
func (as Attributes) Get(cp *ConstantPool, name string) ([]byte, bool) {
	if i := as.Index(cp, name); i >= 0 {
		return as[i].Info, true
	}

	return nil, false
}

// Set replaces the content of the named attribute, appending it when absent.
func (as *Attributes) Set(cp *ConstantPool, name string, info []byte) {
	if i := as.Index(cp, name); i >= 0 {
		(*as)[i].Info = info
		return
	}

	*as = append(*as, Attribute{NameIndex: cp.AddUTF8(name), Info: info})
}

// Remove deletes every attribute with the given name and reports whether any was present.
func (as *Attributes) Remove(cp *ConstantPool, name string) bool {
	kept := (*as)[:0]
	removed := false

	for _, a := range *as {
		if cp.UTF8(a.NameIndex) == name {
			removed = true
			continue
		}

		kept = append(kept, a)
	}

	*as = kept

	return removed
}

func (as Attributes) appendTo(b []byte) []byte {
	b = appendU2(b, uint16(len(as)))

	for _, a := range as {
		b = appendU2(b, a.NameIndex)
		b = appendU4(b, uint32(len(a.Info)))
		b = append(b, a.Info...)
	}

	return b
}
