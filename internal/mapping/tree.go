package mapping

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// InnerClassSeparator separates enclosing and nested class names.
const InnerClassSeparator = "$"

// Property is a header property of a mapping document, kept in declaration order.
type Property struct {
	Key   string
	Value string
}

// Tree is an in-memory multi-namespace mapping document.
//
// Mutation is single-threaded. Once built, a Tree may be read from many goroutines;
// the lazily built per-namespace name index is guarded internally.
type Tree struct {
	namespaces []string
	properties []Property
	classes    []*Class
	bySrc      map[string]*Class

	mu     sync.Mutex
	byName map[int]map[string]*Class
}

// NewTree creates a tree with a fixed namespace list. The first namespace is the source namespace.
func NewTree(namespaces ...string) (*Tree, error) {
	t := &Tree{}
	if err := t.SetNamespaces(namespaces); err != nil {
		return nil, err
	}

	return t, nil
}

// SetNamespaces fixes the namespace list. It may be called once.
func (t *Tree) SetNamespaces(namespaces []string) error {
	if t.namespaces != nil {
		return ErrNamespacesFixed
	}

	if len(namespaces) < 2 {
		return fmt.Errorf("%w: need a source and at least one destination namespace, got %v",
			ErrUnsupportedFormat, namespaces)
	}

	seen := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		if ns == "" {
			return fmt.Errorf("%w: empty namespace name", ErrUnsupportedFormat)
		}

		if _, dup := seen[ns]; dup {
			return fmt.Errorf("%w: duplicate namespace %q", ErrUnsupportedFormat, ns)
		}

		seen[ns] = struct{}{}
	}

	t.namespaces = slices.Clone(namespaces)
	t.bySrc = make(map[string]*Class)

	return nil
}

// Namespaces returns the ordered namespace names.
func (t *Tree) Namespaces() []string {
	return slices.Clone(t.namespaces)
}

// SrcNamespace returns the source namespace name.
func (t *Tree) SrcNamespace() string {
	if len(t.namespaces) == 0 {
		return ""
	}

	return t.namespaces[0]
}

// DstNamespaces returns the destination namespace names.
func (t *Tree) DstNamespaces() []string {
	if len(t.namespaces) == 0 {
		return nil
	}

	return slices.Clone(t.namespaces[1:])
}

// NamespaceID returns the column index of a namespace, or -1 when absent.
func (t *Tree) NamespaceID(name string) int {
	return slices.Index(t.namespaces, name)
}

// Namespace returns the column index of a namespace or an error wrapping ErrUnknownNamespace.
func (t *Tree) Namespace(name string) (int, error) {
	id := t.NamespaceID(name)
	if id < 0 {
		return -1, fmt.Errorf("%w %q (have %s)", ErrUnknownNamespace, name, strings.Join(t.namespaces, ", "))
	}

	return id, nil
}

// SetProperty sets or replaces a header property.
func (t *Tree) SetProperty(key, value string) {
	for i := range t.properties {
		if t.properties[i].Key == key {
			t.properties[i].Value = value
			return
		}
	}

	t.properties = append(t.properties, Property{Key: key, Value: value})
}

// Property returns a header property value.
func (t *Tree) Property(key string) (string, bool) {
	for _, p := range t.properties {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

// Properties returns the header properties in declaration order.
func (t *Tree) Properties() []Property {
	return slices.Clone(t.properties)
}

// AddClass adds a class keyed by its source name. Destination names are given in namespace order.
func (t *Tree) AddClass(src string, dst ...string) (*Class, error) {
	if t.namespaces == nil {
		return nil, fmt.Errorf("add class %s: %w", src, ErrUnsupportedFormat)
	}

	if _, ok := t.bySrc[src]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, src)
	}

	if len(dst) > len(t.namespaces)-1 {
		return nil, fmt.Errorf("class %s: %d destination names for %d namespaces",
			src, len(dst), len(t.namespaces)-1)
	}

	c := &Class{
		tree:      t,
		names:     newNames(src, len(t.namespaces), dst),
		fieldIdx:  make(map[memberKey]*Field),
		fieldName: make(map[string]*Field),
		methodIdx: make(map[memberKey]*Method),
	}

	t.classes = append(t.classes, c)
	t.bySrc[src] = c
	t.invalidate()

	return c, nil
}

// GetOrAddClass returns the class with the given source name, adding an unmapped one if needed.
func (t *Tree) GetOrAddClass(src string) *Class {
	if c, ok := t.bySrc[src]; ok {
		return c
	}

	c, err := t.AddClass(src)
	if err != nil {
		panic(err) // only reachable without namespaces
	}

	return c
}

// Class returns the class with the given source name, or nil.
func (t *Tree) Class(src string) *Class {
	return t.bySrc[src]
}

// Classes returns all classes in insertion order.
func (t *Tree) Classes() []*Class {
	return slices.Clone(t.classes)
}

// ClassByName finds a class by its name in namespace ns.
// For destination namespaces an unmapped class is found by its source name.
func (t *Tree) ClassByName(ns int, name string) *Class {
	if ns == 0 {
		return t.bySrc[name]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byName == nil {
		t.byName = make(map[int]map[string]*Class)
	}

	idx, ok := t.byName[ns]
	if !ok {
		idx = make(map[string]*Class, len(t.classes))
		for _, c := range t.classes {
			n := c.Name(ns)
			if _, taken := idx[n]; !taken {
				idx[n] = c
			}
		}

		t.byName[ns] = idx
	}

	return idx[name]
}

// MapClassName translates a class name between two namespaces.
// Names unknown to the tree are returned unchanged.
func (t *Tree) MapClassName(name string, from, to int) string {
	c := t.ClassByName(from, name)
	if c == nil {
		return name
	}

	return c.Name(to)
}

// ClassMapper returns a class name translation function between two namespaces.
func (t *Tree) ClassMapper(from, to int) func(string) string {
	return func(name string) string {
		return t.MapClassName(name, from, to)
	}
}

// Field looks up a field by source owner, name and descriptor. When desc is empty, or no field
// matches the descriptor, the first field with the given name is returned.
func (t *Tree) Field(owner, name, desc string) *Field {
	c := t.bySrc[owner]
	if c == nil {
		return nil
	}

	return c.Field(name, desc)
}

// Method looks up a method by source owner, name and descriptor.
func (t *Tree) Method(owner, name, desc string) *Method {
	c := t.bySrc[owner]
	if c == nil {
		return nil
	}

	return c.Method(name, desc)
}

// AddField adds a field to an existing class.
func (t *Tree) AddField(owner, name, desc string, dst ...string) (*Field, error) {
	c := t.bySrc[owner]
	if c == nil {
		return nil, fmt.Errorf("field %s.%s: %w", owner, name, ErrUnknownOwner)
	}

	return c.AddField(name, desc, dst...), nil
}

// AddMethod adds a method to an existing class.
func (t *Tree) AddMethod(owner, name, desc string, dst ...string) (*Method, error) {
	c := t.bySrc[owner]
	if c == nil {
		return nil, fmt.Errorf("method %s.%s%s: %w", owner, name, desc, ErrUnknownOwner)
	}

	return c.AddMethod(name, desc, dst...), nil
}

// Copy returns a deep copy of the tree.
func (t *Tree) Copy() *Tree {
	out, _ := t.copyWith(nil)
	return out
}

// WithNamespace returns a deep copy of the tree with an extra, empty destination column.
// It returns the new column's index.
func (t *Tree) WithNamespace(name string) (*Tree, int, error) {
	if t.NamespaceID(name) >= 0 {
		return nil, -1, fmt.Errorf("%w: namespace %q already present", ErrUnsupportedFormat, name)
	}

	out, err := t.copyWith([]string{name})
	if err != nil {
		return nil, -1, err
	}

	return out, len(out.namespaces) - 1, nil
}

func (t *Tree) copyWith(extra []string) (*Tree, error) {
	out := &Tree{}
	if err := out.SetNamespaces(append(slices.Clone(t.namespaces), extra...)); err != nil {
		return nil, err
	}

	out.properties = slices.Clone(t.properties)
	width := len(out.namespaces)

	for _, c := range t.classes {
		nc, _ := out.AddClass(c.src)
		nc.names = c.names.clone(width)
		nc.Comment = c.Comment

		for _, f := range c.fields {
			nf := nc.AddField(f.src, f.srcDesc)
			nf.names = f.names.clone(width)
			nf.dstDesc = cloneWidth(f.dstDesc, width)
			nf.Comment = f.Comment
		}

		for _, m := range c.methods {
			nm := nc.AddMethod(m.src, m.srcDesc)
			nm.names = m.names.clone(width)
			nm.dstDesc = cloneWidth(m.dstDesc, width)
			nm.Comment = m.Comment

			for _, a := range m.args {
				na := nm.AddArg(a.LvIndex, a.src)
				na.names = a.names.clone(width)
				na.Comment = a.Comment
			}

			for _, v := range m.vars {
				nv := nm.AddVar(v.LvIndex, v.StartOffset, v.LvtIndex, v.src)
				nv.names = v.names.clone(width)
				nv.Comment = v.Comment
			}
		}
	}

	return out, nil
}

func (t *Tree) invalidate() {
	t.mu.Lock()
	t.byName = nil
	t.mu.Unlock()
}

// names holds a source name and one destination name per destination namespace.
// Index 0 of dst is unused so namespace ids index it directly.
type names struct {
	src string
	dst []string
}

func newNames(src string, width int, dst []string) names {
	n := names{src: src, dst: make([]string, width)}
	copy(n.dst[1:], dst)

	return n
}

func (n names) clone(width int) names {
	return names{src: n.src, dst: cloneWidth(n.dst, width)}
}

func cloneWidth(s []string, width int) []string {
	if s == nil {
		return nil
	}

	out := make([]string, width)
	copy(out, s)

	return out
}

// SrcName returns the source-namespace name.
func (n *names) SrcName() string {
	return n.src
}

// DstName returns the raw destination name for namespace ns, empty when unmapped.
func (n *names) DstName(ns int) string {
	if ns == 0 {
		return n.src
	}

	if ns < 0 || ns >= len(n.dst) {
		return ""
	}

	return n.dst[ns]
}

// Name returns the name in namespace ns, falling back to the source name when unmapped.
func (n *names) Name(ns int) string {
	if d := n.DstName(ns); d != "" {
		return d
	}

	return n.src
}

// IsMapped reports whether namespace ns carries a name distinct from the source name.
func (n *names) IsMapped(ns int) bool {
	d := n.DstName(ns)
	return d != "" && d != n.src
}

func (n *names) setName(ns int, name string) {
	if ns <= 0 || ns >= len(n.dst) {
		panic(fmt.Sprintf("mapping: destination namespace %d out of range", ns))
	}

	n.dst[ns] = name
}

// Class is a class mapping row.
type Class struct {
	names

	tree    *Tree
	Comment string

	fields    []*Field
	methods   []*Method
	fieldIdx  map[memberKey]*Field
	fieldName map[string]*Field
	methodIdx map[memberKey]*Method
}

type memberKey struct {
	name string
	desc string
}

// Tree returns the owning tree.
func (c *Class) Tree() *Tree {
	return c.tree
}

// SetName sets the destination name for namespace ns (1..n-1).
func (c *Class) SetName(ns int, name string) {
	c.setName(ns, name)
	c.tree.invalidate()
}

// Outer returns the immediately enclosing class known to the tree, or nil.
func (c *Class) Outer() *Class {
	i := strings.LastIndex(c.src, InnerClassSeparator)
	if i <= 0 {
		return nil
	}

	return c.tree.bySrc[c.src[:i]]
}

// IsInner reports whether the source name contains the nesting separator.
func (c *Class) IsInner() bool {
	return strings.Contains(c.src, InnerClassSeparator)
}

// Fields returns the class fields in insertion order.
func (c *Class) Fields() []*Field {
	return slices.Clone(c.fields)
}

// Methods returns the class methods in insertion order.
func (c *Class) Methods() []*Method {
	return slices.Clone(c.methods)
}

// Field finds a field by source name and descriptor, falling back to name-only.
func (c *Class) Field(name, desc string) *Field {
	if desc != "" {
		if f, ok := c.fieldIdx[memberKey{name, desc}]; ok {
			return f
		}
	}

	return c.fieldName[name]
}

// Method finds a method by source name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	return c.methodIdx[memberKey{name, desc}]
}

// AddField adds a field or returns the existing one with the same name and descriptor.
// Non-empty destination names overwrite existing ones.
func (c *Class) AddField(name, desc string, dst ...string) *Field {
	key := memberKey{name, desc}
	f, ok := c.fieldIdx[key]

	if !ok {
		f = &Field{member{owner: c, names: newNames(name, len(c.tree.namespaces), nil), srcDesc: desc}}
		c.fields = append(c.fields, f)
		c.fieldIdx[key] = f

		if _, taken := c.fieldName[name]; !taken {
			c.fieldName[name] = f
		}
	}

	f.assign(dst)

	return f
}

// AddMethod adds a method or returns the existing one with the same name and descriptor.
func (c *Class) AddMethod(name, desc string, dst ...string) *Method {
	key := memberKey{name, desc}
	m, ok := c.methodIdx[key]

	if !ok {
		m = &Method{member: member{owner: c, names: newNames(name, len(c.tree.namespaces), nil), srcDesc: desc}}
		c.methods = append(c.methods, m)
		c.methodIdx[key] = m
	}

	m.assign(dst)

	return m
}

type member struct {
	names

	owner   *Class
	srcDesc string
	dstDesc []string
	Comment string
}

func (m *member) assign(dst []string) {
	for i, d := range dst {
		if d != "" {
			m.dst[i+1] = d
		}
	}
}

// Owner returns the owning class.
func (m *member) Owner() *Class {
	return m.owner
}

// SrcDesc returns the descriptor in the source namespace. It may be empty for formats without
// field descriptors.
func (m *member) SrcDesc() string {
	return m.srcDesc
}

// SetName sets the destination name for namespace ns (1..n-1).
func (m *member) SetName(ns int, name string) {
	m.setName(ns, name)
}

// Desc returns the descriptor in namespace ns: an explicit override when one was set,
// otherwise the source descriptor with class names translated through the tree.
func (m *member) Desc(ns int) string {
	if ns == 0 || m.srcDesc == "" && m.descOverride(ns) == "" {
		return m.srcDesc
	}

	if d := m.descOverride(ns); d != "" {
		return d
	}

	return MapDesc(m.srcDesc, m.owner.tree.ClassMapper(0, ns))
}

// SetDesc stores an explicit descriptor override for destination namespace ns.
func (m *member) SetDesc(ns int, desc string) {
	if ns <= 0 || ns >= len(m.dst) {
		panic(fmt.Sprintf("mapping: destination namespace %d out of range", ns))
	}

	if m.dstDesc == nil {
		m.dstDesc = make([]string, len(m.dst))
	}

	m.dstDesc[ns] = desc
}

func (m *member) descOverride(ns int) string {
	if ns < 0 || ns >= len(m.dstDesc) {
		return ""
	}

	return m.dstDesc[ns]
}

// Field is a field mapping row.
type Field struct {
	member
}

// Method is a method mapping row with its parameter and local variable mappings.
type Method struct {
	member

	args []*MethodArg
	vars []*MethodVar
}

// MethodArg maps a method parameter, keyed by its local variable index.
type MethodArg struct {
	names

	LvIndex int
	Comment string
}

// SetName sets the destination name for namespace ns.
func (a *MethodArg) SetName(ns int, name string) {
	a.setName(ns, name)
}

// MethodVar maps a local variable.
type MethodVar struct {
	names

	LvIndex     int
	StartOffset int
	LvtIndex    int
	Comment     string
}

// SetName sets the destination name for namespace ns.
func (v *MethodVar) SetName(ns int, name string) {
	v.setName(ns, name)
}

// Args returns the parameter mappings ordered by local variable index.
func (m *Method) Args() []*MethodArg {
	return slices.Clone(m.args)
}

// Vars returns the local variable mappings in insertion order.
func (m *Method) Vars() []*MethodVar {
	return slices.Clone(m.vars)
}

// Arg returns the parameter mapping at a local variable index, or nil.
func (m *Method) Arg(lvIndex int) *MethodArg {
	i, found := slices.BinarySearchFunc(m.args, lvIndex, func(a *MethodArg, idx int) int {
		return a.LvIndex - idx
	})
	if !found {
		return nil
	}

	return m.args[i]
}

// AddArg adds (or returns) the parameter mapping at a local variable index.
func (m *Method) AddArg(lvIndex int, src string, dst ...string) *MethodArg {
	i, found := slices.BinarySearchFunc(m.args, lvIndex, func(a *MethodArg, idx int) int {
		return a.LvIndex - idx
	})

	var a *MethodArg
	if found {
		a = m.args[i]
		if src != "" {
			a.src = src
		}
	} else {
		a = &MethodArg{names: newNames(src, len(m.dst), nil), LvIndex: lvIndex}
		m.args = slices.Insert(m.args, i, a)
	}

	for j, d := range dst {
		if d != "" {
			a.dst[j+1] = d
		}
	}

	return a
}

// AddVar adds a local variable mapping.
func (m *Method) AddVar(lvIndex, startOffset, lvtIndex int, src string, dst ...string) *MethodVar {
	v := &MethodVar{
		names:       newNames(src, len(m.dst), dst),
		LvIndex:     lvIndex,
		StartOffset: startOffset,
		LvtIndex:    lvtIndex,
	}
	m.vars = append(m.vars, v)

	return v
}
