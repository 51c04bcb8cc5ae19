package transform

import (
	"sync"

	"jarsmith/internal/classfile"
	"jarsmith/internal/mapping"
)

// Mapper answers rename queries in the namespace a class is being remapped from. Every method
// returns the input name when no mapping exists; MapArg returns "".
type Mapper interface {
	MapClass(name string) string
	MapField(owner, name, desc string) string
	MapMethod(owner, name, desc string) string
	MapArg(owner, name, desc string, lvIndex int) string
}

type memberKey struct {
	owner string
	name  string
	desc  string
}

// TreeMapper maps between two namespaces of a mapping tree. Unknown inner classes are named by
// an optional InnerClassNamer. All lookups are precomputed, so a TreeMapper is safe for
// concurrent use.
type TreeMapper struct {
	tree    *mapping.Tree
	from    int
	to      int
	inner   *InnerClassNamer
	fields  map[memberKey]string
	methods map[memberKey]*mapping.Method
}

// NewTreeMapper indexes the tree for lookups by namespace-from names.
func NewTreeMapper(tree *mapping.Tree, from, to int, inner *InnerClassNamer) *TreeMapper {
	m := &TreeMapper{
		tree:    tree,
		from:    from,
		to:      to,
		inner:   inner,
		fields:  make(map[memberKey]string),
		methods: make(map[memberKey]*mapping.Method),
	}

	for _, c := range tree.Classes() {
		owner := c.Name(from)

		for _, f := range c.Fields() {
			name := f.Name(from)
			m.fields[memberKey{owner, name, f.Desc(from)}] = f.Name(to)

			// Formats without field descriptors are still found by name.
			if _, ok := m.fields[memberKey{owner, name, ""}]; !ok {
				m.fields[memberKey{owner, name, ""}] = f.Name(to)
			}
		}

		for _, me := range c.Methods() {
			m.methods[memberKey{owner, me.Name(from), me.Desc(from)}] = me
		}
	}

	return m
}

// MapClass implements Mapper.
func (m *TreeMapper) MapClass(name string) string {
	if c := m.tree.ClassByName(m.from, name); c != nil {
		return c.Name(m.to)
	}

	if d, ok := m.inner.Name(name); ok {
		return d
	}

	return name
}

// MapField implements Mapper.
func (m *TreeMapper) MapField(owner, name, desc string) string {
	if to, ok := m.fields[memberKey{owner, name, desc}]; ok {
		return to
	}

	if to, ok := m.fields[memberKey{owner, name, ""}]; ok {
		return to
	}

	return name
}

// MapMethod implements Mapper.
func (m *TreeMapper) MapMethod(owner, name, desc string) string {
	if me, ok := m.methods[memberKey{owner, name, desc}]; ok {
		return me.Name(m.to)
	}

	return name
}

// MapArg implements Mapper.
func (m *TreeMapper) MapArg(owner, name, desc string, lvIndex int) string {
	me, ok := m.methods[memberKey{owner, name, desc}]
	if !ok {
		return ""
	}

	a := me.Arg(lvIndex)
	if a == nil {
		return ""
	}

	return a.DstName(m.to)
}

// Hierarchy records the direct super types of the classes of one jar, so that member references
// through a subclass resolve to the declaring class's mapping.
type Hierarchy struct {
	mu      sync.RWMutex
	parents map[string][]string
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{parents: make(map[string][]string)}
}

// Add records the super class and interfaces of c.
func (h *Hierarchy) Add(c *classfile.Class) {
	parents := c.InterfaceNames()
	if s := c.SuperName(); s != "" {
		parents = append([]string{s}, parents...)
	}

	h.mu.Lock()
	h.parents[c.Name()] = parents
	h.mu.Unlock()
}

// Parents returns the direct super types of a class, super class first.
func (h *Hierarchy) Parents(name string) []string {
	if h == nil {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.parents[name]
}

// Len returns the number of recorded classes.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.parents)
}
