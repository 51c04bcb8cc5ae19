package transform

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"jarsmith/internal/mapping"
)

// InnerClassNamer derives destination names for inner classes that the mapping tree does not
// know. A derived name substitutes the mapped name of the immediately enclosing class:
//
//	a      -> pkg/Named          (from the tree)
//	a$b    -> unknown to tree    => pkg/Named$b
//	a$b$c  -> unknown to tree    => pkg/Named$b$c
//
// Derived names that collide with an existing destination name get a "_1", "_2", ... suffix.
// All names are computed up front; lookups are safe for concurrent use.
type InnerClassNamer struct {
	derived map[string]string
}

// NewInnerClassNamer derives names for every class in classes (namespace from) that the tree
// does not map.
func NewInnerClassNamer(tree *mapping.Tree, from, to int, classes []string) *InnerClassNamer {
	n := &InnerClassNamer{derived: make(map[string]string)}

	taken := make(map[string]struct{})
	for _, c := range tree.Classes() {
		taken[c.Name(to)] = struct{}{}
	}

	// Enclosing classes are resolved before the classes they enclose.
	ordered := slices.Clone(classes)
	slices.SortFunc(ordered, func(a, b string) int {
		if c := cmp.Compare(strings.Count(a, mapping.InnerClassSeparator), strings.Count(b, mapping.InnerClassSeparator)); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	resolve := func(name string) string {
		if c := tree.ClassByName(from, name); c != nil {
			return c.Name(to)
		}

		if d, ok := n.derived[name]; ok {
			return d
		}

		return name
	}

	for _, name := range ordered {
		i := strings.LastIndex(name, mapping.InnerClassSeparator)
		if i <= 0 || tree.ClassByName(from, name) != nil {
			continue
		}

		outer := name[:i]

		mappedOuter := resolve(outer)
		if mappedOuter == outer {
			continue
		}

		base := mappedOuter + name[i:]
		candidate := base

		for k := 1; ; k++ {
			if _, clash := taken[candidate]; !clash {
				break
			}

			candidate = base + "_" + strconv.Itoa(k)
		}

		n.derived[name] = candidate
		taken[candidate] = struct{}{}
	}

	return n
}

// Name returns the derived destination name of an unmapped inner class.
func (n *InnerClassNamer) Name(class string) (string, bool) {
	if n == nil {
		return "", false
	}

	d, ok := n.derived[class]

	return d, ok
}

// Len returns the number of derived names.
func (n *InnerClassNamer) Len() int {
	return len(n.derived)
}
