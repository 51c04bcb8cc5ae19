package merge

import (
	"fmt"
	"strings"

	"jarsmith/internal/mapping"
)

// InheritInnerClassNames names nested classes that are unmapped in namespace to (their name
// there equals their name in from) after their first mapped enclosing class. Enclosing names are
// tried from the outermost inward and the walk stops at the first one with a distinct mapping:
//
//	a        -> pkg/Named
//	a$b$c    -> pkg/Named$b$c
//
// The pass is idempotent. It returns the number of classes renamed.
func InheritInnerClassNames(t *mapping.Tree, from, to string) (int, error) {
	fromID, toID := t.NamespaceID(from), t.NamespaceID(to)
	if fromID < 0 || toID < 0 {
		return 0, fmt.Errorf("%w: tree has %v, need %s and %s", ErrMissingNamespace, t.Namespaces(), from, to)
	}

	if toID == 0 {
		return 0, fmt.Errorf("%w: %s is the source namespace", ErrMappingInconsistency, to)
	}

	type rename struct {
		class *mapping.Class
		name  string
	}

	var pending []rename

	for _, c := range t.Classes() {
		name := c.Name(fromID)
		if c.Name(toID) != name || !strings.Contains(name, mapping.InnerClassSeparator) {
			continue
		}

		segments := strings.Split(name, mapping.InnerClassSeparator)

		for i := 1; i < len(segments); i++ {
			enclosing := strings.Join(segments[:i], mapping.InnerClassSeparator)

			ec := t.ClassByName(fromID, enclosing)
			if ec == nil {
				continue
			}

			mapped := ec.Name(toID)
			if mapped == enclosing {
				continue
			}

			rest := strings.Join(segments[i:], mapping.InnerClassSeparator)
			pending = append(pending, rename{c, mapped + mapping.InnerClassSeparator + rest})

			break
		}
	}

	// Renames are applied after the walk so the name index is built once.
	for _, r := range pending {
		r.class.SetName(toID, r.name)
	}

	return len(pending), nil
}

// CompleteNames fills names left empty in namespace to with their names in namespace from, for
// classes and members alike. It returns the number of names filled.
func CompleteNames(t *mapping.Tree, from, to string) (int, error) {
	fromID, toID := t.NamespaceID(from), t.NamespaceID(to)
	if fromID < 0 || toID <= 0 {
		return 0, fmt.Errorf("%w: tree has %v, need %s and %s", ErrMissingNamespace, t.Namespaces(), from, to)
	}

	filled := 0
	fill := func(e element) {
		if e.DstName(toID) == "" && e.Name(fromID) != e.Name(0) {
			e.SetName(toID, e.Name(fromID))
			filled++
		}
	}

	for _, c := range t.Classes() {
		fill(c)

		for _, f := range c.Fields() {
			fill(f)
		}

		for _, m := range c.Methods() {
			fill(m)
		}
	}

	return filled, nil
}
