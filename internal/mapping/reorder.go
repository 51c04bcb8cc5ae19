package mapping

import "fmt"

// Reorder returns a copy of the tree keyed by another namespace. The new tree's namespaces are
// src followed by dst; every destination name is written out explicitly so that no name changes
// meaning when the fallback source changes.
func (t *Tree) Reorder(src string, dst ...string) (*Tree, error) {
	order := append([]string{src}, dst...)
	ids := make([]int, len(order))

	for i, ns := range order {
		id, err := t.Namespace(ns)
		if err != nil {
			return nil, err
		}

		ids[i] = id
	}

	out, err := NewTree(order...)
	if err != nil {
		return nil, err
	}

	out.properties = t.Properties()
	srcID := ids[0]

	names := func(n interface{ Name(int) string }) []string {
		res := make([]string, len(ids)-1)
		for i, id := range ids[1:] {
			res[i] = n.Name(id)
		}

		return res
	}

	for _, c := range t.classes {
		nc, err := out.AddClass(c.Name(srcID), names(c)...)
		if err != nil {
			return nil, fmt.Errorf("reorder on %s: %w", src, err)
		}

		nc.Comment = c.Comment

		for _, f := range c.fields {
			nf := nc.AddField(f.Name(srcID), f.Desc(srcID), names(f)...)
			nf.Comment = f.Comment
			copyOverrides(&nf.member, &f.member, ids)
		}

		for _, m := range c.methods {
			nm := nc.AddMethod(m.Name(srcID), m.Desc(srcID), names(m)...)
			nm.Comment = m.Comment
			copyOverrides(&nm.member, &m.member, ids)

			for _, a := range m.args {
				na := nm.AddArg(a.LvIndex, a.Name(srcID), names(a)...)
				na.Comment = a.Comment
			}

			for _, v := range m.vars {
				nv := nm.AddVar(v.LvIndex, v.StartOffset, v.LvtIndex, v.Name(srcID), names(v)...)
				nv.Comment = v.Comment
			}
		}
	}

	return out, nil
}

func copyOverrides(dst, src *member, ids []int) {
	for i, id := range ids[1:] {
		if d := src.descOverride(id); d != "" {
			dst.SetDesc(i+1, d)
		}
	}
}
