package transform

import (
	"regexp"

	"jarsmith/internal/classfile"
	"jarsmith/internal/mapping"
)

// DefaultSyntheticParameterPattern matches the parameter names the vendor compiler emits for
// synthetic parameters ("$$0", "$$1", ...).
var DefaultSyntheticParameterPattern = regexp.MustCompile(`^\$\$\d+$`)

// StripParameterNames removes parameter names matching any pattern, both from MethodParameters
// (the name index is zeroed) and from the local variable tables (the entry is dropped). With no
// patterns, DefaultSyntheticParameterPattern is used.
func StripParameterNames(patterns ...*regexp.Regexp) Transform {
	if len(patterns) == 0 {
		patterns = []*regexp.Regexp{DefaultSyntheticParameterPattern}
	}

	matches := func(name string) bool {
		for _, p := range patterns {
			if p.MatchString(name) {
				return true
			}
		}

		return false
	}

	return func(c *classfile.Class, _ *Context) (bool, error) {
		changed := false

		for _, m := range c.Methods {
			ok, err := stripMethodParameters(c, m, matches)
			if err != nil {
				return false, err
			}

			changed = changed || ok

			ok, err = stripLocalVariables(c, m, matches)
			if err != nil {
				return false, err
			}

			changed = changed || ok
		}

		return changed, nil
	}
}

func stripMethodParameters(c *classfile.Class, m *classfile.Member, matches func(string) bool) (bool, error) {
	info, ok := m.Attributes.Get(c.Pool, classfile.AttrMethodParameters)
	if !ok {
		return false, nil
	}

	params, err := classfile.DecodeMethodParameters(info)
	if err != nil {
		return false, err
	}

	changed := false

	for i := range params {
		if params[i].NameIndex != 0 && matches(c.Pool.UTF8(params[i].NameIndex)) {
			params[i].NameIndex = 0
			changed = true
		}
	}

	if changed {
		m.Attributes.Set(c.Pool, classfile.AttrMethodParameters, classfile.EncodeMethodParameters(params))
	}

	return changed, nil
}

func stripLocalVariables(c *classfile.Class, m *classfile.Member, matches func(string) bool) (bool, error) {
	return editCode(c, m, func(code *classfile.Code) (bool, error) {
		changed := false

		for _, table := range []string{classfile.AttrLocalVariableTable, classfile.AttrLocalVariableTypeTable} {
			info, ok := code.Attributes.Get(c.Pool, table)
			if !ok {
				continue
			}

			vars, err := classfile.DecodeLocalVars(info)
			if err != nil {
				return false, err
			}

			kept := vars[:0]
			for _, v := range vars {
				if !matches(c.Pool.UTF8(v.NameIndex)) {
					kept = append(kept, v)
				}
			}

			if len(kept) != len(vars) {
				code.Attributes.Set(c.Pool, table, classfile.EncodeLocalVars(kept))
				changed = true
			}
		}

		return changed, nil
	})
}

// editCode decodes the Code attribute of m, runs fn and stores the result when fn reports a
// change. Methods without code are skipped.
func editCode(c *classfile.Class, m *classfile.Member, fn func(*classfile.Code) (bool, error)) (bool, error) {
	i := m.Attributes.Index(c.Pool, classfile.AttrCode)
	if i < 0 {
		return false, nil
	}

	code, err := classfile.DecodeCode(m.Attributes[i].Info)
	if err != nil {
		return false, err
	}

	changed, err := fn(code)
	if err != nil || !changed {
		return false, err
	}

	m.Attributes[i].Info = code.Encode()

	return true, nil
}

// argLocals returns the local variable index of every parameter of a method.
func argLocals(desc string, static bool) ([]int, error) {
	args, _, err := mapping.ParseMethodDesc(desc)
	if err != nil {
		return nil, err
	}

	lv := 1
	if static {
		lv = 0
	}

	out := make([]int, len(args))
	for i, a := range args {
		out[i] = lv
		lv += mapping.SlotSize(a)
	}

	return out, nil
}
