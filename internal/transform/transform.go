package transform

import (
	"fmt"

	"go.uber.org/zap"

	"jarsmith/internal/classfile"
	"jarsmith/internal/mapping"
)

// Context is the per-class input of a transform.
type Context struct {
	// ClassName is the internal name of the class as it was read, before any transform ran.
	ClassName string
	// Tree is the active mapping tree, if the transform needs one.
	Tree *mapping.Tree
	// Hook observes renames. May be nil.
	Hook DebugHook
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Transform rewrites a class in place and reports whether it changed anything.
type Transform func(c *classfile.Class, ctx *Context) (bool, error)

// Chain runs transforms in order. The chain reports a change when any transform did.
func Chain(ts ...Transform) Transform {
	return func(c *classfile.Class, ctx *Context) (bool, error) {
		changed := false

		for _, t := range ts {
			ok, err := t(c, ctx)
			if err != nil {
				return false, err
			}

			changed = changed || ok
		}

		return changed, nil
	}
}

// ApplyBytes parses a class file, runs t and serializes the result. Unchanged classes are
// returned byte for byte.
func ApplyBytes(data []byte, ctx Context, t Transform) ([]byte, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}

	ctx.ClassName = c.Name()

	changed, err := t(c, &ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", ctx.ClassName, err)
	}

	if !changed {
		return data, nil
	}

	return c.Bytes()
}

// eachMember calls fn for every field and method of c.
func eachMember(c *classfile.Class, fn func(m *classfile.Member, method bool) (bool, error)) (bool, error) {
	changed := false

	for _, f := range c.Fields {
		ok, err := fn(f, false)
		if err != nil {
			return false, fmt.Errorf("field %s: %w", c.MemberName(f), err)
		}

		changed = changed || ok
	}

	for _, m := range c.Methods {
		ok, err := fn(m, true)
		if err != nil {
			return false, fmt.Errorf("method %s%s: %w", c.MemberName(m), c.MemberDesc(m), err)
		}

		changed = changed || ok
	}

	return changed, nil
}
