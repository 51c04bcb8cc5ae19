package transform

import (
	"jarsmith/internal/access"
	"jarsmith/internal/classfile"
)

// AccessTransform applies access transformer rules.
func AccessTransform(rules *access.Rules) Transform {
	return func(c *classfile.Class, _ *Context) (bool, error) {
		return rules.Apply(c)
	}
}
