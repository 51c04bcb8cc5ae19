package transform

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"jarsmith/internal/classfile"
)

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

func setCode(c *classfile.Class, m *classfile.Member, body []byte, locals ...classfile.LocalVar) {
	code := &classfile.Code{MaxStack: 4, MaxLocals: 8, Code: body}
	if len(locals) > 0 {
		code.Attributes.Set(c.Pool, classfile.AttrLocalVariableTable, classfile.EncodeLocalVars(locals))
	}

	m.Attributes.Set(c.Pool, classfile.AttrCode, code.Encode())
}

func localVar(c *classfile.Class, index uint16, name, desc string) classfile.LocalVar {
	return classfile.LocalVar{Length: 4, Index: index, NameIndex: c.Pool.AddUTF8(name), DescIndex: c.Pool.AddUTF8(desc)}
}

func localVars(t *testing.T, c *classfile.Class, m *classfile.Member) map[uint16][2]string {
	t.Helper()

	info, ok := m.Attributes.Get(c.Pool, classfile.AttrCode)
	require.True(t, ok)

	code, err := classfile.DecodeCode(info)
	require.NoError(t, err)

	out := make(map[uint16][2]string)

	lvt, ok := code.Attributes.Get(c.Pool, classfile.AttrLocalVariableTable)
	if !ok {
		return out
	}

	vars, err := classfile.DecodeLocalVars(lvt)
	require.NoError(t, err)

	for _, v := range vars {
		out[v.Index] = [2]string{c.Pool.UTF8(v.NameIndex), c.Pool.UTF8(v.DescIndex)}
	}

	return out
}

func annotationTypes(t *testing.T, c *classfile.Class, attrs classfile.Attributes, name string) []string {
	t.Helper()

	info, ok := attrs.Get(c.Pool, name)
	if !ok {
		return nil
	}

	anns, err := classfile.DecodeAnnotations(info)
	require.NoError(t, err)

	out := make([]string, len(anns))
	for i, a := range anns {
		out[i] = c.Pool.UTF8(a.Type)
	}

	return out
}

func sideAnnotation(c *classfile.Class, v SideVocabulary, side Side) classfile.Annotation {
	return v.annotation(c.Pool, side)
}

func reparse(t *testing.T, c *classfile.Class) *classfile.Class {
	t.Helper()

	data, err := c.Bytes()
	require.NoError(t, err)

	out, err := classfile.Parse(data)
	require.NoError(t, err)

	return out
}
