package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func sampleClass(t *testing.T) *Class {
	t.Helper()

	c := New("pkg/Sample", "java/lang/Object")
	c.Interfaces = append(c.Interfaces, c.Pool.AddClass("java/lang/Runnable"))

	f := c.AddField(AccPrivate|AccFinal, "count", "I")
	f.Attributes.Set(c.Pool, AttrConstantValue, EncodeU2(c.Pool.AddInteger(42)))

	m := c.AddMethod(AccPublic, "run", "()V")
	code := &Code{
		MaxStack:  1,
		MaxLocals: 1,
		Code:      concat([]byte{0x2a, OpGetField}, u2(c.Pool.AddMemberRef(TagFieldref, "pkg/Sample", "count", "I")), []byte{0x57, 0xb1}),
	}
	code.Attributes.Set(c.Pool, AttrLocalVariableTable, EncodeLocalVars([]LocalVar{
		{StartPC: 0, Length: 6, NameIndex: c.Pool.AddUTF8("this"), DescIndex: c.Pool.AddUTF8("Lpkg/Sample;")},
	}))
	m.Attributes.Set(c.Pool, AttrCode, code.Encode())
	m.Attributes.Set(c.Pool, "Custom", []byte{1, 2, 3})

	c.Attributes.Set(c.Pool, AttrSourceFile, EncodeU2(c.Pool.AddUTF8("Sample.java")))

	return c
}

func TestParse_RoundTrip(t *testing.T) {
	c := sampleClass(t)

	data, err := c.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	again, err := parsed.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	assert.Equal(t, "pkg/Sample", parsed.Name())
	assert.Equal(t, "java/lang/Object", parsed.SuperName())
	assert.Equal(t, []string{"java/lang/Runnable"}, parsed.InterfaceNames())

	run := parsed.Method("run", "()V")
	require.NotNil(t, run)

	custom, ok := run.Attributes.Get(parsed.Pool, "Custom")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, custom)

	info, ok := run.Attributes.Get(parsed.Pool, AttrCode)
	require.True(t, ok)

	code, err := DecodeCode(info)
	require.NoError(t, err)
	assert.Equal(t, info, code.Encode())

	lvt, ok := code.Attributes.Get(parsed.Pool, AttrLocalVariableTable)
	require.True(t, ok)

	vars, err := DecodeLocalVars(lvt)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "this", parsed.Pool.UTF8(vars[0].NameIndex))

	assert.Nil(t, parsed.Field("count", "J"))
	assert.NotNil(t, parsed.Field("count", "I"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("PK\x03\x04rest"))
	require.ErrorIs(t, err, ErrNotClassFile)

	_, err = Parse([]byte{0xCA})
	require.ErrorIs(t, err, ErrNotClassFile)

	data, err := sampleClass(t).Bytes()
	require.NoError(t, err)

	for _, cut := range []int{12, len(data) / 2, len(data) - 1} {
		_, err = Parse(data[:cut])
		require.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}

	_, err = Parse(append(data, 0))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestModifiedUTF8(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		encoded []byte
	}{
		{"ascii", "pkg/Foo", []byte("pkg/Foo")},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"two byte", "é", []byte{0xC3, 0xA9}},
		{"supplementary", "\U0001F600", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoded, EncodeModifiedUTF8(tt.value))

			decoded, err := DecodeModifiedUTF8(tt.encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
		})
	}

	_, err := DecodeModifiedUTF8([]byte{'a', 0})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeModifiedUTF8([]byte{0xC3})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestConstantPool_Interning(t *testing.T) {
	p := NewConstantPool()

	a := p.AddUTF8("a")
	assert.Equal(t, a, p.AddUTF8("a"))

	long := p.Add(Constant{Tag: TagLong, Bits: 7})
	next := p.AddUTF8("b")
	assert.Equal(t, long+2, next, "long constants take two slots")

	cls := p.AddClass("a")
	assert.Equal(t, "a", p.ClassName(cls))

	ref := p.AddMemberRef(TagMethodref, "a", "m", "()V")
	owner, name, desc := p.MemberRef(ref)
	assert.Equal(t, []string{"a", "m", "()V"}, []string{owner, name, desc})
	assert.Equal(t, ref, p.AddMemberRef(TagMethodref, "a", "m", "()V"))

	p.Set(a, Constant{Tag: TagUTF8, Str: "z"})
	assert.Equal(t, "z", p.ClassName(cls))
	assert.Equal(t, a, p.AddUTF8("z"), "the intern index follows Set")
}

func TestInstructions(t *testing.T) {
	// nop; tableswitch (2 padding bytes, default, low=0, high=1, 2 offsets); return
	code := concat(
		[]byte{0x00, 0xaa, 0, 0},
		binary.BigEndian.AppendUint32(nil, 23),
		binary.BigEndian.AppendUint32(nil, 0),
		binary.BigEndian.AppendUint32(nil, 1),
		binary.BigEndian.AppendUint32(nil, 23),
		binary.BigEndian.AppendUint32(nil, 23),
		[]byte{0xb1},
	)

	insns, err := Instructions(code)
	require.NoError(t, err)
	require.Len(t, insns, 3)
	assert.Equal(t, Instruction{PC: 1, Op: 0xaa, Len: 23}, insns[1])
	assert.Equal(t, 24, insns[2].PC)

	wide := []byte{0xc4, 0x84, 0, 1, 0, 5, 0xc4, 0x15, 0, 1, OpLdc, 9}
	insns, err = Instructions(wide)
	require.NoError(t, err)
	require.Len(t, insns, 3)
	assert.Equal(t, 6, insns[0].Len)
	assert.Equal(t, 4, insns[1].Len)
	assert.Equal(t, Instruction{PC: 10, Op: OpLdc, Len: 2, PoolIndex: 9, HasPool: true}, insns[2])

	_, err = Instructions([]byte{0xb6, 0})
	require.ErrorIs(t, err, ErrTruncated)

	_, err = Instructions([]byte{0xe0})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAnnotations_RoundTrip(t *testing.T) {
	p := NewConstantPool()

	anns := []Annotation{{
		Type: p.AddUTF8("Lpkg/Side;"),
		Elements: []ElementPair{
			{Name: p.AddUTF8("value"), Value: ElementValue{Tag: 'e', EnumType: p.AddUTF8("Lpkg/Env;"), EnumName: p.AddUTF8("CLIENT")}},
			{Name: p.AddUTF8("tags"), Value: ElementValue{Tag: '[', Values: []ElementValue{{Tag: 's', Const: p.AddUTF8("x")}}}},
		},
	}}

	decoded, err := DecodeAnnotations(EncodeAnnotations(anns))
	require.NoError(t, err)
	assert.Equal(t, anns, decoded)

	params := [][]Annotation{nil, anns}
	decodedParams, err := DecodeParameterAnnotations(EncodeParameterAnnotations(params))
	require.NoError(t, err)
	require.Len(t, decodedParams, 2)
	assert.Empty(t, decodedParams[0])
	assert.Equal(t, anns, decodedParams[1])

	_, err = DecodeAnnotations([]byte{0, 1, 0, 1, 0, 1, 0, 2, 'X'})
	require.ErrorIs(t, err, ErrMalformed)
}
