package access

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsmith/internal/classfile"
	"jarsmith/internal/mapping"
)

func mustParse(t *testing.T, src string) *Rules {
	t.Helper()

	r, err := Parse(strings.NewReader(src), "test.cfg")
	require.NoError(t, err)

	return r
}

func TestParse(t *testing.T) {
	r := mustParse(t, `# world access
public net.minecraft.World
public-f net.minecraft.World field_1 # drop final
protected net/minecraft/World func_2(ILnet/minecraft/Pos;)V
private+f net.minecraft.World *
public net.minecraft.World *()
`)

	assert.Equal(t, 5, r.Len())

	d, ok := r.Get(Target{Class: "net/minecraft/World", Member: "field_1"})
	require.True(t, ok)
	assert.Equal(t, Directive{Level: LevelPublic, Final: FinalRemove}, d)

	d, ok = r.Get(Target{Class: "net/minecraft/World", Member: "func_2", Desc: "(ILnet/minecraft/Pos;)V"})
	require.True(t, ok)
	assert.Equal(t, LevelProtected, d.Level)

	_, ok = r.Get(Target{Class: "net/minecraft/World", Member: "*", Desc: "()"})
	assert.True(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown access", "open net.minecraft.World"},
		{"missing class", "public"},
		{"too many columns", "public a b c"},
		{"bad method wildcard", "public a *(I)V"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("\n"+tt.line+"\n"), "at.cfg")
			require.ErrorIs(t, err, ErrInvalidRule)
			assert.Contains(t, err.Error(), "at.cfg:2")
		})
	}
}

func TestRules_MergeWidens(t *testing.T) {
	a := mustParse(t, "public a f\nprotected a g\nprivate+f a h\n")
	b := mustParse(t, "protected-f a f\npublic a g\ndefault a h\n")

	a.Merge(b)

	d, _ := a.Get(Target{Class: "a", Member: "f"})
	assert.Equal(t, Directive{Level: LevelPublic, Final: FinalRemove}, d)

	d, _ = a.Get(Target{Class: "a", Member: "g"})
	assert.Equal(t, Directive{Level: LevelPublic}, d)

	d, _ = a.Get(Target{Class: "a", Member: "h"})
	assert.Equal(t, Directive{Level: LevelPackage, Final: FinalAdd}, d)
}

func TestRules_WriteAndHash(t *testing.T) {
	a := mustParse(t, "public-f a.b.C field\npublic a.b.C\nprotected a.b.C m()V\n")
	b := mustParse(t, "protected a.b.C m()V\npublic a/b/C\npublic-f a/b/C field\n")

	var buf bytes.Buffer
	require.NoError(t, a.Write(&buf))
	assert.Equal(t, "public a.b.C\npublic-f a.b.C field\nprotected a.b.C m()V\n", buf.String())

	assert.Equal(t, a.Hash(), b.Hash())

	b.Add(Target{Class: "a/b/C", Member: "other"}, Directive{Level: LevelPublic})
	assert.NotEqual(t, a.Hash(), b.Hash())

	again := mustParse(t, buf.String())
	assert.Equal(t, a.Hash(), again.Hash())
}

func TestRules_Remap(t *testing.T) {
	tree, err := mapping.Read(strings.NewReader("tiny\t2\t0\tofficial\tintermediary\tnamed\n" +
		"c\ta\tclass_1\tpkg/World\n" +
		"\tf\tI\tb\tfield_2\ttime\n" +
		"\tm\t(La;)V\tc\tmethod_3\ttick\n" +
		"c\td\tclass_4\tpkg/Pos\n"))
	require.NoError(t, err)

	r := mustParse(t, `public class_1
public-f class_1 field_2
protected class_1 method_3(Lclass_1;)V
public class_1 *()
public class_9 unknown
`)

	out, err := r.Remap(tree, "intermediary", "named")
	require.NoError(t, err)

	assert.Equal(t, []Target{
		{Class: "class_9", Member: "unknown"},
		{Class: "pkg/World"},
		{Class: "pkg/World", Member: "*", Desc: "()"},
		{Class: "pkg/World", Member: "tick", Desc: "(Lpkg/World;)V"},
		{Class: "pkg/World", Member: "time"},
	}, out.Targets())

	_, err = r.Remap(tree, "intermediary", "srg")
	require.ErrorIs(t, err, mapping.ErrUnknownNamespace)
}

func TestRules_Apply(t *testing.T) {
	c := classfile.New("pkg/World$Inner", "java/lang/Object")
	c.Access = classfile.AccFinal | classfile.AccSuper
	c.Attributes.Set(c.Pool, classfile.AttrInnerClasses, classfile.EncodeInnerClasses([]classfile.InnerClass{{
		InnerClass: c.ThisClass,
		OuterClass: c.Pool.AddClass("pkg/World"),
		InnerName:  c.Pool.AddUTF8("Inner"),
		Access:     classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal,
	}}))

	time := c.AddField(classfile.AccPrivate|classfile.AccFinal, "time", "J")
	other := c.AddField(classfile.AccPublic, "other", "I")
	tick := c.AddMethod(classfile.AccPrivate, "tick", "()V")
	clinit := c.AddMethod(classfile.AccStatic, "<clinit>", "()V")
	ctor := c.AddMethod(classfile.AccPrivate, "<init>", "()V")

	r := mustParse(t, `protected-f pkg.World$Inner
public-f pkg.World$Inner time
private pkg.World$Inner other
protected pkg.World$Inner *()
`)

	changed, err := r.Apply(c)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, classfile.AccPublic|classfile.AccSuper, c.Access, "class files cannot be protected")
	assert.Equal(t, classfile.AccPublic, time.Access)
	assert.Equal(t, classfile.AccPublic, other.Access, "access is never narrowed")
	assert.Equal(t, classfile.AccProtected, tick.Access)
	assert.Equal(t, classfile.AccStatic, clinit.Access)
	assert.Equal(t, classfile.AccProtected, ctor.Access)

	info, _ := c.Attributes.Get(c.Pool, classfile.AttrInnerClasses)
	entries, err := classfile.DecodeInnerClasses(info)
	require.NoError(t, err)
	assert.Equal(t, classfile.AccProtected|classfile.AccStatic, entries[0].Access)

	changed, err = r.Apply(c)
	require.NoError(t, err)
	assert.False(t, changed, "applying twice changes nothing")
}
