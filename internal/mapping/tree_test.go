package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeNamespacesFixed(t *testing.T) {
	tree, err := NewTree("obf", "named")
	require.NoError(t, err)

	err = tree.SetNamespaces([]string{"a", "b"})
	require.ErrorIs(t, err, ErrNamespacesFixed)

	_, err = NewTree("obf")
	require.Error(t, err)

	_, err = NewTree("obf", "obf")
	require.Error(t, err)

	_, err = tree.Namespace("srg")
	require.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestTreeMembersNeedOwner(t *testing.T) {
	tree, err := NewTree("obf", "named")
	require.NoError(t, err)

	_, err = tree.AddField("missing", "a", "I")
	require.ErrorIs(t, err, ErrUnknownOwner)

	_, err = tree.AddMethod("missing", "a", "()V")
	require.ErrorIs(t, err, ErrUnknownOwner)

	_, err = tree.AddClass("missing", "Present")
	require.NoError(t, err)

	f, err := tree.AddField("missing", "a", "I", "value")
	require.NoError(t, err)
	assert.Equal(t, "value", f.Name(1))

	_, err = tree.AddClass("missing")
	require.ErrorIs(t, err, ErrDuplicateClass)
}

func TestTreeFieldLookup(t *testing.T) {
	tree, err := NewTree("obf", "named")
	require.NoError(t, err)

	c, err := tree.AddClass("a", "Owner")
	require.NoError(t, err)

	c.AddField("f", "I", "count")
	c.AddField("f", "J", "total")

	assert.Equal(t, "count", tree.Field("a", "f", "I").Name(1))
	assert.Equal(t, "total", tree.Field("a", "f", "J").Name(1))
	assert.Equal(t, "count", tree.Field("a", "f", "").Name(1), "name-only lookup returns the first")
	assert.Equal(t, "count", tree.Field("a", "f", "Z").Name(1), "unknown descriptor falls back to name")
	assert.Nil(t, tree.Field("a", "g", ""))
	assert.Nil(t, tree.Field("b", "f", ""))
}

func TestClassByNameIndexInvalidation(t *testing.T) {
	tree, err := NewTree("obf", "named")
	require.NoError(t, err)

	c, err := tree.AddClass("a", "First")
	require.NoError(t, err)
	assert.Equal(t, c, tree.ClassByName(1, "First"))

	c.SetName(1, "Second")
	assert.Nil(t, tree.ClassByName(1, "First"))
	assert.Equal(t, c, tree.ClassByName(1, "Second"))
	assert.Equal(t, "Second", tree.MapClassName("a", 0, 1))
	assert.Equal(t, "a", tree.MapClassName("Second", 1, 0))
	assert.Equal(t, "unknown", tree.MapClassName("unknown", 0, 1))
}

func TestWithNamespaceCopiesDeep(t *testing.T) {
	tree, err := NewTree("obf", "named")
	require.NoError(t, err)

	c, err := tree.AddClass("a", "Owner")
	require.NoError(t, err)
	m := c.AddMethod("m", "(I)V", "run")
	m.AddArg(1, "", "times")

	out, id, err := tree.WithNamespace("extra")
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, []string{"obf", "named", "extra"}, out.Namespaces())

	oc := out.Class("a")
	require.NotNil(t, oc)
	assert.Equal(t, "Owner", oc.Name(1))
	assert.Equal(t, "a", oc.Name(2))
	assert.Equal(t, "times", out.Method("a", "m", "(I)V").Arg(1).Name(1))

	oc.SetName(2, "Other")
	assert.Equal(t, "", c.DstName(2), "original tree untouched")

	_, _, err = tree.WithNamespace("named")
	require.Error(t, err)
}

func TestTokenEquality(t *testing.T) {
	a := MethodToken("pkg/A", "run", "()V")
	b := MethodToken("pkg/A", "run", "()V")
	c := MethodToken("pkg/B", "run", "()V")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, FieldToken("pkg/A", "run", "()V").Key(), a.Key())

	seen := map[TokenKey]int{a.Key(): 1}
	assert.Equal(t, 1, seen[b.Key()])

	owner, ok := a.Owner()
	require.True(t, ok)
	assert.Equal(t, ClassToken("pkg/A"), owner)

	_, ok = FieldToken("", "field_1", "").Owner()
	assert.False(t, ok)
	assert.Equal(t, "pkg/A.run ()V", a.String())
}

func TestReorder(t *testing.T) {
	tree, err := NewTree("official", "intermediary", "named")
	require.NoError(t, err)

	world, err := tree.AddClass("a", "class_1", "pkg/World")
	require.NoError(t, err)

	_, err = tree.AddClass("b", "class_2", "")
	require.NoError(t, err)

	world.AddField("c", "Lb;", "field_3", "other")
	world.AddMethod("d", "()V", "method_4", "tick").AddArg(1, "", "", "delta")

	out, err := tree.Reorder("intermediary", "named")
	require.NoError(t, err)

	assert.Equal(t, []string{"intermediary", "named"}, out.Namespaces())

	c := out.Class("class_1")
	require.NotNil(t, c)
	assert.Equal(t, "pkg/World", c.Name(1))

	f := out.Field("class_1", "field_3", "Lclass_2;")
	require.NotNil(t, f, "descriptors are rewritten into the new source namespace")
	assert.Equal(t, "other", f.Name(1))

	m := out.Method("class_1", "method_4", "()V")
	require.NotNil(t, m)
	assert.Equal(t, "delta", m.Arg(1).Name(1))

	assert.Equal(t, "b", out.Class("class_2").DstName(1), "fallback names are written explicitly")

	_, err = tree.Reorder("srg")
	require.ErrorIs(t, err, ErrUnknownNamespace)
}
