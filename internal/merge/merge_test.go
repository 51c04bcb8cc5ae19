package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsmith/internal/mapping"
)

const primaryTiny = "tiny\t2\t0\tofficial\tintermediary\tnamed\n" +
	"c\ta\tclass_1\tpkg/World\n" +
	"\tf\tI\tb\tfield_2\ttime\n" +
	"\tm\t()V\tc\tmethod_3\ttick\n" +
	"\tm\t(I)V\td\tmethod_4\t\n" +
	"c\te\tclass_5\tpkg/Entity\n" +
	"\tm\t()V\tf\tmethod_6\tremove\n"

func loadPrimary(t *testing.T) *mapping.Tree {
	t.Helper()

	tree, err := mapping.Read(strings.NewReader(primaryTiny))
	require.NoError(t, err)

	return tree
}

// cells returns every non-empty raw destination name of the given namespaces, keyed by row.
func cells(tree *mapping.Tree, namespaces ...string) map[string]string {
	out := make(map[string]string)

	add := func(row string, n interface{ DstName(int) string }) {
		for _, ns := range namespaces {
			if v := n.DstName(tree.NamespaceID(ns)); v != "" {
				out[row+"@"+ns] = v
			}
		}
	}

	for _, c := range tree.Classes() {
		add(c.SrcName(), c)

		for _, f := range c.Fields() {
			add(c.SrcName()+"."+f.SrcName()+f.SrcDesc(), f)
		}

		for _, m := range c.Methods() {
			add(c.SrcName()+"."+m.SrcName()+m.SrcDesc(), m)
		}
	}

	return out
}

func TestMergeNamespace_IdentityLeavesColumnsUnchanged(t *testing.T) {
	primary := loadPrimary(t)
	before := cells(primary, "intermediary", "named")

	for _, target := range []string{"named", "extra"} {
		t.Run(target, func(t *testing.T) {
			identity := &Document{Source: "intermediary", Target: target}
			for _, c := range primary.Classes() {
				identity.Add(mapping.TokenOf(c, 1), c.Name(1))

				for _, m := range c.Methods() {
					identity.Add(mapping.TokenOf(m, 1), m.Name(1))
				}
			}

			out, diags, err := MergeNamespace(primary, identity, Options{
				JoinNamespace:   "intermediary",
				TargetNamespace: target,
			})
			require.NoError(t, err)
			assert.Empty(t, diags.Warnings)

			after := cells(out, "intermediary", "named")
			for row, name := range before {
				assert.Equal(t, name, after[row], row)
			}
		})
	}
}

func TestMergeNamespace_AddsColumnFromNameTable(t *testing.T) {
	primary := loadPrimary(t)

	entries, err := mapping.ReadNameTable(strings.NewReader(
		"searge,name,side,desc\n" +
			"field_2,worldTime,0,\n" +
			"method_3,updateWorld,0,\n"))
	require.NoError(t, err)

	doc := FromNameTable(entries, "intermediary", "mcp")

	// Name tables cannot match classes, so only members join.
	out, diags, err := MergeNamespace(primary, doc, Options{
		JoinNamespace:   "intermediary",
		TargetNamespace: "mcp",
		JoinKey:         MemberNameOnly,
	})
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings)

	mcp := out.NamespaceID("mcp")
	require.Equal(t, 3, mcp)
	assert.Equal(t, "worldTime", out.Field("a", "b", "I").Name(mcp))
	assert.Equal(t, "updateWorld", out.Method("a", "c", "()V").Name(mcp))
	assert.Equal(t, "", out.Method("a", "d", "(I)V").DstName(mcp))

	assert.Equal(t, -1, primary.NamespaceID("mcp"), "primary tree untouched")
}

func TestMergeNamespace_NameTableCoversOverrides(t *testing.T) {
	tree, err := mapping.NewTree("official", "srg")
	require.NoError(t, err)

	entity, err := tree.AddClass("a", "net/minecraft/Entity")
	require.NoError(t, err)
	entity.AddMethod("b", "()V", "func_70071_h_")

	pig, err := tree.AddClass("c", "net/minecraft/Pig")
	require.NoError(t, err)
	pig.AddMethod("b", "()V", "func_70071_h_")
	pig.AddMethod("d", "()V", "func_70619_bc")

	entries, err := mapping.ReadNameTable(strings.NewReader(
		"searge,name,side,desc\n" +
			"func_70071_h_,onUpdate,2,\n"))
	require.NoError(t, err)

	doc := FromNameTable(entries, "srg", "mcp")

	out, diags, err := MergeNamespace(tree, doc, Options{
		JoinNamespace:   "srg",
		TargetNamespace: "mcp",
		JoinKey:         MemberNameOnly,
	})
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings)

	mcp := out.NamespaceID("mcp")
	assert.Equal(t, "onUpdate", out.Method("a", "b", "()V").Name(mcp))
	assert.Equal(t, "onUpdate", out.Method("c", "b", "()V").Name(mcp))
	assert.Equal(t, "", out.Method("c", "d", "()V").DstName(mcp))

	_, _, err = MergeNamespace(tree, doc, Options{JoinNamespace: "srg", TargetNamespace: "mcp"})
	require.ErrorIs(t, err, ErrMappingInconsistency, "owned join keys never match owner-less records")
}

func TestMergeNamespace_OwnedKeyMatchingSeveralRows(t *testing.T) {
	tree, err := mapping.NewTree("official", "intermediary")
	require.NoError(t, err)

	c, err := tree.AddClass("a", "class_1")
	require.NoError(t, err)
	c.AddField("x", "I", "field_1")
	c.AddField("y", "J", "field_1")

	doc := &Document{Source: "intermediary", Target: "named"}
	doc.Add(mapping.FieldToken("class_1", "field_1", ""), "value")

	_, _, err = MergeNamespace(tree, doc, Options{
		JoinNamespace:   "intermediary",
		TargetNamespace: "named",
		JoinKey:         IgnoreFieldDescriptor,
	})
	require.ErrorIs(t, err, ErrMappingInconsistency)
}

func TestMergeNamespace_TryMatchRegardlessOfRenames(t *testing.T) {
	primary := loadPrimary(t)

	// The authoritative source renamed method_3 to "tick" before exporting its document, so the
	// record carries the named-namespace method name with intermediary owner and descriptor.
	doc := &Document{Source: "intermediary", Target: "yarn"}
	doc.Add(mapping.MethodToken("class_1", "tick", "()V"), "tickWorld")
	doc.Add(mapping.MethodToken("class_5", "method_6", "()V"), "discard")

	opts := Options{
		JoinNamespace:   "intermediary",
		TargetNamespace: "yarn",
	}

	_, _, err := MergeNamespace(primary, doc, opts)
	require.ErrorIs(t, err, ErrMappingInconsistency, "tier 1 alone cannot place the renamed method")

	opts.TryMatchRegardlessOfRenames = true
	opts.FallbackNamespace = "named"

	out, diags, err := MergeNamespace(primary, doc, opts)
	require.NoError(t, err)

	yarn := out.NamespaceID("yarn")
	assert.Equal(t, "tickWorld", out.Method("a", "c", "()V").Name(yarn))
	assert.Equal(t, "discard", out.Method("e", "f", "()V").Name(yarn))
	assert.Len(t, diags.WithCode(CodeFallbackMatch), 1, "only the renamed record uses tier 2")
}

func TestMergeNamespace_FallbackAmbiguityFirstWins(t *testing.T) {
	tree, err := mapping.NewTree("official", "intermediary", "named")
	require.NoError(t, err)

	c, err := tree.AddClass("a", "class_1", "pkg/A")
	require.NoError(t, err)
	c.AddMethod("x", "()V", "method_1", "run")
	c.AddMethod("y", "()V", "method_2", "run")

	doc := &Document{Source: "intermediary", Target: "yarn"}
	doc.Add(mapping.MethodToken("class_1", "run", "()V"), "execute")

	out, diags, err := MergeNamespace(tree, doc, Options{
		JoinNamespace:               "intermediary",
		TargetNamespace:             "yarn",
		TryMatchRegardlessOfRenames: true,
		FallbackNamespace:           "named",
	})
	require.NoError(t, err)

	yarn := out.NamespaceID("yarn")
	assert.Equal(t, "execute", out.Method("a", "x", "()V").Name(yarn))
	assert.Equal(t, "", out.Method("a", "y", "()V").DstName(yarn))

	ambiguous := diags.WithCode(CodeAmbiguousFallback)
	require.Len(t, ambiguous, 1)
	assert.Equal(t, []string{"method_1", "method_2"}, ambiguous[0].Suggestions)
}

func TestMergeNamespace_LenientDropsUnmatched(t *testing.T) {
	primary := loadPrimary(t)

	doc := &Document{Source: "intermediary", Target: "yarn"}
	doc.Add(mapping.FieldToken("class_1", "field_9", "I"), "ghost")
	doc.Add(mapping.FieldToken("class_1", "field_2", "I"), "time")

	_, _, err := MergeNamespace(primary, doc, Options{JoinNamespace: "intermediary", TargetNamespace: "yarn"})

	var inc *InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "field_9", inc.Token.Name())

	out, diags, err := MergeNamespace(primary, doc, Options{
		JoinNamespace:   "intermediary",
		TargetNamespace: "yarn",
		Lenient:         true,
	})
	require.NoError(t, err)

	dropped := diags.WithCode(CodeUnmatchedRecord)
	require.Len(t, dropped, 1)
	assert.Equal(t, "class_1", dropped[0].Class)
	assert.Equal(t, []string{"field_2"}, dropped[0].Suggestions)
	assert.Equal(t, "time", out.Field("a", "b", "I").Name(out.NamespaceID("yarn")))
}

func TestMergeNamespace_Failures(t *testing.T) {
	primary := loadPrimary(t)

	dup := &Document{Source: "intermediary", Target: "yarn"}
	dup.Add(mapping.ClassToken("class_1"), "World")
	dup.Add(mapping.ClassToken("class_1"), "Level")

	_, _, err := MergeNamespace(primary, dup, Options{JoinNamespace: "intermediary", TargetNamespace: "yarn"})
	require.ErrorIs(t, err, ErrMappingInconsistency)

	same := &Document{Source: "intermediary", Target: "yarn"}
	same.Add(mapping.ClassToken("class_1"), "World")
	same.Add(mapping.ClassToken("class_1"), "World")

	_, _, err = MergeNamespace(primary, same, Options{JoinNamespace: "intermediary", TargetNamespace: "yarn"})
	require.NoError(t, err, "repeated identical records are not a collision")

	_, _, err = MergeNamespace(primary, same, Options{JoinNamespace: "srg", TargetNamespace: "yarn"})
	require.ErrorIs(t, err, ErrMissingNamespace)

	_, _, err = MergeNamespace(primary, same, Options{JoinNamespace: "intermediary", TargetNamespace: "mcp"})
	require.ErrorIs(t, err, ErrMissingNamespace)

	_, _, err = MergeNamespace(primary, same, Options{
		JoinNamespace:               "intermediary",
		TargetNamespace:             "yarn",
		TryMatchRegardlessOfRenames: true,
		FallbackNamespace:           "hashed",
	})
	require.ErrorIs(t, err, ErrMissingNamespace)
}

func TestMergeNamespace_FromTreeWithoutFieldDescriptors(t *testing.T) {
	primary := loadPrimary(t)

	srg, err := mapping.ReadTSRG(strings.NewReader(
		"class_1 net/minecraft/World\n"+
			"\tfield_2 f_46441_\n"+
			"\tmethod_3 ()V m_8793_\n"), "intermediary", "srg")
	require.NoError(t, err)

	doc, err := FromTree(srg, "intermediary", "srg")
	require.NoError(t, err)

	out, _, err := MergeNamespace(primary, doc, Options{
		JoinNamespace:   "intermediary",
		TargetNamespace: "srg",
		JoinKey:         IgnoreFieldDescriptor,
	})
	require.NoError(t, err)

	id := out.NamespaceID("srg")
	assert.Equal(t, "net/minecraft/World", out.Class("a").Name(id))
	assert.Equal(t, "f_46441_", out.Field("a", "b", "I").Name(id))
	assert.Equal(t, "m_8793_", out.Method("a", "c", "()V").Name(id))

	_, err = FromTree(srg, "intermediary", "named")
	require.ErrorIs(t, err, ErrMissingNamespace)
}
