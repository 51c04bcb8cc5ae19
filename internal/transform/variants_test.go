package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsmith/internal/classfile"
)

// lambdaCall returns code that creates a Runnable bound to owner.lambda through invokedynamic.
func lambdaCall(c *classfile.Class, lambda string) []byte {
	p := c.Pool

	handle := p.Add(classfile.Constant{
		Tag:  classfile.TagMethodHandle,
		Kind: 6,
		A:    p.AddMemberRef(classfile.TagMethodref, lambdaMetafactory, "metafactory", metafactoryDesc),
	})
	impl := p.Add(classfile.Constant{Tag: classfile.TagMethodHandle, Kind: 6, A: p.AddMemberRef(classfile.TagMethodref, c.Name(), lambda, "()V")})

	bsms, _ := bootstrapMethods(c)
	bsms = append(bsms, classfile.BootstrapMethod{MethodRef: handle, Args: []uint16{p.AddMethodType("()V"), impl, p.AddMethodType("()V")}})
	c.Attributes.Set(p, classfile.AttrBootstrapMethods, classfile.EncodeBootstrapMethods(bsms))

	indy := p.Add(classfile.Constant{Tag: classfile.TagInvokeDynamic, A: uint16(len(bsms) - 1), B: p.AddNameAndType("run", "()Ljava/lang/Runnable;")})

	return concat([]byte{classfile.OpInvokeDynamic}, u2(indy), []byte{0, 0, 0x57, 0xb1})
}

func variantFixtures(t *testing.T) (client, server *classfile.Class) {
	t.Helper()

	client = classfile.New("pkg/World", "java/lang/Object")
	client.Interfaces = append(client.Interfaces, client.Pool.AddClass("pkg/Ticking"))
	client.AddField(classfile.AccPrivate, "time", "J")
	client.AddField(classfile.AccPrivate, "renderer", "Lpkg/Renderer;")
	setCode(client, client.AddMethod(classfile.AccPublic, "tick", "()V"), lambdaCall(client, "lambda$tick$0"))
	client.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic, "lambda$tick$0", "()V")
	client.AddMethod(classfile.AccPublic, "render", "()V")

	server = classfile.New("pkg/World", "java/lang/Object")
	server.Interfaces = append(server.Interfaces,
		server.Pool.AddClass("pkg/Ticking"),
		server.Pool.AddClass("pkg/Saveable"))
	server.AddField(classfile.AccPrivate, "time", "J")
	server.AddField(classfile.AccPrivate, "players", "Ljava/util/List;")
	setCode(server, server.AddMethod(classfile.AccPublic, "tick", "()V"), lambdaCall(server, "lambda$tick$0"))
	server.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic, "lambda$tick$0", "()V")
	setCode(server, server.AddMethod(classfile.AccPublic, "save", "()V"), lambdaCall(server, "lambda$save$0"))
	setCode(server, server.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic, "lambda$save$0", "()V"),
		lambdaCall(server, "lambda$save$1"))
	server.AddMethod(classfile.AccPrivate|classfile.AccStatic|classfile.AccSynthetic, "lambda$save$1", "()V")

	return client, server
}

func TestMergeVariants(t *testing.T) {
	client, server := variantFixtures(t)

	require.NoError(t, MergeVariants(client, server, FabricSides))

	out := reparse(t, client)

	assert.Equal(t, []string{"pkg/Ticking", "pkg/Saveable"}, out.InterfaceNames())

	sideOf := func(attrs classfile.Attributes) string {
		s, ok := SideOf(out, attrs, FabricSides)
		if !ok {
			return "common"
		}

		return s.String()
	}

	assert.Equal(t, "common", sideOf(out.Field("time", "J").Attributes))
	assert.Equal(t, "client", sideOf(out.Field("renderer", "Lpkg/Renderer;").Attributes))
	assert.Equal(t, "server", sideOf(out.Field("players", "Ljava/util/List;").Attributes))
	assert.Equal(t, "common", sideOf(out.Method("tick", "()V").Attributes))
	assert.Equal(t, "client", sideOf(out.Method("render", "()V").Attributes))
	assert.Equal(t, "common", sideOf(out.Method("lambda$tick$0", "()V").Attributes), "synthetic members are not marked")

	save := out.Method("save", "()V")
	require.NotNil(t, save)
	assert.Equal(t, "server", sideOf(save.Attributes))

	// Both lambdas reachable from save are renamed past the client's lambda$tick$0.
	assert.Nil(t, out.Method("lambda$save$0", "()V"))
	outer := out.Method("lambda$save$1", "()V")
	inner := out.Method("lambda$save$2", "()V")
	require.NotNil(t, outer)
	require.NotNil(t, inner)
	assert.Equal(t, "common", sideOf(outer.Attributes))

	bsmInfo, ok := out.Attributes.Get(out.Pool, classfile.AttrBootstrapMethods)
	require.True(t, ok)

	bsms, err := classfile.DecodeBootstrapMethods(bsmInfo)
	require.NoError(t, err)

	target := func(m *classfile.Member) string {
		refs, err := lambdaRefs(out, m, bsms)
		require.NoError(t, err)
		require.Len(t, refs, 1)

		return refs[0].name
	}

	assert.Equal(t, "lambda$tick$0", target(out.Method("tick", "()V")))
	assert.Equal(t, "lambda$save$1", target(save))
	assert.Equal(t, "lambda$save$2", target(outer))
}

func TestMergeVariants_NameMismatch(t *testing.T) {
	client := classfile.New("pkg/A", "java/lang/Object")
	server := classfile.New("pkg/B", "java/lang/Object")

	require.Error(t, MergeVariants(client, server, FabricSides))
}

func TestMarkClass(t *testing.T) {
	c := classfile.New("pkg/DedicatedServer", "java/lang/Object")
	require.NoError(t, MarkClass(c, ForgeSides, SideServer))

	s, ok := SideOf(c, c.Attributes, ForgeSides)
	require.True(t, ok)
	assert.Equal(t, SideServer, s)
}

func TestLambdaNames(t *testing.T) {
	c := classfile.New("pkg/A", "java/lang/Object")
	assert.Equal(t, 0, nextLambdaIndex(c))

	c.AddMethod(classfile.AccSynthetic, "lambda$run$3", "()V")
	c.AddMethod(classfile.AccSynthetic, "lambda$new$1", "()V")
	c.AddMethod(classfile.AccSynthetic, "lambda$odd", "()V")
	assert.Equal(t, 4, nextLambdaIndex(c))

	assert.Equal(t, "lambda$run$7", renameLambda("lambda$run$3", 7))
	assert.Equal(t, "lambda$odd$2", renameLambda("lambda$odd", 2))
}
