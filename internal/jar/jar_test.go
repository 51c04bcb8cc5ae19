package jar

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sample() *Archive {
	a := New()
	a.Put("pkg/A.class", []byte("class A"))
	a.Put("pkg/B.class", []byte("class B"))
	a.Put("pkg/sub/C.class", []byte("class C"))
	a.Put("assets/lang/en_us.json", []byte("{}"))
	a.Put("META-INF/MOJANGCS.SF", []byte("sig"))

	return a
}

func TestArchive_WriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()

	a := sample()
	require.NoError(t, a.SetTag("v1"))

	first := filepath.Join(dir, "first.jar")
	second := filepath.Join(dir, "nested", "second.jar")

	require.NoError(t, a.Write(first))
	require.NoError(t, a.Clone().Write(second))

	b1, err := os.ReadFile(first)
	require.NoError(t, err)
	b2, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	back, err := Read(first)
	require.NoError(t, err)
	assert.Equal(t, a.Names(), back.Names())

	data, ok := back.Get("pkg/sub/C.class")
	require.True(t, ok)
	assert.Equal(t, "class C", string(data))

	tag, err := ReadTag(first)
	require.NoError(t, err)
	assert.Equal(t, "v1", tag)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temporary files are cleaned up")
	}
}

func TestArchive_Classes(t *testing.T) {
	a := sample()
	a.Put("META-INF/versions/9/module-info.class", []byte{})

	assert.Equal(t, []string{"pkg/A.class", "pkg/B.class", "pkg/sub/C.class"}, a.Classes())
	assert.Equal(t, "pkg/sub/C", ClassName("pkg/sub/C.class"))
	assert.Equal(t, "pkg/A.class", EntryName("pkg/A"))
}

func TestManifest(t *testing.T) {
	long := strings.Repeat("x", 100)

	m := NewManifest()
	m.Set("Main-Class", "pkg.Main")
	m.Set(AttrVersionTag, long)
	m.Sections = "Name: pkg/A.class\nSHA-256-Digest: abc\n"

	data := m.Bytes()
	for _, line := range strings.Split(string(data), "\r\n") {
		assert.LessOrEqual(t, len(line), 72)
	}

	back, err := ParseManifest(data)
	require.NoError(t, err)

	v, ok := back.Get("main-class")
	require.True(t, ok)
	assert.Equal(t, "pkg.Main", v)

	v, _ = back.Get(AttrVersionTag)
	assert.Equal(t, long, v)
	assert.Equal(t, "Name: pkg/A.class\nSHA-256-Digest: abc\n", back.Sections)

	_, err = ParseManifest([]byte("not an attribute\n"))
	require.Error(t, err)
}

func TestReadTag_NoManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jar")
	require.NoError(t, sample().Write(path))

	tag, err := ReadTag(path)
	require.NoError(t, err)
	assert.Empty(t, tag)

	_, err = ReadTag(filepath.Join(t.TempDir(), "missing.jar"))
	require.Error(t, err)
}

func TestTransformClasses(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := sample()

	var calls atomic.Int32

	err := TransformClasses(context.Background(), a, 2, func(_ context.Context, name string, data []byte) ([]byte, error) {
		calls.Add(1)

		if name == "pkg/B.class" {
			return nil, nil
		}

		return bytes.ToUpper(data), nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load(), "only class files are visited")
	assert.False(t, a.Has("pkg/B.class"))

	data, _ := a.Get("pkg/A.class")
	assert.Equal(t, "CLASS A", string(data))

	data, _ = a.Get("assets/lang/en_us.json")
	assert.Equal(t, "{}", string(data))
}

func TestTransformClasses_FirstErrorLeavesArchiveUntouched(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := sample()
	boom := errors.New("boom")

	err := TransformClasses(context.Background(), a, 0, func(_ context.Context, name string, data []byte) ([]byte, error) {
		if name == "pkg/sub/C.class" {
			return nil, boom
		}

		return []byte("changed"), nil
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "pkg/sub/C.class")

	data, _ := a.Get("pkg/A.class")
	assert.Equal(t, "class A", string(data))
}

func TestUnion(t *testing.T) {
	primary := New()
	primary.Put("pkg/A.class", []byte("patched A"))

	assert.Equal(t, 4, Union(primary, sample()))

	data, _ := primary.Get("pkg/A.class")
	assert.Equal(t, "patched A", string(data))
	assert.Equal(t, 5, primary.Len())
}

func TestFilter(t *testing.T) {
	out, err := Filter(sample(), []string{"pkg/**", "assets/**"}, []string{"pkg/sub/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/lang/en_us.json", "pkg/A.class", "pkg/B.class"}, out.Names())

	out, err = Filter(sample(), nil, []string{"META-INF/*.SF"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())

	_, err = Filter(sample(), []string{"pkg/[a"}, nil)
	require.Error(t, err)
}
