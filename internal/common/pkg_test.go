package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassNames(t *testing.T) {
	assert.Equal(t, "net/minecraft/World", InternalName("net.minecraft.World"))
	assert.Equal(t, "net/minecraft/World$1.class", ClassFilePath("net/minecraft/World$1"))

	name, ok := ClassNameFromPath("a/B.class")
	assert.True(t, ok)
	assert.Equal(t, "a/B", name)

	_, ok = ClassNameFromPath("META-INF/MANIFEST.MF")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
