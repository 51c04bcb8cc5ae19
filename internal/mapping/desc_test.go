package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renameTable(m map[string]string) func(string) string {
	return func(s string) string {
		if r, ok := m[s]; ok {
			return r
		}

		return s
	}
}

func TestMapDesc(t *testing.T) {
	fn := renameTable(map[string]string{"pkg/Obf": "pkg/Named", "a": "pkg/A"})

	tests := []struct {
		desc     string
		expected string
	}{
		{"I", "I"},
		{"Lpkg/Obf;", "Lpkg/Named;"},
		{"[[Lpkg/Obf;", "[[Lpkg/Named;"},
		{"(ILa;[J)Lpkg/Obf;", "(ILpkg/A;[J)Lpkg/Named;"},
		{"Ljava/lang/String;", "Ljava/lang/String;"},
		{"()V", "()V"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapDesc(tt.desc, fn))
		})
	}
}

func TestMapType(t *testing.T) {
	fn := renameTable(map[string]string{"a": "pkg/A"})

	assert.Equal(t, "pkg/A", MapType("a", fn))
	assert.Equal(t, "[Lpkg/A;", MapType("[La;", fn))
	assert.Equal(t, "[I", MapType("[I", fn))
}

func TestMapSignature(t *testing.T) {
	fn := renameTable(map[string]string{
		"a":   "pkg/Outer",
		"a$b": "pkg/Outer$Inner",
		"c":   "pkg/Thing",
	})

	tests := []struct {
		sig      string
		expected string
	}{
		{"Ljava/util/List<La;>;", "Ljava/util/List<Lpkg/Outer;>;"},
		{"<T:Lc;>(TT;[La;)Ljava/util/Map<-Lc;*>;", "<T:Lpkg/Thing;>(TT;[Lpkg/Outer;)Ljava/util/Map<-Lpkg/Thing;*>;"},
		{"<T::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;", "<T::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;"},
		{"La<TT;>.b<Lc;>;", "Lpkg/Outer<TT;>.Inner<Lpkg/Thing;>;"},
		{"(I)V^La;", "(I)V^Lpkg/Outer;"},
		{"Lbroken<", "Lbroken<"},
	}

	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSignature(tt.sig, fn))
		})
	}
}

func TestParseMethodDesc(t *testing.T) {
	args, ret, err := ParseMethodDesc("(I[JLjava/lang/String;D)[La;")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "[J", "Ljava/lang/String;", "D"}, args)
	assert.Equal(t, "[La;", ret)

	slots, err := ArgSlots("(IJLa;D)V")
	require.NoError(t, err)
	assert.Equal(t, 6, slots)

	for _, bad := range []string{"I", "(I", "(Q)V", "(La)V", "(I)"} {
		_, _, err := ParseMethodDesc(bad)
		assert.Error(t, err, bad)
	}
}
