package gdiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	source := []byte("hello, old world")

	w := NewWriter()
	w.Copy(0, 7)
	w.Data([]byte("new"))
	w.Copy(10, 6)

	out, err := Apply(source, w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello, new world", string(out))
}

func TestApply_Encodings(t *testing.T) {
	source := bytes.Repeat([]byte("0123456789"), 7000)
	literal := bytes.Repeat([]byte{'x'}, 70000)

	w := NewWriter()
	w.Data(literal[:300])
	w.Data(literal)
	w.Copy(65600, 10)
	w.Copy(5, 300)
	w.Copy(0, 66000)
	w.Copy(65536, 1000)

	want := concat(literal[:300], literal, source[65600:65610], source[5:305], source[:66000], source[65536:66536])

	out, err := Apply(source, w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		delta []byte
		err   error
	}{
		{"empty", nil, ErrFormat},
		{"bad magic", []byte{0xCA, 0xFE, 0xBA, 0xBE, 4, 0}, ErrFormat},
		{"bad version", []byte{0xD1, 0xFF, 0xD1, 0xFF, 5, 0}, ErrFormat},
		{"no end", []byte{0xD1, 0xFF, 0xD1, 0xFF, 4, 1, 'a'}, ErrCorrupt},
		{"short data", []byte{0xD1, 0xFF, 0xD1, 0xFF, 4, 5, 'a'}, ErrCorrupt},
		{"copy past end", []byte{0xD1, 0xFF, 0xD1, 0xFF, 4, cmdCopyUshortByte, 0, 2, 9, 0}, ErrCorrupt},
		{"truncated copy", []byte{0xD1, 0xFF, 0xD1, 0xFF, 4, cmdCopyIntInt, 0, 0}, ErrCorrupt},
		{"negative length", []byte{0xD1, 0xFF, 0xD1, 0xFF, 4, cmdDataInt, 0xFF, 0xFF, 0xFF, 0xFF, 0}, ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply([]byte("abc"), tt.delta)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
