package toolexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRunner(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}

	r := NewOSRunner()
	dir := t.TempDir()

	out, err := r.RunInDir(context.Background(), dir, "/bin/sh", "-c", "pwd; echo err >&2")
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, string(out), resolved)
	assert.Contains(t, string(out), "err")

	_, err = r.Run(context.Background(), "/bin/sh", "-c", "echo broken; exit 3")

	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exit.Code)
	assert.Contains(t, exit.Error(), "broken")

	_, err = r.Run(context.Background(), filepath.Join(dir, "missing-tool"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &exit))
}

func TestMockRunner(t *testing.T) {
	m := NewMockRunner()

	var seen []string

	m.AddResponse("java", Response{
		Output: []byte("ok"),
		Effect: func(args []string) error {
			seen = args
			return nil
		},
	})
	m.AddResponse("fail", Response{Err: &ExitError{Command: "fail", Code: 1}})

	out, err := m.RunInDir(context.Background(), "/work", "java", "-jar", "tool.jar")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, []string{"-jar", "tool.jar"}, seen)

	_, err = m.Run(context.Background(), "fail")
	require.Error(t, err)

	_, err = m.Run(context.Background(), "unknown")
	require.NoError(t, err)

	assert.Equal(t, []Call{
		{Name: "java", Args: []string{"-jar", "tool.jar"}, Dir: "/work"},
		{Name: "fail"},
		{Name: "unknown"},
	}, m.Calls())
}
