package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsmith/internal/mapping"
	"jarsmith/internal/pipeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writeTiny(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestMappingsInherit(t *testing.T) {
	dir := t.TempDir()
	in := writeTiny(t, dir, "in.tiny", "tiny\t2\t0\tofficial\tnamed\n"+
		"c\ta\tpkg/Outer\n"+
		"c\ta$b\t\n")
	out := filepath.Join(dir, "out.tiny")

	_, err := execute(t, "mappings", "inherit", in, "--to", "named", "-o", out)
	require.NoError(t, err)

	tree, err := mapping.LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "pkg/Outer$b", tree.Class("a$b").Name(1))
}

func TestMappingsMerge(t *testing.T) {
	dir := t.TempDir()
	primary := writeTiny(t, dir, "base.tiny", "tiny\t2\t0\tofficial\tintermediary\n"+
		"c\ta\tclass_1\n")
	doc := writeTiny(t, dir, "named.tiny", "tiny\t2\t0\tintermediary\tnamed\n"+
		"c\tclass_1\tpkg/World\n")
	out := filepath.Join(dir, "out.tiny")

	_, err := execute(t, "mappings", "merge", primary, doc, "--from", "intermediary", "--to", "named", "-o", out)
	require.NoError(t, err)

	tree, err := mapping.LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"official", "intermediary", "named"}, tree.Namespaces())
	assert.Equal(t, "pkg/World", tree.Class("a").Name(2))
}

func TestMappingsMerge_RequiresNamespaces(t *testing.T) {
	_, err := execute(t, "mappings", "merge", "a.tiny", "b.tiny", "-o", "out.tiny")
	require.Error(t, err)
}

func TestSetup_MissingConfig(t *testing.T) {
	_, err := execute(t, "setup", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMappingsReorder(t *testing.T) {
	dir := t.TempDir()
	in := writeTiny(t, dir, "in.tiny", "tiny\t2\t0\tofficial\tintermediary\tnamed\n"+
		"c\ta\tclass_1\tpkg/World\n")
	out := filepath.Join(dir, "out.tiny")

	_, err := execute(t, "mappings", "reorder", in, "--src", "intermediary", "-o", out)
	require.NoError(t, err)

	tree, err := mapping.LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"intermediary", "official", "named"}, tree.Namespaces())
	assert.Equal(t, "a", tree.Class("class_1").Name(1))
	assert.Equal(t, "pkg/World", tree.Class("class_1").Name(2))
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer

	cmd := rootCmd()
	cmd.SetOut(&out)

	printReport(cmd, &pipeline.Report{Stages: []pipeline.StageReport{
		{Stage: "strip", Scheduled: true, Ran: true, Reason: "output missing"},
		{Stage: "remap", Scheduled: true, Reason: "after dirty stage strip"},
		{Stage: "tag"},
	}})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "ran")
	assert.Contains(t, lines[2], "not run")
	assert.Contains(t, lines[3], "up to date")
}
