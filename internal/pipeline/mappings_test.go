package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsmith/internal/config"
	"jarsmith/internal/mapping"
)

func writeText(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestBuildTree_MigrationSurvivesTinyFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Mappings{
		Base: writeText(t, dir, "base.tiny", "tiny\t2\t0\tofficial\tnamed\n"+
			"c\tpkg/Obf\tpkg/Named\n"+
			"c\towner\tpkg/Owner\n"+
			"\tf\tI\tfield1\tvalue\n"),
		Migration:          writeText(t, dir, "migration.txt", "owner field1 Lpkg/Obf;\n"),
		MigrationNamespace: "named",
	}

	tree, diags, err := BuildTree(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings)
	assert.Equal(t, "Lpkg/Named;", tree.Field("owner", "field1", "").Desc(1))

	data, err := mapping.Marshal(tree)
	require.NoError(t, err)

	again, err := mapping.Read(bytes.NewReader(data))
	require.NoError(t, err)

	f := again.Field("owner", "field1", "")
	require.NotNil(t, f)
	assert.Equal(t, "Lpkg/Named;", f.Desc(1))
	assert.Equal(t, "I", f.SrcDesc())
}

func TestBuildTree_NameTableMerge(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Mappings{
		Base: writeText(t, dir, "base.tiny", "tiny\t2\t0\tofficial\tsrg\n"+
			"c\ta\tnet/minecraft/Entity\n"+
			"\tm\t()V\tb\tfunc_70071_h_\n"+
			"c\tc\tnet/minecraft/Pig\n"+
			"\tm\t()V\tb\tfunc_70071_h_\n"),
		Merges: []config.Merge{{
			File:    writeText(t, dir, "methods.csv", "searge,name,side,desc\nfunc_70071_h_,onUpdate,2,\n"),
			Format:  "csv",
			From:    "srg",
			To:      "mcp",
			JoinKey: config.JoinMemberNameOnly,
		}},
	}

	tree, _, err := BuildTree(cfg, nil)
	require.NoError(t, err)

	mcp := tree.NamespaceID("mcp")
	assert.Equal(t, "onUpdate", tree.Method("a", "b", "()V").Name(mcp))
	assert.Equal(t, "onUpdate", tree.Method("c", "b", "()V").Name(mcp))
}
