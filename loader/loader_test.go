package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/matchprep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeCSV(t, "train.csv",
		"id,label,left_name,right_name\n"+
			"0,1,Samsung Galaxy S4,Samsung Galaxy IV\n"+
			"1,0,Apple iPhone 5,Nokia Lumia\n")

	ds, err := Load(path, core.RoleTrain, cfg)
	require.NoError(t, err)

	require.Len(t, ds.Examples, 2)
	assert.Equal(t, core.RoleTrain, ds.Role)
	assert.Equal(t, path, ds.Path)

	first := ds.Examples[0]
	assert.Equal(t, "0", first.ID)
	assert.Equal(t, 1, first.Label)
	assert.Equal(t, [][]string{{"samsung", "galaxy", "s4"}}, first.Left)
	assert.Equal(t, [][]string{{"samsung", "galaxy", "iv"}}, first.Right)

	// Input row order is preserved.
	assert.Equal(t, "1", ds.Examples[1].ID)
	assert.Equal(t, 0, ds.Examples[1].Label)
}

func TestLoad_EmptyFieldYieldsEmptyTokens(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeCSV(t, "train.csv",
		"label,left_name,right_name\n"+
			"1,,Nokia\n")

	ds, err := Load(path, core.RoleTrain, cfg)
	require.NoError(t, err)
	require.Len(t, ds.Examples, 1)
	assert.Empty(t, ds.Examples[0].Left[0])
	assert.Equal(t, [][]string{{"nokia"}}, ds.Examples[0].Right)
}

func TestLoad_MalformedLabel(t *testing.T) {
	cfg := core.DefaultConfig()

	tests := []struct {
		name  string
		label string
	}{
		{"not an integer", "yes"},
		{"out of range", "2"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, "train.csv",
				"label,left_name,right_name\n"+
					"1,a,b\n"+
					tt.label+",c,d\n")

			_, err := Load(path, core.RoleTrain, cfg)
			require.Error(t, err)

			var dfErr *core.DataFormatError
			require.ErrorAs(t, err, &dfErr)
			assert.Equal(t, 2, dfErr.Row)
			assert.Equal(t, path, dfErr.Path)
		})
	}
}

func TestLoad_RaggedRow(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeCSV(t, "train.csv",
		"label,left_name,right_name\n"+
			"1,a\n")

	_, err := Load(path, core.RoleTrain, cfg)
	var dfErr *core.DataFormatError
	require.ErrorAs(t, err, &dfErr)
	assert.Equal(t, 1, dfErr.Row)
}

func TestLoad_SchemaErrorPropagates(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeCSV(t, "train.csv", "label,left_name,right_name,bogus\n1,a,b,c\n")

	_, err := Load(path, core.RoleTrain, cfg)
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "bogus", schemaErr.Column)
}

func TestLoad_Unlabeled(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeCSV(t, "candidates.csv",
		"id,left_name,right_name\n"+
			"a1,Sony TV,Sony Television\n")

	ds, err := Load(path, core.RoleUnlabeled, cfg)
	require.NoError(t, err)
	require.Len(t, ds.Examples, 1)
	assert.Equal(t, core.NoLabel, ds.Examples[0].Label)
	assert.Equal(t, "a1", ds.Examples[0].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), core.RoleTrain, core.DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_TokenizerOptionsRespected(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Tokenizer = "alnum"
	cfg.Lowercase = false

	path := writeCSV(t, "train.csv",
		"label,left_name,right_name\n"+
			"1,\"EOS-5D, Mark III\",EOS 5D\n")

	ds, err := Load(path, core.RoleTrain, cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"EOS", "5D", "Mark", "III"}}, ds.Examples[0].Left)
}
