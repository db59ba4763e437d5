package stores

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFeatures(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"checkout", "billing", ".git", "node_modules"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}
	// Plain files at the root are not features.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	features, err := listFeatures(root, []string{".*", "node_modules"})
	require.NoError(t, err, "listFeatures")
	assert.ElementsMatch(t, []string{"checkout", "billing"}, features)
}

func TestListFeatures_MissingRoot(t *testing.T) {
	features, err := listFeatures(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestReadWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	type doc struct {
		Name string `json:"name"`
	}

	require.NoError(t, writeJSON(path, doc{Name: "margin"}), "writeJSON")

	// No stray tmp file remains after the rename.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	var got doc
	require.NoError(t, readJSON(path, &got), "readJSON")
	assert.Equal(t, "margin", got.Name)

	// Output is indented for human diffing.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"name\"")
}

func TestReadJSON_MissingAndEmpty(t *testing.T) {
	var dest map[string]any

	err := readJSON(filepath.Join(t.TempDir(), "absent.json"), &dest)
	assert.True(t, os.IsNotExist(err))

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, readJSON(empty, &dest))
	assert.Nil(t, dest)
}

func TestListReviewFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"review-abc.json", "review-def.json", "index.json", "stray.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	names, err := listReviewFiles(dir)
	require.NoError(t, err, "listReviewFiles")
	assert.ElementsMatch(t, []string{"review-abc.json", "review-def.json"}, names)
}

func TestListReviewFiles_MissingDir(t *testing.T) {
	names, err := listReviewFiles(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
