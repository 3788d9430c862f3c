//nolint:gosec
package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUpward_ClosestWins(t *testing.T) {
	tmp := t.TempDir()
	outer := filepath.Join(tmp, "tusk-harness.yaml")
	require.NoError(t, os.WriteFile(outer, []byte("{}"), 0o600))

	nested := filepath.Join(tmp, "nested")
	inner := filepath.Join(nested, ".tusk", "harness.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(inner), 0o750))
	require.NoError(t, os.WriteFile(inner, []byte("{}"), 0o600))

	candidates := []string{".tusk/harness.yaml", "tusk-harness.yaml"}
	subdir := filepath.Join(nested, "src", "api")
	require.NoError(t, os.MkdirAll(subdir, 0o750))

	assert.Equal(t, inner, FindUpward(subdir, candidates))
	assert.Equal(t, outer, FindUpward(tmp, candidates))
	assert.Empty(t, FindUpward(tmp, []string{"missing.yaml"}))
}

func TestProjectRoot(t *testing.T) {
	assert.Equal(t, "/repo", ProjectRoot("/repo/.tusk/harness.yaml"))
	assert.Equal(t, "/repo/svc", ProjectRoot("/repo/svc/tusk-harness.yaml"))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".tusk/scenarios"), ResolvePath("/repo", ".tusk/scenarios"))
	assert.Equal(t, "/abs/dir", ResolvePath("/repo", "/abs/dir"))
	assert.Empty(t, ResolvePath("/repo", ""))
}

func TestListFiles(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "sub/c.YAML"} {
		path := filepath.Join(tmp, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	files, err := ListFiles(tmp, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmp, "a.yml"),
		filepath.Join(tmp, "b.yaml"),
		filepath.Join(tmp, "sub", "c.YAML"),
	}, files)

	_, err = ListFiles(filepath.Join(tmp, "missing"))
	assert.Error(t, err)
}
