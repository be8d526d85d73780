package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONAtomicAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	in := map[string]any{"exam": "gate", "files": 2.0}
	require.NoError(t, WriteJSONAtomic(path, in))
	require.NoError(t, WriteJSONAtomic(path, map[string]any{"exam": "cat"}))

	var out map[string]any
	require.NoError(t, ReadJSON(path, &out))
	require.Equal(t, "cat", out["exam"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCopyAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	n, err := CopyAtomic(path, strings.NewReader("hello"))
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestEmptyPaths(t *testing.T) {
	require.Error(t, EnsureDir(""))
	require.Error(t, WriteJSONAtomic("", 1))
	require.Error(t, ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &struct{}{}))
}
