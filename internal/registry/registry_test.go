package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/imma-etl/internal/imma"
)

func writeTestTables(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "country.tsv"),
		[]byte("code\tcountry\nUS\tUnited States\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "platform_type.tsv"),
		[]byte("code\tplatform\n5\tship\n"), 0o644))
	return dir
}

func TestRegistry_LoadEmbeddedSchema(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)

	bundle, err := r.Load("", writeTestTables(t))
	require.NoError(t, err)
	assert.Same(t, imma.DefaultSchema(), bundle.Schema)
	assert.NotNil(t, bundle.Decoder)
}

func TestRegistry_CachesByKey(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)
	tables := writeTestTables(t)

	first, err := r.Load("", tables)
	require.NoError(t, err)
	second, err := r.Load("", tables)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := r.Load("", writeTestTables(t))
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestRegistry_SchemaFile(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mini.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"sections":[{"id":"core","length":8,"fields":[{"name":"A","width":4,"kind":"int"}]}]}`), 0o644))

	bundle, err := r.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 8, bundle.Schema.Core().Length)
}

func TestRegistry_PropagatesLoadErrors(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)

	t.Run("bad schema file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"sections":[]}`), 0o644))
		_, err := r.Load(path, "")
		var schemaErr *imma.SchemaError
		assert.ErrorAs(t, err, &schemaErr)
	})

	t.Run("schema referencing tables with no store", func(t *testing.T) {
		_, err := r.Load("", "")
		var tableErr *imma.CodeTableError
		assert.ErrorAs(t, err, &tableErr)
	})
}
