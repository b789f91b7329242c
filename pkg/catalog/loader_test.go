package catalog

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapstore/pkg/memory"
	"heapstore/pkg/types"
)

func writeCatalog(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "/db/catalog.txt", []byte(content), 0o644))
}

func TestParse_Basic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCatalog(t, fs, `
users (id int pk, name string)
orders (id int, user_id int)

# a comment line
`)

	defs, err := Parse(fs, "/db/catalog.txt")
	require.NoError(t, err)
	require.Len(t, defs, 2)

	users := defs[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "id", users.PrimaryKey)
	require.Equal(t, 2, users.Schema.NumFields())

	ft, err := users.Schema.TypeAtIndex(1)
	require.NoError(t, err)
	assert.Equal(t, types.StringType, ft)

	orders := defs[1]
	assert.Equal(t, "orders", orders.Name)
	assert.Empty(t, orders.PrimaryKey)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing parens", "users id int"},
		{"unknown type", "users (id float)"},
		{"missing type", "users (id)"},
		{"bad pk marker", "users (id int primary)"},
		{"empty name", "(id int)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeCatalog(t, fs, tt.line)

			_, err := Parse(fs, "/db/catalog.txt")
			assert.Error(t, err)
		})
	}
}

func TestLoad_RegistersTables(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeCatalog(t, fs, "users (id int pk, name string)\n")

	tm := memory.NewTableManager()
	require.NoError(t, Load(fs, tm, "/db/catalog.txt"))

	require.True(t, tm.TableExists("users"))

	id, err := tm.GetTableID("users")
	require.NoError(t, err)
	td, err := tm.TupleDesc(id)
	require.NoError(t, err)
	assert.Equal(t, 2, td.NumFields())

	// The data file was created beside the catalog.
	exists, err := afero.Exists(fs, "/db/users.dat")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoad_MissingCatalog(t *testing.T) {
	tm := memory.NewTableManager()
	assert.Error(t, Load(afero.NewMemMapFs(), tm, "/db/nope.txt"))
}
