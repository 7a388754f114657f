package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_add_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
		"m/001_schema.sql":    {Data: []byte("CREATE TABLE t (a INT);")},
		"m/README.md":         {Data: []byte("ignored")},
	}
	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001_schema", got[0].Version)
	assert.Equal(t, "002_add_index", got[1].Version)
	assert.Contains(t, got[0].SQL, "CREATE TABLE")
}

func TestEmbeddedMigrationsCreateEveryTable(t *testing.T) {
	got, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "001_schema", got[0].Version)
	for _, table := range []string{"users", "quizzes", "polls"} {
		assert.Contains(t, got[0].SQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
