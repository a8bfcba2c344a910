package storage

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_indexes.sql":  {Data: []byte("CREATE INDEX i ON t(a);")},
		"migrations/001_initial.sql":  {Data: []byte("CREATE TABLE t(a INT);")},
		"migrations/002_counters.sql": {Data: []byte("CREATE TABLE c(n INT);")},
		"migrations/README.md":        {Data: []byte("notes")},
	}

	all, err := Migrations(fsys, "migrations", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{all[0].Version, all[1].Version, all[2].Version})
	assert.Equal(t, "CREATE TABLE t(a INT);", all[0].SQL)

	pending, err := Migrations(fsys, "migrations", 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "010_indexes.sql", pending[0].Name)

	none, err := Migrations(fsys, "migrations", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrations_Invalid(t *testing.T) {
	dup := fstest.MapFS{
		"m/001_initial.sql": {Data: []byte("")},
		"m/001_again.sql":   {Data: []byte("")},
	}
	_, err := Migrations(dup, "m", 0)
	assert.ErrorContains(t, err, "share version 1")

	unnumbered := fstest.MapFS{"m/initial.sql": {Data: []byte("")}}
	_, err = Migrations(unnumbered, "m", 0)
	assert.Error(t, err)

	_, err = Migrations(fstest.MapFS{}, "missing", 0)
	assert.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	tests := map[string]int{
		"001_initial.sql":            1,
		"migrations/012_indexes.sql": 12,
		"initial.sql":                -1,
		"x_initial.sql":              -1,
		"000_zero.sql":               -1,
	}
	for name, want := range tests {
		got, err := MigrationVersion(name)
		if want < 0 {
			assert.Error(t, err, name)
			continue
		}
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
