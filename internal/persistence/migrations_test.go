package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"002_indexes.sql":     {Data: []byte("SELECT 1")},
		"001_collections.sql": {Data: []byte("SELECT 1")},
		"README.md":           {Data: []byte("notes")},
		"003_UPPER.SQL":       {Data: []byte("SELECT 1")},
		"archive/000_old.sql": {Data: []byte("SELECT 1")},
	}

	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_collections.sql", "002_indexes.sql", "003_UPPER.SQL"}, names)
}

func TestRunMigrations_RequiresPool(t *testing.T) {
	assert.Error(t, RunMigrations(context.Background(), nil, "migrations", nil))
}

func TestPostgres_NilHandle(t *testing.T) {
	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	assert.Equal(t, PoolStats{}, pg.Stats())
	pg.Close()
}
