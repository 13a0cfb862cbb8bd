package database

import (
	"path/filepath"
	"testing"
	"time"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	var off Config
	require.NoError(t, off.Normalize())
	assert.False(t, off.Enabled())

	lite := Config{Driver: "SQLite3", MaxConnections: 10}
	require.NoError(t, lite.Normalize())
	assert.Equal(t, DriverSQLite, lite.Driver)
	assert.Equal(t, "gptbot.db", lite.Path)
	assert.Equal(t, 1, lite.MaxConnections)

	pg := Config{Driver: "postgresql", Host: "db", Name: "bot", User: "u", Password: "p@ss"}
	require.NoError(t, pg.Normalize())
	assert.Equal(t, DriverPostgres, pg.Driver)
	assert.Equal(t, "5432", pg.Port)
	assert.Equal(t, "disable", pg.SSLMode)
	assert.Equal(t, 5, pg.MaxConnections)

	assert.Error(t, (&Config{Driver: "postgres"}).Normalize())
	assert.Error(t, (&Config{Driver: "mysql"}).Normalize())
}

func TestConfigURLs(t *testing.T) {
	pg := Config{Driver: DriverPostgres, Host: "db", Port: "5432", Name: "bot", User: "u", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/bot?sslmode=disable", pg.MigrateURL())
	assert.Equal(t, "user=u password=p@ss host=db port=5432 dbname=bot sslmode=disable", pg.DSN())
	assert.Equal(t, "postgres", pg.sqlDriver())

	lite := Config{Driver: DriverSQLite, Path: "/var/lib/bot.db"}
	assert.Equal(t, "sqlite:///var/lib/bot.db", lite.MigrateURL())
	assert.Contains(t, lite.DSN(), "file:/var/lib/bot.db?")
	assert.Equal(t, "sqlite", lite.sqlDriver())
}

func TestMigrationFileAccounting(t *testing.T) {
	src := fstest.MapFS{
		"m/000002_index.up.sql":   {Data: []byte("-- 2")},
		"m/000001_init.up.sql":    {Data: []byte("-- 1")},
		"m/000001_init.down.sql":  {Data: []byte("-- 1 down")},
		"m/000003_stats.up.sql":   {Data: []byte("-- 3")},
		"m/nested/ignored.up.sql": {Data: []byte("--")},
	}

	files := listMigrationFiles(src, "m")
	assert.Equal(t, []string{"000001_init.up.sql", "000002_index.up.sql", "000003_stats.up.sql"}, files)
	assert.Equal(t, uint64(2), parseVersion("000002_index.up.sql"))
	assert.Len(t, selectApplied(files, 1, 3), 2)
	assert.Empty(t, selectApplied(files, 3, 3))
	assert.Equal(t, []string{"000003_stats.up.sql"}, selectApplied(files, 2, 3))
	assert.Nil(t, listMigrationFiles(src, "absent"))
}

func TestConnectSQLite(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bot.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var one int
	require.NoError(t, db.Get(&one, "SELECT ?", 1))
	assert.Equal(t, 1, one)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err = Connect(Config{})
	assert.Error(t, err)
	assert.NoError(t, WaitReady(Config{Driver: DriverSQLite}, time.Millisecond))
}
