package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/schema-warden/internal/config"
)

func TestNewDatabase_SQLiteMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.db")

	conn, cleanup, err := NewDatabase(&config.DBConfig{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)

	var tables []string
	require.NoError(t, conn.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('reviews', 'comment_deliveries') ORDER BY name`))
	assert.Equal(t, []string{"comment_deliveries", "reviews"}, tables)

	// Migrating an up-to-date database is a no-op.
	require.NoError(t, conn.RunMigrations())
	cleanup()

	conn, cleanup, err = NewDatabase(&config.DBConfig{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	cleanup()
	assert.NotNil(t, conn)
}

func TestDataSourceName(t *testing.T) {
	dsn, err := dataSourceName(&config.DBConfig{Driver: DriverPostgres, Host: "db", Port: 5432, Username: "u", Password: "p", Database: "warden"})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=warden sslmode=disable", dsn)

	dsn, err = dataSourceName(&config.DBConfig{Driver: DriverSQLite, Path: "/tmp/w.db"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "/tmp/w.db?")

	_, err = dataSourceName(&config.DBConfig{Driver: "mysql"})
	assert.Error(t, err)
}
