package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/busbuddy-api/pkg/config"
)

func TestOpenSQLiteAppliesMigrations(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		SQLitePath:  ":memory:",
		AutoMigrate: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	for _, name := range []string{"activities", "activity_schedules", "audit_runs", "drivers", "routes", "stops", "students", "vehicles"} {
		assert.Contains(t, tables, name)
	}

	// Second run is a no-op.
	require.NoError(t, RunMigrations(db, nil))
}

func TestSQLiteUsesQuestionBindvars(t *testing.T) {
	db, err := NewSQLite(config.DatabaseConfig{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, "SELECT ? , ?", db.Rebind("SELECT ? , ?"))

	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestNewSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite(config.DatabaseConfig{})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "bus", Password: "it's secret", Name: "busbuddy"})

	assert.Equal(t, `host=db port=5432 user=bus password='it\'s secret' dbname=busbuddy sslmode=disable connect_timeout=5 application_name=busbuddy-api`, dsn)
}
