package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectPostgres, DialectFor("postgres://u:p@localhost:5432/db"))
	assert.Equal(t, DialectPostgres, DialectFor("postgresql://localhost/db"))
	assert.Equal(t, DialectSQLite, DialectFor("./_progress/processed.db"))
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	lite := &DB{Dialect: DialectSQLite}
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: filepath.Join(t.TempDir(), "ledger.db")}, nil)
	require.NoError(t, err)
	defer db.Close(nil)

	assert.Equal(t, DialectSQLite, db.Dialect)
	assert.NoError(t, db.HealthCheck(ctx, 0, nil))
}
