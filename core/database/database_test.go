package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalizeAndDSN(t *testing.T) {
	cfg := Config{Host: "db", User: "bot", Password: "p@ss word", Name: "servers"}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "user=bot password=p@ss word host=db port=5432 dbname=servers sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss%20word@db:5432/servers?sslmode=disable", cfg.URL())

	assert.Error(t, (&Config{Name: "x"}).Normalize())
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "servers_name_key"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert server: %w", dup)))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsForeignKeyViolation(dup))
}

func TestBetweenCountsAppliedFiles(t *testing.T) {
	files := []string{"0001_init.up.sql", "0002_metrics.up.sql", "0003_users.up.sql"}
	assert.Equal(t, []string{"0002_metrics.up.sql", "0003_users.up.sql"}, between(files, 1, 3))
	assert.Equal(t, []string{"0003_users.up.sql"}, between(files, 3, 2))
	assert.Empty(t, between(files, 3, 3))
}
