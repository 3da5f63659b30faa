package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestSQLiteBackend_ValidateConfig(t *testing.T) {
	b := &SQLiteBackend{}

	t.Run("accepts known extensions", func(t *testing.T) {
		for _, name := range []string{"nw.db", "nw.sqlite", "nw.sqlite3", "nw.db3", "northwind"} {
			cfg := Config{Path: touchFile(t, name)}
			assert.NoError(t, b.ValidateConfig(cfg), name)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		err := b.ValidateConfig(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing database file path")
	})

	t.Run("file not found", func(t *testing.T) {
		err := b.ValidateConfig(Config{Path: filepath.Join(t.TempDir(), "nope.db")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file not found")
	})

	t.Run("directory rejected", func(t *testing.T) {
		err := b.ValidateConfig(Config{Path: t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid file")
	})

	t.Run("unknown extension rejected", func(t *testing.T) {
		err := b.ValidateConfig(Config{Path: touchFile(t, "data.csv")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid file extension")
	})
}

func TestSQLiteBackend_DSN(t *testing.T) {
	b := &SQLiteBackend{}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain path gets read-only mode", "nw.db", "nw.db?mode=ro"},
		{"existing params extended", "nw.db?cache=shared", "nw.db?cache=shared&mode=ro"},
		{"explicit mode untouched", "nw.db?mode=rw", "nw.db?mode=rw"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := b.DSN(Config{Path: tc.path})
			require.NoError(t, err)
			assert.Equal(t, tc.want, dsn)
		})
	}
}

func TestSQLiteBackend_ConnectedLabel(t *testing.T) {
	b := &SQLiteBackend{}
	assert.Equal(t, "northwind.db", b.ConnectedLabel(Config{Path: "/data/db/northwind.db"}))
}

func TestSQLiteBackend_ColumnsQueryQuotesTable(t *testing.T) {
	b := &SQLiteBackend{}

	query, args := b.ColumnsQuery(Config{}, "it's")
	assert.Equal(t, "PRAGMA table_info('it''s')", query)
	assert.Nil(t, args)

	query, _ = b.ForeignKeysQuery(Config{}, "Orders")
	assert.Equal(t, "PRAGMA foreign_key_list('Orders')", query)
}
