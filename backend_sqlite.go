package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteBackend implements Backend for embedded SQLite database files.
type SQLiteBackend struct{}

func (b *SQLiteBackend) Name() string       { return "SQLite" }
func (b *SQLiteBackend) DriverName() string { return "sqlite" }
func (b *SQLiteBackend) Dialect() Dialect   { return DialectSQLite }

// Accepted database file extensions. An empty extension is allowed for
// files like "northwind".
var sqliteExtensions = map[string]bool{
	".db": true, ".sqlite": true, ".sqlite3": true, ".db3": true, "": true,
}

func (b *SQLiteBackend) ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return errors.New("SQLite: missing database file path")
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", cfg.Path)
		}
		return fmt.Errorf("cannot access %s: %w", cfg.Path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a valid file: %s", cfg.Path)
	}
	if !sqliteExtensions[strings.ToLower(filepath.Ext(cfg.Path))] {
		return errors.New("invalid file extension. Expected .db, .sqlite, .sqlite3, or .db3")
	}
	return nil
}

func (b *SQLiteBackend) DSN(cfg Config) (string, error) {
	// Read-only mode is enforced via the DSN parameter.
	path := cfg.Path
	if !strings.Contains(path, "?") {
		return path + "?mode=ro", nil
	}
	if !strings.Contains(path, "mode=") {
		return path + "&mode=ro", nil
	}
	return path, nil
}

func (b *SQLiteBackend) ConnectedLabel(cfg Config) string {
	return filepath.Base(cfg.Path)
}

func (b *SQLiteBackend) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	// mode=ro in the DSN is the primary mechanism; query_only is
	// defense in depth.
	_, err := db.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

// Probe reads the catalog once so a corrupt or non-SQLite file fails at
// connect time with a recognizable message.
func (b *SQLiteBackend) Probe(ctx context.Context, db *sql.DB) error {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' LIMIT 1").Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("invalid SQLite database: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) ListTablesQuery(cfg Config) (string, []any) {
	// SQLite has no information_schema. sqlite_% entries are internal.
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil
}

func (b *SQLiteBackend) ColumnsQuery(cfg Config, table string) (string, []any) {
	// PRAGMA cannot use ? placeholders, so the table name is embedded with
	// quote doubling.
	return fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(table, "'", "''")), nil
}

func (b *SQLiteBackend) ScanColumn(rows *sql.Rows) (string, error) {
	// PRAGMA table_info returns: cid, name, type, notnull, dflt_value, pk
	var cid int
	var name, colType string
	var notNull, pk int
	var dfltValue sql.NullString
	if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
		return "", err
	}
	return name, nil
}

func (b *SQLiteBackend) ForeignKeysQuery(cfg Config, table string) (string, []any) {
	return fmt.Sprintf("PRAGMA foreign_key_list('%s')", strings.ReplaceAll(table, "'", "''")), nil
}

func (b *SQLiteBackend) ScanForeignKey(rows *sql.Rows) (Relationship, error) {
	// PRAGMA foreign_key_list returns:
	// id, seq, table, from, to, on_update, on_delete, match
	var id, seq int
	var refTable, from string
	var to sql.NullString
	var onUpdate, onDelete, match string
	if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
		return Relationship{}, err
	}
	rel := Relationship{RefTable: refTable, LocalColumn: from, RefColumn: to.String}
	if !to.Valid {
		// Implicit reference to the parent's primary key; keep the local
		// column name so a rendered join remains syntactically plausible.
		rel.RefColumn = from
	}
	return rel, nil
}
