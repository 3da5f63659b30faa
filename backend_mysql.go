package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLBackend implements Backend for MySQL databases.
type MySQLBackend struct{}

func (b *MySQLBackend) Name() string       { return "MySQL" }
func (b *MySQLBackend) DriverName() string { return "mysql" }
func (b *MySQLBackend) Dialect() Dialect   { return DialectMySQL }

func (b *MySQLBackend) ValidateConfig(cfg Config) error {
	return requireNetworkParams("MySQL", cfg)
}

func (b *MySQLBackend) DSN(cfg Config) (string, error) {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%ds",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		int(cfg.connectTimeout().Seconds())), nil
}

func (b *MySQLBackend) ConnectedLabel(cfg Config) string {
	return fmt.Sprintf("%s@%s:%d", cfg.Database, cfg.Host, cfg.Port)
}

func (b *MySQLBackend) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY")
	return err
}

func (b *MySQLBackend) Probe(ctx context.Context, db *sql.DB) error { return nil }

func (b *MySQLBackend) ListTablesQuery(cfg Config) (string, []any) {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`, nil
}

func (b *MySQLBackend) ColumnsQuery(cfg Config, table string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_name = ? AND table_schema = DATABASE()
		ORDER BY ordinal_position`, []any{table}
}

func (b *MySQLBackend) ScanColumn(rows *sql.Rows) (string, error) {
	var name string
	err := rows.Scan(&name)
	return name, err
}

func (b *MySQLBackend) ForeignKeysQuery(cfg Config, table string) (string, []any) {
	return `SELECT kcu.referenced_table_name, kcu.column_name, kcu.referenced_column_name
		FROM information_schema.key_column_usage AS kcu
		WHERE kcu.table_name = ? AND kcu.table_schema = DATABASE()
			AND kcu.referenced_table_name IS NOT NULL`, []any{table}
}

func (b *MySQLBackend) ScanForeignKey(rows *sql.Rows) (Relationship, error) {
	var rel Relationship
	err := rows.Scan(&rel.RefTable, &rel.LocalColumn, &rel.RefColumn)
	return rel, err
}
