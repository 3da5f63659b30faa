package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"
)

// SQLServerBackend implements Backend for Microsoft SQL Server databases.
type SQLServerBackend struct{}

func (b *SQLServerBackend) Name() string       { return "SQL Server" }
func (b *SQLServerBackend) DriverName() string { return "sqlserver" }
func (b *SQLServerBackend) Dialect() Dialect   { return DialectSQLServer }

func (b *SQLServerBackend) ValidateConfig(cfg Config) error {
	return requireNetworkParams("SQL Server", cfg)
}

func (b *SQLServerBackend) DSN(cfg Config) (string, error) {
	query := url.Values{}
	query.Set("database", cfg.Database)
	query.Set("dial timeout", fmt.Sprintf("%d", int(cfg.connectTimeout().Seconds())))
	query.Set("TrustServerCertificate", "true")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

func (b *SQLServerBackend) ConnectedLabel(cfg Config) string {
	return fmt.Sprintf("%s@%s", cfg.Database, cfg.Host)
}

func (b *SQLServerBackend) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	// SQL Server has no session-level read-only switch; the safety gate is
	// the enforcement layer here.
	return nil
}

func (b *SQLServerBackend) Probe(ctx context.Context, db *sql.DB) error { return nil }

func (b *SQLServerBackend) ListTablesQuery(cfg Config) (string, []any) {
	return `SELECT table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' ORDER BY table_name`, nil
}

func (b *SQLServerBackend) ColumnsQuery(cfg Config, table string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_name = @p1 ORDER BY ordinal_position`, []any{table}
}

func (b *SQLServerBackend) ScanColumn(rows *sql.Rows) (string, error) {
	var name string
	err := rows.Scan(&name)
	return name, err
}

func (b *SQLServerBackend) ForeignKeysQuery(cfg Config, table string) (string, []any) {
	return `SELECT OBJECT_NAME(fc.referenced_object_id) AS referenced_table,
			COL_NAME(fc.parent_object_id, fc.parent_column_id) AS column_name,
			COL_NAME(fc.referenced_object_id, fc.referenced_column_id) AS referenced_column
		FROM sys.foreign_key_columns AS fc
		WHERE OBJECT_NAME(fc.parent_object_id) = @p1`, []any{table}
}

func (b *SQLServerBackend) ScanForeignKey(rows *sql.Rows) (Relationship, error) {
	var rel Relationship
	err := rows.Scan(&rel.RefTable, &rel.LocalColumn, &rel.RefColumn)
	return rel, err
}
