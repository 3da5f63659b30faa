package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
)

// PostgresBackend implements Backend for PostgreSQL databases.
type PostgresBackend struct{}

func (b *PostgresBackend) Name() string       { return "PostgreSQL" }
func (b *PostgresBackend) DriverName() string { return "postgres" }
func (b *PostgresBackend) Dialect() Dialect   { return DialectPostgres }

func (b *PostgresBackend) ValidateConfig(cfg Config) error {
	return requireNetworkParams("PostgreSQL", cfg)
}

func (b *PostgresBackend) DSN(cfg Config) (string, error) {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=prefer&connect_timeout=%d",
		url.PathEscape(cfg.User), url.PathEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database, int(cfg.connectTimeout().Seconds())), nil
}

func (b *PostgresBackend) ConnectedLabel(cfg Config) string {
	return fmt.Sprintf("%s@%s:%d", cfg.Database, cfg.Host, cfg.Port)
}

func (b *PostgresBackend) EnforceReadOnly(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
	return err
}

func (b *PostgresBackend) Probe(ctx context.Context, db *sql.DB) error { return nil }

func (b *PostgresBackend) ListTablesQuery(cfg Config) (string, []any) {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`, nil
}

func (b *PostgresBackend) ColumnsQuery(cfg Config, table string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = 'public'
		ORDER BY ordinal_position`, []any{table}
}

func (b *PostgresBackend) ScanColumn(rows *sql.Rows) (string, error) {
	var name string
	err := rows.Scan(&name)
	return name, err
}

func (b *PostgresBackend) ForeignKeysQuery(cfg Config, table string) (string, []any) {
	return `SELECT ccu.table_name AS foreign_table_name,
			kcu.column_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.key_column_usage AS kcu
		JOIN information_schema.constraint_column_usage AS ccu
			ON kcu.constraint_name = ccu.constraint_name
		WHERE kcu.table_name = $1 AND kcu.table_schema = 'public'
			AND kcu.constraint_name IN (
				SELECT constraint_name FROM information_schema.table_constraints
				WHERE constraint_type = 'FOREIGN KEY')`, []any{table}
}

func (b *PostgresBackend) ScanForeignKey(rows *sql.Rows) (Relationship, error) {
	var rel Relationship
	err := rows.Scan(&rel.RefTable, &rel.LocalColumn, &rel.RefColumn)
	return rel, err
}

// requireNetworkParams validates the host/database/user/password group shared
// by the network backends, naming every missing field at once.
func requireNetworkParams(engine string, cfg Config) error {
	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "host")
	}
	if cfg.Database == "" {
		missing = append(missing, "database")
	}
	if cfg.User == "" {
		missing = append(missing, "user")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required connection parameters: %v", engine, missing)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%s: invalid port: %d", engine, cfg.Port)
	}
	return nil
}
