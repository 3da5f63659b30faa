package main

import "fmt"

// Dialect identifies a SQL syntax variant. It controls identifier quoting
// and the row-limiting clause; nothing else differs between dialects at
// the rendering level.
type Dialect string

const (
	DialectSQLite    Dialect = "sqlite"
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLServer Dialect = "sqlserver"
)

// ParseDialect maps a configuration string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectSQLite, DialectPostgres, DialectMySQL, DialectSQLServer:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown dialect: %q (expected sqlite, postgres, mysql, or sqlserver)", s)
}

// quoteIdent quotes an identifier for the dialect: [brackets] for SQL Server,
// `backticks` for MySQL, "double quotes" otherwise.
func quoteIdent(d Dialect, name string) string {
	switch d {
	case DialectSQLServer:
		return "[" + name + "]"
	case DialectMySQL:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// renderSelect returns the SELECT keyword, carrying a leading TOP clause for
// SQL Server when a limit is requested.
func renderSelect(d Dialect, limit int) string {
	if d == DialectSQLServer && limit > 0 {
		return fmt.Sprintf("SELECT TOP %d", limit)
	}
	return "SELECT"
}

// renderLimit returns the trailing LIMIT clause, or an empty string for
// SQL Server where the limit was already rendered into the SELECT.
func renderLimit(d Dialect, limit int) string {
	if d == DialectSQLServer {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", limit)
}
