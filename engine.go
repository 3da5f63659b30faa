package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Connection pool defaults, shared by every backend.
const (
	maxConnectionsIdle = 5
	maxConnectionsOpen = 10
	connMaxLifetime    = time.Hour
)

// maxResultRows caps how many rows a single query returns, as a memory
// guard. Truncation is reported in the outcome message.
const maxResultRows = 10000

// Backend defines the database-specific behavior the engine delegates to.
// Each supported database (SQLite, PostgreSQL, MySQL, SQL Server) implements
// this interface; everything else is shared.
type Backend interface {
	// Name returns the human-readable engine name (e.g. "PostgreSQL").
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// Dialect returns the SQL dialect used when rendering queries for
	// this backend.
	Dialect() Dialect

	// ValidateConfig checks the connection parameters before any dial.
	ValidateConfig(cfg Config) error

	// DSN constructs a driver DSN from the connection parameters.
	DSN(cfg Config) (string, error)

	// ConnectedLabel returns the operator-facing connection label,
	// e.g. "northwind.db" or "sales@db.internal:5432".
	ConnectedLabel(cfg Config) string

	// EnforceReadOnly configures the session for read-only access where the
	// backend supports it. Failures are logged, not fatal; the safety gate
	// remains the primary guarantee.
	EnforceReadOnly(ctx context.Context, db *sql.DB) error

	// Probe runs a basic catalog check after connecting, so a corrupt or
	// foreign file fails at connect time rather than on first query.
	Probe(ctx context.Context, db *sql.DB) error

	// ListTablesQuery returns the query and arguments listing user tables,
	// one name per row. System and catalog tables are excluded.
	ListTablesQuery(cfg Config) (string, []any)

	// ColumnsQuery returns the query and arguments listing a table's
	// columns in ordinal order.
	ColumnsQuery(cfg Config, table string) (string, []any)

	// ScanColumn scans one row of the columns query into a column name.
	ScanColumn(rows *sql.Rows) (string, error)

	// ForeignKeysQuery returns the query and arguments listing a table's
	// outgoing foreign keys.
	ForeignKeysQuery(cfg Config, table string) (string, []any)

	// ScanForeignKey scans one row of the foreign-keys query into a
	// (referenced table, local column, referenced column) edge.
	ScanForeignKey(rows *sql.Rows) (Relationship, error)
}

// backendFor maps a configured driver name to its Backend.
func backendFor(driver string) (Backend, error) {
	switch driver {
	case "sqlite":
		return &SQLiteBackend{}, nil
	case "postgres":
		return &PostgresBackend{}, nil
	case "mysql":
		return &MySQLBackend{}, nil
	case "sqlserver":
		return &SQLServerBackend{}, nil
	}
	return nil, fmt.Errorf("unknown driver: %q (expected sqlite, postgres, mysql, or sqlserver)", driver)
}

// Outcome status values. Exactly one payload shape accompanies each:
// success carries rows, warning and error carry only a message.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeWarning OutcomeStatus = "warning"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome is the tagged result of attempting to run a query.
type Outcome struct {
	Status   OutcomeStatus
	Columns  []string
	Rows     [][]any
	RowCount int
	Message  string
}

func warningOutcome(msg string) Outcome {
	return Outcome{Status: OutcomeWarning, Message: msg}
}

func errorOutcome(msg string) Outcome {
	return Outcome{Status: OutcomeError, Message: msg}
}

// Engine owns one live connection, its backend, and the schema cache.
// At most one logical caller drives an Engine at a time; wrap it in a mutex
// if that ever changes.
type Engine struct {
	backend Backend
	cfg     Config
	db      *sql.DB
	label   string
	schema  *Schema
	logger  *slog.Logger
}

// connectEngine validates the configuration, opens the connection, and
// verifies it with a bounded ping and a catalog probe. A failed connect
// releases everything it opened and leaves no half-initialized handle.
func connectEngine(ctx context.Context, backend Backend, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := backend.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	dsn, err := backend.DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(backend.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", backend.Name(), err)
	}

	db.SetMaxIdleConns(maxConnectionsIdle)
	db.SetMaxOpenConns(maxConnectionsOpen)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s connection failed: %w", backend.Name(), err)
	}

	if err := backend.Probe(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := backend.EnforceReadOnly(ctx, db); err != nil {
		logger.Warn("could not set read-only session mode", "engine", backend.Name(), "error", err)
	}

	label := backend.ConnectedLabel(cfg)
	logger.Info("connected", "engine", backend.Name(), "database", label)

	return &Engine{
		backend: backend,
		cfg:     cfg,
		db:      db,
		label:   label,
		logger:  logger,
	}, nil
}

// Name returns the backend's engine name.
func (e *Engine) Name() string { return e.backend.Name() }

// Label returns the operator-facing connection label.
func (e *Engine) Label() string { return e.label }

// Dialect returns the backend's SQL dialect.
func (e *Engine) Dialect() Dialect { return e.backend.Dialect() }

// Close releases the connection and drops the schema cache.
func (e *Engine) Close() error {
	e.schema = nil
	if e.db == nil {
		return nil
	}
	db := e.db
	e.db = nil
	return db.Close()
}

// swapEngine closes the previous engine, if any, before adopting the next
// one. Call sites replacing "the" active engine go through here so no window
// exists with two live handles.
func swapEngine(prev, next *Engine) *Engine {
	if prev != nil {
		prev.Close()
	}
	return next
}

// Schema returns the cached schema model, introspecting on first use.
// Introspection never fails hard: a catalog error degrades to an empty
// model so the caller can display "no tables" instead of an error.
func (e *Engine) Schema(ctx context.Context) *Schema {
	if e.schema != nil {
		return e.schema
	}
	if e.db == nil {
		return emptySchema()
	}

	schema, err := e.introspect(ctx)
	if err != nil {
		e.logger.Warn("schema introspection failed", "engine", e.backend.Name(), "error", err)
		return emptySchema()
	}
	e.schema = schema
	return schema
}

// Refresh drops the schema cache and re-introspects.
func (e *Engine) Refresh(ctx context.Context) *Schema {
	e.schema = nil
	return e.Schema(ctx)
}

func (e *Engine) introspect(ctx context.Context) (*Schema, error) {
	query, args := e.backend.ListTablesQuery(e.cfg)
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating tables: %w", err)
	}
	rows.Close()

	schema := emptySchema()
	schema.Tables = tables

	// Per-table reads degrade individually: a permission gap on one table
	// should not blank the whole model.
	for _, table := range tables {
		cols, err := e.readColumns(ctx, table)
		if err != nil {
			e.logger.Warn("could not read columns", "table", table, "error", err)
			cols = nil
		}
		schema.Columns[table] = cols

		rels, err := e.readForeignKeys(ctx, table)
		if err != nil {
			e.logger.Warn("could not read foreign keys", "table", table, "error", err)
			continue
		}
		if len(rels) > 0 {
			schema.Relationships[table] = rels
		}
	}

	return schema, nil
}

func (e *Engine) readColumns(ctx context.Context, table string) ([]string, error) {
	query, args := e.backend.ColumnsQuery(e.cfg, table)
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		name, err := e.backend.ScanColumn(rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (e *Engine) readForeignKeys(ctx context.Context, table string) ([]Relationship, error) {
	query, args := e.backend.ForeignKeysQuery(e.cfg, table)
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		rel, err := e.backend.ScanForeignKey(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// RunSelect executes a read-only query. Every query, whether typed by the
// operator or drafted by the synthesizer, passes through the safety gate
// here; there is no other execution path.
func (e *Engine) RunSelect(ctx context.Context, raw string) Outcome {
	if e.db == nil {
		return warningOutcome("Not connected to database.")
	}

	cleaned, refusal := classifyQuery(raw)
	if refusal != "" {
		return warningOutcome(refusal)
	}

	rows, err := e.db.QueryContext(ctx, cleaned)
	if err != nil {
		return errorOutcome(annotateExecError(err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return errorOutcome(fmt.Sprintf("failed to read result columns: %v", err))
	}

	var resultRows [][]any
	truncated := false
	for rows.Next() {
		if len(resultRows) >= maxResultRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errorOutcome(fmt.Sprintf("failed to scan row %d: %v", len(resultRows)+1, err))
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return errorOutcome(annotateExecError(err))
	}

	msg := fmt.Sprintf("Query executed successfully. Returned %d row(s).", len(resultRows))
	if len(resultRows) == 0 {
		msg = "Query ran successfully but returned no rows."
	}
	if truncated {
		msg = fmt.Sprintf("Result truncated at %d rows.", maxResultRows)
	}
	return Outcome{
		Status:   OutcomeSuccess,
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Message:  msg,
	}
}

// SampleRows previews a table's contents: a dialect-quoted, dialect-limited
// SELECT * routed through the normal query path, gate included.
func (e *Engine) SampleRows(ctx context.Context, table string, limit int) Outcome {
	query := strings.TrimRight(fmt.Sprintf("%s * FROM %s %s",
		renderSelect(e.Dialect(), limit),
		quoteIdent(e.Dialect(), table),
		renderLimit(e.Dialect(), limit)), " ")
	return e.RunSelect(ctx, query)
}

// Ping reports whether the connection is alive, reusing the normal query
// path so the answer reflects what a real query would see.
func (e *Engine) Ping(ctx context.Context) bool {
	return e.RunSelect(ctx, "SELECT 1").Status == OutcomeSuccess
}

// annotateExecError appends a one-line diagnostic hint to a backend error
// when the message matches a recognizable failure mode. The raw error is
// always preserved.
func annotateExecError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such function") ||
		strings.Contains(lower, "unknown function") ||
		(strings.Contains(lower, "function") && strings.Contains(lower, "does not exist")):
		return msg + "\nHint: this looks like SQL from another dialect."
	case strings.Contains(lower, "syntax error") || strings.Contains(lower, "syntax"):
		return msg + "\nHint: check commas, joins, or keyword order."
	case strings.Contains(lower, "no such table") ||
		strings.Contains(lower, "doesn't exist") ||
		strings.Contains(lower, "invalid object name") ||
		(strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")):
		return msg + "\nHint: table not found. Check spelling and refresh the schema."
	}
	return msg
}
