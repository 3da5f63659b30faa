package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		dialect Dialect
		ident   string
		want    string
	}{
		{DialectSQLite, "Orders", `"Orders"`},
		{DialectPostgres, "Orders", `"Orders"`},
		{DialectMySQL, "Orders", "`Orders`"},
		{DialectSQLServer, "Orders", "[Orders]"},
		{DialectPostgres, "Order Details", `"Order Details"`},
	}

	for _, tc := range tests {
		t.Run(string(tc.dialect)+"/"+tc.ident, func(t *testing.T) {
			assert.Equal(t, tc.want, quoteIdent(tc.dialect, tc.ident))
		})
	}
}

func TestQuoteIdent_DistinctPerDialectFamily(t *testing.T) {
	quoted := map[string]bool{}
	for _, d := range []Dialect{DialectPostgres, DialectMySQL, DialectSQLServer} {
		q := quoteIdent(d, "t")
		assert.NotEmpty(t, q)
		assert.False(t, quoted[q], "dialect %s reuses quoting %q", d, q)
		quoted[q] = true
	}
	// SQLite shares ANSI double quotes with Postgres by design.
	assert.Equal(t, quoteIdent(DialectPostgres, "t"), quoteIdent(DialectSQLite, "t"))
}

func TestRenderLimit(t *testing.T) {
	tests := []struct {
		dialect    Dialect
		wantSelect string
		wantLimit  string
	}{
		{DialectSQLite, "SELECT", "LIMIT 10"},
		{DialectPostgres, "SELECT", "LIMIT 10"},
		{DialectMySQL, "SELECT", "LIMIT 10"},
		{DialectSQLServer, "SELECT TOP 10", ""},
	}

	for _, tc := range tests {
		t.Run(string(tc.dialect), func(t *testing.T) {
			assert.Equal(t, tc.wantSelect, renderSelect(tc.dialect, 10))
			assert.Equal(t, tc.wantLimit, renderLimit(tc.dialect, 10))

			// Exactly one of the two clauses carries the limit.
			leading := renderSelect(tc.dialect, 10) != "SELECT"
			trailing := renderLimit(tc.dialect, 10) != ""
			assert.NotEqual(t, leading, trailing)
		})
	}
}

func TestRenderSelect_NoLimit(t *testing.T) {
	for _, d := range []Dialect{DialectSQLite, DialectPostgres, DialectMySQL, DialectSQLServer} {
		assert.Equal(t, "SELECT", renderSelect(d, 0))
	}
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"sqlite", "postgres", "mysql", "sqlserver"} {
		d, err := ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, Dialect(name), d)
	}

	_, err := ParseDialect("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
