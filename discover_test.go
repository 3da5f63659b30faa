package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverTerm_DirectMatch(t *testing.T) {
	s := northwindSchema()

	matches, notes := discoverTerm(s, "customer")
	assert.Equal(t, []string{"Customers", "Customers.CustomerID", "Orders.CustomerID"}, matches)
	assert.Contains(t, notes, "Direct match: Customers")
}

func TestDiscoverTerm_DirectMatchBeatsSynonyms(t *testing.T) {
	s := northwindSchema()

	// "freight" is both a synonym key and a literal column name; the direct
	// hit must win without consulting the synonym table.
	matches, notes := discoverTerm(s, "Freight")
	assert.Equal(t, []string{"Orders.Freight"}, matches)
	require.Len(t, notes, 1)
	assert.Equal(t, "Direct match: Orders.Freight", notes[0])
}

func TestDiscoverTerm_SynonymMatch(t *testing.T) {
	s := northwindSchema()

	matches, notes := discoverTerm(s, "sold")
	assert.Equal(t, []string{"OrderDetails", "OrderDetails.Quantity", "Orders"}, matches)
	assert.Contains(t, notes, `Synonym "orders" matched: Orders`)
	assert.Contains(t, notes, `Synonym "quantity" matched: OrderDetails.Quantity`)
}

func TestDiscoverTerm_Suggestions(t *testing.T) {
	s := northwindSchema()

	matches, notes := discoverTerm(s, "ordesr")
	assert.Empty(t, matches, "suggestions are guidance, not matches")
	require.NotEmpty(t, notes)
	assert.True(t, strings.HasPrefix(notes[0], "Possible matches: "), "got %q", notes[0])
	assert.Contains(t, notes[0], "orders")
}

func TestDiscoverTerm_NoResolution(t *testing.T) {
	s := northwindSchema()

	matches, notes := discoverTerm(s, "zzzz")
	assert.Empty(t, matches)
	assert.Empty(t, notes)
}

func TestBuildDraft_SingleTable(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLite, []string{"shipper"}, 10)
	assert.Equal(t, []string{"Shippers"}, draft.Tables)
	assert.Equal(t, "SELECT\n  *\nFROM \"Shippers\"\nLIMIT 10", draft.SQL)
	assert.True(t, draft.Runnable)
}

func TestBuildDraft_SingleTableSQLServer(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLServer, []string{"shipper"}, 10)
	assert.Equal(t, "SELECT TOP 10\n  *\nFROM [Shippers]", draft.SQL)
	assert.True(t, draft.Runnable)
}

func TestBuildDraft_JoinedTables(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLite, []string{"customer", "product"}, 10)
	assert.Equal(t, []string{"Customers", "Products"}, draft.Tables)
	require.Len(t, draft.JoinPath, 3)
	assert.True(t, draft.Runnable)

	want := strings.Join([]string{
		"SELECT",
		`  "Customers"."CustomerID",`,
		`  "OrderDetails"."ProductID",`,
		`  "Orders"."CustomerID",`,
		`  "Products"."ProductID",`,
		`  "Products"."ProductName"`,
		`FROM "Customers"`,
		`JOIN "Orders" ON "Customers"."CustomerID" = "Orders"."CustomerID"`,
		`JOIN "OrderDetails" ON "Orders"."OrderID" = "OrderDetails"."OrderID"`,
		`JOIN "Products" ON "OrderDetails"."ProductID" = "Products"."ProductID"`,
		"LIMIT 10",
	}, "\n")
	assert.Equal(t, want, draft.SQL)
}

func TestBuildDraft_UnrelatedTablesPlaceholder(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLite, []string{"orders", "regions"}, 10)
	assert.Equal(t, "-- Unable to determine relationships\n-- Tables: Orders, Regions", draft.SQL)
	assert.False(t, draft.Runnable, "placeholder drafts must not be offered for execution")
	assert.Nil(t, draft.JoinPath)
}

func TestBuildDraft_NothingMatched(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLite, []string{"zzzz"}, 10)
	assert.Empty(t, draft.SQL)
	assert.Empty(t, draft.Tables)
	assert.Equal(t, []string{"zzzz"}, draft.Unmatched)
	assert.False(t, draft.Runnable)
}

func TestBuildDraft_MixedMatchedAndUnmatched(t *testing.T) {
	s := northwindSchema()

	draft := buildDraft(s, DialectSQLite, []string{"shipper", "zzzz"}, 10)
	assert.Equal(t, []string{"Shippers"}, draft.Tables)
	assert.Equal(t, []string{"zzzz"}, draft.Unmatched)
	assert.True(t, draft.Runnable)
}

func TestRefineDraft(t *testing.T) {
	draftSQL := "SELECT\n  *\nFROM \"Orders\"\nLIMIT 10"

	tests := []struct {
		name  string
		where string
		want  string
	}{
		{
			"plain conditions",
			"Freight > 100",
			"SELECT\n  *\nFROM \"Orders\"\nWHERE Freight > 100\nLIMIT 100",
		},
		{
			"leading WHERE keyword stripped",
			"WHERE Freight > 100",
			"SELECT\n  *\nFROM \"Orders\"\nWHERE Freight > 100\nLIMIT 100",
		},
		{
			"lowercase where keyword stripped",
			"where Freight > 100",
			"SELECT\n  *\nFROM \"Orders\"\nWHERE Freight > 100\nLIMIT 100",
		},
		{
			"no conditions lifts the limit only",
			"",
			"SELECT\n  *\nFROM \"Orders\"\nLIMIT 100",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, refineDraft(draftSQL, DialectSQLite, tc.where, 10, 100))
		})
	}
}

func TestRefineDraft_SQLServer(t *testing.T) {
	draftSQL := "SELECT TOP 10\n  *\nFROM [Orders]"

	got := refineDraft(draftSQL, DialectSQLServer, "Freight > 100", 10, 100)
	assert.Equal(t, "SELECT TOP 100\n  *\nFROM [Orders]\nWHERE Freight > 100", got)
}
