package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderOutcome(t *testing.T) {
	t.Run("success renders a table and the message", func(t *testing.T) {
		var buf bytes.Buffer
		renderOutcome(&buf, Outcome{
			Status:   OutcomeSuccess,
			Columns:  []string{"id", "name"},
			Rows:     [][]any{{1, "Alice"}},
			RowCount: 1,
			Message:  "Query executed successfully. Returned 1 row(s).",
		})

		out := buf.String()
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, "Alice")
		assert.Contains(t, out, "Returned 1 row(s).")
	})

	t.Run("warning renders the message only", func(t *testing.T) {
		var buf bytes.Buffer
		renderOutcome(&buf, warningOutcome("Only SELECT queries are allowed."))
		assert.Equal(t, "Warning: Only SELECT queries are allowed.\n", buf.String())
	})

	t.Run("error renders the message only", func(t *testing.T) {
		var buf bytes.Buffer
		renderOutcome(&buf, errorOutcome("no such table: Foo"))
		assert.Equal(t, "Error: no such table: Foo\n", buf.String())
	})
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	renderTables(&buf, northwindSchema())

	out := buf.String()
	assert.Contains(t, out, "Orders")
	assert.Contains(t, out, "Regions")

	buf.Reset()
	renderTables(&buf, emptySchema())
	assert.Contains(t, buf.String(), "No tables found")
}
