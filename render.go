package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// renderOutcome writes a query outcome as a text table. Warnings and errors
// are written as plain messages.
func renderOutcome(w io.Writer, o Outcome) {
	switch o.Status {
	case OutcomeWarning:
		fmt.Fprintf(w, "Warning: %s\n", o.Message)
		return
	case OutcomeError:
		fmt.Fprintf(w, "Error: %s\n", o.Message)
		return
	}

	if len(o.Rows) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)

		header := make(table.Row, len(o.Columns))
		for i, c := range o.Columns {
			header[i] = c
		}
		t.AppendHeader(header)

		for _, r := range o.Rows {
			row := make(table.Row, len(r))
			copy(row, r)
			t.AppendRow(row)
		}
		t.Render()
	}
	fmt.Fprintln(w, o.Message)
}

// renderTables writes the schema overview: one row per table with its
// column and foreign-key counts.
func renderTables(w io.Writer, schema *Schema) {
	if len(schema.Tables) == 0 {
		fmt.Fprintln(w, "No tables found in the current database schema.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Columns", "Foreign Keys"})
	for _, name := range schema.TableNames() {
		t.AppendRow(table.Row{name, len(schema.Columns[name]), len(schema.Relationships[name])})
	}
	t.Render()
}
