package main

import "sort"

// Relationship is one directed foreign-key edge: the owning table references
// RefTable through LocalColumn = RefColumn.
type Relationship struct {
	RefTable    string
	LocalColumn string
	RefColumn   string
}

// JoinStep is one hop of a join plan, rendered as
// JOIN Right ON Left.LeftColumn = Right.RightColumn.
type JoinStep struct {
	Left        string
	Right       string
	LeftColumn  string
	RightColumn string
}

// Schema is the in-memory graph of one connection's tables, columns, and
// foreign keys. It is built by introspection, cached by the engine, and
// never mutated after construction. Tables referenced by a foreign key but
// missing from Tables (permission gaps) are tolerated.
type Schema struct {
	Tables        []string
	Columns       map[string][]string
	Relationships map[string][]Relationship
}

func emptySchema() *Schema {
	return &Schema{
		Columns:       map[string][]string{},
		Relationships: map[string][]Relationship{},
	}
}

// TableNames returns the table names in sorted order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	copy(names, s.Tables)
	sort.Strings(names)
	return names
}

// ColumnsOf returns the ordered column names of a table, or nil if unknown.
func (s *Schema) ColumnsOf(table string) []string {
	return s.Columns[table]
}

// HasTable reports whether the table was seen during introspection.
func (s *Schema) HasTable(table string) bool {
	for _, t := range s.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Identifiers returns every table name and every table.column identifier,
// the search space for term discovery.
func (s *Schema) Identifiers() []string {
	var ids []string
	for _, t := range s.TableNames() {
		ids = append(ids, t)
		for _, c := range s.Columns[t] {
			ids = append(ids, t+"."+c)
		}
	}
	return ids
}

type bfsNode struct {
	table string
	path  []JoinStep
}

// FindJoinPath searches for a join plan connecting all requested tables,
// walking foreign-key edges in both directions. When an intermediate target
// is reached the search restarts from that table with the accumulated path as
// a fixed prefix, so the remaining targets are reached via this hub. Returns
// nil when fewer than two distinct tables are requested, when a requested
// table is unknown, or when the targets are unreachable.
func (s *Schema) FindJoinPath(tables []string) []JoinStep {
	seen := map[string]bool{}
	var distinct []string
	for _, t := range tables {
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
	}
	if len(distinct) < 2 {
		return nil
	}
	for _, t := range distinct {
		if !s.HasTable(t) {
			return nil
		}
	}

	start := distinct[0]
	targets := map[string]bool{}
	for _, t := range distinct[1:] {
		targets[t] = true
	}

	queue := []bfsNode{{table: start}}
	visited := map[string]bool{}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		current, path := node.table, node.path

		if targets[current] {
			delete(targets, current)
			if len(targets) == 0 {
				return path
			}
			// Restart from the hub: the path so far is the mandatory prefix
			// to everything still unresolved.
			queue = []bfsNode{{table: current, path: path}}
			visited = map[string]bool{}
		}

		if visited[current] {
			continue
		}
		visited[current] = true

		// Forward edges: current references rel.RefTable.
		for _, rel := range s.Relationships[current] {
			if !visited[rel.RefTable] {
				queue = append(queue, bfsNode{
					table: rel.RefTable,
					path:  appendStep(path, JoinStep{current, rel.RefTable, rel.LocalColumn, rel.RefColumn}),
				})
			}
		}

		// Reverse edges: some other table references current, so the join
		// condition swaps the column pair.
		for _, t := range s.Tables {
			if visited[t] {
				continue
			}
			for _, rel := range s.Relationships[t] {
				if rel.RefTable == current {
					queue = append(queue, bfsNode{
						table: t,
						path:  appendStep(path, JoinStep{current, t, rel.RefColumn, rel.LocalColumn}),
					})
				}
			}
		}
	}

	return nil
}

func appendStep(path []JoinStep, step JoinStep) []JoinStep {
	next := make([]JoinStep, len(path), len(path)+1)
	copy(next, path)
	return append(next, step)
}
