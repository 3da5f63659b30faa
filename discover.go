package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// synonyms maps business vocabulary to literal table/column fragments. The
// fragments are substring-matched against the schema exactly like direct
// terms, so they work on any database whose naming overlaps this vocabulary.
var synonyms = map[string][]string{
	"sold":         {"orders", "orderdetails", "quantity", "sales"},
	"sales":        {"orders", "orderdetails", "unitprice", "quantity"},
	"revenue":      {"unitprice", "quantity", "discount", "orders"},
	"bought":       {"orders", "orderdetails"},
	"purchased":    {"orders", "orderdetails"},
	"income":       {"unitprice", "orders"},
	"amount":       {"quantity", "unitprice"},
	"buyer":        {"customers", "customerid"},
	"customer":     {"customers", "customerid"},
	"worker":       {"employees", "employeeid"},
	"employee":     {"employees", "employeeid"},
	"staff":        {"employees", "employeeid"},
	"item":         {"products", "productid"},
	"product":      {"products", "productid"},
	"goods":        {"products", "productid"},
	"supplier":     {"suppliers", "supplierid"},
	"vendor":       {"suppliers", "supplierid"},
	"shipper":      {"shippers", "shipperid"},
	"carrier":      {"shippers", "shipperid"},
	"category":     {"categories", "categoryid"},
	"type":         {"categories", "categoryid"},
	"discontinued": {"discontinued"},
	"freight":      {"freight"},
	"shipping":     {"freight", "shippers"},
}

// suggestionCutoff is the minimum normalized similarity for a close-match
// suggestion, and suggestionCount caps how many are surfaced.
const (
	suggestionCutoff = 0.6
	suggestionCount  = 3
)

// discoverTerm resolves a free-text term against the schema. Resolution
// order, first non-empty wins: direct substring match, synonym-table match,
// then non-binding close-match suggestions. Matches are table names or
// table.column identifiers, returned sorted; notes explain each hit.
func discoverTerm(schema *Schema, term string) (matches []string, notes []string) {
	termLower := strings.ToLower(strings.TrimSpace(term))
	if termLower == "" {
		return nil, nil
	}
	searchSpace := schema.Identifiers()

	matched := map[string]bool{}
	addMatches := func(fragment, label string) {
		for _, name := range searchSpace {
			candidate := name
			if _, column, ok := strings.Cut(name, "."); ok {
				candidate = column
			}
			if strings.Contains(strings.ToLower(candidate), fragment) && !matched[name] {
				matched[name] = true
				notes = append(notes, fmt.Sprintf("%s: %s", label, name))
			}
		}
	}

	addMatches(termLower, "Direct match")

	if len(matched) == 0 {
		for _, synonym := range synonyms[termLower] {
			addMatches(strings.ToLower(synonym), fmt.Sprintf("Synonym %q matched", synonym))
		}
	}

	if len(matched) == 0 {
		if suggestions := closeMatches(termLower, searchSpace); len(suggestions) > 0 {
			notes = append(notes, "Possible matches: "+strings.Join(suggestions, ", "))
		}
		return nil, notes
	}

	for name := range matched {
		matches = append(matches, name)
	}
	sort.Strings(matches)
	return matches, notes
}

// closeMatches ranks identifiers by normalized edit-distance similarity and
// returns the top candidates above the cutoff. These are guidance only,
// never counted as matches.
func closeMatches(term string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	var ranked []scored
	for _, c := range candidates {
		lower := strings.ToLower(c)
		dist := levenshtein.ComputeDistance(term, lower)
		longest := len(term)
		if len(lower) > longest {
			longest = len(lower)
		}
		if longest == 0 {
			continue
		}
		score := 1 - float64(dist)/float64(longest)
		if score >= suggestionCutoff {
			ranked = append(ranked, scored{lower, score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > suggestionCount {
		ranked = ranked[:suggestionCount]
	}
	var out []string
	for _, r := range ranked {
		out = append(out, r.name)
	}
	return out
}

// Draft is a synthesized query offer: the SQL text, how it was derived, and
// whether it is runnable (placeholder drafts and gate refusals are not).
type Draft struct {
	SQL       string
	Tables    []string
	JoinPath  []JoinStep
	Matches   map[string][]string
	Notes     map[string][]string
	Unmatched []string
	Runnable  bool
}

// buildDraft resolves every term, collapses the matches to target tables,
// and drafts dialect-correct SQL. Multi-table targets go through the
// join-path search; unrelated tables produce a commented placeholder rather
// than a fabricated join. Runnable drafts are re-validated by the safety
// gate before being offered.
func buildDraft(schema *Schema, d Dialect, terms []string, limit int) Draft {
	draft := Draft{
		Matches: map[string][]string{},
		Notes:   map[string][]string{},
	}

	discoveredTables := map[string]bool{}
	discoveredColumns := map[string]map[string]bool{}
	finalTables := map[string]bool{}

	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		matches, notes := discoverTerm(schema, term)
		draft.Matches[term] = matches
		draft.Notes[term] = notes
		if len(matches) == 0 {
			draft.Unmatched = append(draft.Unmatched, term)
			continue
		}

		// Collapse to a representative table: a bare table match wins,
		// otherwise every owning table of the column matches counts.
		var bareTable string
		for _, m := range matches {
			table, column, isColumn := strings.Cut(m, ".")
			if isColumn {
				discoveredTables[table] = true
				if discoveredColumns[table] == nil {
					discoveredColumns[table] = map[string]bool{}
				}
				discoveredColumns[table][column] = true
			} else {
				discoveredTables[m] = true
				if bareTable == "" {
					bareTable = m
				}
			}
		}
		if bareTable != "" {
			finalTables[bareTable] = true
		} else {
			for _, m := range matches {
				if table, _, isColumn := strings.Cut(m, "."); isColumn {
					finalTables[table] = true
				}
			}
		}
	}

	targets := sortedKeys(finalTables)
	if len(targets) == 0 {
		targets = sortedKeys(discoveredTables)
	}
	draft.Tables = targets
	if len(targets) == 0 {
		return draft
	}

	switch {
	case len(targets) == 1:
		draft.SQL = fmt.Sprintf("%s\n  *\nFROM %s\n%s",
			renderSelect(d, limit), quoteIdent(d, targets[0]), renderLimit(d, limit))
	default:
		path := schema.FindJoinPath(targets)
		if path == nil {
			draft.SQL = fmt.Sprintf("-- Unable to determine relationships\n-- Tables: %s",
				strings.Join(targets, ", "))
			return draft
		}
		draft.JoinPath = path

		var selectParts []string
		for _, t := range sortedKeys(discoveredTables) {
			for _, c := range sortedKeys(discoveredColumns[t]) {
				selectParts = append(selectParts, quoteIdent(d, t)+"."+quoteIdent(d, c))
			}
		}
		if len(selectParts) == 0 {
			selectParts = []string{"*"}
		}

		var sb strings.Builder
		sb.WriteString(renderSelect(d, limit))
		sb.WriteString("\n  ")
		sb.WriteString(strings.Join(selectParts, ",\n  "))
		sb.WriteString("\nFROM ")
		sb.WriteString(quoteIdent(d, targets[0]))
		sb.WriteString("\n")
		for _, step := range path {
			sb.WriteString(fmt.Sprintf("JOIN %s ON %s.%s = %s.%s\n",
				quoteIdent(d, step.Right),
				quoteIdent(d, step.Left), quoteIdent(d, step.LeftColumn),
				quoteIdent(d, step.Right), quoteIdent(d, step.RightColumn)))
		}
		sb.WriteString(renderLimit(d, limit))
		draft.SQL = sb.String()
	}

	draft.SQL = strings.TrimRight(draft.SQL, " \n")

	// Synthesis never bypasses the gate.
	if _, refusal := classifyQuery(draft.SQL); refusal == "" {
		draft.Runnable = true
	}
	return draft
}

// refineDraft lifts a draft's row limit to the refine default and appends
// optional WHERE conditions. A leading WHERE keyword in the conditions is
// tolerated and stripped.
func refineDraft(sql string, d Dialect, where string, draftLimit, refineLimit int) string {
	base := sql
	if d == DialectSQLServer {
		base = strings.Replace(base,
			fmt.Sprintf("TOP %d", draftLimit), fmt.Sprintf("TOP %d", refineLimit), 1)
	} else {
		base = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(base, " \n"),
			fmt.Sprintf("LIMIT %d", draftLimit)), " \n")
	}

	conditions := strings.TrimSpace(where)
	if len(conditions) >= 5 && strings.EqualFold(conditions[:5], "WHERE") {
		conditions = strings.TrimSpace(conditions[5:])
	}
	if conditions != "" {
		base += "\nWHERE " + conditions
	}

	if d != DialectSQLServer {
		base += "\n" + renderLimit(d, refineLimit)
	}
	return base
}

func sortedKeys(set map[string]bool) []string {
	var keys []string
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
