package main

import (
	"fmt"
	"regexp"
	"strings"
)

// The safety gate is lexical by design: it scans text, it does not parse SQL.
// That means it can reject a legal SELECT whose string literal mentions DROP,
// but it can never let a mutating statement through. False positives are the
// accepted cost of that guarantee.

var lineCommentPattern = regexp.MustCompile(`--[^\n]*`)
var blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

// deniedKeywords are mutating, DDL, and administrative keywords that block
// execution regardless of dialect. Matched whole-word, case-insensitive.
var deniedKeywords = []struct {
	re   *regexp.Regexp
	word string
}{
	{wordPattern("INSERT"), "INSERT"},
	{wordPattern("UPDATE"), "UPDATE"},
	{wordPattern("DELETE"), "DELETE"},
	{wordPattern("DROP"), "DROP"},
	{wordPattern("ALTER"), "ALTER"},
	{wordPattern("TRUNCATE"), "TRUNCATE"},
	{wordPattern("CREATE"), "CREATE"},
	{wordPattern("REPLACE"), "REPLACE"},
	{wordPattern("ATTACH"), "ATTACH"},
	{wordPattern("DETACH"), "DETACH"},
	{wordPattern("PRAGMA"), "PRAGMA"},
	{wordPattern("GRANT"), "GRANT"},
	{wordPattern("REVOKE"), "REVOKE"},
	{wordPattern("MERGE"), "MERGE"},
	{wordPattern("EXEC"), "EXEC"},
	{wordPattern("EXECUTE"), "EXECUTE"},
	{wordPattern("CALL"), "CALL"},
	{wordPattern("VACUUM"), "VACUUM"},
	{wordPattern("REINDEX"), "REINDEX"},
}

func wordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])` + keyword + `(?:[^a-zA-Z_]|$)`)
}

// stripSQLComments removes -- line comments and /* */ block comments,
// operating purely on text.
func stripSQLComments(sql string) string {
	sql = lineCommentPattern.ReplaceAllString(sql, "")
	sql = blockCommentPattern.ReplaceAllString(sql, "")
	return strings.TrimSpace(sql)
}

// classifyQuery decides whether raw SQL may execute. It returns the cleaned
// query text when allowed, or a non-empty refusal reason when the query must
// not run. Checks run in a fixed order: empty input, comment stripping,
// multiple statements, denied keywords, SELECT prefix.
func classifyQuery(raw string) (cleaned string, refusal string) {
	if strings.TrimSpace(raw) == "" {
		return "", "No SQL provided."
	}

	cleaned = stripSQLComments(raw)

	// Trailing semicolons are harmless; any other semicolon means a second
	// statement is lurking.
	if strings.Contains(strings.TrimRight(cleaned, ";"), ";") {
		return "", "Multiple SQL statements detected. Only single SELECT statements are allowed."
	}

	for _, dk := range deniedKeywords {
		if dk.re.MatchString(cleaned) {
			return "", fmt.Sprintf("This query contains `%s`. Execution is blocked to prevent data changes.", dk.word)
		}
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(cleaned)), "SELECT") {
		return "", "Only SELECT queries are allowed."
	}

	return cleaned, ""
}
