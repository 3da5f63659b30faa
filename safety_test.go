package main

import (
	"strings"
	"testing"
)

func TestClassifyQuery_AllowedQueries(t *testing.T) {
	allowedQueries := []string{
		"SELECT * FROM users",
		"SELECT id, name FROM users WHERE id = 1",
		"select * from users", // lowercase
		"SELECT * FROM settings",
		"SELECT * FROM user_settings WHERE setting_name = 'theme'",
		"SELECT created_at FROM orders",   // 'created' contains 'create'
		"SELECT updated_at FROM products", // 'updated' contains 'update'
		"SELECT deleted FROM items",       // 'deleted' contains 'delete'
		"SELECT * FROM updates",           // keyword plus suffix is not a whole word
		"SELECT 1;",                       // trailing semicolon is harmless
		"SELECT 1 -- DROP TABLE users",    // keyword lives only in a comment
		"  SELECT name FROM employees  ",
	}

	for _, query := range allowedQueries {
		t.Run(query, func(t *testing.T) {
			cleaned, refusal := classifyQuery(query)
			if refusal != "" {
				t.Errorf("Expected query to be allowed, but got refusal: %v", refusal)
			}
			if cleaned == "" {
				t.Error("Expected cleaned SQL, got empty string")
			}
		})
	}
}

func TestClassifyQuery_RefusedQueries(t *testing.T) {
	refusedQueries := []struct {
		query        string
		reasonSubstr string
	}{
		{"", "No SQL provided"},
		{"   \n\t", "No SQL provided"},
		{"INSERT INTO users VALUES (1, 'test')", "INSERT"},
		{"insert into users values (1)", "INSERT"},
		{"UPDATE users SET name = 'test'", "UPDATE"},
		{"DELETE FROM users", "DELETE"},
		{"DROP TABLE users", "DROP"},
		{"CREATE TABLE test (id INT)", "CREATE"},
		{"ALTER TABLE users ADD COLUMN age INT", "ALTER"},
		{"TRUNCATE TABLE users", "TRUNCATE"},
		{"REPLACE INTO users VALUES (1, 'test')", "REPLACE"},
		{"ATTACH DATABASE '/tmp/other.db' AS other", "ATTACH"},
		{"DETACH DATABASE other", "DETACH"},
		{"PRAGMA table_info(users)", "PRAGMA"},
		{"GRANT ALL ON users TO alice", "GRANT"},
		{"REVOKE ALL ON users FROM alice", "REVOKE"},
		{"MERGE INTO users USING dual ON 1=1", "MERGE"},
		{"EXEC sp_who", "EXEC"},
		{"EXECUTE some_statement", "EXECUTE"},
		{"CALL some_procedure()", "CALL"},
		{"VACUUM", "VACUUM"},
		{"REINDEX users", "REINDEX"},
		{"/* hidden */ DELETE FROM t", "DELETE"},
		{"SELECT * FROM t; DROP TABLE t;", "Multiple SQL statements"},
		{"SELECT 1; SELECT 2", "Multiple SQL statements"},
		{"SHOW TABLES", "Only SELECT"},
		{"DESCRIBE users", "Only SELECT"},
		{"EXPLAIN SELECT * FROM users", "Only SELECT"},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "Only SELECT"},
		// Lexical gate: a denylisted keyword inside a string literal still
		// refuses. False positives are accepted, false negatives are not.
		{"SELECT * FROM users WHERE name = 'DROP TABLE users'", "DROP"},
	}

	for _, tc := range refusedQueries {
		t.Run(tc.query, func(t *testing.T) {
			_, refusal := classifyQuery(tc.query)
			if refusal == "" {
				t.Fatalf("Expected query to be refused, but it was allowed")
			}
			if !strings.Contains(refusal, tc.reasonSubstr) {
				t.Errorf("Expected refusal mentioning %q, got: %v", tc.reasonSubstr, refusal)
			}
		})
	}
}

// The multi-statement check runs before the keyword scan, so a stacked
// mutating statement is reported as multiple statements.
func TestClassifyQuery_MultiStatementCheckedFirst(t *testing.T) {
	_, refusal := classifyQuery("DROP TABLE a; DROP TABLE b")
	if !strings.Contains(refusal, "Multiple SQL statements") {
		t.Errorf("Expected multi-statement refusal, got: %v", refusal)
	}
}

func TestClassifyQuery_StripsComments(t *testing.T) {
	cleaned, refusal := classifyQuery("select Name from Employees -- comment")
	if refusal != "" {
		t.Fatalf("Expected query to be allowed, got refusal: %v", refusal)
	}
	if cleaned != "select Name from Employees" {
		t.Errorf("Expected comment stripped from cleaned SQL, got: %q", cleaned)
	}
}

func TestStripSQLComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "SELECT 1 -- trailing", "SELECT 1"},
		{"block comment", "SELECT /* inline */ 1", "SELECT  1"},
		{"multiline block", "SELECT 1 /* spans\nlines */ + 2", "SELECT 1  + 2"},
		{"multiple comments", "-- first\nSELECT 1 -- second", "SELECT 1"},
		{"no comments", "SELECT 1", "SELECT 1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripSQLComments(tc.in); got != tc.want {
				t.Errorf("stripSQLComments(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
