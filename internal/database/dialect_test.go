package database

import (
	"strings"
	"testing"
)

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "no placeholders",
			query: "SELECT id FROM tasks",
			want:  "SELECT id FROM tasks",
		},
		{
			name:  "single placeholder",
			query: "SELECT id FROM tasks WHERE topic = ?",
			want:  "SELECT id FROM tasks WHERE topic = $1",
		},
		{
			name:  "multiple placeholders",
			query: "INSERT INTO tasks (kind, sentence, topic) VALUES (?, ?, ?)",
			want:  "INSERT INTO tasks (kind, sentence, topic) VALUES ($1, $2, $3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewritePlaceholdersToNumbered(tt.query); got != tt.want {
				t.Errorf("rewritePlaceholdersToNumbered() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialectRewriteQuery(t *testing.T) {
	query := "SELECT id FROM users WHERE email = ? AND role = ?"

	if got := NewSQLiteDialect().RewriteQuery(query); got != query {
		t.Errorf("sqlite rewrote query: %q", got)
	}
	if got := NewMySQLDialect().RewriteQuery(query); got != query {
		t.Errorf("mysql rewrote query: %q", got)
	}
	want := "SELECT id FROM users WHERE email = $1 AND role = $2"
	if got := NewPostgresDialect().RewriteQuery(query); got != want {
		t.Errorf("postgres RewriteQuery() = %q, want %q", got, want)
	}
}

func TestDialectLastInsertIdSupport(t *testing.T) {
	if !NewSQLiteDialect().SupportsLastInsertId() {
		t.Error("sqlite should support LastInsertId")
	}
	if !NewMySQLDialect().SupportsLastInsertId() {
		t.Error("mysql should support LastInsertId")
	}
	if NewPostgresDialect().SupportsLastInsertId() {
		t.Error("postgres should not support LastInsertId")
	}
}

func TestMySQLDSNAddsMultiStatements(t *testing.T) {
	d := NewMySQLDialect()

	dsn := d.DSN(DialectConfig{URL: "user:pass@tcp(localhost:3306)/gramatikonas"})
	if !strings.Contains(dsn, "?multiStatements=true") {
		t.Errorf("DSN missing multiStatements param: %q", dsn)
	}

	dsn = d.DSN(DialectConfig{URL: "user:pass@tcp(localhost:3306)/gramatikonas?charset=utf8mb4"})
	if !strings.Contains(dsn, "&multiStatements=true") {
		t.Errorf("DSN with existing params missing multiStatements: %q", dsn)
	}

	already := "user:pass@tcp(localhost:3306)/gramatikonas?multiStatements=true"
	if got := d.DSN(DialectConfig{URL: already}); got != already {
		t.Errorf("DSN duplicated multiStatements: %q", got)
	}
}

func TestMigrationsSubdirs(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{NewSQLiteDialect(), "sqlite"},
		{NewPostgresDialect(), "postgres"},
		{NewMySQLDialect(), "mysql"},
	}

	for _, tt := range tests {
		if got := tt.dialect.MigrationsSubdir(); got != tt.want {
			t.Errorf("MigrationsSubdir() = %q, want %q", got, tt.want)
		}
	}
}
