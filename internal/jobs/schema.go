package jobs

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema_sqlite.sql
var sqliteSchemaSQL string

//go:embed schema_mysql.sql
var mysqlSchemaSQL string

// initSchema creates the jobs table when missing. It is safe to run on every open.
func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(s.dialect.schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// splitStatements breaks a schema file on semicolons; the MySQL driver rejects
// multi-statement Exec without multiStatements=true.
func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
