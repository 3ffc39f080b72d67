package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Migration is one SQL file split into statements.
type Migration struct {
	File       string
	Statements []string
}

// ExecFunc runs a single SQL statement.
type ExecFunc func(ctx context.Context, stmt string) error

// Load reads the embedded migrations of schema (Postgres or Clickhouse) in lexical order.
func Load(schema string) ([]Migration, error) {
	return LoadFS(files, schema)
}

// LoadFS reads the .sql files of dir in fsys in lexical order.
// Files that are empty after comment removal are skipped.
func LoadFS(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %s migrations found", dir)
	}

	var out []Migration
	for _, name := range names { // fs.Glob sorts
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return nil, fmt.Errorf("validate migration %s: %w", name, err)
		}
		stmts := splitStatements(string(data))
		if len(stmts) == 0 {
			continue
		}
		out = append(out, Migration{File: path.Base(name), Statements: stmts})
	}
	return out, nil
}

// Apply runs every statement of ms in order and stops at the first failure.
// Statements must be idempotent (CREATE ... IF NOT EXISTS); nothing records
// which files were applied.
func Apply(ctx context.Context, database string, ms []Migration, exec ExecFunc, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, m := range ms {
		for i, stmt := range m.Statements {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", m.File, i+1, err)
			}
		}
		logger.Info("applied migration",
			zap.String("database", database),
			zap.String("file", m.File),
			zap.Int("statements", len(m.Statements)))
	}
	return nil
}

// splitStatements splits SQL content into statements by semicolon.
// Lines starting with -- are dropped first. Semicolons inside string literals are
// not supported; validateNoSemicolonInStrings rejects such files.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings fails if a single-quoted literal contains a semicolon.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch ch := sql[i]; {
		case ch == '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++ // escaped quote
				continue
			}
			inString = !inString
		case ch == ';' && inString:
			return fmt.Errorf("semicolon inside string literal at offset %d", i)
		}
	}
	return nil
}
