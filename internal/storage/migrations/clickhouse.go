package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	chstore "fuel-price-lab/internal/storage/clickhouse"
)

const clickhouseVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    String,
		applied_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(applied_at)
	ORDER BY version`

// RunClickhouseMigrations creates the database named in dsn if needed and
// applies the embedded SQL files not yet listed in schema_migrations. It
// returns a connection to that database and the versions applied by this
// call.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, []string, error) {
	if _, err := chstore.EnsureDatabase(ctx, dsn); err != nil {
		return nil, nil, err
	}
	conn, err := chstore.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	applied, err := applyClickhouse(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, applied, nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) ([]string, error) {
	if err := conn.Exec(ctx, clickhouseVersionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	done := make(map[string]bool)
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations FINAL`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, err
		}
		done[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	files, err := listMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, file := range files {
		version := strings.TrimSuffix(file, ".sql")
		if done[version] {
			continue
		}

		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := splitStatements(string(data))
		if err != nil {
			return applied, fmt.Errorf("parse migration %s: %w", file, err)
		}
		// The native protocol takes one statement per Exec and has no DDL
		// transactions, so every statement must be idempotent.
		for i, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply migration %s statement %d: %w", file, i+1, err)
			}
		}
		if err := conn.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", version, err)
		}
		applied = append(applied, version)
	}
	return applied, nil
}

// splitStatements splits a SQL script on semicolons outside string literals
// and drops -- line comments. An unterminated literal is an error.
func splitStatements(script string) ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case comment:
			if ch == '\n' {
				comment = false
				cur.WriteByte(ch)
			}
		case quoted:
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(script) {
				i++
				cur.WriteByte(script[i])
			} else if ch == '\'' {
				if i+1 < len(script) && script[i+1] == '\'' {
					i++
					cur.WriteByte('\'')
				} else {
					quoted = false
				}
			}
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			comment = true
			i++
		case ch == '\'':
			quoted = true
			cur.WriteByte(ch)
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return stmts, nil
}
