package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool the spatial queries need.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Tables the PostGIS provider reads, relative to its schema.
var Tables = []string{"poi", "population", "transport_stops", "parking"}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether s can be interpolated into SQL as a schema or
// table name.
func ValidIdent(s string) bool { return identRe.MatchString(s) }

// Connect opens a pool and verifies it answers.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// CheckSchema verifies PostGIS is installed and every table in Tables exists
// in schema.
func CheckSchema(ctx context.Context, pool Pool, schema string) error {
	if !ValidIdent(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}

	var version string
	if err := pool.QueryRow(ctx, `SELECT postgis_version()`).Scan(&version); err != nil {
		return fmt.Errorf("postgis not available: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = ANY($2)`,
		schema, Tables,
	)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(Tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for _, t := range Tables {
		if !found[t] {
			return fmt.Errorf("missing table %s.%s", schema, t)
		}
	}
	return nil
}
