package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"relcore/internal/core"
	"relcore/internal/engine"
)

const listTablesSQL = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

func (i *introspecter) ListTables(ctx context.Context, q engine.Querier) ([]string, error) {
	return queryStrings(ctx, q, listTablesSQL)
}

func (i *introspecter) TableExists(ctx context.Context, q engine.Querier, table string) (bool, error) {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`
	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return false, core.QueryError(query, err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, core.QueryError(query, err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, core.QueryError(query, err)
	}
	return n > 0, nil
}

// TableSQL returns the catalog name and CREATE TABLE text of table. Unknown
// tables are an InvalidQuery error.
func TableSQL(ctx context.Context, q engine.Querier, table string) (name, createSQL string, err error) {
	const query = `SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`
	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return "", "", core.QueryError(query, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var text sql.NullString
		if err := rows.Scan(&name, &text); err != nil {
			return "", "", core.QueryError(query, err)
		}
		createSQL = text.String
		found = true
	}
	if err := rows.Err(); err != nil {
		return "", "", core.QueryError(query, err)
	}
	if !found {
		return "", "", core.NewError(core.KindInvalidQuery, "introspect", errors.New("unknown table "+`"`+table+`"`))
	}
	return name, createSQL, nil
}

// queryStrings runs query and collects the first column of every row. The
// result set is always drained before returning.
func queryStrings(ctx context.Context, q engine.Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.QueryError(query, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, core.QueryError(query, err)
		}
		out = append(out, s.String)
	}
	if err := rows.Err(); err != nil {
		return nil, core.QueryError(query, err)
	}
	return out, nil
}
