package sqlite

import (
	"database/sql"
	"strings"

	"relcore/internal/core"
	"relcore/internal/sqltext"
)

// AutoIndexPrefix names the indexes the engine creates for PRIMARY KEY and
// UNIQUE constraints.
const AutoIndexPrefix = "sqlite_autoindex_"

const (
	indexesSQL      = `SELECT name, sql FROM sqlite_master WHERE type = 'index' AND tbl_name = ? COLLATE NOCASE ORDER BY name`
	indexColumnsSQL = `SELECT name FROM pragma_index_info(?) ORDER BY seqno`
)

func introspectIndexes(ic *introspectCtx, table string) (map[string]core.IndexInfo, error) {
	type entry struct {
		name string
		sql  sql.NullString
	}

	rows, err := ic.q.QueryContext(ic.ctx, indexesSQL, table)
	if err != nil {
		return nil, core.QueryError(indexesSQL, err)
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.name, &e.sql); err != nil {
			_ = rows.Close()
			return nil, core.QueryError(indexesSQL, err)
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, core.QueryError(indexesSQL, err)
	}

	indexes := make(map[string]core.IndexInfo, len(entries))
	for _, e := range entries {
		idx := core.IndexInfo{Name: e.name}
		if strings.HasPrefix(e.name, AutoIndexPrefix) {
			idx.Primary = true
			idx.Unique = true
		} else {
			idx.Unique = isUniqueIndex(e.sql.String)
		}
		if idx.Columns, err = queryStrings(ic.ctx, ic.q, indexColumnsSQL, e.name); err != nil {
			return nil, err
		}
		indexes[e.name] = idx
	}
	return indexes, nil
}

// isUniqueIndex reports whether CREATE [UNIQUE] INDEX text declares UNIQUE.
func isUniqueIndex(createSQL string) bool {
	toks := sqltext.Tokenize(createSQL)
	return len(toks) > 1 && sqltext.IsKeyword(toks[0], "CREATE") && sqltext.IsKeyword(toks[1], "UNIQUE")
}
