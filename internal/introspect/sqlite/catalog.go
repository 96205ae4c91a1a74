package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/sqltext"
)

// CatalogObject is an index, trigger or view as stored in sqlite_master.
type CatalogObject struct {
	Type string
	Name string
	SQL  string
}

// IsAutoIndex reports whether the object is an index the engine created for
// a constraint. Those have no SQL and cannot be replayed.
func (o CatalogObject) IsAutoIndex() bool {
	return o.Type == "index" && strings.HasPrefix(o.Name, AutoIndexPrefix)
}

// AuxiliaryObjects returns the indexes and triggers attached to table and the
// views whose definition mentions it, in catalog order.
func AuxiliaryObjects(ctx context.Context, q engine.Querier, table string) ([]CatalogObject, error) {
	const query = `SELECT type, name, tbl_name, sql FROM sqlite_master WHERE type IN ('index', 'trigger', 'view') ORDER BY rowid`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, core.QueryError(query, err)
	}
	defer rows.Close()

	var out []CatalogObject
	for rows.Next() {
		var (
			o       CatalogObject
			tblName string
			text    sql.NullString
		)
		if err := rows.Scan(&o.Type, &o.Name, &tblName, &text); err != nil {
			return nil, core.QueryError(query, err)
		}
		o.SQL = text.String
		switch o.Type {
		case "view":
			if !sqltext.MentionsIdentifier(o.SQL, table) {
				continue
			}
		default:
			if !strings.EqualFold(tblName, table) {
				continue
			}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, core.QueryError(query, err)
	}
	return out, nil
}

// GeneratedColumns returns the names of the generated columns of table.
func GeneratedColumns(ctx context.Context, q engine.Querier, table string) ([]string, error) {
	// hidden is 2 for VIRTUAL and 3 for STORED generated columns.
	return queryStrings(ctx, q, `SELECT name FROM pragma_table_xinfo(?) WHERE hidden IN (2, 3) ORDER BY cid`, table)
}

// ForeignKeysEnabled reports the connection's foreign_keys pragma.
func ForeignKeysEnabled(ctx context.Context, q engine.Querier) (bool, error) {
	v, err := queryStrings(ctx, q, `PRAGMA foreign_keys`)
	if err != nil {
		return false, err
	}
	return len(v) == 1 && v[0] == "1", nil
}

// ForeignKeyViolation is one row of PRAGMA foreign_key_check.
type ForeignKeyViolation struct {
	Table  string
	RowID  int64
	Parent string
}

// ForeignKeyCheck runs PRAGMA foreign_key_check over the whole database.
func ForeignKeyCheck(ctx context.Context, q engine.Querier) ([]ForeignKeyViolation, error) {
	const query = `PRAGMA foreign_key_check`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, core.QueryError(query, err)
	}
	defer rows.Close()

	var out []ForeignKeyViolation
	for rows.Next() {
		var (
			v     ForeignKeyViolation
			rowID sql.NullInt64
			fkID  int64
		)
		if err := rows.Scan(&v.Table, &rowID, &v.Parent, &fkID); err != nil {
			return nil, core.QueryError(query, err)
		}
		v.RowID = rowID.Int64
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.QueryError(query, err)
	}
	return out, nil
}
