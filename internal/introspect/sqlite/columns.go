package sqlite

import (
	"database/sql"

	"relcore/internal/core"
	"relcore/internal/sqltext"
)

const columnsSQL = `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`

func introspectColumns(ic *introspectCtx, table string) (map[string]core.ColumnInfo, error) {
	rows, err := ic.q.QueryContext(ic.ctx, columnsSQL, table)
	if err != nil {
		return nil, core.QueryError(columnsSQL, err)
	}
	defer rows.Close()

	cols := make(map[string]core.ColumnInfo)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, core.QueryError(columnsSQL, err)
		}

		col := core.ColumnInfo{
			Name:       name,
			DataType:   typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
			Ordinal:    cid,
		}
		if dflt.Valid {
			d := dflt.String
			col.Default = &d
		}
		if col.PrimaryKey {
			if cc, ok := sqltext.FindColumnClause(ic.createSQL, name); ok {
				col.AutoIncrement = cc.IsAutoIncrement()
			}
		}
		cols[name] = col
	}
	if err := rows.Err(); err != nil {
		return nil, core.QueryError(columnsSQL, err)
	}
	return cols, nil
}
