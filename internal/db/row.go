package db

import (
	"database/sql"
	"strings"

	"relcore/internal/core"
	"relcore/internal/value"
)

// Row is one result row: column names and values in engine column order.
// Names are not guaranteed to be unique (e.g. joins selecting "*").
type Row struct {
	Columns []string
	Values  []value.Value
}

// Get returns the value of the first column named name, matched
// case-insensitively.
func (r Row) Get(name string) (value.Value, bool) {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return r.Values[i], true
		}
	}
	return value.Null(), false
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.Columns) }

// Map returns the row as a column to value map. Duplicate names keep the
// first value.
func (r Row) Map() map[string]value.Value {
	out := make(map[string]value.Value, len(r.Columns))
	for i, c := range r.Columns {
		if _, ok := out[c]; !ok {
			out[c] = r.Values[i]
		}
	}
	return out
}

// collectRows reads rows into Rows, keeping at most keep rows (all when keep
// is 0). The result set is always read to the end and closed, so the engine
// finishes the statement even when the caller only wants the first row.
func collectRows(rs *sql.Rows, query string, keep int) ([]Row, error) {
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, core.QueryError(query, err)
	}

	var out []Row
	for rs.Next() {
		if keep > 0 && len(out) >= keep {
			continue
		}
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, core.QueryError(query, err)
		}
		row := Row{Columns: cols, Values: make([]value.Value, len(cols))}
		for i, x := range raw {
			v, err := value.FromEngine(x)
			if err != nil {
				return nil, err
			}
			row.Values[i] = v
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, core.QueryError(query, err)
	}
	return out, nil
}
