package output

import (
	"encoding/json"
	"time"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
	"relcore/internal/value"
)

type jsonFormatter struct{}

type rowsPayload struct {
	Format  string           `json:"format"`
	Count   int              `json:"count"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type tablesPayload struct {
	Format string   `json:"format"`
	Tables []string `json:"tables"`
}

type tablePayload struct {
	Format     string            `json:"format"`
	Table      *core.TableInfo   `json:"table"`
	Columns    []core.ColumnInfo `json:"orderedColumns"`
	PrimaryKey []string          `json:"primaryKey,omitempty"`
}

type migrationSummary struct {
	SQLStatements int                `json:"sqlStatements"`
	Pragmas       int                `json:"pragmas"`
	Checks        int                `json:"checks"`
	Notes         int                `json:"notes"`
	HighestRisk   core.OperationRisk `json:"highestRisk"`
}

type migrationPayload struct {
	Format     string           `json:"format"`
	Summary    migrationSummary `json:"summary"`
	Operations []core.Operation `json:"operations,omitempty"`
	Notes      []string         `json:"notes,omitempty"`
	SQL        []string         `json:"sql,omitempty"`
}

type Payload interface {
	rowsPayload | tablesPayload | tablePayload | migrationPayload
}

func (jsonFormatter) FormatRows(rows []db.Row) (string, error) {
	payload := rowsPayload{
		Format:  string(FormatJSON),
		Count:   len(rows),
		Columns: columnNames(rows),
		Rows:    make([]map[string]any, 0, len(rows)),
	}
	if payload.Columns == nil {
		payload.Columns = []string{}
	}
	for _, row := range rows {
		obj := make(map[string]any, row.Len())
		for i, col := range row.Columns {
			obj[col] = jsonValue(row.Values[i])
		}
		payload.Rows = append(payload.Rows, obj)
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatTables(tables []string) (string, error) {
	payload := tablesPayload{Format: string(FormatJSON), Tables: tables}
	if payload.Tables == nil {
		payload.Tables = []string{}
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatTable(t *core.TableInfo) (string, error) {
	payload := tablePayload{Format: string(FormatJSON), Table: t}
	if t != nil {
		payload.Columns = t.OrderedColumns()
		payload.PrimaryKey = t.PrimaryKey()
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatMigration(m *migration.Migration) (string, error) {
	payload := migrationPayload{Format: string(FormatJSON)}
	if m != nil {
		payload.Operations = m.Plan()
		payload.Notes = m.Notes()
		payload.SQL = normalizeStatements(m.SQLStatements())
		payload.Summary = migrationSummary{
			SQLStatements: len(payload.SQL),
			Notes:         len(payload.Notes),
			HighestRisk:   m.HighestRisk(),
		}
		for _, op := range payload.Operations {
			switch op.Kind {
			case core.OperationPragma:
				payload.Summary.Pragmas++
			case core.OperationCheck:
				payload.Summary.Checks++
			}
		}
	}
	return marshalJSON(payload)
}

// jsonValue maps a value onto a JSON-friendly Go value. Date-times use the
// storage layout so output matches what the engine holds.
func jsonValue(v value.Value) any {
	if t, ok := v.Any().(time.Time); ok {
		return t.Format(value.DateTimeLayout)
	}
	return v.Any()
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
