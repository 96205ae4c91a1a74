package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
	"relcore/internal/value"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name string
		want Formatter
	}{
		{"", humanFormatter{}},
		{"human", humanFormatter{}},
		{"  JSON ", jsonFormatter{}},
		{"sql", sqlFormatter{}},
		{"Summary", summaryFormatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestNewFormatterInvalidFormat(t *testing.T) {
	f, err := NewFormatter("yaml")
	assert.Nil(t, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format: yaml")
	assert.Contains(t, err.Error(), "use 'human', 'json', 'sql', or 'summary'")
}

func TestNormalizeStatements(t *testing.T) {
	got := normalizeStatements([]string{"CREATE TABLE t (a INTEGER)", "", "   ", "DROP TABLE t;"})
	assert.Equal(t, []string{"CREATE TABLE t (a INTEGER);", "DROP TABLE t;"}, got)
	assert.Empty(t, normalizeStatements(nil))
}

func userRows() []db.Row {
	cols := []string{"id", "name"}
	return []db.Row{
		{Columns: cols, Values: []value.Value{value.Int64(1), value.String("alice")}},
		{Columns: cols, Values: []value.Value{value.Int64(2), value.Null()}},
	}
}

func employeesTable() *core.TableInfo {
	def := "0"
	return &core.TableInfo{
		Name: "employees",
		Columns: map[string]core.ColumnInfo{
			"id":      {Name: "id", DataType: "INTEGER", PrimaryKey: true, AutoIncrement: true, Ordinal: 0},
			"dept_id": {Name: "dept_id", DataType: "INTEGER", Nullable: true, Ordinal: 1},
			"salary":  {Name: "salary", DataType: "REAL", Default: &def, Ordinal: 2},
		},
		Indexes: map[string]core.IndexInfo{
			"idx_employees_dept": {Name: "idx_employees_dept", Columns: []string{"dept_id"}},
		},
		ForeignKeys: map[string]core.ForeignKeyInfo{
			"fk_employees_0": {
				Name: "fk_employees_0", Column: "dept_id",
				ReferencedTable: "departments", ReferencedColumn: "id",
				OnDelete: core.RefActionSetNull,
			},
		},
	}
}

func samplePlan() *migration.Migration {
	m := &migration.Migration{}
	m.AddPragma("PRAGMA foreign_keys = OFF")
	m.AddStatement(`CREATE TABLE "t" ("id" INTEGER)`, core.RiskInfo)
	m.AddStatement(`DROP TABLE "old"`, core.RiskCritical)
	m.AddCheck("PRAGMA foreign_key_check")
	m.AddNote("table old was rebuilt")
	return m
}

func TestHumanFormatRows(t *testing.T) {
	got, err := humanFormatter{}.FormatRows(userRows())
	require.NoError(t, err)
	assert.Equal(t, "id  name\n--  ----\n1   alice\n2   NULL\n(2 rows)\n", got)

	got, err = humanFormatter{}.FormatRows(nil)
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", got)
}

func TestHumanFormatRowsSanitizesCells(t *testing.T) {
	rows := []db.Row{{Columns: []string{"note"}, Values: []value.Value{value.String("a\tb\nc")}}}
	got, err := humanFormatter{}.FormatRows(rows)
	require.NoError(t, err)
	assert.Contains(t, got, "a b c\n(1 row)\n")
}

func TestHumanFormatTables(t *testing.T) {
	got, err := humanFormatter{}.FormatTables([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", got)

	got, err = humanFormatter{}.FormatTables(nil)
	require.NoError(t, err)
	assert.Equal(t, "No tables.\n", got)
}

func TestHumanFormatTable(t *testing.T) {
	got, err := humanFormatter{}.FormatTable(employeesTable())
	require.NoError(t, err)

	assert.Contains(t, got, "Table: employees\n")
	assert.Regexp(t, `id\s+INTEGER\s+NO\s+PK AUTOINCREMENT`, got)
	assert.Regexp(t, `dept_id\s+INTEGER\s+YES`, got)
	assert.Regexp(t, `salary\s+REAL\s+NO\s+0`, got)
	assert.Contains(t, got, "INDEX idx_employees_dept (dept_id)")
	assert.Contains(t, got, "fk_employees_0: (dept_id) -> departments(id) ON DELETE SET NULL\n")
	assert.Less(t, indexOf(got, "id "), indexOf(got, "dept_id"), "columns follow ordinal order")

	got, err = humanFormatter{}.FormatTable(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHumanFormatMigration(t *testing.T) {
	got, err := humanFormatter{}.FormatMigration(samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "1. [PRAGMA] PRAGMA foreign_keys = OFF\n"+
		"2. [SQL] CREATE TABLE \"t\" (\"id\" INTEGER)\n"+
		"3. [SQL] DROP TABLE \"old\" (CRITICAL)\n"+
		"4. [CHECK] PRAGMA foreign_key_check\n"+
		"   note: table old was rebuilt\n", got)

	got, err = humanFormatter{}.FormatMigration(nil)
	require.NoError(t, err)
	assert.Equal(t, "No migration operations.\n", got)
}

func TestJSONFormatRows(t *testing.T) {
	rows := userRows()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows = append(rows, db.Row{Columns: rows[0].Columns, Values: []value.Value{value.Int64(3), value.DateTime(ts)}})

	got, err := jsonFormatter{}.FormatRows(rows)
	require.NoError(t, err)

	var payload struct {
		Format  string           `json:"format"`
		Count   int              `json:"count"`
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(got), &payload))
	assert.Equal(t, "json", payload.Format)
	assert.Equal(t, 3, payload.Count)
	assert.Equal(t, []string{"id", "name"}, payload.Columns)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "alice"}, payload.Rows[0])
	assert.Nil(t, payload.Rows[1]["name"])
	assert.Equal(t, "2024-01-02 03:04:05", payload.Rows[2]["name"])
}

func TestJSONFormatEmptyResults(t *testing.T) {
	got, err := jsonFormatter{}.FormatRows(nil)
	require.NoError(t, err)
	assert.Contains(t, got, `"columns": []`)
	assert.Contains(t, got, `"rows": []`)

	got, err = jsonFormatter{}.FormatTables(nil)
	require.NoError(t, err)
	assert.Contains(t, got, `"tables": []`)
}

func TestJSONFormatTable(t *testing.T) {
	got, err := jsonFormatter{}.FormatTable(employeesTable())
	require.NoError(t, err)

	var payload struct {
		Table struct {
			Name string `json:"name"`
		} `json:"table"`
		Columns []struct {
			Name string `json:"name"`
		} `json:"orderedColumns"`
		PrimaryKey []string `json:"primaryKey"`
	}
	require.NoError(t, json.Unmarshal([]byte(got), &payload))
	assert.Equal(t, "employees", payload.Table.Name)
	require.Len(t, payload.Columns, 3)
	assert.Equal(t, "id", payload.Columns[0].Name)
	assert.Equal(t, "salary", payload.Columns[2].Name)
	assert.Equal(t, []string{"id"}, payload.PrimaryKey)
}

func TestJSONFormatMigration(t *testing.T) {
	got, err := jsonFormatter{}.FormatMigration(samplePlan())
	require.NoError(t, err)

	var payload migrationPayload
	require.NoError(t, json.Unmarshal([]byte(got), &payload))
	assert.Equal(t, migrationSummary{
		SQLStatements: 4,
		Pragmas:       1,
		Checks:        1,
		Notes:         1,
		HighestRisk:   core.RiskCritical,
	}, payload.Summary)
	assert.Len(t, payload.Operations, 5)
	assert.Equal(t, `DROP TABLE "old";`, payload.SQL[2])
	assert.Equal(t, []string{"table old was rebuilt"}, payload.Notes)
}

func TestSQLFormatMigration(t *testing.T) {
	got, err := sqlFormatter{}.FormatMigration(samplePlan())
	require.NoError(t, err)

	assert.Contains(t, got, "-- relcore migration\n")
	assert.Contains(t, got, "\n-- NOTES\n-- - table old was rebuilt\n")
	assert.Contains(t, got, "-- [PRAGMA] (outside the transaction)\nPRAGMA foreign_keys = OFF;\n")
	assert.Contains(t, got, "-- [CRITICAL]\nDROP TABLE \"old\";\n")
	assert.Contains(t, got, "-- [CHECK] (must return no rows)\nPRAGMA foreign_key_check;\n")
	assert.NotContains(t, got, "-- [INFO]")

	empty, err := sqlFormatter{}.FormatMigration(&migration.Migration{})
	require.NoError(t, err)
	assert.Contains(t, empty, "-- No SQL statements generated.")

	var buf bytes.Buffer
	require.NoError(t, WriteMigration(samplePlan(), &buf))
	assert.Equal(t, got, buf.String())
}

func TestSQLFormatterFallsBackToHuman(t *testing.T) {
	want, err := humanFormatter{}.FormatRows(userRows())
	require.NoError(t, err)
	got, err := sqlFormatter{}.FormatRows(userRows())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSummaryFormatter(t *testing.T) {
	sf := summaryFormatter{}

	rows, err := sf.FormatRows(userRows())
	require.NoError(t, err)
	assert.Equal(t, "2 rows, columns: id, name\n", rows)

	table, err := sf.FormatTable(employeesTable())
	require.NoError(t, err)
	assert.Equal(t, "Table: employees (3 cols, 1 indexes, 1 foreign keys)\n", table)

	plan, err := sf.FormatMigration(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, plan, "SQL Statements: 2\n")
	assert.Contains(t, plan, "Pragmas:        1\n")
	assert.Contains(t, plan, "Checks:         1\n")
	assert.Contains(t, plan, "Highest Risk:   CRITICAL\n")
	assert.Contains(t, plan, "Critical operations: 1\n   - DROP TABLE \"old\"\n")
	assert.Contains(t, plan, "Notes: 1\n   - table old was rebuilt\n")

	none, err := sf.FormatMigration(nil)
	require.NoError(t, err)
	assert.Equal(t, "No migration operations.\n", none)
}

func TestWrite(t *testing.T) {
	f, err := NewFormatter("human")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f, userRows()[0]))
	assert.Contains(t, buf.String(), "(1 row)")

	buf.Reset()
	require.NoError(t, Write(&buf, f, []string{"users"}))
	assert.Equal(t, "users\n", buf.String())

	assert.EqualError(t, Write(&buf, f, 42), "output: cannot format int")
}

func indexOf(s, sub string) int {
	return strings.Index(s, sub)
}
