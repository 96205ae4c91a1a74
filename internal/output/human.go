package output

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
)

type humanFormatter struct{}

// FormatRows renders rows as an aligned table followed by a row count.
func (humanFormatter) FormatRows(rows []db.Row) (string, error) {
	if len(rows) == 0 {
		return "(0 rows)\n", nil
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	cols := columnNames(rows)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	fmt.Fprintln(tw, strings.Join(underline(cols), "\t"))
	for _, row := range rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			cells[i] = sanitizeCell(v.String())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "(%d %s)\n", len(rows), plural(len(rows), "row", "rows"))
	return sb.String(), nil
}

// FormatTables lists table names one per line.
func (humanFormatter) FormatTables(tables []string) (string, error) {
	if len(tables) == 0 {
		return "No tables.\n", nil
	}
	return strings.Join(tables, "\n") + "\n", nil
}

// FormatTable describes a table's columns, indexes and foreign keys.
func (humanFormatter) FormatTable(t *core.TableInfo) (string, error) {
	if t == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s\n\n", t.Name)

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULL\tDEFAULT\tKEY")
	for _, c := range t.OrderedColumns() {
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.DataType, yesNo(c.Nullable), def, columnKey(c))
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}

	if len(t.Indexes) > 0 {
		sb.WriteString("\nIndexes:\n")
		for _, name := range sortedKeys(t.Indexes) {
			idx := t.Indexes[name]
			kind := "INDEX"
			switch {
			case idx.Primary:
				kind = "PRIMARY"
			case idx.Unique:
				kind = "UNIQUE"
			}
			fmt.Fprintf(&sb, "  %s %s (%s)\n", kind, idx.Name, strings.Join(idx.Columns, ", "))
		}
	}

	if len(t.ForeignKeys) > 0 {
		sb.WriteString("\nForeign keys:\n")
		for _, name := range sortedKeys(t.ForeignKeys) {
			fk := t.ForeignKeys[name]
			fmt.Fprintf(&sb, "  %s: (%s) -> %s(%s)", fk.Name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
			if fk.OnDelete != core.RefActionNone {
				fmt.Fprintf(&sb, " ON DELETE %s", fk.OnDelete)
			}
			if fk.OnUpdate != core.RefActionNone {
				fmt.Fprintf(&sb, " ON UPDATE %s", fk.OnUpdate)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// FormatMigration lists every operation of the plan with its kind and risk.
func (humanFormatter) FormatMigration(m *migration.Migration) (string, error) {
	if m == nil || len(m.Plan()) == 0 {
		return "No migration operations.\n", nil
	}

	var sb strings.Builder
	i := 0
	for _, op := range m.Plan() {
		if op.Kind == core.OperationNote {
			fmt.Fprintf(&sb, "   note: %s\n", op.SQL)
			continue
		}
		i++
		fmt.Fprintf(&sb, "%d. [%s] %s", i, op.Kind, op.SQL)
		if op.Risk != "" && op.Risk != core.RiskInfo {
			fmt.Fprintf(&sb, " (%s)", op.Risk)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func columnKey(c core.ColumnInfo) string {
	switch {
	case c.PrimaryKey && c.AutoIncrement:
		return "PK AUTOINCREMENT"
	case c.PrimaryKey:
		return "PK"
	default:
		return ""
	}
}

func underline(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.Repeat("-", max(len(c), 1))
	}
	return out
}

// sanitizeCell keeps multi-line and tabbed text from breaking the layout.
func sanitizeCell(s string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ").Replace(s)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
