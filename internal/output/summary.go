package output

import (
	"fmt"
	"strings"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
)

type summaryFormatter struct {
	humanFormatter
}

// FormatRows reports only the row count and the column set.
func (summaryFormatter) FormatRows(rows []db.Row) (string, error) {
	if len(rows) == 0 {
		return "0 rows\n", nil
	}
	return fmt.Sprintf("%d %s, columns: %s\n", len(rows), plural(len(rows), "row", "rows"),
		strings.Join(columnNames(rows), ", ")), nil
}

// FormatTable reports the table shape in one line.
func (summaryFormatter) FormatTable(t *core.TableInfo) (string, error) {
	if t == nil {
		return "", nil
	}
	return t.String() + "\n", nil
}

// FormatMigration formats a migration as a compact summary.
// Example output:
//
//	Migration Summary
//	=================
//
//	SQL Statements: 4
//	Pragmas:        2
//	Checks:         1
//	Highest Risk:   WARNING
func (summaryFormatter) FormatMigration(m *migration.Migration) (string, error) {
	if m == nil || len(m.Plan()) == 0 {
		return "No migration operations.\n", nil
	}

	var sqlOps, pragmas, checks int
	risks := map[core.OperationRisk]int{}
	for _, op := range m.Plan() {
		switch op.Kind {
		case core.OperationSQL:
			sqlOps++
			risks[op.Risk]++
		case core.OperationPragma:
			pragmas++
		case core.OperationCheck:
			checks++
		}
	}

	var sb strings.Builder
	sb.WriteString("Migration Summary\n")
	sb.WriteString("=================\n\n")

	fmt.Fprintf(&sb, "SQL Statements: %d\n", sqlOps)
	if pragmas > 0 {
		fmt.Fprintf(&sb, "Pragmas:        %d\n", pragmas)
	}
	if checks > 0 {
		fmt.Fprintf(&sb, "Checks:         %d\n", checks)
	}
	fmt.Fprintf(&sb, "Highest Risk:   %s\n", m.HighestRisk())

	if n := risks[core.RiskCritical]; n > 0 {
		fmt.Fprintf(&sb, "\nCritical operations: %d\n", n)
		for _, op := range m.Plan() {
			if op.Kind == core.OperationSQL && op.Risk == core.RiskCritical {
				fmt.Fprintf(&sb, "   - %s\n", op.SQL)
			}
		}
	}

	if notes := m.Notes(); len(notes) > 0 {
		fmt.Fprintf(&sb, "\nNotes: %d\n", len(notes))
		for _, n := range notes {
			fmt.Fprintf(&sb, "   - %s\n", n)
		}
	}

	return sb.String(), nil
}
