package output

import (
	"io"
	"strings"

	"relcore/internal/core"
	"relcore/internal/migration"
)

// sqlFormatter renders migrations as a reviewable script. Other results fall
// back to the human layout.
type sqlFormatter struct {
	humanFormatter
}

// FormatMigration formats a migration in SQL format.
func (sqlFormatter) FormatMigration(m *migration.Migration) (string, error) {
	if m == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("-- relcore migration\n")
	sb.WriteString("-- Review before running in production.\n")

	writeCommentSection(&sb, "NOTES", m.Notes())

	ops := statementOperations(m)
	if len(ops) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	writeSQLOperations(&sb, ops)
	return sb.String(), nil
}

func writeSQLOperations(sb *strings.Builder, ops []core.Operation) {
	sb.WriteString("\n-- SQL\n")
	for _, op := range ops {
		writeOperationComment(sb, op)
		sb.WriteString(op.SQL)
		if !strings.HasSuffix(op.SQL, ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
}

func writeOperationComment(sb *strings.Builder, op core.Operation) {
	switch op.Kind {
	case core.OperationPragma:
		sb.WriteString("-- [PRAGMA] (outside the transaction)\n")
	case core.OperationCheck:
		sb.WriteString("-- [CHECK] (must return no rows)\n")
	default:
		if op.Risk != "" && op.Risk != core.RiskInfo {
			sb.WriteString("-- [" + string(op.Risk) + "]\n")
		}
	}
}

// WriteMigration writes a migration as a SQL script to the given writer.
func WriteMigration(m *migration.Migration, w io.Writer) error {
	content, err := sqlFormatter{}.FormatMigration(m)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func statementOperations(m *migration.Migration) []core.Operation {
	var ops []core.Operation
	for _, op := range m.Plan() {
		if op.Kind != core.OperationNote && op.SQL != "" {
			ops = append(ops, op)
		}
	}
	return ops
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
