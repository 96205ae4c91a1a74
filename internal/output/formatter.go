// Package output provides a set of formatters for query results, table
// descriptions and migration plans. It is extendable and for now provides
// four formats: human, JSON, SQL and summary.
package output

import (
	"fmt"
	"io"
	"strings"

	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatHuman   Format = "human"
	FormatJSON    Format = "json"
	FormatSQL     Format = "sql"
	FormatSummary Format = "summary"
)

// Formatter renders the results of relcore operations.
type Formatter interface {
	FormatRows([]db.Row) (string, error)
	FormatTables([]string) (string, error)
	FormatTable(*core.TableInfo) (string, error)
	FormatMigration(*migration.Migration) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to human format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSQL:
		return sqlFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human', 'json', 'sql', or 'summary'", name)
	}
}

// Write formats v with f and writes the result to w.
func Write(w io.Writer, f Formatter, v any) error {
	var (
		content string
		err     error
	)
	switch v := v.(type) {
	case []db.Row:
		content, err = f.FormatRows(v)
	case db.Row:
		content, err = f.FormatRows([]db.Row{v})
	case []string:
		content, err = f.FormatTables(v)
	case *core.TableInfo:
		content, err = f.FormatTable(v)
	case *migration.Migration:
		content, err = f.FormatMigration(v)
	default:
		return fmt.Errorf("output: cannot format %T", v)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func normalizeStatements(stmts []string) []string {
	var out []string
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !strings.HasSuffix(stmt, ";") {
			stmt += ";"
		}
		out = append(out, stmt)
	}
	return out
}

// columnNames returns the column set of the first row. Rows of one result
// share their columns.
func columnNames(rows []db.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Columns
}
