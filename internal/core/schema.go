// Package core contains the single source of truth for schema metadata and errors.
// It provides read-only snapshots of tables, columns, indexes and foreign keys as
// the engine reports them, and the error taxonomy shared by every other package.
package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Dialect identifies a supported SQL dialect.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
)

// SupportedDialects returns a slice of all supported dialect values.
func SupportedDialects() []Dialect {
	return []Dialect{DialectSQLite}
}

// IsValidDialect reports whether d is a recognized dialect string.
func IsValidDialect(d string) bool {
	for _, supported := range SupportedDialects() {
		if strings.EqualFold(string(supported), d) {
			return true
		}
	}
	return false
}

// TableInfo is a snapshot of a single table. It is recomputed on every
// introspection call and never cached, since DDL may change it at any time.
type TableInfo struct {
	Name        string                    `json:"name"`
	Columns     map[string]ColumnInfo     `json:"columns"`
	Indexes     map[string]IndexInfo      `json:"indexes,omitempty"`
	ForeignKeys map[string]ForeignKeyInfo `json:"foreignKeys,omitempty"`
}

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name          string  `json:"name"`
	DataType      string  `json:"dataType"`
	Nullable      bool    `json:"nullable"`
	PrimaryKey    bool    `json:"primaryKey"`
	AutoIncrement bool    `json:"autoIncrement"`
	Default       *string `json:"default,omitempty"`
	Ordinal       int     `json:"ordinal"`
}

// IndexInfo describes an index on a table.
type IndexInfo struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique"`
	Columns []string `json:"columns"`
	Primary bool     `json:"primary"`
}

// ForeignKeyInfo describes a foreign key. Composite keys keep their column
// lists combined in a single string (e.g. "a, b").
type ForeignKeyInfo struct {
	Name             string            `json:"name"`
	Column           string            `json:"column"`
	ReferencedTable  string            `json:"referencedTable"`
	ReferencedColumn string            `json:"referencedColumn"`
	OnUpdate         ReferentialAction `json:"onUpdate,omitempty"`
	OnDelete         ReferentialAction `json:"onDelete,omitempty"`
}

// ReferentialAction is an ENUM with all possible ON UPDATE / ON DELETE actions.
// "NO ACTION" is the engine default and is represented as RefActionNone.
type ReferentialAction string

const (
	RefActionNone       ReferentialAction = ""
	RefActionCascade    ReferentialAction = "CASCADE"
	RefActionRestrict   ReferentialAction = "RESTRICT"
	RefActionSetNull    ReferentialAction = "SET NULL"
	RefActionSetDefault ReferentialAction = "SET DEFAULT"
)

// NormalizeReferentialAction upper-cases and collapses whitespace of a raw
// action. "NO ACTION" and an empty string both normalize to RefActionNone.
func NormalizeReferentialAction(raw string) ReferentialAction {
	action := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if action == "" || action == "NO ACTION" {
		return RefActionNone
	}
	return ReferentialAction(action)
}

// FindColumn looks for a column by name inside a table.
func (t *TableInfo) FindColumn(name string) (ColumnInfo, bool) {
	if c, ok := t.Columns[name]; ok {
		return c, true
	}
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// OrderedColumns returns the columns sorted by their ordinal position.
func (t *TableInfo) OrderedColumns() []ColumnInfo {
	cols := slices.Collect(maps.Values(t.Columns))
	slices.SortFunc(cols, func(a, b ColumnInfo) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return cols
}

// PrimaryKey returns the names of the primary key columns in ordinal order.
func (t *TableInfo) PrimaryKey() []string {
	var out []string
	for _, c := range t.OrderedColumns() {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// References reports whether any foreign key of the table points at the given table.
// Self references are ignored.
func (t *TableInfo) References(table string) bool {
	if strings.EqualFold(t.Name, table) {
		return false
	}
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.ReferencedTable, table) {
			return true
		}
	}
	return false
}

// String returns a short representation of a table.
func (t *TableInfo) String() string {
	return fmt.Sprintf("Table: %s (%d cols, %d indexes, %d foreign keys)",
		t.Name, len(t.Columns), len(t.Indexes), len(t.ForeignKeys))
}

// Names returns the names of the columns in the index.
func (i *IndexInfo) Names() []string {
	return slices.Clone(i.Columns)
}

// Covers reports whether the index includes the given column.
func (i *IndexInfo) Covers(column string) bool {
	for _, c := range i.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// Columns splits the combined column string of a composite key.
func (fk ForeignKeyInfo) Columns() []string {
	var out []string
	for _, c := range strings.Split(fk.Column, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Involves reports whether the key includes the given local column.
func (fk ForeignKeyInfo) Involves(column string) bool {
	for _, c := range fk.Columns() {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}
