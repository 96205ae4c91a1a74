package ast

import "relcore/internal/core"

// Statement is any compilable statement.
type Statement interface {
	statement()
}

// Assignment sets a column to an expression.
type Assignment struct {
	Column string
	Value  Expr
}

// Set is shorthand for an Assignment.
func Set(column string, v Expr) Assignment {
	return Assignment{Column: column, Value: v}
}

// SelectQuery is a SELECT. Empty Columns select "*". Limit and Offset of zero
// or less are omitted.
type SelectQuery struct {
	Table    string
	Distinct bool
	Columns  []Expr
	Filters  []Expr
	Joins    []Join
	Sorts    []Sort
	Limit    int
	Offset   int
}

// InsertStatement inserts one row. No values means DEFAULT VALUES.
type InsertStatement struct {
	Table     string
	Values    []Assignment
	Returning bool
}

// UpdateStatement updates the rows matching Filters.
type UpdateStatement struct {
	Table     string
	Values    []Assignment
	Filters   []Expr
	Limit     int
	Returning bool
}

// UpsertStatement updates the rows matching Filters, or inserts a row
// when nothing matched.
type UpsertStatement struct {
	Table   string
	Values  []Assignment
	Filters []Expr
	Limit   int
}

// UpsertMultiStatement upserts a batch of rows into one table. Every row must
// assign the same set of columns. With ConflictColumns, existing rows that
// collide on them are updated; without, colliding rows are replaced.
type UpsertMultiStatement struct {
	Table           string
	Rows            [][]Assignment
	ConflictColumns []string
}

// DeleteStatement deletes the rows matching Filters.
type DeleteStatement struct {
	Table     string
	Filters   []Expr
	Limit     int
	Returning bool
}

// ColumnDef is a column definition for CREATE TABLE and ADD COLUMN.
// Default accepts a Val or a Literal.
type ColumnDef struct {
	Name          string
	Type          string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Default       Expr
	Check         string
}

// ForeignKeyDef is a table-level foreign key.
type ForeignKeyDef struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnUpdate   core.ReferentialAction
	OnDelete   core.ReferentialAction
}

// CreateTableStatement creates a table. PrimaryKey declares a table-level
// (possibly composite) key and must not be combined with column-level keys.
type CreateTableStatement struct {
	Table       string
	IfNotExists bool
	Columns     []ColumnDef
	PrimaryKey  []string
	ForeignKeys []ForeignKeyDef
	Uniques     [][]string
	Checks      []string
}

// DropBehavior controls how dependents are handled by DROP TABLE.
type DropBehavior int

const (
	DropDefault DropBehavior = iota
	DropCascade
	DropRestrict
)

func (b DropBehavior) String() string {
	switch b {
	case DropCascade:
		return "CASCADE"
	case DropRestrict:
		return "RESTRICT"
	default:
		return "DEFAULT"
	}
}

// DropTableStatement drops a table.
type DropTableStatement struct {
	Table    string
	IfExists bool
	Behavior DropBehavior
}

// CreateIndexStatement creates an index.
type CreateIndexStatement struct {
	Name        string
	Table       string
	Columns     []string
	Unique      bool
	IfNotExists bool
}

// DropIndexStatement drops an index.
type DropIndexStatement struct {
	Name     string
	IfExists bool
}

// AlterTableStatement applies operations to a table, in order.
type AlterTableStatement struct {
	Table      string
	Operations []AlterOperation
}

// AlterOperation is a single ALTER TABLE step.
type AlterOperation interface {
	alterOperation()
}

// AddColumn adds a column.
type AddColumn struct {
	Column ColumnDef
}

// DropColumn drops a column.
type DropColumn struct {
	Name string
}

// RenameColumn renames a column.
type RenameColumn struct {
	From string
	To   string
}

// ModifyColumn changes the type, nullability and default of a column.
type ModifyColumn struct {
	Name     string
	Type     string
	Nullable bool
	Default  Expr
}

// RenameTable renames the table itself.
type RenameTable struct {
	To string
}

func (*SelectQuery) statement()          {}
func (*InsertStatement) statement()      {}
func (*UpdateStatement) statement()      {}
func (*UpsertStatement) statement()      {}
func (*UpsertMultiStatement) statement() {}
func (*DeleteStatement) statement()      {}
func (*CreateTableStatement) statement() {}
func (*DropTableStatement) statement()   {}
func (*CreateIndexStatement) statement() {}
func (*DropIndexStatement) statement()   {}
func (*AlterTableStatement) statement()  {}

func (AddColumn) alterOperation()    {}
func (DropColumn) alterOperation()   {}
func (RenameColumn) alterOperation() {}
func (ModifyColumn) alterOperation() {}
func (RenameTable) alterOperation()  {}
