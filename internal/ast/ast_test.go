package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcore/internal/core"
	"relcore/internal/value"
)

func TestCreateTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		stmt    CreateTableStatement
		wantErr string
	}{
		{
			name: "valid",
			stmt: CreateTableStatement{
				Table:   "t",
				Columns: []ColumnDef{{Name: "id", PrimaryKey: true, AutoIncrement: true}, {Name: "p"}},
				ForeignKeys: []ForeignKeyDef{
					{Columns: []string{"p"}, RefTable: "parent", RefColumns: []string{"id"}},
				},
			},
		},
		{name: "empty table", stmt: CreateTableStatement{Columns: []ColumnDef{{Name: "a"}}}, wantErr: "table name is empty"},
		{name: "no columns", stmt: CreateTableStatement{Table: "t"}, wantErr: "no columns"},
		{name: "empty column", stmt: CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: " "}}}, wantErr: "column name is empty"},
		{name: "duplicate", stmt: CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a"}, {Name: "A"}}}, wantErr: "duplicate column"},
		{
			name:    "two column keys",
			stmt:    CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a", PrimaryKey: true}, {Name: "b", PrimaryKey: true}}},
			wantErr: "multiple column-level primary keys",
		},
		{
			name:    "column and table key",
			stmt:    CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a", PrimaryKey: true}}, PrimaryKey: []string{"a"}},
			wantErr: "both a column and the table",
		},
		{
			name:    "autoincrement on non key",
			stmt:    CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a", AutoIncrement: true}}},
			wantErr: "auto increment requires",
		},
		{
			name:    "autoincrement on composite key",
			stmt:    CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a", AutoIncrement: true}, {Name: "b"}}, PrimaryKey: []string{"a", "b"}},
			wantErr: "auto increment requires",
		},
		{
			name:    "unknown unique column",
			stmt:    CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a"}}, Uniques: [][]string{{"b"}}},
			wantErr: "unknown column",
		},
		{
			name: "fk count mismatch",
			stmt: CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a"}}, ForeignKeys: []ForeignKeyDef{
				{Columns: []string{"a"}, RefTable: "p", RefColumns: []string{"x", "y"}},
			}},
			wantErr: "column count mismatch",
		},
		{
			name: "fk unknown column",
			stmt: CreateTableStatement{Table: "t", Columns: []ColumnDef{{Name: "a"}}, ForeignKeys: []ForeignKeyDef{
				{Columns: []string{"z"}, RefTable: "p", RefColumns: []string{"x"}},
			}},
			wantErr: "unknown column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stmt.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUpsertHalves(t *testing.T) {
	s := &UpsertStatement{
		Table:  "kv",
		Values: []Assignment{Set("v", V(value.String("new")))},
		Filters: []Expr{
			Where("k", value.String("a")),
			AllOf(Where("ns", value.Int64(1)), Gt(Col("version"), V(value.Int64(3)))),
			Where("deleted_at", value.Null()),
			Where("v", value.String("old")),
		},
		Limit: 1,
	}

	upd := s.Update(true)
	assert.Equal(t, "kv", upd.Table)
	assert.Equal(t, s.Filters, upd.Filters)
	assert.Equal(t, 1, upd.Limit)
	assert.True(t, upd.Returning)

	ins := s.Insert(false)
	assert.Equal(t, []Assignment{
		Set("v", V(value.String("new"))),
		Set("k", V(value.String("a"))),
		Set("ns", V(value.Int64(1))),
	}, ins.Values)
	assert.False(t, ins.Returning)
	assert.Len(t, s.Values, 1)
}
