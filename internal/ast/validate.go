package ast

import (
	"errors"
	"fmt"
	"strings"

	"relcore/internal/core"
)

// Validate checks a CREATE TABLE statement for structural correctness before
// it is compiled. Violations are InvalidSchema errors.
func (s *CreateTableStatement) Validate() error {
	if err := s.validate(); err != nil {
		return core.NewError(core.KindInvalidSchema, fmt.Sprintf("table %q", s.Table), err)
	}
	return nil
}

func (s *CreateTableStatement) validate() error {
	if strings.TrimSpace(s.Table) == "" {
		return errors.New("table name is empty")
	}
	if len(s.Columns) == 0 {
		return errors.New("table has no columns")
	}

	seenCols := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if strings.TrimSpace(col.Name) == "" {
			return errors.New("column name is empty")
		}
		lower := strings.ToLower(col.Name)
		if seenCols[lower] {
			return fmt.Errorf("duplicate column name %q", col.Name)
		}
		seenCols[lower] = true
	}

	if err := s.validatePrimaryKey(); err != nil {
		return err
	}

	for _, col := range s.Columns {
		if err := s.validateAutoIncrement(col); err != nil {
			return fmt.Errorf("column %q: %w", col.Name, err)
		}
	}

	for _, cols := range append(append([][]string{}, s.PrimaryKey), s.Uniques...) {
		for _, c := range cols {
			if !seenCols[strings.ToLower(c)] {
				return fmt.Errorf("constraint references unknown column %q", c)
			}
		}
	}

	for _, fk := range s.ForeignKeys {
		if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
			return fmt.Errorf("foreign key to %q: column count mismatch", fk.RefTable)
		}
		if strings.TrimSpace(fk.RefTable) == "" {
			return errors.New("foreign key without referenced table")
		}
		for _, c := range fk.Columns {
			if !seenCols[strings.ToLower(c)] {
				return fmt.Errorf("foreign key references unknown column %q", c)
			}
		}
	}
	return nil
}

// validatePrimaryKey ensures a table doesn't define primary keys both at the
// column level and at the table level.
func (s *CreateTableStatement) validatePrimaryKey() error {
	columnPKs := 0
	for _, col := range s.Columns {
		if col.PrimaryKey {
			columnPKs++
		}
	}
	if columnPKs > 1 {
		return errors.New("multiple column-level primary keys; declare a table-level composite key instead")
	}
	if columnPKs > 0 && len(s.PrimaryKey) > 0 {
		return errors.New("primary key declared on both a column and the table")
	}
	return nil
}

func (s *CreateTableStatement) validateAutoIncrement(col ColumnDef) error {
	if !col.AutoIncrement {
		return nil
	}
	if col.PrimaryKey {
		return nil
	}
	if len(s.PrimaryKey) == 1 && strings.EqualFold(s.PrimaryKey[0], col.Name) {
		return nil
	}
	return errors.New("auto increment requires a single-column primary key")
}
