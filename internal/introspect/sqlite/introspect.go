// Package sqlite contains the introspect implementation for SQLite. Columns
// and index columns come from the engine's pragmas; auto increment and foreign
// keys are recovered from the table's own CREATE TABLE text.
package sqlite

import (
	"context"
	"fmt"

	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/introspect"
)

func init() {
	introspect.Register(core.DialectSQLite, New)
}

type introspecter struct{}

type introspectCtx struct {
	ctx context.Context
	q   engine.Querier
	// createSQL is the CREATE TABLE text of the table being introspected.
	createSQL string
}

func New() introspect.Introspecter {
	return &introspecter{}
}

func (i *introspecter) GetTableInfo(ctx context.Context, q engine.Querier, table string) (*core.TableInfo, error) {
	name, createSQL, err := TableSQL(ctx, q, table)
	if err != nil {
		return nil, err
	}
	ic := &introspectCtx{ctx: ctx, q: q, createSQL: createSQL}

	t := &core.TableInfo{Name: name}
	if t.Columns, err = introspectColumns(ic, name); err != nil {
		return nil, fmt.Errorf("columns of %q: %w", name, err)
	}
	if t.Indexes, err = introspectIndexes(ic, name); err != nil {
		return nil, fmt.Errorf("indexes of %q: %w", name, err)
	}
	t.ForeignKeys = ParseForeignKeys(name, createSQL)
	return t, nil
}
