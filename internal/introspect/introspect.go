// Package introspect contains the introspecter interface which reads the current schema of a
// database from its catalog. Every call queries the engine again: results are snapshots and
// are never cached, since DDL may have changed the schema between calls.
package introspect

import (
	"context"
	"fmt"
	"sync"

	"relcore/internal/core"
	"relcore/internal/engine"
)

type Introspecter interface {
	ListTables(ctx context.Context, q engine.Querier) ([]string, error)
	TableExists(ctx context.Context, q engine.Querier, table string) (bool, error)
	// GetTableInfo fails with an InvalidQuery error for unknown tables.
	GetTableInfo(ctx context.Context, q engine.Querier, table string) (*core.TableInfo, error)
}

var (
	registry = make(map[core.Dialect]func() Introspecter)
	mu       sync.RWMutex
)

func Register(dialect core.Dialect, fn func() Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[dialect] = fn
}

func NewIntrospecter(dialect core.Dialect) (Introspecter, error) {
	mu.RLock()
	fn, ok := registry[dialect]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported dialect %v", dialect)
	}

	return fn(), nil
}

// Snapshot introspects every table, in ListTables order.
func Snapshot(ctx context.Context, in Introspecter, q engine.Querier) ([]*core.TableInfo, error) {
	names, err := in.ListTables(ctx, q)
	if err != nil {
		return nil, err
	}
	tables := make([]*core.TableInfo, 0, len(names))
	for _, name := range names {
		t, err := in.GetTableInfo(ctx, q, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ColumnExists reports whether table has column. Unknown tables are an error.
func ColumnExists(ctx context.Context, in Introspecter, q engine.Querier, table, column string) (bool, error) {
	t, err := in.GetTableInfo(ctx, q, table)
	if err != nil {
		return false, err
	}
	_, ok := t.FindColumn(column)
	return ok, nil
}

// Dependents returns the tables other than table that hold a foreign key
// referencing it, in snapshot order.
func Dependents(tables []*core.TableInfo, table string) []string {
	var out []string
	for _, t := range tables {
		if t.References(table) {
			out = append(out, t.Name)
		}
	}
	return out
}
