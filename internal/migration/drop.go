package migration

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/introspect"
)

func (r *runner) dropTable(s *ast.DropTableStatement) error {
	if s.Behavior == ast.DropDefault {
		return r.compileAndExec(s, core.RiskCritical)
	}

	exists, err := r.m.in.TableExists(r.ctx, r.q, s.Table)
	if err != nil {
		return err
	}
	if !exists {
		// Let the engine report the missing table, or do nothing for IF EXISTS.
		return r.compileAndExec(s, core.RiskCritical)
	}

	switch s.Behavior {
	case ast.DropRestrict:
		tables, err := introspect.Snapshot(r.ctx, r.m.in, r.q)
		if err != nil {
			return err
		}
		if deps := introspect.Dependents(tables, s.Table); len(deps) > 0 {
			return core.Errorf(core.KindInvalidQuery, "cannot drop table %q: referenced by %s", s.Table, strings.Join(deps, ", "))
		}
		return r.compileAndExec(s, core.RiskCritical)

	case ast.DropCascade:
		targets, err := r.m.CascadeTargets(r.ctx, r.q, s.Table)
		if err != nil {
			return err
		}
		if len(targets) > 1 {
			r.plan.AddNote(fmt.Sprintf("dropping %q cascades to %s", s.Table, strings.Join(targets[:len(targets)-1], ", ")))
			if r.fkEnforced {
				// Cycles in the reference graph cannot be dropped in a
				// violation-free order; checks wait for commit instead.
				if err := r.pragma("PRAGMA defer_foreign_keys = ON"); err != nil {
					return err
				}
			}
		}
		for _, t := range targets {
			if err := r.compileAndExec(&ast.DropTableStatement{Table: t, IfExists: s.IfExists}, core.RiskCritical); err != nil {
				return err
			}
		}
		return nil

	default:
		return core.Errorf(core.KindInvalidQuery, "unknown drop behavior %d", int(s.Behavior))
	}
}

// CascadeTargets returns the tables a cascading drop of table removes: every
// table that transitively references it, dependents before the tables they
// reference, and table itself last. Tables that become droppable together are
// ordered by name; a reference cycle is broken by name order too.
func (m *Migrator) CascadeTargets(ctx context.Context, q engine.Querier, table string) ([]string, error) {
	tables, err := introspect.Snapshot(ctx, m.in, q)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*core.TableInfo, len(tables))
	for _, t := range tables {
		byName[strings.ToLower(t.Name)] = t
	}
	target, ok := byName[strings.ToLower(table)]
	if !ok {
		return nil, core.Errorf(core.KindInvalidQuery, "unknown table %q", table)
	}

	remaining := make(map[string]*core.TableInfo)
	queue := []string{target.Name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range introspect.Dependents(tables, cur) {
			key := strings.ToLower(dep)
			if _, seen := remaining[key]; seen || strings.EqualFold(dep, target.Name) {
				continue
			}
			remaining[key] = byName[key]
			queue = append(queue, dep)
		}
	}

	order := make([]string, 0, len(remaining)+1)
	for len(remaining) > 0 {
		var ready []string
		for key, t := range remaining {
			referenced := false
			for other, o := range remaining {
				if other != key && o.References(t.Name) {
					referenced = true
					break
				}
			}
			if !referenced {
				ready = append(ready, t.Name)
			}
		}
		if len(ready) == 0 {
			for _, t := range remaining {
				ready = append(ready, t.Name)
			}
		}
		slices.Sort(ready)
		for _, name := range ready {
			delete(remaining, strings.ToLower(name))
		}
		order = append(order, ready...)
	}
	return append(order, target.Name), nil
}
