// Package migration applies DDL statements to a database and records every
// step it runs as a Migration plan. Operations the engine cannot express
// directly (changing a column definition, cascading drops) are emulated with
// multi-statement sequences inside a scoped transaction.
package migration

import (
	"strings"

	"relcore/internal/core"
)

// Migration struct contains all operations performed (or, for a dry run,
// that would be performed) to apply a schema change, in execution order.
type Migration struct {
	Operations []core.Operation
}

// Plan returns the list of operations in execution order.
func (m *Migration) Plan() []core.Operation {
	return m.Operations
}

// SQLStatements returns every statement run against the engine, pragmas and
// checks included.
func (m *Migration) SQLStatements() []string {
	out := make([]string, 0, len(m.Operations))
	for _, op := range m.Operations {
		if op.Kind != core.OperationNote {
			out = append(out, op.SQL)
		}
	}
	return out
}

// Notes returns the informational notes of the plan.
func (m *Migration) Notes() []string {
	return m.filterByKind(core.OperationNote)
}

// HighestRisk returns the highest risk of any operation, RiskInfo when empty.
func (m *Migration) HighestRisk() core.OperationRisk {
	risk := core.RiskInfo
	for _, op := range m.Operations {
		switch op.Risk {
		case core.RiskCritical:
			return core.RiskCritical
		case core.RiskWarning:
			risk = core.RiskWarning
		}
	}
	return risk
}

func (m *Migration) AddStatement(stmt string, risk core.OperationRisk) {
	m.add(core.OperationSQL, stmt, risk)
}

func (m *Migration) AddPragma(stmt string) {
	m.add(core.OperationPragma, stmt, core.RiskInfo)
}

func (m *Migration) AddCheck(stmt string) {
	m.add(core.OperationCheck, stmt, core.RiskInfo)
}

func (m *Migration) AddNote(msg string) {
	m.add(core.OperationNote, msg, core.RiskInfo)
}

func (m *Migration) add(kind core.OperationKind, text string, risk core.OperationRisk) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	m.Operations = append(m.Operations, core.Operation{Kind: kind, SQL: text, Risk: risk})
}

func (m *Migration) filterByKind(kind core.OperationKind) []string {
	out := make([]string, 0, len(m.Operations)/4+1)
	for _, op := range m.Operations {
		if op.Kind == kind {
			out = append(out, op.SQL)
		}
	}
	return out
}
