package apply

import (
	"fmt"
	"strings"

	"relcore/internal/ast"
)

type alterEffect struct {
	blocking          bool
	destructive       bool
	nonTransactional  bool
	destructiveReason string
	blockingReason    string
	txUnsafeReason    string
}

var (
	dropColumnEffect = alterEffect{
		blocking:          true,
		destructive:       true,
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
		blockingReason:    "DROP COLUMN rewrites every row of the table while holding the write lock",
	}
	modifyColumnEffect = alterEffect{
		blocking:         true,
		nonTransactional: true,
		blockingReason:   "MODIFY COLUMN copies the column data and may rebuild the whole table",
		txUnsafeReason:   "MODIFY COLUMN may suspend foreign key enforcement, which cannot change inside a transaction",
	}
	renameColumnEffect = alterEffect{
		blocking:       true,
		blockingReason: "RENAME COLUMN breaks application queries that still use the old name",
	}
	renameTableEffect = alterEffect{
		blocking:       true,
		blockingReason: "RENAME TABLE breaks application queries that still use the old name",
	}
)

// StatementAnalysis contains the results of analyzing a single statement.
type StatementAnalysis struct {
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
	IsTransactionSafe bool
	TxUnsafeReason    string
	StatementType     string
	// Errors are problems that will make the statement fail.
	Errors []string
}

// StatementAnalyzer inspects migration statements before they run.
type StatementAnalyzer struct{}

// NewStatementAnalyzer creates a new statement analyzer.
func NewStatementAnalyzer() *StatementAnalyzer {
	return &StatementAnalyzer{}
}

// AnalyzeStatement returns the analysis of a single statement.
func (a *StatementAnalyzer) AnalyzeStatement(stmt ast.Statement) *StatementAnalysis {
	analysis := &StatementAnalysis{IsTransactionSafe: true}

	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		analysis.StatementType = "CREATE TABLE"
		if err := s.Validate(); err != nil {
			analysis.Errors = append(analysis.Errors, err.Error())
		}
	case *ast.DropTableStatement:
		a.analyzeDropTable(s, analysis)
	case *ast.CreateIndexStatement:
		analysis.StatementType = "CREATE INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons,
			"CREATE INDEX scans the whole table and holds the write lock while building")
	case *ast.DropIndexStatement:
		analysis.StatementType = "DROP INDEX"
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons,
			"DROP INDEX may slow down queries that relied on it")
	case *ast.AlterTableStatement:
		analysis.StatementType = "ALTER TABLE"
		a.analyzeAlterTable(s, analysis)
	case *ast.InsertStatement, *ast.UpdateStatement, *ast.UpsertStatement, *ast.UpsertMultiStatement, *ast.SelectQuery:
		analysis.StatementType = "DML"
		analysis.Errors = append(analysis.Errors, "data statements are not allowed in a migration")
	case *ast.DeleteStatement:
		analysis.StatementType = "DELETE"
		analysis.IsDestructive = true
		analysis.DestructiveReason = "DELETE will remove rows from the table"
		analysis.Errors = append(analysis.Errors, "data statements are not allowed in a migration")
	default:
		analysis.StatementType = "OTHER"
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("unsupported statement %T", stmt))
	}
	return analysis
}

// AnalyzeStatements analyzes every statement and returns a PreflightResult.
func (a *StatementAnalyzer) AnalyzeStatements(statements []ast.Statement, unsafeAllowed bool) *PreflightResult {
	result := &PreflightResult{
		IsTransactional: true,
	}

	for _, stmt := range statements {
		analysis := a.AnalyzeStatement(stmt)
		label := Describe(stmt)

		a.addBlockingWarnings(result, analysis, label)
		a.addDestructiveWarning(result, analysis, label, unsafeAllowed)
		a.addTransactionSafety(result, analysis, label)
		for _, e := range analysis.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", label, e))
		}
	}

	return result
}

func (a *StatementAnalyzer) addBlockingWarnings(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if !analysis.IsBlocking {
		return
	}
	for _, reason := range analysis.BlockingReasons {
		result.Warnings = append(result.Warnings, Warning{
			Level:   WarnCaution,
			Message: fmt.Sprintf("Potentially blocking DDL: %s", reason),
			SQL:     stmt,
		})
	}
}

func (a *StatementAnalyzer) addDestructiveWarning(result *PreflightResult, analysis *StatementAnalysis, stmt string, unsafeAllowed bool) {
	if !analysis.IsDestructive {
		return
	}
	msg := analysis.DestructiveReason
	if !unsafeAllowed {
		msg = fmt.Sprintf("%s (requires --unsafe flag)", msg)
	}
	result.Warnings = append(result.Warnings, Warning{
		Level:   WarnDanger,
		Message: msg,
		SQL:     stmt,
	})
}

func (a *StatementAnalyzer) addTransactionSafety(result *PreflightResult, analysis *StatementAnalysis, stmt string) {
	if analysis.IsTransactionSafe {
		return
	}
	result.IsTransactional = false
	result.NonTxReasons = append(result.NonTxReasons, fmt.Sprintf("%s: %s", analysis.TxUnsafeReason, stmt))
}

func (a *StatementAnalyzer) analyzeDropTable(s *ast.DropTableStatement, analysis *StatementAnalysis) {
	analysis.StatementType = "DROP TABLE"
	analysis.IsDestructive = true
	analysis.DestructiveReason = "DROP TABLE will permanently delete the table and all its data"
	if s.Behavior == ast.DropCascade {
		analysis.DestructiveReason = "DROP TABLE CASCADE will permanently delete the table and every table that references it"
	}
}

func (a *StatementAnalyzer) analyzeAlterTable(s *ast.AlterTableStatement, analysis *StatementAnalysis) {
	if len(s.Operations) == 0 {
		analysis.Errors = append(analysis.Errors, "no operations")
	}
	for _, op := range s.Operations {
		switch op := op.(type) {
		case ast.AddColumn:
			if !op.Column.Nullable && op.Column.Default == nil {
				analysis.Errors = append(analysis.Errors,
					fmt.Sprintf("ADD COLUMN %q is NOT NULL without a default", op.Column.Name))
			}
			if op.Column.PrimaryKey || op.Column.Unique {
				analysis.Errors = append(analysis.Errors,
					fmt.Sprintf("ADD COLUMN %q cannot be PRIMARY KEY or UNIQUE", op.Column.Name))
			}
		case ast.DropColumn:
			a.applyEffect(dropColumnEffect, analysis)
		case ast.ModifyColumn:
			a.applyEffect(modifyColumnEffect, analysis)
		case ast.RenameColumn:
			a.applyEffect(renameColumnEffect, analysis)
		case ast.RenameTable:
			a.applyEffect(renameTableEffect, analysis)
		}
	}
}

func (a *StatementAnalyzer) applyEffect(effect alterEffect, analysis *StatementAnalysis) {
	if effect.blocking {
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, effect.blockingReason)
	}
	if effect.destructive {
		analysis.IsDestructive = true
		analysis.DestructiveReason = effect.destructiveReason
	}
	if effect.nonTransactional {
		analysis.IsTransactionSafe = false
		analysis.TxUnsafeReason = effect.txUnsafeReason
	}
}

// Describe renders a one-line label for a statement.
func Describe(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case *ast.CreateTableStatement:
		return fmt.Sprintf("CREATE TABLE %s", s.Table)
	case *ast.DropTableStatement:
		if s.Behavior == ast.DropDefault {
			return fmt.Sprintf("DROP TABLE %s", s.Table)
		}
		return fmt.Sprintf("DROP TABLE %s %s", s.Table, s.Behavior)
	case *ast.CreateIndexStatement:
		return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", s.Name, s.Table, strings.Join(s.Columns, ", "))
	case *ast.DropIndexStatement:
		return fmt.Sprintf("DROP INDEX %s", s.Name)
	case *ast.AlterTableStatement:
		ops := make([]string, 0, len(s.Operations))
		for _, op := range s.Operations {
			ops = append(ops, describeOperation(op))
		}
		return fmt.Sprintf("ALTER TABLE %s %s", s.Table, strings.Join(ops, ", "))
	default:
		return fmt.Sprintf("%T", stmt)
	}
}

func describeOperation(op ast.AlterOperation) string {
	switch op := op.(type) {
	case ast.AddColumn:
		return fmt.Sprintf("ADD COLUMN %s %s", op.Column.Name, op.Column.Type)
	case ast.DropColumn:
		return "DROP COLUMN " + op.Name
	case ast.RenameColumn:
		return fmt.Sprintf("RENAME COLUMN %s TO %s", op.From, op.To)
	case ast.ModifyColumn:
		return fmt.Sprintf("MODIFY COLUMN %s %s", op.Name, op.Type)
	case ast.RenameTable:
		return "RENAME TO " + op.To
	default:
		return fmt.Sprintf("%T", op)
	}
}
