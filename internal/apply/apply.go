// Package apply runs migration documents against a database. Every run is
// preceded by a preflight analysis; destructive steps need an explicit
// opt-in and a dry run reports the exact plan without persisting anything.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/db"
	"relcore/internal/migration"
	"relcore/internal/parser"
)

// PreflightResult contains a list of warnings, errors, and transactionality info about migration.
type PreflightResult struct {
	Warnings        []Warning
	Errors          []string
	IsTransactional bool
	NonTxReasons    []string
}

// HasDestructiveOperations reports whether any warning is DANGER.
func (r *PreflightResult) HasDestructiveOperations() bool {
	for _, w := range r.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

// Warning contains a Level of a warning, message, and the statement it is about.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// Preflight failures.
var (
	ErrDestructive      = errors.New("destructive operations detected without --unsafe flag")
	ErrNonTransactional = errors.New("non-transactional steps detected without --allow-non-transactional flag")
	ErrInvalidMigration = errors.New("migration has errors")
)

// Options struct contains all setting available for user to choose during apply command.
type Options struct {
	FilePath              string
	DryRun                bool
	Transaction           bool
	AllowNonTransactional bool
	Unsafe                bool
	Out                   io.Writer
	Logger                *slog.Logger
}

// Applier applies migration documents to one database.
type Applier struct {
	db       *db.Database
	owned    bool
	options  Options
	analyzer *StatementAnalyzer
	out      io.Writer
	logger   *slog.Logger
}

// NewApplier returns a pointer to Applier for user use, with provided options.
func NewApplier(options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Applier{
		options:  options,
		analyzer: NewStatementAnalyzer(),
		out:      out,
		logger:   logger,
	}
}

// We use custom printf to format and print messages to the output writer.
func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// Connect opens the database described by opts. The applier owns it and
// closes it in Close.
func (a *Applier) Connect(ctx context.Context, opts db.Options) error {
	if opts.Logger == nil {
		opts.Logger = a.logger
	}
	d, err := db.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db, a.owned = d, true
	return nil
}

// Use makes the applier run against an already open database, which the
// caller keeps ownership of.
func (a *Applier) Use(d *db.Database) {
	a.db, a.owned = d, false
}

// Close closes a database opened by Connect.
func (a *Applier) Close() error {
	if a.db != nil && a.owned {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

// Load parses the migration document at Options.FilePath.
func (a *Applier) Load() (*migration.Document, error) {
	doc, err := parser.ParseFile(a.options.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	return doc, nil
}

// PreflightChecks analyzes the statements for destructive operations,
// blocking operations, transaction safety and outright errors.
func (a *Applier) PreflightChecks(statements []ast.Statement, unsafe bool) *PreflightResult {
	return a.analyzer.AnalyzeStatements(statements, unsafe)
}

// Apply runs the statements after validating the preflight result. A dry run
// prints the preflight report and the exact plan, and persists nothing.
func (a *Applier) Apply(ctx context.Context, statements []ast.Statement, preflight *PreflightResult) (*migration.Migration, error) {
	if a.db == nil {
		return nil, errors.New("not connected")
	}
	if a.options.DryRun {
		return a.dryRun(ctx, statements, preflight)
	}
	if err := a.validatePreflight(preflight); err != nil {
		return nil, err
	}

	a.printf("Applying %d statements\n", len(statements))
	var (
		plan *migration.Migration
		err  error
	)
	if a.options.Transaction {
		err = a.db.WithTransaction(ctx, func(tx *db.Transaction) error {
			var txErr error
			plan, txErr = tx.Migrate(ctx, false, statements...)
			return txErr
		})
	} else {
		plan, err = a.db.Migrate(ctx, false, statements...)
	}
	if err != nil {
		return plan, fmt.Errorf("migration failed (rolled back): %w", err)
	}

	a.printf("Successfully applied %d statements (%d operations)\n", len(statements), len(plan.Plan()))
	a.logger.InfoContext(ctx, "migration applied",
		slog.Int("statements", len(statements)),
		slog.Int("operations", len(plan.Plan())),
		slog.String("risk", string(plan.HighestRisk())))
	return plan, nil
}

func (a *Applier) validatePreflight(preflight *PreflightResult) error {
	if len(preflight.Errors) > 0 {
		return fmt.Errorf("preflight checks failed: %w: %d error(s)", ErrInvalidMigration, len(preflight.Errors))
	}
	if preflight.HasDestructiveOperations() && !a.options.Unsafe {
		return fmt.Errorf("preflight checks failed: %w", ErrDestructive)
	}
	if a.options.Transaction && !preflight.IsTransactional && !a.options.AllowNonTransactional {
		return fmt.Errorf("preflight checks failed: %w", ErrNonTransactional)
	}
	return nil
}

func (a *Applier) dryRun(ctx context.Context, statements []ast.Statement, preflight *PreflightResult) (*migration.Migration, error) {
	a.println("=== DRY RUN MODE ===")

	a.println("--- Preflight Checks ---")
	if len(preflight.Warnings) == 0 && len(preflight.Errors) == 0 {
		a.println("No warnings")
	}
	for _, e := range preflight.Errors {
		a.printf("[ERROR] %s\n", e)
	}
	for _, w := range preflight.Warnings {
		a.printf("[%s] %s\n", w.Level, w.Message)
		if w.SQL != "" {
			a.printf("    Statement: %s\n", w.SQL)
		}
	}

	a.println("--- Transaction Safety ---")
	if preflight.IsTransactional {
		a.println("All statements are transaction-safe")
	} else {
		a.println("Migration is NOT transaction-safe")
		for _, reason := range preflight.NonTxReasons {
			a.printf("  - %s\n", reason)
		}
	}

	if err := a.validatePreflight(preflight); err != nil {
		return nil, err
	}

	plan, err := a.db.Migrate(ctx, true, statements...)
	if err != nil {
		return plan, fmt.Errorf("dry run failed: %w", err)
	}

	a.println("--- Statements to Execute ---")
	i := 0
	for _, op := range plan.Plan() {
		if op.Kind == core.OperationNote {
			a.printf("   note: %s\n", op.SQL)
			continue
		}
		i++
		a.printf("%d. [%s] %s\n", i, op.Kind, op.SQL)
	}

	a.println("=== DRY RUN COMPLETE ===")
	a.println("All preflight checks passed. Run without --dry-run to apply.")
	return plan, nil
}
