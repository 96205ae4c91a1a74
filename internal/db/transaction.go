package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"relcore/internal/core"
	"relcore/internal/dialect"
	"relcore/internal/metrics"
)

// TxState is the lifecycle state of a Transaction.
type TxState int

const (
	TxActive TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// Transaction is a transaction on its own connection. Commit and Rollback
// are terminal: every later call fails with a Transaction error.
type Transaction struct {
	*executor
	caps  dialect.Capabilities
	state TxState
}

// State returns the current state.
func (t *Transaction) State() TxState { return t.state }

func (t *Transaction) active() error {
	if t.state != TxActive {
		return core.NewError(core.KindTransaction, "transaction "+t.state.String(), core.ErrTransactionDone)
	}
	return nil
}

// BeginTransaction always fails: transactions do not nest.
func (t *Transaction) BeginTransaction(context.Context) (*Transaction, error) {
	return nil, core.NewError(core.KindTransaction, "begin", core.ErrAlreadyInTransaction)
}

// Commit commits the transaction and releases its connection. When COMMIT
// fails the transaction is rolled back.
func (t *Transaction) Commit(ctx context.Context) (err error) {
	if err := t.active(); err != nil {
		return err
	}
	defer func() { metrics.SampleTransaction("commit", err) }()

	if _, err := t.conn.ExecContext(ctx, "COMMIT"); err != nil {
		if _, rbErr := t.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			t.logger.WarnContext(ctx, "rollback after failed commit failed", slog.Any("error", rbErr))
		}
		t.finish(TxRolledBack)
		return core.NewError(core.KindTransaction, "commit", err)
	}
	t.finish(TxCommitted)
	return nil
}

// Rollback rolls the transaction back and releases its connection.
func (t *Transaction) Rollback(ctx context.Context) (err error) {
	if err := t.active(); err != nil {
		return err
	}
	defer func() { metrics.SampleTransaction("rollback", err) }()

	_, err = t.conn.ExecContext(ctx, "ROLLBACK")
	t.finish(TxRolledBack)
	if err != nil {
		return core.NewError(core.KindTransaction, "rollback", err)
	}
	return nil
}

func (t *Transaction) finish(state TxState) {
	t.state = state
	if err := t.conn.Close(); err != nil {
		t.logger.Warn("closing transaction connection failed", slog.Any("error", err))
	}
	t.logger.Debug("transaction finished", slog.String("state", state.String()))
}

// Savepoint creates a savepoint. The name is validated before anything else;
// dialects without savepoint support then fail with ErrSavepointUnsupported.
func (t *Transaction) Savepoint(ctx context.Context, name string) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := ValidateSavepointName(name); err != nil {
		return err
	}
	if !t.caps.Savepoints {
		return core.NewError(core.KindTransaction, "savepoint "+name, core.ErrSavepointUnsupported)
	}
	_, err := t.exec(ctx, "savepoint", rawSQL("SAVEPOINT "+t.compiler.QuoteIdentifier(name)))
	return err
}

// ValidateSavepointName rejects empty names and names holding statement
// terminators, quotes or control characters.
func ValidateSavepointName(name string) error {
	if strings.TrimSpace(name) == "" {
		return core.Errorf(core.KindInvalidQuery, "savepoint name is empty")
	}
	if i := strings.IndexFunc(name, func(r rune) bool {
		return r == ';' || r == '\'' || r == '"' || r == '`' || unicode.IsControl(r)
	}); i >= 0 {
		return core.Errorf(core.KindInvalidQuery, "invalid savepoint name %q", name)
	}
	return nil
}
