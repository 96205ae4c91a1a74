package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error that leaves this module.
type ErrorKind int

const (
	KindConnection ErrorKind = iota + 1
	KindQuery
	KindTransaction
	KindUnsupportedType
	KindInvalidSchema
	KindInvalidQuery
	KindForeignKeyViolation
)

var kindNames = map[ErrorKind]string{
	KindConnection:          "connection",
	KindQuery:               "query",
	KindTransaction:         "transaction",
	KindUnsupportedType:     "unsupported type",
	KindInvalidSchema:       "invalid schema",
	KindInvalidQuery:        "invalid query",
	KindForeignKeyViolation: "foreign key violation",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// kindError is the sentinel type for an ErrorKind. Matching is done by
// [Error.Is], so errors.Is(err, ErrQuery) reports whether err is a query error.
type kindError ErrorKind

func (k kindError) Error() string { return ErrorKind(k).String() + " error" }

// Sentinels for errors.Is checks, one per kind.
var (
	ErrConnection          error = kindError(KindConnection)
	ErrQuery               error = kindError(KindQuery)
	ErrTransaction         error = kindError(KindTransaction)
	ErrUnsupportedType     error = kindError(KindUnsupportedType)
	ErrInvalidSchema       error = kindError(KindInvalidSchema)
	ErrInvalidQuery        error = kindError(KindInvalidQuery)
	ErrForeignKeyViolation error = kindError(KindForeignKeyViolation)
)

// Specific conditions. They are always returned wrapped in an *Error of the
// matching kind, so both errors.Is(err, ErrAlreadyInTransaction) and
// errors.Is(err, ErrTransaction) hold.
var (
	ErrAlreadyInTransaction = errors.New("already in transaction")
	ErrTransactionDone      = errors.New("transaction has already been committed or rolled back")
	ErrSavepointUnsupported = errors.New("savepoints unsupported")
)

// Error is the error type returned by every package of the module.
// SQL holds the statement text, when there is one, for diagnostics.
type Error struct {
	Kind ErrorKind
	Op   string
	SQL  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.SQL != "" {
		msg += " [sql: " + e.SQL + "]"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && ErrorKind(k) == e.Kind
}

// NewError wraps err with a kind and the operation that failed.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// QueryError wraps an engine rejection of the given SQL text.
func QueryError(sql string, err error) *Error {
	return &Error{Kind: KindQuery, SQL: sql, Err: err}
}

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
