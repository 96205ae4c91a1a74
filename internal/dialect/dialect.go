// Package dialect provides a unified interface for the engine-specific parts of
// SQL generation: identifier and string quoting, placeholders, current-time
// expressions and the capability surface the executor has to emulate around.
package dialect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"relcore/internal/core"
	"relcore/internal/value"
)

type Type = core.Dialect

const SQLite = core.DialectSQLite

// Capabilities describes what the engine can do natively. The executor and
// the migration engine emulate what is missing.
type Capabilities struct {
	Savepoints   bool
	UpdateLimit  bool
	Returning    bool
	AlterColumn  bool
	UpsertClause bool
}

// Generator renders engine-specific SQL fragments.
type Generator interface {
	QuoteIdentifier(name string) string
	QuoteString(value string) string
	// Now renders the engine's current time.
	Now() string
	// NowPlus renders the engine's current time shifted by iv.
	NowPlus(iv value.Interval) string
}

// Dialect interface creates a way to interact with a specific SQL engine.
type Dialect interface {
	Name() Type
	Generator() Generator
	Capabilities() Capabilities
	// Placeholder is the default placeholder strategy of the engine.
	Placeholder() Placeholder
}

var registry = map[Type]func() Dialect{}

// RegisterDialect creates a new registry entry for the specified dialect.
func RegisterDialect(d Type, ctor func() Dialect) {
	registry[d] = ctor
}

// GetDialect returns the dialect for the specified type from the registry.
func GetDialect(d Type) (Dialect, error) {
	if ctor, ok := registry[d]; ok {
		return ctor(), nil
	}
	return nil, fmt.Errorf("unsupported dialect: %s", d)
}

// Registered returns the names of all registered dialects, sorted.
func Registered() []Type {
	out := make([]Type, 0, len(registry))
	for d := range registry {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Placeholder renders the n-th (1-based) positional parameter.
type Placeholder func(n int) string

// Placeholder strategies.
var (
	Question Placeholder = func(int) string { return "?" }
	// NumberedQuestion renders ?1, ?2, ...
	NumberedQuestion Placeholder = func(n int) string { return "?" + strconv.Itoa(n) }
	// Dollar renders $1, $2, ...
	Dollar Placeholder = func(n int) string { return "$" + strconv.Itoa(n) }
	// Colon renders :1, :2, ...
	Colon Placeholder = func(n int) string { return ":" + strconv.Itoa(n) }
)

// ParsePlaceholder maps a strategy name to its Placeholder. Accepted names are
// the forms themselves: "?", "?N", "$N" and ":N".
func ParsePlaceholder(name string) (Placeholder, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "?", "":
		return Question, nil
	case "?N":
		return NumberedQuestion, nil
	case "$N":
		return Dollar, nil
	case ":N":
		return Colon, nil
	default:
		return nil, fmt.Errorf("unknown placeholder style %q", name)
	}
}

// QuoteIdentifierWith quotes name with the given quote rune, doubling embedded
// quotes. Dotted names are quoted per part and "*" parts stay bare, so
// "t.*" renders as "t".*.
func QuoteIdentifierWith(name string, quote byte) string {
	name = strings.TrimSpace(name)
	if name == "*" {
		return name
	}
	q := string(quote)
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// QuoteStringLiteral quotes value as a single-quoted SQL string literal.
func QuoteStringLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
