package core

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// parenRe matches balanced parentheses and their content so we can
// extract the base type name. Example: "VARCHAR(255)" -> "VARCHAR".
var parenRe = regexp.MustCompile(`\([^)]*\)`)

// wsRe collapses runs of whitespace into a single space after the
// parenthesized parts have been removed.
var wsRe = regexp.MustCompile(`\s+`)

var modifierRe = regexp.MustCompile(`(?i)\b(UNSIGNED|SIGNED|ZEROFILL)\b`)

// Affinity is the storage class preference the engine derives from a
// declared column type.
type Affinity string

const (
	AffinityInteger Affinity = "INTEGER"
	AffinityText    Affinity = "TEXT"
	AffinityBlob    Affinity = "BLOB"
	AffinityReal    Affinity = "REAL"
	AffinityNumeric Affinity = "NUMERIC"
)

// knownTypes are the declared type names accepted in migration documents.
// The engine itself accepts any name and derives an affinity from it.
var knownTypes = toSet(
	"TEXT", "INTEGER", "INT", "REAL", "BLOB", "NUMERIC",
	"BOOLEAN", "BOOL",
	"DATE", "DATETIME", "TIMESTAMP",
	"VARCHAR", "CHAR", "CHARACTER", "VARYING CHARACTER",
	"NCHAR", "NVARCHAR", "NATIVE CHARACTER", "CLOB",
	"FLOAT", "DOUBLE", "DOUBLE PRECISION", "DECIMAL",
	"TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "UNSIGNED BIG INT",
	"INT2", "INT8",
	"JSON", "UUID",
)

// TypeAffinity returns the affinity the engine assigns to a declared type.
// The rules are applied in order: INT, then CHAR/CLOB/TEXT, then BLOB or no
// type, then REAL/FLOA/DOUB, and NUMERIC otherwise.
func TypeAffinity(declared string) Affinity {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case strings.Contains(t, "BLOB"), strings.TrimSpace(t) == "":
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// ValidateTypeName checks that declared names a known column type. Length
// and precision arguments are allowed but not interpreted.
func ValidateTypeName(declared string) error {
	if strings.TrimSpace(declared) == "" {
		return Errorf(KindInvalidSchema, "column type is empty")
	}
	if strings.Count(declared, "(") != strings.Count(declared, ")") {
		return Errorf(KindInvalidSchema, "column type %q has unbalanced parentheses", declared)
	}

	base := normalizeTypeBase(declared)
	if base == "" {
		return Errorf(KindInvalidSchema, "column type %q could not be normalized to a base type", declared)
	}
	if knownTypes[base] {
		return nil
	}
	return Errorf(KindInvalidSchema, "column type %q (resolved base: %q) is not a known type; valid types: %s",
		declared, base, validTypesList())
}

// toSet builds a case-insensitive lookup set from a variadic list of
// upper-cased type names.
func toSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToUpper(n)] = true
	}
	return m
}

// normalizeTypeBase extracts the base type name from a declared type. It
// removes parenthesized portions (length, precision), sign modifiers that
// are not part of a multi-word name, collapses whitespace and uppercases the
// result.
//
// Examples:
//
//	"varchar(255)"     -> "VARCHAR"
//	"DECIMAL(10, 2)"   -> "DECIMAL"
//	"double precision" -> "DOUBLE PRECISION"
//	"INT UNSIGNED"     -> "INT"
//	"unsigned big int" -> "UNSIGNED BIG INT"
func normalizeTypeBase(declared string) string {
	base := parenRe.ReplaceAllString(declared, "")
	base = strings.ToUpper(wsRe.ReplaceAllString(strings.TrimSpace(base), " "))
	if knownTypes[base] {
		return base
	}
	base = modifierRe.ReplaceAllString(base, "")
	return wsRe.ReplaceAllString(strings.TrimSpace(base), " ")
}

// validTypesList returns a sorted, comma-separated string of all known
// types. Used only for error messages.
func validTypesList() string {
	names := make([]string, 0, len(knownTypes))
	for t := range knownTypes {
		names = append(names, t)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// String implements fmt.Stringer.
func (a Affinity) String() string { return fmt.Sprintf("%s affinity", string(a)) }
