package sqltext

import (
	"fmt"
	"regexp"
	"strings"
)

var createTableHeader = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:TEMP\s+|TEMPORARY\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?`)

var tableConstraintKeywords = []string{"CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN"}

// columnConstraintKeywords end the type name of a column clause.
var columnConstraintKeywords = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "NOT": true, "NULL": true, "UNIQUE": true,
	"CHECK": true, "DEFAULT": true, "COLLATE": true, "REFERENCES": true,
	"GENERATED": true, "AS": true,
}

// Clauses returns the top-level clauses of a CREATE TABLE body: column
// definitions and table constraints, in declaration order.
func Clauses(createSQL string) []string {
	body, ok := Body(createSQL)
	if !ok {
		return nil
	}
	return SplitTopLevel(body, ',')
}

// IsTableConstraint reports whether a clause is a table constraint rather
// than a column definition.
func IsTableConstraint(clause string) bool {
	toks := Tokenize(clause)
	if len(toks) == 0 {
		return false
	}
	for _, kw := range tableConstraintKeywords {
		if IsKeyword(toks[0], kw) {
			return true
		}
	}
	return false
}

// ColumnClause is a parsed column definition.
type ColumnClause struct {
	Name   string
	Type   string
	Tokens []string
}

// ParseColumnClause splits a column definition into its name, type and the
// remaining constraint tokens.
func ParseColumnClause(clause string) (ColumnClause, bool) {
	toks := Tokenize(clause)
	if len(toks) == 0 || IsTableConstraint(clause) {
		return ColumnClause{}, false
	}
	cc := ColumnClause{Name: Unquote(toks[0])}
	i := 1
	var typ []string
	for ; i < len(toks); i++ {
		if columnConstraintKeywords[strings.ToUpper(toks[i])] {
			break
		}
		typ = append(typ, toks[i])
	}
	cc.Type = joinTokens(typ)
	cc.Tokens = toks[i:]
	return cc, true
}

// FindColumnClause returns the definition clause of column in a CREATE TABLE
// statement, matching the name case-insensitively in any quoting style.
func FindColumnClause(createSQL, column string) (ColumnClause, bool) {
	for _, clause := range Clauses(createSQL) {
		cc, ok := ParseColumnClause(clause)
		if ok && strings.EqualFold(cc.Name, column) {
			return cc, true
		}
	}
	return ColumnClause{}, false
}

// HasSequence reports whether the keyword sequence kws appears in the
// constraint tokens, in order and contiguous.
func (c ColumnClause) HasSequence(kws ...string) bool {
	return indexSequence(c.Tokens, 0, kws...) >= 0
}

// IsAutoIncrement reports whether the clause declares PRIMARY KEY followed,
// within the same clause, by AUTOINCREMENT.
func (c ColumnClause) IsAutoIncrement() bool {
	pk := indexSequence(c.Tokens, 0, "PRIMARY", "KEY")
	if pk < 0 {
		return false
	}
	return indexSequence(c.Tokens, pk+2, "AUTOINCREMENT") >= 0
}

// IsGenerated reports whether the column is a generated column.
func (c ColumnClause) IsGenerated() bool {
	return c.HasSequence("GENERATED") || c.HasSequence("AS")
}

func indexSequence(toks []string, from int, kws ...string) int {
	for i := from; i+len(kws) <= len(toks); i++ {
		match := true
		for j, kw := range kws {
			if !IsKeyword(toks[i+j], kw) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Rewrite renders the clause with a new type, nullability and default while
// keeping every other constraint (PRIMARY KEY, UNIQUE, CHECK, REFERENCES,
// COLLATE, generated expressions) verbatim. quotedName is emitted as-is.
// A nil def drops any existing default.
func (c ColumnClause) Rewrite(quotedName, typ string, nullable bool, def *string) string {
	kept := keptConstraints(c.Tokens)

	parts := []string{quotedName}
	if typ = strings.TrimSpace(typ); typ != "" {
		parts = append(parts, typ)
	}
	if !nullable {
		parts = append(parts, "NOT NULL")
	}
	if def != nil {
		parts = append(parts, "DEFAULT "+*def)
	}
	if s := joinTokens(kept); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// keptConstraints removes NULL, NOT NULL and DEFAULT constraints (with any
// CONSTRAINT name in front of them) and returns the rest.
func keptConstraints(toks []string) []string {
	var kept []string
	for i := 0; i < len(toks); {
		start := i
		if IsKeyword(toks[i], "CONSTRAINT") && i+2 < len(toks) {
			i += 2
		}
		switch {
		case IsKeyword(toks[i], "NOT") && i+1 < len(toks) && IsKeyword(toks[i+1], "NULL"):
			i = skipConflictClause(toks, i+2)
			continue
		case IsKeyword(toks[i], "NULL"):
			i = skipConflictClause(toks, i+1)
			continue
		case IsKeyword(toks[i], "DEFAULT"):
			i++
			if i < len(toks) && (toks[i] == "-" || toks[i] == "+") {
				i++
			}
			i++
			continue
		}
		kept = append(kept, toks[start:i+1]...)
		i++
	}
	return kept
}

// skipConflictClause skips an optional "ON CONFLICT <resolution>".
func skipConflictClause(toks []string, i int) int {
	if i+2 < len(toks) && IsKeyword(toks[i], "ON") && IsKeyword(toks[i+1], "CONFLICT") {
		return i + 3
	}
	return i
}

// joinTokens joins tokens with single spaces. Parenthesized groups attach to
// the preceding token, so VARCHAR(255) stays intact.
func joinTokens(toks []string) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && !strings.HasPrefix(t, "(") {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// RenameTable returns createSQL with the table name replaced by quotedName.
func RenameTable(createSQL, quotedName string) (string, error) {
	loc := createTableHeader.FindStringIndex(createSQL)
	if loc == nil {
		return "", fmt.Errorf("not a CREATE TABLE statement: %.40q", createSQL)
	}
	open, _, ok := BodyBounds(createSQL)
	if !ok || open < loc[1] {
		return "", fmt.Errorf("CREATE TABLE without column list: %.40q", createSQL)
	}
	return "CREATE TABLE " + quotedName + " " + createSQL[open:], nil
}

// ReplaceColumnClause returns createSQL with the definition of column
// replaced by newClause. Table constraints and options are kept.
func ReplaceColumnClause(createSQL, column, newClause string) (string, error) {
	open, end, ok := BodyBounds(createSQL)
	if !ok {
		return "", fmt.Errorf("CREATE TABLE without column list: %.40q", createSQL)
	}
	clauses := SplitTopLevel(createSQL[open+1:end], ',')
	found := false
	for i, clause := range clauses {
		cc, ok := ParseColumnClause(clause)
		if ok && strings.EqualFold(cc.Name, column) {
			clauses[i] = newClause
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("column %q not found in table definition", column)
	}
	return createSQL[:open+1] + strings.Join(clauses, ", ") + createSQL[end:], nil
}
