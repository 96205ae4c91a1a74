package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"relcore/internal/core"
	"relcore/internal/sqltext"
)

// identPattern matches one identifier in any of the four quoting styles, or bare.
const identPattern = "(?:\"(?:[^\"]|\"\")*\"|`(?:[^`]|``)*`|\\[[^\\]]*\\]|'(?:[^']|'')*'|[\\w$]+)"

var (
	tableForeignKeyRe = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+(` + identPattern + `)\s+)?` +
		`FOREIGN\s+KEY\s*\(([^)]*)\)\s*REFERENCES\s+(` + identPattern + `)\s*(?:\(([^)]*)\))?(.*)$`)

	actionRe = regexp.MustCompile(`(?i)\bON\s+(UPDATE|DELETE)\s+(SET\s+NULL|SET\s+DEFAULT|NO\s+ACTION|CASCADE|RESTRICT)\b`)
)

// ParseForeignKeys recovers the foreign keys declared in a CREATE TABLE
// statement, both table constraints (FOREIGN KEY (...) REFERENCES ...) and
// column constraints (col ... REFERENCES ...). Keys are named by their
// CONSTRAINT name, or fk_<table>_<n> in declaration order.
//
// Referenced tables and columns are not checked for existence.
func ParseForeignKeys(table, createSQL string) map[string]core.ForeignKeyInfo {
	fks := make(map[string]core.ForeignKeyInfo)
	n := 0
	add := func(name string, fk core.ForeignKeyInfo) {
		n++
		if name == "" {
			name = fmt.Sprintf("fk_%s_%d", table, n)
		}
		fk.Name = name
		fks[name] = fk
	}

	for _, clause := range sqltext.Clauses(createSQL) {
		if sqltext.IsTableConstraint(clause) {
			m := tableForeignKeyRe.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			fk := core.ForeignKeyInfo{
				Column:           joinIdentifiers(m[2]),
				ReferencedTable:  sqltext.Unquote(m[3]),
				ReferencedColumn: joinIdentifiers(m[4]),
			}
			fk.OnUpdate, fk.OnDelete = parseActions(m[5])
			add(sqltext.Unquote(m[1]), fk)
			continue
		}

		cc, ok := sqltext.ParseColumnClause(clause)
		if !ok {
			continue
		}
		if name, fk, ok := inlineForeignKey(cc); ok {
			add(name, fk)
		}
	}
	return fks
}

// inlineForeignKey reads a column constraint
// [CONSTRAINT name] REFERENCES table [(cols)] [actions] from the clause tokens,
// so quoted text such as string defaults never matches.
func inlineForeignKey(cc sqltext.ColumnClause) (string, core.ForeignKeyInfo, bool) {
	toks := cc.Tokens
	for i, tok := range toks {
		if !sqltext.IsKeyword(tok, "REFERENCES") || i+1 >= len(toks) {
			continue
		}
		fk := core.ForeignKeyInfo{Column: cc.Name, ReferencedTable: sqltext.Unquote(toks[i+1])}
		rest := i + 2
		if rest < len(toks) && strings.HasPrefix(toks[rest], "(") {
			fk.ReferencedColumn = joinIdentifiers(strings.TrimSuffix(toks[rest][1:], ")"))
			rest++
		}
		fk.OnUpdate, fk.OnDelete = parseActions(strings.Join(toks[rest:], " "))

		name := ""
		if i >= 2 && sqltext.IsKeyword(toks[i-2], "CONSTRAINT") {
			name = sqltext.Unquote(toks[i-1])
		}
		return name, fk, true
	}
	return "", core.ForeignKeyInfo{}, false
}

// joinIdentifiers unquotes a parenthesized column list and keeps it as one
// comma separated string.
func joinIdentifiers(list string) string {
	return strings.Join(sqltext.UnquoteList(list), ", ")
}

func parseActions(tail string) (onUpdate, onDelete core.ReferentialAction) {
	for _, m := range actionRe.FindAllStringSubmatch(tail, -1) {
		action := core.NormalizeReferentialAction(m[2])
		if strings.EqualFold(m[1], "UPDATE") {
			onUpdate = action
		} else {
			onDelete = action
		}
	}
	return onUpdate, onDelete
}
