package sqltext

import "strconv"

// ParameterCount returns the number of values a statement binds, following
// the engine's numbering: "?" takes the next index after the largest one
// seen so far, "?N" takes index N, and each distinct ":name", "@name" or
// "$name" takes the next index the first time it appears. Quoted sections and
// comments are skipped. A malformed "?N" makes ok false.
func ParameterCount(sql string) (n int, ok bool) {
	named := make(map[string]bool)
	for i := 0; i < len(sql); {
		c := sql[i]
		if j, ok := skipComment(sql, i); ok {
			i = j
			continue
		}
		switch {
		case closingQuote(c) != 0:
			i = skipQuoted(sql, i)
			continue
		case c == '?':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if j == i+1 {
				n++
			} else {
				idx, err := strconv.Atoi(sql[i+1 : j])
				if err != nil || idx < 1 {
					return 0, false
				}
				n = max(n, idx)
			}
			i = j
			continue
		case c == ':' || c == '@' || c == '$':
			j := i + 1
			for j < len(sql) && isWord(sql[j]) && sql[j] != '.' {
				j++
			}
			if j > i+1 {
				if name := sql[i:j]; !named[name] {
					named[name] = true
					n++
				}
				i = j
				continue
			}
		case isWord(c):
			for i < len(sql) && isWord(sql[i]) {
				i++
			}
			continue
		}
		i++
	}
	return n, true
}
