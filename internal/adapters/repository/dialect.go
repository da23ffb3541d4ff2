package repository

import (
	"strconv"
	"strings"
)

// dialect hides the placeholder differences between SQLite and Postgres.
type dialect struct {
	driver   string // database/sql driver name
	dir      string // migrations subdirectory
	numbered bool   // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect   = dialect{driver: "sqlite", dir: "sqlite"}
	postgresDialect = dialect{driver: "postgres", dir: "postgres", numbered: true}
)

// rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never contain a literal '?'.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
