package database

import (
	"strconv"
	"strings"
)

// Rebind rewrites `?` placeholders to the driver's native form.
// Repositories write queries once with `?` and rebind per connection, so a
// single repository implementation serves both SQLite and PostgreSQL.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
