package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour a rule compiles to.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q (must be: postgres, sqlite)", name)
	}
}

// like returns the case-insensitive pattern operator. SQLite's LIKE already
// ignores ASCII case.
func (d Dialect) like() string {
	if d == SQLite {
		return "like"
	}
	return "ilike"
}

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}
