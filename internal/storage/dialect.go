package storage

import (
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect struct {
	name string
	// sqlDriver is the database/sql driver name.
	sqlDriver string
	schema    string
	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
	// sqlite allows a single writer.
	maxOpenConns int
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		return dialect{name: DriverSQLite, sqlDriver: "sqlite", schema: "schema/sqlite.sql", maxOpenConns: 1}, nil
	case DriverPostgres, "postgresql", "pgx":
		return dialect{name: DriverPostgres, sqlDriver: "pgx", schema: "schema/postgres.sql", numbered: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders for drivers that need numbered ones.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// statements splits the embedded schema into single statements.
func (d dialect) statements() ([]string, error) {
	data, err := schemaFS.ReadFile(d.schema)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.schema, err)
	}

	var out []string
	for _, stmt := range strings.Split(string(data), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}

// DetectDriver guesses the driver from a database URL.
func DetectDriver(url string) string {
	if strings.HasPrefix(strings.ToLower(url), "postgres") {
		return DriverPostgres
	}
	return DriverSQLite
}

// postgresURL drops a "+driver" suffix from the scheme, e.g. postgresql+psycopg2://.
func postgresURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	return scheme + "://" + rest
}

// sqlitePath strips the sqlite:/// prefix used in connection URLs.
func sqlitePath(url string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return url
}
