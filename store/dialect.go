package store

import (
	"fmt"
	"strings"
	"time"
)

// Dialect covers what differs between the SQLite and PostgreSQL backends.
type Dialect interface {
	// Schema is the idempotent DDL applied on open.
	Schema() string
	// Rebind rewrites ? placeholders into the backend's form.
	Rebind(query string) string
	// Timestamp converts t to the value stored in timestamp columns.
	Timestamp(t time.Time) any
	// AdvisoryLock returns a statement taking a transaction-scoped lock on
	// key, or "" when the backend already serialises writers.
	AdvisoryLock(key int64) string
}

type sqliteDialect struct{}

func (sqliteDialect) Schema() string              { return schemaSQLite }
func (sqliteDialect) Rebind(query string) string  { return query }
func (sqliteDialect) AdvisoryLock(_ int64) string { return "" }

// Timestamp stores fixed-width UTC text so that lexical order is time order.
func (sqliteDialect) Timestamp(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

type postgresDialect struct{}

func (postgresDialect) Schema() string             { return schemaPostgres }
func (postgresDialect) Rebind(query string) string { return Rebind(query) }
func (postgresDialect) Timestamp(t time.Time) any  { return t.UTC() }
func (postgresDialect) AdvisoryLock(key int64) string {
	return fmt.Sprintf("SELECT pg_advisory_xact_lock(%d)", key)
}

const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// parseTime converts a scanned timestamp value to time.Time.
// Handles both SQLite (returns string) and Postgres (returns time.Time).
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case []byte:
		return parseTime(string(t))
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			sqliteTimeLayout,
			"2006-01-02 15:04:05",
			time.RFC3339Nano,
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

// parseTimePtr is like parseTime but returns nil for zero/missing timestamps.
func parseTimePtr(v any) *time.Time {
	t := parseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func Rebind(query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
