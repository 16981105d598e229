// Package dialect is the dialect table (spec §4.A): per-backend rules for
// identifier quoting, placeholder style, and scalar-to-SQL-literal casts.
// It is grounded on the teacher's internal/duckdb_type_mapper.go (one
// switch-per-ValueType table mapping a typed value to a rendering rule)
// generalised from a single engine to the four supported SQL dialects.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Name identifies one of the four supported dialects. It is a thin local
// mirror of foldquery.Dialect so this package has no import-cycle back to
// the root package.
type Name string

const (
	Postgres  Name = "postgres"
	MySQL     Name = "mysql"
	SQLite    Name = "sqlite"
	SQLServer Name = "sqlserver"
)

// Table is the per-dialect rule set the SQL folding engine and expression
// compiler consult for every syntax decision that differs across backends.
type Table struct {
	Name Name

	// QuoteIdent renders a (possibly schema-qualified) identifier safely.
	QuoteIdent func(ident string) string

	// Placeholder renders the nth (1-based) bind placeholder.
	Placeholder func(n int) string

	// SupportsNullsOrdering reports whether "NULLS FIRST/LAST" is legal
	// syntax for ORDER BY in this dialect (Postgres/SQLite: yes; MySQL and
	// SQL Server: no, both get a leading CASE WHEN ... IS NULL sort key).
	SupportsNullsOrdering bool

	// SupportsOffsetFetch reports whether take/skip render as
	// OFFSET/FETCH (SQL Server, ANSI style) rather than LIMIT/OFFSET.
	SupportsOffsetFetch bool

	// RequiresOrderByForOffset reports whether an OFFSET clause is
	// illegal without an ORDER BY (SQL Server); the folding engine must
	// synthesize a deterministic ORDER BY in that case.
	RequiresOrderByForOffset bool

	// StringConcat renders a 2-operand string concatenation expression.
	StringConcat func(left, right string) string

	// CastText renders an expression cast to text, used by LIKE-family
	// comparisons against non-text columns.
	CastText func(expr string) string
}

// ForName returns the rule table for name, or ok=false if name is not one
// of the four supported dialects.
func ForName(name Name) (Table, bool) {
	switch name {
	case Postgres:
		return postgresTable, true
	case MySQL:
		return mysqlTable, true
	case SQLite:
		return sqliteTable, true
	case SQLServer:
		return sqlServerTable, true
	default:
		return Table{}, false
	}
}

func quotePostgresIdent(ident string) string {
	parts := strings.Split(ident, ".")
	return pgx.Identifier(parts).Sanitize()
}

func quoteBacktick(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func quoteBracket(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

var postgresTable = Table{
	Name:                  Postgres,
	QuoteIdent:            quotePostgresIdent,
	Placeholder:           func(n int) string { return "$" + strconv.Itoa(n) },
	SupportsNullsOrdering: true,
	StringConcat:          func(l, r string) string { return l + " || " + r },
	CastText:              func(expr string) string { return expr + "::text" },
}

var mysqlTable = Table{
	Name:                  MySQL,
	QuoteIdent:            quoteBacktick,
	Placeholder:           func(n int) string { return "?" },
	SupportsNullsOrdering: false,
	StringConcat:          func(l, r string) string { return fmt.Sprintf("CONCAT(%s, %s)", l, r) },
	CastText:              func(expr string) string { return fmt.Sprintf("CAST(%s AS CHAR)", expr) },
}

var sqliteTable = Table{
	Name:                  SQLite,
	QuoteIdent:            func(ident string) string { return quoteDoubleQuote(ident) },
	Placeholder:           func(n int) string { return "?" },
	SupportsNullsOrdering: true,
	StringConcat:          func(l, r string) string { return l + " || " + r },
	CastText:              func(expr string) string { return fmt.Sprintf("CAST(%s AS TEXT)", expr) },
}

var sqlServerTable = Table{
	Name:                     SQLServer,
	QuoteIdent:               quoteBracket,
	Placeholder:              func(n int) string { return "@p" + strconv.Itoa(n) },
	SupportsNullsOrdering:    false,
	SupportsOffsetFetch:      true,
	RequiresOrderByForOffset: true,
	StringConcat:             func(l, r string) string { return l + " + " + r },
	CastText:                 func(expr string) string { return fmt.Sprintf("CAST(%s AS NVARCHAR(MAX))", expr) },
}

func quoteDoubleQuote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// OrderByTerm renders one ORDER BY key, including a nulls-ordering rewrite
// for dialects that lack "NULLS FIRST/LAST" syntax (MySQL, SQL Server).
// nulls is one of "", "first", "last".
func (t Table) OrderByTerm(colExpr string, descending bool, nulls string) string {
	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	if nulls == "" {
		return colExpr + " " + dir
	}
	if t.SupportsNullsOrdering {
		return fmt.Sprintf("%s %s NULLS %s", colExpr, dir, strings.ToUpper(nulls))
	}
	// Emulate via a synthetic leading sort key: 0 sorts before 1.
	isNullFirst := nulls == "first"
	rank := "CASE WHEN " + colExpr + " IS NULL THEN 1 ELSE 0 END"
	if isNullFirst {
		rank = "CASE WHEN " + colExpr + " IS NULL THEN 0 ELSE 1 END"
	}
	return fmt.Sprintf("%s, %s %s", rank, colExpr, dir)
}
