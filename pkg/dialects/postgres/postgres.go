// Package postgres provides the PostgreSQL dialect.
package postgres

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.NewDialect("postgres", dialect.PostgreSQL).
	DisplayName("PostgreSQL").
	Keywords(dialect.StandardKeywords...).
	Keywords(
		"ILIKE", "SIMILAR", "LATERAL", "SCHEMA", "SEQUENCE", "EXTENSION", "MATERIALIZED",
		"CONFLICT", "DO", "NOTHING", "ONLY", "FETCH", "FIRST", "NEXT", "NULLS", "LAST",
		"FILTER", "WITHIN", "TABLESAMPLE", "CONCURRENTLY", "VERBOSE", "ARRAY",
	).
	StatementKeywords("EXPLAIN", "ANALYZE").
	DataTypes(dialect.StandardDataTypes...).
	DataTypes("SERIAL", "BIGSERIAL", "UUID", "JSON", "JSONB", "BYTEA", "TIMESTAMPTZ", "INTERVAL", "INET", "CIDR", "MONEY", "DOUBLE PRECISION").
	Functions(dialect.StandardFunctions...).
	Functions(
		dialect.Agg("STRING_AGG", "Concatenates values with a delimiter.", "TEXT",
			dialect.P("expression", "text"), dialect.P("delimiter", "text")),
		dialect.Agg("ARRAY_AGG", "Collects values into an array.", "ARRAY", dialect.P("expression", "any")),
		dialect.Agg("BOOL_AND", "True if every input is true.", "BOOLEAN", dialect.P("expression", "boolean")),
		dialect.Agg("BOOL_OR", "True if any input is true.", "BOOLEAN", dialect.P("expression", "boolean")),
		dialect.Agg("JSONB_AGG", "Aggregates values as a JSONB array.", "JSONB", dialect.P("expression", "any")),
		dialect.Fn("NOW", "Current transaction timestamp.", "TIMESTAMPTZ"),
		dialect.Fn("CONCAT", "Concatenates the text of all arguments.", "TEXT", dialect.P("string1", "text"), dialect.P("string2", "text")),
		dialect.Fn("DATE_TRUNC", "Truncates a timestamp to a precision.", "TIMESTAMP",
			dialect.P("field", "text"), dialect.P("source", "timestamp")),
		dialect.Fn("EXTRACT", "Extracts a field from a date or time.", "NUMERIC",
			dialect.P("field", "text"), dialect.P("source", "timestamp")),
		dialect.Fn("TO_CHAR", "Formats a value as text.", "TEXT", dialect.P("value", "any"), dialect.P("format", "text")),
		dialect.Fn("GEN_RANDOM_UUID", "Generates a random UUID.", "UUID"),
		dialect.Fn("JSONB_BUILD_OBJECT", "Builds a JSONB object from key/value pairs.", "JSONB",
			dialect.P("key", "text"), dialect.P("value", "any")),
		dialect.Fn("SUBSTRING", "Extracts a substring.", "TEXT",
			dialect.P("string", "text"), dialect.P("start", "integer"), dialect.Opt("length", "integer")),
		dialect.Fn("REGEXP_REPLACE", "Replaces substrings matching a POSIX regular expression.", "TEXT",
			dialect.P("source", "text"), dialect.P("pattern", "text"), dialect.P("replacement", "text"), dialect.Opt("flags", "text")),
	).
	KeywordDocs(dialect.StandardKeywordDocs).
	KeywordDocs(map[string]string{
		"EXPLAIN": "Shows the execution plan of a statement.\n\n```sql\nEXPLAIN ANALYZE SELECT ...;\n```",
		"ANALYZE": "Collects statistics about table contents.",
		"ILIKE":   "Case-insensitive LIKE.",
		"LATERAL": "Allows a subquery in FROM to reference columns of preceding items.",
	}).
	FromKeywords("LATERAL", "ONLY").
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	StringSyntax(dialect.StringSyntax{DollarQuoted: true, EscapePrefix: true}).
	Build()
