// Package sqlite provides the SQLite dialect.
package sqlite

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect, also used for libSQL and Turso.
var SQLite = dialect.NewDialect("sqlite", dialect.SQLite).
	DisplayName("SQLite").
	Keywords(dialect.StandardKeywords...).
	Keywords(
		"AUTOINCREMENT", "GLOB", "REGEXP", "MATCH", "WITHOUT", "ROWID", "STRICT", "CONFLICT",
		"ABORT", "FAIL", "IGNORE", "INDEXED", "NOTNULL", "ISNULL", "REINDEX", "SAVEPOINT",
		"RELEASE", "VIRTUAL", "TEMP", "UPSERT", "DO", "NOTHING",
	).
	StatementKeywords("PRAGMA", "ATTACH", "DETACH", "VACUUM").
	DataTypes("INTEGER", "REAL", "TEXT", "BLOB", "NUMERIC", "BOOLEAN", "DATE", "DATETIME", "VARCHAR").
	Functions(dialect.StandardFunctions...).
	Functions(
		dialect.Agg("GROUP_CONCAT", "Concatenates non-null values with a separator.", "TEXT",
			dialect.P("expression", "any"), dialect.Opt("separator", "text")),
		dialect.Agg("TOTAL", "Sum that always returns a floating point value.", "REAL", dialect.P("expression", "numeric")),
		dialect.Fn("IFNULL", "Returns the first argument if it is not NULL, otherwise the second.", "any",
			dialect.P("value", "any"), dialect.P("fallback", "any")),
		dialect.Fn("INSTR", "Position of the first occurrence of a substring.", "INTEGER",
			dialect.P("string", "text"), dialect.P("substring", "text")),
		dialect.Fn("PRINTF", "Formats values like the C printf function.", "TEXT",
			dialect.P("format", "text"), dialect.Opt("args", "any")),
		dialect.Fn("DATE", "Returns the date as YYYY-MM-DD.", "TEXT",
			dialect.P("time_value", "text"), dialect.Opt("modifier", "text")),
		dialect.Fn("DATETIME", "Returns the date and time as YYYY-MM-DD HH:MM:SS.", "TEXT",
			dialect.P("time_value", "text"), dialect.Opt("modifier", "text")),
		dialect.Fn("STRFTIME", "Formats a date according to a format string.", "TEXT",
			dialect.P("format", "text"), dialect.P("time_value", "text"), dialect.Opt("modifier", "text")),
		dialect.Fn("JULIANDAY", "Returns the Julian day number.", "REAL", dialect.P("time_value", "text")),
		dialect.Fn("TYPEOF", "Returns the storage class of a value.", "TEXT", dialect.P("value", "any")),
		dialect.Fn("RANDOM", "Returns a pseudo-random integer.", "INTEGER"),
		dialect.Fn("JSON_EXTRACT", "Extracts a value from JSON.", "any",
			dialect.P("json", "text"), dialect.P("path", "text")),
		dialect.Fn("LAST_INSERT_ROWID", "Rowid of the most recent successful INSERT.", "INTEGER"),
	).
	KeywordDocs(dialect.StandardKeywordDocs).
	KeywordDocs(map[string]string{
		"PRAGMA": "Queries or modifies SQLite library settings.\n\n```sql\nPRAGMA table_info(table_name);\n```",
		"VACUUM": "Rebuilds the database file, reclaiming free space.",
		"ATTACH": "Attaches another database file under a schema name.",
		"GLOB":   "Case-sensitive pattern match using Unix wildcards.",
	}).
	FromKeywords("INDEXED", "NOT").
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	Build()
